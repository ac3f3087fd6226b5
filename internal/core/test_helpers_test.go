package core

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/framecast-server/internal/archive"
	"github.com/vovakirdan/framecast-server/internal/chat"
	"github.com/vovakirdan/framecast-server/internal/history"
	"github.com/vovakirdan/framecast-server/internal/identity"
	"github.com/vovakirdan/framecast-server/internal/ratelimit"
	"github.com/vovakirdan/framecast-server/internal/transcode"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// nextEvent returns the next event of any kind.
func nextEvent(t *testing.T, ch <-chan *Event) *Event {
	t.Helper()

	select {
	case ev := <-ch:
		if ev == nil {
			t.Fatalf("event channel closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("no event received")
		return nil
	}
}

// expectQuiet fails if any event arrives within d.
func expectQuiet(t *testing.T, ch <-chan *Event, d time.Duration) {
	t.Helper()

	select {
	case ev := <-ch:
		if ev != nil {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(d):
	}
}

type recordingArchiver struct {
	mu    sync.Mutex
	names []string
}

func (r *recordingArchiver) Dispatch(meta archive.Metadata, _ chat.Media) bool {
	r.mu.Lock()
	r.names = append(r.names, meta.Name)
	r.mu.Unlock()
	return true
}

func (r *recordingArchiver) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

type failingLimiter struct{}

func (failingLimiter) Check(_ context.Context, key string) (bool, error) {
	return false, &ratelimit.LimitCheckError{Key: key, Err: errors.New("connection refused")}
}

// fakeTranscode concatenates frames into both artifacts.
var fakeTranscode = transcode.Func(func(_ context.Context, frames [][]byte, _ string) (chat.Media, error) {
	joined := bytes.Join(frames, nil)
	return chat.Media{
		chat.EncodingJPG: append([]byte("jpg:"), joined...),
		chat.EncodingMP4: append([]byte("mp4:"), joined...),
	}, nil
})

func unlimited() ratelimit.Config {
	return ratelimit.Config{Rate: 1000, Burst: 1000, Window: time.Second}
}

func newTestHub(t testing.TB, configure ...func(*Options)) (*Hub, *recordingArchiver) {
	t.Helper()

	hist, err := history.New(history.Config{Limit: 3, Expiry: time.Hour, GainFactor: 1})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	rec := &recordingArchiver{}

	opts := Options{
		Binder:           identity.NewBinder("test-secret"),
		History:          hist,
		Transcoder:       fakeTranscode,
		ConnectLimiter:   ratelimit.NewMemory(unlimited()),
		MessageLimiter:   ratelimit.NewMemory(unlimited()),
		Archiver:         rec,
		TranscodeTimeout: time.Second,
	}
	for _, fn := range configure {
		fn(&opts)
	}

	hub := NewHub(opts)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	return hub, rec
}

func connect(t *testing.T, hub *Hub, id string) *Client {
	t.Helper()
	c := hub.NewClient(id, "127.0.0.1")
	hub.RegisterClient(c)
	return c
}

func bind(t *testing.T, c *Client, fingerprint string) string {
	t.Helper()
	c.Commands <- &Command{Kind: CommandFingerprint, Fingerprint: fingerprint}
	return mustEvent(t, c.Events, EventUserID).UserID
}

// join subscribes an unbound client and waits until the hub has handled it.
func join(t *testing.T, c *Client, channel string) {
	t.Helper()
	c.Commands <- &Command{Kind: CommandJoin, Channel: channel}
	c.Commands <- &Command{Kind: CommandChat}
	mustEvent(t, c.Events, EventError)
}

func testFrames(n int) [][]byte {
	frames := make([][]byte, n)
	for i := range frames {
		frames[i] = []byte{0xff, 0xd8, byte(i)}
	}
	return frames
}

func chatCommand(ack string, frames [][]byte) *Command {
	return &Command{
		Kind:   CommandChat,
		AckKey: ack,
		Text:   "hello " + ack,
		Format: chat.FrameFormat,
		Frames: frames,
	}
}

func dataURIs(mime string, n int) []string {
	uris := make([]string, n)
	for i, frame := range testFrames(n) {
		uris[i] = "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(frame)
	}
	return uris
}
