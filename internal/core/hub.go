package core

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/framecast-server/internal/archive"
	"github.com/vovakirdan/framecast-server/internal/chat"
	"github.com/vovakirdan/framecast-server/internal/history"
	"github.com/vovakirdan/framecast-server/internal/identity"
	"github.com/vovakirdan/framecast-server/internal/metrics"
	"github.com/vovakirdan/framecast-server/internal/ratelimit"
	"github.com/vovakirdan/framecast-server/internal/transcode"
)

const defaultTranscodeTimeout = 30 * time.Second

// Archiver receives accepted entries for background archival. It must not block.
type Archiver interface {
	Dispatch(meta archive.Metadata, media chat.Media) bool
}

// Options carries the collaborators of a Hub.
type Options struct {
	Binder     *identity.Binder
	History    *history.Store
	Transcoder transcode.Transcoder
	// ConnectLimiter is keyed by remote address, MessageLimiter by identity.
	ConnectLimiter ratelimit.Limiter
	MessageLimiter ratelimit.Limiter
	// Archiver may be nil.
	Archiver         Archiver
	TranscodeTimeout time.Duration
	Logger           *zerolog.Logger
}

type clientCommand struct {
	client *Client
	cmd    *Command
}

// Hub owns connection state, channel membership and history. All mutations
// happen on the goroutine running Run; transcoding and limiter checks run on
// their own goroutines and report back through results.
type Hub struct {
	binder           *identity.Binder
	history          *history.Store
	transcoder       transcode.Transcoder
	connectLimiter   ratelimit.Limiter
	messageLimiter   ratelimit.Limiter
	archiver         Archiver
	transcodeTimeout time.Duration
	log              *zerolog.Logger

	register   chan *Client
	unregister chan *Client
	commands   chan clientCommand
	results    chan *result
	done       chan struct{}

	clients map[*Client]struct{}
	rooms   map[string]*Room
}

// NewHub creates a new hub instance.
func NewHub(opts Options) *Hub {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	timeout := opts.TranscodeTimeout
	if timeout <= 0 {
		timeout = defaultTranscodeTimeout
	}

	return &Hub{
		binder:           opts.Binder,
		history:          opts.History,
		transcoder:       opts.Transcoder,
		connectLimiter:   opts.ConnectLimiter,
		messageLimiter:   opts.MessageLimiter,
		archiver:         opts.Archiver,
		transcodeTimeout: timeout,
		log:              logger,
		register:         make(chan *Client),
		unregister:       make(chan *Client),
		commands:         make(chan clientCommand, 64),
		results:          make(chan *result, 64),
		done:             make(chan struct{}),
		clients:          make(map[*Client]struct{}),
		rooms:            make(map[string]*Room),
	}
}

// Admit applies the connection rate limit for addr. Limiter failures let the
// connection through.
func (h *Hub) Admit(ctx context.Context, addr string) error {
	allowed, err := h.connectLimiter.Check(ctx, addr)
	if err != nil {
		metrics.LimiterErrors.WithLabelValues("connect").Inc()
		h.log.Error().Err(err).Str("addr", addr).Msg("connection rate limit check failed")
		return nil
	}
	if !allowed {
		metrics.ConnectionsRejected.Inc()
		h.log.Warn().Str("addr", addr).Msg("connection rate limit exceeded")
		return ErrAdmissionRejected
	}
	metrics.ConnectionsAdmitted.Inc()
	return nil
}

// NewClient constructs a client whose event buffer fits a full replay of
// every channel on top of the usual live backlog.
func (h *Hub) NewClient(id, addr string) *Client {
	return newClient(id, addr, eventBuffer+h.history.Limit()*len(chat.Encodings()))
}

// RegisterClient hands a connected client to the hub.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// UnregisterClient drops the client and its channel memberships.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Run processes hub events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		case cc := <-h.commands:
			h.handleCommand(ctx, cc.client, cc.cmd)
		case res := <-h.results:
			h.handleResult(res)
		}
	}
}

func (h *Hub) addClient(c *Client) {
	h.clients[c] = struct{}{}
	metrics.ConnectedClients.Inc()
	h.log.Debug().Str("client_id", c.ID).Str("addr", c.Addr).Msg("client registered")

	go h.pump(c)
}

// pump forwards a client's commands into the hub loop.
func (h *Hub) pump(c *Client) {
	for {
		select {
		case cmd := <-c.Commands:
			if cmd == nil {
				continue
			}
			select {
			case h.commands <- clientCommand{client: c, cmd: cmd}:
			case <-c.done:
				return
			case <-h.done:
				return
			}
		case <-c.done:
			return
		case <-h.done:
			return
		}
	}
}

func (h *Hub) removeClient(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	metrics.ConnectedClients.Dec()

	for name := range c.Rooms {
		if room, ok := h.rooms[name]; ok {
			room.RemoveClient(c)
			if room.Empty() {
				delete(h.rooms, name)
			}
		}
	}
	c.Rooms = make(map[string]struct{})

	h.binder.Release(c.ID)
	close(c.done)
	close(c.Events)
	h.log.Debug().Str("client_id", c.ID).Msg("client unregistered")
}

func (h *Hub) handleCommand(ctx context.Context, c *Client, cmd *Command) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	switch cmd.Kind {
	case CommandFingerprint:
		h.handleFingerprint(c, cmd.Fingerprint)
	case CommandJoin:
		h.handleJoin(c, cmd.Channel)
	case CommandChat:
		h.handleChat(ctx, c, cmd)
	case CommandLegacyMessage:
		h.handleLegacyMessage(ctx, c, cmd)
	default:
		h.send(c, &Event{Kind: EventError, Error: ErrInvalidMessage.Error()})
	}
}

func (h *Hub) handleFingerprint(c *Client, fingerprint string) {
	if _, bound := h.binder.Lookup(c.ID); bound {
		h.send(c, &Event{Kind: EventError, Error: identity.ErrAlreadyBound.Error()})
		return
	}

	id, err := h.binder.Bind(c.ID, fingerprint, identity.Current)
	switch {
	case errors.Is(err, identity.ErrAlreadyBound):
		h.send(c, &Event{Kind: EventError, Error: err.Error()})
	case errors.Is(err, identity.ErrInvalidFingerprint):
		h.log.Debug().Str("client_id", c.ID).Msg("invalid fingerprint, disconnecting")
		h.send(c, &Event{Kind: EventError, Error: err.Error()})
		h.send(c, &Event{Kind: EventClose, Error: err.Error()})
	case err != nil:
		h.log.Error().Err(err).Str("client_id", c.ID).Msg("bind fingerprint")
	default:
		h.send(c, &Event{Kind: EventUserID, UserID: string(id)})
	}
}

func (h *Hub) handleJoin(c *Client, channel string) {
	if !chat.Supported(channel) {
		h.log.Debug().Str("client_id", c.ID).Str("channel", channel).Msg("join of unknown channel ignored")
		return
	}

	room, ok := h.rooms[channel]
	if !ok {
		room = NewRoom(channel)
		h.rooms[channel] = room
	}
	room.AddClient(c)
	c.Rooms[channel] = struct{}{}

	for _, entry := range h.history.Snapshot(channel) {
		h.send(c, &Event{Kind: EventChat, Channel: channel, Entry: entry})
	}
	// Snapshot evicts decayed entries.
	metrics.HistorySize.Set(float64(h.history.Len()))
}

func (h *Hub) handleChat(ctx context.Context, c *Client, cmd *Command) {
	author, ok := h.binder.Lookup(c.ID)
	if !ok {
		h.send(c, &Event{Kind: EventError, Error: ErrNoFingerprint.Error()})
		return
	}

	h.submit(ctx, &submission{
		client: c,
		author: author,
		ackKey: cmd.AckKey,
		text:   cmd.Text,
		format: cmd.Format,
		frames: cmd.Frames,
	})
}

func (h *Hub) handleLegacyMessage(ctx context.Context, c *Client, cmd *Command) {
	if err := identity.ValidateFingerprint(cmd.Fingerprint, identity.Legacy); err != nil {
		h.send(c, &Event{Kind: EventLegacyAck, Ack: &Ack{Key: cmd.AckKey, Err: legacyInvalidFingerprint}})
		return
	}

	author, created := h.binder.BindIfAbsent(c.ID, cmd.Fingerprint)
	if created {
		h.send(c, &Event{Kind: EventUserID, UserID: string(author)})
	}

	h.submit(ctx, &submission{
		client:   c,
		author:   author,
		legacy:   true,
		ackKey:   cmd.AckKey,
		text:     cmd.Text,
		dataURIs: cmd.Media,
	})
}

func (h *Hub) handleResult(res *result) {
	sub := res.sub
	_, live := h.clients[sub.client]

	if res.err != nil {
		metrics.MessagesRejected.WithLabelValues(rejectReason(res.err)).Inc()
		if live {
			h.send(sub.client, sub.ackEvent(ackMessage(res.err, sub.legacy)))
		}
		return
	}

	entry := chat.Entry{
		Message: chat.NewMessage(string(sub.author), sub.text, time.Now()),
		Media:   res.media,
	}

	// The sender hears about acceptance before anyone sees the message.
	if live {
		h.send(sub.client, sub.ackEvent(""))
	} else {
		h.log.Debug().Str("client_id", sub.client.ID).Str("key", entry.Message.Key).
			Msg("sender disconnected before transcode finished; accepting anyway")
	}

	evicted := h.history.Append(entry)
	metrics.HistoryEvicted.Add(float64(evicted))
	metrics.HistorySize.Set(float64(h.history.Len()))
	metrics.MessagesAccepted.WithLabelValues(sub.protocol()).Inc()

	if h.archiver != nil {
		h.archiver.Dispatch(archive.Metadata{Name: entry.Message.Key}, entry.Media)
	}

	h.fanOut(entry)
}

// fanOut delivers entry to every channel it has an artifact for.
func (h *Hub) fanOut(entry chat.Entry) {
	for _, encoding := range chat.Encodings() {
		if _, ok := entry.Artifact(encoding); !ok {
			continue
		}
		room, ok := h.rooms[encoding]
		if !ok {
			continue
		}
		if dropped := room.Broadcast(&Event{Kind: EventChat, Channel: encoding, Entry: entry}); dropped > 0 {
			metrics.DroppedEvents.Add(float64(dropped))
			h.log.Warn().Str("channel", encoding).Int("dropped", dropped).Msg("slow subscribers missed a message")
		}
	}
}

// send delivers an event to one client without blocking the hub.
func (h *Hub) send(c *Client, ev *Event) {
	select {
	case c.Events <- ev:
	default:
		metrics.DroppedEvents.Inc()
		h.log.Warn().Str("client_id", c.ID).Msg("client event buffer full, dropping event")
	}
}
