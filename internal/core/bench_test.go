package core

import (
	"testing"

	"github.com/vovakirdan/framecast-server/internal/chat"
	"github.com/vovakirdan/framecast-server/internal/ratelimit"
)

func benchmarkChannelFanOut(b *testing.B, recipients int) {
	hub, _ := newTestHub(b, func(o *Options) {
		o.MessageLimiter = ratelimit.NewMemory(ratelimit.Config{})
	})

	sender := NewClient("sender", "127.0.0.1")
	hub.RegisterClient(sender)
	sender.Commands <- &Command{Kind: CommandFingerprint, Fingerprint: "bench"}
	<-sender.Events

	clients := make([]*Client, 0, recipients)
	for i := range recipients {
		c := NewClient("c"+string(rune('a'+i)), "127.0.0.1")
		hub.RegisterClient(c)
		c.Commands <- &Command{Kind: CommandJoin, Channel: chat.EncodingJPG}
		clients = append(clients, c)
	}

	// Drain events for all but the first recipient to avoid channel backpressure.
	target := clients[0]
	for _, c := range clients[1:] {
		go func(cl *Client) {
			for range cl.Events {
			}
		}(c)
	}
	go func() {
		for range sender.Events {
		}
	}()

	frames := testFrames(chat.FrameCount)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		sender.Commands <- chatCommand("bench", frames)
		for ev := range target.Events {
			if ev.Kind == EventChat {
				break
			}
		}
	}
}

func BenchmarkChannelFanOut_10(b *testing.B)  { benchmarkChannelFanOut(b, 10) }
func BenchmarkChannelFanOut_100(b *testing.B) { benchmarkChannelFanOut(b, 100) }
