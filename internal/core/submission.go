package core

import (
	"context"
	"time"

	"github.com/vincent-petithory/dataurl"

	"github.com/vovakirdan/framecast-server/internal/chat"
	"github.com/vovakirdan/framecast-server/internal/identity"
	"github.com/vovakirdan/framecast-server/internal/metrics"
)

// submission is a message waiting for the rate limiter and the transcoder.
type submission struct {
	client *Client
	author identity.Identity
	legacy bool
	ackKey string
	text   string

	// current protocol
	format string
	frames [][]byte

	// legacy protocol
	dataURIs []string
}

type result struct {
	sub   *submission
	media chat.Media
	err   error
}

func (s *submission) protocol() string {
	if s.legacy {
		return "legacy"
	}
	return "current"
}

func (s *submission) ackEvent(errMsg string) *Event {
	if s.legacy {
		return &Event{Kind: EventLegacyAck, Ack: &Ack{Key: s.ackKey, UserID: string(s.author), Err: errMsg}}
	}
	return &Event{Kind: EventAck, Ack: &Ack{Key: s.ackKey, Err: errMsg}}
}

// rawFrames validates the submission and returns its JPEG frames.
func (s *submission) rawFrames() ([][]byte, error) {
	if !s.legacy {
		if len(s.frames) != chat.FrameCount {
			return nil, ErrInvalidFrames
		}
		if s.format != chat.FrameFormat {
			return nil, ErrInvalidFrameFormat
		}
		return s.frames, nil
	}

	if len(s.dataURIs) != chat.FrameCount {
		return nil, ErrInvalidFrames
	}
	frames := make([][]byte, 0, len(s.dataURIs))
	for _, uri := range s.dataURIs {
		du, err := dataurl.DecodeString(uri)
		if err != nil {
			return nil, ErrInvalidFrames
		}
		if du.ContentType() != chat.FrameFormat {
			return nil, ErrInvalidFrameFormat
		}
		frames = append(frames, du.Data)
	}
	return frames, nil
}

// submit runs the submission off the hub goroutine; the outcome comes back
// through h.results.
func (h *Hub) submit(ctx context.Context, sub *submission) {
	go func() {
		res := h.process(ctx, sub)
		select {
		case h.results <- res:
		case <-h.done:
		}
	}()
}

func (h *Hub) process(ctx context.Context, sub *submission) *result {
	res := &result{sub: sub}

	allowed, err := h.messageLimiter.Check(ctx, string(sub.author))
	switch {
	case err != nil:
		metrics.LimiterErrors.WithLabelValues("message").Inc()
		h.log.Error().Err(err).Str("identity", string(sub.author)).Msg("message rate limit check failed")
	case !allowed:
		res.err = ErrRateLimited
		return res
	}

	frames, err := sub.rawFrames()
	if err != nil {
		res.err = err
		return res
	}

	tctx, cancel := context.WithTimeout(ctx, h.transcodeTimeout)
	defer cancel()

	start := time.Now()
	media, err := h.transcoder.Convert(tctx, frames, chat.FrameFormat)
	metrics.TranscodeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		h.log.Error().Err(err).Str("client_id", sub.client.ID).Msg("convert frames")
		res.err = ErrConversion
		return res
	}

	res.media = media
	return res
}
