package archive

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/framecast-server/internal/chat"
	"github.com/vovakirdan/framecast-server/internal/metrics"
)

// Dispatcher runs archival in the background. Dispatch never blocks: when the
// concurrency limit is reached the item is dropped and logged.
type Dispatcher struct {
	archiver Archiver
	timeout  time.Duration
	log      *zerolog.Logger
	group    errgroup.Group
}

// NewDispatcher allows up to concurrency archival calls in flight, each bounded by timeout.
func NewDispatcher(archiver Archiver, concurrency int, timeout time.Duration, logger *zerolog.Logger) *Dispatcher {
	if concurrency < 1 {
		concurrency = 1
	}
	d := &Dispatcher{
		archiver: archiver,
		timeout:  timeout,
		log:      logger,
	}
	d.group.SetLimit(concurrency)
	return d
}

// Dispatch starts archiving media and reports whether it was started.
func (d *Dispatcher) Dispatch(meta Metadata, media chat.Media) bool {
	started := d.group.TryGo(func() error {
		ctx := context.Background()
		if d.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.timeout)
			defer cancel()
		}

		if err := d.archiver.Archive(ctx, meta, media); err != nil {
			metrics.ArchiveFailures.WithLabelValues("error").Inc()
			d.log.Error().Err(err).Str("key", meta.Name).Msg("archive failed")
			return nil
		}
		d.log.Debug().Str("key", meta.Name).Msg("archived")
		return nil
	})
	if !started {
		metrics.ArchiveFailures.WithLabelValues("busy").Inc()
		d.log.Warn().Str("key", meta.Name).Msg("archive dropped: too many in flight")
	}
	return started
}

// Wait blocks until in-flight archival finishes or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		_ = d.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
