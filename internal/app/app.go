package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/framecast-server/internal/archive"
	"github.com/vovakirdan/framecast-server/internal/config"
	"github.com/vovakirdan/framecast-server/internal/core"
	"github.com/vovakirdan/framecast-server/internal/history"
	"github.com/vovakirdan/framecast-server/internal/identity"
	"github.com/vovakirdan/framecast-server/internal/ratelimit"
	"github.com/vovakirdan/framecast-server/internal/transcode"
	transporthttp "github.com/vovakirdan/framecast-server/internal/transport/http"
)

const (
	archiveTimeout = 10 * time.Second
	sweepInterval  = time.Minute
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	dispatcher      *archive.Dispatcher
	// memory limiters need their idle buckets swept
	sweep   []sweepTarget
	closers []io.Closer
	log     *zerolog.Logger
}

type sweepTarget struct {
	limiter *ratelimit.Memory
	idle    time.Duration
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	a := &App{
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}

	hist, err := history.New(cfg.History)
	if err != nil {
		return nil, fmt.Errorf("init history: %w", err)
	}

	connectLimiter, messageLimiter, err := a.limiters(ctx, cfg)
	if err != nil {
		a.cleanup()
		return nil, err
	}

	var archiver archive.Archiver = archive.Nop{}
	opts := core.Options{
		Binder:           identity.NewBinder(cfg.UserIDKey),
		History:          hist,
		Transcoder:       transcode.NewFFmpeg(cfg.FFmpegPath),
		ConnectLimiter:   connectLimiter,
		MessageLimiter:   messageLimiter,
		TranscodeTimeout: cfg.TranscodeTimeout,
		Logger:           logger,
	}

	if cfg.Archive.Path != "" {
		store, err := archive.NewSQLite(cfg.Archive.Path, transporthttp.ArchivePrefix)
		if err != nil {
			a.cleanup()
			return nil, fmt.Errorf("init archive: %w", err)
		}
		a.closers = append(a.closers, store)
		archiver = store
		a.dispatcher = archive.NewDispatcher(store, cfg.Archive.Concurrency, archiveTimeout, logger)
		opts.Archiver = a.dispatcher
		logger.Info().Str("path", cfg.Archive.Path).Msg("archive enabled")
	}

	a.hub = core.NewHub(opts)
	a.server = transporthttp.NewServer(a.hub, archiver, cfg, logger)

	logger.Info().
		Int("history_limit", cfg.History.Limit).
		Dur("history_expiry", cfg.History.Expiry).
		Float64("gain_factor", cfg.History.GainFactor).
		Str("limits_backend", cfg.Limits.Backend).
		Msg("hub configured")

	return a, nil
}

func (a *App) limiters(ctx context.Context, cfg config.Config) (ratelimit.Limiter, ratelimit.Limiter, error) {
	if cfg.Limits.Backend == config.BackendRedis {
		client, err := ratelimit.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, client)
		return ratelimit.NewRedis(client, cfg.Limits.Connect, "framecast:limit:connect:"),
			ratelimit.NewRedis(client, cfg.Limits.Message, "framecast:limit:message:"), nil
	}

	connect := ratelimit.NewMemory(cfg.Limits.Connect)
	message := ratelimit.NewMemory(cfg.Limits.Message)
	a.sweep = append(a.sweep,
		sweepTarget{limiter: connect, idle: cfg.Limits.Connect.RefillTime()},
		sweepTarget{limiter: message, idle: cfg.Limits.Message.RefillTime()},
	)
	return connect, message, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.hub.Run(ctx)
	go a.sweepLimiters(ctx)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		err := a.server.Shutdown(shutdownCtx)

		if a.dispatcher != nil {
			if waitErr := a.dispatcher.Wait(shutdownCtx); waitErr != nil {
				a.log.Warn().Err(waitErr).Msg("archive still in flight at shutdown")
			}
		}

		a.cleanup()
		if err != nil {
			return err
		}
		return <-serverErr
	}
}

// sweepLimiters drops buckets that have been idle long enough to be full again.
func (a *App) sweepLimiters(ctx context.Context) {
	if len(a.sweep) == 0 {
		return
	}
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, target := range a.sweep {
				if n := target.limiter.Sweep(target.idle); n > 0 {
					a.log.Debug().Int("buckets", n).Msg("swept idle rate limit buckets")
				}
			}
		}
	}
}

// cleanup closes the archive database, the redis client and other resources.
func (a *App) cleanup() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close resource")
		}
	}
	a.closers = nil
}
