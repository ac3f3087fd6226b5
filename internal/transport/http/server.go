package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/framecast-server/internal/archive"
	"github.com/vovakirdan/framecast-server/internal/config"
)

// ArchivePrefix is where archived items are served.
const ArchivePrefix = "/archive/"

// NewServer builds the HTTP server: health, metrics, archive and the WebSocket endpoint.
func NewServer(hub Hub, archiver archive.Archiver, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(hub, archiver, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewHandler mounts the WebSocket endpoint next to the gin router. /ws stays
// off gin since the upgrade hijacks the connection after writing the status.
func NewHandler(hub Hub, archiver archive.Archiver, cfg config.Config, logger *zerolog.Logger) stdhttp.Handler {
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, cfg.MaxMessageBytes, logger))
	mux.Handle("/", NewRouter(archiver, logger))
	return mux
}

// NewRouter builds the gin engine for the plain HTTP routes.
func NewRouter(archiver archive.Archiver, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if archiver == nil {
		archiver = archive.Nop{}
	}
	archiveHandlers := NewArchiveHandlers(archiver, logger)
	router.GET("/archive", archiveHandlers.List)
	router.GET(ArchivePrefix+":name", archiveHandlers.Get)

	return router
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
