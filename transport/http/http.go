package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"lodge/config"
	"lodge/infras/metrics"
	"lodge/shared/constant"
	"lodge/transport/http/middleware"
	"lodge/transport/http/response"
	"lodge/transport/http/router"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
)

type ServerState int32

const (
	ServerStateReady ServerState = iota + 1
	ServerStateInGracePeriod
	ServerStateInCleanupPeriod
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
	healthyMessage    = "OK"
)

type HTTP struct {
	Config  *config.Config
	Router  router.Router
	App     middleware.AppMiddleware
	Metrics metrics.Metrics

	state  atomic.Int32
	once   sync.Once
	mux    chi.Router
	server *http.Server
}

func New(cfg *config.Config, r router.Router, app middleware.AppMiddleware, m metrics.Metrics) *HTTP {
	return &HTTP{
		Config:  cfg,
		Router:  r,
		App:     app,
		Metrics: m,
	}
}

func (h *HTTP) State() ServerState {
	return ServerState(h.state.Load())
}

func (h *HTTP) setState(state ServerState) {
	h.state.Store(int32(state))
}

// Serve blocks until the server is shut down after SIGTERM or SIGINT.
func (h *HTTP) Serve() {
	h.setup()

	h.server = &http.Server{
		Addr:              net.JoinHostPort(h.Config.Server.Host, h.Config.Server.Port),
		Handler:           h.mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	done := make(chan struct{})
	go h.respondToSigterm(done)

	log.Info().Str("port", h.Config.Server.Port).Msg("Starting up HTTP server.")

	if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Failed to start HTTP server")
	}

	<-done
}

// ServeHTTP lets the service run behind a serverless entrypoint.
func (h *HTTP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.once.Do(h.setupRoutes)
	h.mux.ServeHTTP(w, r)
}

func (h *HTTP) setup() {
	h.once.Do(h.setupRoutes)
	h.setState(ServerStateReady)
}

func (h *HTTP) setupRoutes() {
	mux := chi.NewRouter()

	mux.Use(chiMiddleware.RequestID)
	mux.Use(chiMiddleware.Recoverer)

	if h.Config.App.CORS.Enable {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.Config.App.CORS.AllowedOrigins,
			AllowedMethods:   h.Config.App.CORS.AllowedMethods,
			AllowedHeaders:   h.Config.App.CORS.AllowedHeaders,
			AllowCredentials: h.Config.App.CORS.AllowCredentials,
			MaxAge:           h.Config.App.CORS.MaxAgeSeconds,
		}))
	}

	mux.Use(h.App.Tracing, h.App.Metrics, h.App.RateLimit())

	mux.Get("/health", h.health)
	mux.Handle("/metrics", h.Metrics.Handler())

	h.Router.SetupRoutes(mux)

	h.mux = mux
	h.setState(ServerStateReady)
}

func (h *HTTP) health(w http.ResponseWriter, _ *http.Request) {
	switch h.State() {
	case ServerStateReady:
		response.WithMessage(w, http.StatusOK, healthyMessage)
	case ServerStateInGracePeriod, ServerStateInCleanupPeriod:
		response.WithPreparingShutdown(w)
	default:
		response.WithUnhealthy(w)
	}
}

func (h *HTTP) respondToSigterm(done chan<- struct{}) {
	defer close(done)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	<-signals

	if h.Config.Server.Env == constant.ServerEnvDevelopment {
		log.Warn().Msg("Received SIGTERM. Shutting down now.")
		h.shutdown()

		return
	}

	shutdownConfig := h.Config.Server.Shutdown

	log.Info().Msg("Received SIGTERM.")
	log.Info().Int64("seconds", shutdownConfig.GracePeriodSeconds).Msg("Entering grace period.")

	h.setState(ServerStateInGracePeriod)

	time.Sleep(time.Duration(shutdownConfig.GracePeriodSeconds) * time.Second)

	log.Info().Int64("seconds", shutdownConfig.CleanupPeriodSeconds).Msg("Entering cleanup period.")

	h.setState(ServerStateInCleanupPeriod)

	time.Sleep(time.Duration(shutdownConfig.CleanupPeriodSeconds) * time.Second)

	h.shutdown()

	log.Info().Msg("Cleaning up completed. Shutting down now.")
}

func (h *HTTP) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := h.server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to shut down HTTP server gracefully")
	}
}
