package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hilthontt/sketchroom/internal/infrastructure/configs"
	"github.com/hilthontt/sketchroom/internal/infrastructure/ratelimiter"
	healthHandler "github.com/hilthontt/sketchroom/internal/presentation/handler/health"
	messagesHandler "github.com/hilthontt/sketchroom/internal/presentation/handler/messages"
	roomHandler "github.com/hilthontt/sketchroom/internal/presentation/handler/rooms"
	socketHandler "github.com/hilthontt/sketchroom/internal/presentation/handler/socket"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Application struct {
	config          configs.Config
	roomHandler     *roomHandler.Handler
	healthHandler   *healthHandler.Handler
	messagesHandler *messagesHandler.Handler
	socketHandler   *socketHandler.Handler
	metricsHandler  http.Handler
	logger          *zap.SugaredLogger
	ratelimiter     ratelimiter.Limiter
}

type Handlers struct {
	Rooms    *roomHandler.Handler
	Health   *healthHandler.Handler
	Messages *messagesHandler.Handler
	Socket   *socketHandler.Handler
	Metrics  http.Handler
}

func NewApplication(
	config configs.Config,
	handlers Handlers,
	logger *zap.SugaredLogger,
	ratelimiter ratelimiter.Limiter,
) *Application {
	return &Application{
		config:          config,
		roomHandler:     handlers.Rooms,
		healthHandler:   handlers.Health,
		messagesHandler: handlers.Messages,
		socketHandler:   handlers.Socket,
		metricsHandler:  handlers.Metrics,
		logger:          logger,
		ratelimiter:     ratelimiter,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(app.enableCors)

	if app.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", app.metricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(app.rateLimiterMiddleware)

		// Sockets outlive any request timeout.
		r.Get("/ws", app.socketHandler.HandleConnection)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(app.requestTimeout()))

			r.Route("/rooms", func(r chi.Router) {
				r.Post("/", app.roomHandler.CreateRoomHandler)
				r.Get("/{roomId}", app.roomHandler.GetRoomHandler)
				r.Get("/{roomId}/messages", app.messagesHandler.ListMessagesHandler)
			})

			r.Get("/health", app.healthHandler.GetHealth)
			r.Get("/healthz", app.healthHandler.GetHealth)
			r.Get("/ready", app.healthHandler.GetHealth)
			r.Get("/live", app.healthHandler.GetHealth)
		})
	})

	return otelhttp.NewHandler(r, "sketchroom.http")
}

func (app *Application) requestTimeout() time.Duration {
	if app.config.HTTP.RequestTimeout > 0 {
		return app.config.HTTP.RequestTimeout
	}
	return 60 * time.Second
}

func (app *Application) Run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.config.HTTP.Host, app.config.HTTP.Port),
		Handler:      mux,
		WriteTimeout: app.config.HTTP.WriteTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", srv.Addr)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", srv.Addr)

	return nil
}
