package main

import (
	"context"
	"expvar"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/hilthontt/sketchroom/internal/application/session"
	"github.com/hilthontt/sketchroom/internal/domain"
	"github.com/hilthontt/sketchroom/internal/infrastructure/configs"
	"github.com/hilthontt/sketchroom/internal/infrastructure/events"
	"github.com/hilthontt/sketchroom/internal/infrastructure/logging"
	"github.com/hilthontt/sketchroom/internal/infrastructure/messaging"
	"github.com/hilthontt/sketchroom/internal/infrastructure/metrics"
	"github.com/hilthontt/sketchroom/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/sketchroom/internal/infrastructure/registry"
	"github.com/hilthontt/sketchroom/internal/infrastructure/repository"
	"github.com/hilthontt/sketchroom/internal/infrastructure/tracing"
	"github.com/hilthontt/sketchroom/internal/infrastructure/worker"
	"github.com/hilthontt/sketchroom/internal/infrastructure/ws"
	"github.com/hilthontt/sketchroom/internal/persistence/db"
	mongoRepository "github.com/hilthontt/sketchroom/internal/persistence/repository"
	"github.com/hilthontt/sketchroom/internal/presentation/api"
	healthHandler "github.com/hilthontt/sketchroom/internal/presentation/handler/health"
	messagesHandler "github.com/hilthontt/sketchroom/internal/presentation/handler/messages"
	roomHandler "github.com/hilthontt/sketchroom/internal/presentation/handler/rooms"
	socketHandler "github.com/hilthontt/sketchroom/internal/presentation/handler/socket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

type collaborators struct {
	chats     domain.ChatArchive
	drawings  domain.DrawingArchive
	catalog   domain.RoomCatalog
	publisher domain.LifecyclePublisher
	closers   []func(ctx context.Context)
}

func main() {
	os.Exit(run(configs.DetermineConfigPath()))
}

// run wires and serves the application. It returns the process exit code
// so deferred cleanup always runs before the process exits.
func run(configPath string) int {
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Print(err)
		return 1
	}

	logger, err := logging.New(cfg.Logger)
	if err != nil {
		log.Print(err)
		return 1
	}
	defer logger.Sync()

	startup := logging.For(logger, logging.General, logging.Startup)
	startup.Infow("configuration loaded", "path", configPath)

	ctx := context.Background()

	shutdownTracer, err := tracing.InitTracer(ctx, cfg.Tracing)
	if err != nil {
		startup.Errorw("failed to initialize tracing", "error", err)
		return 1
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promRegistry, promRegistry)

	pool := worker.NewPool(worker.Options{
		QueueSize:  cfg.Worker.QueueSize,
		MaxWorkers: cfg.Worker.MaxWorkers,
		OnDrop:     func(worker.Job) { m.PersistDropped() },
	}, logging.For(logger, logging.Session, logging.Persist))

	c, err := buildCollaborators(ctx, cfg, logger)
	if err != nil {
		startup.Errorw("failed to initialize collaborators", "error", err)
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		c.close(closeCtx)
		_ = pool.Shutdown(closeCtx)
		_ = shutdownTracer(closeCtx)
		return 1
	}

	reg := registry.New(registry.Options{
		Shards:                cfg.Session.Shards,
		ChatHistoryCapacity:   cfg.Session.ChatHistoryCapacity,
		StrokeHistoryCapacity: cfg.Session.StrokeHistoryCapacity,
	})

	service := session.NewService(session.Options{
		Registry:         reg,
		Logger:           logger,
		Metrics:          m,
		ChatArchive:      c.chats,
		DrawingArchive:   c.drawings,
		Publisher:        c.publisher,
		Jobs:             pool,
		MaxMessageLength: cfg.Session.MaxMessageLength,
	})

	socketLimiter := ratelimiter.NewFixedWindowRateLimiter(cfg.RateLimiter.SocketEvents, cfg.RateLimiter.SocketWindow)
	defer socketLimiter.Close()
	dispatcher := session.NewDispatcher(service, socketLimiter, logger, m)

	httpLimiter, closeLimiterStore := buildHTTPLimiter(ctx, cfg, logger)
	defer closeLimiterStore()

	handlers := api.Handlers{
		Rooms:    roomHandler.NewHandler(c.catalog, reg, logger),
		Health:   healthHandler.NewHandler(reg.Stats),
		Messages: messagesHandler.NewHandler(c.chats, logger),
		Socket: socketHandler.NewHandler(dispatcher, socketHandler.Options{
			ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
			WriteBufferSize: cfg.WebSocket.WriteBufferSize,
			AllowedOrigins:  cfg.HTTP.AllowedOrigins,
			Client: ws.ClientOptions{
				SendBufferSize: cfg.WebSocket.SendBufferSize,
				MaxMessageSize: cfg.WebSocket.MaxMessageSize,
				PongWait:       cfg.WebSocket.PongWait,
				WriteWait:      cfg.WebSocket.WriteWait,
			},
		}, m, logger),
		Metrics: m.Handler(),
	}
	app := api.NewApplication(*cfg, handlers, logger, httpLimiter)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.Mount()
	runErr := app.Run(mux)

	shutdown := logging.For(logger, logging.General, logging.Shutdown)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Pending persistence and publishing jobs drain before their sinks close.
	if err := pool.Shutdown(shutdownCtx); err != nil {
		shutdown.Warnw("worker pool did not drain", "error", err, "pending", pool.Depth())
	}
	c.close(shutdownCtx)
	if err := shutdownTracer(shutdownCtx); err != nil {
		shutdown.Warnw("tracer shutdown failed", "error", err)
	}

	if runErr != nil {
		shutdown.Errorw("server stopped with error", "error", runErr)
		return 1
	}

	return 0
}

// close releases collaborator connections in reverse order of opening.
func (c *collaborators) close(ctx context.Context) {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i](ctx)
	}
}

// buildCollaborators picks MongoDB and RabbitMQ when configured and the
// in-memory adapters otherwise. On error the returned collaborators still
// hold the closers of whatever was opened.
func buildCollaborators(ctx context.Context, cfg *configs.Config, logger *zap.SugaredLogger) (*collaborators, error) {
	c := &collaborators{publisher: events.NoopPublisher{}}

	if cfg.Mongo.URI != "" {
		client, err := db.NewMongoClient(ctx, cfg.Mongo, logger)
		if err != nil {
			return c, err
		}
		c.closers = append(c.closers, func(ctx context.Context) {
			if err := db.DisconnectMongo(ctx, client); err != nil {
				logger.Warnw("mongo disconnect failed", "error", err)
			}
		})

		database := db.GetDatabase(client, cfg.Mongo)
		messages := mongoRepository.NewMessageRepository(database)
		drawings := mongoRepository.NewDrawingRepository(database)
		rooms := mongoRepository.NewRoomRepository(database)

		for _, ensure := range []func(context.Context) error{messages.EnsureIndexes, drawings.EnsureIndexes, rooms.EnsureIndexes} {
			if err := ensure(ctx); err != nil {
				return c, err
			}
		}

		c.chats, c.drawings, c.catalog = messages, drawings, rooms
	} else {
		c.chats = repository.NewMessageArchive(uint(cfg.Session.ChatHistoryCapacity))
		c.drawings = repository.NewDrawingArchive()
		c.catalog = repository.NewRoomCatalog(cfg.RoomCatalog.Capacity, cfg.RoomCatalog.IdleTTL)
	}

	if cfg.RabbitMQ.URI != "" {
		rabbitmq, err := messaging.NewRabbitMQ(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange)
		if err != nil {
			return c, err
		}
		c.closers = append(c.closers, func(context.Context) { rabbitmq.Close() })
		c.publisher = events.NewRoomPublisher(rabbitmq)
	}

	return c, nil
}

// buildHTTPLimiter shares bucket state through Redis when configured.
func buildHTTPLimiter(ctx context.Context, cfg *configs.Config, logger *zap.SugaredLogger) (ratelimiter.Limiter, func()) {
	var (
		store   ratelimiter.GetterSetter
		closeFn = func() {}
	)

	if cfg.Redis.Addr != "" {
		redisStore, err := ratelimiter.NewRedis(ctx, ratelimiter.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logging.For(logger, logging.Redis, logging.Startup).Warnw("redis unavailable, using in-memory rate limiter", "error", err)
		} else {
			store = redisStore
			closeFn = func() { _ = redisStore.Close() }
		}
	}

	if store == nil {
		memory := ratelimiter.NewInMemoryWithCleanup(time.Minute)
		store = memory
		closeFn = func() { _ = memory.Close() }
	}

	return ratelimiter.New(ratelimiter.Options{
		MaxRatePerSecond: cfg.RateLimiter.MaxRatePerSecond,
		MaxBurst:         cfg.RateLimiter.MaxBurst,
		Cache:            store,
		CacheTTL:         cfg.RateLimiter.CacheTTL,
		SourceHeaderKey:  cfg.RateLimiter.SourceHeaderKey,
	}), closeFn
}
