// Package server wires the pinmail server together: database and
// migrations, session storage, the event bus, the controller and the HTTP
// and gRPC surfaces.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dmitrijs2005/pinmail/internal/cryptox"
	"github.com/dmitrijs2005/pinmail/internal/logging"
	"github.com/dmitrijs2005/pinmail/internal/server/codec"
	"github.com/dmitrijs2005/pinmail/internal/server/config"
	"github.com/dmitrijs2005/pinmail/internal/server/controller"
	"github.com/dmitrijs2005/pinmail/internal/server/events"
	"github.com/dmitrijs2005/pinmail/internal/server/httpapi"
	"github.com/dmitrijs2005/pinmail/internal/server/metrics"
	"github.com/dmitrijs2005/pinmail/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/pinmail/internal/server/services"
	"github.com/dmitrijs2005/pinmail/internal/server/session"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/pinmail/internal/server/grpc"
)

const (
	janitorInterval = time.Minute
	limiterIdle     = 10 * time.Minute
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	rm         repomanager.RepositoryManager
	metrics    *metrics.Metrics
	store      session.Store
	memory     *session.MemoryStore
	redis      *redis.Client
	secrets    *session.SecretCache
	sessions   *session.Manager
	limiter    *services.AttemptLimiter
	keys       *services.KeyService
	controller *controller.Controller
	publisher  message.Publisher
	subscriber message.Subscriber
	listener   *events.Listener
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	app := &App{config: c, logger: logger, metrics: metrics.New()}

	if err := app.initDB(ctx); err != nil {
		return nil, err
	}
	if err := app.initSessions(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.initEvents(); err != nil {
		app.Close()
		return nil, err
	}

	rm := app.rm
	kdf := cryptox.NewArgon2KDF(c.KDFTime, c.KDFMemoryKiB, c.KDFThreads)
	cipher := cryptox.NewX25519Cipher()
	verifier := services.NewPinVerifier(kdf, cipher)
	app.limiter = services.NewAttemptLimiter(c.PinAttemptsPerMinute, c.PinAttemptBurst)

	publisher := events.NewPublisher(app.publisher)
	app.keys = services.NewKeyService(app.db, rm, kdf, verifier, app.limiter, publisher, logger)
	app.controller = controller.New(
		services.NewMessageService(app.db, rm, app.metrics, logger),
		services.NewPinService(app.db, rm, verifier, app.limiter, app.metrics, logger),
		app.keys,
		services.NewComposeResolver(app.db, rm),
		codec.New(cipher),
		publisher,
		logger,
	)

	return app, nil
}

func (app *App) initDB(ctx context.Context) error {
	rm, err := repomanager.New(app.config.DatabaseDriver)
	if err != nil {
		return err
	}

	db, err := sql.Open(app.config.DatabaseDriver, app.config.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	if app.config.DatabaseDriver == "sqlite" {
		// a single writer avoids SQLITE_BUSY under concurrent requests
		db.SetMaxOpenConns(1)
	}
	app.db = db
	app.rm = rm

	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

func (app *App) initSessions(ctx context.Context) error {
	app.secrets = session.NewSecretCache(app.config.SecretCacheCapacity, app.config.SecretIdleTimeout)

	switch app.config.SessionBackend {
	case "redis":
		rs, err := session.NewRedisStore(ctx, app.config.RedisURL, app.config.SessionTTL)
		if err != nil {
			return err
		}
		app.store = rs
		app.redis = rs.Client()
	default:
		app.memory = session.NewMemoryStore(app.config.SessionTTL)
		app.store = app.memory
	}

	app.sessions = session.NewManager(app.store, app.secrets)
	return nil
}

func (app *App) initEvents() error {
	if app.redis != nil {
		pub, sub, err := events.NewRedisBus(app.redis, app.logger)
		if err != nil {
			return fmt.Errorf("event bus: %w", err)
		}
		app.publisher, app.subscriber = pub, sub
	} else {
		app.publisher, app.subscriber = events.NewMemoryBus(app.logger)
	}

	l, err := events.NewListener(app.subscriber, app.secrets, app.metrics, app.logger)
	if err != nil {
		return err
	}
	app.listener = l
	return nil
}

// Controller is shared by the HTTP surface and the terminal client.
func (app *App) Controller() *controller.Controller { return app.controller }

func (app *App) Sessions() *session.Manager { return app.sessions }

func (app *App) Keys() *services.KeyService { return app.keys }

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.db)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "grpc server", "err", err)
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr: app.config.HTTPAddr,
		Handler: httpapi.SetupRouter(httpapi.RouterConfig{
			Controller: app.controller,
			Sessions:   app.sessions,
			SecretKey:  []byte(app.config.SecretKey),
			DB:         app.db,
			Metrics:    app.metrics.Handler(),
			Logger:     app.logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		app.logger.Info(ctx, "Stopping HTTP server...")
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "http server", "err", err)
		cancelFunc()
	}
}

func (app *App) startListener(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.listener.Run(ctx); err != nil {
		app.logger.Error(ctx, "event listener", "err", err)
		cancelFunc()
	}
}

// Listen consumes session and key events until ctx ends. Embedding
// programs that do not call Run use it to keep their secret cache in step
// with other instances.
func (app *App) Listen(ctx context.Context) {
	go app.janitor(ctx)
	if err := app.listener.Run(ctx); err != nil && ctx.Err() == nil {
		app.logger.Error(ctx, "event listener", "err", err)
	}
}

// janitor drops idle secrets, limiter buckets and expired memory sessions.
func (app *App) janitor(ctx context.Context) {
	t := time.NewTicker(janitorInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			app.sweep(ctx)
		}
	}
}

func (app *App) sweep(ctx context.Context) {
	if n := app.secrets.Sweep(); n > 0 {
		app.metrics.SecretsCleared("idle", n)
	}
	app.limiter.Sweep(limiterIdle)
	if app.memory != nil {
		if n := app.memory.Sweep(); n > 0 {
			app.logger.Debug(ctx, "expired sessions dropped", "count", n)
		}
	}
}

// Run serves until a signal arrives or a component fails, then closes
// everything.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	for _, run := range []func(context.Context, context.CancelFunc){
		app.startGRPCServer,
		app.startHTTPServer,
		app.startListener,
	} {
		wg.Add(1)
		go func(run func(context.Context, context.CancelFunc)) {
			defer wg.Done()
			run(ctx, cancelFunc)
		}(run)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.janitor(ctx)
	}()

	wg.Wait()
	app.Close()
	app.logger.Info(context.Background(), "Stopped")
}

// Close releases the database, the bus and the session backend.
func (app *App) Close() {
	if app.listener != nil {
		_ = app.listener.Close()
	}
	if app.subscriber != nil {
		_ = app.subscriber.Close()
	}
	if app.publisher != nil {
		_ = app.publisher.Close()
	}
	if rs, ok := app.store.(*session.RedisStore); ok {
		_ = rs.Close()
	}
	if app.db != nil {
		_ = app.db.Close()
	}
}
