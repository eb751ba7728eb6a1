package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/card-service/internal/config"
	"github.com/phrazzld/card-service/internal/events"
	"github.com/phrazzld/card-service/internal/gateway"
	"github.com/phrazzld/card-service/internal/platform/postgres"
	"github.com/phrazzld/card-service/internal/service"
	"github.com/phrazzld/card-service/internal/store"
	"github.com/phrazzld/card-service/internal/task"
	"github.com/redis/go-redis/v9"
)

// streamMaxLen bounds each Redis stream the service writes to.
const streamMaxLen = 10000

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	redis  *redis.Client

	// Stores
	cardStore store.CardStore
	sagaStore store.SagaStore

	// Remote ledgers
	breakers     *gateway.BreakerRegistry
	accounts     *gateway.AccountClient
	transactions *gateway.TransactionClient

	// Service interfaces
	cardService    service.CardService
	paymentService service.PaymentService

	// Event system
	emitter   events.EventEmitter
	publisher *events.AsyncPublisher
	router    *events.Router
	consumer  *events.RedisStreamConsumer

	// Post-commit saga work
	taskQueue  *task.TaskQueue
	workerPool *task.WorkerPool
	sweeper    *task.SagaSweeper
}

// newApplication creates a new application instance with all dependencies initialized.
// Background workers are not started until Run.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	app.cardStore = postgres.NewPostgresCardStore(db, logger)
	app.sagaStore = postgres.NewPostgresSagaStore(db, logger)

	app.setupGateway()

	if err := app.setupEvents(ctx); err != nil {
		return nil, err
	}

	app.taskQueue = task.NewTaskQueue(cfg.Saga.QueueSize, logger)
	taskFactory := task.NewPostCommitTaskFactory(
		app.sagaStore,
		app.transactions,
		app.emitter,
		cfg.Events.OrchestratorTopic,
		logger,
	)

	var err error
	app.cardService, err = service.NewCardService(
		app.cardStore,
		app.accounts,
		app.transactions,
		app.publisher,
		service.CardSettings{
			BIN:                 cfg.Card.BIN,
			CreditValidityYears: cfg.Card.CreditValidityYears,
			DebitValidityYears:  cfg.Card.DebitValidityYears,
			NumberRetries:       cfg.Card.NumberRetries,
			BalanceTopic:        cfg.Events.BalanceTopic,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create card service: %w", err)
	}

	app.paymentService, err = service.NewPaymentService(
		app.cardStore,
		app.sagaStore,
		app.accounts,
		taskFactory,
		app.taskQueue,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment service: %w", err)
	}

	app.workerPool = task.NewWorkerPool(app.taskQueue, task.WorkerPoolConfig{
		WorkerCount: cfg.Saga.WorkerCount,
	}, logger)
	app.workerPool.SetErrorHandler(func(t task.Task, err error) {
		logger.Warn("post-commit task failed; the sweeper will retry it",
			"task_id", t.ID(),
			"task_type", t.Type(),
			"error", err)
	})

	app.sweeper = task.NewSagaSweeper(app.sagaStore, taskFactory, app.taskQueue, task.SagaSweeperConfig{
		StuckAge: time.Duration(cfg.Saga.StuckAgeMinutes) * time.Minute,
		Interval: time.Duration(cfg.Saga.SweepIntervalMinutes) * time.Minute,
	}, logger)

	app.router.Handle(cfg.Events.ResultTopic, events.NewOrchestratorResultHandler(logger))
	app.router.Handle(cfg.Events.BalanceTriggerTopic, events.NewBalanceTriggerHandler(app.cardService, logger))

	if app.redis != nil {
		app.consumer = events.NewRedisStreamConsumer(app.redis, events.ConsumerConfig{
			Group:    cfg.Events.Group,
			Consumer: cfg.Events.Consumer,
			Topics:   app.router.Topics(),
			Block:    time.Duration(cfg.Events.BlockMS) * time.Millisecond,
		}, app.router, logger)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// setupGateway builds the breaker-guarded clients for the account and
// transaction ledgers.
func (app *application) setupGateway() {
	cfg := app.config
	app.breakers = gateway.NewBreakerRegistry(gateway.BreakerSettings{
		MaxRequests:      cfg.Breaker.MaxRequests,
		Interval:         time.Duration(cfg.Breaker.IntervalSeconds) * time.Second,
		OpenTimeout:      time.Duration(cfg.Breaker.OpenTimeoutSeconds) * time.Second,
		FailureThreshold: cfg.Breaker.FailureThreshold,
	}, app.logger)

	gw := gateway.New(gateway.NewHTTPClient(cfg.Services.Timeout()), app.breakers, app.logger)
	app.accounts = gateway.NewAccountClient(gw, cfg.Services.AccountURL)
	app.transactions = gateway.NewTransactionClient(gw, cfg.Services.TransactionURL)
}

// setupEvents selects the event channel. The memory driver dispatches
// published events straight to the router and needs no Redis.
func (app *application) setupEvents(ctx context.Context) error {
	app.router = events.NewRouter(app.logger)

	switch app.config.Events.Driver {
	case "redis":
		client, err := setupRedis(ctx, app.config.Redis, app.logger)
		if err != nil {
			return err
		}
		app.redis = client
		app.emitter = events.NewRedisStreamPublisher(client, streamMaxLen, app.logger)
	default:
		emitter := events.NewInMemoryEventEmitter(app.logger)
		emitter.RegisterHandler(app.router)
		app.emitter = emitter
	}

	app.publisher = events.NewAsyncPublisher(app.emitter, app.logger)
	return nil
}

// Run starts the background workers and the HTTP server, and blocks until
// the server shuts down.
func (app *application) Run(ctx context.Context) error {
	if err := app.startBackground(ctx); err != nil {
		app.cleanup()
		return err
	}

	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// startBackground launches the worker pool, the saga sweeper and the
// stream consumer.
func (app *application) startBackground(ctx context.Context) error {
	app.workerPool.Start()
	app.sweeper.Start()

	if app.consumer != nil {
		if err := app.consumer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start stream consumer: %w", err)
		}
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
// Queued post-commit tasks get the shutdown timeout to drain; anything left
// is picked up by the sweeper on the next start.
func (app *application) cleanup() {
	if app.consumer != nil {
		app.consumer.Stop()
	}
	if app.sweeper != nil {
		app.sweeper.Stop()
	}

	if app.taskQueue != nil && app.workerPool != nil {
		app.taskQueue.Close()
		app.drainWorkers(time.Duration(app.config.Server.ShutdownTimeoutSeconds) * time.Second)
	}

	if app.publisher != nil {
		app.publisher.Wait()
	}

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("Error closing redis connection", "error", err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}

func (app *application) drainWorkers(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		app.workerPool.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		app.logger.Warn("post-commit tasks did not drain in time; cancelling",
			"timeout", timeout)
		app.workerPool.Stop()
	}
}
