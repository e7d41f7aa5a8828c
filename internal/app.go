package internal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"webshare-api/config"
	"webshare-api/internal/application/ports"
	"webshare-api/internal/application/services"
	"webshare-api/internal/infrastructure/blob/minio"
	"webshare-api/internal/infrastructure/blob/s3"
	mongodb "webshare-api/internal/infrastructure/db/mongo"
	mongoShare "webshare-api/internal/infrastructure/db/mongo/share"
	"webshare-api/internal/infrastructure/db/postgres"
	"webshare-api/internal/infrastructure/db/postgres/credential"
	"webshare-api/internal/infrastructure/metrics"
	"webshare-api/internal/infrastructure/mq"
	"webshare-api/internal/infrastructure/upload"
	"webshare-api/internal/interface/api/rest"
	"webshare-api/internal/interface/api/rest/middleware"
	"webshare-api/pkg/rmqconsumer"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	logger     *zap.Logger
	cfg        config.Config
	db         *pgxpool.Pool
	mongo      *mongo.Client
	blob       ports.BlobStore
	receiver   ports.UploadReceiver
	httpSrv    *http.Server
	router     *gin.Engine
	mCounter   *prometheus.CounterVec
	mq         ports.RabbitMQ
	mqConsumer ports.RMQConsumer
}

// NewApp checks every dependency before the listener is opened:
// the credential store pool, blob store keys, the document store and,
// when configured, the broker. Any failure aborts startup.
func NewApp(ctx context.Context) (*App, error) {
	// logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("cannot initialize zap logger: %v", err)
	}

	// config
	if err = godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("error loading .env file", zap.Error(err))
	}
	cfg := config.Load()
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	a := &App{
		logger:   logger,
		cfg:      cfg,
		mCounter: metrics.NewCounter(),
	}

	// router
	switch cfg.App.Env {
	case gin.ReleaseMode, "prod", "production":
		gin.SetMode(gin.ReleaseMode)
	case gin.TestMode:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}
	a.router = gin.New()
	a.router.Use(gin.Recovery())
	a.router.Use(middleware.RequestLogGin(logger, a.mCounter))

	// httpServer
	a.httpSrv = &http.Server{
		Addr:              cfg.App.Host + ":" + cfg.App.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err = a.connect(ctx); err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func (a *App) connect(ctx context.Context) error {
	var err error

	// credential store
	dbDsn, err := a.cfg.DBDSN()
	if err != nil {
		return fmt.Errorf("DB config: %w", err)
	}
	if a.db, err = postgres.New(ctx, a.logger, dbDsn); err != nil {
		return fmt.Errorf("connect to credential store: %w", err)
	}

	// blob store
	switch a.cfg.Blob.Driver {
	case config.BlobDriverMinio:
		a.blob, err = minio.New(a.logger, a.cfg.Blob)
	default:
		a.blob, err = s3.New(ctx, a.logger, a.cfg.Blob)
	}
	if err != nil {
		return fmt.Errorf("configure blob store: %w", err)
	}

	// document store
	if a.mongo, err = mongodb.New(ctx, a.logger, a.cfg.Mongo); err != nil {
		return fmt.Errorf("connect to document store: %w", err)
	}

	// temp uploads
	if a.receiver, err = upload.New(a.cfg.Upload.TmpDir, a.cfg.Upload.MaxBytes, a.logger); err != nil {
		return err
	}

	if !a.cfg.MQEnabled() {
		a.logger.Info("rabbitMQ is not configured, share events are disabled")
		return nil
	}

	// rabbitMQ
	rabbitDsn, err := a.cfg.AMQPDSN()
	if err != nil {
		return fmt.Errorf("RabbitMQ config: %w", err)
	}
	rbMQ := mq.New(a.cfg.MQ, a.logger)
	if err = rbMQ.Connect(ctx, rabbitDsn); err != nil {
		return fmt.Errorf("connect to rabbitMQ: %w", err)
	}
	a.mq = rbMQ
	if err = rbMQ.Init(); err != nil {
		return fmt.Errorf("init rabbitMQ: %w", err)
	}

	// rmqConsumer
	rmqConsumer := rmqconsumer.New(a.cfg.MQ, a.logger, rbMQ.GetConn())
	if err = rmqConsumer.Connect(rabbitDsn); err != nil {
		return fmt.Errorf("connect rabbitMQ consumer: %w", err)
	}
	if err = rmqConsumer.Init(); err != nil {
		return fmt.Errorf("init rabbitMQ consumer: %w", err)
	}
	a.mqConsumer = rmqConsumer

	return nil
}

func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.mongo.Disconnect(ctx); err != nil {
			a.logger.Warn("mongo disconnect error", zap.Error(err))
		}
		cancel()
	}
	if a.mq != nil && a.mq.GetConn() != nil {
		_ = a.mq.GetConn().Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// Run serves HTTP and the optional broker workers under one context
// until SIGINT/SIGTERM, then shuts the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	// context with os signals cancel chan
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("starting "+a.cfg.App.Name, zap.String("addr", a.httpSrv.Addr))
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server "+a.cfg.App.Name+" error: %w", err)
		}

		return nil
	})

	if a.mq != nil {
		g.Go(func() error {
			a.mq.PublisherWorker(ctx)
			return nil
		})
	}

	if a.mqConsumer != nil {
		g.Go(func() error {
			a.mqConsumer.DeliveryWorker(ctx)
			return nil
		})
	}

	<-ctx.Done()

	a.logger.Info("shutting down " + a.cfg.App.Name + " gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := a.httpSrv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown "+a.cfg.App.Name+" error", zap.Error(err))
		return err
	}

	if err := g.Wait(); err != nil {
		a.logger.Error(a.cfg.App.Name+" returning an error", zap.Error(err))
		return err
	}

	a.logger.Info(a.cfg.App.Name + " gracefully stopped")

	return nil
}

func (a *App) InitControllers() {
	// repos
	credentialRepo := credential.NewRepository(a.db)
	shareRepo := mongoShare.NewRepository(a.mongo.Database(a.cfg.Mongo.DB), a.cfg.Mongo.Collection)

	// a nil interface, not a typed nil, keeps events off
	var events ports.EventPublisher
	if a.mq != nil {
		events = a.mq
	}

	// services
	authService := services.NewAuthService(credentialRepo, a.logger, a.mCounter, a.cfg.Timeouts.Stage)
	sharePipeline := services.NewSharePipeline(
		authService,
		a.blob,
		shareRepo,
		events,
		a.logger,
		a.mCounter,
		a.cfg.Timeouts.Stage,
	)

	// controllers
	rest.NewAuthController(a.router, a.logger, authService, a.mCounter)
	rest.NewShareController(a.router, a.logger, a.receiver, sharePipeline, a.cfg.Upload.MaxBytes)

	// ops
	a.router.GET(rest.RouteHealth, func(c *gin.Context) { c.Status(http.StatusOK) })
	a.router.GET(rest.RouteMetrics, gin.WrapH(promhttp.Handler()))
}

func (a *App) Logger() *zap.Logger { return a.logger }
