package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/classtrack/classtrack-api/internal/handler"
	"github.com/classtrack/classtrack-api/internal/repository"
	"github.com/classtrack/classtrack-api/internal/service"
	"github.com/classtrack/classtrack-api/pkg/cache"
	"github.com/classtrack/classtrack-api/pkg/config"
	"github.com/classtrack/classtrack-api/pkg/database"
	"github.com/classtrack/classtrack-api/pkg/jobs"
	"github.com/classtrack/classtrack-api/pkg/logger"
	"github.com/classtrack/classtrack-api/pkg/realtime"
	"github.com/classtrack/classtrack-api/pkg/validation"
)

// @title ClassTrack API
// @version 1.0.0
// @description Live classroom occupancy, branch timetables and the class representative lobby.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The grid cache degrades to direct reads without Redis.
		logr.Warn("redis unavailable, grid cache disabled", zap.Error(err), zap.String("addr", cache.Addr(cfg.Redis)))
		cfg.Grid.CacheEnabled = false
	} else {
		defer redisClient.Close()
	}

	app := wire(cfg, db, redisClient, logr)
	defer app.broker.Close()

	if cfg.Realtime.Source == config.RealtimeSourcePostgres {
		listener, err := database.NewChangeListener(cfg.Database, cfg.Realtime, app.broker, logr)
		if err != nil {
			logr.Fatal("failed to start change listener", zap.Error(err))
		}
		defer listener.Close()
		go listener.Run(ctx)
	}

	app.syncQueue.Start(ctx)
	defer app.syncQueue.Stop()
	if cfg.Sync.Enabled {
		go app.scheduler.Run(ctx)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("realtime", cfg.Realtime.Source))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	// Open SSE streams end when the broker closes.
	app.broker.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

type application struct {
	router    *gin.Engine
	broker    *realtime.Broker
	scheduler *service.SyncScheduler
	syncQueue *jobs.Queue
}

func wire(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) *application {
	broker := realtime.NewBroker(32, logr)
	metrics := service.NewMetricsService(broker.Subscribers)

	// With a Postgres change feed the triggers publish, so services must not publish twice.
	var notifier realtime.Notifier = broker
	if cfg.Realtime.Source == config.RealtimeSourcePostgres {
		notifier = realtime.NopNotifier{}
	}

	profiles := repository.NewProfileRepository(db)
	rooms := repository.NewRoomRepository(db)
	windows := repository.NewOccupancyRepository(db)
	slots := repository.NewTimetableRepository(db)
	messages := repository.NewChatRepository(db)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, "classtrack", logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Grid.CacheTTL, logr, cfg.Grid.CacheEnabled && cacheRepo != nil)

	validate := validation.New()

	authSvc := service.NewAuthService(profiles, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	occupancySvc := service.NewOccupancyService(service.OccupancyServiceParams{
		Rooms:     rooms,
		Windows:   windows,
		Tx:        db,
		Cache:     cacheSvc,
		Notifier:  notifier,
		Metrics:   metrics,
		Validator: validate,
		Logger:    logr,
	})
	timetableSvc := service.NewTimetableService(service.TimetableServiceParams{
		Slots:       slots,
		Rooms:       rooms,
		Occupancy:   occupancySvc,
		Notifier:    notifier,
		Metrics:     metrics,
		Validator:   validate,
		Logger:      logr,
		Location:    cfg.Location(),
		Parallelism: cfg.Sync.Workers,
	})
	importSvc := service.NewImportService(service.ImportServiceParams{
		Rooms:      rooms,
		Slots:      slots,
		Tx:         db,
		Notifier:   notifier,
		Metrics:    metrics,
		Logger:     logr,
		PreviewTTL: cfg.Import.PreviewTTL,
		MaxBytes:   cfg.Import.MaxFileSizeBytes,
	})
	chatSvc := service.NewChatService(service.ChatServiceParams{
		Messages:      messages,
		Profiles:      profiles,
		Notifier:      notifier,
		Metrics:       metrics,
		Validator:     validate,
		Logger:        logr,
		HistoryLimit:  cfg.Chat.HistoryLimit,
		RatePerMinute: cfg.Chat.RatePerMinute,
		Burst:         cfg.Chat.Burst,
	})
	gridSvc := service.NewGridService(rooms, windows, cacheSvc, cfg.Grid.CacheTTL, logr)
	exportSvc := service.NewExportService(slots, rooms, logr)

	scheduler, err := service.NewSyncScheduler(timetableSvc, nil, cfg.Sync.At, cfg.Location(), logr)
	if err != nil {
		logr.Fatal("invalid sync schedule", zap.String("sync_at", cfg.Sync.At), zap.Error(err))
	}
	syncQueue := jobs.NewQueue("timetable-sync", scheduler.Handle, jobs.QueueConfig{
		Workers:    cfg.Sync.Workers,
		BufferSize: 16,
		MaxRetries: cfg.Sync.Retries,
		RetryDelay: 30 * time.Second,
		OnExhausted: func(job jobs.Job, err error) {
			logr.Error("timetable sync gave up", zap.String("job_id", job.ID), zap.Error(err))
		},
		Logger: logr,
	})
	scheduler.SetQueue(syncQueue)

	checks := map[string]handler.ReadinessCheck{
		"database": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	router := newRouter(cfg, logr, routes{
		metrics:   metrics,
		tokens:    authSvc,
		audit:     profiles,
		auth:      handler.NewAuthHandler(authSvc),
		rooms:     handler.NewRoomHandler(gridSvc, occupancySvc),
		timetable: handler.NewTimetableHandler(timetableSvc, importSvc, exportSvc),
		chat:      handler.NewChatHandler(chatSvc),
		events:    handler.NewEventsHandler(broker, cfg.Realtime.KeepAliveInterval),
		probes:    handler.NewMetricsHandler(metrics, checks),
	})

	return &application{router: router, broker: broker, scheduler: scheduler, syncQueue: syncQueue}
}
