package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-class-reservation/internal/api"
	"github.com/sanosuguru/go-class-reservation/internal/api/handler"
	"github.com/sanosuguru/go-class-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-class-reservation/internal/application"
	"github.com/sanosuguru/go-class-reservation/internal/config"
	"github.com/sanosuguru/go-class-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-class-reservation/internal/domain/schedule"
	"github.com/sanosuguru/go-class-reservation/internal/domain/session"
	"github.com/sanosuguru/go-class-reservation/internal/domain/transaction"
	"github.com/sanosuguru/go-class-reservation/internal/infrastructure/memory"
	"github.com/sanosuguru/go-class-reservation/internal/infrastructure/postgres"
	"github.com/sanosuguru/go-class-reservation/internal/infrastructure/rabbitmq"
	redisinfra "github.com/sanosuguru/go-class-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-class-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-class-reservation/internal/pkg/metrics"
	"github.com/sanosuguru/go-class-reservation/internal/worker"
)

// repositories はストアの実装に依存しないリポジトリの組
type repositories struct {
	reservations reservation.Repository
	schedules    schedule.Repository
	balances     session.Repository
	ledger       session.LedgerRepository
}

func main() {
	cfg := config.Load()

	logger.Init(cfg.App.Env, cfg.App.LogLevel)
	defer logger.Sync()

	m := metrics.Init()

	var healthChecks []handler.HealthCheck

	// ストア
	var repos repositories
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		store := memory.NewStore()
		repos = repositories{store.Reservations(), store.Schedules(), store.Balances(), store.Ledger()}
		logger.Warn("インメモリストアで起動します。再起動でデータは失われます")
	default:
		db, err := postgres.NewConnection(&cfg.Database)
		if err != nil {
			logger.Fatal("データベース接続失敗", zap.Error(err))
		}
		defer db.Close()
		if err := postgres.RunMigrations(db.DB, cfg.Store.MigrationsPath); err != nil {
			logger.Fatal("マイグレーション失敗", zap.Error(err))
		}
		repos = repositories{
			postgres.NewReservationRepository(db),
			postgres.NewScheduleRepository(db),
			postgres.NewBalanceRepository(db),
			postgres.NewLedgerRepository(db),
		}
		healthChecks = append(healthChecks, handler.HealthCheck{
			Name:  "postgres",
			Check: func(ctx context.Context) error { return postgres.Ping(ctx, db) },
		})
		logDBStats(db)
	}

	// Redis はロックとキャッシュに使う。接続できなくても起動は続ける
	var (
		lockManager redisinfra.LockManagerInterface
		cache       redisinfra.ScheduleCacheInterface
		invalidators application.Invalidators
	)
	if cfg.Redis.Enabled {
		rc, err := redisinfra.NewClient(&redisinfra.Config{
			URL: cfg.Redis.URL, Host: cfg.Redis.Host, Port: cfg.Redis.Port,
			Password: cfg.Redis.Password, DB: cfg.Redis.DB,
		})
		if err != nil {
			logger.Warn("Redisに接続できません。ロックとキャッシュなしで起動します", zap.Error(err))
		} else {
			defer rc.Close()
			lockManager = redisinfra.NewLockManager(rc)
			scheduleCache := redisinfra.NewScheduleCache(rc)
			cache = scheduleCache
			invalidators = append(invalidators, scheduleCache)
			healthChecks = append(healthChecks, redisHealthCheck(rc))
		}
	}

	if cfg.AMQP.URL != "" {
		publisher, err := rabbitmq.NewAvailabilityPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			logger.Warn("RabbitMQに接続できません。空き状況の通知は送信しません", zap.Error(err))
		} else {
			defer publisher.Close()
			invalidators = append(invalidators, publisher)
		}
	}

	// Redis がない場合も予約・期限切れ処理・残席再計算は開催枠単位で直列化する
	if lockManager == nil {
		lockManager = redisinfra.NewLocalLockManager()
		if cfg.Store.Driver != config.StoreDriverMemory {
			logger.Warn("開催枠のロックはこのプロセス内でのみ有効です。複数インスタンスで運用する場合はRedisを有効にしてください")
		}
	}

	// サービス
	txManager := transaction.NewManager()
	oracle := application.NewScheduleAvailability(repos.schedules, repos.balances)

	opts := []application.ServiceOption{
		application.WithInvalidator(invalidators),
		application.WithMetrics(m),
		application.WithPendingTTL(cfg.Booking.PendingTTL),
		application.WithLockRetry(cfg.Booking.LockTTL, cfg.Booking.LockRetries, cfg.Booking.LockRetryWait),
		application.WithLockManager(lockManager),
	}
	reservationService := application.NewReservationService(txManager, repos.reservations, repos.schedules,
		repos.balances, repos.ledger, oracle, opts...)
	scheduleService := application.NewScheduleService(repos.schedules, cache)
	sessionService := application.NewSessionService(txManager, repos.balances, repos.ledger)
	reconcileService := application.NewReconcileService(repos.schedules, repos.reservations, invalidators, lockManager, m)

	// バックグラウンドジョブ
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := worker.NewExpirationSweeper(reservationService, cfg.Worker.SweepInterval)
	go sweeper.Start(ctx)

	reconciler := worker.NewSeatReconciler(reconcileService, cfg.Worker.ReconcileSchedule)
	if err := reconciler.Start(); err != nil {
		logger.Fatal("残席再計算ジョブの登録失敗", zap.Error(err))
	}

	// HTTP
	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	middleware.SetupMiddleware(e, m)

	handlers := &handler.Handlers{
		Health:       handler.NewHealthHandler(healthChecks...),
		Reservations: handler.NewReservationHandler(reservationService),
		Schedules:    handler.NewScheduleHandler(scheduleService),
		Sessions:     handler.NewSessionHandler(sessionService),
		Admin:        handler.NewAdminHandler(reservationService, scheduleService, sessionService, reconcileService),
	}
	handlers.Register(e)

	if cfg.Metrics.IsEnabled() {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), middleware.MetricsBasicAuth(cfg.Metrics))
	} else {
		logger.Warn("METRICS_USER/METRICS_PASSWORD が未設定のため /metrics は公開しません")
	}

	go func() {
		logger.Info("サーバー起動", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Store.Driver))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています")

	sweeper.Stop()
	<-reconciler.Stop().Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("サーバーシャットダウンエラー", zap.Error(err))
		return
	}

	logger.Info("サーバーが正常にシャットダウンしました")
}

func redisHealthCheck(rc *goredis.Client) handler.HealthCheck {
	return handler.HealthCheck{
		Name:  "redis",
		Check: func(ctx context.Context) error { return redisinfra.Ping(ctx, rc) },
	}
}

func logDBStats(db *sqlx.DB) {
	stats := db.Stats()
	logger.Debug("データベース接続",
		zap.Int("max_open", stats.MaxOpenConnections),
		zap.Int("open", stats.OpenConnections),
	)
}
