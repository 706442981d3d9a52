package appServer

import (
	"context"
	"crypto/tls"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jsquare/astra-tickets/config"
	repository "github.com/jsquare/astra-tickets/internal/database/postgres"
	redisdb "github.com/jsquare/astra-tickets/internal/database/redis"
	"github.com/jsquare/astra-tickets/internal/service"
	"github.com/jsquare/astra-tickets/internal/transport"
	"github.com/jsquare/astra-tickets/internal/worker"

	"github.com/jsquare/astra-tickets/pkg/monitoring"
	"github.com/jsquare/astra-tickets/pkg/postgres"
	"github.com/jsquare/astra-tickets/pkg/queue"
	"github.com/jsquare/astra-tickets/pkg/redis"
	"github.com/jsquare/astra-tickets/pkg/scheduler"
	"github.com/jsquare/astra-tickets/pkg/telegram"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.Idle_timeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func NewServer(cfg *config.Config) {

	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)

	// Initialize database
	db, err := postgres.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run database migrations
	if err := postgres.RunMigrations(db); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	ticketRepo := repository.NewTicketRepository(db)
	eventRepo := repository.NewEventRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)

	// Initialize Telegram bot
	var telegramBot *telegram.Bot
	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" {
		telegramBot = telegram.NewBot(cfg.Telegram.BotToken, cfg.Telegram.AdminChatID)
		logrus.Info("Telegram bot initialized")
	} else {
		logrus.Warn("Telegram bot disabled, notifications will be skipped")
	}

	var (
		availabilityCache service.AvailabilityCache
		redisQueue        queue.Queue
		taskPublisher     service.TaskPublisher
		redisClient       *goredis.Client
	)

	queueConfig := queue.DefaultRedisQueueConfig()

	if cfg.Redis.Addr != "" {
		redisClient = redis.NewRedisClient(&cfg.Redis)
		defer redisClient.Close()

		cacheTTL := cfg.Worker.CacheTTL
		if cacheTTL <= 0 {
			cacheTTL = 5 * time.Minute
		}
		availabilityCache = redisdb.NewAvailabilityCache(redisClient, cacheTTL)

		queueConfig.Addr = cfg.Redis.Addr
		queueConfig.Password = cfg.Redis.Password
		queueConfig.DB = cfg.Redis.DB

		retryManager := queue.NewRetryManager(queueConfig.MaxRetries, queueConfig.BaseDelay)
		dlqHandler := queue.NewDefaultDLQHandler(redisClient, queueConfig.DLQ)

		redisQueue, err = queue.NewRedisQueue(queueConfig, retryManager, dlqHandler)
		if err != nil {
			logrus.Errorf("Failed to initialize Redis queue: %v. Continuing without queue...", err)
			redisQueue = nil
		} else {
			logrus.Info("Redis queue initialized")
			taskPublisher = service.NewQueueAdapter(redisQueue)
		}
	}

	// Purchase metrics are exported regardless of Redis; the queue
	// depth sampler only runs when a client is available
	metrics := monitoring.NewMonitor(redisClient, map[string]string{
		"main":       queueConfig.MainQueue,
		"processing": queueConfig.ProcessingQueue,
	})

	// Initialize services
	eventService := service.NewEventService(eventRepo, categoryRepo, availabilityCache)
	ticketService := service.NewTicketService(
		ticketRepo, eventRepo, categoryRepo,
		availabilityCache, taskPublisher, metrics,
		cfg.Ticket,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start queue consumer if available
	if redisQueue != nil {
		var notifier queue.Notifier
		if telegramBot != nil {
			notifier = telegramBot
		}
		taskHandler := queue.NewTaskHandler(notifier, eventService)

		go func() {
			if err := redisQueue.Subscribe(ctx, taskHandler.HandleTask); err != nil {
				logrus.Errorf("Queue subscriber error: %v", err)
			}
		}()
		logrus.Info("Queue subscriber started")

		defer func() {
			if err := redisQueue.Close(); err != nil {
				logrus.Errorf("Failed to close queue: %v", err)
			}
		}()
	}

	// Periodic sales report
	statsInterval := cfg.Stats.Interval
	if statsInterval <= 0 {
		statsInterval = 24 * time.Hour
	}
	reportScheduler := scheduler.NewScheduler()
	reportScheduler.AddJob(scheduler.Job{
		Name:     "stats_report",
		Interval: statsInterval,
		Fn:       ticketService.PublishStatsReport,
	})
	reportScheduler.Start()
	defer reportScheduler.Stop()

	// Availability cache refresh worker
	if availabilityCache != nil {
		refreshInterval := cfg.Worker.CacheRefreshInterval
		if refreshInterval <= 0 {
			refreshInterval = time.Minute
		}
		refreshWorker := worker.NewCacheRefreshWorker(eventService, refreshInterval)
		go refreshWorker.Start(ctx)
		logrus.Info("Cache refresh worker started")
	}

	// Initialize handlers
	eventHandler := transport.NewEventHandler(eventService)
	ticketHandler := transport.NewTicketHandler(ticketService)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, transport.InitRoutes(eventHandler, ticketHandler)); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.Print("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Print("App Shutting Down")

	if err := srv.Shutdown(context.Background()); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}
}
