package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/markitapp/markit/internal/config"
	"github.com/markitapp/markit/internal/feed"
	"github.com/markitapp/markit/internal/httpserver"
	"github.com/markitapp/markit/internal/httpserver/deps"
	"github.com/markitapp/markit/internal/logger"
	"github.com/markitapp/markit/internal/overlay"
	"github.com/markitapp/markit/internal/redis"
	"github.com/markitapp/markit/internal/scheduler"
	"github.com/markitapp/markit/internal/session"
	redisstore "github.com/markitapp/markit/internal/store/redis"
	"github.com/markitapp/markit/internal/version"
)

type App struct {
	cfg          *config.Config
	logger       logger.Logger
	server       *httpserver.Server
	redisClient  *goredis.Client
	sessions     *session.Manager
	reaper       *scheduler.SessionReaper
	importRunner *scheduler.ImportRunner
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Initialize Redis early - fail fast if unavailable
	loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
	redisClient, err := redis.New(redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("Redis initialized successfully")

	// Record store and change feed share the Redis connection.
	recordStore := redisstore.NewStore(redisClient, loggerClient)
	changeFeed := feed.NewRedisFeed(redisClient, loggerClient)

	// Favorite overlay files live on local disk, one per owner.
	overlays, err := overlay.NewStore(cfg.OverlayDir)
	if err != nil {
		loggerClient.Errorf("Failed to initialize overlay store: %v", err)
		os.Exit(1)
	}

	// Per-user session engines.
	sessions := session.NewManager(recordStore, changeFeed, overlays, loggerClient)

	// Initialize session reaper
	reaper := scheduler.NewSessionReaper(
		sessions,
		loggerClient,
		cfg.ReapInterval,
		cfg.SessionTTL,
	)

	// Initialize import runner (if an import file is configured)
	var importRunner *scheduler.ImportRunner
	var importTrigger chan struct{}
	if cfg.ImportFile != "" {
		loggerClient.Info("import file configured, initializing import runner",
			logger.String("file", cfg.ImportFile),
			logger.String("owner_id", cfg.ImportOwner))
		importTrigger = make(chan struct{}, 1)
		importRunner = scheduler.NewImportRunner(
			cfg.ImportFile,
			cfg.ImportOwner,
			recordStore,
			loggerClient,
			cfg.ImportInterval,
			importTrigger,
		)
	} else {
		loggerClient.Info("import file not configured, import disabled")
	}

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:        loggerClient,
		StartTime:     time.Now(),
		Version:       version.Version,
		Commit:        version.Commit,
		BuildDate:     version.BuildDate,
		GoVersion:     version.GoVersion,
		TimeNow:       time.Now,
		JWTSecret:     []byte(cfg.JWTSecret),
		TrustProxy:    cfg.TrustProxy,
		StreamOrigins: cfg.CORSOrigins,
		Sessions:      sessions,
		RedisClient:   redisClient,
		ImportTrigger: importTrigger,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:          cfg,
		logger:       loggerClient,
		server:       server,
		redisClient:  redisClient,
		sessions:     sessions,
		reaper:       reaper,
		importRunner: importRunner,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Markit v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Markit %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start session reaper
	if err := a.reaper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session reaper: %w", err)
	}
	a.logger.Info("session reaper started",
		logger.Duration("interval", a.cfg.ReapInterval),
		logger.Duration("ttl", a.cfg.SessionTTL))

	// Start import runner (if enabled)
	if a.importRunner != nil {
		if err := a.importRunner.Start(ctx); err != nil {
			return fmt.Errorf("failed to start import runner: %w", err)
		}
		a.logger.Info("import runner started",
			logger.Duration("interval", a.cfg.ImportInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	// Stop background jobs
	a.reaper.Stop()
	if a.importRunner != nil {
		a.importRunner.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	// Tear down sessions after the server stops accepting requests.
	a.sessions.Close()

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ Markit stopped cleanly")
	return nil
}
