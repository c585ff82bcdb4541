package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/gatehouse/internal/auth"
	"github.com/BradenHooton/gatehouse/internal/background"
	"github.com/BradenHooton/gatehouse/internal/config"
	"github.com/BradenHooton/gatehouse/internal/database"
	"github.com/BradenHooton/gatehouse/internal/handlers"
	"github.com/BradenHooton/gatehouse/internal/lockout"
	middlewareCustom "github.com/BradenHooton/gatehouse/internal/middleware"
	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/BradenHooton/gatehouse/internal/repositories"
	"github.com/BradenHooton/gatehouse/internal/routes"
	"github.com/BradenHooton/gatehouse/internal/services"
	pkgauth "github.com/BradenHooton/gatehouse/pkg/auth"
	pkghttp "github.com/BradenHooton/gatehouse/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := db.Migrate(ctx)
		cancel()
		if err != nil {
			logger.Error("failed to migrate database", slog.Any("error", err))
			os.Exit(1)
		}
	}

	healthChecks := map[string]handlers.HealthChecker{"database": db}

	// Lockout store: shared Redis when configured, process memory otherwise
	policy := lockout.Policy{
		Threshold: cfg.Lockout.Threshold,
		Window:    cfg.Lockout.Window,
		Duration:  cfg.Lockout.Duration,
	}

	var store lockout.Store
	var sweeper *background.Sweeper
	if cfg.Redis.Enabled() {
		rdb, err := database.NewRedis(cfg.Redis)
		if err != nil {
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer rdb.Close()

		store = lockout.NewRedisStore(rdb.Client, policy, cfg.Redis.KeyPrefix)
		healthChecks["redis"] = rdb
		logger.Info("using redis lockout store", slog.String("addr", cfg.Redis.Addr()))
	} else {
		memStore := lockout.NewMemoryStore(policy)
		store = memStore
		sweeper = background.NewSweeper(memStore, logger, cfg.Lockout.SweepInterval)
		logger.Info("using in-memory lockout store")
	}

	ipConfig, err := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)
	if err != nil {
		logger.Error("invalid trusted proxies", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	loginLogRepo := repositories.NewLoginLogRepository(db)

	// Initialize services
	loginLogService := services.NewLoginLogService(loginLogRepo, services.LoginLogConfig{
		WriteTimeout:   cfg.Audit.WriteTimeout,
		RetryQueueSize: cfg.Audit.RetryQueueSize,
		MaxRetryTime:   cfg.Audit.MaxRetryTime,
	}, logger)

	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Lockout.TimingDelayBaseMs,
		RandomDelayMs: cfg.Lockout.TimingDelayRandomMs,
	})

	verifier := services.NewCredentialVerifier(userRepo, auth.NewTOTPVerifier(), cfg.Lockout.DigestLength, logger)
	loginService := services.NewLoginService(store, verifier, userRepo, loginLogService, nil, timingDelay, logger)

	// Initialize handlers
	h := routes.Handlers{
		Auth:     handlers.NewAuthHandler(loginService, ipConfig, logger),
		LoginLog: handlers.NewLoginLogHandler(loginLogService, loginService, ipConfig, logger),
		Health:   handlers.NewHealthHandler(healthChecks),
	}

	// Bootstrap first user if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureBootstrapUser(ctx, userRepo, logger); err != nil {
		logger.Error("failed to ensure bootstrap user", slog.Any("error", err))
	}
	cancel()

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.SecureLogger(logger, cfg.Server.Env))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, h, routes.Options{
		LoginRateLimit: middlewareCustom.RateLimitConfig{
			RequestsPerMinute: cfg.Server.LoginRateLimit,
			IPConfig:          ipConfig,
		},
		AdminToken: cfg.Admin.Token,
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start lockout sweeper
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()

	if sweeper != nil {
		go sweeper.Start(sweepCtx)
	}

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	sweepCancel()
	if sweeper != nil {
		sweeper.Stop()
	}

	// Flush pending audit records before the pool closes
	loginLogService.Close()

	logger.Info("server stopped gracefully")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ensureBootstrapUser creates the first account if BOOTSTRAP_USER and BOOTSTRAP_PASSWORD are set
func ensureBootstrapUser(ctx context.Context, userRepo *repositories.UserRepository, logger *slog.Logger) error {
	userName := strings.TrimSpace(os.Getenv("BOOTSTRAP_USER"))
	password := os.Getenv("BOOTSTRAP_PASSWORD")

	if userName == "" || password == "" {
		logger.Info("no BOOTSTRAP_USER or BOOTSTRAP_PASSWORD set, skipping bootstrap user creation")
		return nil
	}

	_, err := userRepo.FindByUserName(ctx, userName)
	if err == nil {
		logger.Info("bootstrap user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if bootstrap user exists: %w", err)
	}

	hash, err := pkgauth.HashSecret(password)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap password: %w", err)
	}

	_, err = userRepo.Create(ctx, &models.User{
		UserName:     userName,
		NickName:     userName,
		Phone:        strings.TrimSpace(os.Getenv("BOOTSTRAP_PHONE")),
		PasswordHash: hash,
		OTPSecret:    os.Getenv("BOOTSTRAP_OTP_SECRET"),
		Status:       models.UserStatusEnabled,
	})
	if err != nil {
		return fmt.Errorf("failed to create bootstrap user: %w", err)
	}

	logger.Info("bootstrap user created")
	return nil
}
