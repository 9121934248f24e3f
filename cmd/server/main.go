package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"dcaservice/internal/cache"
	"dcaservice/internal/client/coingecko"
	"dcaservice/internal/client/llm"
	"dcaservice/internal/config"
	"dcaservice/internal/db"
	"dcaservice/internal/handler"
	"dcaservice/internal/ledger"
	"dcaservice/internal/logger"
	"dcaservice/internal/policy"
	gormrepository "dcaservice/internal/repository/gorm"
	"dcaservice/internal/scheduler"
	"dcaservice/internal/service"
	"dcaservice/internal/trend"

	_ "dcaservice/docs"
)

func main() {
	cfgPath := os.Getenv("DCA_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("DCA_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.Ping(dbConn); err != nil {
		// Refusing to start beats silently running with an empty schedule.
		logger.Fatal("db unreachable", zap.Error(err))
	}
	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	var trendCache *cache.RedisStore
	if cfg.Redis.Enabled {
		trendCache = cache.NewRedisStore(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := trendCache.Ping(pingCtx); err != nil {
			logger.Warn("redis unreachable, trend caching disabled", zap.Error(err))
			trendCache = nil
		}
		cancel()
		if trendCache != nil {
			defer trendCache.Close()
		}
	}

	store := gormrepository.New(dbConn.Gorm)

	pricesHTTP := &http.Client{Timeout: cfg.Pricing.Timeout}
	pricesClient := coingecko.NewClient(pricesHTTP, cfg.Pricing.BaseURL)
	llmClient := &llm.Client{
		BaseURL:    cfg.AI.BaseURL,
		APIKey:     cfg.AI.APIKey,
		Model:      cfg.AI.Model,
		HTTPClient: &http.Client{Timeout: cfg.AI.Timeout},
	}
	analyzer := &trend.Analyzer{
		Prices:      pricesClient,
		LLM:         llmClient,
		Cache:       trendCache,
		Logger:      logger,
		HistoryDays: cfg.Pricing.HistoryDays,
		CacheTTL:    cfg.Pricing.CacheTTL,
	}

	chainLedger := buildLedger(cfg.Chain, logger)
	logger.Info("ledger backend selected", zap.String("backend", chainLedger.Name()))

	calculator := &policy.Calculator{
		Trend:   analyzer,
		AssetID: cfg.Pricing.AssetID,
		Logger:  logger,
	}
	executor := &service.Executor{
		Repo:   store,
		Ledger: chainLedger,
		Policy: calculator,
		Logger: logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(executor, logger, ctx)
	if cfg.Scheduler.Enabled {
		if err := sched.Recover(ctx, store); err != nil {
			logger.Fatal("schedule recovery failed", zap.Error(err))
		}
		sched.Start()
		defer sched.Stop()
	} else {
		logger.Warn("scheduler disabled, plans will not fire")
	}

	planService := &service.PlanService{
		Repo:   store,
		Sched:  sched,
		Logger: logger,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(handler.RequireBearerMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	userHandler := &handler.UserHandler{Repo: store, Ledger: chainLedger, Logger: logger}
	userHandler.Register(engine)
	planHandler := &handler.PlanHandler{Service: planService}
	planHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func buildLedger(cfg config.ChainConfig, logger *zap.Logger) ledger.Ledger {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "gateway":
		if strings.TrimSpace(cfg.GatewayBaseURL) == "" {
			logger.Fatal("chain.gateway_base_url is required for the gateway backend")
		}
		return ledger.NewGateway(&http.Client{Timeout: cfg.Timeout}, cfg.GatewayBaseURL)
	case "", "dryrun":
		return &ledger.DryRun{Logger: logger}
	default:
		logger.Fatal("unknown chain backend", zap.String("backend", cfg.Backend))
		return nil
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
