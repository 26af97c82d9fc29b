package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/wyfcoding/investtrack/internal/risk/application"
	"github.com/wyfcoding/investtrack/internal/risk/domain"
	riskcache "github.com/wyfcoding/investtrack/internal/risk/infrastructure/cache"
	"github.com/wyfcoding/investtrack/internal/risk/infrastructure/client"
	risk_http "github.com/wyfcoding/investtrack/internal/risk/interfaces/http"
	"github.com/wyfcoding/investtrack/pkg/cache"
	"github.com/wyfcoding/investtrack/pkg/middleware"
	"github.com/wyfcoding/pkg/logging"
	"golang.org/x/sync/errgroup"
	gorm_mysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/risk/config.toml", "path to config file")
	flag.Parse()

	// 1. Config
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Sprintf("read config failed: %v", err))
	}

	// 2. Logger
	logger := logging.NewLogger("risk", "main", viper.GetString("log.level"))
	slog.SetDefault(logger.Logger)

	// 3. Database
	dsn := viper.GetString("database.source")
	db, err := gorm.Open(gorm_mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		panic(fmt.Sprintf("connect db failed: %v", err))
	}
	if err := db.AutoMigrate(&client.TickerFundamental{}); err != nil {
		panic(fmt.Sprintf("migrate db failed: %v", err))
	}

	// 4. Infrastructure
	var reportCache application.ReportCache
	if viper.GetString("redis.host") != "" {
		redisCache, err := cache.New(cache.Config{
			Host:        viper.GetString("redis.host"),
			Port:        viper.GetInt("redis.port"),
			Password:    viper.GetString("redis.password"),
			DB:          viper.GetInt("redis.db"),
			MaxPoolSize: viper.GetInt("redis.max_pool_size"),
		})
		if err != nil {
			panic(fmt.Sprintf("connect redis failed: %v", err))
		}
		defer redisCache.Close()
		reportCache = riskcache.NewRedisReportCache(redisCache)
	}

	marketData := client.NewGormMarketDataReader(db, viper.GetString("risk.period"))
	fundamentals := client.NewGormFundamentalsProvider(db)

	cfg := domain.DefaultConfig()
	if v := viper.GetFloat64("risk.confidence_level"); v > 0 {
		cfg.ConfidenceLevel = v
	}
	if v := viper.GetInt("risk.horizon_days"); v > 0 {
		cfg.HorizonDays = v
	}
	if v := viper.GetInt("risk.lookback_days"); v > 0 {
		cfg.LookbackDays = v
	}
	if v := viper.GetFloat64("risk.concentration_threshold"); v > 0 {
		cfg.ConcentrationThreshold = v
	}

	// 5. Application
	appService := application.NewRiskService(
		cfg, marketData, fundamentals, reportCache,
		viper.GetString("risk.benchmark_ticker"), logger.Logger)

	// 6. Interfaces
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.GinLoggingMiddleware(), middleware.GinRecoveryMiddleware())

	sys := r.Group("/sys")
	{
		sys.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "UP"}) })
		sys.GET("/ready", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "READY"}) })
	}
	pp := r.Group("/debug/pprof")
	{
		pp.GET("/", gin.WrapF(pprof.Index))
		pp.GET("/cmdline", gin.WrapF(pprof.Cmdline))
		pp.GET("/profile", gin.WrapF(pprof.Profile))
		pp.GET("/symbol", gin.WrapF(pprof.Symbol))
		pp.GET("/trace", gin.WrapF(pprof.Trace))
	}
	risk_http.NewRiskHandler(appService).RegisterRoutes(&r.RouterGroup)

	// 7. Start
	g, ctx := errgroup.WithContext(context.Background())

	httpPort := viper.GetString("server.http_port")
	if httpPort == "" {
		httpPort = "8084"
	}
	server := &http.Server{Addr: fmt.Sprintf(":%s", httpPort), Handler: r}
	g.Go(func() error {
		slog.Info("HTTP server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	// 8. Graceful Shutdown
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			slog.Info("shutting down server...")
		case <-ctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited with error", "error", err)
	}
}
