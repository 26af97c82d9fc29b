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
	"github.com/segmentio/kafka-go"
	"github.com/spf13/viper"
	"github.com/wyfcoding/investtrack/internal/backtest/application"
	"github.com/wyfcoding/investtrack/internal/backtest/domain"
	"github.com/wyfcoding/investtrack/internal/backtest/infrastructure/client"
	"github.com/wyfcoding/investtrack/internal/backtest/infrastructure/persistence/mysql"
	"github.com/wyfcoding/investtrack/internal/backtest/interfaces/consumer"
	backtest_http "github.com/wyfcoding/investtrack/internal/backtest/interfaces/http"
	strategydomain "github.com/wyfcoding/investtrack/internal/strategy/domain"
	"github.com/wyfcoding/investtrack/pkg/middleware"
	"github.com/wyfcoding/pkg/logging"
	"golang.org/x/sync/errgroup"
	gorm_mysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/backtest/config.toml", "path to config file")
	flag.Parse()

	// 1. Config
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Sprintf("read config failed: %v", err))
	}

	// 2. Logger
	logger := logging.NewLogger("backtest", "main", viper.GetString("log.level"))
	slog.SetDefault(logger.Logger)

	// 3. Database
	dsn := viper.GetString("database.source")
	db, err := gorm.Open(gorm_mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		panic(fmt.Sprintf("connect db failed: %v", err))
	}
	if err := db.AutoMigrate(&domain.Backtest{}, &domain.BacktestTrade{}, &client.MarketBar{}); err != nil {
		panic(fmt.Sprintf("migrate db failed: %v", err))
	}

	// 4. Infrastructure
	repo := mysql.NewBacktestRepository(db)
	strategies := client.NewGormStrategyReader(db)
	marketData := client.NewGormMarketDataReader(db)

	// 5. Application
	appService := application.NewBacktestApplicationService(
		domain.NewEngine(), repo, strategies, marketData, nil, logger.Logger)

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
	backtest_http.NewBacktestHandler(appService).RegisterRoutes(&r.RouterGroup)

	// 7. Start
	g, ctx := errgroup.WithContext(context.Background())

	httpPort := viper.GetString("server.http_port")
	if httpPort == "" {
		httpPort = "8082"
	}
	server := &http.Server{Addr: fmt.Sprintf(":%s", httpPort), Handler: r}
	g.Go(func() error {
		slog.Info("HTTP server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	// 策略事件消费：策略删除后级联清理回测记录
	if brokers := viper.GetStringSlice("kafka.brokers"); len(brokers) > 0 {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			GroupID:     "backtest-strategy-events",
			GroupTopics: []string{strategydomain.StrategyDeletedEventType},
		})
		handler := consumer.NewStrategyEventHandler(appService, logger.Logger)
		g.Go(func() error {
			defer reader.Close()
			return handler.Run(ctx, reader)
		})
	}

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
