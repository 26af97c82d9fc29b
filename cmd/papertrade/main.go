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
	"github.com/wyfcoding/investtrack/internal/papertrade/application"
	"github.com/wyfcoding/investtrack/internal/papertrade/domain"
	ptcache "github.com/wyfcoding/investtrack/internal/papertrade/infrastructure/cache"
	"github.com/wyfcoding/investtrack/internal/papertrade/infrastructure/client"
	"github.com/wyfcoding/investtrack/internal/papertrade/infrastructure/messaging"
	"github.com/wyfcoding/investtrack/internal/papertrade/infrastructure/persistence/mysql"
	"github.com/wyfcoding/investtrack/internal/papertrade/interfaces/consumer"
	papertrade_http "github.com/wyfcoding/investtrack/internal/papertrade/interfaces/http"
	strategydomain "github.com/wyfcoding/investtrack/internal/strategy/domain"
	"github.com/wyfcoding/investtrack/pkg/cache"
	"github.com/wyfcoding/investtrack/pkg/middleware"
	"github.com/wyfcoding/pkg/logging"
	"golang.org/x/sync/errgroup"
	gorm_mysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/papertrade/config.toml", "path to config file")
	flag.Parse()

	// 1. Config
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Sprintf("read config failed: %v", err))
	}

	// 2. Logger
	logger := logging.NewLogger("papertrade", "main", viper.GetString("log.level"))
	slog.SetDefault(logger.Logger)

	// 3. Database
	dsn := viper.GetString("database.source")
	db, err := gorm.Open(gorm_mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		panic(fmt.Sprintf("connect db failed: %v", err))
	}
	if err := db.AutoMigrate(&domain.PaperTrade{}, &domain.PaperTradePosition{}, &messaging.OutboxMessage{}); err != nil {
		panic(fmt.Sprintf("migrate db failed: %v", err))
	}

	// 4. Infrastructure
	var statusCache application.StatusCache
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
		statusCache = ptcache.NewRedisStatusCache(redisCache)
	}

	var writer *kafka.Writer
	brokers := viper.GetStringSlice("kafka.brokers")
	if len(brokers) > 0 {
		writer = &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.LeastBytes{},
		}
		defer writer.Close()
	}

	repo := mysql.NewPaperTradeRepository(db)
	strategies := client.NewGormStrategyReader(db)
	publisher := messaging.NewOutboxEventPublisher(db, writer)

	// 5. Application
	appService := application.NewPaperTradeService(repo, strategies, publisher, statusCache, nil, logger.Logger)

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
	papertrade_http.NewPaperTradeHandler(appService).RegisterRoutes(&r.RouterGroup)

	// 7. Start
	g, ctx := errgroup.WithContext(context.Background())

	httpPort := viper.GetString("server.http_port")
	if httpPort == "" {
		httpPort = "8083"
	}
	server := &http.Server{Addr: fmt.Sprintf(":%s", httpPort), Handler: r}
	g.Go(func() error {
		slog.Info("HTTP server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	// 行情 tick 与策略删除事件消费
	if len(brokers) > 0 {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: "papertrade-events",
			GroupTopics: []string{
				consumer.MarketTickTopic,
				strategydomain.StrategyDeletedEventType,
			},
		})
		handler := consumer.NewTickHandler(appService, logger.Logger)
		g.Go(func() error {
			defer reader.Close()
			return handler.Run(ctx, reader)
		})
	}

	// Outbox 投递循环
	g.Go(func() error {
		deliver := time.NewTicker(2 * time.Second)
		cleanup := time.NewTicker(time.Hour)
		defer deliver.Stop()
		defer cleanup.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-deliver.C:
				if err := publisher.ProcessOutboxMessages(ctx, 100); err != nil {
					slog.Error("outbox delivery failed", "error", err)
				}
			case <-cleanup.C:
				if err := publisher.CleanupProcessedMessages(ctx, time.Now().Add(-24*time.Hour)); err != nil {
					slog.Error("outbox cleanup failed", "error", err)
				}
			}
		}
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
