// Package application 风险分析应用服务：
// 拉取行情与基本面，调用分析器组装尽力而为的风险报告。
// 各指标并行计算，单项数据不足只影响该项的 error 字段。
package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/wyfcoding/investtrack/internal/risk/domain"
	"github.com/wyfcoding/pkg/logging"
	"golang.org/x/sync/errgroup"
)

// MarketDataReader 历史价格序列读取端口
type MarketDataReader interface {
	GetPriceSeries(ctx context.Context, ticker string, lookbackDays int) (domain.PriceSeries, error)
}

// FundamentalsProvider 基本面（行业归属）读取端口
type FundamentalsProvider interface {
	GetFundamentals(ctx context.Context, tickers []string) (map[string]domain.Fundamentals, error)
}

// ReportCache 风险报告缓存端口
type ReportCache interface {
	GetReport(ctx context.Context, portfolioID string) (*domain.Report, error)
	SetReport(ctx context.Context, portfolioID string, report *domain.Report, ttl time.Duration) error
}

// ReportCommand 风险报告请求
type ReportCommand struct {
	// PortfolioID 可选；提供时报告按该键缓存
	PortfolioID     string            `json:"portfolio_id"`
	Positions       []domain.Position `json:"positions" binding:"required,min=1"`
	BenchmarkTicker string            `json:"benchmark_ticker"`
}

// RiskService 风险分析应用服务
type RiskService struct {
	analyzer     *domain.Analyzer
	cfg          domain.Config
	marketData   MarketDataReader
	fundamentals FundamentalsProvider
	cache        ReportCache
	benchmark    string
	logger       *slog.Logger
}

// NewRiskService 创建风险分析服务；defaultBenchmark 为请求未指定时的基准标的
func NewRiskService(
	cfg domain.Config,
	marketData MarketDataReader,
	fundamentals FundamentalsProvider,
	cache ReportCache,
	defaultBenchmark string,
	logger *slog.Logger,
) *RiskService {
	return &RiskService{
		analyzer:     domain.NewAnalyzer(cfg),
		cfg:          cfg,
		marketData:   marketData,
		fundamentals: fundamentals,
		cache:        cache,
		benchmark:    defaultBenchmark,
		logger:       logger,
	}
}

// fetchSeries 并发拉取各标的的价格序列；单标的失败记日志后跳过，
// 由各指标按"无历史数据"处理。
func (s *RiskService) fetchSeries(ctx context.Context, tickers []string) map[string]domain.PriceSeries {
	var mu sync.Mutex
	series := make(map[string]domain.PriceSeries, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, ticker := range tickers {
		g.Go(func() error {
			ps, err := s.marketData.GetPriceSeries(gctx, ticker, s.cfg.LookbackDays)
			if err != nil {
				logging.Error(gctx, "failed to load price series", "ticker", ticker, "error", err)
				return nil
			}
			mu.Lock()
			series[ticker] = ps
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return series
}

// ComputeReport 组装完整风险报告
func (s *RiskService) ComputeReport(ctx context.Context, cmd ReportCommand) (*domain.Report, error) {
	if s.cache != nil && cmd.PortfolioID != "" {
		if report, err := s.cache.GetReport(ctx, cmd.PortfolioID); err == nil && report != nil {
			return report, nil
		}
	}

	positions := domain.NormalizeWeights(cmd.Positions)
	tickers := make([]string, 0, len(positions))
	for _, p := range positions {
		tickers = append(tickers, p.Ticker)
	}

	benchmarkTicker := cmd.BenchmarkTicker
	if benchmarkTicker == "" {
		benchmarkTicker = s.benchmark
	}

	prices := s.fetchSeries(ctx, append(tickers, benchmarkTicker))
	benchmark := prices[benchmarkTicker]

	fundamentals := map[string]domain.Fundamentals{}
	if s.fundamentals != nil {
		fetched, err := s.fundamentals.GetFundamentals(ctx, tickers)
		if err != nil {
			logging.Error(ctx, "failed to load fundamentals", "error", err)
		} else {
			fundamentals = fetched
		}
	}

	report := &domain.Report{
		GeneratedAt:    time.Now(),
		PortfolioValue: domain.PortfolioValue(positions),
		Positions:      positions,
	}
	equity := domain.PortfolioEquitySeries(positions, prices)
	portfolioReturns := domain.DailyReturns(equity)

	// 各指标只写自己的报告字段，可安全并行
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		report.VaR = s.analyzer.ValueAtRisk(report.PortfolioValue, portfolioReturns)
		return nil
	})
	g.Go(func() error {
		report.Drawdown = s.analyzer.Drawdown(equity)
		return nil
	})
	g.Go(func() error {
		report.Beta = s.analyzer.Beta(positions, prices, benchmark)
		return nil
	})
	g.Go(func() error {
		report.Volatility = s.analyzer.Volatility(positions, prices)
		return nil
	})
	g.Go(func() error {
		report.Diversification = s.analyzer.Diversification(positions, fundamentals)
		return nil
	})
	g.Go(func() error {
		report.Correlation = s.analyzer.Correlation(positions, prices)
		return nil
	})
	g.Go(func() error {
		report.Stops = s.analyzer.StopSuggestions(positions, prices)
		return nil
	})
	_ = g.Wait()

	if s.cache != nil && cmd.PortfolioID != "" {
		if err := s.cache.SetReport(ctx, cmd.PortfolioID, report, 5*time.Minute); err != nil {
			logging.Error(ctx, "failed to cache risk report", "portfolio_id", cmd.PortfolioID, "error", err)
		}
	}

	s.logger.InfoContext(ctx, "risk report computed",
		"positions", len(positions), "portfolio_value", report.PortfolioValue)
	return report, nil
}

// ComputeVaR 单独计算组合 VaR
func (s *RiskService) ComputeVaR(ctx context.Context, positions []domain.Position) domain.VaRResult {
	normalized := domain.NormalizeWeights(positions)
	prices := s.fetchSeries(ctx, tickersOf(normalized))
	equity := domain.PortfolioEquitySeries(normalized, prices)
	return s.analyzer.ValueAtRisk(domain.PortfolioValue(normalized), domain.DailyReturns(equity))
}

// ComputeDrawdown 单独计算组合回撤
func (s *RiskService) ComputeDrawdown(ctx context.Context, positions []domain.Position) domain.DrawdownResult {
	normalized := domain.NormalizeWeights(positions)
	prices := s.fetchSeries(ctx, tickersOf(normalized))
	return s.analyzer.Drawdown(domain.PortfolioEquitySeries(normalized, prices))
}

// ComputeBeta 单独计算组合贝塔；benchmarkTicker 为空时用服务默认基准
func (s *RiskService) ComputeBeta(ctx context.Context, positions []domain.Position, benchmarkTicker string) domain.BetaResult {
	if benchmarkTicker == "" {
		benchmarkTicker = s.benchmark
	}
	normalized := domain.NormalizeWeights(positions)
	prices := s.fetchSeries(ctx, append(tickersOf(normalized), benchmarkTicker))
	return s.analyzer.Beta(normalized, prices, prices[benchmarkTicker])
}

// ComputeVolatility 单独计算年化波动率
func (s *RiskService) ComputeVolatility(ctx context.Context, positions []domain.Position) domain.VolatilityResult {
	normalized := domain.NormalizeWeights(positions)
	prices := s.fetchSeries(ctx, tickersOf(normalized))
	return s.analyzer.Volatility(normalized, prices)
}

// ComputeCorrelation 单独计算持仓间相关性
func (s *RiskService) ComputeCorrelation(ctx context.Context, positions []domain.Position) domain.CorrelationResult {
	normalized := domain.NormalizeWeights(positions)
	prices := s.fetchSeries(ctx, tickersOf(normalized))
	return s.analyzer.Correlation(normalized, prices)
}

// ComputeDiversification 单独计算分散度
func (s *RiskService) ComputeDiversification(ctx context.Context, positions []domain.Position) domain.DiversificationResult {
	normalized := domain.NormalizeWeights(positions)
	fundamentals := map[string]domain.Fundamentals{}
	if s.fundamentals != nil {
		if fetched, err := s.fundamentals.GetFundamentals(ctx, tickersOf(normalized)); err == nil {
			fundamentals = fetched
		}
	}
	return s.analyzer.Diversification(normalized, fundamentals)
}

// ComputeStops 单独计算止损/止盈建议
func (s *RiskService) ComputeStops(ctx context.Context, positions []domain.Position) []domain.StopSuggestion {
	normalized := domain.NormalizeWeights(positions)
	prices := s.fetchSeries(ctx, tickersOf(normalized))
	return s.analyzer.StopSuggestions(normalized, prices)
}

func tickersOf(positions []domain.Position) []string {
	tickers := make([]string, 0, len(positions))
	for _, p := range positions {
		tickers = append(tickers, p.Ticker)
	}
	return tickers
}
