package domain

import (
	"fmt"
	"sort"
)

// TickerWeight 单标的权重
type TickerWeight struct {
	Ticker string  `json:"ticker"`
	Weight float64 `json:"weight"`
}

// SectorExposure 行业敞口
type SectorExposure struct {
	Sector     string   `json:"sector"`
	Weight     float64  `json:"weight"`
	Tickers    []string `json:"tickers"`
	Industries []string `json:"industries"`
}

// DiversificationResult 分散度分析结果
type DiversificationResult struct {
	Herfindahl         float64          `json:"herfindahl"`
	EffectivePositions float64          `json:"effective_positions"`
	Weights            []TickerWeight   `json:"weights"`
	Sectors            []SectorExposure `json:"sectors"`
	Warnings           []string         `json:"warnings"`
	Error              string           `json:"error,omitempty"`
}

// Diversification 集中度分析。Herfindahl = Σwᵢ²（1.0 为完全集中），
// 有效持仓数 = 1/Herfindahl；任一标的或行业权重超过阈值时给出告警。
// 基本面缺失的标的归入 UNKNOWN 行业。
func (a *Analyzer) Diversification(positions []Position, fundamentals map[string]Fundamentals) DiversificationResult {
	if len(positions) == 0 {
		return DiversificationResult{Error: "empty portfolio"}
	}

	result := DiversificationResult{}
	herfindahl := 0.0
	for _, p := range positions {
		herfindahl += p.Weight * p.Weight
		result.Weights = append(result.Weights, TickerWeight{Ticker: p.Ticker, Weight: p.Weight})
		if p.Weight > a.cfg.ConcentrationThreshold {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("ticker %s weight %.2f exceeds concentration threshold %.2f",
					p.Ticker, p.Weight, a.cfg.ConcentrationThreshold))
		}
	}
	result.Herfindahl = herfindahl
	if herfindahl > 0 {
		result.EffectivePositions = 1 / herfindahl
	}

	type sectorAgg struct {
		weight     float64
		tickers    []string
		industries map[string]struct{}
	}
	sectors := make(map[string]*sectorAgg)
	for _, p := range positions {
		sector := "UNKNOWN"
		industry := ""
		if f, ok := fundamentals[p.Ticker]; ok && f.Sector != "" {
			sector = f.Sector
			industry = f.Industry
		}
		agg, ok := sectors[sector]
		if !ok {
			agg = &sectorAgg{industries: make(map[string]struct{})}
			sectors[sector] = agg
		}
		agg.weight += p.Weight
		agg.tickers = append(agg.tickers, p.Ticker)
		if industry != "" {
			agg.industries[industry] = struct{}{}
		}
	}

	names := make([]string, 0, len(sectors))
	for name := range sectors {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		agg := sectors[name]
		industries := make([]string, 0, len(agg.industries))
		for industry := range agg.industries {
			industries = append(industries, industry)
		}
		sort.Strings(industries)
		result.Sectors = append(result.Sectors, SectorExposure{
			Sector:     name,
			Weight:     agg.weight,
			Tickers:    agg.tickers,
			Industries: industries,
		})
		if agg.weight > a.cfg.ConcentrationThreshold {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("sector %s weight %.2f exceeds concentration threshold %.2f",
					name, agg.weight, a.cfg.ConcentrationThreshold))
		}
	}
	return result
}
