package domain

import "time"

// DrawdownPoint 回撤序列单点
type DrawdownPoint struct {
	Date     time.Time `json:"date"`
	Value    float64   `json:"value"`
	Drawdown float64   `json:"drawdown"`
}

// DrawdownResult 回撤分析结果
type DrawdownResult struct {
	Series          []DrawdownPoint `json:"series"`
	MaxDrawdown     float64         `json:"max_drawdown"`
	MaxDrawdownDate *time.Time      `json:"max_drawdown_date"`
	CurrentDrawdown float64         `json:"current_drawdown"`
	RecoveryDays    *int            `json:"recovery_days"`
	Error           string          `json:"error,omitempty"`
}

// Drawdown 沿权益序列跟踪运行峰值；回撤 = (value−peak)/peak（非正）。
// 恢复天数 = 最大回撤日到权益首次重回前峰的自然日数，未恢复为 null。
func (a *Analyzer) Drawdown(equity []PricePoint) DrawdownResult {
	if len(equity) == 0 {
		return DrawdownResult{Error: "empty equity series"}
	}

	peak := equity[0].Close
	peakAtMax := peak
	maxDrawdown := 0.0
	var maxDate *time.Time

	series := make([]DrawdownPoint, 0, len(equity))
	for _, point := range equity {
		if point.Close > peak {
			peak = point.Close
		}
		dd := 0.0
		if peak > 0 {
			dd = (point.Close - peak) / peak
		}
		series = append(series, DrawdownPoint{Date: point.Date, Value: point.Close, Drawdown: dd})
		if dd < maxDrawdown {
			maxDrawdown = dd
			date := point.Date
			maxDate = &date
			peakAtMax = peak
		}
	}

	var recoveryDays *int
	if maxDate != nil {
		for _, point := range equity {
			if point.Date.After(*maxDate) && point.Close >= peakAtMax {
				days := int(point.Date.Sub(*maxDate).Hours() / 24)
				recoveryDays = &days
				break
			}
		}
	}

	return DrawdownResult{
		Series:          series,
		MaxDrawdown:     maxDrawdown,
		MaxDrawdownDate: maxDate,
		CurrentDrawdown: series[len(series)-1].Drawdown,
		RecoveryDays:    recoveryDays,
	}
}
