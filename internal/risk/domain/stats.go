package domain

import (
	"math"
	"sort"
	"time"
)

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// 样本标准差（n-1）
func stdevOf(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := meanOf(values)
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

// 样本协方差（n-1）；长度不等或不足时返回 0
func covarianceOf(a, b []float64) float64 {
	if len(a) != len(b) || len(a) < 2 {
		return 0
	}
	meanA, meanB := meanOf(a), meanOf(b)
	sum := 0.0
	for i := range a {
		sum += (a[i] - meanA) * (b[i] - meanB)
	}
	return sum / float64(len(a)-1)
}

// Pearson 相关系数；任一序列零方差时返回 (0, false)
func pearsonOf(a, b []float64) (float64, bool) {
	sa, sb := stdevOf(a), stdevOf(b)
	if sa == 0 || sb == 0 {
		return 0, false
	}
	return covarianceOf(a, b) / (sa * sb), true
}

// 线性插值百分位；p ∈ [0,1]，输入无需有序
func percentileOf(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// DailyReturns 由价格序列计算日收益率；前一日价格非正的点被跳过
func DailyReturns(points []PricePoint) []float64 {
	if len(points) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		prev := points[i-1].Close
		if prev <= 0 {
			continue
		}
		returns = append(returns, points[i].Close/prev-1)
	}
	return returns
}

func dateKey(t time.Time) string { return t.Format("2006-01-02") }

// alignedReturns 按日期交集对齐两条序列并各自计算日收益率
func alignedReturns(a, b []PricePoint) ([]float64, []float64) {
	inB := make(map[string]float64, len(b))
	for _, p := range b {
		inB[dateKey(p.Date)] = p.Close
	}

	var common []PricePoint
	var matched []PricePoint
	for _, p := range a {
		if close, ok := inB[dateKey(p.Date)]; ok {
			common = append(common, p)
			matched = append(matched, PricePoint{Date: p.Date, Close: close})
		}
	}
	return DailyReturns(common), DailyReturns(matched)
}
