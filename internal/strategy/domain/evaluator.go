package domain

import "sort"

// RuleEvaluator 自定义规则评估接口。
// JSON 类型策略绕过离散条件，由外部注入的实现解释规则树；
// 本核心只暴露接口，不内置规则解释器。
type RuleEvaluator interface {
	EvaluateEntry(cur, prev *Bar) bool
	EvaluateExit(cur, prev *Bar) bool
}

// Evaluate 对指定阶段的条件序列求值。
// 按 Order 从左到右折叠：以首个条件的结果为起点，
// 之后每个条件用其声明的 AND/OR 与累计结果合并。
// 这不是完整布尔代数优先级，分组由条件顺序表达。
func Evaluate(conditions []StrategyCondition, phase ConditionPhase, cur, prev *Bar) bool {
	phased := make([]StrategyCondition, 0, len(conditions))
	for _, c := range conditions {
		if c.Phase == phase {
			phased = append(phased, c)
		}
	}
	if len(phased) == 0 {
		return false
	}
	sort.SliceStable(phased, func(i, j int) bool { return phased[i].Order < phased[j].Order })

	result := evalCondition(&phased[0], cur, prev)
	for i := 1; i < len(phased); i++ {
		next := evalCondition(&phased[i], cur, prev)
		if phased[i].Logic == LogicOr {
			result = result || next
		} else {
			result = result && next
		}
	}
	return result
}

// evalCondition 求值单个条件。任一侧指标值缺失时返回 false（失败关闭，从不抛错）。
func evalCondition(c *StrategyCondition, cur, prev *Bar) bool {
	lhs := cur.IndicatorValue(c.Indicator)
	if lhs == nil {
		return false
	}

	switch c.Operator {
	case OperatorGreaterThan, OperatorLessThan:
		rhs := rightValue(c, cur)
		if rhs == nil {
			return false
		}
		if c.Operator == OperatorGreaterThan {
			return *lhs > *rhs
		}
		return *lhs < *rhs

	case OperatorCrossAbove, OperatorCrossBelow:
		if prev == nil {
			return false
		}
		prevLhs := prev.IndicatorValue(c.Indicator)
		curRhs := rightValue(c, cur)
		prevRhs := rightValue(c, prev)
		if prevLhs == nil || curRhs == nil || prevRhs == nil {
			return false
		}
		// 交叉要求 (指标 − 阈值) 在两根 K 线之间发生符号变化：
		// ABOVE 为严格负到非负，BELOW 为非负到负。
		prevDiff := *prevLhs - *prevRhs
		curDiff := *lhs - *curRhs
		if c.Operator == OperatorCrossAbove {
			return prevDiff < 0 && curDiff >= 0
		}
		return prevDiff >= 0 && curDiff < 0
	}
	return false
}

// rightValue 取条件右侧的比较值：第二指标优先，否则为固定阈值。
func rightValue(c *StrategyCondition, bar *Bar) *float64 {
	if c.CompareIndicator != nil {
		return bar.IndicatorValue(*c.CompareIndicator)
	}
	return c.Threshold
}

// conditionEvaluator 将离散条件适配为 RuleEvaluator，
// 使回测与模拟盘用同一接口分派 GRAPHICAL 与 JSON 两种策略。
type conditionEvaluator struct {
	conditions []StrategyCondition
}

// NewConditionEvaluator 由离散条件构造规则评估器
func NewConditionEvaluator(conditions []StrategyCondition) RuleEvaluator {
	return &conditionEvaluator{conditions: conditions}
}

func (e *conditionEvaluator) EvaluateEntry(cur, prev *Bar) bool {
	return Evaluate(e.conditions, PhaseEntry, cur, prev)
}

func (e *conditionEvaluator) EvaluateExit(cur, prev *Bar) bool {
	return Evaluate(e.conditions, PhaseExit, cur, prev)
}

// EvaluatorFor 根据策略类型选择评估器。
// JSON 策略必须提供外部规则评估器，否则属于输入错误。
func EvaluatorFor(s *Strategy, conditions []StrategyCondition, rule RuleEvaluator) (RuleEvaluator, error) {
	if s.Type == StrategyTypeJSON {
		if rule == nil {
			return nil, ErrRuleEvaluatorRequired
		}
		return rule, nil
	}
	return NewConditionEvaluator(conditions), nil
}
