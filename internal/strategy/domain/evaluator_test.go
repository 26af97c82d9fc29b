package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func fptr(v float64) *float64 { return &v }

func barWith(indicators map[string]float64) *Bar {
	b := &Bar{Ticker: "AAPL", Open: 100, High: 101, Low: 99, Close: 100, Volume: 1000,
		Indicators: map[string]*float64{}}
	for name, v := range indicators {
		value := v
		b.Indicators[name] = &value
	}
	return b
}

func entryCond(indicator, operator string, threshold float64, logic ConditionLogic, order int) StrategyCondition {
	return StrategyCondition{
		Phase:     PhaseEntry,
		Indicator: indicator,
		Operator:  operator,
		Threshold: fptr(threshold),
		Logic:     logic,
		Order:     order,
	}
}

func TestEvaluateThresholdOperators(t *testing.T) {
	cur := barWith(map[string]float64{IndicatorRSI: 25})

	if !Evaluate([]StrategyCondition{entryCond(IndicatorRSI, OperatorLessThan, 30, LogicAnd, 0)}, PhaseEntry, cur, nil) {
		t.Fatal("RSI 25 < 30 should hold")
	}
	if Evaluate([]StrategyCondition{entryCond(IndicatorRSI, OperatorGreaterThan, 30, LogicAnd, 0)}, PhaseEntry, cur, nil) {
		t.Fatal("RSI 25 > 30 should not hold")
	}
	// 等值不满足严格比较
	eq := barWith(map[string]float64{IndicatorRSI: 30})
	if Evaluate([]StrategyCondition{entryCond(IndicatorRSI, OperatorGreaterThan, 30, LogicAnd, 0)}, PhaseEntry, eq, nil) {
		t.Fatal("RSI 30 > 30 should not hold")
	}
}

func TestEvaluateCompareIndicatorTakesPriority(t *testing.T) {
	cur := barWith(map[string]float64{IndicatorSMA20: 105, IndicatorSMA50: 100})
	sma50 := IndicatorSMA50
	cond := StrategyCondition{
		Phase:            PhaseEntry,
		Indicator:        IndicatorSMA20,
		Operator:         OperatorGreaterThan,
		Threshold:        fptr(1e9), // 第二指标存在时阈值被忽略
		CompareIndicator: &sma50,
		Logic:            LogicAnd,
	}
	if !Evaluate([]StrategyCondition{cond}, PhaseEntry, cur, nil) {
		t.Fatal("SMA20 105 > SMA50 100 should hold regardless of threshold")
	}
}

func TestEvaluateCrossSemantics(t *testing.T) {
	tests := []struct {
		name     string
		operator string
		prevVal  float64
		curVal   float64
		want     bool
	}{
		{"cross above from below", OperatorCrossAbove, 29, 31, true},
		{"cross above landing on threshold", OperatorCrossAbove, 29, 30, true},
		{"no cross above while above", OperatorCrossAbove, 31, 32, false},
		{"no cross above from threshold", OperatorCrossAbove, 30, 31, false},
		{"cross below from above", OperatorCrossBelow, 31, 29, true},
		{"cross below from threshold", OperatorCrossBelow, 30, 29, true},
		{"no cross below while below", OperatorCrossBelow, 29, 28, false},
		{"no cross below landing on threshold", OperatorCrossBelow, 31, 30, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := barWith(map[string]float64{IndicatorRSI: tt.prevVal})
			cur := barWith(map[string]float64{IndicatorRSI: tt.curVal})
			conds := []StrategyCondition{entryCond(IndicatorRSI, tt.operator, 30, LogicAnd, 0)}
			if got := Evaluate(conds, PhaseEntry, cur, prev); got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateCrossRequiresPreviousBar(t *testing.T) {
	cur := barWith(map[string]float64{IndicatorRSI: 31})
	conds := []StrategyCondition{entryCond(IndicatorRSI, OperatorCrossAbove, 30, LogicAnd, 0)}
	if Evaluate(conds, PhaseEntry, cur, nil) {
		t.Fatal("cross without previous bar must evaluate to false")
	}
}

func TestEvaluateMissingIndicatorFailsClosed(t *testing.T) {
	cur := barWith(nil) // 无 RSI
	conds := []StrategyCondition{entryCond(IndicatorRSI, OperatorLessThan, 30, LogicAnd, 0)}
	if Evaluate(conds, PhaseEntry, cur, nil) {
		t.Fatal("missing indicator must evaluate to false, not panic")
	}

	// OR 组合中缺失的一项不应拖垮另一项
	conds = []StrategyCondition{
		entryCond(IndicatorRSI, OperatorLessThan, 30, LogicAnd, 0),
		entryCond(IndicatorClose, OperatorGreaterThan, 50, LogicOr, 1),
	}
	if !Evaluate(conds, PhaseEntry, cur, nil) {
		t.Fatal("OR with one satisfied condition should hold")
	}
}

func TestEvaluateLeftFoldOrdering(t *testing.T) {
	cur := barWith(map[string]float64{IndicatorRSI: 25, IndicatorVolume: 500})

	// (RSI<30 AND VOLUME>1000) = false；追加 OR CLOSE>50 = true。
	// 左折叠按 Order 排序后依次合并。
	conds := []StrategyCondition{
		entryCond(IndicatorClose, OperatorGreaterThan, 50, LogicOr, 2),
		entryCond(IndicatorRSI, OperatorLessThan, 30, LogicAnd, 0),
		entryCond(IndicatorVolume, OperatorGreaterThan, 1000, LogicAnd, 1),
	}
	if !Evaluate(conds, PhaseEntry, cur, nil) {
		t.Fatal("(false AND) OR true should hold")
	}

	// 把 OR 项排到中间，结果被末尾 AND false 吞掉
	conds = []StrategyCondition{
		entryCond(IndicatorClose, OperatorGreaterThan, 50, LogicOr, 1),
		entryCond(IndicatorRSI, OperatorLessThan, 30, LogicAnd, 0),
		entryCond(IndicatorVolume, OperatorGreaterThan, 1000, LogicAnd, 2),
	}
	if Evaluate(conds, PhaseEntry, cur, nil) {
		t.Fatal("(true OR ...) AND false should not hold")
	}
}

func TestEvaluateEmptyPhaseIsFalse(t *testing.T) {
	cur := barWith(map[string]float64{IndicatorRSI: 25})
	conds := []StrategyCondition{entryCond(IndicatorRSI, OperatorLessThan, 30, LogicAnd, 0)}
	if Evaluate(conds, PhaseExit, cur, nil) {
		t.Fatal("phase without conditions must evaluate to false")
	}
}

func TestEvaluatorForDispatch(t *testing.T) {
	graphical := NewStrategy("ST1", "U1", "s", "", StrategyTypeGraphical, decimal.NewFromInt(1000), 0.5)
	jsonStrategy := NewStrategy("ST2", "U1", "s", "", StrategyTypeJSON, decimal.NewFromInt(1000), 0.5)

	if _, err := EvaluatorFor(graphical, nil, nil); err != nil {
		t.Fatalf("graphical strategy should not need a rule evaluator: %v", err)
	}
	if _, err := EvaluatorFor(jsonStrategy, nil, nil); !errors.Is(err, ErrRuleEvaluatorRequired) {
		t.Fatalf("err = %v, want ErrRuleEvaluatorRequired", err)
	}

	rule := NewConditionEvaluator(nil)
	got, err := EvaluatorFor(jsonStrategy, nil, rule)
	if err != nil || got != rule {
		t.Fatalf("json strategy should return the injected evaluator, got %v err %v", got, err)
	}
}

func TestValidateRejectsBadInput(t *testing.T) {
	valid := func() (*Strategy, []StrategyCondition) {
		s := NewStrategy("ST1", "U1", "s", "", StrategyTypeGraphical, decimal.NewFromInt(1000), 0.5)
		return s, []StrategyCondition{entryCond(IndicatorRSI, OperatorLessThan, 30, LogicAnd, 0)}
	}

	s, conds := valid()
	if err := s.Validate(conds); err != nil {
		t.Fatalf("valid strategy rejected: %v", err)
	}

	s, _ = valid()
	if err := s.Validate(nil); !errors.Is(err, ErrNoEntryConditions) {
		t.Fatalf("err = %v, want ErrNoEntryConditions", err)
	}

	s, conds = valid()
	conds[0].Indicator = "MOON_PHASE"
	if err := s.Validate(conds); !errors.Is(err, ErrUnknownIndicator) {
		t.Fatalf("err = %v, want ErrUnknownIndicator", err)
	}

	s, conds = valid()
	conds[0].Operator = "~="
	if err := s.Validate(conds); !errors.Is(err, ErrUnknownOperator) {
		t.Fatalf("err = %v, want ErrUnknownOperator", err)
	}

	s, conds = valid()
	conds[0].Threshold = nil
	if err := s.Validate(conds); !errors.Is(err, ErrMissingThreshold) {
		t.Fatalf("err = %v, want ErrMissingThreshold", err)
	}

	s, conds = valid()
	s.InitialCapital = decimal.Zero
	if err := s.Validate(conds); !errors.Is(err, ErrInvalidInitialCapital) {
		t.Fatalf("err = %v, want ErrInvalidInitialCapital", err)
	}

	s, conds = valid()
	s.PositionSizePct = 1.5
	if err := s.Validate(conds); !errors.Is(err, ErrInvalidPositionSize) {
		t.Fatalf("err = %v, want ErrInvalidPositionSize", err)
	}

	// JSON 策略跳过条件校验
	j := NewStrategy("ST2", "U1", "s", "", StrategyTypeJSON, decimal.NewFromInt(1000), 0.5)
	if err := j.Validate(nil); err != nil {
		t.Fatalf("json strategy with no conditions rejected: %v", err)
	}
}
