// Package domain 策略服务领域层：
// 定义策略聚合根、策略条件实体、指标与操作符目录，以及条件评估引擎。
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StrategyType 策略类型
type StrategyType string

const (
	StrategyTypeGraphical StrategyType = "GRAPHICAL" // 由离散条件构成
	StrategyTypeJSON      StrategyType = "JSON"      // 自定义规则树，由外部规则评估器解释
)

// ConditionPhase 条件阶段
type ConditionPhase string

const (
	PhaseEntry ConditionPhase = "ENTRY"
	PhaseExit  ConditionPhase = "EXIT"
)

// ConditionLogic 条件组合逻辑
type ConditionLogic string

const (
	LogicAnd ConditionLogic = "AND"
	LogicOr  ConditionLogic = "OR"
)

// 比较操作符
const (
	OperatorGreaterThan = ">"
	OperatorLessThan    = "<"
	OperatorCrossAbove  = "CROSS_ABOVE"
	OperatorCrossBelow  = "CROSS_BELOW"
)

// 指标目录
const (
	IndicatorRSI            = "RSI"
	IndicatorMACD           = "MACD"
	IndicatorMACDSignal     = "MACD_SIGNAL"
	IndicatorStochasticK    = "STOCHASTIC_K"
	IndicatorStochasticD    = "STOCHASTIC_D"
	IndicatorBollingerUpper = "BOLLINGER_UPPER"
	IndicatorBollingerLower = "BOLLINGER_LOWER"
	IndicatorSMA20          = "SMA_20"
	IndicatorSMA50          = "SMA_50"
	IndicatorEMA12          = "EMA_12"
	IndicatorEMA26          = "EMA_26"
	IndicatorClose          = "CLOSE"
	IndicatorOpen           = "OPEN"
	IndicatorHigh           = "HIGH"
	IndicatorLow            = "LOW"
	IndicatorVolume         = "VOLUME"
)

var indicatorCatalog = map[string]bool{
	IndicatorRSI:            true,
	IndicatorMACD:           true,
	IndicatorMACDSignal:     true,
	IndicatorStochasticK:    true,
	IndicatorStochasticD:    true,
	IndicatorBollingerUpper: true,
	IndicatorBollingerLower: true,
	IndicatorSMA20:          true,
	IndicatorSMA50:          true,
	IndicatorEMA12:          true,
	IndicatorEMA26:          true,
	IndicatorClose:          true,
	IndicatorOpen:           true,
	IndicatorHigh:           true,
	IndicatorLow:            true,
	IndicatorVolume:         true,
}

var operatorCatalog = map[string]bool{
	OperatorGreaterThan: true,
	OperatorLessThan:    true,
	OperatorCrossAbove:  true,
	OperatorCrossBelow:  true,
}

// KnownIndicator 判断指标是否在目录内
func KnownIndicator(name string) bool { return indicatorCatalog[name] }

// KnownOperator 判断操作符是否合法
func KnownOperator(op string) bool { return operatorCatalog[op] }

// Strategy 策略聚合根
type Strategy struct {
	gorm.Model
	StrategyID      string          `gorm:"column:strategy_id;type:varchar(32);uniqueIndex;not null" json:"strategy_id"`
	UserID          string          `gorm:"column:user_id;type:varchar(32);index;not null" json:"user_id"`
	Name            string          `gorm:"column:name;type:varchar(128);not null" json:"name"`
	Description     string          `gorm:"column:description;type:text" json:"description"`
	Type            StrategyType    `gorm:"column:type;type:varchar(16);not null" json:"type"`
	RuleJSON        string          `gorm:"column:rule_json;type:json" json:"rule_json,omitempty"`
	InitialCapital  decimal.Decimal `gorm:"column:initial_capital;type:decimal(20,4);not null" json:"initial_capital"`
	PositionSizePct float64         `gorm:"column:position_size_pct;type:decimal(6,4);not null" json:"position_size_pct"`

	// 领域事件
	domainEvents []DomainEvent `gorm:"-" json:"-"`
}

// StrategyCondition 策略条件实体，随策略级联删除
type StrategyCondition struct {
	gorm.Model
	StrategyID       string         `gorm:"column:strategy_id;type:varchar(32);index;not null" json:"strategy_id"`
	Phase            ConditionPhase `gorm:"column:phase;type:varchar(8);not null" json:"phase"`
	Indicator        string         `gorm:"column:indicator;type:varchar(32);not null" json:"indicator"`
	Operator         string         `gorm:"column:operator;type:varchar(16);not null" json:"operator"`
	Threshold        *float64       `gorm:"column:threshold;type:decimal(20,8)" json:"threshold,omitempty"`
	CompareIndicator *string        `gorm:"column:compare_indicator;type:varchar(32)" json:"compare_indicator,omitempty"`
	Logic            ConditionLogic `gorm:"column:logic;type:varchar(4);not null;default:'AND'" json:"logic"`
	Order            int            `gorm:"column:eval_order;not null" json:"order"`
}

func (Strategy) TableName() string          { return "strategies" }
func (StrategyCondition) TableName() string { return "strategy_conditions" }

// NewStrategy 创建策略
func NewStrategy(strategyID, userID, name, description string, sType StrategyType, initialCapital decimal.Decimal, positionSizePct float64) *Strategy {
	s := &Strategy{
		StrategyID:      strategyID,
		UserID:          userID,
		Name:            name,
		Description:     description,
		Type:            sType,
		InitialCapital:  initialCapital,
		PositionSizePct: positionSizePct,
	}
	s.addEvent(&StrategyCreatedEvent{
		StrategyID: strategyID,
		UserID:     userID,
		Timestamp:  time.Now(),
	})
	return s
}

// Validate 校验策略与条件是否可用于模拟。
// 校验失败属于输入错误，在任何模拟开始前拒绝。
func (s *Strategy) Validate(conditions []StrategyCondition) error {
	if s.Type != StrategyTypeGraphical && s.Type != StrategyTypeJSON {
		return fmt.Errorf("%w: %s", ErrUnknownStrategyType, s.Type)
	}
	if s.InitialCapital.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidInitialCapital
	}
	if s.PositionSizePct <= 0 || s.PositionSizePct > 1 {
		return ErrInvalidPositionSize
	}
	if s.Type == StrategyTypeJSON {
		return nil
	}

	hasEntry := false
	for i := range conditions {
		c := &conditions[i]
		if c.Phase != PhaseEntry && c.Phase != PhaseExit {
			return fmt.Errorf("%w: %s", ErrUnknownPhase, c.Phase)
		}
		if c.Phase == PhaseEntry {
			hasEntry = true
		}
		if !KnownIndicator(c.Indicator) {
			return fmt.Errorf("%w: %s", ErrUnknownIndicator, c.Indicator)
		}
		if !KnownOperator(c.Operator) {
			return fmt.Errorf("%w: %s", ErrUnknownOperator, c.Operator)
		}
		if c.CompareIndicator != nil && !KnownIndicator(*c.CompareIndicator) {
			return fmt.Errorf("%w: %s", ErrUnknownIndicator, *c.CompareIndicator)
		}
		if c.Threshold == nil && c.CompareIndicator == nil {
			return ErrMissingThreshold
		}
		if c.Logic != LogicAnd && c.Logic != LogicOr {
			return fmt.Errorf("%w: %s", ErrUnknownLogic, c.Logic)
		}
	}
	if !hasEntry {
		return ErrNoEntryConditions
	}
	return nil
}

// MarkDeleted 记录删除事件，回测与模拟盘记录由下游级联清理
func (s *Strategy) MarkDeleted() {
	s.addEvent(&StrategyDeletedEvent{
		StrategyID: s.StrategyID,
		UserID:     s.UserID,
		Timestamp:  time.Now(),
	})
}

func (s *Strategy) addEvent(event DomainEvent) {
	s.domainEvents = append(s.domainEvents, event)
}

// GetDomainEvents 获取待发布的领域事件
func (s *Strategy) GetDomainEvents() []DomainEvent { return s.domainEvents }

// ClearDomainEvents 清空领域事件
func (s *Strategy) ClearDomainEvents() { s.domainEvents = nil }

// 错误定义
var (
	ErrStrategyNotFound      = errors.New("strategy not found")
	ErrNotStrategyOwner      = errors.New("not the strategy owner")
	ErrNoEntryConditions     = errors.New("graphical strategy requires at least one entry condition")
	ErrUnknownStrategyType   = errors.New("unknown strategy type")
	ErrUnknownIndicator      = errors.New("unknown indicator")
	ErrUnknownOperator       = errors.New("unknown operator")
	ErrUnknownPhase          = errors.New("unknown condition phase")
	ErrUnknownLogic          = errors.New("unknown condition logic")
	ErrMissingThreshold      = errors.New("condition requires a threshold or a compare indicator")
	ErrInvalidInitialCapital = errors.New("initial capital must be positive")
	ErrInvalidPositionSize   = errors.New("position size pct must be in (0, 1]")
	ErrRuleEvaluatorRequired = errors.New("json strategy requires a rule evaluator")
)
