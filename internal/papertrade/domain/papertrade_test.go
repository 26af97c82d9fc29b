package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	strategydomain "github.com/wyfcoding/investtrack/internal/strategy/domain"
)

type signalEvaluator struct {
	entry bool
	exit  bool
}

func (e signalEvaluator) EvaluateEntry(cur, prev *strategydomain.Bar) bool { return e.entry }
func (e signalEvaluator) EvaluateExit(cur, prev *strategydomain.Bar) bool  { return e.exit }

func newTestSession() *PaperTrade {
	return NewPaperTrade("PT1", "ST1", "U1", "AAPL", decimal.NewFromInt(100000), 0.5)
}

func barAt(day int, close float64) *strategydomain.Bar {
	return &strategydomain.Bar{
		Ticker: "AAPL",
		Date:   time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC),
		Open:   close,
		High:   close,
		Low:    close,
		Close:  close,
	}
}

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(pt *PaperTrade)
		apply   func(pt *PaperTrade) error
		wantErr bool
		want    PaperTradeStatus
	}{
		{"pause active", func(*PaperTrade) {}, (*PaperTrade).Pause, false, StatusPaused},
		{"pause paused", func(pt *PaperTrade) { _ = pt.Pause() }, (*PaperTrade).Pause, true, StatusPaused},
		{"resume paused", func(pt *PaperTrade) { _ = pt.Pause() }, (*PaperTrade).Resume, false, StatusActive},
		{"resume active", func(*PaperTrade) {}, (*PaperTrade).Resume, true, StatusActive},
		{"stop active", func(*PaperTrade) {}, (*PaperTrade).Stop, false, StatusStopped},
		{"stop paused", func(pt *PaperTrade) { _ = pt.Pause() }, (*PaperTrade).Stop, false, StatusStopped},
		{"stop stopped", func(pt *PaperTrade) { _ = pt.Stop() }, (*PaperTrade).Stop, true, StatusStopped},
		{"resume stopped", func(pt *PaperTrade) { _ = pt.Stop() }, (*PaperTrade).Resume, true, StatusStopped},
		{"pause stopped", func(pt *PaperTrade) { _ = pt.Stop() }, (*PaperTrade).Pause, true, StatusStopped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pt := newTestSession()
			tt.prepare(pt)
			err := tt.apply(pt)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tt.wantErr)
			}
			if err != nil && err != ErrInvalidStateTransition {
				t.Fatalf("err = %v, want ErrInvalidStateTransition", err)
			}
			if pt.Status != tt.want {
				t.Fatalf("status = %s, want %s", pt.Status, tt.want)
			}
		})
	}
}

func TestStopRecordsTimestamp(t *testing.T) {
	pt := newTestSession()
	if pt.StoppedAt != nil {
		t.Fatal("new session should not have stopped_at")
	}
	if err := pt.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if pt.StoppedAt == nil {
		t.Fatal("stopped session should record stopped_at")
	}
}

func TestTickOpensAndClosesPosition(t *testing.T) {
	pt := newTestSession()

	// 开仓：50% 仓位，价格 100 → 500 股
	changed, err := pt.Tick(barAt(2, 100), barAt(1, 100), signalEvaluator{entry: true})
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if !changed {
		t.Fatal("entry tick should report change")
	}
	open := pt.OpenPosition()
	if open == nil {
		t.Fatal("expected open position")
	}
	if open.Quantity != 500 {
		t.Fatalf("quantity = %d, want 500", open.Quantity)
	}
	if got := pt.CurrentCapital.InexactFloat64(); got != 50000 {
		t.Fatalf("capital after entry = %v, want 50000", got)
	}

	// 持仓中再次出现入场信号：no-op
	changed, err = pt.Tick(barAt(3, 110), barAt(2, 100), signalEvaluator{entry: true})
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if changed {
		t.Fatal("re-entry while holding should be a no-op")
	}
	if len(pt.Positions) != 1 {
		t.Fatalf("positions = %d, want 1", len(pt.Positions))
	}

	// 平仓：价格 110，盈亏 = (110-100)*500 = 5000
	changed, err = pt.Tick(barAt(4, 110), barAt(3, 110), signalEvaluator{exit: true})
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if !changed {
		t.Fatal("exit tick should report change")
	}
	if pt.OpenPosition() != nil {
		t.Fatal("position should be closed")
	}
	closed := pt.Positions[0]
	if closed.RealizedPnL == nil || *closed.RealizedPnL != 5000 {
		t.Fatalf("realized pnl = %v, want 5000", closed.RealizedPnL)
	}
	if got := pt.CurrentCapital.InexactFloat64(); got != 105000 {
		t.Fatalf("capital after exit = %v, want 105000", got)
	}
}

func TestTickRejectedWhenNotActive(t *testing.T) {
	pt := newTestSession()
	if _, err := pt.Tick(barAt(2, 100), barAt(1, 100), signalEvaluator{entry: true}); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if err := pt.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	capitalBefore := pt.CurrentCapital
	positionsBefore := len(pt.Positions)

	// 暂停期间连续投喂 tick：全部拒绝，状态不变
	for day := 3; day <= 7; day++ {
		changed, err := pt.Tick(barAt(day, 200), barAt(day-1, 200), signalEvaluator{exit: true})
		if err != ErrSessionNotActive {
			t.Fatalf("err = %v, want ErrSessionNotActive", err)
		}
		if changed {
			t.Fatal("tick on paused session must not change state")
		}
	}
	if !pt.CurrentCapital.Equal(capitalBefore) {
		t.Fatal("capital changed while paused")
	}
	if len(pt.Positions) != positionsBefore {
		t.Fatal("positions changed while paused")
	}
	if pt.OpenPosition() == nil {
		t.Fatal("open position must survive pause")
	}

	// 恢复后第一个 tick 正常生效
	if err := pt.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	changed, err := pt.Tick(barAt(8, 120), barAt(7, 120), signalEvaluator{exit: true})
	if err != nil {
		t.Fatalf("Tick after resume: %v", err)
	}
	if !changed {
		t.Fatal("tick after resume should close the position")
	}
}

func TestStopLeavesPositionOpen(t *testing.T) {
	pt := newTestSession()
	if _, err := pt.Tick(barAt(2, 100), barAt(1, 100), signalEvaluator{entry: true}); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if err := pt.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if pt.OpenPosition() == nil {
		t.Fatal("stop must not auto-close the open position")
	}
	snapshot := pt.Snapshot()
	if snapshot.OpenPositions != 1 {
		t.Fatalf("open positions = %d, want 1", snapshot.OpenPositions)
	}
	// 现金 50000 + 500 股按最新价 100 → 权益 100000
	if snapshot.Equity != 100000 {
		t.Fatalf("equity = %v, want 100000", snapshot.Equity)
	}
	if snapshot.MarketValue != 50000 {
		t.Fatalf("market value = %v, want 50000", snapshot.MarketValue)
	}
}

func TestSnapshotTotalReturn(t *testing.T) {
	pt := newTestSession()
	if _, err := pt.Tick(barAt(2, 100), barAt(1, 100), signalEvaluator{entry: true}); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	// 价格涨到 120：现金 50000 + 500*120 = 110000，收益率 10%
	if _, err := pt.Tick(barAt(3, 120), barAt(2, 100), signalEvaluator{}); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	snapshot := pt.Snapshot()
	if snapshot.Equity != 110000 {
		t.Fatalf("equity = %v, want 110000", snapshot.Equity)
	}
	if got := snapshot.TotalReturn; got < 0.0999 || got > 0.1001 {
		t.Fatalf("total return = %v, want 0.10", got)
	}
}

func TestEntrySkippedWhenQuantityBelowOne(t *testing.T) {
	pt := NewPaperTrade("PT2", "ST1", "U1", "BRK", decimal.NewFromInt(100), 0.5)
	// 50% 仓位资金 50 买不起价格 1000 的一股
	changed, err := pt.Tick(barAt(2, 1000), barAt(1, 1000), signalEvaluator{entry: true})
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if changed || len(pt.Positions) != 0 {
		t.Fatal("entry should be skipped when affordable quantity < 1")
	}
}
