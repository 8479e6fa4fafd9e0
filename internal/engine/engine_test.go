package engine

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"cdx-overlay-lab/internal/domain"
)

// series builds a daily series starting 2024-01-01.
func series(values ...float64) []domain.SeriesPoint {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]domain.SeriesPoint, len(values))
	for i, v := range values {
		out[i] = domain.SeriesPoint{Date: base.AddDate(0, 0, i), Value: v}
	}
	return out
}

// testConfig returns a frictionless config for position-logic tests.
func testConfig() domain.BacktestConfig {
	return domain.BacktestConfig{
		EntryThreshold:     1.5,
		ExitThreshold:      0.5,
		PositionSize:       1.0,
		TransactionCostBps: 0.0,
		DV01PerMillion:     1.0,
	}
}

func TestRun_ConcreteScenario(t *testing.T) {
	// Enters long at step 2 (2.0 > 1.5), exits at step 4 (|0.3| < 0.5).
	signal := series(0, 0, 2.0, 2.0, 0.3, 0.3)
	spread := series(100, 100, 100, 95, 95, 95)

	result, err := Run(signal, spread, testConfig())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	wantPositions := []domain.Position{0, 0, 1, 1, 0, 0}
	for i, want := range wantPositions {
		if got := result.Positions[i].Position; got != want {
			t.Errorf("position[%d] = %d, want %d", i, got, want)
		}
	}

	// Step 3: pre-update position is long, spread drops 100 -> 95, long
	// profits from tightening.
	if got := result.PnL[3].SpreadPnL; got != 5.0 {
		t.Errorf("spread_pnl[3] = %v, want 5.0", got)
	}

	// Step 4: exit day. The pre-update position is still long; the spread
	// did not move, so exit-day P&L is zero but attributed correctly.
	if got := result.PnL[4].SpreadPnL; got != 0.0 {
		t.Errorf("spread_pnl[4] = %v, want 0.0", got)
	}

	if result.Summary.TradeCount != 1 {
		t.Errorf("trade count = %d, want 1", result.Summary.TradeCount)
	}
	if result.Summary.TotalPnL != 5.0 {
		t.Errorf("total pnl = %v, want 5.0", result.Summary.TotalPnL)
	}
}

func TestRun_EmptyInput(t *testing.T) {
	result, err := Run(nil, nil, testConfig())
	if err != nil {
		t.Fatalf("empty input should not error, got %v", err)
	}
	if len(result.Positions) != 0 || len(result.PnL) != 0 {
		t.Errorf("expected empty output, got %d positions, %d pnl records",
			len(result.Positions), len(result.PnL))
	}
	if result.Summary.Steps != 0 || result.Summary.TradeCount != 0 {
		t.Errorf("expected zeroed summary, got %+v", result.Summary)
	}
}

func TestRun_AllMissingSignalStaysFlat(t *testing.T) {
	nan := math.NaN()
	signal := series(nan, nan, nan, nan)
	spread := series(100, 101, 102, 103)

	result, err := Run(signal, spread, testConfig())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	for i, p := range result.Positions {
		if p.Position != domain.PositionFlat {
			t.Errorf("position[%d] = %d, want flat", i, p.Position)
		}
	}
	if result.Summary.MissingSignals != 4 {
		t.Errorf("missing signals = %d, want 4", result.Summary.MissingSignals)
	}
	if result.Summary.TotalPnL != 0 {
		t.Errorf("total pnl = %v, want 0", result.Summary.TotalPnL)
	}
}

func TestRun_MissingSignalHoldsPosition(t *testing.T) {
	nan := math.NaN()
	// Entry at step 0, then two missing steps: the position is held and
	// days-held keeps advancing.
	signal := series(2.0, nan, nan, 0.1)
	spread := series(100, 99, 98, 97)

	result, err := Run(signal, spread, testConfig())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	wantPositions := []domain.Position{1, 1, 1, 0}
	wantDaysHeld := []int{1, 2, 3, 0}
	for i := range wantPositions {
		if got := result.Positions[i].Position; got != wantPositions[i] {
			t.Errorf("position[%d] = %d, want %d", i, got, wantPositions[i])
		}
		if got := result.Positions[i].DaysHeld; got != wantDaysHeld[i] {
			t.Errorf("days_held[%d] = %d, want %d", i, got, wantDaysHeld[i])
		}
	}
}

func TestRun_ThresholdTiesAreNotTriggers(t *testing.T) {
	cfg := testConfig()

	// Signal exactly at entry threshold: no entry.
	result, err := Run(series(1.5, 1.5), series(100, 100), cfg)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	for i, p := range result.Positions {
		if p.Position != domain.PositionFlat {
			t.Errorf("position[%d] = %d, want flat on entry tie", i, p.Position)
		}
	}

	// Enter, then signal exactly at exit threshold: no exit.
	result, err = Run(series(2.0, 0.5, 0.5), series(100, 100, 100), cfg)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	for i, p := range result.Positions {
		if p.Position != domain.PositionLong {
			t.Errorf("position[%d] = %d, want long on exit tie", i, p.Position)
		}
	}
}

func TestRun_ShortEntry(t *testing.T) {
	signal := series(-2.0, -2.0, 0.0)
	spread := series(100, 105, 105)

	result, err := Run(signal, spread, testConfig())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.Positions[0].Position != domain.PositionShort {
		t.Fatalf("position[0] = %d, want short", result.Positions[0].Position)
	}
	// Short credit profits when spreads widen: 100 -> 105 held short.
	if got := result.PnL[1].SpreadPnL; got != 5.0 {
		t.Errorf("spread_pnl[1] = %v, want 5.0", got)
	}
}

func TestRun_MaxHoldingForcedExitCapturesExitDayPnL(t *testing.T) {
	// Regression against the classic off-by-one: the exit-day move must be
	// attributed to the position being closed.
	cfg := testConfig()
	maxDays := 2
	cfg.MaxHoldingDays = &maxDays

	// Strong signal throughout: only the holding limit can force the exit.
	signal := series(2.0, 2.0, 2.0, 2.0, 2.0)
	spread := series(100, 100, 100, 90, 90)

	result, err := Run(signal, spread, cfg)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	// Entry at step 0 (days_held=1), step 1 holds (days_held=2), step 2
	// hits the limit and exits, step 3 re-enters immediately.
	wantPositions := []domain.Position{1, 1, 0, 1, 1}
	for i, want := range wantPositions {
		if got := result.Positions[i].Position; got != want {
			t.Errorf("position[%d] = %d, want %d", i, got, want)
		}
	}

	// Step 3 re-enters from flat, so the pre-update position is flat and
	// the 100 -> 90 move is not attributed to the new trade.
	if got := result.PnL[3].SpreadPnL; got != 0.0 {
		t.Errorf("spread_pnl[3] = %v, want 0.0", got)
	}

	// Forced exit with a same-day move: shift the drop to the exit step.
	spread = series(100, 100, 90, 90, 90)
	result, err = Run(signal, spread, cfg)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := result.PnL[2].SpreadPnL; got != 10.0 {
		t.Errorf("exit-day spread_pnl = %v, want 10.0", got)
	}
	if got := result.PnL[2].NetPnL; got == 0.0 {
		t.Error("exit-day net pnl must be non-zero when the spread moved")
	}
}

func TestRun_TransactionCostPlacement(t *testing.T) {
	cfg := testConfig()
	cfg.TransactionCostBps = 2.0
	cfg.PositionSize = 10.0

	signal := series(0, 2.0, 2.0, 0.1, 0)
	spread := series(100, 100, 100, 100, 100)

	result, err := Run(signal, spread, cfg)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	wantCost := 2.0 * 10.0 * 100.0 // bps x size x $100/bp/MM
	prev := domain.PositionFlat
	for i, p := range result.Positions {
		changed := p.Position != prev
		cost := result.PnL[i].TransactionCost
		if changed && cost != wantCost {
			t.Errorf("cost[%d] = %v, want %v on position change", i, cost, wantCost)
		}
		if !changed && cost != 0 {
			t.Errorf("cost[%d] = %v, want 0 without position change", i, cost)
		}
		prev = p.Position
	}
}

func TestRun_CumulativeConsistency(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	values := make([]float64, 300)
	spreads := make([]float64, 300)
	level := 100.0
	for i := range values {
		values[i] = rng.NormFloat64() * 2
		level += rng.NormFloat64()
		spreads[i] = level
	}

	cfg := testConfig()
	cfg.TransactionCostBps = 1.0
	result, err := Run(series(values...), series(spreads...), cfg)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.PnL[0].CumulativePnL != result.PnL[0].NetPnL {
		t.Errorf("cumulative[0] = %v, want net[0] = %v",
			result.PnL[0].CumulativePnL, result.PnL[0].NetPnL)
	}
	for i := 1; i < len(result.PnL); i++ {
		want := result.PnL[i-1].CumulativePnL + result.PnL[i].NetPnL
		if math.Abs(result.PnL[i].CumulativePnL-want) > 1e-9 {
			t.Fatalf("cumulative[%d] = %v, want %v", i, result.PnL[i].CumulativePnL, want)
		}
	}
}

func TestRun_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	values := make([]float64, 200)
	spreads := make([]float64, 200)
	for i := range values {
		values[i] = rng.NormFloat64() * 2
		spreads[i] = 100 + rng.NormFloat64()*5
	}
	signal, spread := series(values...), series(spreads...)

	first, err := Run(signal, spread, testConfig())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	second, err := Run(signal, spread, testConfig())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	for i := range first.Positions {
		if first.Positions[i] != second.Positions[i] {
			t.Fatalf("positions diverge at %d", i)
		}
		if first.PnL[i] != second.PnL[i] {
			t.Fatalf("pnl diverges at %d", i)
		}
	}
}

func TestRun_NoLookAhead(t *testing.T) {
	signal := series(0, 2.0, 2.0, 0.3, 0, 0)
	spread := series(100, 100, 95, 95, 95, 95)

	base, err := Run(signal, spread, testConfig())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	// Perturb everything after step 2: nothing at or before step 2 may change.
	cut := 2
	perturbedSignal := series(0, 2.0, 2.0, -9, 9, -9)
	perturbedSpread := series(100, 100, 95, 200, 300, 400)

	perturbed, err := Run(perturbedSignal, perturbedSpread, testConfig())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	for i := 0; i <= cut; i++ {
		if base.Positions[i] != perturbed.Positions[i] {
			t.Errorf("position[%d] changed under future perturbation", i)
		}
		if base.PnL[i] != perturbed.PnL[i] {
			t.Errorf("pnl[%d] changed under future perturbation", i)
		}
	}
}

func TestRun_SingleStep(t *testing.T) {
	result, err := Run(series(2.0), series(100), testConfig())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Positions[0].Position != domain.PositionLong {
		t.Errorf("position[0] = %d, want long", result.Positions[0].Position)
	}
	// No prior reference level: first-step spread P&L is zero by convention.
	if result.PnL[0].SpreadPnL != 0 {
		t.Errorf("spread_pnl[0] = %v, want 0", result.PnL[0].SpreadPnL)
	}
}

func TestRun_PreconditionErrors(t *testing.T) {
	cfg := testConfig()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		signal  []domain.SeriesPoint
		spread  []domain.SeriesPoint
		wantErr error
	}{
		{
			name:    "length mismatch",
			signal:  series(0, 0, 0),
			spread:  series(100, 100),
			wantErr: ErrLengthMismatch,
		},
		{
			name:   "index mismatch",
			signal: series(0, 0),
			spread: []domain.SeriesPoint{
				{Date: base, Value: 100},
				{Date: base.AddDate(0, 0, 2), Value: 100},
			},
			wantErr: ErrIndexMismatch,
		},
		{
			name: "non-monotonic index",
			signal: []domain.SeriesPoint{
				{Date: base, Value: 0},
				{Date: base, Value: 0},
			},
			spread: []domain.SeriesPoint{
				{Date: base, Value: 100},
				{Date: base, Value: 100},
			},
			wantErr: ErrNonMonotonicIndex,
		},
		{
			name:    "missing reference",
			signal:  series(0, 0),
			spread:  series(100, math.NaN()),
			wantErr: ErrMissingReference,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Run(tc.signal, tc.spread, cfg)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("got err %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestConfigValidation(t *testing.T) {
	hold := 10
	badHold := 0

	tests := []struct {
		name    string
		mutate  func(*domain.BacktestConfig)
		wantErr error
	}{
		{"valid default", func(c *domain.BacktestConfig) {}, nil},
		{"valid with holding limit", func(c *domain.BacktestConfig) { c.MaxHoldingDays = &hold }, nil},
		{"entry equals exit", func(c *domain.BacktestConfig) { c.ExitThreshold = c.EntryThreshold }, domain.ErrThresholdOrder},
		{"entry below exit", func(c *domain.BacktestConfig) { c.ExitThreshold = c.EntryThreshold + 1 }, domain.ErrThresholdOrder},
		{"zero entry", func(c *domain.BacktestConfig) { c.EntryThreshold = 0 }, domain.ErrNonPositiveEntry},
		{"negative exit", func(c *domain.BacktestConfig) { c.ExitThreshold = -0.5 }, domain.ErrNegativeExit},
		{"zero size", func(c *domain.BacktestConfig) { c.PositionSize = 0 }, domain.ErrNonPositiveSize},
		{"negative cost", func(c *domain.BacktestConfig) { c.TransactionCostBps = -1 }, domain.ErrNegativeCost},
		{"zero holding limit", func(c *domain.BacktestConfig) { c.MaxHoldingDays = &badHold }, domain.ErrNonPositiveHold},
		{"zero dv01", func(c *domain.BacktestConfig) { c.DV01PerMillion = 0 }, domain.ErrNonPositiveDV01},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := domain.DefaultBacktestConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("got err %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestConfigValidation_RandomInvalidThresholds(t *testing.T) {
	// Any config with exit_threshold >= entry_threshold must be rejected:
	// hysteresis is a construction-time guarantee, not a per-step check.
	rng := rand.New(rand.NewSource(99))
	for i := 0; i < 200; i++ {
		entry := rng.Float64() * 3
		exit := entry + rng.Float64()*2 // >= entry
		cfg := domain.DefaultBacktestConfig()
		cfg.EntryThreshold = entry
		cfg.ExitThreshold = exit
		if err := cfg.Validate(); err == nil {
			t.Fatalf("config entry=%v exit=%v accepted, want rejection", entry, exit)
		}
	}
}
