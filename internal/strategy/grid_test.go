package strategy

import (
	"math"
	"testing"

	"go.uber.org/zap"
)

func TestGridInitializeBuildsLadder(t *testing.T) {
	g := NewGrid("grid", "ETH", zap.NewNop())
	g.InitializeWithPrice(100)

	if len(g.levels) != 20 {
		t.Fatalf("expected 20 levels, got %d", len(g.levels))
	}
	for _, lvl := range g.levels {
		want := 100 * (1 + float64(lvl.Index)/100)
		if math.Abs(lvl.Price-want) > 1e-9 {
			t.Fatalf("level %d: expected price %f, got %f", lvl.Index, want, lvl.Price)
		}
		if lvl.Filled {
			t.Fatalf("level %d: expected unfilled", lvl.Index)
		}
	}
}

func TestGridNoSignalBeforeInit(t *testing.T) {
	g := NewGrid("grid", "ETH", zap.NewNop())
	if sig := g.Analyze(Quote{Symbol: "ETH", Price: 100}); sig != nil {
		t.Fatal("expected no signal before initialization")
	}
}

func TestGridBuyAtNearestLevel(t *testing.T) {
	g := NewGrid("grid", "ETH", zap.NewNop())
	g.InitializeWithPrice(100)

	sig := g.Analyze(Quote{Symbol: "ETH", Price: 98.5})
	if sig == nil {
		t.Fatal("expected buy signal")
	}
	if sig.Action != ActionBuy {
		t.Fatalf("expected buy, got %s", sig.Action)
	}
	if sig.LimitPrice != 99 {
		t.Fatalf("expected limit at first buy level 99, got %f", sig.LimitPrice)
	}
	idx, ok := sig.Metadata["grid_level"].(int)
	if !ok || idx != -1 {
		t.Fatalf("expected grid_level -1, got %v", sig.Metadata["grid_level"])
	}
}

func TestGridSellAtNearestLevel(t *testing.T) {
	g := NewGrid("grid", "ETH", zap.NewNop())
	g.InitializeWithPrice(100)

	sig := g.Analyze(Quote{Symbol: "ETH", Price: 101.5})
	if sig == nil {
		t.Fatal("expected sell signal")
	}
	if sig.Action != ActionSell {
		t.Fatalf("expected sell, got %s", sig.Action)
	}
	if sig.LimitPrice != 101 {
		t.Fatalf("expected limit at first sell level 101, got %f", sig.LimitPrice)
	}
}

func TestGridLevelFillsOnce(t *testing.T) {
	g := NewGrid("grid", "ETH", zap.NewNop())
	g.InitializeWithPrice(100)

	g.MarkLevelFilled(-1)
	if sig := g.Analyze(Quote{Symbol: "ETH", Price: 98.5}); sig != nil {
		t.Fatal("expected no signal with level -1 filled and -2 below price")
	}
	sig := g.Analyze(Quote{Symbol: "ETH", Price: 97.5})
	if sig == nil {
		t.Fatal("expected buy at level -2")
	}
	if idx := sig.Metadata["grid_level"].(int); idx != -2 {
		t.Fatalf("expected grid_level -2, got %d", idx)
	}
}

func TestGridInvestmentCap(t *testing.T) {
	g := NewGrid("grid", "ETH", zap.NewNop())
	if err := g.UpdateParameters(map[string]any{"position_size": 100.0, "max_investment": 150.0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g.InitializeWithPrice(100)

	g.MarkLevelFilled(-1)
	if g.totalInvestment != 100 {
		t.Fatalf("expected investment 100, got %f", g.totalInvestment)
	}
	if sig := g.Analyze(Quote{Symbol: "ETH", Price: 97.5}); sig == nil {
		t.Fatal("expected buy while under the cap")
	}
	g.MarkLevelFilled(-2)
	if sig := g.Analyze(Quote{Symbol: "ETH", Price: 96.5}); sig != nil {
		t.Fatal("expected no buy at the cap")
	}
	// Sells are not capped.
	if sig := g.Analyze(Quote{Symbol: "ETH", Price: 101.5}); sig == nil {
		t.Fatal("expected sell at the cap")
	}
}

func TestGridSellFillsDoNotCountInvestment(t *testing.T) {
	g := NewGrid("grid", "ETH", zap.NewNop())
	g.InitializeWithPrice(100)
	g.MarkLevelFilled(2)
	if g.totalInvestment != 0 {
		t.Fatalf("expected zero investment after sell fill, got %f", g.totalInvestment)
	}
}

func TestGridConfidenceScalesWithDeviation(t *testing.T) {
	for _, tc := range []struct {
		spacing float64
		want    float64
	}{
		{1, 0.5},
		{3, 0.7},
		{6, 0.9},
	} {
		g := NewGrid("grid", "ETH", zap.NewNop())
		if err := g.UpdateParameters(map[string]any{"grid_spacing": tc.spacing}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		g.InitializeWithPrice(100)
		sig := g.Analyze(Quote{Symbol: "ETH", Price: 100 * (1 - tc.spacing/100) * 0.999})
		if sig == nil {
			t.Fatalf("spacing %f: expected signal", tc.spacing)
		}
		if sig.Confidence != tc.want {
			t.Fatalf("spacing %f: expected confidence %f, got %f", tc.spacing, tc.want, sig.Confidence)
		}
	}
}

func TestGridStateRoundTrip(t *testing.T) {
	g := NewGrid("grid", "ETH", zap.NewNop())
	g.InitializeWithPrice(100)
	g.MarkLevelFilled(-1)
	g.MarkLevelFilled(3)

	base, filled, invested := g.FilledState()

	restored := NewGrid("grid", "ETH", zap.NewNop())
	restored.RestoreFilledState(base, filled, invested)
	if restored.basePrice != 100 {
		t.Fatalf("expected base 100, got %f", restored.basePrice)
	}
	if restored.totalInvestment != invested {
		t.Fatalf("expected investment %f, got %f", invested, restored.totalInvestment)
	}
	_, restoredFilled, _ := restored.FilledState()
	if len(restoredFilled) != 2 {
		t.Fatalf("expected 2 filled levels, got %v", restoredFilled)
	}
}

func TestGridReset(t *testing.T) {
	g := NewGrid("grid", "ETH", zap.NewNop())
	g.InitializeWithPrice(100)
	g.MarkLevelFilled(-1)
	g.Reset()
	if g.Initialized() {
		t.Fatal("expected uninitialized after reset")
	}
	if g.totalInvestment != 0 {
		t.Fatalf("expected zero investment after reset, got %f", g.totalInvestment)
	}
}

func TestGridValidateParameters(t *testing.T) {
	g := NewGrid("grid", "ETH", zap.NewNop())
	if err := g.UpdateParameters(map[string]any{"max_levels": 51}); err == nil {
		t.Fatal("expected error for max_levels above 50")
	}
	if err := g.UpdateParameters(map[string]any{"grid_spacing": 60.0}); err == nil {
		t.Fatal("expected error for spacing above 50")
	}
}
