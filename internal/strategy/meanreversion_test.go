package strategy

import (
	"math"
	"testing"

	"go.uber.org/zap"
)

func fillReversionHistory(r *MeanReversion, price float64, n int) {
	for i := 0; i < n; i++ {
		r.Analyze(Quote{Symbol: "BTC", Price: price})
	}
}

func TestMeanReversionNoSignalBeforeLookback(t *testing.T) {
	r := NewMeanReversion("rev", "BTC", zap.NewNop())
	for i := 0; i < 19; i++ {
		if sig := r.Analyze(Quote{Symbol: "BTC", Price: 100}); sig != nil {
			t.Fatalf("expected no signal with %d quotes", i+1)
		}
	}
}

func TestMeanReversionBuyBelowAverage(t *testing.T) {
	r := NewMeanReversion("rev", "BTC", zap.NewNop())
	fillReversionHistory(r, 100, 20)

	// The deviating quote enters the window before evaluation, so the
	// average shifts slightly toward it.
	sig := r.Analyze(Quote{Symbol: "BTC", Price: 95})
	if sig == nil {
		t.Fatal("expected buy signal")
	}
	if sig.Action != ActionBuy {
		t.Fatalf("expected buy, got %s", sig.Action)
	}
	avg := (19*100.0 + 95) / 20
	wantDev := (95 - avg) / avg * 100
	wantConf := math.Abs(wantDev) / 10
	if math.Abs(sig.Confidence-wantConf) > 1e-9 {
		t.Fatalf("expected confidence %f, got %f", wantConf, sig.Confidence)
	}
}

func TestMeanReversionSellAboveAverage(t *testing.T) {
	r := NewMeanReversion("rev", "BTC", zap.NewNop())
	fillReversionHistory(r, 100, 20)

	sig := r.Analyze(Quote{Symbol: "BTC", Price: 105})
	if sig == nil {
		t.Fatal("expected sell signal")
	}
	if sig.Action != ActionSell {
		t.Fatalf("expected sell, got %s", sig.Action)
	}
}

func TestMeanReversionHoldsInsideBand(t *testing.T) {
	r := NewMeanReversion("rev", "BTC", zap.NewNop())
	fillReversionHistory(r, 100, 20)

	if sig := r.Analyze(Quote{Symbol: "BTC", Price: 101}); sig != nil {
		t.Fatal("expected no signal inside the deviation band")
	}
}

func TestMeanReversionConfidenceCap(t *testing.T) {
	r := NewMeanReversion("rev", "BTC", zap.NewNop())
	fillReversionHistory(r, 100, 20)

	sig := r.Analyze(Quote{Symbol: "BTC", Price: 60})
	if sig == nil {
		t.Fatal("expected signal on extreme deviation")
	}
	if sig.Confidence != 0.95 {
		t.Fatalf("expected capped confidence 0.95, got %f", sig.Confidence)
	}
}

func TestMeanReversionValidateParameters(t *testing.T) {
	r := NewMeanReversion("rev", "BTC", zap.NewNop())
	if err := r.UpdateParameters(map[string]any{"deviation_pct": 0.0}); err == nil {
		t.Fatal("expected error for zero deviation")
	}
	if err := r.UpdateParameters(map[string]any{"lookback_period": 10, "position_size": 250.0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.lookback != 10 || r.positionSize != 250 {
		t.Fatalf("parameters not applied: %d %f", r.lookback, r.positionSize)
	}
}
