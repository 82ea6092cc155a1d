package strategy

import (
	"math"
	"testing"

	"go.uber.org/zap"
)

// zigzagUp feeds a climbing +2/-1 price pattern. It keeps RSI inside the
// neutral band while the moving averages order bullishly, so only the
// price_above_ma condition fires.
func zigzagUp(m *Momentum, start float64, steps int, volume float64) float64 {
	price := start
	for i := 1; i <= steps; i++ {
		if i%2 == 1 {
			price += 2
		} else {
			price -= 1
		}
		m.Analyze(Quote{Symbol: "SOL", Price: price, Volume24h: volume})
	}
	return price
}

func TestMomentumNoSignalBeforeSlowPeriod(t *testing.T) {
	m := NewMomentum("momentum", "SOL", zap.NewNop())
	for i := 0; i < 25; i++ {
		if sig := m.Analyze(Quote{Symbol: "SOL", Price: 100 + float64(i)}); sig != nil {
			t.Fatalf("expected no signal with %d quotes", i+1)
		}
	}
}

func TestMomentumDefaultThresholdUnreachable(t *testing.T) {
	// With the degenerate MACD signal line, the reachable conditions sum
	// to 0.5, below the default 0.6 minimum.
	m := NewMomentum("momentum", "SOL", zap.NewNop())
	price := zigzagUp(m, 100, 60, 1000)
	if sig := m.Analyze(Quote{Symbol: "SOL", Price: price + 2, Volume24h: 10000}); sig != nil {
		t.Fatalf("expected no signal at default min confidence, got %+v", sig)
	}
}

func TestMomentumBuyOnTrendAndSurge(t *testing.T) {
	m := NewMomentum("momentum", "SOL", zap.NewNop())
	if err := m.UpdateParameters(map[string]any{"min_confidence": 0.3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	price := zigzagUp(m, 100, 60, 1000)

	sig := m.Analyze(Quote{Symbol: "SOL", Price: price + 2, Volume24h: 10000})
	if sig == nil {
		t.Fatal("expected buy signal")
	}
	if sig.Action != ActionBuy {
		t.Fatalf("expected buy, got %s", sig.Action)
	}
	if math.Abs(sig.Confidence-0.3) > 1e-9 {
		t.Fatalf("expected confidence 0.3 (trend + surge), got %f", sig.Confidence)
	}
	wantQty := 100 * sig.Confidence / (price + 2)
	if math.Abs(sig.Quantity-wantQty) > 1e-9 {
		t.Fatalf("expected confidence-scaled quantity %f, got %f", wantQty, sig.Quantity)
	}
}

func TestMomentumMinConfidenceInclusive(t *testing.T) {
	m := NewMomentum("momentum", "SOL", zap.NewNop())
	if err := m.UpdateParameters(map[string]any{"min_confidence": 0.2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	price := zigzagUp(m, 100, 60, 1000)

	// Without a volume surge only price_above_ma fires, exactly 0.2.
	sig := m.Analyze(Quote{Symbol: "SOL", Price: price + 2, Volume24h: 1000})
	if sig == nil {
		t.Fatal("expected signal exactly at the minimum confidence")
	}
	if math.Abs(sig.Confidence-0.2) > 1e-9 {
		t.Fatalf("expected confidence 0.2, got %f", sig.Confidence)
	}
}

func TestMomentumSellOnDowntrend(t *testing.T) {
	m := NewMomentum("momentum", "SOL", zap.NewNop())
	if err := m.UpdateParameters(map[string]any{"min_confidence": 0.2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	price := 500.0
	for i := 1; i <= 60; i++ {
		if i%2 == 1 {
			price -= 2
		} else {
			price += 1
		}
		m.Analyze(Quote{Symbol: "SOL", Price: price, Volume24h: 1000})
	}
	sig := m.Analyze(Quote{Symbol: "SOL", Price: price - 2, Volume24h: 1000})
	if sig == nil {
		t.Fatal("expected sell signal")
	}
	if sig.Action != ActionSell {
		t.Fatalf("expected sell, got %s", sig.Action)
	}
}

func TestMomentumValidateParameters(t *testing.T) {
	m := NewMomentum("momentum", "SOL", zap.NewNop())
	if err := m.UpdateParameters(map[string]any{"rsi_oversold": 120.0}); err == nil {
		t.Fatal("expected error for rsi level above 100")
	}
	if err := m.UpdateParameters(map[string]any{"min_confidence": 1.5}); err == nil {
		t.Fatal("expected error for confidence above 1")
	}
	if err := m.UpdateParameters(map[string]any{"fast_period": 101}); err == nil {
		t.Fatal("expected error for period above 100")
	}
}
