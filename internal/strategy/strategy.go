// Package strategy holds the trading strategy variants and the shared
// capability interface they implement. A strategy consumes one quote
// snapshot per cycle plus its own rolling history and either emits a
// signal or stays silent; bad or insufficient input degrades to
// "no signal", never to an error.
package strategy

import (
	"fmt"
	"strconv"
	"time"
)

type Action string

const (
	ActionBuy   Action = "buy"
	ActionSell  Action = "sell"
	ActionHold  Action = "hold"
	ActionClose Action = "close"
)

// Quote is an immutable market snapshot consumed by Analyze.
type Quote struct {
	Symbol    string
	Price     float64
	Volume24h float64
	Change24h float64
	High24h   float64
	Low24h    float64
	Timestamp time.Time
}

// Signal is a strategy's recommended action for one cycle. It is created
// fresh each evaluation and owned by the cycle that produced it.
type Signal struct {
	Strategy   string
	Symbol     string
	Action     Action
	Quantity   float64
	LimitPrice float64
	HasLimit   bool
	Confidence float64
	Metadata   map[string]any
}

type Strategy interface {
	Name() string
	Symbol() string
	Enabled() bool

	// Analyze evaluates one quote against the strategy's rolling state.
	// A nil result means no signal.
	Analyze(q Quote) *Signal

	// UpdateParameters replaces the parameter set wholesale. If any
	// recognized key fails validation the call is rejected and prior
	// state is left untouched. Unrecognized keys are stored but ignored.
	UpdateParameters(params map[string]any) error

	Parameters() map[string]any
	ValidateParameters(params map[string]any) error
}

// paramFloat coerces a parameter value to float64. Decimal strings are
// accepted because config files carry monetary amounts as strings.
func paramFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func paramInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case uint64:
		return int(x), true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

const maxPeriod = 100

func validatePeriod(key string, v any) error {
	period, ok := paramInt(v)
	if !ok {
		return fmt.Errorf("%s must be an integer", key)
	}
	if period <= 0 || period > maxPeriod {
		return fmt.Errorf("%s must be between 1 and %d", key, maxPeriod)
	}
	return nil
}

func validatePositiveAmount(key string, v any) error {
	amount, ok := paramFloat(v)
	if !ok {
		return fmt.Errorf("%s must be a number", key)
	}
	if amount <= 0 {
		return fmt.Errorf("%s must be positive", key)
	}
	return nil
}

func validatePercent(key string, v any) error {
	pct, ok := paramFloat(v)
	if !ok {
		return fmt.Errorf("%s must be a number", key)
	}
	if pct <= 0 || pct > 50 {
		return fmt.Errorf("%s must be between 0 and 50", key)
	}
	return nil
}

func validateConfidence(key string, v any) error {
	conf, ok := paramFloat(v)
	if !ok {
		return fmt.Errorf("%s must be a number", key)
	}
	if conf < 0 || conf > 1 {
		return fmt.Errorf("%s must be between 0 and 1", key)
	}
	return nil
}

func cloneParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}

// trimHistory evicts the oldest entries FIFO once the slice exceeds max,
// keeping the most recent keep entries.
func trimHistory(history []float64, max, keep int) []float64 {
	if len(history) <= max {
		return history
	}
	return append(history[:0], history[len(history)-keep:]...)
}
