package strategy

import (
	"math"

	"go.uber.org/zap"
)

// MeanReversion trades deviations from a trailing simple average: buy
// when price sits below the average by more than the threshold, sell
// when above. Confidence is the deviation measured against a fixed
// maximum-deviation reference, capped at 0.95.
type MeanReversion struct {
	name    string
	symbol  string
	enabled bool
	params  map[string]any
	log     *zap.Logger

	lookback        int
	deviationPct    float64
	maxDeviationPct float64
	positionSize    float64

	priceHistory []float64
}

func NewMeanReversion(name, symbol string, log *zap.Logger) *MeanReversion {
	return &MeanReversion{
		name:            name,
		symbol:          symbol,
		enabled:         true,
		params:          make(map[string]any),
		log:             log,
		lookback:        20,
		deviationPct:    2,
		maxDeviationPct: 10,
		positionSize:    100,
	}
}

func (r *MeanReversion) Name() string   { return r.name }
func (r *MeanReversion) Symbol() string { return r.symbol }
func (r *MeanReversion) Enabled() bool  { return r.enabled }

func (r *MeanReversion) Analyze(q Quote) *Signal {
	if !r.enabled || q.Price <= 0 {
		return nil
	}
	// Commit first, evaluate second; no clone-and-peek.
	r.priceHistory = append(r.priceHistory, q.Price)
	r.priceHistory = trimHistory(r.priceHistory, r.lookback*2, r.lookback)

	if len(r.priceHistory) < r.lookback {
		return nil
	}
	window := r.priceHistory[len(r.priceHistory)-r.lookback:]
	var sum float64
	for _, p := range window {
		sum += p
	}
	avg := sum / float64(len(window))
	if avg <= 0 {
		return nil
	}

	deviation := (q.Price - avg) / avg * 100
	if math.Abs(deviation) <= r.deviationPct {
		return nil
	}
	action := ActionBuy
	if deviation > 0 {
		action = ActionSell
	}
	confidence := math.Abs(deviation) / r.maxDeviationPct
	if confidence > 0.95 {
		confidence = 0.95
	}
	r.log.Debug("mean reversion signal",
		zap.String("strategy", r.name),
		zap.String("symbol", r.symbol),
		zap.String("action", string(action)),
		zap.Float64("deviation_pct", deviation),
		zap.Float64("confidence", confidence),
	)
	return &Signal{
		Strategy:   r.name,
		Symbol:     r.symbol,
		Action:     action,
		Quantity:   r.positionSize / q.Price,
		LimitPrice: q.Price,
		HasLimit:   true,
		Confidence: confidence,
		Metadata: map[string]any{
			"trailing_average": avg,
			"deviation_pct":    deviation,
			"lookback":         r.lookback,
		},
	}
}

func (r *MeanReversion) UpdateParameters(params map[string]any) error {
	if err := r.ValidateParameters(params); err != nil {
		return err
	}
	for key, value := range params {
		switch key {
		case "lookback_period":
			if period, ok := paramInt(value); ok {
				r.lookback = period
			}
		case "deviation_pct":
			if pct, ok := paramFloat(value); ok {
				r.deviationPct = pct
			}
		case "max_deviation_pct":
			if pct, ok := paramFloat(value); ok {
				r.maxDeviationPct = pct
			}
		case "position_size":
			if size, ok := paramFloat(value); ok {
				r.positionSize = size
			}
		default:
			r.log.Debug("unknown mean reversion parameter", zap.String("key", key))
		}
	}
	r.params = cloneParams(params)
	return nil
}

func (r *MeanReversion) Parameters() map[string]any {
	return cloneParams(r.params)
}

func (r *MeanReversion) ValidateParameters(params map[string]any) error {
	for key, value := range params {
		switch key {
		case "lookback_period":
			if err := validatePeriod(key, value); err != nil {
				return err
			}
		case "deviation_pct", "max_deviation_pct":
			if err := validatePercent(key, value); err != nil {
				return err
			}
		case "position_size":
			if err := validatePositiveAmount(key, value); err != nil {
				return err
			}
		}
	}
	return nil
}
