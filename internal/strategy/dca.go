package strategy

import (
	"errors"
	"time"

	"go.uber.org/zap"
)

var errInvalidInterval = errors.New("interval_hours must be greater than 0")

// DCA buys a fixed notional amount at a fixed interval, subject to a
// cumulative investment cap. Once enough history exists the buy is
// skipped unless the price sits below the trailing average.
type DCA struct {
	name    string
	symbol  string
	enabled bool
	params  map[string]any
	log     *zap.Logger

	investmentAmount  float64
	interval          time.Duration
	maxInvestment     float64
	lookback          int
	lastBuy           time.Time
	currentInvestment float64
	priceHistory      []float64

	now func() time.Time
}

func NewDCA(name, symbol string, log *zap.Logger) *DCA {
	return &DCA{
		name:             name,
		symbol:           symbol,
		enabled:          true,
		params:           make(map[string]any),
		log:              log,
		investmentAmount: 100,
		interval:         24 * time.Hour,
		maxInvestment:    10000,
		lookback:         20,
		now:              time.Now,
	}
}

func (d *DCA) Name() string   { return d.name }
func (d *DCA) Symbol() string { return d.symbol }
func (d *DCA) Enabled() bool  { return d.enabled }

func (d *DCA) Analyze(q Quote) *Signal {
	if !d.enabled || q.Price <= 0 {
		return nil
	}
	var sig *Signal
	if d.shouldBuy(q) {
		confidence := d.confidence(q)
		sig = &Signal{
			Strategy:   d.name,
			Symbol:     d.symbol,
			Action:     ActionBuy,
			Quantity:   d.investmentAmount / q.Price,
			LimitPrice: q.Price,
			HasLimit:   true,
			Confidence: confidence,
			Metadata: map[string]any{
				"investment_amount":  d.investmentAmount,
				"current_investment": d.currentInvestment,
				"interval":           d.interval.String(),
			},
		}
		d.log.Debug("dca signal",
			zap.String("strategy", d.name),
			zap.String("symbol", d.symbol),
			zap.Float64("price", q.Price),
			zap.Float64("confidence", confidence),
		)
	}
	// History commits after evaluation so the trailing average never
	// includes the quote being decided on.
	d.priceHistory = append(d.priceHistory, q.Price)
	d.priceHistory = trimHistory(d.priceHistory, d.lookback*2, d.lookback)
	return sig
}

func (d *DCA) shouldBuy(q Quote) bool {
	if !d.lastBuy.IsZero() && d.now().Sub(d.lastBuy) < d.interval {
		return false
	}
	if d.currentInvestment >= d.maxInvestment {
		return false
	}
	avg, ok := d.trailingAverage()
	if !ok {
		return true // bootstrap period
	}
	return q.Price < avg
}

func (d *DCA) trailingAverage() (float64, bool) {
	if len(d.priceHistory) < d.lookback {
		return 0, false
	}
	window := d.priceHistory[len(d.priceHistory)-d.lookback:]
	var sum float64
	for _, p := range window {
		sum += p
	}
	return sum / float64(len(window)), true
}

func (d *DCA) confidence(q Quote) float64 {
	avg, ok := d.trailingAverage()
	if !ok {
		return 0.5
	}
	ratio := q.Price / avg
	switch {
	case ratio < 0.95:
		return 0.8
	case ratio < 0.98:
		return 0.6
	default:
		return 0.4
	}
}

// RecordBuy commits a successful execution: stamps the interval clock and
// adds the invested notional toward the cap.
func (d *DCA) RecordBuy(notional float64) {
	d.lastBuy = d.now()
	d.currentInvestment += notional
}

func (d *DCA) ResetInvestment() {
	d.currentInvestment = 0
	d.lastBuy = time.Time{}
}

// InvestedState reports the persisted slice of the strategy's state.
func (d *DCA) InvestedState() (invested float64, lastBuy time.Time) {
	return d.currentInvestment, d.lastBuy
}

func (d *DCA) RestoreInvestedState(invested float64, lastBuy time.Time) {
	d.currentInvestment = invested
	d.lastBuy = lastBuy
}

func (d *DCA) UpdateParameters(params map[string]any) error {
	if err := d.ValidateParameters(params); err != nil {
		return err
	}
	for key, value := range params {
		switch key {
		case "investment_amount":
			if amount, ok := paramFloat(value); ok {
				d.investmentAmount = amount
			}
		case "interval_hours":
			if hours, ok := paramInt(value); ok {
				d.interval = time.Duration(hours) * time.Hour
			}
		case "max_investment":
			if max, ok := paramFloat(value); ok {
				d.maxInvestment = max
			}
		case "lookback_period":
			if period, ok := paramInt(value); ok {
				d.lookback = period
			}
		default:
			d.log.Debug("unknown dca parameter", zap.String("key", key))
		}
	}
	d.params = cloneParams(params)
	return nil
}

func (d *DCA) Parameters() map[string]any {
	return cloneParams(d.params)
}

func (d *DCA) ValidateParameters(params map[string]any) error {
	for key, value := range params {
		switch key {
		case "investment_amount", "max_investment":
			if err := validatePositiveAmount(key, value); err != nil {
				return err
			}
		case "interval_hours":
			if hours, ok := paramInt(value); !ok || hours <= 0 {
				return errInvalidInterval
			}
		case "lookback_period":
			if err := validatePeriod(key, value); err != nil {
				return err
			}
		}
	}
	return nil
}
