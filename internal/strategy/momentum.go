package strategy

import (
	"errors"

	"go.uber.org/zap"

	"hl-strategy-bot/internal/indicator"
)

var errInvalidRSILevel = errors.New("rsi levels must be between 0 and 100")

// Momentum accumulates bounded price/volume history and scores a set of
// independent conditions each cycle. Every firing condition contributes a
// fixed confidence increment; the action follows whichever side counts
// more conditions, provided total confidence reaches the configured
// minimum (inclusive).
type Momentum struct {
	name    string
	symbol  string
	enabled bool
	params  map[string]any
	log     *zap.Logger

	fastPeriod    int
	slowPeriod    int
	signalPeriod  int
	rsiPeriod     int
	rsiOversold   float64
	rsiOverbought float64
	minConfidence float64
	baseNotional  float64

	priceHistory  []float64
	volumeHistory []float64
}

func NewMomentum(name, symbol string, log *zap.Logger) *Momentum {
	return &Momentum{
		name:          name,
		symbol:        symbol,
		enabled:       true,
		params:        make(map[string]any),
		log:           log,
		fastPeriod:    12,
		slowPeriod:    26,
		signalPeriod:  9,
		rsiPeriod:     14,
		rsiOversold:   30,
		rsiOverbought: 70,
		minConfidence: 0.6,
		baseNotional:  100,
	}
}

func (m *Momentum) Name() string   { return m.name }
func (m *Momentum) Symbol() string { return m.symbol }
func (m *Momentum) Enabled() bool  { return m.enabled }

func (m *Momentum) Analyze(q Quote) *Signal {
	if !m.enabled || q.Price <= 0 {
		return nil
	}
	// Commit the history update first, then evaluate over committed
	// state; the evaluation path never mutates.
	m.priceHistory = append(m.priceHistory, q.Price)
	m.volumeHistory = append(m.volumeHistory, q.Volume24h)
	max := m.slowPeriod * 2
	m.priceHistory = trimHistory(m.priceHistory, max, max)
	m.volumeHistory = trimHistory(m.volumeHistory, max, max)

	action, confidence, conditions := m.score()
	if action == "" {
		return nil
	}
	m.log.Debug("momentum signal",
		zap.String("strategy", m.name),
		zap.String("symbol", m.symbol),
		zap.String("action", string(action)),
		zap.Float64("confidence", confidence),
		zap.Strings("conditions", conditions),
	)
	return &Signal{
		Strategy:   m.name,
		Symbol:     m.symbol,
		Action:     action,
		Quantity:   m.positionSize(q.Price, confidence),
		LimitPrice: q.Price,
		HasLimit:   true,
		Confidence: confidence,
		Metadata: map[string]any{
			"fast_period": m.fastPeriod,
			"slow_period": m.slowPeriod,
			"rsi_period":  m.rsiPeriod,
			"conditions":  conditions,
		},
	}
}

func (m *Momentum) score() (Action, float64, []string) {
	if len(m.priceHistory) < m.slowPeriod {
		return "", 0, nil
	}
	macd, err := indicator.MACD(m.priceHistory, m.fastPeriod, m.slowPeriod, m.signalPeriod)
	if err != nil {
		return "", 0, nil
	}
	rsi, err := indicator.RSI(m.priceHistory, m.rsiPeriod)
	if err != nil {
		return "", 0, nil
	}
	fastSMA, err := indicator.SMA(m.priceHistory, m.fastPeriod)
	if err != nil {
		return "", 0, nil
	}
	slowSMA, err := indicator.SMA(m.priceHistory, m.slowPeriod)
	if err != nil {
		return "", 0, nil
	}

	var (
		conditions       []string
		confidence       float64
		bullish, bearish int
	)
	if macd.Line > macd.Signal && macd.Histogram > 0 {
		conditions = append(conditions, "macd_bullish")
		confidence += 0.3
		bullish++
	}
	if macd.Line < macd.Signal && macd.Histogram < 0 {
		conditions = append(conditions, "macd_bearish")
		confidence += 0.3
		bearish++
	}
	if rsi < m.rsiOversold {
		conditions = append(conditions, "rsi_oversold")
		confidence += 0.2
		bullish++
	}
	if rsi > m.rsiOverbought {
		conditions = append(conditions, "rsi_overbought")
		confidence += 0.2
		bearish++
	}
	current := m.priceHistory[len(m.priceHistory)-1]
	if current > fastSMA && fastSMA > slowSMA {
		conditions = append(conditions, "price_above_ma")
		confidence += 0.2
		bullish++
	} else if current < fastSMA && fastSMA < slowSMA {
		conditions = append(conditions, "price_below_ma")
		confidence += 0.2
		bearish++
	}
	if m.volumeSurge() {
		conditions = append(conditions, "volume_surge")
		confidence += 0.1
	}

	if confidence < m.minConfidence {
		return "", 0, nil
	}
	switch {
	case bullish > bearish:
		return ActionBuy, confidence, conditions
	case bearish > bullish:
		return ActionSell, confidence, conditions
	default:
		return "", 0, nil
	}
}

// volumeSurge fires when the latest volume exceeds 1.5x the trailing
// average.
func (m *Momentum) volumeSurge() bool {
	if len(m.volumeHistory) < 2 {
		return false
	}
	var sum float64
	for _, v := range m.volumeHistory {
		sum += v
	}
	avg := sum / float64(len(m.volumeHistory))
	return m.volumeHistory[len(m.volumeHistory)-1] > avg*1.5
}

// positionSize scales the base notional linearly with confidence.
func (m *Momentum) positionSize(price, confidence float64) float64 {
	return m.baseNotional * confidence / price
}

func (m *Momentum) UpdateParameters(params map[string]any) error {
	if err := m.ValidateParameters(params); err != nil {
		return err
	}
	for key, value := range params {
		switch key {
		case "fast_period":
			if period, ok := paramInt(value); ok {
				m.fastPeriod = period
			}
		case "slow_period":
			if period, ok := paramInt(value); ok {
				m.slowPeriod = period
			}
		case "signal_period":
			if period, ok := paramInt(value); ok {
				m.signalPeriod = period
			}
		case "rsi_period":
			if period, ok := paramInt(value); ok {
				m.rsiPeriod = period
			}
		case "rsi_oversold":
			if level, ok := paramFloat(value); ok {
				m.rsiOversold = level
			}
		case "rsi_overbought":
			if level, ok := paramFloat(value); ok {
				m.rsiOverbought = level
			}
		case "min_confidence":
			if conf, ok := paramFloat(value); ok {
				m.minConfidence = conf
			}
		case "base_notional":
			if amount, ok := paramFloat(value); ok {
				m.baseNotional = amount
			}
		default:
			m.log.Debug("unknown momentum parameter", zap.String("key", key))
		}
	}
	m.params = cloneParams(params)
	return nil
}

func (m *Momentum) Parameters() map[string]any {
	return cloneParams(m.params)
}

func (m *Momentum) ValidateParameters(params map[string]any) error {
	for key, value := range params {
		switch key {
		case "fast_period", "slow_period", "signal_period", "rsi_period":
			if err := validatePeriod(key, value); err != nil {
				return err
			}
		case "rsi_oversold", "rsi_overbought":
			if level, ok := paramFloat(value); !ok || level < 0 || level > 100 {
				return errInvalidRSILevel
			}
		case "min_confidence":
			if err := validateConfidence(key, value); err != nil {
				return err
			}
		case "base_notional":
			if err := validatePositiveAmount(key, value); err != nil {
				return err
			}
		}
	}
	return nil
}
