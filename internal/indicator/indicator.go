// Package indicator provides pure technical-indicator functions over
// price sequences ordered most-recent-last. All functions are
// deterministic and safe for concurrent use.
package indicator

import (
	"errors"
	"math"
)

var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrInvalidPeriod    = errors.New("period must be positive")
)

// SMA returns the arithmetic mean of the last period prices.
func SMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, ErrInvalidPeriod
	}
	if len(prices) < period {
		return 0, ErrInsufficientData
	}
	var sum float64
	for _, p := range prices[len(prices)-period:] {
		sum += p
	}
	return sum / float64(period), nil
}

// EMA returns the exponential moving average with the default smoothing
// factor 2/(period+1), seeded with the first price.
func EMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, ErrInvalidPeriod
	}
	return EMAWithAlpha(prices, 2.0/(float64(period)+1))
}

// EMAWithAlpha runs the EMA recurrence with an explicit smoothing factor.
func EMAWithAlpha(prices []float64, alpha float64) (float64, error) {
	if len(prices) == 0 {
		return 0, ErrInsufficientData
	}
	ema := prices[0]
	for _, p := range prices[1:] {
		ema = alpha*p + (1-alpha)*ema
	}
	return ema, nil
}

// RSI computes the relative strength index over the trailing period.
// Gains and losses are taken per step across the whole sequence; only
// the most recent period of each is averaged. Requires period+1 prices.
func RSI(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, ErrInvalidPeriod
	}
	if len(prices) < period+1 {
		return 0, ErrInsufficientData
	}
	gains := make([]float64, 0, len(prices)-1)
	losses := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains = append(gains, change)
			losses = append(losses, 0)
		} else {
			gains = append(gains, 0)
			losses = append(losses, -change)
		}
	}
	var avgGain, avgLoss float64
	for _, g := range gains[len(gains)-period:] {
		avgGain += g
	}
	for _, l := range losses[len(losses)-period:] {
		avgLoss += l
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	if avgLoss == 0 {
		return 100, nil
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), nil
}

type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// BollingerBands returns the SMA middle band with upper/lower bands at
// mult population standard deviations of the same window.
func BollingerBands(prices []float64, period int, mult float64) (Bands, error) {
	middle, err := SMA(prices, period)
	if err != nil {
		return Bands{}, err
	}
	window := prices[len(prices)-period:]
	var variance float64
	for _, p := range window {
		d := p - middle
		variance += d * d
	}
	variance /= float64(period)
	stdDev := math.Sqrt(variance)
	return Bands{
		Upper:  middle + stdDev*mult,
		Middle: middle,
		Lower:  middle - stdDev*mult,
	}, nil
}

type MACDResult struct {
	Line      float64
	Signal    float64
	Histogram float64
}

// MACD returns fast EMA minus slow EMA as the MACD line. The signal line
// is intentionally the MACD line itself (no MACD history is kept), so the
// histogram is always zero; downstream logic relies on that sign.
func MACD(prices []float64, fastPeriod, slowPeriod, signalPeriod int) (MACDResult, error) {
	if fastPeriod <= 0 || slowPeriod <= 0 || signalPeriod <= 0 {
		return MACDResult{}, ErrInvalidPeriod
	}
	if len(prices) < slowPeriod {
		return MACDResult{}, ErrInsufficientData
	}
	fast, err := EMA(prices, fastPeriod)
	if err != nil {
		return MACDResult{}, err
	}
	slow, err := EMA(prices, slowPeriod)
	if err != nil {
		return MACDResult{}, err
	}
	line := fast - slow
	signal := line
	return MACDResult{Line: line, Signal: signal, Histogram: line - signal}, nil
}
