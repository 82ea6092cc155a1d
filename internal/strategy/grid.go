package strategy

import (
	"errors"
	"math"

	"go.uber.org/zap"
)

var errInvalidMaxLevels = errors.New("max_levels must be between 1 and 50")

// gridLevel is keyed by a signed index: -k is the k-th buy level below
// the base price, +k the k-th sell level above it. Price is derived from
// the index, never used as a lookup key.
type gridLevel struct {
	Index  int
	Price  float64
	Filled bool
}

// Grid places a ladder of geometrically spaced limit orders around a base
// price: buys below, sells above. Levels fill at most once; buy fills
// count toward a cumulative investment cap.
type Grid struct {
	name    string
	symbol  string
	enabled bool
	params  map[string]any
	log     *zap.Logger

	spacingPct      float64
	positionSize    float64
	maxLevels       int
	maxInvestment   float64
	basePrice       float64
	levels          []gridLevel
	totalInvestment float64
}

func NewGrid(name, symbol string, log *zap.Logger) *Grid {
	return &Grid{
		name:          name,
		symbol:        symbol,
		enabled:       true,
		params:        make(map[string]any),
		log:           log,
		spacingPct:    1,
		positionSize:  100,
		maxLevels:     10,
		maxInvestment: 5000,
	}
}

func (g *Grid) Name() string   { return g.name }
func (g *Grid) Symbol() string { return g.symbol }
func (g *Grid) Enabled() bool  { return g.enabled }

func (g *Grid) Initialized() bool { return g.basePrice > 0 }

// InitializeWithPrice builds 2*maxLevels levels around the base price.
// The k-th buy level is base*(1 - k*s/100), the k-th sell level
// base*(1 + k*s/100).
func (g *Grid) InitializeWithPrice(base float64) {
	if base <= 0 {
		return
	}
	g.basePrice = base
	g.levels = g.levels[:0]
	for k := 1; k <= g.maxLevels; k++ {
		g.levels = append(g.levels, gridLevel{
			Index: -k,
			Price: base * (1 - g.spacingPct*float64(k)/100),
		})
	}
	for k := 1; k <= g.maxLevels; k++ {
		g.levels = append(g.levels, gridLevel{
			Index: k,
			Price: base * (1 + g.spacingPct*float64(k)/100),
		})
	}
	g.log.Info("grid initialized",
		zap.String("strategy", g.name),
		zap.String("symbol", g.symbol),
		zap.Int("levels", len(g.levels)),
		zap.Float64("base_price", base),
	)
}

func (g *Grid) Analyze(q Quote) *Signal {
	if !g.enabled || !g.Initialized() || q.Price <= 0 {
		return nil
	}
	if lvl, ok := g.nearestBuyLevel(q.Price); ok {
		return g.levelSignal(ActionBuy, lvl)
	}
	if lvl, ok := g.nearestSellLevel(q.Price); ok {
		return g.levelSignal(ActionSell, lvl)
	}
	return nil
}

// nearestBuyLevel returns the highest unfilled buy level above the
// current price, if the investment cap allows another buy.
func (g *Grid) nearestBuyLevel(price float64) (gridLevel, bool) {
	if g.totalInvestment >= g.maxInvestment {
		return gridLevel{}, false
	}
	for _, lvl := range g.levels {
		if lvl.Index < 0 && !lvl.Filled && lvl.Price > price {
			return lvl, true
		}
	}
	return gridLevel{}, false
}

// nearestSellLevel returns the lowest unfilled sell level below the
// current price.
func (g *Grid) nearestSellLevel(price float64) (gridLevel, bool) {
	for _, lvl := range g.levels {
		if lvl.Index > 0 && !lvl.Filled && lvl.Price < price {
			return lvl, true
		}
	}
	return gridLevel{}, false
}

func (g *Grid) levelSignal(action Action, lvl gridLevel) *Signal {
	confidence := g.confidence(lvl.Price)
	g.log.Debug("grid signal",
		zap.String("strategy", g.name),
		zap.String("symbol", g.symbol),
		zap.String("action", string(action)),
		zap.Int("level", lvl.Index),
		zap.Float64("price", lvl.Price),
		zap.Float64("confidence", confidence),
	)
	return &Signal{
		Strategy:   g.name,
		Symbol:     g.symbol,
		Action:     action,
		Quantity:   g.positionSize / lvl.Price,
		LimitPrice: lvl.Price,
		HasLimit:   true,
		Confidence: confidence,
		Metadata: map[string]any{
			"grid_level":       lvl.Index,
			"level_price":      lvl.Price,
			"position_size":    g.positionSize,
			"total_investment": g.totalInvestment,
		},
	}
}

// confidence scales with percentage deviation of the level from the base
// price, regardless of direction.
func (g *Grid) confidence(price float64) float64 {
	deviation := math.Abs(g.basePrice-price) / g.basePrice * 100
	switch {
	case deviation > 5:
		return 0.9
	case deviation > 2:
		return 0.7
	default:
		return 0.5
	}
}

// MarkLevelFilled commits a successful execution at the given level index
// and removes it from future consideration. Buy fills add the per-level
// notional to the investment total.
func (g *Grid) MarkLevelFilled(index int) {
	for i := range g.levels {
		if g.levels[i].Index == index && !g.levels[i].Filled {
			g.levels[i].Filled = true
			if index < 0 {
				g.totalInvestment += g.positionSize
			}
			return
		}
	}
}

func (g *Grid) Reset() {
	g.basePrice = 0
	g.levels = g.levels[:0]
	g.totalInvestment = 0
}

// FilledState reports the persisted slice of the grid's state.
func (g *Grid) FilledState() (base float64, filled []int, invested float64) {
	for _, lvl := range g.levels {
		if lvl.Filled {
			filled = append(filled, lvl.Index)
		}
	}
	return g.basePrice, filled, g.totalInvestment
}

// RestoreFilledState rebuilds the ladder around base and replays filled
// levels without recounting investment.
func (g *Grid) RestoreFilledState(base float64, filled []int, invested float64) {
	if base <= 0 {
		return
	}
	g.InitializeWithPrice(base)
	for _, idx := range filled {
		for i := range g.levels {
			if g.levels[i].Index == idx {
				g.levels[i].Filled = true
			}
		}
	}
	g.totalInvestment = invested
}

func (g *Grid) UpdateParameters(params map[string]any) error {
	if err := g.ValidateParameters(params); err != nil {
		return err
	}
	for key, value := range params {
		switch key {
		case "grid_spacing":
			if spacing, ok := paramFloat(value); ok {
				g.spacingPct = spacing
			}
		case "position_size":
			if size, ok := paramFloat(value); ok {
				g.positionSize = size
			}
		case "max_levels":
			if levels, ok := paramInt(value); ok {
				g.maxLevels = levels
			}
		case "max_investment":
			if max, ok := paramFloat(value); ok {
				g.maxInvestment = max
			}
		default:
			g.log.Debug("unknown grid parameter", zap.String("key", key))
		}
	}
	g.params = cloneParams(params)
	return nil
}

func (g *Grid) Parameters() map[string]any {
	return cloneParams(g.params)
}

func (g *Grid) ValidateParameters(params map[string]any) error {
	for key, value := range params {
		switch key {
		case "grid_spacing":
			if err := validatePercent(key, value); err != nil {
				return err
			}
		case "position_size", "max_investment":
			if err := validatePositiveAmount(key, value); err != nil {
				return err
			}
		case "max_levels":
			if levels, ok := paramInt(value); !ok || levels <= 0 || levels > 50 {
				return errInvalidMaxLevels
			}
		}
	}
	return nil
}
