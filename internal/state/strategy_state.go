package state

import (
	"context"

	"github.com/vmihailenco/msgpack/v5"
)

const strategyKeyPrefix = "strategy:state:"

// StrategyState is the durable slice of a strategy instance: grid fills
// and invested totals survive restarts so a resumed bot does not re-buy
// levels it already holds.
type StrategyState struct {
	Name          string  `msgpack:"name"`
	BasePrice     float64 `msgpack:"base_price,omitempty"`
	FilledLevels  []int   `msgpack:"filled_levels,omitempty"`
	InvestedUSD   float64 `msgpack:"invested_usd,omitempty"`
	LastBuyUnixMS int64   `msgpack:"last_buy_unix_ms,omitempty"`
	UpdatedAtMS   int64   `msgpack:"updated_at_ms"`
}

func SaveStrategyState(ctx context.Context, store Store, st StrategyState) error {
	if store == nil || st.Name == "" {
		return nil
	}
	payload, err := msgpack.Marshal(st)
	if err != nil {
		return err
	}
	return store.Set(ctx, strategyKeyPrefix+st.Name, payload)
}

func LoadStrategyState(ctx context.Context, store Store, name string) (StrategyState, bool, error) {
	if store == nil || name == "" {
		return StrategyState{}, false, nil
	}
	raw, ok, err := store.Get(ctx, strategyKeyPrefix+name)
	if err != nil || !ok {
		return StrategyState{}, false, err
	}
	var st StrategyState
	if err := msgpack.Unmarshal(raw, &st); err != nil {
		return StrategyState{}, false, err
	}
	return st, true, nil
}
