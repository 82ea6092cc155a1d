package bot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"hl-strategy-bot/internal/state"
	"hl-strategy-bot/internal/strategy"
)

// RestoreStrategies replays persisted state into freshly built strategy
// instances. Missing or unreadable state is skipped; the strategy then
// starts cold.
func RestoreStrategies(ctx context.Context, store state.Store, reg *strategy.Registry, log *zap.Logger) {
	if store == nil {
		return
	}
	for _, s := range reg.List() {
		st, ok, err := state.LoadStrategyState(ctx, store, s.Name())
		if err != nil {
			log.Warn("state restore failed", zap.String("strategy", s.Name()), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		switch v := s.(type) {
		case *strategy.DCA:
			var lastBuy time.Time
			if st.LastBuyUnixMS > 0 {
				lastBuy = time.UnixMilli(st.LastBuyUnixMS)
			}
			v.RestoreInvestedState(st.InvestedUSD, lastBuy)
		case *strategy.Grid:
			v.RestoreFilledState(st.BasePrice, st.FilledLevels, st.InvestedUSD)
		default:
			continue
		}
		log.Info("strategy state restored",
			zap.String("strategy", s.Name()),
			zap.Float64("invested_usd", st.InvestedUSD),
		)
	}
}
