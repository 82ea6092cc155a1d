package strategy

import (
	"fmt"

	"go.uber.org/zap"

	"hl-strategy-bot/internal/config"
)

// New builds a strategy instance from its config entry. The parameter
// map is applied wholesale; a validation failure fails construction.
func New(name string, cfg config.StrategyConfig, log *zap.Logger) (Strategy, error) {
	var s Strategy
	switch cfg.Type {
	case "dca":
		s = NewDCA(name, cfg.Symbol, log)
	case "grid":
		s = NewGrid(name, cfg.Symbol, log)
	case "momentum":
		s = NewMomentum(name, cfg.Symbol, log)
	case "mean_reversion":
		s = NewMeanReversion(name, cfg.Symbol, log)
	default:
		return nil, fmt.Errorf("unknown strategy type %q", cfg.Type)
	}
	if len(cfg.Parameters) > 0 {
		if err := s.UpdateParameters(cfg.Parameters); err != nil {
			return nil, fmt.Errorf("strategy %s: %w", name, err)
		}
	}
	setEnabled(s, cfg.Enabled)
	return s, nil
}

func setEnabled(s Strategy, enabled bool) {
	switch v := s.(type) {
	case *DCA:
		v.enabled = enabled
	case *Grid:
		v.enabled = enabled
	case *Momentum:
		v.enabled = enabled
	case *MeanReversion:
		v.enabled = enabled
	}
}
