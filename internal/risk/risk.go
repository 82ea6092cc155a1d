// Package risk implements the advisory accept/reject gates consulted
// before any execution. Both checks are read-only over the snapshot and
// proposal they receive.
package risk

import (
	"errors"
	"fmt"

	"hl-strategy-bot/internal/config"
	"hl-strategy-bot/internal/exchange"
	"hl-strategy-bot/internal/strategy"
)

var (
	ErrDailyLossExceeded = errors.New("daily loss limit exceeded")
	ErrPositionTooLarge  = errors.New("position size limit exceeded")
	ErrProposalTooLarge  = errors.New("proposal exceeds position size limit")
)

type Evaluator struct {
	cfg config.RiskConfig
}

func New(cfg config.RiskConfig) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// CheckPortfolioLimits fails when aggregate PnL is worse than the daily
// loss limit or any open position's notional exceeds the size limit.
func (e *Evaluator) CheckPortfolioLimits(acct exchange.AccountInfo) error {
	if acct.TotalPnL < -e.cfg.MaxDailyLoss {
		return fmt.Errorf("pnl %.2f below -%.2f: %w", acct.TotalPnL, e.cfg.MaxDailyLoss, ErrDailyLossExceeded)
	}
	for _, pos := range acct.Positions {
		notional := pos.Size * pos.CurrentPrice
		if notional > e.cfg.MaxPositionSize {
			return fmt.Errorf("%s notional %.2f above %.2f: %w", pos.Symbol, notional, e.cfg.MaxPositionSize, ErrPositionTooLarge)
		}
	}
	return nil
}

// CheckProposalRisk fails when the proposal's notional, if it carries a
// price, exceeds the position size limit.
func (e *Evaluator) CheckProposalRisk(sig strategy.Signal, acct exchange.AccountInfo) error {
	_ = acct
	if !sig.HasLimit {
		return nil
	}
	notional := sig.Quantity * sig.LimitPrice
	if notional > e.cfg.MaxPositionSize {
		return fmt.Errorf("notional %.2f above %.2f: %w", notional, e.cfg.MaxPositionSize, ErrProposalTooLarge)
	}
	return nil
}
