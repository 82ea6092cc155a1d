package bot

import "time"

// RiskMetrics mirrors the status payload's risk block. Ratios that need
// per-trade PnL attribution are reported at their neutral values until a
// fill-level ledger exists.
type RiskMetrics struct {
	WinRate         float64
	ProfitFactor    float64
	SharpeRatio     float64
	CurrentDrawdown float64
	MaxDrawdown     float64
}

type Status struct {
	IsRunning        bool
	StartTime        time.Time
	UptimeSeconds    float64
	TotalTrades      uint64
	SuccessfulTrades uint64
	FailedTrades     uint64
	TotalPnL         float64
	DailyPnL         float64
	CurrentPositions int
	Risk             RiskMetrics
}

func (b *Bot) Status() Status {
	b.mu.Lock()
	running := b.state == stateRunning
	started := b.startTime
	positions := b.lastPositions
	b.mu.Unlock()

	snap := b.stats.Snapshot()
	st := Status{
		IsRunning:        running,
		TotalTrades:      snap.TotalTrades,
		SuccessfulTrades: snap.SuccessfulTrades,
		FailedTrades:     snap.FailedTrades,
		TotalPnL:         snap.TotalPnL,
		DailyPnL:         snap.DailyPnL,
		CurrentPositions: positions,
		Risk: RiskMetrics{
			WinRate:      snap.WinRate(),
			ProfitFactor: 1.0,
		},
	}
	if running {
		st.StartTime = started
		st.UptimeSeconds = time.Since(started).Seconds()
	}
	return st
}
