// Package stats tracks running execution counters and PnL behind a
// single mutex; callers never touch the fields directly.
package stats

import (
	"sync"
	"time"
)

type TradeStats struct {
	mu sync.Mutex

	totalTrades      uint64
	successfulTrades uint64
	failedTrades     uint64
	totalPnL         float64
	dailyPnL         float64
	dayStartPnL      float64
	lastReset        time.Time

	now func() time.Time
}

type Snapshot struct {
	TotalTrades      uint64
	SuccessfulTrades uint64
	FailedTrades     uint64
	TotalPnL         float64
	DailyPnL         float64
	LastReset        time.Time
}

func New() *TradeStats {
	s := &TradeStats{now: time.Now}
	s.lastReset = utcDate(s.now())
	return s
}

// RecordExecution counts one execution attempt.
func (s *TradeStats) RecordExecution(success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalTrades++
	if success {
		s.successfulTrades++
	} else {
		s.failedTrades++
	}
}

// UpdatePnL refreshes the PnL fields from an account snapshot. Daily PnL
// resets exactly once when the UTC calendar date advances; it is measured
// against the total observed at the start of the current day.
func (s *TradeStats) UpdatePnL(totalPnL float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	today := utcDate(s.now())
	if today.After(s.lastReset) {
		s.dayStartPnL = totalPnL
		s.dailyPnL = 0
		s.lastReset = today
	}
	s.totalPnL = totalPnL
	s.dailyPnL = totalPnL - s.dayStartPnL
}

func (s *TradeStats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		TotalTrades:      s.totalTrades,
		SuccessfulTrades: s.successfulTrades,
		FailedTrades:     s.failedTrades,
		TotalPnL:         s.totalPnL,
		DailyPnL:         s.dailyPnL,
		LastReset:        s.lastReset,
	}
}

// WinRate is successful over total, 0 when no trades have run.
func (s Snapshot) WinRate() float64 {
	if s.TotalTrades == 0 {
		return 0
	}
	return float64(s.SuccessfulTrades) / float64(s.TotalTrades)
}

func utcDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
