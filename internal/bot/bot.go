// Package bot runs the trading loop: one account snapshot, a portfolio
// risk gate, then an in-order pass over every enabled strategy per tick.
package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hl-strategy-bot/internal/config"
	"hl-strategy-bot/internal/exchange"
	"hl-strategy-bot/internal/metrics"
	"hl-strategy-bot/internal/recorder"
	"hl-strategy-bot/internal/risk"
	"hl-strategy-bot/internal/state"
	"hl-strategy-bot/internal/stats"
	"hl-strategy-bot/internal/strategy"
)

// Orders with confidence below this never reach the exchange.
const minExecuteConfidence = 0.5

var (
	ErrAlreadyRunning      = errors.New("bot already running")
	errInsufficientBalance = errors.New("insufficient available balance")
	errLowConfidence       = errors.New("confidence below execution threshold")
)

type botState string

const (
	stateStopped  botState = "stopped"
	stateRunning  botState = "running"
	stateStopping botState = "stopping"
)

// ExchangeClient is the slice of the REST client the loop needs.
type ExchangeClient interface {
	GetMarketData(ctx context.Context, symbol string) (exchange.MarketData, error)
	GetAccountInfo(ctx context.Context) (exchange.AccountInfo, error)
	PlaceOrder(ctx context.Context, order exchange.Order) (string, error)
}

// Feed is the market data stream. The loop treats it as advisory: quotes
// that drive decisions always come from the REST client.
type Feed interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, kind, symbol string, params map[string]any) error
	Run(ctx context.Context, handler func(json.RawMessage)) error
	Disconnect() error
}

type Alerter interface {
	Send(ctx context.Context, message string) error
}

type Recorder interface {
	RecordQuote(q recorder.QuoteTick)
	RecordExecution(e recorder.Execution)
}

type Options struct {
	Config   *config.Config
	Log      *zap.Logger
	Exchange ExchangeClient
	Feed     Feed
	Registry *strategy.Registry
	Risk     *risk.Evaluator
	Stats    *stats.TradeStats
	Store    state.Store
	Recorder Recorder
	Metrics  *metrics.Metrics
	Alerts   Alerter
}

type Bot struct {
	cfg      *config.Config
	log      *zap.Logger
	exchange ExchangeClient
	feed     Feed
	registry *strategy.Registry
	risk     *risk.Evaluator
	stats    *stats.TradeStats
	store    state.Store
	rec      Recorder
	metrics  *metrics.Metrics
	alerts   Alerter

	mu            sync.Mutex
	state         botState
	startTime     time.Time
	lastPositions int
	stopCh        chan struct{}
	loopDone      chan struct{}
}

func New(opts Options) *Bot {
	m := opts.Metrics
	if m == nil {
		m = metrics.NewNoop()
	}
	st := opts.Stats
	if st == nil {
		st = stats.New()
	}
	return &Bot{
		cfg:      opts.Config,
		log:      opts.Log,
		exchange: opts.Exchange,
		feed:     opts.Feed,
		registry: opts.Registry,
		risk:     opts.Risk,
		stats:    st,
		store:    opts.Store,
		rec:      opts.Recorder,
		metrics:  m,
		alerts:   opts.Alerts,
		state:    stateStopped,
	}
}

// Run blocks until Stop is called or ctx is done. Only one call may be
// active at a time.
func (b *Bot) Run(ctx context.Context) error {
	b.mu.Lock()
	if b.state != stateStopped {
		b.mu.Unlock()
		return ErrAlreadyRunning
	}
	b.state = stateRunning
	b.startTime = time.Now()
	b.stopCh = make(chan struct{})
	b.loopDone = make(chan struct{})
	stopCh := b.stopCh
	loopDone := b.loopDone
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.state = stateStopped
		b.mu.Unlock()
		close(loopDone)
	}()

	feedCtx, cancelFeed := context.WithCancel(ctx)
	defer cancelFeed()
	if b.feed != nil {
		go b.superviseFeed(feedCtx)
	}

	b.log.Info("bot started",
		zap.Bool("dry_run", b.cfg.Trading.DryRun),
		zap.Duration("tick_interval", b.cfg.Trading.TickInterval),
		zap.Int("strategies", b.registry.Len()),
	)

	ticker := time.NewTicker(b.cfg.Trading.TickInterval)
	defer ticker.Stop()

	for {
		if err := b.cycle(ctx); err != nil {
			b.metrics.CycleErrors.Inc()
			b.log.Error("cycle failed", zap.Error(err))
			if !b.sleep(ctx, stopCh, b.cfg.Trading.ErrorBackoff) {
				return nil
			}
			continue
		}
		b.metrics.CyclesRun.Inc()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
		}
	}
}

// sleep waits out the error backoff, returning false when the bot should
// exit instead of retrying.
func (b *Bot) sleep(ctx context.Context, stopCh chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-stopCh:
		return false
	case <-timer.C:
		return true
	}
}

// Stop requests shutdown and waits for the loop to finish the tick in
// flight, up to the configured stop timeout. Safe to call repeatedly and
// in any state.
func (b *Bot) Stop(ctx context.Context) error {
	b.mu.Lock()
	if b.state != stateRunning {
		b.mu.Unlock()
		return nil
	}
	b.state = stateStopping
	close(b.stopCh)
	loopDone := b.loopDone
	b.mu.Unlock()

	if b.feed != nil {
		if err := b.feed.Disconnect(); err != nil {
			b.log.Warn("feed disconnect", zap.Error(err))
		}
	}

	timer := time.NewTimer(b.cfg.Trading.StopTimeout)
	defer timer.Stop()
	select {
	case <-loopDone:
		b.log.Info("bot stopped")
		return nil
	case <-timer.C:
		return errors.New("stop timed out waiting for cycle to finish")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cycle runs one tick. It returns an error only when the account snapshot
// cannot be fetched; every later failure is contained to the strategy it
// belongs to.
func (b *Bot) cycle(ctx context.Context) error {
	acct, err := b.exchange.GetAccountInfo(ctx)
	if err != nil {
		return fmt.Errorf("account snapshot: %w", err)
	}
	limitErr := b.risk.CheckPortfolioLimits(acct)
	b.stats.UpdatePnL(acct.TotalPnL)
	b.mu.Lock()
	b.lastPositions = len(acct.Positions)
	b.mu.Unlock()

	if limitErr != nil {
		b.log.Warn("portfolio limits breached, skipping cycle", zap.Error(limitErr))
		b.alert(ctx, fmt.Sprintf("⚠️ trading paused: %v", limitErr))
		return nil
	}

	for _, s := range b.registry.List() {
		if !s.Enabled() {
			continue
		}
		md, err := b.exchange.GetMarketData(ctx, s.Symbol())
		if err != nil {
			b.log.Warn("market data unavailable",
				zap.String("strategy", s.Name()),
				zap.String("symbol", s.Symbol()),
				zap.Error(err),
			)
			continue
		}
		b.recordQuote(md)

		if g, ok := s.(*strategy.Grid); ok && !g.Initialized() {
			g.InitializeWithPrice(md.Price)
			b.persistState(ctx, s)
		}

		sig := s.Analyze(quoteFrom(md))
		if sig == nil {
			continue
		}
		b.metrics.SignalsGenerated.Inc()

		if err := b.gate(sig, acct); err != nil {
			b.metrics.SignalsRejected.Inc()
			b.log.Info("signal rejected",
				zap.String("strategy", sig.Strategy),
				zap.String("action", string(sig.Action)),
				zap.Float64("confidence", sig.Confidence),
				zap.Error(err),
			)
			continue
		}
		b.execute(ctx, s, sig)
	}
	return nil
}

// gate applies the pre-execution checks in order: balance, proposal risk,
// confidence threshold.
func (b *Bot) gate(sig *strategy.Signal, acct exchange.AccountInfo) error {
	if sig.HasLimit {
		notional := sig.Quantity * sig.LimitPrice
		if notional > acct.AvailableBalance {
			return fmt.Errorf("notional %.2f above balance %.2f: %w", notional, acct.AvailableBalance, errInsufficientBalance)
		}
	}
	if err := b.risk.CheckProposalRisk(*sig, acct); err != nil {
		return err
	}
	if sig.Confidence < minExecuteConfidence {
		return fmt.Errorf("%.2f < %.2f: %w", sig.Confidence, minExecuteConfidence, errLowConfidence)
	}
	return nil
}

func (b *Bot) execute(ctx context.Context, s strategy.Strategy, sig *strategy.Signal) {
	var side exchange.OrderSide
	switch sig.Action {
	case strategy.ActionBuy:
		side = exchange.SideBuy
	case strategy.ActionSell:
		side = exchange.SideSell
	default:
		// Hold and close proposals never reach the exchange and leave
		// the trade counters untouched.
		return
	}

	if b.cfg.Trading.DryRun {
		b.log.Info("dry run execution",
			zap.String("strategy", sig.Strategy),
			zap.String("symbol", sig.Symbol),
			zap.String("side", string(side)),
			zap.Float64("quantity", sig.Quantity),
			zap.Float64("price", sig.LimitPrice),
		)
		b.stats.RecordExecution(true)
		b.metrics.OrdersPlaced.Inc()
		b.recordExecution(sig, side, "", true, true)
		b.commit(ctx, s, sig)
		return
	}

	order := exchange.Order{
		ID:        uuid.NewString(),
		Symbol:    sig.Symbol,
		Side:      side,
		Type:      exchange.TypeMarket,
		Quantity:  sig.Quantity,
		CreatedAt: time.Now().UTC(),
	}
	if sig.HasLimit {
		order.Type = exchange.TypeLimit
		order.Price = sig.LimitPrice
		order.HasPrice = true
	}

	orderID, err := b.exchange.PlaceOrder(ctx, order)
	if err != nil {
		b.stats.RecordExecution(false)
		b.metrics.OrdersFailed.Inc()
		b.log.Error("order failed",
			zap.String("strategy", sig.Strategy),
			zap.String("symbol", sig.Symbol),
			zap.Error(err),
		)
		b.alert(ctx, fmt.Sprintf("❌ order failed for %s %s: %v", sig.Strategy, sig.Symbol, err))
		b.recordExecution(sig, side, "", false, false)
		return
	}

	b.stats.RecordExecution(true)
	b.metrics.OrdersPlaced.Inc()
	b.log.Info("order placed",
		zap.String("strategy", sig.Strategy),
		zap.String("symbol", sig.Symbol),
		zap.String("order_id", orderID),
		zap.String("side", string(side)),
		zap.Float64("quantity", sig.Quantity),
	)
	b.recordExecution(sig, side, orderID, true, false)
	b.commit(ctx, s, sig)
}

// commit applies post-execution state transitions that must only happen
// after an order succeeds, then persists the strategy's durable state.
func (b *Bot) commit(ctx context.Context, s strategy.Strategy, sig *strategy.Signal) {
	switch st := s.(type) {
	case *strategy.DCA:
		if sig.Action == strategy.ActionBuy {
			st.RecordBuy(sig.Quantity * sig.LimitPrice)
		}
	case *strategy.Grid:
		if idx, ok := sig.Metadata["grid_level"].(int); ok {
			st.MarkLevelFilled(idx)
		}
	}
	b.persistState(ctx, s)
}

func (b *Bot) persistState(ctx context.Context, s strategy.Strategy) {
	if b.store == nil {
		return
	}
	var st state.StrategyState
	switch v := s.(type) {
	case *strategy.DCA:
		invested, lastBuy := v.InvestedState()
		st = state.StrategyState{Name: s.Name(), InvestedUSD: invested}
		if !lastBuy.IsZero() {
			st.LastBuyUnixMS = lastBuy.UnixMilli()
		}
	case *strategy.Grid:
		base, filled, invested := v.FilledState()
		st = state.StrategyState{Name: s.Name(), BasePrice: base, FilledLevels: filled, InvestedUSD: invested}
	default:
		return
	}
	st.UpdatedAtMS = time.Now().UnixMilli()
	if err := state.SaveStrategyState(ctx, b.store, st); err != nil {
		b.log.Warn("state persist failed", zap.String("strategy", s.Name()), zap.Error(err))
	}
}

// superviseFeed keeps the stream alive until the bot stops. Feed errors
// trigger a reconnect after the error backoff; they never affect the
// trading loop.
func (b *Bot) superviseFeed(ctx context.Context) {
	for {
		if err := b.runFeedOnce(ctx); err != nil && ctx.Err() == nil {
			b.log.Warn("feed disconnected", zap.Error(err))
		}
		// Drop the dead connection so the next attempt dials fresh.
		_ = b.feed.Disconnect()
		timer := time.NewTimer(b.cfg.Trading.ErrorBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (b *Bot) runFeedOnce(ctx context.Context) error {
	if err := b.feed.Connect(ctx); err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, s := range b.registry.List() {
		if seen[s.Symbol()] {
			continue
		}
		seen[s.Symbol()] = true
		if err := b.feed.Subscribe(ctx, "ticker", s.Symbol(), nil); err != nil {
			return err
		}
	}
	return b.feed.Run(ctx, b.handleFeedMessage)
}

type feedTicker struct {
	Channel string `json:"channel"`
	Data    struct {
		Symbol    string  `json:"symbol"`
		Price     float64 `json:"price"`
		Volume24h float64 `json:"volume_24h"`
	} `json:"data"`
}

func (b *Bot) handleFeedMessage(raw json.RawMessage) {
	var tick feedTicker
	if err := json.Unmarshal(raw, &tick); err != nil || tick.Channel != "ticker" {
		return
	}
	b.log.Debug("feed tick",
		zap.String("symbol", tick.Data.Symbol),
		zap.Float64("price", tick.Data.Price),
	)
	if b.rec != nil && tick.Data.Symbol != "" {
		b.rec.RecordQuote(recorder.QuoteTick{
			Time:      time.Now().UTC(),
			Symbol:    tick.Data.Symbol,
			Price:     tick.Data.Price,
			Volume24h: tick.Data.Volume24h,
		})
	}
}

func (b *Bot) recordQuote(md exchange.MarketData) {
	if b.rec == nil {
		return
	}
	b.rec.RecordQuote(recorder.QuoteTick{
		Time:      md.Timestamp,
		Symbol:    md.Symbol,
		Price:     md.Price,
		Volume24h: md.Volume24h,
	})
}

func (b *Bot) recordExecution(sig *strategy.Signal, side exchange.OrderSide, orderID string, success, dryRun bool) {
	if b.rec == nil {
		return
	}
	b.rec.RecordExecution(recorder.Execution{
		Time:     time.Now().UTC(),
		Strategy: sig.Strategy,
		Symbol:   sig.Symbol,
		Side:     string(side),
		Quantity: sig.Quantity,
		Price:    sig.LimitPrice,
		OrderID:  orderID,
		Success:  success,
		DryRun:   dryRun,
	})
}

func (b *Bot) alert(ctx context.Context, message string) {
	if b.alerts == nil {
		return
	}
	if err := b.alerts.Send(ctx, message); err != nil {
		b.log.Warn("alert failed", zap.Error(err))
	}
}

func quoteFrom(md exchange.MarketData) strategy.Quote {
	return strategy.Quote{
		Symbol:    md.Symbol,
		Price:     md.Price,
		Volume24h: md.Volume24h,
		Change24h: md.Change24h,
		High24h:   md.High24h,
		Low24h:    md.Low24h,
		Timestamp: md.Timestamp,
	}
}
