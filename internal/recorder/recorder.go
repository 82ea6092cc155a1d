// Package recorder streams quote ticks and execution records to postgres
// on a best-effort basis. Writes are queued through buffered channels and
// dropped when the queue is full so the trading loop never blocks on the
// database.
package recorder

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

type QuoteTick struct {
	Time      time.Time
	Symbol    string
	Price     float64
	Volume24h float64
}

type Execution struct {
	Time     time.Time
	Strategy string
	Symbol   string
	Side     string
	Quantity float64
	Price    float64
	OrderID  string
	Success  bool
	DryRun   bool
}

type Writer struct {
	db  *sql.DB
	log *zap.Logger

	quotes     chan QuoteTick
	executions chan Execution
	started    atomic.Bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	dropped    atomic.Uint64
}

func New(dsn string, log *zap.Logger) (*Writer, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Writer{
		db:         db,
		log:        log,
		quotes:     make(chan QuoteTick, 256),
		executions: make(chan Execution, 64),
	}, nil
}

func initSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS quote_ticks (
		time TIMESTAMPTZ NOT NULL,
		symbol TEXT NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		volume_24h DOUBLE PRECISION NOT NULL
	)`); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS executions (
		time TIMESTAMPTZ NOT NULL,
		strategy TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity DOUBLE PRECISION NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		order_id TEXT,
		success BOOLEAN NOT NULL,
		dry_run BOOLEAN NOT NULL
	)`)
	return err
}

func (w *Writer) Start(ctx context.Context) {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.wg.Add(2)
	go w.drainQuotes(runCtx)
	go w.drainExecutions(runCtx)
}

func (w *Writer) RecordQuote(q QuoteTick) {
	select {
	case w.quotes <- q:
	default:
		w.dropped.Add(1)
	}
}

func (w *Writer) RecordExecution(e Execution) {
	select {
	case w.executions <- e:
	default:
		w.dropped.Add(1)
	}
}

func (w *Writer) drainQuotes(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case q := <-w.quotes:
			w.insertQuote(q)
		}
	}
}

func (w *Writer) drainExecutions(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-w.executions:
			w.insertExecution(e)
		}
	}
}

func (w *Writer) insertQuote(q QuoteTick) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	_, err := w.db.ExecContext(ctx,
		`INSERT INTO quote_ticks (time, symbol, price, volume_24h) VALUES ($1, $2, $3, $4)`,
		q.Time, q.Symbol, q.Price, q.Volume24h,
	)
	if err != nil {
		w.log.Warn("quote insert failed", zap.Error(err))
	}
}

func (w *Writer) insertExecution(e Execution) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	_, err := w.db.ExecContext(ctx,
		`INSERT INTO executions (time, strategy, symbol, side, quantity, price, order_id, success, dry_run)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.Time, e.Strategy, e.Symbol, e.Side, e.Quantity, e.Price, e.OrderID, e.Success, e.DryRun,
	)
	if err != nil {
		w.log.Warn("execution insert failed", zap.Error(err))
	}
}

func (w *Writer) Close() error {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	if n := w.dropped.Load(); n > 0 {
		w.log.Warn("recorder dropped writes", zap.Uint64("count", n))
	}
	return w.db.Close()
}
