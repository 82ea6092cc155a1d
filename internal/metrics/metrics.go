package metrics

type Counter interface {
	Inc()
}

type Metrics struct {
	CyclesRun        Counter
	CycleErrors      Counter
	SignalsGenerated Counter
	SignalsRejected  Counter
	OrdersPlaced     Counter
	OrdersFailed     Counter
}

type noopCounter struct{}

func (noopCounter) Inc() {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		CyclesRun:        n,
		CycleErrors:      n,
		SignalsGenerated: n,
		SignalsRejected:  n,
		OrdersPlaced:     n,
		OrdersFailed:     n,
	}
}
