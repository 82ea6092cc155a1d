package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "hl_strategy_bot"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type Prometheus struct {
	Metrics *Metrics

	registry *prometheus.Registry
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      name,
			Help:      help,
		})
	}
	cyclesRun := counter("cycles_total", "Total number of trading cycles run.")
	cycleErrors := counter("cycle_errors_total", "Total number of trading cycles aborted on error.")
	signalsGenerated := counter("signals_generated_total", "Total number of strategy signals generated.")
	signalsRejected := counter("signals_rejected_total", "Total number of signals rejected by the execution gate.")
	ordersPlaced := counter("orders_placed_total", "Total number of orders placed.")
	ordersFailed := counter("orders_failed_total", "Total number of order placement failures.")

	registry.MustRegister(cyclesRun, cycleErrors, signalsGenerated, signalsRejected, ordersPlaced, ordersFailed)

	return &Prometheus{
		Metrics: &Metrics{
			CyclesRun:        promCounter{cyclesRun},
			CycleErrors:      promCounter{cycleErrors},
			SignalsGenerated: promCounter{signalsGenerated},
			SignalsRejected:  promCounter{signalsRejected},
			OrdersPlaced:     promCounter{ordersPlaced},
			OrdersFailed:     promCounter{ordersFailed},
		},
		registry: registry,
	}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
