package futex

import "github.com/prometheus/client_golang/prometheus"

var (
	waits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "syncprim",
		Subsystem: "futex",
		Name:      "waits_total",
		Help:      "Number of times a goroutine went to sleep on a futex word.",
	})
	wakes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "syncprim",
		Subsystem: "futex",
		Name:      "wakes_total",
		Help:      "Number of futex wake calls by mode.",
	}, []string{"mode"})

	wakesOne = wakes.WithLabelValues("one")
	wakesAll = wakes.WithLabelValues("all")
)

// Collectors returns the futex metrics for registration on a caller-owned
// registry.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{waits, wakes}
}
