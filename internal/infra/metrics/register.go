package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Every metrics file queues its collectors from init; MustRegister hands the
// queue to the default registry.
var (
	mu         sync.Mutex
	pending    []prometheus.Collector
	registered bool
)

func register(cs ...prometheus.Collector) {
	mu.Lock()
	pending = append(pending, cs...)
	mu.Unlock()
}

// MustRegister may be called more than once. Only the first call registers.
func MustRegister() {
	mu.Lock()
	defer mu.Unlock()
	if registered {
		return
	}
	prometheus.MustRegister(pending...)
	registered = true
}
