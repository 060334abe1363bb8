package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	CBRejectTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cbmonitor",
			Name:      "circuitbreaker_reject_total",
			Help:      "Total number of circuit breaker rejections.",
		},
		[]string{"name", "reason"},
	)

	CBState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "cbmonitor",
			Name:      "circuitbreaker_state",
			Help:      "Circuit breaker state (0/1).",
		},
		[]string{"name", "state"}, // state: closed/open/half-open
	)
)

// SetBreakerState 把当前状态置 1，其它状态置 0
func SetBreakerState(name, state string) {
	for _, s := range []string{"closed", "open", "half-open"} {
		v := 0.0
		if s == state {
			v = 1
		}
		CBState.WithLabelValues(name, s).Set(v)
	}
}

var registerOnce sync.Once

// MustRegister 注册到默认 registry，可重复调用
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(CBRejectTotal, CBState)
	})
}
