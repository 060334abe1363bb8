package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cbmonitor",
		Name:      "upstream_request_duration_seconds",
		Help:      "Upstream REST request latency",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms ~ 10s
	}, []string{"target", "status"})

	UpstreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cbmonitor",
		Name:      "upstream_errors_total",
		Help:      "Upstream REST errors",
	}, []string{"target", "kind"})
)

// ObserveUpstream 记录一次上游请求；status<=0 表示没拿到响应
func ObserveUpstream(target string, status int, dur time.Duration) {
	label := "none"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	UpstreamDuration.WithLabelValues(target, label).Observe(dur.Seconds())
}
