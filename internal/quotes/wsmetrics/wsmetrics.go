package wsmetrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cbmonitor"

// feed 侧
var (
	FeedConns = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "feed_conns",
		Help:      "Active upstream feed connections",
	})
	FeedCloseTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_close_total",
		Help:      "Upstream feed connections closed, partitioned by close code",
	}, []string{"code"})

	TicksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_ticks_received_total",
		Help:      "Ticks decoded from the feed",
	}, []string{"product"})
	TicksApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_ticks_applied_total",
		Help:      "Ticks applied to a monitored product",
	}, []string{"product"})
	FeedDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_dropped_total",
		Help:      "Feed frames or ticks dropped",
	}, []string{"why"}) // incomplete/unmonitored
	LastPrice = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_price",
		Help:      "Last price seen per product",
	}, []string{"product"})
)

// chart 侧
var (
	RedrawTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chart_redraw_total",
		Help:      "Chart redraw passes",
	})
	RedrawDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "chart_redraw_duration_seconds",
		Help:      "Duration of one redraw pass over all windows",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms -> ~0.8s
	})
)

// mirror / 本地 ws 侧
var (
	MirrorPublishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mirror_publish_errors_total",
		Help:      "Ticks that could not be published to the broker",
	})

	Conns = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_conns",
		Help:      "Active local websocket subscribers",
	})
	SubOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_sub_ops_total",
		Help:      "Total subscription operations",
	}, []string{"op"}) // sub/unsub
	MsgsOutTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_msgs_out_total",
		Help:      "Messages written to local subscribers",
	})
	WriteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_write_errors_total",
		Help:      "Websocket write errors",
	})
	WriteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ws_write_duration_seconds",
		Help:      "Duration of a websocket write batch",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms -> ~4s
	})
)

func OnFeedOpen() {
	FeedConns.Inc()
}

func OnFeedClose(code int) {
	FeedConns.Dec()
	FeedCloseTotal.WithLabelValues(strconv.Itoa(code)).Inc()
}

func ObserveRedraw(dur time.Duration) {
	RedrawTotal.Inc()
	RedrawDuration.Observe(dur.Seconds())
}

func ObserveWrite(batchN int, dur time.Duration, err error) {
	if batchN > 0 {
		MsgsOutTotal.Add(float64(batchN))
	}
	WriteDuration.Observe(dur.Seconds())
	if err != nil {
		WriteErrorsTotal.Inc()
	}
}
