package breaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"cbmonitor.com/pkg/metrics"
	"cbmonitor.com/pkg/xerr"
)

type Rule struct {
	// Half-Open 状态允许通过的探测请求数（MaxRequests=0 时库会当作 1）
	MaxRequests uint32

	// Closed 状态计数窗口
	Interval time.Duration

	// Open 状态持续时间，到期进入 Half-Open
	Timeout time.Duration

	// 触发熔断条件（两种之一即可）
	TripConsecutiveFailures uint32  // 连续失败阈值
	TripFailureRate         float64 // 失败率阈值（0~1）
	TripMinRequests         uint32  // 失败率计算的最小样本数
}

func (r Rule) withDefaults() Rule {
	if r.MaxRequests == 0 {
		r.MaxRequests = 1
	}
	if r.Timeout <= 0 {
		r.Timeout = 30 * time.Second
	}
	if r.Interval <= 0 {
		r.Interval = time.Minute
	}
	if r.TripConsecutiveFailures == 0 && r.TripFailureRate == 0 {
		r.TripConsecutiveFailures = 3
	}
	if r.TripMinRequests == 0 {
		r.TripMinRequests = 10
	}
	return r
}

// New 按 Rule 构造一个熔断器，状态变化同步到 metrics
func New[T any](name string, rule Rule) *gobreaker.CircuitBreaker[T] {
	rule = rule.withDefaults()
	metrics.SetBreakerState(name, gobreaker.StateClosed.String())

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: rule.MaxRequests,
		Interval:    rule.Interval,
		Timeout:     rule.Timeout,

		ReadyToTrip: func(c gobreaker.Counts) bool {
			// 1) 连续失败阈值优先
			if rule.TripConsecutiveFailures > 0 && c.ConsecutiveFailures >= rule.TripConsecutiveFailures {
				return true
			}
			// 2) 失败率阈值
			if rule.TripFailureRate > 0 && c.Requests >= rule.TripMinRequests {
				failRate := float64(c.TotalFailures) / float64(c.Requests)
				return failRate >= rule.TripFailureRate
			}
			return false
		},
		IsSuccessful: IsSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetBreakerState(name, to.String())
		},
	}
	return gobreaker.NewCircuitBreaker[T](st)
}

// IsSuccessful 决定哪些错误计入熔断失败：
// 调用方取消、4xx 类参数错误不代表上游不健康
func IsSuccessful(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var ce *xerr.CodeError
	if errors.As(err, &ce) && ce.Code == xerr.RequestParamsError {
		return true
	}
	return false
}

// Rejected 判断 err 是否是熔断器直接拒绝（没有真正发请求），并计数
func Rejected(name string, err error) bool {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState):
		metrics.CBRejectTotal.WithLabelValues(name, "open").Inc()
		return true
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CBRejectTotal.WithLabelValues(name, "too_many_requests").Inc()
		return true
	}
	return false
}
