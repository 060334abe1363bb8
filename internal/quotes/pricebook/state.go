package pricebook

import (
	"math"
	"sync"
)

// State 是单个产品的行情状态。
//
// data 只保留最近 maxLen 个价格（FIFO 淘汰）；Min/Max 是从开始监控起的历史极值，
// 与淘汰无关，进程存活期间只会单调扩张，不会重置。
type State struct {
	product string

	mu    sync.Mutex
	data  ring
	min   float64
	max   float64
	seen  bool
	count uint64
}

func newState(product string, maxLen int) *State {
	return &State{product: product, data: newRing(maxLen)}
}

// Push 追加一个价格并更新极值；NaN/Inf 直接忽略
func (s *State) Push(price float64) bool {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return false
	}
	s.mu.Lock()
	s.data.push(price)
	if !s.seen {
		s.min, s.max, s.seen = price, price, true
	} else {
		s.min = math.Min(s.min, price)
		s.max = math.Max(s.max, price)
	}
	s.count++
	s.mu.Unlock()
	return true
}

// Snapshot 返回一份拷贝，读方拿到后随便用，不会和写方竞争
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Product:    s.product,
		Data:       s.data.appendTo(make([]float64, 0, s.data.len())),
		Min:        s.min,
		Max:        s.max,
		HasExtrema: s.seen,
		Count:      s.count,
	}
}

// Snapshot: State 某一时刻的只读视图
type Snapshot struct {
	Product string    `json:"product"`
	Data    []float64 `json:"data"` // 从旧到新

	// 历史极值（自开始监控起），HasExtrema=false 表示还没收到过价格
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	HasExtrema bool    `json:"has_extrema"`

	Count uint64 `json:"count"` // 累计收到的价格数（含已淘汰的）
}

// Last 最新价格
func (s Snapshot) Last() (float64, bool) {
	if len(s.Data) == 0 {
		return 0, false
	}
	return s.Data[len(s.Data)-1], true
}
