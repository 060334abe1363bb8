package ws

import (
	"sort"
	"sync"

	"cbmonitor.com/internal/quotes/wsmetrics"
)

// topicState 一个 topic 的订阅者和最新一帧
type topicState struct {
	conns map[*Conn]struct{}
	last  []byte
}

// Hub 按 topic 把 tick 分发给本地 ws 连接；新订阅会先收到最新一帧
type Hub struct {
	mu     sync.RWMutex
	topics map[string]*topicState
}

func NewHub() *Hub {
	return &Hub{topics: make(map[string]*topicState, 64)}
}

// state 调用方持写锁
func (h *Hub) state(topic string) *topicState {
	st := h.topics[topic]
	if st == nil {
		st = &topicState{conns: make(map[*Conn]struct{}, 8)}
		h.topics[topic] = st
	}
	return st
}

func (h *Hub) Subscribe(c *Conn, topics []string) {
	wsmetrics.SubOpsTotal.WithLabelValues("sub").Inc()

	// 订阅和取快照在同一把锁里，保证不漏掉中间的 publish
	replay := make(map[string][]byte, len(topics))
	h.mu.Lock()
	for _, t := range topics {
		st := h.state(t)
		st.conns[c] = struct{}{}
		if st.last != nil {
			replay[t] = st.last
		}
	}
	h.mu.Unlock()

	for t, b := range replay {
		c.Offer(t, b)
	}
}

func (h *Hub) Unsubscribe(c *Conn, topics []string) {
	wsmetrics.SubOpsTotal.WithLabelValues("unsub").Inc()

	h.mu.Lock()
	for _, t := range topics {
		if st := h.topics[t]; st != nil {
			delete(st.conns, c)
		}
	}
	h.mu.Unlock()
}

// RemoveConn 连接断开时清掉它的全部订阅
func (h *Hub) RemoveConn(c *Conn) {
	h.mu.Lock()
	for _, st := range h.topics {
		delete(st.conns, c)
	}
	h.mu.Unlock()
}

// Publish 记下最新一帧并广播；Offer 不阻塞，慢连接只会丢旧帧
func (h *Hub) Publish(topic string, payload []byte) {
	cp := append([]byte(nil), payload...)

	h.mu.Lock()
	st := h.state(topic)
	st.last = cp
	targets := make([]*Conn, 0, len(st.conns))
	for c := range st.conns {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		c.Offer(topic, cp)
	}
}

// Subscribers 某个 topic 当前订阅数
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if st := h.topics[topic]; st != nil {
		return len(st.conns)
	}
	return 0
}

// Topics 已发布过数据的 topic，排序后返回
func (h *Hub) Topics() []string {
	h.mu.RLock()
	out := make([]string, 0, len(h.topics))
	for t, st := range h.topics {
		if st.last != nil {
			out = append(out, t)
		}
	}
	h.mu.RUnlock()
	sort.Strings(out)
	return out
}
