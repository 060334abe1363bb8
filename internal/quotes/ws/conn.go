package ws

import (
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Conn 一个 ws 客户端。每个 topic 只保留最新一帧，写出前合并
type Conn struct {
	ws  *websocket.Conn
	hub *Hub

	mu      sync.Mutex
	pending map[string][]byte // topic -> 未写出的最新帧

	wake   chan struct{} // 缓冲 1：多次 Offer 合并成一次唤醒
	done   chan struct{} // 读协程退出时关闭
	closed atomic.Bool

	limiter *rate.Limiter // 写出节流；等待期间的新帧覆盖旧帧
}

func NewConn(h *Hub, ws *websocket.Conn, limit rate.Limit, burst int) *Conn {
	return &Conn{
		ws:      ws,
		hub:     h,
		pending: make(map[string][]byte, 8),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Offer 覆盖 topic 的待写帧；连接已关闭返回 false
func (c *Conn) Offer(topic string, payload []byte) bool {
	if c.closed.Load() {
		return false
	}
	c.mu.Lock()
	c.pending[topic] = payload
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return true
}

// take 取走最多 max 帧；more 表示还有剩余
func (c *Conn) take(max int) (out [][]byte, more bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		return nil, false
	}
	n := min(len(c.pending), max)
	out = make([][]byte, 0, n)
	for topic, b := range c.pending {
		out = append(out, b)
		delete(c.pending, topic)
		if len(out) == n {
			break
		}
	}
	return out, len(c.pending) > 0
}

// markClosed 只执行一次，返回是否是这次关闭的
func (c *Conn) markClosed() bool {
	if !c.closed.CompareAndSwap(false, true) {
		return false
	}
	close(c.done)
	return true
}
