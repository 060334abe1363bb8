package gateway

import (
	"context"
	"sync"
)

// memSub 一次 Subscribe 调用
type memSub struct {
	ch     chan Message
	topics map[string]struct{}
}

// MemBroker 单进程 broker：没有配置 NATS 时 mirror 用它
type MemBroker struct {
	mu   sync.RWMutex
	subs map[*memSub]struct{}
}

func NewMemBroker() *MemBroker {
	return &MemBroker{subs: make(map[*memSub]struct{}, 4)}
}

// Publish 至多一次：订阅者 chan 满了直接丢
func (b *MemBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := Message{Topic: topic, Payload: payload}

	// 发送期间持读锁，取消订阅要拿写锁才能 close
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs {
		if _, ok := s.topics[topic]; !ok {
			continue
		}
		select {
		case s.ch <- msg:
		default:
		}
	}
	return nil
}

func (b *MemBroker) Subscribe(ctx context.Context, topics []string) (<-chan Message, error) {
	s := &memSub{
		ch:     make(chan Message, 4096),
		topics: make(map[string]struct{}, len(topics)),
	}
	for _, t := range topics {
		s.topics[t] = struct{}{}
	}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, s)
		close(s.ch)
		b.mu.Unlock()
	}()
	return s.ch, nil
}

func (b *MemBroker) Close() error { return nil }
