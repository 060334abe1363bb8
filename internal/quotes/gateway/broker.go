package gateway

import "context"

type Message struct {
	Topic   string
	Payload []byte
}

// Broker：tick 的转发通道（单机=内存，多机=NATS）
type Broker interface {
	// publish
	Publish(ctx context.Context, topic string, payload []byte) error
	// 订阅，ctx 结束后返回的 chan 会被关闭
	Subscribe(ctx context.Context, topics []string) (<-chan Message, error)
	// 关闭
	Close() error
}
