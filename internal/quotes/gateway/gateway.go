package gateway

import (
	"context"

	"go.uber.org/zap"

	"cbmonitor.com/internal/quotes/datasource/model"
	"cbmonitor.com/internal/quotes/ws"
	"cbmonitor.com/internal/quotes/wsmetrics"
	"cbmonitor.com/pkg/logger"
)

// Mirror：把已写入的 tick 转发到 broker，再从 broker 桥接到本地 ws hub。
// 只读 tick，不回写监控状态
type Mirror struct {
	hub     *ws.Hub
	broker  Broker
	topics  []string
	pending chan model.Tick
}

func NewMirror(hub *ws.Hub, broker Broker, products []string) *Mirror {
	topics := make([]string, 0, len(products))
	for _, p := range products {
		topics = append(topics, ws.Topic(p))
	}
	return &Mirror{
		hub:     hub,
		broker:  broker,
		topics:  topics,
		pending: make(chan model.Tick, 4096),
	}
}

// Offer 非阻塞投递；队列满直接丢，不能拖慢 feed 回调
func (m *Mirror) Offer(t model.Tick) {
	select {
	case m.pending <- t:
	default:
		wsmetrics.MirrorPublishErrors.Inc()
	}
}

// Run：订阅 broker -> hub，同时 pending -> broker，直到 ctx 结束
func (m *Mirror) Run(ctx context.Context) error {
	ch, err := m.broker.Subscribe(ctx, m.topics)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-m.pending:
			m.publish(ctx, t)
		case msg, ok := <-ch:
			if !ok {
				return ctx.Err()
			}
			ws.BridgeRaw(m.hub, msg.Topic, msg.Payload)
		}
	}
}

func (m *Mirror) publish(ctx context.Context, t model.Tick) {
	topic, payload, err := ws.EncodeTick(t)
	if err != nil {
		wsmetrics.MirrorPublishErrors.Inc()
		return
	}
	if err := m.broker.Publish(ctx, topic, payload); err != nil {
		wsmetrics.MirrorPublishErrors.Inc()
		logger.Warn(ctx, "broker publish err", zap.String("topic", topic), zap.Error(err))
	}
}
