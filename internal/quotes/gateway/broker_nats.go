package gateway

import (
	"context"
	"strings"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"cbmonitor.com/pkg/logger"
)

// SubjectPrefix 所有 tick 都发在这个前缀下：cbmonitor.ticker.BTC-USD
const SubjectPrefix = "cbmonitor"

// NatsBroker 多个监控进程共享 tick；消息至多一次，不持久化
type NatsBroker struct {
	nc     *nats.Conn
	prefix string
}

func NewNatsBroker(url string, opts ...nats.Option) (*NatsBroker, error) {
	base := []nats.Option{
		nats.Name("cbmonitor"),
		nats.DisconnectHandler(func(*nats.Conn) {
			logger.Warn(context.Background(), "nats disconnected", zap.String("url", url))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info(context.Background(), "nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	nc, err := nats.Connect(url, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	return &NatsBroker{nc: nc, prefix: SubjectPrefix}, nil
}

func (b *NatsBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.nc.Publish(b.subject(topic), payload)
}

// Subscribe 所有 topic 共用一个 nats chan；out 只由转发协程写和关闭
func (b *NatsBroker) Subscribe(ctx context.Context, topics []string) (<-chan Message, error) {
	in := make(chan *nats.Msg, 8192)
	subs := make([]*nats.Subscription, 0, len(topics))
	for _, t := range topics {
		sub, err := b.nc.ChanSubscribe(b.subject(t), in)
		if err != nil {
			unsubscribeAll(subs)
			return nil, err
		}
		subs = append(subs, sub)
	}

	out := make(chan Message, 4096)
	go func() {
		defer close(out)
		defer unsubscribeAll(subs)
		for {
			select {
			case <-ctx.Done():
				return
			case m := <-in:
				topic, ok := b.topic(m.Subject)
				if !ok {
					continue
				}
				// 慢消费者直接丢
				select {
				case out <- Message{Topic: topic, Payload: m.Data}:
				default:
				}
			}
		}
	}()
	return out, nil
}

func (b *NatsBroker) Close() error {
	if b.nc == nil {
		return nil
	}
	err := b.nc.Drain()
	b.nc.Close()
	return err
}

func (b *NatsBroker) subject(topic string) string {
	return b.prefix + "." + topicToSubject(topic)
}

func (b *NatsBroker) topic(subject string) (string, bool) {
	rest, ok := strings.CutPrefix(subject, b.prefix+".")
	if !ok {
		return "", false
	}
	return subjectToTopic(rest), true
}

func unsubscribeAll(subs []*nats.Subscription) {
	for _, s := range subs {
		_ = s.Unsubscribe()
	}
}

// ticker:BTC-USD <-> ticker.BTC-USD
func topicToSubject(topic string) string { return strings.ReplaceAll(topic, ":", ".") }
func subjectToTopic(subj string) string  { return strings.ReplaceAll(subj, ".", ":") }
