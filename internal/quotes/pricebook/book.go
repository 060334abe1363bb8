package pricebook

import (
	"context"
	"fmt"

	"cbmonitor.com/internal/quotes/datasource/model"
	"cbmonitor.com/internal/quotes/wsmetrics"
)

// Book: 一组被监控产品的状态。产品集合创建后固定，map 本身只读，无需加锁
type Book struct {
	maxLen int
	order  []string
	states map[string]*State
}

func New(products []string, maxLen int) (*Book, error) {
	if maxLen < 1 {
		return nil, fmt.Errorf("maxlen must be >= 1, got %d", maxLen)
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("no products to monitor")
	}
	b := &Book{
		maxLen: maxLen,
		order:  make([]string, 0, len(products)),
		states: make(map[string]*State, len(products)),
	}
	for _, p := range products {
		if _, dup := b.states[p]; dup {
			return nil, fmt.Errorf("duplicate product %q", p)
		}
		b.states[p] = newState(p, maxLen)
		b.order = append(b.order, p)
	}
	return b, nil
}

func (b *Book) MaxLen() int { return b.maxLen }

// Products 按传入顺序返回产品列表
func (b *Book) Products() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Apply 是 feed 回调：price/type/product_id 齐全且产品在监控列表里才写入。
// 其它情况静默忽略，返回 false
func (b *Book) Apply(t model.Tick) bool {
	if t.PriceStr == "" || t.Type == "" || t.ProductID == "" {
		return false
	}
	return b.Push(t.ProductID, t.Float())
}

// Push 直接写入一个价格；产品不在监控列表里返回 false
func (b *Book) Push(product string, price float64) bool {
	s, ok := b.states[product]
	if !ok {
		return false
	}
	return s.Push(price)
}

func (b *Book) Snapshot(product string) (Snapshot, bool) {
	s, ok := b.states[product]
	if !ok {
		return Snapshot{}, false
	}
	return s.Snapshot(), true
}

// Snapshots 按产品顺序返回全部快照
func (b *Book) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, len(b.order))
	for _, p := range b.order {
		out = append(out, b.states[p].Snapshot())
	}
	return out
}

// Listen 单写者循环：把 in 里的 tick 依次 Apply，直到 in 关闭或 ctx 结束。
// onApplied 可为 nil，只对写入成功的 tick 调用（例如转发给 mirror）
func (b *Book) Listen(ctx context.Context, in <-chan model.Tick, onApplied func(model.Tick)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t, ok := <-in:
			if !ok {
				return nil
			}
			if !b.Apply(t) {
				wsmetrics.FeedDropped.WithLabelValues("unmonitored").Inc()
				continue
			}
			wsmetrics.TicksApplied.WithLabelValues(t.ProductID).Inc()
			wsmetrics.LastPrice.WithLabelValues(t.ProductID).Set(t.Float())
			if onApplied != nil {
				onApplied(t)
			}
		}
	}
}
