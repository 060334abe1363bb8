package chart

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"cbmonitor.com/internal/quotes/pricebook"
	"cbmonitor.com/internal/quotes/wsmetrics"
	"cbmonitor.com/pkg/logger"
)

// Panel 一个产品的绘图区域
type Panel interface {
	Clear()
	Plot(series []float64, label string)
	SetYLim(lo, hi float64)
	HideXTicks()
}

// Window 一组 Panel
type Window interface {
	Title() string
	Panels() []Panel
}

// Backend 具体的绘图实现（终端、测试桩……）
type Backend interface {
	NewWindow(title string, panels int) Window
	// Present 一轮重绘结束后调用，把所有窗口输出
	Present() error
}

// Reader 只读取快照，不修改状态
type Reader interface {
	Snapshot(product string) (pricebook.Snapshot, bool)
}

type slot struct {
	product string
	panel   Panel
}

// Refresher 定时重绘所有产品
type Refresher struct {
	book    Reader
	backend Backend
	windows [][]slot

	interval time.Duration
	reset    chan time.Duration
}

func NewRefresher(book Reader, backend Backend, products []string, perWindow int, interval time.Duration) (*Refresher, error) {
	if interval <= 0 {
		return nil, errors.New("redraw interval must be > 0")
	}
	r := &Refresher{
		book:     book,
		backend:  backend,
		interval: interval,
		reset:    make(chan time.Duration, 1),
	}
	for i, group := range Layout(products, perWindow) {
		w := backend.NewWindow(WindowTitle(i+1), len(group))
		panels := w.Panels()
		if len(panels) < len(group) {
			return nil, errors.New("backend returned fewer panels than requested")
		}
		slots := make([]slot, len(group))
		for j, p := range group {
			slots[j] = slot{product: p, panel: panels[j]}
		}
		r.windows = append(r.windows, slots)
	}
	return r, nil
}

// Windows 窗口数
func (r *Refresher) Windows() int { return len(r.windows) }

// Draw 一轮重绘：清空、画全量序列、设置纵轴、隐藏横轴刻度
func (r *Refresher) Draw() error {
	start := time.Now()
	for _, slots := range r.windows {
		for _, s := range slots {
			snap, _ := r.book.Snapshot(s.product)
			s.panel.Clear()
			s.panel.Plot(snap.Data, s.product)
			s.panel.SetYLim(YLimits(snap))
			s.panel.HideXTicks()
		}
	}
	err := r.backend.Present()
	wsmetrics.ObserveRedraw(time.Since(start))
	return err
}

// SetInterval 热更新重绘间隔；<=0 忽略
func (r *Refresher) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	// 只保留最新一次
	for {
		select {
		case r.reset <- d:
			return
		default:
		}
		select {
		case <-r.reset:
		default:
		}
	}
}

// Run 先画一帧，然后按间隔重绘，直到 ctx 结束
func (r *Refresher) Run(ctx context.Context) error {
	if err := r.Draw(); err != nil {
		return err
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d := <-r.reset:
			r.interval = d
			ticker.Reset(d)
			logger.Info(ctx, "redraw interval changed", zap.Duration("interval", d))
		case <-ticker.C:
			if err := r.Draw(); err != nil {
				return err
			}
		}
	}
}
