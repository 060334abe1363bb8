package chart

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cbmonitor.com/internal/quotes/pricebook"
)

// 记录调用顺序的测试桩
type fakePanel struct {
	calls  []string
	series []float64
	label  string
	lo, hi float64
	hideX  bool
}

func (p *fakePanel) Clear() {
	p.calls = append(p.calls, "clear")
	p.series, p.label, p.hideX = nil, "", false
}
func (p *fakePanel) Plot(s []float64, label string) {
	p.calls = append(p.calls, "plot")
	p.series, p.label = s, label
}
func (p *fakePanel) SetYLim(lo, hi float64) {
	p.calls = append(p.calls, "ylim")
	p.lo, p.hi = lo, hi
}
func (p *fakePanel) HideXTicks() {
	p.calls = append(p.calls, "hidex")
	p.hideX = true
}

type fakeWindow struct {
	title  string
	panels []*fakePanel
}

func (w *fakeWindow) Title() string { return w.title }
func (w *fakeWindow) Panels() []Panel {
	out := make([]Panel, len(w.panels))
	for i, p := range w.panels {
		out[i] = p
	}
	return out
}

type fakeBackend struct {
	mu       sync.Mutex
	windows  []*fakeWindow
	presents int
}

func (b *fakeBackend) NewWindow(title string, n int) Window {
	w := &fakeWindow{title: title}
	for i := 0; i < n; i++ {
		w.panels = append(w.panels, &fakePanel{})
	}
	b.windows = append(b.windows, w)
	return w
}

func (b *fakeBackend) Present() error {
	b.mu.Lock()
	b.presents++
	b.mu.Unlock()
	return nil
}

func (b *fakeBackend) presentCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.presents
}

func TestRefresher_Draw(t *testing.T) {
	book, err := pricebook.New([]string{"BTC-USD", "ETH-USD", "XLM-USD"}, 3)
	require.NoError(t, err)
	for _, px := range []float64{10, 12, 8, 15} {
		book.Push("BTC-USD", px)
	}

	be := &fakeBackend{}
	r, err := NewRefresher(book, be, book.Products(), 2, time.Second)
	require.NoError(t, err)
	require.Equal(t, 2, r.Windows())
	require.NoError(t, r.Draw())

	require.Len(t, be.windows, 2)
	assert.Equal(t, "coinbase monitor - figure # 1", be.windows[0].title)
	assert.Equal(t, "coinbase monitor - figure # 2", be.windows[1].title)
	require.Len(t, be.windows[0].panels, 2)
	require.Len(t, be.windows[1].panels, 1)

	btc := be.windows[0].panels[0]
	assert.Equal(t, []string{"clear", "plot", "ylim", "hidex"}, btc.calls)
	assert.Equal(t, "BTC-USD", btc.label)
	assert.Equal(t, []float64{12, 8, 15}, btc.series)
	assert.InDelta(t, 0.9999*8, btc.lo, 1e-12)
	assert.InDelta(t, 1.0001*15, btc.hi, 1e-12)
	assert.True(t, btc.hideX)

	// 没数据的产品：空序列 + [0,1]
	xlm := be.windows[1].panels[0]
	assert.Equal(t, "XLM-USD", xlm.label)
	assert.Empty(t, xlm.series)
	assert.Equal(t, 0.0, xlm.lo)
	assert.Equal(t, 1.0, xlm.hi)

	assert.Equal(t, 1, be.presentCount())
}

func TestRefresher_BadInterval(t *testing.T) {
	book, _ := pricebook.New([]string{"A"}, 3)
	_, err := NewRefresher(book, &fakeBackend{}, book.Products(), 2, 0)
	assert.Error(t, err)
}

func TestRefresher_RunAndSetInterval(t *testing.T) {
	book, _ := pricebook.New([]string{"A"}, 3)
	be := &fakeBackend{}
	r, err := NewRefresher(book, be, book.Products(), 2, time.Hour)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	// 首帧立即绘制
	require.Eventually(t, func() bool { return be.presentCount() >= 1 }, time.Second, 5*time.Millisecond)

	// 1h 间隔改成 10ms 后应该很快有后续帧
	r.SetInterval(10 * time.Millisecond)
	r.SetInterval(0) // 忽略
	require.Eventually(t, func() bool { return be.presentCount() >= 3 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestTermBackend_Present(t *testing.T) {
	book, _ := pricebook.New([]string{"BTC-USD", "ETH-USD"}, 50)
	for i := 0; i < 20; i++ {
		book.Push("BTC-USD", 16800+float64(i%5))
	}

	var out bytes.Buffer
	be := NewTermBackend(&out)
	be.Height = 5
	r, err := NewRefresher(book, be, book.Products(), 1, time.Second)
	require.NoError(t, err)
	require.NoError(t, r.Draw())

	s := out.String()
	assert.True(t, strings.HasPrefix(s, clearScreen))
	assert.Contains(t, s, "=== coinbase monitor - figure # 1 ===")
	assert.Contains(t, s, "=== coinbase monitor - figure # 2 ===")
	assert.Contains(t, s, "BTC-USD")
	assert.Contains(t, s, "ETH-USD")
	// 空产品画占位范围
	assert.Contains(t, s, "1.0000 ┤")
	assert.Contains(t, s, "0.0000 ┼")
	// 横轴刻度被隐藏
	assert.NotContains(t, s, " 0 … ")

	// 第二轮不叠加上一轮内容
	out.Reset()
	require.NoError(t, r.Draw())
	assert.Equal(t, 1, strings.Count(out.String(), "figure # 1"))
}

func TestTermPanel_CompressesLongSeries(t *testing.T) {
	p := &TermPanel{}
	series := make([]float64, 500)
	for i := range series {
		series[i] = float64(i)
	}
	p.Plot(series, "LONG")
	p.SetYLim(0, 500)

	var out bytes.Buffer
	p.render(&out, 4, 40)
	for _, line := range strings.Split(out.String(), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), 80)
	}
	assert.Contains(t, out.String(), "LONG")
	assert.Contains(t, out.String(), " 0 … 499")
}

func TestPrecisionFor(t *testing.T) {
	assert.Equal(t, uint(6), precisionFor(0.12))
	assert.Equal(t, uint(4), precisionFor(12))
	assert.Equal(t, uint(2), precisionFor(16800))
}
