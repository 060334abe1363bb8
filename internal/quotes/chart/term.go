package chart

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/guptarohit/asciigraph"
)

const clearScreen = "\033[H\033[2J"

// TermBackend 用 asciigraph 把所有窗口画到终端
type TermBackend struct {
	Out    io.Writer
	Height int  // 每个 panel 的行数
	Width  int  // 序列比这更长时压缩到这个宽度
	Clear  bool // 每轮先清屏

	mu      sync.Mutex
	windows []*TermWindow
	frame   bytes.Buffer
}

func NewTermBackend(out io.Writer) *TermBackend {
	return &TermBackend{Out: out, Height: 10, Width: 100, Clear: true}
}

func (b *TermBackend) NewWindow(title string, panels int) Window {
	w := &TermWindow{title: title, panels: make([]*TermPanel, panels)}
	for i := range w.panels {
		w.panels[i] = &TermPanel{lo: 0, hi: 1}
	}
	b.mu.Lock()
	b.windows = append(b.windows, w)
	b.mu.Unlock()
	return w
}

func (b *TermBackend) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.frame.Reset()
	if b.Clear {
		b.frame.WriteString(clearScreen)
	}
	for _, w := range b.windows {
		fmt.Fprintf(&b.frame, "=== %s ===\n", w.title)
		for _, p := range w.panels {
			p.render(&b.frame, b.Height, b.Width)
			b.frame.WriteByte('\n')
		}
	}
	_, err := b.Out.Write(b.frame.Bytes())
	return err
}

type TermWindow struct {
	title  string
	panels []*TermPanel
}

func (w *TermWindow) Title() string { return w.title }

func (w *TermWindow) Panels() []Panel {
	out := make([]Panel, len(w.panels))
	for i, p := range w.panels {
		out[i] = p
	}
	return out
}

// TermPanel 记录一次绘制的内容，Present 时统一渲染
type TermPanel struct {
	label  string
	series []float64
	lo, hi float64
	hideX  bool
}

func (p *TermPanel) Clear() {
	p.label = ""
	p.series = p.series[:0]
	p.lo, p.hi = 0, 1
	p.hideX = false
}

func (p *TermPanel) Plot(series []float64, label string) {
	p.series = append(p.series[:0], series...)
	p.label = label
}

func (p *TermPanel) SetYLim(lo, hi float64) { p.lo, p.hi = lo, hi }

func (p *TermPanel) HideXTicks() { p.hideX = true }

func (p *TermPanel) render(w io.Writer, height, width int) {
	if len(p.series) == 0 {
		// 还没有数据：只画标题和占位范围
		fmt.Fprintf(w, "%s\n", p.label)
		prec := precisionFor(p.hi)
		fmt.Fprintf(w, " %s ┤\n", formatAxis(p.hi, prec))
		fmt.Fprintf(w, " %s ┼%s\n", formatAxis(p.lo, prec), strings.Repeat("─", 10))
		return
	}

	opts := []asciigraph.Option{
		asciigraph.Height(height),
		asciigraph.LowerBound(p.lo),
		asciigraph.UpperBound(p.hi),
		asciigraph.Precision(precisionFor(p.hi)),
		asciigraph.Caption(p.label),
	}
	if width > 0 && len(p.series) > width {
		opts = append(opts, asciigraph.Width(width))
	}
	fmt.Fprintln(w, asciigraph.Plot(p.series, opts...))
	if !p.hideX {
		fmt.Fprintf(w, " 0 … %d\n", len(p.series)-1)
	}
}

// precisionFor 价格越小保留的小数越多
func precisionFor(v float64) uint {
	switch v = math.Abs(v); {
	case v < 1:
		return 6
	case v < 100:
		return 4
	default:
		return 2
	}
}

func formatAxis(v float64, prec uint) string {
	return fmt.Sprintf("%.*f", int(prec), v)
}
