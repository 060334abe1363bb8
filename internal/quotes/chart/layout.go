package chart

import (
	"fmt"

	"cbmonitor.com/internal/quotes/pricebook"
)

// Layout 按顺序把产品分组到窗口，每个窗口最多 perWindow 个，最后一个可以不满
func Layout(products []string, perWindow int) [][]string {
	if perWindow < 1 {
		perWindow = 1
	}
	groups := make([][]string, 0, (len(products)+perWindow-1)/perWindow)
	for start := 0; start < len(products); start += perWindow {
		end := min(start+perWindow, len(products))
		g := make([]string, end-start)
		copy(g, products[start:end])
		groups = append(groups, g)
	}
	return groups
}

// WindowTitle 第 n 个窗口（从 1 开始）的标题
func WindowTitle(n int) string {
	return fmt.Sprintf("coinbase monitor - figure # %d", n)
}

// YLimits 纵轴范围：有极值时上下各留 0.01% 余量，否则用 [0,1] 占位
func YLimits(s pricebook.Snapshot) (lo, hi float64) {
	if !s.HasExtrema {
		return 0, 1
	}
	return 0.9999 * s.Min, 1.0001 * s.Max
}
