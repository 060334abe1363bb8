// Package listing 格式化产品目录输出（--show-supported-products / --show-supported-quote-currencies）
package listing

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"cbmonitor.com/internal/quotes/datasource/coinbase"
	"cbmonitor.com/pkg/xerr"
)

// GroupByQuote 按计价货币分组，每组内产品 id 排序
func GroupByQuote(products []coinbase.Product) map[string][]string {
	groups := make(map[string][]string)
	for _, p := range products {
		groups[p.QuoteCurrency] = append(groups[p.QuoteCurrency], p.ID)
	}
	for _, ids := range groups {
		sort.Strings(ids)
	}
	return groups
}

// QuoteCurrencies 去重后排序的计价货币
func QuoteCurrencies(products []coinbase.Product) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, 8)
	for _, p := range products {
		if _, ok := seen[p.QuoteCurrency]; ok {
			continue
		}
		seen[p.QuoteCurrency] = struct{}{}
		out = append(out, p.QuoteCurrency)
	}
	sort.Strings(out)
	return out
}

// WriteProducts currency 为空时每个计价货币一行：">> USD: [BTC-USD ETH-USD]"；
// 否则只输出该组："[BTC-USD ETH-USD]"
func WriteProducts(w io.Writer, groups map[string][]string, currency string) error {
	if currency != "" {
		ids, ok := groups[strings.ToUpper(currency)]
		if !ok {
			return xerr.New(xerr.RecordNotFound, fmt.Sprintf("unknown quote currency %q", currency))
		}
		_, err := fmt.Fprintf(w, "[%s]\n", strings.Join(ids, " "))
		return err
	}

	quotes := make([]string, 0, len(groups))
	for q := range groups {
		quotes = append(quotes, q)
	}
	sort.Strings(quotes)
	for _, q := range quotes {
		if _, err := fmt.Fprintf(w, ">> %s: [%s]\n", q, strings.Join(groups[q], " ")); err != nil {
			return err
		}
	}
	return nil
}

// WriteQuoteCurrencies 输出 "{EUR GBP USD}"
func WriteQuoteCurrencies(w io.Writer, quotes []string) error {
	_, err := fmt.Fprintf(w, "{%s}\n", strings.Join(quotes, " "))
	return err
}
