package coinbase

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"

	"cbmonitor.com/pkg/breaker"
	"cbmonitor.com/pkg/metrics"
	"cbmonitor.com/pkg/xerr"
)

const DefaultAPIURL = "https://api.exchange.coinbase.com"

// 熔断器名 + 指标 label
const catalogTarget = "coinbase_products"

// Product: /products 返回的一项（只保留关心的字段）
type Product struct {
	ID              string          `json:"id"`
	BaseCurrency    string          `json:"base_currency"`
	QuoteCurrency   string          `json:"quote_currency"`
	DisplayName     string          `json:"display_name"`
	QuoteIncrement  decimal.Decimal `json:"quote_increment"`
	BaseIncrement   decimal.Decimal `json:"base_increment"`
	Status          string          `json:"status"`
	TradingDisabled bool            `json:"trading_disabled"`
}

// Catalog 是只读的产品目录查询
type Catalog struct {
	BaseURL string
	Client  *http.Client

	cb *gobreaker.CircuitBreaker[[]Product]
}

func NewCatalog(baseURL string) *Catalog {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	return &Catalog{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
		cb:      breaker.New[[]Product](catalogTarget, breaker.Rule{}),
	}
}

// Products 拉取全部产品
func (c *Catalog) Products(ctx context.Context) ([]Product, error) {
	ps, err := c.cb.Execute(func() ([]Product, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		if breaker.Rejected(catalogTarget, err) {
			return nil, xerr.Wrap(xerr.UpstreamError, "product catalog unavailable", err)
		}
		return nil, err
	}
	return ps, nil
}

func (c *Catalog) fetch(ctx context.Context) ([]Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/products", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "cbmonitor")

	start := time.Now()
	resp, err := c.Client.Do(req)
	if err != nil {
		metrics.ObserveUpstream(catalogTarget, 0, time.Since(start))
		metrics.UpstreamErrors.WithLabelValues(catalogTarget, "transport").Inc()
		return nil, xerr.Wrap(xerr.UpstreamError, "fetch products", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	metrics.ObserveUpstream(catalogTarget, resp.StatusCode, time.Since(start))
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues(catalogTarget, "read").Inc()
		return nil, xerr.Wrap(xerr.UpstreamError, "read products", err)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamErrors.WithLabelValues(catalogTarget, "status").Inc()
		return nil, xerr.Wrap(xerr.UpstreamError, "fetch products",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var ps []Product
	if err := json.Unmarshal(body, &ps); err != nil {
		metrics.UpstreamErrors.WithLabelValues(catalogTarget, "decode").Inc()
		return nil, xerr.Wrap(xerr.UpstreamError, "decode products", err)
	}
	return ps, nil
}
