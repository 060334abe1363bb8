package app

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cbmonitor.com/internal/monitor/config"
	"cbmonitor.com/pkg/xerr"
)

const productsBody = `[
 {"id":"ETH-USD","base_currency":"ETH","quote_currency":"USD","status":"online"},
 {"id":"BTC-USD","base_currency":"BTC","quote_currency":"USD","status":"online"},
 {"id":"BTC-EUR","base_currency":"BTC","quote_currency":"EUR","status":"online"}
]`

// syncBuffer 图表协程和测试同时读写 stdout
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func catalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(productsBody))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// feedServer 收到订阅后推几条 ticker，然后关闭连接
func feedServer(t *testing.T, frames ...string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		ctx := r.Context()
		if _, _, err := c.Read(ctx); err != nil {
			return
		}
		for _, f := range frames {
			if err := c.Write(ctx, websocket.MessageText, []byte(f)); err != nil {
				return
			}
		}
		// 给图表留一帧的时间
		time.Sleep(100 * time.Millisecond)
		_ = c.Close(websocket.StatusNormalClosure, "done")
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func baseConfig() config.Config {
	return config.Config{
		PlotsPerFig:       2,
		AnimationInterval: 10,
		MaxLen:            100,
		ProductList:       "BTC-USD",
		LogLevel:          "info",
	}
}

func TestRun_ListProducts(t *testing.T) {
	srv := catalogServer(t)

	cfg := baseConfig()
	cfg.ShowSupportedProducts = true
	cfg.APIURL = srv.URL

	var out bytes.Buffer
	require.NoError(t, New(cfg, nil, &out).Run(context.Background()))
	assert.Equal(t, ">> EUR: [BTC-EUR]\n>> USD: [BTC-USD ETH-USD]\n", out.String())

	cfg.SelectCurrency = "USD"
	out.Reset()
	require.NoError(t, New(cfg, nil, &out).Run(context.Background()))
	assert.Equal(t, "[BTC-USD ETH-USD]\n", out.String())

	cfg.SelectCurrency = "JPY"
	out.Reset()
	err := New(cfg, nil, &out).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, xerr.ExitUsage, xerr.ExitCode(err))
}

func TestRun_ListQuoteCurrencies(t *testing.T) {
	srv := catalogServer(t)

	cfg := baseConfig()
	cfg.ShowQuoteCurrencies = true
	cfg.APIURL = srv.URL

	var out bytes.Buffer
	require.NoError(t, New(cfg, nil, &out).Run(context.Background()))
	assert.Equal(t, "{EUR USD}\n", out.String())
}

func TestRun_MonitorUntilFeedCloses(t *testing.T) {
	cfg := baseConfig()
	cfg.FeedURL = feedServer(t,
		`{"type":"ticker","product_id":"BTC-USD","price":"100"}`,
		`{"type":"ticker","product_id":"BTC-USD","price":"101"}`,
	)

	// 顺带把 mirror + 状态服务跑起来
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	cfg.ServeAddr = ln.Addr().String()
	require.NoError(t, ln.Close())

	out := &syncBuffer{}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, New(cfg, nil, out).Run(ctx))
	require.NoError(t, ctx.Err(), "app should exit when the feed closes")

	s := out.String()
	assert.True(t, strings.HasPrefix(s, ">> Monitoring client started successfully\n>> Monitoring: [BTC-USD]\n"))
	assert.Contains(t, s, "coinbase monitor - figure # 1")
	assert.Contains(t, s, "BTC-USD")
	assert.True(t, strings.HasSuffix(s, "-- Goodbye! --\n"))
}

func TestRun_MonitorStopsOnCancel(t *testing.T) {
	// 服务端连上后不再发数据，也不主动断开
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		for {
			if _, _, err := c.Read(r.Context()); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	cfg := baseConfig()
	cfg.FeedURL = "ws" + strings.TrimPrefix(srv.URL, "http")

	out := &syncBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(cfg, nil, out).Run(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "figure # 1")
	}, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(out.String(), "-- Goodbye! --\n"))
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop on cancel")
	}
}

func TestRun_FeedUnreachable(t *testing.T) {
	cfg := baseConfig()
	cfg.FeedURL = "ws://127.0.0.1:1"

	out := &syncBuffer{}
	err := New(cfg, nil, out).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, xerr.UpstreamError, xerr.CodeOf(err))
	assert.Equal(t, xerr.ExitFailure, xerr.ExitCode(err))
	assert.NotContains(t, out.String(), "Goodbye")
}
