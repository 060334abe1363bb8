package coinbase

import (
	"context"
	"time"

	"github.com/coder/websocket"
	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"

	"cbmonitor.com/internal/quotes/datasource/model"
	"cbmonitor.com/internal/quotes/mdsource"
	"cbmonitor.com/internal/quotes/wsmetrics"
	"cbmonitor.com/pkg/logger"
	"cbmonitor.com/pkg/xerr"
)

const DefaultFeedURL = "wss://ws-feed.exchange.coinbase.com"

type Source struct {
	URL        string   // e.g. wss://ws-feed.exchange.coinbase.com
	ProductIDs []string // e.g. BTC-USD, ETH-USD
	Channels   []string // 默认只订阅 ticker

	ReadLimit   int64
	DialTimeout time.Duration
	WriteWait   time.Duration
	PingEvery   time.Duration // 0 表示不 ping
}

func NewSource(url string, productIDs []string) *Source {
	if url == "" {
		url = DefaultFeedURL
	}
	return &Source{
		URL:         url,
		ProductIDs:  productIDs,
		Channels:    []string{"ticker"},
		ReadLimit:   1 << 20,
		DialTimeout: 10 * time.Second,
		WriteWait:   5 * time.Second,
		PingEvery:   20 * time.Second,
	}
}

func (s *Source) Name() string { return "coinbase" }

type subscribeMsg struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids"`
	Channels   []string `json:"channels"`
}

func (s *Source) subscribeFrame() ([]byte, error) {
	return json.Marshal(subscribeMsg{
		Type:       "subscribe",
		ProductIDs: s.ProductIDs,
		Channels:   s.Channels,
	})
}

// Run: 一次连接生命周期，断线即返回（不做重连）
func (s *Source) Run(ctx context.Context, out chan<- model.Tick) error {
	dctx, cancel := context.WithTimeout(ctx, s.DialTimeout)
	conn, _, err := websocket.Dial(dctx, s.URL, nil)
	cancel()
	if err != nil {
		// 没连上算上游错误；连上之后的断线原样返回
		return xerr.Wrap(xerr.UpstreamError, "dial feed", err)
	}
	defer conn.CloseNow()

	wsmetrics.OnFeedOpen()
	logger.Info(ctx, "feed connected", zap.String("url", s.URL), zap.Strings("products", s.ProductIDs))

	err = s.serveConn(ctx, conn, out)
	wsmetrics.OnFeedClose(int(websocket.CloseStatus(err)))
	return err
}

func (s *Source) serveConn(ctx context.Context, conn *websocket.Conn, out chan<- model.Tick) error {
	if s.ReadLimit > 0 {
		conn.SetReadLimit(s.ReadLimit)
	}

	sub, err := s.subscribeFrame()
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, s.WriteWait)
	err = conn.Write(wctx, websocket.MessageText, sub)
	cancel()
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)

	// reader：Read -> ParseTicker -> out
	go func() {
		for {
			_, raw, err := conn.Read(ctx)
			if err != nil {
				errCh <- err
				return
			}
			tk, ok := ParseTicker(raw)
			if !ok {
				wsmetrics.FeedDropped.WithLabelValues("incomplete").Inc()
				continue
			}
			wsmetrics.TicksReceived.WithLabelValues(tk.ProductID).Inc()
			select {
			case out <- tk:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
	}()

	var pingC <-chan time.Time
	if s.PingEvery > 0 {
		pingT := time.NewTicker(s.PingEvery)
		defer pingT.Stop()
		pingC = pingT.C
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "bye")
			return ctx.Err()

		case err := <-errCh:
			return err

		case <-pingC:
			pctx, cancel := context.WithTimeout(ctx, s.WriteWait)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

var _ mdsource.Source = (*Source)(nil)
