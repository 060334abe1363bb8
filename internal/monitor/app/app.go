package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cbmonitor.com/internal/monitor/config"
	"cbmonitor.com/internal/monitor/status"
	"cbmonitor.com/internal/quotes/chart"
	"cbmonitor.com/internal/quotes/datasource/coinbase"
	"cbmonitor.com/internal/quotes/datasource/model"
	"cbmonitor.com/internal/quotes/gateway"
	"cbmonitor.com/internal/quotes/listing"
	"cbmonitor.com/internal/quotes/mdsource"
	"cbmonitor.com/internal/quotes/pricebook"
	"cbmonitor.com/internal/quotes/ws"
	pconf "cbmonitor.com/pkg/config"
	"cbmonitor.com/pkg/logger"
	"cbmonitor.com/pkg/safe"
	"cbmonitor.com/pkg/xerr"
)

// App 监控客户端：列表模式或图表模式
type App struct {
	cfg    config.Config
	v      *viper.Viper // 可为 nil，表示不监听配置文件
	stdout io.Writer
}

func New(cfg config.Config, v *viper.Viper, stdout io.Writer) *App {
	return &App{cfg: cfg, v: v, stdout: stdout}
}

func (a *App) Run(ctx context.Context) error {
	if a.cfg.Listing() {
		return a.list(ctx)
	}
	return a.monitor(ctx)
}

// list 一次性输出产品列表；-s 优先于 -q
func (a *App) list(ctx context.Context) error {
	products, err := coinbase.NewCatalog(a.cfg.APIURL).Products(ctx)
	if err != nil {
		return err
	}
	if a.cfg.ShowSupportedProducts {
		return listing.WriteProducts(a.stdout, listing.GroupByQuote(products), a.cfg.SelectCurrency)
	}
	return listing.WriteQuoteCurrencies(a.stdout, listing.QuoteCurrencies(products))
}

func (a *App) monitor(parent context.Context) error {
	products := a.cfg.Products()
	book, err := pricebook.New(products, a.cfg.MaxLen)
	if err != nil {
		return xerr.Wrap(xerr.RequestParamsError, "create price book", err)
	}
	interval := time.Duration(a.cfg.AnimationInterval) * time.Millisecond
	refresher, err := chart.NewRefresher(book, chart.NewTermBackend(a.stdout), products, a.cfg.PlotsPerFig, interval)
	if err != nil {
		return xerr.Wrap(xerr.RequestParamsError, "create chart", err)
	}
	runner := mdsource.NewRunner(4096, coinbase.NewSource(a.cfg.FeedURL, products))

	// 可选：mirror + 状态服务共用一个 hub
	var (
		hub    *ws.Hub
		mirror *gateway.Mirror
	)
	if a.cfg.ServeAddr != "" || a.cfg.NatsURL != "" {
		broker, err := a.newBroker()
		if err != nil {
			return err
		}
		defer broker.Close()
		hub = ws.NewHub()
		mirror = gateway.NewMirror(hub, broker, products)
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	a.watchConfig(gctx, refresher)

	fmt.Fprintln(a.stdout, ">> Monitoring client started successfully")
	fmt.Fprintf(a.stdout, ">> Monitoring: %v\n", products)
	logger.Info(gctx, "monitoring started",
		zap.Strings("products", products),
		zap.Int("maxlen", a.cfg.MaxLen),
		zap.Duration("interval", interval),
	)

	// feed 结束（断线或没连上）就收工，其余协程跟着退出
	g.Go(safe.Func(gctx, "feed", func(ctx context.Context) error {
		defer cancel()
		err := runner.Run(ctx)
		if err == nil {
			return nil
		}
		if xerr.CodeOf(err) == xerr.UpstreamError {
			return err
		}
		logger.Warn(ctx, "feed closed", zap.Error(err))
		return nil
	}))

	var onApplied func(model.Tick)
	if mirror != nil {
		onApplied = mirror.Offer
		g.Go(safe.Func(gctx, "mirror", func(ctx context.Context) error {
			return quiet(mirror.Run(ctx))
		}))
	}
	g.Go(safe.Func(gctx, "listen", func(ctx context.Context) error {
		return quiet(book.Listen(ctx, runner.Out, onApplied))
	}))
	g.Go(safe.Func(gctx, "chart", func(ctx context.Context) error {
		return quiet(refresher.Run(ctx))
	}))

	if a.cfg.ServeAddr != "" {
		srv := status.NewServer(a.cfg.ServeAddr, status.NewRouter(gctx, book, ws.NewServer(gctx, hub)))
		g.Go(safe.Func(gctx, "status", func(ctx context.Context) error {
			return status.Serve(ctx, srv)
		}))
	}

	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "-- Goodbye! --")
	return nil
}

func (a *App) newBroker() (gateway.Broker, error) {
	if a.cfg.NatsURL == "" {
		return gateway.NewMemBroker(), nil
	}
	b, err := gateway.NewNatsBroker(a.cfg.NatsURL)
	if err != nil {
		return nil, xerr.Wrap(xerr.UpstreamError, "connect nats", err)
	}
	return b, nil
}

// watchConfig 只热更新重绘间隔和日志级别，其余改动提示重启
func (a *App) watchConfig(ctx context.Context, refresher *chart.Refresher) {
	if a.v == nil {
		return
	}
	current := a.cfg
	pconf.Watch(a.v, func(next config.Config, err error) {
		if err != nil {
			logger.Warn(ctx, "reload config", zap.Error(err))
			return
		}
		if next.AnimationInterval > 0 && next.AnimationInterval != current.AnimationInterval {
			refresher.SetInterval(time.Duration(next.AnimationInterval) * time.Millisecond)
		}
		if next.LogLevel != current.LogLevel {
			logger.SetLevel(next.LogLevel)
			logger.Info(ctx, "log level changed", zap.String("level", next.LogLevel))
		}
		if keys := current.RestartRequired(next); len(keys) > 0 {
			logger.Warn(ctx, "config change needs restart", zap.Strings("keys", keys))
		}
		// 只记录已生效的部分，需重启的项继续和启动值比较
		current.AnimationInterval = next.AnimationInterval
		current.LogLevel = next.LogLevel
	})
}

// quiet 把 ctx 取消当作正常退出
func quiet(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
