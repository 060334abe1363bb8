package status

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprom "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"cbmonitor.com/internal/quotes/pricebook"
	"cbmonitor.com/internal/quotes/ws"
	"cbmonitor.com/pkg/common"
	"cbmonitor.com/pkg/logger"
	"cbmonitor.com/pkg/middleware"
	"cbmonitor.com/pkg/ratelimit"
	"cbmonitor.com/pkg/xerr"
)

// Reader 状态服务只读价格簿
type Reader interface {
	Snapshot(product string) (pricebook.Snapshot, bool)
	Snapshots() []pricebook.Snapshot
}

// 进程里只注册一次 http 指标
var httpMetrics = sync.OnceValue(func() *ginprom.Prometheus {
	p := ginprom.NewPrometheus("cbmonitor_http")
	// 用路由模板做 label，避免 /snapshot/:product 撑爆基数
	p.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
		if fp := c.FullPath(); fp != "" {
			return fp
		}
		return "unknown"
	}
	return p
})

// NewRouter 挂载 /ws /topics /metrics /snapshot /healthz /debug/pprof；wsSrv 为 nil 时不提供 /ws 和 /topics
func NewRouter(ctx context.Context, book Reader, wsSrv *ws.Server) *gin.Engine {
	store := ratelimit.NewStore(20, 40, 10*time.Minute)
	store.StartJanitor(ctx, time.Minute)

	r := gin.New()
	httpMetrics().Use(r)
	r.Use(
		middleware.ReqId(),
		cors.Default(),
		middleware.Recover(),
		middleware.RateLimit(store),
	)

	r.GET("/healthz", func(c *gin.Context) { common.Success(c, "ok") })
	r.GET("/snapshot", func(c *gin.Context) {
		common.Success(c, book.Snapshots())
	})
	r.GET("/snapshot/:product", func(c *gin.Context) {
		product := strings.ToUpper(c.Param("product"))
		snap, ok := book.Snapshot(product)
		if !ok {
			common.FailErr(c, xerr.New(xerr.RecordNotFound, "product not monitored: "+product))
			return
		}
		common.Success(c, snap)
	})
	if wsSrv != nil {
		r.GET("/ws", gin.WrapF(wsSrv.ServeWS))
		r.GET("/topics", func(c *gin.Context) { common.Success(c, wsSrv.Hub.Topics()) })
	}
	r.GET("/debug/pprof/*name", servePprof)
	return r
}

func servePprof(c *gin.Context) {
	switch strings.TrimPrefix(c.Param("name"), "/") {
	case "cmdline":
		pprof.Cmdline(c.Writer, c.Request)
	case "profile":
		pprof.Profile(c.Writer, c.Request)
	case "symbol":
		pprof.Symbol(c.Writer, c.Request)
	case "trace":
		pprof.Trace(c.Writer, c.Request)
	default:
		pprof.Index(c.Writer, c.Request)
	}
}

func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}

// Serve 阻塞直到 ctx 结束，随后优雅关闭
func Serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "status server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return xerr.Wrap(xerr.ServerCommonError, "status server", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn(ctx, "status server shutdown", zap.Error(err))
	}
	return nil
}
