package mdsource

import (
	"context"
	"errors"
	"sync"

	"cbmonitor.com/internal/quotes/datasource/model"
)

// Runner 把多个 Source 汇成一个 Tick 流。
// 每个 Source 只跑一次连接生命周期，断线不重连。
type Runner struct {
	sources []Source

	// Out 是统一 tick 流出口（上层只消费这个），所有 Source 结束后关闭
	Out chan model.Tick
}

func NewRunner(buf int, sources ...Source) *Runner {
	if buf <= 0 {
		buf = 4096
	}
	return &Runner{
		sources: sources,
		Out:     make(chan model.Tick, buf),
	}
}

// Run 阻塞直到所有 Source 返回；返回第一个非 ctx 取消类的错误
func (r *Runner) Run(ctx context.Context) error {
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for _, s := range r.sources {
		src := s
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := src.Run(ctx, r.Out)
			if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			once.Do(func() { firstErr = wrapErr(src.Name(), err) })
		}()
	}
	wg.Wait()
	close(r.Out)
	return firstErr
}

type namedErr struct {
	src string
	err error
}

func (e namedErr) Error() string          { return e.src + ": " + e.err.Error() }
func (e namedErr) Unwrap() error          { return e.err }
func wrapErr(src string, err error) error { return namedErr{src: src, err: err} }
