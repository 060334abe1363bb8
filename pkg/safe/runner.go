package safe

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"cbmonitor.com/pkg/logger"
)

// Go 安全启动协程，panic 只记日志
func Go(ctx context.Context, name string, fn func(ctx context.Context)) {
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(ctx, "goroutine panic recovered",
					zap.String("name", name),
					zap.Any("panic", r),
					zap.String("stack", string(debug.Stack())),
				)
			}
		}()
		fn(ctx)
	}()
}

// Func 包装成 errgroup 可用的函数，panic 转成 error 返回，由 errgroup 取消其余协程
func Func(ctx context.Context, name string, fn func(ctx context.Context) error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(ctx, "goroutine panic recovered",
					zap.String("name", name),
					zap.Any("panic", r),
					zap.String("stack", string(debug.Stack())),
				)
				err = fmt.Errorf("%s: panic: %v", name, r)
			}
		}()
		return fn(ctx)
	}
}
