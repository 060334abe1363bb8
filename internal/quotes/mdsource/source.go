package mdsource

import (
	"context"

	"cbmonitor.com/internal/quotes/datasource/model"
)

// Source：一个“可插拔”的行情源。
// Run 必须阻塞运行：持续产出 Tick，直到 ctx.Done() 或连接断开。
type Source interface {
	Name() string
	Run(ctx context.Context, out chan<- model.Tick) error
}
