package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"cbmonitor.com/internal/monitor/app"
	"cbmonitor.com/internal/monitor/config"
	"cbmonitor.com/pkg/logger"
	"cbmonitor.com/pkg/metrics"
	"cbmonitor.com/pkg/xerr"
)

func main() {
	// 1. 支持 Ctrl+C / SIGTERM 的 context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	// 2. 参数校验，任何联网之前完成
	cfg, v, err := config.Parse(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return xerr.ExitOK
		}
		return fail(stderr, err)
	}

	// 3. 日志只写 stderr / 文件，stdout 留给图表
	logger.Init(logger.Options{
		Service: config.Service,
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Console: stderr,
	})
	defer logger.Sync()
	metrics.MustRegister()

	// 4. 启动
	if err := app.New(cfg, v, stdout).Run(ctx); err != nil {
		logger.Error(ctx, "monitor exit with error", zap.Error(err))
		return fail(stderr, err)
	}
	return xerr.ExitOK
}

func fail(stderr io.Writer, err error) int {
	fmt.Fprintln(stderr)
	fmt.Fprintln(stderr, ">> ERROR : "+xerr.Message(err))
	fmt.Fprintln(stderr)
	return xerr.ExitCode(err)
}
