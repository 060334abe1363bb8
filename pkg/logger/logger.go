package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxFieldsKey struct{}

// 全局 Logger 实例；Init 之前是 Nop，库代码可以放心调用
var Log = zap.NewNop()

// 当前级别，支持热更新
var level = zap.NewAtomicLevelAt(zap.InfoLevel)

// Options 日志初始化参数
type Options struct {
	Service string    // 服务名，注入到每条日志
	Level   string    // debug, info, warn, error
	File    string    // 追加写入的日志文件，空表示不落盘
	Console io.Writer // 控制台输出，默认 stderr（stdout 留给图表）
}

// Init 初始化日志组件
func Init(opt Options) {
	SetLevel(opt.Level)

	// 1. 编码器：JSON
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder   // 时间格式: 2023-11-23T...
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder // 级别格式: INFO, ERROR
	encoderConfig.MessageKey = "msg"

	// 2. 写入目标：控制台 + 可选文件
	console := opt.Console
	if console == nil {
		console = os.Stderr
	}
	writeSyncers := []zapcore.WriteSyncer{zapcore.AddSync(console)}

	if opt.File != "" {
		if err := os.MkdirAll(filepath.Dir(opt.File), 0755); err == nil {
			file, err := os.OpenFile(opt.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err == nil {
				writeSyncers = append(writeSyncers, zapcore.AddSync(file))
			}
		}
		// 打不开文件只输出到控制台，不中断程序
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.NewMultiWriteSyncer(writeSyncers...),
		level,
	)

	// AddCallerSkip: 封装了一层函数，Skip 1
	Log = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	if opt.Service != "" {
		Log = Log.With(zap.String("service", opt.Service))
	}
}

// SetLevel 修改日志级别；无法识别的级别按 info 处理
func SetLevel(l string) {
	var zl zapcore.Level
	if err := zl.UnmarshalText([]byte(l)); err != nil {
		zl = zap.InfoLevel
	}
	level.SetLevel(zl)
}

// Level 当前日志级别
func Level() zapcore.Level { return level.Level() }

// WithFields 把字段挂到 ctx 上，之后带这个 ctx 的日志都会带上
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	prev, _ := ctx.Value(ctxFieldsKey{}).([]zap.Field)
	merged := make([]zap.Field, 0, len(prev)+len(fields))
	merged = append(merged, prev...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, ctxFieldsKey{}, merged)
}

// Info 打印 Info 级别日志
func Info(ctx context.Context, msg string, fields ...zap.Field) {
	Log.Info(msg, extract(ctx, fields)...)
}

// Error 打印 Error 级别日志
func Error(ctx context.Context, msg string, fields ...zap.Field) {
	Log.Error(msg, extract(ctx, fields)...)
}

// Warn 打印 Warn 级别日志
func Warn(ctx context.Context, msg string, fields ...zap.Field) {
	Log.Warn(msg, extract(ctx, fields)...)
}

// Debug 打印 Debug 级别日志
func Debug(ctx context.Context, msg string, fields ...zap.Field) {
	Log.Debug(msg, extract(ctx, fields)...)
}

// extract 从 ctx 取出挂载的字段，追加到 fields 前面
func extract(ctx context.Context, fields []zap.Field) []zap.Field {
	if ctx == nil {
		return fields
	}
	if cf, ok := ctx.Value(ctxFieldsKey{}).([]zap.Field); ok && len(cf) > 0 {
		return append(append(make([]zap.Field, 0, len(cf)+len(fields)), cf...), fields...)
	}
	return fields
}

// Sync 刷新缓冲区 (建议在 main 函数 defer 中调用)
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}
