package logger

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultLogDirName    = "logs"
	defaultLogFilename   = "voltdrop.log"
	defaultLogMaxSizeMB  = 100
	defaultLogMaxBackups = 7
	defaultLogMaxAgeDays = 30
)

// Options 日志输出配置
type Options struct {
	// Level 为空时 debug 模式取 debug，其他模式取 info
	Level string

	// Console 非 debug 模式下同时输出到 stdout，容器部署时使用
	Console bool

	Dir        string
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// L 全局结构化日志实例，Init 之前为 nil
var L *zap.Logger

var (
	fallbackOnce sync.Once
	fallbackLog  *zap.Logger
)

type ctxKey struct{}

// Init 初始化全局日志并替换 zap 的全局实例
func Init(mode string, options Options) *zap.Logger {
	L = New(mode, options)
	zap.ReplaceGlobals(L)
	return L
}

// New debug 模式输出彩色控制台日志，其余模式按 JSON 写入滚动文件
func New(mode string, options Options) *zap.Logger {
	debug := strings.EqualFold(strings.TrimSpace(mode), "debug")
	level := resolveLevel(options.Level, debug)

	if debug {
		console := zapcore.NewConsoleEncoder(encoderConfig(zapcore.CapitalColorLevelEncoder))
		return build(zapcore.NewCore(console, zapcore.Lock(os.Stdout), level))
	}

	jsonEncoder := zapcore.NewJSONEncoder(encoderConfig(zapcore.LowercaseLevelEncoder))
	stdout := zapcore.NewCore(jsonEncoder, zapcore.Lock(os.Stdout), level)
	sink, err := newRotatingSink(options)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: file sink unavailable, writing to stdout: %v\n", err)
		return build(stdout)
	}
	file := zapcore.NewCore(jsonEncoder, sink, level)
	if options.Console {
		return build(zapcore.NewTee(file, stdout))
	}
	return build(file)
}

func resolveLevel(raw string, debug bool) zap.AtomicLevel {
	fallback := zapcore.InfoLevel
	if debug {
		fallback = zapcore.DebugLevel
	}
	if strings.TrimSpace(raw) == "" {
		return zap.NewAtomicLevelAt(fallback)
	}
	parsed, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return zap.NewAtomicLevelAt(fallback)
	}
	return zap.NewAtomicLevelAt(parsed)
}

func build(core zapcore.Core) *zap.Logger {
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.DPanicLevel))
}

func encoderConfig(levelEncoder zapcore.LevelEncoder) zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.MessageKey = "event"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.MillisDurationEncoder
	cfg.EncodeLevel = levelEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	return cfg
}

// StdLogger 给只接受标准库 *log.Logger 的组件（gorm 等）使用
func StdLogger() *log.Logger {
	return zap.NewStdLog(Z())
}

func Z() *zap.Logger {
	if L != nil {
		return L
	}
	fallbackOnce.Do(func() {
		console := zapcore.NewConsoleEncoder(encoderConfig(zapcore.CapitalLevelEncoder))
		fallbackLog = build(zapcore.NewCore(console, zapcore.Lock(os.Stdout), zap.NewAtomicLevelAt(zap.InfoLevel)))
	})
	return fallbackLog
}

func S() *zap.SugaredLogger {
	return Z().Sugar()
}

// SW 返回附带固定字段的 SugaredLogger
func SW(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return S()
	}
	return S().With(kv...)
}

// WithContext 把请求级日志实例挂到 context 上
func WithContext(ctx context.Context, log *zap.SugaredLogger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, log)
}

// FromContext 取出 context 上的日志实例，没有则退回全局实例
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if log, ok := Scoped(ctx); ok {
		return log
	}
	return S()
}

// Scoped 只返回 WithContext 挂上的实例
func Scoped(ctx context.Context) (*zap.SugaredLogger, bool) {
	if ctx == nil {
		return nil, false
	}
	log, ok := ctx.Value(ctxKey{}).(*zap.SugaredLogger)
	return log, ok && log != nil
}

func Debugw(event string, kv ...interface{}) { S().Debugw(event, kv...) }
func Infow(event string, kv ...interface{})  { S().Infow(event, kv...) }
func Warnw(event string, kv ...interface{})  { S().Warnw(event, kv...) }
func Errorw(event string, kv ...interface{}) { S().Errorw(event, kv...) }

func newRotatingSink(options Options) (zapcore.WriteSyncer, error) {
	path, err := resolveLogFilePath(options)
	if err != nil {
		return nil, err
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    positiveOr(options.MaxSizeMB, defaultLogMaxSizeMB),
		MaxBackups: positiveOr(options.MaxBackups, defaultLogMaxBackups),
		MaxAge:     positiveOr(options.MaxAgeDays, defaultLogMaxAgeDays),
		Compress:   options.Compress,
	}), nil
}

// resolveLogFilePath 创建日志目录并确认文件可写
func resolveLogFilePath(options Options) (string, error) {
	dir := strings.TrimSpace(options.Dir)
	if dir == "" {
		workDir, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve workdir: %w", err)
		}
		dir = filepath.Join(workDir, defaultLogDirName)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create log dir: %w", err)
	}

	filename := strings.TrimSpace(options.Filename)
	if filename == "" {
		filename = defaultLogFilename
	}
	path := filepath.Join(dir, filename)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("open log file: %w", err)
	}
	return path, file.Close()
}

func positiveOr(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}
