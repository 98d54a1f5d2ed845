package logging

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerFactory 日志工厂接口
type LoggerFactory interface {
	CreateLogger(category string) Logger
	SetMinimumLevel(level LogLevel)
	Sync() error
}

// ConsoleLoggerOptions 控制台输出选项
type ConsoleLoggerOptions struct {
	IncludeTimestamp bool
	TimestampFormat  string
	ColorOutput      bool
	Output           io.Writer
}

// JsonLoggerOptions JSON 输出选项
type JsonLoggerOptions struct {
	TimestampFormat string
	Output          io.Writer
}

// LoggingBuilder 日志构建器
type LoggingBuilder struct {
	cores        []func(zapcore.LevelEnabler) zapcore.Core
	closers      []io.Closer
	minimumLevel LogLevel
	mu           sync.RWMutex
	err          error
}

// NewLoggingBuilder 创建日志构建器
func NewLoggingBuilder() *LoggingBuilder {
	return &LoggingBuilder{minimumLevel: LogLevelInfo}
}

// SetMinimumLevel 设置最小日志级别
func (b *LoggingBuilder) SetMinimumLevel(level LogLevel) *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.minimumLevel = level
	return b
}

func (b *LoggingBuilder) addCore(enc zapcore.Encoder, w io.Writer) *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	ws := zapcore.Lock(zapcore.AddSync(w))
	b.cores = append(b.cores, func(level zapcore.LevelEnabler) zapcore.Core {
		return zapcore.NewCore(enc, ws, level)
	})
	return b
}

// AddConsole 添加控制台日志
func (b *LoggingBuilder) AddConsole(options ...ConsoleLoggerOptions) *LoggingBuilder {
	opts := ConsoleLoggerOptions{
		IncludeTimestamp: true,
		TimestampFormat:  "2006-01-02 15:04:05",
		ColorOutput:      true,
		Output:           os.Stdout,
	}
	if len(options) > 0 {
		opts = options[0]
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	cfg := encoderConfig(opts.TimestampFormat)
	if !opts.IncludeTimestamp {
		cfg.TimeKey = zapcore.OmitKey
	}
	if opts.ColorOutput {
		cfg.EncodeLevel = colorLevelEncoder
	}
	cfg.ConsoleSeparator = " "
	return b.addCore(zapcore.NewConsoleEncoder(cfg), opts.Output)
}

// AddJson 添加 JSON 格式日志
func (b *LoggingBuilder) AddJson(options ...JsonLoggerOptions) *LoggingBuilder {
	opts := JsonLoggerOptions{Output: os.Stdout}
	if len(options) > 0 {
		opts = options[0]
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return b.addCore(zapcore.NewJSONEncoder(encoderConfig(opts.TimestampFormat)), opts.Output)
}

// AddFile 添加文件日志（JSON 格式，追加写入）
func (b *LoggingBuilder) AddFile(path string) *LoggingBuilder {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		b.mu.Lock()
		b.err = err
		b.mu.Unlock()
		return b
	}
	b.mu.Lock()
	b.closers = append(b.closers, f)
	b.mu.Unlock()
	return b.AddJson(JsonLoggerOptions{Output: f})
}

// Err 返回构建过程中出现的第一个错误（例如无法打开日志文件）。
func (b *LoggingBuilder) Err() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.err
}

// Build 构建日志工厂
func (b *LoggingBuilder) Build() LoggerFactory {
	b.mu.RLock()
	defer b.mu.RUnlock()

	level := zap.NewAtomicLevelAt(b.minimumLevel.zap())
	cores := make([]zapcore.Core, len(b.cores))
	for i, mk := range b.cores {
		cores[i] = mk(level)
	}
	return &loggerFactory{
		root:    zap.New(zapcore.NewTee(cores...)),
		level:   level,
		closers: append([]io.Closer(nil), b.closers...),
	}
}

// loggerFactory 日志工厂实现
type loggerFactory struct {
	root    *zap.Logger
	level   zap.AtomicLevel
	closers []io.Closer
}

func (f *loggerFactory) CreateLogger(category string) Logger {
	return NewZapLogger(f.root).WithCategory(category)
}

func (f *loggerFactory) SetMinimumLevel(level LogLevel) {
	f.level.SetLevel(level.zap())
}

// Sync 刷新缓冲并关闭打开的文件
func (f *loggerFactory) Sync() error {
	err := f.root.Sync()
	for _, c := range f.closers {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	f.closers = nil
	return err
}

func encoderConfig(timeFormat string) zapcore.EncoderConfig {
	if timeFormat == "" {
		timeFormat = "2006-01-02T15:04:05.000Z07:00"
	}
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "category",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    levelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(timeFormat),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
}

func levelName(l zapcore.Level) string {
	if l == traceLevel {
		return "TRACE"
	}
	return l.CapitalString()
}

func levelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(levelName(l))
}

func colorLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	color := "\033[37m"
	switch {
	case l <= traceLevel:
		color = "\033[90m"
	case l == zapcore.DebugLevel:
		color = "\033[36m"
	case l == zapcore.InfoLevel:
		color = "\033[32m"
	case l == zapcore.WarnLevel:
		color = "\033[33m"
	case l >= zapcore.ErrorLevel:
		color = "\033[31m"
	}
	enc.AppendString(color + levelName(l) + "\033[0m")
}
