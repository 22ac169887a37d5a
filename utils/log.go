package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// CustomFormatter 自定义日志格式
type CustomFormatter struct {
	logrus.JSONFormatter
}

// Format 实现自定义格式化
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	if _, ok := entry.Data["file"]; !ok && entry.HasCaller() {
		entry.Data["file"] = filepath.Base(entry.Caller.File)
		entry.Data["line"] = entry.Caller.Line
		entry.Data["func"] = filepath.Base(entry.Caller.Function)
	}

	entry.Data["pid"] = os.Getpid()
	entry.Data["goroutine_id"] = getGoroutineID()

	return f.JSONFormatter.Format(entry)
}

// LogOptions controls where and how verbosely the process logs.
// An empty File logs to stdout only.
type LogOptions struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Log is the global logger instance
var (
	Log  *logrus.Logger
	once sync.Once
	mu   sync.Mutex
)

func newLogger(opts LogOptions) (*logrus.Logger, error) {
	l := logrus.New()

	l.SetFormatter(&CustomFormatter{
		JSONFormatter: logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "@timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		},
	})

	var out io.Writer = os.Stdout
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 10),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			MaxAge:     orDefault(opts.MaxAgeDays, 30),
			Compress:   opts.Compress,
		})
	}
	l.SetOutput(out)

	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}
	l.SetLevel(level)
	l.SetReportCaller(true)
	return l, nil
}

// InitLogger replaces the global logger. Call it once at startup, before
// serving traffic.
func InitLogger(opts LogOptions) error {
	l, err := newLogger(opts)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	once.Do(func() {})
	Log = l
	return nil
}

// GetLogger returns the singleton logger instance
func GetLogger() *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()
	once.Do(func() {
		Log, _ = newLogger(LogOptions{})
	})
	return Log
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// getGoroutineID 获取当前协程ID
func getGoroutineID() uint64 {
	b := make([]byte, 64)
	b = b[:runtime.Stack(b, false)]
	var id uint64
	fmt.Sscanf(string(b), "goroutine %d", &id)
	return id
}
