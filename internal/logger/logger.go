package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogFilePath is the default log file, relative to the working directory.
const LogFilePath = "logs/carsim.log"

// tailSize is how many recent lines are kept in memory for the HUD.
const tailSize = 200

// Options configures New.
type Options struct {
	Level string // debug, info, warn, error
	Path  string // log file; empty uses LogFilePath
	// Console also writes human-readable lines to stderr.
	Console bool
}

// Logger is a zap logger that writes JSON lines to a file, optionally mirrors
// to stderr, and keeps a short in-memory tail of recent lines.
type Logger struct {
	*zap.Logger

	tail *tail
	file *os.File
}

// New opens the log file (creating its directory) and builds the logger.
func New(opts Options) (*Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		lvl, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("logger: %w", err)
		}
		level = lvl
	}
	path := opts.Path
	if path == "" {
		path = LogFilePath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	fileEnc := zap.NewProductionEncoderConfig()
	fileEnc.EncodeTime = zapcore.ISO8601TimeEncoder

	tailEnc := zap.NewDevelopmentEncoderConfig()
	tailEnc.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	tailEnc.CallerKey = zapcore.OmitKey

	t := &tail{max: tailSize}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(fileEnc), zapcore.AddSync(f), level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(tailEnc), t, level),
	}
	if opts.Console {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(tailEnc), zapcore.Lock(os.Stderr), level))
	}
	return &Logger{
		Logger: zap.New(zapcore.NewTee(cores...)),
		tail:   t,
		file:   f,
	}, nil
}

// Lines returns a copy of the most recent log lines, oldest first.
func (l *Logger) Lines() []string {
	return l.tail.snapshot()
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	_ = l.Logger.Sync()
	return l.file.Close()
}

// tail is a zapcore.WriteSyncer keeping the last max lines.
type tail struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func (t *tail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		t.lines = append(t.lines, line)
	}
	if over := len(t.lines) - t.max; over > 0 {
		t.lines = append(t.lines[:0], t.lines[over:]...)
	}
	return len(p), nil
}

func (t *tail) Sync() error {
	return nil
}

func (t *tail) snapshot() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.lines))
	copy(out, t.lines)
	return out
}
