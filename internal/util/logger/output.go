package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// LogFormat 输出格式
type LogFormat int32

const (
	// FormatText key=value 文本（默认）
	FormatText LogFormat = iota
	// FormatJSON 每行一个 JSON 对象
	FormatJSON
)

// ParseFormat 解析格式名，未知值按文本处理
func ParseFormat(name string) LogFormat {
	if strings.EqualFold(strings.TrimSpace(name), "json") {
		return FormatJSON
	}
	return FormatText
}

var (
	format atomic.Int32

	outMu sync.RWMutex
	out   io.Writer = os.Stderr
)

// SetFormat 切换全部 Logger 的输出格式
func SetFormat(f LogFormat) {
	format.Store(int32(f))
}

// SetOutput 重定向全部 Logger 的输出，已创建的 Logger 同样生效
func SetOutput(w io.Writer) {
	outMu.Lock()
	out = w
	outMu.Unlock()
}

// switchWriter 每次写入时取当前输出目标
type switchWriter struct{}

func (switchWriter) Write(p []byte) (int, error) {
	outMu.RLock()
	w := out
	outMu.RUnlock()
	return w.Write(p)
}

// handler 同时持有文本与 JSON 两个后端，按当前格式选择
//
// level 与同一子系统派生的 handler 共享。
type handler struct {
	level *slog.LevelVar
	text  slog.Handler
	json  slog.Handler
}

func newHandler(name string, level *slog.LevelVar, addSource bool) *handler {
	opts := &slog.HandlerOptions{
		Level:       level,
		AddSource:   addSource,
		ReplaceAttr: renameAttr,
	}
	attrs := []slog.Attr{slog.String("subsystem", name)}
	return &handler{
		level: level,
		text:  slog.NewTextHandler(switchWriter{}, opts).WithAttrs(attrs),
		json:  slog.NewJSONHandler(switchWriter{}, opts).WithAttrs(attrs),
	}
}

// renameAttr 时间键改为 ts，级别输出为小写
func renameAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		a.Key = "ts"
	case slog.LevelKey:
		if lv, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(strings.ToLower(lv.String()))
		}
	}
	return a
}

func (h *handler) backend() slog.Handler {
	if LogFormat(format.Load()) == FormatJSON {
		return h.json
	}
	return h.text
}

func (h *handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	return h.backend().Handle(ctx, r)
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &handler{level: h.level, text: h.text.WithAttrs(attrs), json: h.json.WithAttrs(attrs)}
}

func (h *handler) WithGroup(name string) slog.Handler {
	return &handler{level: h.level, text: h.text.WithGroup(name), json: h.json.WithGroup(name)}
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
