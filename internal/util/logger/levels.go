package logger

import (
	"fmt"
	"log/slog"
	"strings"
)

// levelSpec 默认级别加按子系统的覆盖
type levelSpec struct {
	def  slog.Level
	subs map[string]slog.Level
}

func defaultSpec() levelSpec {
	return levelSpec{def: slog.LevelInfo}
}

func (s levelSpec) levelFor(name string) slog.Level {
	if lv, ok := s.subs[name]; ok {
		return lv
	}
	return s.def
}

// withSubsystem 返回增加一项覆盖后的副本
func (s levelSpec) withSubsystem(name string, level slog.Level) levelSpec {
	subs := make(map[string]slog.Level, len(s.subs)+1)
	for k, v := range s.subs {
		subs[k] = v
	}
	subs[name] = level
	return levelSpec{def: s.def, subs: subs}
}

// parseLevelSpec 解析 "子系统=级别,...,默认级别"
//
// 不带 "=" 的项是默认级别，出现多次时以最后一次为准；空项忽略。
func parseLevelSpec(str string) (levelSpec, error) {
	spec := defaultSpec()
	for _, item := range strings.Split(str, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		name, lvName, scoped := strings.Cut(item, "=")
		if !scoped {
			lvName = name
		}
		lv, ok := ParseLevel(lvName)
		if !ok {
			return levelSpec{}, fmt.Errorf("unknown log level %q", strings.TrimSpace(lvName))
		}
		if !scoped {
			spec.def = lv
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return levelSpec{}, fmt.Errorf("empty subsystem in %q", item)
		}
		spec = spec.withSubsystem(name, lv)
	}
	return spec, nil
}

// ValidateLevelString 检查级别字符串能否解析
func ValidateLevelString(str string) error {
	_, err := parseLevelSpec(str)
	return err
}

// ParseLevel 解析级别名，大小写不敏感
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}
