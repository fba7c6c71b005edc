// Package logger 信令服务的子系统日志
//
// 每个包持有一个子系统 Logger：
//
//	var log = logger.Logger("core/channel")
//
//	log.Info("新成员加入", "id", id, "total", total)
//
// 级别与格式的初始值来自环境变量：
//   - SIGNAL_LOG_LEVEL: "子系统=级别,...,默认级别"，如 "core/channel=debug,warn"
//   - SIGNAL_LOG_FORMAT: text 或 json
//   - SIGNAL_LOG_ADD_SOURCE: 非空且不为 false/0 时输出源码位置
//
// 配置文件的 log 段在启动与热加载时通过 Apply / SetFormat 覆盖。
package logger

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// 环境变量名
const (
	EnvLevel     = "SIGNAL_LOG_LEVEL"
	EnvFormat    = "SIGNAL_LOG_FORMAT"
	EnvAddSource = "SIGNAL_LOG_ADD_SOURCE"
)

// subsystem 已创建的子系统 Logger 及其级别
type subsystem struct {
	logger *slog.Logger
	level  *slog.LevelVar
}

// registry 子系统表
//
// spec 是当前生效的级别配置，之后创建的 Logger 同样按它取级别。
type registry struct {
	mu        sync.Mutex
	spec      levelSpec
	addSource bool
	subs      map[string]*subsystem
}

var reg = newRegistryFromEnv()

func newRegistryFromEnv() *registry {
	r := &registry{spec: defaultSpec(), subs: make(map[string]*subsystem)}

	if s := os.Getenv(EnvLevel); s != "" {
		spec, err := parseLevelSpec(s)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logger: 忽略无效的 %s: %v\n", EnvLevel, err)
		} else {
			r.spec = spec
		}
	}
	if s := os.Getenv(EnvFormat); s != "" {
		SetFormat(ParseFormat(s))
	}
	if s := os.Getenv(EnvAddSource); s != "" {
		r.addSource = s != "false" && s != "0"
	}
	return r
}

// Logger 返回子系统的 Logger，同名多次调用返回同一实例
func Logger(name string) *slog.Logger {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if s, ok := reg.subs[name]; ok {
		return s.logger
	}
	lv := new(slog.LevelVar)
	lv.Set(reg.spec.levelFor(name))
	s := &subsystem{
		logger: slog.New(newHandler(name, lv, reg.addSource)),
		level:  lv,
	}
	reg.subs[name] = s
	return s.logger
}

// With 返回带预设属性的子系统 Logger
func With(name string, args ...any) *slog.Logger {
	return Logger(name).With(args...)
}

// SetLevel 调整单个子系统的级别，子系统尚未创建时在创建时生效
func SetLevel(name string, level slog.Level) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.spec = reg.spec.withSubsystem(name, level)
	if s, ok := reg.subs[name]; ok {
		s.level.Set(level)
	}
}

// SetGlobalLevel 把所有子系统设为同一级别，清除单独配置
func SetGlobalLevel(level slog.Level) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.spec = levelSpec{def: level}
	for _, s := range reg.subs {
		s.level.Set(level)
	}
}

// Apply 按级别字符串整体替换当前配置
func Apply(levelStr string) error {
	spec, err := parseLevelSpec(levelStr)
	if err != nil {
		return err
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.spec = spec
	for name, s := range reg.subs {
		s.level.Set(spec.levelFor(name))
	}
	return nil
}

// Discard 返回丢弃一切输出的 Logger，测试用
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}
