package app

import (
	"fmt"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/dep2p/go-signal/config"
)

// configWatcher 监听配置文件变化
//
// 只有日志级别与格式在运行时生效，其余字段变化只记录警告。
type configWatcher struct {
	path    string
	watcher *fsnotify.Watcher

	// baseline 上一次从文件加载的配置
	baseline *config.Config
	onReload func(*config.Config)

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// watchConfig 监听配置文件所在目录
//
// 监听目录而不是文件本身，编辑器的“写临时文件再改名”也能被捕获。
func watchConfig(path string, onReload func(*config.Config)) (*configWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	baseline, err := loadNormalized(abs)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	w := &configWatcher{
		path:     abs,
		watcher:  fw,
		baseline: baseline,
		onReload: onReload,
	}
	w.wg.Add(1)
	go w.loop()

	log.Info("已启用配置热更新", "path", abs)
	return w, nil
}

func (w *configWatcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				w.reload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("配置监听出错", "err", err)
		}
	}
}

func (w *configWatcher) reload() {
	next, err := loadNormalized(w.path)
	if err != nil {
		log.Warn("重新加载配置失败，保持当前配置", "path", w.path, "err", err)
		return
	}

	if next.Log != w.baseline.Log {
		applyLogConfig(next.Log)
		log.Info("日志配置已更新", "level", next.Log.Level, "format", next.Log.Format)
	}
	if restartRequired(w.baseline, next) {
		log.Warn("日志以外的配置变更需要重启后生效", "path", w.path)
	}

	w.baseline = next
	if w.onReload != nil {
		w.onReload(next)
	}
}

// Close 停止监听
func (w *configWatcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

// loadNormalized 加载并修正配置，实例标识清空后再比较
func loadNormalized(path string) (*config.Config, error) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Log.Validate(); err != nil {
		return nil, err
	}
	generated := cfg.InstanceID == ""
	cfg, err = config.ValidateAndFix(cfg)
	if err != nil {
		return nil, err
	}
	if generated {
		cfg.InstanceID = ""
	}
	return cfg, nil
}

// restartRequired 除日志外是否有字段变化
func restartRequired(prev, next *config.Config) bool {
	a, b := *prev, *next
	a.Log, b.Log = config.LogConfig{}, config.LogConfig{}
	return !reflect.DeepEqual(a, b)
}
