package main

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dep2p/go-resolver/config"
	"github.com/dep2p/go-resolver/internal/daemon"
	"github.com/dep2p/go-resolver/pkg/lib/log"
)

// reloadDebounce 编辑器保存时常连续触发多个事件
const reloadDebounce = 100 * time.Millisecond

// newReloader 返回把新配置应用到运行中守护进程的函数
//
// 只有 keepalive 间隔和日志级别可以热加载，其他字段需要重启。
func newReloader(d *daemon.Daemon) func(*config.Config) {
	return func(cfg *config.Config) {
		if err := d.SetKeepAliveInterval(cfg.Daemon.KeepAliveInterval.Duration()); err != nil {
			logger.Warn("忽略无效的 keepalive 间隔", "error", err)
		}
		if lvl, err := log.ParseLevel(cfg.Log.Level); err == nil {
			log.SetLevel(lvl)
		}
	}
}

// watchConfigFile 监视配置文件，变更后重新加载并调用 apply
//
// 监视的是文件所在目录，编辑器以重命名方式保存时也能收到事件。
func watchConfigFile(path string, apply func(*config.Config)) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		_ = watcher.Close()
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)

		var pending <-chan time.Time
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
					pending = time.After(reloadDebounce)
				}

			case <-pending:
				pending = nil
				cfg, err := loadConfig(abs)
				if err != nil {
					logger.Warn("配置重新加载失败，保留当前配置", "path", abs, "error", err)
					continue
				}
				apply(cfg)
				logger.Info("配置已重新加载", "path", abs)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("配置文件监视错误", "error", err)
			}
		}
	}()

	return func() {
		_ = watcher.Close()
		<-done
	}, nil
}
