// Package main 提供解析守护进程 resolvd 的命令行入口
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dep2p/go-resolver/config"
	"github.com/dep2p/go-resolver/pkg/lib/log"
)

var logger = log.Logger("resolvd")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
//
// 唯一的持久化入口是 JSON 配置文件；未指定时使用内置默认配置。
// 环境变量（RESOLVER_* 前缀）覆盖配置文件中的对应字段。
//
// ═══════════════════════════════════════════════════════════════════════════
var (
	configFile  = flag.String("config", "", "配置文件路径（为空使用内置默认配置）")
	watchConfig = flag.Bool("watch", true, "配置文件变更时热加载 keepalive 间隔和日志级别")
	showConfig  = flag.Bool("print-config", false, "打印生效的配置后退出")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	if *showConfig {
		data, err := cfg.ToJSON()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	closeLog, err := setupLogging(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	app, d := newApp(cfg)

	startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		// 绑定失败等启动错误直接退出
		return fmt.Errorf("启动失败: %w", err)
	}

	if *configFile != "" && *watchConfig {
		stop, err := watchConfigFile(*configFile, newReloader(d))
		if err != nil {
			logger.Warn("无法监视配置文件，热加载已禁用", "path", *configFile, "error", err)
		} else {
			defer stop()
		}
	}

	fmt.Printf("resolvd 已启动，监听 %s，按 Ctrl+C 退出\n", d.Addr())

	select {
	case <-waitForSignal():
	case <-d.Done():
		logger.Error("事件循环意外退出")
	}

	fmt.Println("\n正在关闭 resolvd...")
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()
	return app.Stop(stopCtx)
}

// loadConfig 加载配置
//
// 优先级（从高到低）：
//  1. 环境变量（RESOLVER_* 前缀）
//  2. 配置文件
//  3. 内置默认值
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging 按配置设置全局日志
func setupLogging(cfg config.LogConfig) (func(), error) {
	lvl, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	format, err := log.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	if cfg.File == "" {
		log.Setup(os.Stderr, lvl, format)
		return func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o750); err != nil {
		return nil, fmt.Errorf("创建日志目录失败: %w", err)
	}
	file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("打开日志文件失败: %w", err)
	}
	log.Setup(file, lvl, format)
	return func() { _ = file.Close() }, nil
}

// waitForSignal 等待退出信号
func waitForSignal() <-chan os.Signal {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	return signals
}
