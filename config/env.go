package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "RESOLVER_"

// 环境变量名（不含前缀）
const (
	EnvAddress           = "ADDRESS"
	EnvPort              = "PORT"
	EnvKeepAliveInterval = "KEEPALIVE_INTERVAL"
	EnvMaxClients        = "MAX_CLIENTS"
	EnvLogLevel          = "LOG_LEVEL"
)

// ApplyEnvOverrides 用环境变量覆盖配置
//
// 优先级：环境变量 > 配置文件 > 默认值。
// RESOLVER_KEEPALIVE_INTERVAL 接受 "15s" 形式或整数秒。
func ApplyEnvOverrides(cfg *Config) error {
	return applyEnv(cfg, os.LookupEnv)
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPrefix + EnvAddress); ok && v != "" {
		cfg.Resolver.Address = v
	}

	if v, ok := lookup(EnvPrefix + EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, EnvPort, err)
		}
		cfg.Resolver.Port = port
	}

	if v, ok := lookup(EnvPrefix + EnvKeepAliveInterval); ok && v != "" {
		d, err := parseSecondsOrDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, EnvKeepAliveInterval, err)
		}
		cfg.Daemon.KeepAliveInterval = Duration(d)
	}

	if v, ok := lookup(EnvPrefix + EnvMaxClients); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, EnvMaxClients, err)
		}
		cfg.Daemon.MaxClients = n
	}

	if v, ok := lookup(EnvPrefix + EnvLogLevel); ok && v != "" {
		cfg.Log.Level = v
	}
	return nil
}

func parseSecondsOrDuration(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}
