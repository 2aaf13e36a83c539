// Package config 提供解析服务的统一配置管理
//
// 主 Config 结构体嵌入所有子配置，每个子配置在独立文件中定义：
//   - Resolver: 守护进程地址、本地 RPC 接口、客户端超时与重连
//   - Daemon: 守护进程事件循环、keepalive、连接上限
//   - Registry: 后端名称注册表
//   - Log: 日志
//   - Metrics: 指标导出
//
// 使用示例：
//
//	// 内置默认配置
//	cfg := config.NewConfig()
//
//	// 从文件加载（未出现的字段保留默认值）
//	cfg, err := config.LoadFile("/etc/resolvd.json")
//
//	// 环境变量覆盖
//	config.ApplyEnvOverrides(cfg)
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Config 解析服务的完整配置结构
type Config struct {
	// Resolver 守护进程地址与客户端行为
	Resolver ResolverConfig `json:"resolver"`

	// Daemon 守护进程配置
	Daemon DaemonConfig `json:"daemon"`

	// Registry 后端注册表配置
	Registry RegistryConfig `json:"registry"`

	// Log 日志配置
	Log LogConfig `json:"log"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Resolver: DefaultResolverConfig(),
		Daemon:   DefaultDaemonConfig(),
		Registry: DefaultRegistryConfig(),
		Log:      DefaultLogConfig(),
		Metrics:  DefaultMetricsConfig(),
	}
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := c.Resolver.Validate(); err != nil {
		return err
	}
	if err := c.Daemon.Validate(); err != nil {
		return err
	}
	if err := c.Registry.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	return nil
}

// FromJSON 从 JSON 创建配置，缺失字段使用默认值
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// ToJSON 序列化为带缩进的 JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// LoadFile 从 JSON 文件加载配置
//
// path 为空时返回内置默认配置。
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return NewConfig(), nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: 用户指定的配置文件路径是预期行为
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return FromJSON(data)
}
