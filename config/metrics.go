package config

import (
	"fmt"
	"net"
)

// MetricsConfig 指标导出配置
type MetricsConfig struct {
	// Enabled 是否启用 Prometheus 指标端点
	// 默认值: false
	Enabled bool `json:"enabled"`

	// ListenAddr 指标 HTTP 监听地址
	// 默认值: "127.0.0.1:9104"
	ListenAddr string `json:"listen_addr"`
}

// DefaultMetricsConfig 返回默认的指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:    false,
		ListenAddr: "127.0.0.1:9104",
	}
}

// Validate 验证指标配置
func (c *MetricsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("metrics: invalid listen_addr %q: %w", c.ListenAddr, err)
	}
	return nil
}
