package config

import (
	"fmt"
	"time"
)

// DaemonConfig 守护进程配置
type DaemonConfig struct {
	// KeepAliveInterval 空闲连接的存活探测间隔
	// 默认值: 15s
	KeepAliveInterval Duration `json:"keepalive_interval"`

	// PollInterval 事件循环的最长等待时间
	// 没有任何 I/O 时循环也按此间隔醒来执行 keepalive
	// 默认值: 1s
	PollInterval Duration `json:"poll_interval"`

	// WriteTimeout 单次向客户端写入的超时
	// 慢客户端超过该时间即被标记为失败
	// 默认值: 2s
	WriteTimeout Duration `json:"write_timeout"`

	// MaxClients 最大同时连接数，超过后新连接被拒绝
	// 默认值: 1024
	MaxClients int `json:"max_clients"`

	// DefaultLookupTimeout 请求未携带 timeout 字段时的查找超时
	// 默认值: 5s
	DefaultLookupTimeout Duration `json:"default_lookup_timeout"`

	// MaxLookupTimeout 查找超时上限
	// 事件循环是单线程的，后端查找会阻塞所有客户端
	// 默认值: 5s
	MaxLookupTimeout Duration `json:"max_lookup_timeout"`

	// RegistryTimeout 注册/注销调用后端的超时
	// 默认值: 1s
	RegistryTimeout Duration `json:"registry_timeout"`
}

// DefaultDaemonConfig 返回默认的守护进程配置
func DefaultDaemonConfig() DaemonConfig {
	return DaemonConfig{
		KeepAliveInterval:    Duration(15 * time.Second),
		PollInterval:         Duration(time.Second),
		WriteTimeout:         Duration(2 * time.Second),
		MaxClients:           1024,
		DefaultLookupTimeout: Duration(5 * time.Second),
		MaxLookupTimeout:     Duration(5 * time.Second),
		RegistryTimeout:      Duration(time.Second),
	}
}

// Validate 验证守护进程配置
func (c *DaemonConfig) Validate() error {
	if c.KeepAliveInterval <= 0 {
		return fmt.Errorf("daemon: keepalive_interval must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("daemon: poll_interval must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("daemon: write_timeout must be positive")
	}
	if c.MaxClients <= 0 {
		return fmt.Errorf("daemon: max_clients must be positive")
	}
	if c.DefaultLookupTimeout <= 0 {
		return fmt.Errorf("daemon: default_lookup_timeout must be positive")
	}
	if c.MaxLookupTimeout < c.DefaultLookupTimeout {
		return fmt.Errorf("daemon: max_lookup_timeout (%s) below default_lookup_timeout (%s)",
			c.MaxLookupTimeout, c.DefaultLookupTimeout)
	}
	if c.RegistryTimeout <= 0 {
		return fmt.Errorf("daemon: registry_timeout must be positive")
	}
	return nil
}
