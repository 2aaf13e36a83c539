package daemon

import (
	"math"
	"time"

	"github.com/dep2p/go-resolver/config"
)

// Config 守护进程配置
type Config struct {
	// ListenAddr 监听地址 host:port
	ListenAddr string

	// KeepAliveInterval 存活探测间隔
	KeepAliveInterval time.Duration

	// PollInterval 事件循环最长等待时间
	PollInterval time.Duration

	// WriteTimeout 单次写入超时
	WriteTimeout time.Duration

	// MaxClients 最大连接数
	MaxClients int

	// DefaultLookupTimeout 请求未携带 timeout 时的查找超时
	DefaultLookupTimeout time.Duration

	// MaxLookupTimeout 查找超时上限
	MaxLookupTimeout time.Duration

	// RegistryTimeout 注册/注销的后端调用超时
	RegistryTimeout time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return ConfigFromUnified(config.NewConfig())
}

// ConfigFromUnified 从统一配置提取守护进程配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	d := cfg.Daemon
	return Config{
		ListenAddr:           cfg.Resolver.DaemonAddr(),
		KeepAliveInterval:    d.KeepAliveInterval.Duration(),
		PollInterval:         d.PollInterval.Duration(),
		WriteTimeout:         d.WriteTimeout.Duration(),
		MaxClients:           d.MaxClients,
		DefaultLookupTimeout: d.DefaultLookupTimeout.Duration(),
		MaxLookupTimeout:     d.MaxLookupTimeout.Duration(),
		RegistryTimeout:      d.RegistryTimeout.Duration(),
	}
}

// lookupTimeout 计算查找超时：请求值优先，缺省用默认值，不超过上限
func (c Config) lookupTimeout(requestedMillis int64, present bool) time.Duration {
	timeout := c.DefaultLookupTimeout
	if present && requestedMillis > 0 {
		// 先按毫秒比较再换算，超大的请求值不能溢出成负数
		switch {
		case c.MaxLookupTimeout > 0 && requestedMillis >= c.MaxLookupTimeout.Milliseconds():
			timeout = c.MaxLookupTimeout
		case requestedMillis > math.MaxInt64/int64(time.Millisecond):
			timeout = time.Duration(math.MaxInt64)
		default:
			timeout = time.Duration(requestedMillis) * time.Millisecond
		}
	}
	if c.MaxLookupTimeout > 0 && timeout > c.MaxLookupTimeout {
		timeout = c.MaxLookupTimeout
	}
	return timeout
}
