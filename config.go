package resolver

import (
	"fmt"
	"time"

	"github.com/dep2p/go-resolver/config"
)

// Config 客户端配置
type Config struct {
	// DaemonAddr 守护进程地址 host:port
	DaemonAddr string

	// RPCInterface 本地 RPC 接口，为空时取连接的本地地址
	RPCInterface string

	// RequestTimeout ctx 无截止时间时注册/注销的超时
	RequestTimeout time.Duration

	// LookupTimeout ctx 无截止时间时查找的超时，也是写入 timeout 字段的上限
	LookupTimeout time.Duration

	// ReconnectInterval 两次重连尝试的最小间隔
	ReconnectInterval time.Duration

	// DialTimeout 单次建立连接的超时
	DialTimeout time.Duration

	// KeyScheme 关联键方案
	KeyScheme string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return ConfigFromUnified(config.NewConfig())
}

// ConfigFromUnified 从统一配置提取客户端配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	r := cfg.Resolver
	return Config{
		DaemonAddr:        r.DaemonAddr(),
		RPCInterface:      r.RPCInterface,
		RequestTimeout:    r.RequestTimeout.Duration(),
		LookupTimeout:     r.LookupTimeout.Duration(),
		ReconnectInterval: r.ReconnectInterval.Duration(),
		DialTimeout:       r.DialTimeout.Duration(),
		KeyScheme:         r.KeyScheme,
	}
}

// Validate 检查客户端配置
//
// 各项超时与重连间隔必须为正：为零时请求没有上界，重连也不再限速。
func (c Config) Validate() error {
	if c.DaemonAddr == "" {
		return fmt.Errorf("%w: empty daemon address", ErrInvalidArgument)
	}
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"request timeout", c.RequestTimeout},
		{"lookup timeout", c.LookupTimeout},
		{"reconnect interval", c.ReconnectInterval},
		{"dial timeout", c.DialTimeout},
	} {
		if d.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidArgument, d.name, d.value)
		}
	}
	return nil
}
