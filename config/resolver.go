package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// ResolverConfig 守护进程地址与客户端行为配置
//
// 客户端与守护进程共用 address/port：守护进程在该地址监听，客户端连接该地址。
type ResolverConfig struct {
	// Address 守护进程地址
	// 默认值: "127.0.0.1"
	Address string `json:"address"`

	// Port 守护进程端口
	// 默认值: 10004
	Port int `json:"port"`

	// RPCInterface 本地 RPC 接口
	// 客户端向守护进程通告的本地地址，为空时取连接的本地地址
	RPCInterface string `json:"rpc_interface,omitempty"`

	// RequestTimeout 注册/注销请求在调用方未指定截止时间时的超时
	// 默认值: 1s
	RequestTimeout Duration `json:"request_timeout"`

	// LookupTimeout 查找请求在调用方未指定截止时间时的超时
	// 同时作为写入请求的 timeout 字段上限
	// 默认值: 4s
	LookupTimeout Duration `json:"lookup_timeout"`

	// ReconnectInterval 连接丢失后两次重连尝试之间的最小间隔
	// 默认值: 1s
	ReconnectInterval Duration `json:"reconnect_interval"`

	// DialTimeout 单次建立连接的超时
	// 默认值: 3s
	DialTimeout Duration `json:"dial_timeout"`

	// KeyScheme 关联键生成方案: "sequence" | "uuid"
	// 默认值: "sequence"
	KeyScheme string `json:"key_scheme"`
}

// DefaultResolverConfig 返回默认的解析配置
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		Address:           "127.0.0.1",
		Port:              10004,
		RequestTimeout:    Duration(time.Second),
		LookupTimeout:     Duration(4 * time.Second),
		ReconnectInterval: Duration(time.Second),
		DialTimeout:       Duration(3 * time.Second),
		KeyScheme:         "sequence",
	}
}

// Validate 验证解析配置
func (c *ResolverConfig) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("resolver: address cannot be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("resolver: invalid port %d", c.Port)
	}
	if c.RPCInterface != "" && net.ParseIP(c.RPCInterface) == nil {
		return fmt.Errorf("resolver: invalid rpc_interface %q", c.RPCInterface)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("resolver: request_timeout must be positive")
	}
	if c.LookupTimeout <= 0 {
		return fmt.Errorf("resolver: lookup_timeout must be positive")
	}
	if c.ReconnectInterval <= 0 {
		return fmt.Errorf("resolver: reconnect_interval must be positive")
	}
	if c.DialTimeout <= 0 {
		return fmt.Errorf("resolver: dial_timeout must be positive")
	}
	switch c.KeyScheme {
	case "sequence", "uuid":
	default:
		return fmt.Errorf("resolver: unknown key_scheme %q", c.KeyScheme)
	}
	return nil
}

// DaemonAddr 返回 host:port 形式的守护进程地址
func (c *ResolverConfig) DaemonAddr() string {
	return net.JoinHostPort(c.Address, strconv.Itoa(c.Port))
}
