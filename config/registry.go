package config

import (
	"fmt"
	"path/filepath"
)

// 注册表后端
const (
	RegistryBackendMemory = "memory"
	RegistryBackendBadger = "badger"
)

// RegistryConfig 后端注册表配置
//
// memory 后端是进程内的有界 LRU 表，进程退出即丢失；
// badger 后端把绑定写入 DataDir 下的 BadgerDB。
type RegistryConfig struct {
	// Backend 后端类型: "memory" | "badger"
	// 默认值: "memory"
	Backend string `json:"backend"`

	// Capacity memory 后端的最大条目数
	// 默认值: 65536
	Capacity int `json:"capacity"`

	// DataDir badger 后端的数据目录
	// 默认值: "./data"
	DataDir string `json:"data_dir"`
}

// DefaultRegistryConfig 返回默认的注册表配置
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		Backend:  RegistryBackendMemory,
		Capacity: 65536,
		DataDir:  "./data",
	}
}

// Validate 验证注册表配置
func (c *RegistryConfig) Validate() error {
	switch c.Backend {
	case RegistryBackendMemory:
		if c.Capacity <= 0 {
			return fmt.Errorf("registry: capacity must be positive")
		}
	case RegistryBackendBadger:
		if c.DataDir == "" {
			return fmt.Errorf("registry: data_dir cannot be empty")
		}
	default:
		return fmt.Errorf("registry: unknown backend %q", c.Backend)
	}
	return nil
}

// DBPath 返回 BadgerDB 数据库路径
func (c *RegistryConfig) DBPath() string {
	return filepath.Join(c.DataDir, "names.db")
}
