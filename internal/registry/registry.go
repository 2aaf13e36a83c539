// Package registry 提供名称到端点绑定的后端注册表
//
// 守护进程只通过 Registry 接口访问绑定，从不缓存。
// 守护进程的事件循环是单线程的，所有实现都必须遵守传入的 ctx，
// 超时后立即返回而不是无限阻塞。
package registry

import (
	"context"
	"errors"

	"github.com/dep2p/go-resolver/pkg/lib/log"
	"github.com/dep2p/go-resolver/pkg/types"
)

var logger = log.Logger("registry")

// 预定义错误
var (
	// ErrNotFound 名称未注册
	ErrNotFound = errors.New("registry: name not found")

	// ErrClosed 注册表已关闭
	ErrClosed = errors.New("registry: closed")

	// ErrEmptyName 名称为空
	ErrEmptyName = errors.New("registry: empty name")
)

// Registry 名称注册表
type Registry interface {
	// Register 绑定 name 到 endpoint，已存在的绑定被覆盖
	Register(ctx context.Context, name string, endpoint types.Endpoint) error

	// Lookup 查找 name 的端点，未注册返回 ErrNotFound
	Lookup(ctx context.Context, name string) (types.Endpoint, error)

	// Unregister 删除绑定，未注册返回 ErrNotFound
	Unregister(ctx context.Context, name string) error

	// Close 释放资源
	Close() error
}

func checkArgs(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		return ErrEmptyName
	}
	return nil
}
