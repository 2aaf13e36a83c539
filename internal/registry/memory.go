package registry

import (
	"context"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dep2p/go-resolver/pkg/types"
)

// MemoryRegistry 进程内注册表
//
// 容量有限，超过容量时淘汰最久未访问的绑定。进程退出后全部丢失。
type MemoryRegistry struct {
	cache  *lru.Cache[string, types.Endpoint]
	closed atomic.Bool
}

var _ Registry = (*MemoryRegistry)(nil)

// NewMemoryRegistry 创建进程内注册表
func NewMemoryRegistry(capacity int) (*MemoryRegistry, error) {
	cache, err := lru.NewWithEvict(capacity, func(name string, _ types.Endpoint) {
		logger.Debug("绑定被淘汰", "name", name)
	})
	if err != nil {
		return nil, err
	}
	return &MemoryRegistry{cache: cache}, nil
}

// Register 绑定名称
func (r *MemoryRegistry) Register(ctx context.Context, name string, endpoint types.Endpoint) error {
	if r.closed.Load() {
		return ErrClosed
	}
	if err := checkArgs(ctx, name); err != nil {
		return err
	}
	if endpoint.IsZero() {
		return types.ErrInvalidEndpoint
	}
	r.cache.Add(name, endpoint)
	return nil
}

// Lookup 查找名称
func (r *MemoryRegistry) Lookup(ctx context.Context, name string) (types.Endpoint, error) {
	if r.closed.Load() {
		return types.Endpoint{}, ErrClosed
	}
	if err := checkArgs(ctx, name); err != nil {
		return types.Endpoint{}, err
	}
	ep, ok := r.cache.Get(name)
	if !ok {
		return types.Endpoint{}, ErrNotFound
	}
	return ep, nil
}

// Unregister 删除绑定
func (r *MemoryRegistry) Unregister(ctx context.Context, name string) error {
	if r.closed.Load() {
		return ErrClosed
	}
	if err := checkArgs(ctx, name); err != nil {
		return err
	}
	if !r.cache.Remove(name) {
		return ErrNotFound
	}
	return nil
}

// Len 当前绑定数量
func (r *MemoryRegistry) Len() int {
	return r.cache.Len()
}

// Close 关闭注册表
func (r *MemoryRegistry) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	r.cache.Purge()
	return nil
}
