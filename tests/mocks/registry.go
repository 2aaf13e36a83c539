package mocks

import (
	"context"
	"sync"

	"github.com/dep2p/go-resolver/internal/registry"
	"github.com/dep2p/go-resolver/pkg/types"
)

// RegistryCall 一次注册表调用记录
type RegistryCall struct {
	Op       string
	Name     string
	Endpoint types.Endpoint
	// HasDeadline 调用时 ctx 是否带截止时间
	HasDeadline bool
}

// MockRegistry 模拟 registry.Registry 接口实现
//
// 默认行为是一个简单的 map 存储。
type MockRegistry struct {
	mu       sync.Mutex
	Bindings map[string]types.Endpoint

	// 可覆盖的方法
	RegisterFunc   func(ctx context.Context, name string, ep types.Endpoint) error
	LookupFunc     func(ctx context.Context, name string) (types.Endpoint, error)
	UnregisterFunc func(ctx context.Context, name string) error
	CloseFunc      func() error

	// 调用记录
	Calls  []RegistryCall
	Closed bool
}

var _ registry.Registry = (*MockRegistry)(nil)

// NewMockRegistry 创建 MockRegistry
func NewMockRegistry() *MockRegistry {
	return &MockRegistry{Bindings: make(map[string]types.Endpoint)}
}

func (m *MockRegistry) record(ctx context.Context, op, name string, ep types.Endpoint) {
	_, hasDeadline := ctx.Deadline()
	m.mu.Lock()
	m.Calls = append(m.Calls, RegistryCall{Op: op, Name: name, Endpoint: ep, HasDeadline: hasDeadline})
	m.mu.Unlock()
}

// Register 注册
func (m *MockRegistry) Register(ctx context.Context, name string, ep types.Endpoint) error {
	m.record(ctx, "register", name, ep)
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, name, ep)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Bindings[name] = ep
	return nil
}

// Lookup 查找
func (m *MockRegistry) Lookup(ctx context.Context, name string) (types.Endpoint, error) {
	m.record(ctx, "lookup", name, types.Endpoint{})
	if m.LookupFunc != nil {
		return m.LookupFunc(ctx, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ep, ok := m.Bindings[name]
	if !ok {
		return types.Endpoint{}, registry.ErrNotFound
	}
	return ep, nil
}

// Unregister 注销
func (m *MockRegistry) Unregister(ctx context.Context, name string) error {
	m.record(ctx, "unregister", name, types.Endpoint{})
	if m.UnregisterFunc != nil {
		return m.UnregisterFunc(ctx, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Bindings[name]; !ok {
		return registry.ErrNotFound
	}
	delete(m.Bindings, name)
	return nil
}

// Close 关闭
func (m *MockRegistry) Close() error {
	m.mu.Lock()
	m.Closed = true
	m.mu.Unlock()
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// CallsFor 返回指定操作的调用记录
func (m *MockRegistry) CallsFor(op string) []RegistryCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []RegistryCall
	for _, c := range m.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}
