// Package correlation 提供请求关联键（Correlation Key）的生成
//
// 每个发出的请求都会分配一个关联键，响应原样回传该键，
// 客户端据此把异步到达的响应交给正确的调用者。
//
// 生成器是显式实例，由客户端或守护进程持有并注入，不存在进程级全局状态：
//
//	gen := correlation.NewSequenceGenerator()
//	key := gen.Next() // "1", "2", ...
package correlation

import (
	"errors"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// ErrInvalidKey 无效的关联键
var ErrInvalidKey = errors.New("correlation: invalid key")

// Key 请求关联键
//
// 以规范字符串形式在线上传输，可直接用作 map 键。
type Key string

// Invalid 表示"无关联键"的哨兵值，任何生成器都不会返回它
const Invalid Key = ""

// IsValid 是否为有效键
func (k Key) IsValid() bool {
	return k != Invalid
}

// String 返回规范字符串形式
func (k Key) String() string {
	return string(k)
}

// Parse 从线上字符串解析关联键
func Parse(s string) (Key, error) {
	if s == "" {
		return Invalid, ErrInvalidKey
	}
	return Key(s), nil
}

// Generator 关联键生成器
//
// Next 返回的值在进程生命周期内与之前返回的任何值都不同，并发调用安全。
type Generator interface {
	Next() Key
}

// ============================================================================
//                              SequenceGenerator
// ============================================================================

// SequenceGenerator 基于原子自增计数器的生成器
type SequenceGenerator struct {
	counter atomic.Uint64
}

// NewSequenceGenerator 创建自增生成器，第一个键为 "1"
func NewSequenceGenerator() *SequenceGenerator {
	return &SequenceGenerator{}
}

// Next 返回下一个键
func (g *SequenceGenerator) Next() Key {
	return Key(strconv.FormatUint(g.counter.Add(1), 10))
}

// ============================================================================
//                              UUIDGenerator
// ============================================================================

// UUIDGenerator 基于随机 UUID (v4) 的生成器
//
// 不同进程各自生成的键也不会冲突，守护进程用它为 keepalive 探测分配键。
type UUIDGenerator struct{}

// NewUUIDGenerator 创建 UUID 生成器
func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// Next 返回下一个键
func (g *UUIDGenerator) Next() Key {
	return Key(uuid.NewString())
}

// ============================================================================
//                              工厂
// ============================================================================

const (
	// SchemeSequence 自增方案
	SchemeSequence = "sequence"
	// SchemeUUID 随机 UUID 方案
	SchemeUUID = "uuid"
)

// NewGenerator 按方案名创建生成器
func NewGenerator(scheme string) (Generator, error) {
	switch scheme {
	case "", SchemeSequence:
		return NewSequenceGenerator(), nil
	case SchemeUUID:
		return NewUUIDGenerator(), nil
	default:
		return nil, errors.New("correlation: unknown key scheme " + strconv.Quote(scheme))
	}
}
