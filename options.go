package resolver

import (
	"context"
	"errors"
	"net"

	"github.com/dep2p/go-resolver/pkg/correlation"
)

// Option 客户端选项
type Option func(*options) error

type options struct {
	keys     correlation.Generator
	senderID int64
	dial     func(ctx context.Context, network, addr string) (net.Conn, error)
}

// WithKeyGenerator 使用指定的关联键生成器
//
// 同一生成器可以在多个客户端之间共享。
func WithKeyGenerator(g correlation.Generator) Option {
	return func(o *options) error {
		if g == nil {
			return errors.New("resolver: nil key generator")
		}
		o.keys = g
		return nil
	}
}

// WithSenderID 指定写入 sender.id 的标识（默认是进程号）
func WithSenderID(id int64) Option {
	return func(o *options) error {
		o.senderID = id
		return nil
	}
}

// WithDialer 使用自定义拨号函数
func WithDialer(dial func(ctx context.Context, network, addr string) (net.Conn, error)) Option {
	return func(o *options) error {
		if dial == nil {
			return errors.New("resolver: nil dialer")
		}
		o.dial = dial
		return nil
	}
}
