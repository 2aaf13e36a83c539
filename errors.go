package resolver

import (
	"errors"
	"fmt"

	"github.com/dep2p/go-resolver/pkg/types"
)

// 公共错误定义
var (
	// ErrNoConnection 没有到守护进程的可用连接
	ErrNoConnection = errors.New("resolver: no connection")

	// ErrTimeout 截止时间内未收到匹配的响应
	ErrTimeout = errors.New("resolver: timeout")

	// ErrProtocol 响应缺少必需字段或格式错误
	ErrProtocol = errors.New("resolver: protocol error")

	// ErrFail 守护进程报告的一般性失败
	ErrFail = errors.New("resolver: failed")

	// ErrNotFound 名称未注册
	ErrNotFound = errors.New("resolver: object not found")

	// ErrInvalidArgument 参数无效
	ErrInvalidArgument = errors.New("resolver: invalid argument")

	// ErrClosed 客户端已关闭
	ErrClosed = errors.New("resolver: client closed")
)

// StatusError 守护进程返回的非 OK 状态
type StatusError struct {
	Op      string
	Name    string
	Status  types.Status
	Message string
}

// Error 实现 error
func (e *StatusError) Error() string {
	s := fmt.Sprintf("resolver: %s %q: %s", e.Op, e.Name, e.Status)
	if e.Message != "" {
		s += ": " + e.Message
	}
	return s
}

// Is 把状态码映射到对应的哨兵错误
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == types.StatusObjectNotFound
	case ErrTimeout:
		return e.Status == types.StatusTimeout
	case ErrProtocol:
		return e.Status == types.StatusProtocolError
	case ErrInvalidArgument:
		return e.Status == types.StatusInvalidArgument
	case ErrNoConnection:
		return e.Status == types.StatusNoConnection
	case ErrFail:
		return e.Status == types.StatusFail
	default:
		return false
	}
}

// StatusOf 从客户端错误恢复线上状态码
func StatusOf(err error) types.Status {
	var se *StatusError
	switch {
	case err == nil:
		return types.StatusOK
	case errors.As(err, &se):
		return se.Status
	case errors.Is(err, ErrTimeout):
		return types.StatusTimeout
	case errors.Is(err, ErrNoConnection), errors.Is(err, ErrClosed):
		return types.StatusNoConnection
	case errors.Is(err, ErrProtocol):
		return types.StatusProtocolError
	case errors.Is(err, ErrInvalidArgument):
		return types.StatusInvalidArgument
	case errors.Is(err, ErrNotFound):
		return types.StatusObjectNotFound
	default:
		return types.StatusFail
	}
}

func opError(op, name string, err error) error {
	return fmt.Errorf("resolver: %s %q: %w", op, name, err)
}
