package daemon

import "errors"

// 预定义错误
var (
	// ErrAlreadyStarted 已启动
	ErrAlreadyStarted = errors.New("daemon: already started")

	// ErrNotStarted 未启动
	ErrNotStarted = errors.New("daemon: not started")

	// ErrNilRegistry 未提供后端注册表
	ErrNilRegistry = errors.New("daemon: nil registry")

	// ErrInvalidInterval 无效的 keepalive 间隔
	ErrInvalidInterval = errors.New("daemon: invalid keepalive interval")
)
