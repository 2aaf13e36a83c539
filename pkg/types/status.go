package types

import "strconv"

// Status 解析协议状态码（响应中的 ns.status 字段）
type Status int32

// 状态码取值与线上协议保持一致
const (
	StatusOK              Status = 0
	StatusFail            Status = 1
	StatusInvalidArgument Status = 3
	StatusNoConnection    Status = 9
	StatusTimeout         Status = 1000
	StatusDuplicateEntry  Status = 1001
	StatusObjectNotFound  Status = 1002
	StatusProtocolError   Status = 1003
)

// String 返回状态码名称
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusFail:
		return "FAIL"
	case StatusInvalidArgument:
		return "INVALID_ARG"
	case StatusNoConnection:
		return "NO_CONNECTION"
	case StatusTimeout:
		return "TIMEOUT"
	case StatusDuplicateEntry:
		return "DUPLICATE_ENTRY"
	case StatusObjectNotFound:
		return "OBJECT_NOT_FOUND"
	case StatusProtocolError:
		return "PROTOCOL_ERROR"
	default:
		return "STATUS(" + strconv.Itoa(int(s)) + ")"
	}
}

// IsOK 是否成功
func (s Status) IsOK() bool {
	return s == StatusOK
}
