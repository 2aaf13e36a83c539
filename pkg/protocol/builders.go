package protocol

import (
	"time"

	"github.com/dep2p/go-resolver/pkg/correlation"
	"github.com/dep2p/go-resolver/pkg/types"
)

// ============================================================================
//                              请求构造器
// ============================================================================

// NewRegisterRequest 创建注册请求
func NewRegisterRequest(key correlation.Key, senderID int64, name string, endpoint types.Endpoint) *Message {
	return NewMessage(TypeRegister).
		SetString(FieldObjectID, name).
		SetInt(FieldSenderID, senderID).
		SetCorrelationKey(key).
		SetString(FieldEndpoint, endpoint.String())
}

// NewDeregisterRequest 创建注销请求
func NewDeregisterRequest(key correlation.Key, senderID int64, name string) *Message {
	return NewMessage(TypeDeregister).
		SetString(FieldObjectID, name).
		SetInt(FieldSenderID, senderID).
		SetCorrelationKey(key)
}

// NewLookupRequest 创建查找请求，timeout 以毫秒写入
func NewLookupRequest(key correlation.Key, senderID int64, name string, timeout time.Duration) *Message {
	return NewMessage(TypeLookup).
		SetString(FieldObjectID, name).
		SetInt(FieldSenderID, senderID).
		SetInt(FieldTimeout, timeout.Milliseconds()).
		SetCorrelationKey(key)
}

// NewKeepAlive 创建存活探测消息
func NewKeepAlive(key correlation.Key, senderID int64) *Message {
	return NewMessage(TypeKeepAlive).
		SetInt(FieldSenderID, senderID).
		SetCorrelationKey(key)
}

// ============================================================================
//                              响应构造器
// ============================================================================

// NewResponse 创建响应
//
// 响应类型由请求类型推导，关联键原样回传。
func NewResponse(req *Message, senderID int64, status types.Status) *Message {
	respType, ok := ResponseTypeFor(req.Type())
	if !ok {
		respType = req.Type() + ".response"
	}

	resp := NewMessage(respType).
		SetInt(FieldSenderID, senderID).
		SetCorrelationKey(req.CorrelationKey()).
		SetStatus(status)

	if name, ok := req.ObjectID(); ok {
		resp.SetString(FieldObjectID, name)
	}
	return resp
}

// WithStatusMessage 附加状态描述
func (m *Message) WithStatusMessage(text string) *Message {
	if text == "" {
		return m
	}
	return m.SetString(FieldStatusMessage, text)
}
