package protocol

// ============================================================================
//                              字段名
// ============================================================================

const (
	// FieldMessageType 消息类型（判别字段）
	FieldMessageType = "message.type"

	// FieldCorrelationKey 请求与响应共享的关联键
	FieldCorrelationKey = "correlation.key"

	// FieldObjectID 注册/查找/注销的对象名
	FieldObjectID = "object.id"

	// FieldEndpoint 端点字符串
	FieldEndpoint = "endpoint"

	// FieldSenderID 发送方标识（进程号）
	FieldSenderID = "sender.id"

	// FieldTimeout 查找请求的超时（毫秒）
	FieldTimeout = "timeout"

	// FieldStatus 响应状态码
	FieldStatus = "ns.status"

	// FieldStatusMessage 状态描述文本
	FieldStatusMessage = "status.message"
)

// ============================================================================
//                              消息类型
// ============================================================================

const (
	TypeRegister           = "ns.register"
	TypeRegisterResponse   = "ns.register.response"
	TypeDeregister         = "ns.deregister"
	TypeDeregisterResponse = "ns.deregister.response"
	TypeLookup             = "ns.lookup"
	TypeLookupResponse     = "ns.lookup.response"

	// TypeKeepAlive 守护进程发往空闲连接的存活探测，不对应任何请求
	TypeKeepAlive = "keep_alive.request"
)

// IsUnsolicited 该类型是否为主动推送（永远不与待决请求匹配）
func IsUnsolicited(msgType string) bool {
	return msgType == TypeKeepAlive
}

// ResponseTypeFor 返回请求类型对应的响应类型
func ResponseTypeFor(requestType string) (string, bool) {
	switch requestType {
	case TypeRegister:
		return TypeRegisterResponse, true
	case TypeDeregister:
		return TypeDeregisterResponse, true
	case TypeLookup:
		return TypeLookupResponse, true
	default:
		return "", false
	}
}
