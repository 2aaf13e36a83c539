package protocol

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dep2p/go-resolver/pkg/correlation"
	"github.com/dep2p/go-resolver/pkg/types"
)

// Message 扁平键值文档
//
// 底层为 structpb.Struct，值可以是字符串、整数或嵌套对象；
// 线上形式为其 JSON 表示。
type Message struct {
	doc *structpb.Struct
}

// NewMessage 创建指定类型的空消息
func NewMessage(msgType string) *Message {
	m := &Message{doc: &structpb.Struct{Fields: make(map[string]*structpb.Value)}}
	return m.SetString(FieldMessageType, msgType)
}

// newFromStruct 包装已解码的文档
func newFromStruct(doc *structpb.Struct) *Message {
	if doc.Fields == nil {
		doc.Fields = make(map[string]*structpb.Value)
	}
	return &Message{doc: doc}
}

// ============================================================================
//                              写入
// ============================================================================

// SetString 设置字符串字段
func (m *Message) SetString(field, value string) *Message {
	m.doc.Fields[field] = structpb.NewStringValue(value)
	return m
}

// SetInt 设置整数字段
func (m *Message) SetInt(field string, value int64) *Message {
	m.doc.Fields[field] = structpb.NewNumberValue(float64(value))
	return m
}

// SetObject 设置嵌套对象字段
func (m *Message) SetObject(field string, value *Message) *Message {
	m.doc.Fields[field] = structpb.NewStructValue(value.doc)
	return m
}

// SetCorrelationKey 设置关联键
func (m *Message) SetCorrelationKey(key correlation.Key) *Message {
	return m.SetString(FieldCorrelationKey, key.String())
}

// SetStatus 设置状态码
func (m *Message) SetStatus(status types.Status) *Message {
	return m.SetInt(FieldStatus, int64(status))
}

// Delete 删除字段
func (m *Message) Delete(field string) {
	delete(m.doc.Fields, field)
}

// ============================================================================
//                              读取
// ============================================================================

// Has 字段是否存在
func (m *Message) Has(field string) bool {
	_, ok := m.doc.Fields[field]
	return ok
}

// GetString 读取字符串字段
func (m *Message) GetString(field string) (string, bool) {
	v, ok := m.doc.Fields[field]
	if !ok {
		return "", false
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", false
	}
	return s.StringValue, true
}

// GetInt 读取整数字段，非整数值视为缺失
func (m *Message) GetInt(field string) (int64, bool) {
	v, ok := m.doc.Fields[field]
	if !ok {
		return 0, false
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, false
	}
	f := n.NumberValue
	if f != math.Trunc(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// GetObject 读取嵌套对象字段
func (m *Message) GetObject(field string) (*Message, bool) {
	v, ok := m.doc.Fields[field]
	if !ok {
		return nil, false
	}
	s, ok := v.GetKind().(*structpb.Value_StructValue)
	if !ok || s.StructValue == nil {
		return nil, false
	}
	return newFromStruct(s.StructValue), true
}

// Type 消息类型，缺失时为空串
func (m *Message) Type() string {
	t, _ := m.GetString(FieldMessageType)
	return t
}

// CorrelationKey 关联键，缺失时为 correlation.Invalid
func (m *Message) CorrelationKey() correlation.Key {
	s, ok := m.GetString(FieldCorrelationKey)
	if !ok {
		return correlation.Invalid
	}
	key, err := correlation.Parse(s)
	if err != nil {
		return correlation.Invalid
	}
	return key
}

// ObjectID 对象名
func (m *Message) ObjectID() (string, bool) {
	return m.GetString(FieldObjectID)
}

// Endpoint 解析 endpoint 字段
func (m *Message) Endpoint() (types.Endpoint, error) {
	s, ok := m.GetString(FieldEndpoint)
	if !ok {
		return types.Endpoint{}, fmt.Errorf("%w: missing %s", ErrMissingField, FieldEndpoint)
	}
	return types.ParseEndpoint(s)
}

// Status 读取状态码
func (m *Message) Status() (types.Status, bool) {
	n, ok := m.GetInt(FieldStatus)
	if !ok {
		return types.StatusFail, false
	}
	return types.Status(n), true
}

// Len 字段数量
func (m *Message) Len() int {
	return len(m.doc.Fields)
}

// ============================================================================
//                              编解码
// ============================================================================

// Marshal 编码为 JSON 文档
func (m *Message) Marshal() ([]byte, error) {
	return protojson.Marshal(m.doc)
}

// Unmarshal 从 JSON 文档解码，顶层必须是对象
func Unmarshal(data []byte) (*Message, error) {
	doc := &structpb.Struct{}
	if err := protojson.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return newFromStruct(doc), nil
}

// Summary 日志输出用的简短描述
func (m *Message) Summary() string {
	return fmt.Sprintf("%s[%s]", m.Type(), m.CorrelationKey())
}
