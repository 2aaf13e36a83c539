package protocol

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ============================================================================
//                              协议常量
// ============================================================================

const (
	// MaxMessageSize 最大消息大小 (1MB)
	MaxMessageSize = 1 << 20

	// lengthPrefixSize 长度前缀字节数 (4 字节大端)
	lengthPrefixSize = 4
)

// 预定义错误
var (
	// ErrMessageTooLarge 消息过大
	ErrMessageTooLarge = errors.New("protocol: message too large")

	// ErrEmptyMessage 长度为 0 的帧
	ErrEmptyMessage = errors.New("protocol: empty message")

	// ErrInvalidMessage 帧内容无法解码
	ErrInvalidMessage = errors.New("protocol: invalid message")

	// ErrMissingField 缺少必需字段
	ErrMissingField = errors.New("protocol: missing field")
)

// ============================================================================
//                              写入
// ============================================================================

// EncodeFrame 编码为一个完整帧：4 字节大端长度 + JSON 文档
func EncodeFrame(msg *Message) ([]byte, error) {
	data, err := msg.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	if len(data) > MaxMessageSize {
		return nil, ErrMessageTooLarge
	}

	frame := make([]byte, lengthPrefixSize+len(data))
	binary.BigEndian.PutUint32(frame, uint32(len(data)))
	copy(frame[lengthPrefixSize:], data)
	return frame, nil
}

// WriteMessage 写入一条消息
//
// 整帧通过一次 Write 调用写出，同一连接上的并发写入不会交错。
func WriteMessage(w io.Writer, msg *Message) error {
	frame, err := EncodeFrame(msg)
	if err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// ============================================================================
//                              读取
// ============================================================================

// Reader 从字节流中逐条读取消息
//
// 连接是面向流的：一次底层读取可能只拿到半帧，
// 未读完的部分保留在 Reader 的缓冲区里，下一次调用继续拼接。
// 每个连接必须使用独立的 Reader。
type Reader struct {
	r   *bufio.Reader
	hdr [lengthPrefixSize]byte
}

// NewReader 创建消息读取器
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 16*1024)}
}

// ReadMessage 读取一条完整消息
//
// 返回 io.EOF 表示对端在帧边界处正常关闭；帧中途断开返回 io.ErrUnexpectedEOF。
// 帧完整但内容无法解码时返回 ErrInvalidMessage，此时流仍处于帧边界，可以继续读取。
func (r *Reader) ReadMessage() (*Message, error) {
	if _, err := io.ReadFull(r.r, r.hdr[:]); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(r.hdr[:])
	if length == 0 {
		return nil, ErrEmptyMessage
	}
	if length > MaxMessageSize {
		return nil, ErrMessageTooLarge
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r.r, data); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}

	return Unmarshal(data)
}

// ReadMessage 从 reader 读取一条消息（无跨调用缓冲，适合一次性读取）
func ReadMessage(r io.Reader) (*Message, error) {
	var hdr [lengthPrefixSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(hdr[:])
	if length == 0 {
		return nil, ErrEmptyMessage
	}
	if length > MaxMessageSize {
		return nil, ErrMessageTooLarge
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}
	return Unmarshal(data)
}

// IsDecodeError 帧已完整读出、仅内容无法解码
//
// 这类错误只影响当前这一条消息，连接本身仍然可用。
func IsDecodeError(err error) bool {
	return errors.Is(err, ErrInvalidMessage)
}
