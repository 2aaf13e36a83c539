package daemon

import (
	"net"
	"time"

	"github.com/dep2p/go-resolver/pkg/protocol"
)

// ClientState 连接状态
type ClientState int32

const (
	// StateAccepted 已接受，尚未进入服务
	StateAccepted ClientState = iota
	// StateActive 正在服务
	StateActive
	// StateFailed 出现 I/O 或解码错误，等待淘汰
	StateFailed
	// StateClosed 已关闭并移出连接表
	StateClosed
)

// String 返回状态名
func (s ClientState) String() string {
	switch s {
	case StateAccepted:
		return "accepted"
	case StateActive:
		return "active"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Client 守护进程侧的一个客户端连接
//
// 除 ID/RemoteAddr/ConnectedAt 外的字段只由事件循环访问。
type Client struct {
	id          uint64
	conn        net.Conn
	remote      string
	reader      *protocol.Reader
	connectedAt time.Time

	lastKeepAlive time.Time
	state         ClientState
	err           error

	// resume 事件循环处理完一条消息后通知读 goroutine 继续
	resume chan struct{}
	// closed 淘汰时关闭，读 goroutine 据此退出
	closed chan struct{}
}

func newClient(id uint64, conn net.Conn, now time.Time) *Client {
	return &Client{
		id:            id,
		conn:          conn,
		remote:        conn.RemoteAddr().String(),
		reader:        protocol.NewReader(conn),
		connectedAt:   now,
		lastKeepAlive: now,
		state:         StateAccepted,
		resume:        make(chan struct{}, 1),
		closed:        make(chan struct{}),
	}
}

// ID 连接序号，按接入顺序递增
func (c *Client) ID() uint64 { return c.id }

// RemoteAddr 远端地址
func (c *Client) RemoteAddr() string { return c.remote }

// ConnectedAt 接入时间
func (c *Client) ConnectedAt() time.Time { return c.connectedAt }

// fail 标记失败，只记录第一个错误
func (c *Client) fail(err error) {
	if c.state == StateFailed || c.state == StateClosed {
		return
	}
	c.state = StateFailed
	c.err = err
}

// serviceable 是否还能处理消息
func (c *Client) serviceable() bool {
	return c.state == StateActive
}

// close 关闭连接并通知读 goroutine
func (c *Client) close() error {
	if c.state == StateClosed {
		return nil
	}
	c.state = StateClosed
	close(c.closed)
	return c.conn.Close()
}

// write 在截止时间内写出一条消息
func (c *Client) write(msg *protocol.Message, timeout time.Duration) error {
	if timeout > 0 {
		// 网络截止时间必须使用真实时钟
		if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
	}
	return protocol.WriteMessage(c.conn, msg)
}

// event 读 goroutine 交给事件循环的一条消息或一个读错误
type event struct {
	client *Client
	msg    *protocol.Message
	err    error
}
