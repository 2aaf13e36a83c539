package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/dep2p/go-resolver/pkg/correlation"
	"github.com/dep2p/go-resolver/pkg/lib/log"
	"github.com/dep2p/go-resolver/pkg/protocol"
	"github.com/dep2p/go-resolver/pkg/types"
)

var logger = log.Logger("resolver/client")

// Client 解析守护进程的单播客户端
//
// 所有方法可以并发调用。
type Client struct {
	cfg      Config
	keys     correlation.Generator
	senderID int64
	dial     func(ctx context.Context, network, addr string) (net.Conn, error)

	pending *pendingTable

	// connMu 保护 conn，conn 为 nil 表示当前断线
	connMu sync.Mutex
	conn   net.Conn

	// writeMu 保证一条消息完整写出后才写下一条
	writeMu sync.Mutex

	reconnect *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool
}

// Open 连接守护进程并启动后台读 goroutine
//
// cfg 未通过 Validate 时返回 ErrInvalidArgument。
func Open(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	keys, err := correlation.NewGenerator(cfg.KeyScheme)
	if err != nil {
		return nil, err
	}

	o := &options{keys: keys, senderID: int64(os.Getpid())}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.dial == nil {
		d := &net.Dialer{Timeout: cfg.DialTimeout}
		o.dial = d.DialContext
	}

	c := &Client{
		cfg:       cfg,
		keys:      o.keys,
		senderID:  o.senderID,
		dial:      o.dial,
		pending:   newPendingTable(),
		reconnect: rate.NewLimiter(rate.Every(cfg.ReconnectInterval), 1),
	}

	conn, err := c.dialOnce(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoConnection, cfg.DaemonAddr, err)
	}
	c.conn = conn
	// 首次连接占用一个重连令牌
	c.reconnect.Allow()

	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.wg.Add(1)
	go c.readLoop()

	logger.Debug("已连接守护进程", "addr", cfg.DaemonAddr, "local", conn.LocalAddr().String())
	return c, nil
}

// Register 注册名称到端点
func (c *Client) Register(ctx context.Context, name string, endpoint types.Endpoint) error {
	if name == "" || endpoint.IsZero() {
		return opError("register", name, ErrInvalidArgument)
	}

	resp, err := c.roundTrip(ctx, c.cfg.RequestTimeout, func(key correlation.Key, _ time.Duration) *protocol.Message {
		return protocol.NewRegisterRequest(key, c.senderID, name, endpoint)
	})
	if err != nil {
		return opError("register", name, err)
	}
	return checkStatus("register", name, resp)
}

// Unregister 注销名称
func (c *Client) Unregister(ctx context.Context, name string) error {
	if name == "" {
		return opError("unregister", name, ErrInvalidArgument)
	}

	resp, err := c.roundTrip(ctx, c.cfg.RequestTimeout, func(key correlation.Key, _ time.Duration) *protocol.Message {
		return protocol.NewDeregisterRequest(key, c.senderID, name)
	})
	if err != nil {
		return opError("unregister", name, err)
	}
	return checkStatus("unregister", name, resp)
}

// Lookup 查找名称对应的端点
//
// 请求中的 timeout 字段取 ctx 剩余时间，不超过 LookupTimeout。
func (c *Client) Lookup(ctx context.Context, name string) (types.Endpoint, error) {
	if name == "" {
		return types.Endpoint{}, opError("lookup", name, ErrInvalidArgument)
	}

	resp, err := c.roundTrip(ctx, c.cfg.LookupTimeout, func(key correlation.Key, remaining time.Duration) *protocol.Message {
		timeout := remaining
		if c.cfg.LookupTimeout > 0 && timeout > c.cfg.LookupTimeout {
			timeout = c.cfg.LookupTimeout
		}
		return protocol.NewLookupRequest(key, c.senderID, name, timeout)
	})
	if err != nil {
		return types.Endpoint{}, opError("lookup", name, err)
	}

	if status, ok := resp.Status(); ok && !status.IsOK() {
		return types.Endpoint{}, statusError("lookup", name, status, resp)
	}
	ep, err := resp.Endpoint()
	if err != nil {
		return types.Endpoint{}, opError("lookup", name, fmt.Errorf("%w: %v", ErrProtocol, err))
	}
	return ep, nil
}

// Close 关闭连接并等待读 goroutine 退出
//
// 此时仍在等待响应的调用返回 ErrClosed。
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.cancel()

	c.connMu.Lock()
	conn := c.conn
	c.conn = nil
	c.connMu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
		if errors.Is(err, net.ErrClosed) {
			err = nil
		}
	}

	c.wg.Wait()
	logger.Debug("客户端已关闭", "addr", c.cfg.DaemonAddr)
	return err
}

// Connected 当前是否有可用连接
func (c *Client) Connected() bool {
	return c.currentConn() != nil
}

// LocalEndpoint 本地 RPC 端点
//
// 配置了 RPCInterface 时使用该地址，否则取连接的本地地址；断线时返回零值。
func (c *Client) LocalEndpoint() types.Endpoint {
	conn := c.currentConn()
	if conn == nil {
		return types.Endpoint{}
	}
	ep, err := types.EndpointFromAddr(conn.LocalAddr())
	if err != nil {
		return types.Endpoint{}
	}
	if c.cfg.RPCInterface != "" {
		ep.Host = c.cfg.RPCInterface
	}
	return ep
}

// ============================================================================
//                              请求与响应关联
// ============================================================================

// roundTrip 发送一个请求并等待关联键匹配的响应
//
// 关联键和待决条目在锁内预留，写入在锁外进行；条目先于请求出现在表中，
// 读 goroutine 不会看到找不到条目的响应。
func (c *Client) roundTrip(ctx context.Context, defaultTimeout time.Duration,
	build func(key correlation.Key, remaining time.Duration) *protocol.Message) (*protocol.Message, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	ctx, cancel := withDefaultTimeout(ctx, defaultTimeout)
	defer cancel()

	conn := c.currentConn()
	if conn == nil {
		return nil, ErrNoConnection
	}

	key, p := c.pending.reserve(c.keys)
	remaining := defaultTimeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining = time.Until(deadline)
	}
	req := build(key, remaining)

	if err := c.send(conn, req); err != nil {
		c.pending.remove(key)
		c.dropConn(conn, err)
		return nil, fmt.Errorf("%w: %v", ErrNoConnection, err)
	}

	select {
	case resp := <-p.resp:
		return resp, nil

	case <-ctx.Done():
		if !c.pending.remove(key) {
			// 与超时同时到达的响应仍然有效
			return <-p.resp, nil
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			logger.Debug("请求超时", "key", key.String(), "type", req.Type())
			return nil, ErrTimeout
		}
		return nil, ctx.Err()

	case <-c.ctx.Done():
		if !c.pending.remove(key) {
			return <-p.resp, nil
		}
		return nil, ErrClosed
	}
}

// send 整帧写出一条请求
func (c *Client) send(conn net.Conn, msg *protocol.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if deadline, ok := writeDeadline(c.cfg); ok {
		if err := conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}
	return protocol.WriteMessage(conn, msg)
}

func writeDeadline(cfg Config) (time.Time, bool) {
	if cfg.RequestTimeout <= 0 {
		return time.Time{}, false
	}
	return time.Now().Add(cfg.RequestTimeout), true
}

func withDefaultTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// checkStatus 注册/注销响应必须携带状态码
func checkStatus(op, name string, resp *protocol.Message) error {
	status, ok := resp.Status()
	if !ok {
		return opError(op, name, fmt.Errorf("%w: missing %s", ErrProtocol, protocol.FieldStatus))
	}
	if !status.IsOK() {
		return statusError(op, name, status, resp)
	}
	return nil
}

func statusError(op, name string, status types.Status, resp *protocol.Message) error {
	text, _ := resp.GetString(protocol.FieldStatusMessage)
	return &StatusError{Op: op, Name: name, Status: status, Message: text}
}

// ============================================================================
//                              连接管理
// ============================================================================

func (c *Client) currentConn() net.Conn {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn
}

func (c *Client) dialOnce(ctx context.Context) (net.Conn, error) {
	dialCtx := ctx
	if c.cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.DialTimeout)
		defer cancel()
	}
	return c.dial(dialCtx, "tcp", c.cfg.DaemonAddr)
}

// setConn 安装新连接，客户端已关闭时返回 false
func (c *Client) setConn(conn net.Conn) bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.ctx.Err() != nil {
		_ = conn.Close()
		return false
	}
	c.conn = conn
	return true
}

// dropConn 作废连接，后续请求立即返回 ErrNoConnection
//
// 已发出的请求不受影响，仍由各自的超时决定结果。
func (c *Client) dropConn(conn net.Conn, cause error) {
	c.connMu.Lock()
	current := c.conn == conn
	if current {
		c.conn = nil
	}
	c.connMu.Unlock()

	if current && c.ctx.Err() == nil {
		logger.Warn("与守护进程的连接已断开", "addr", c.cfg.DaemonAddr, "error", cause)
	}
	_ = conn.Close()
}
