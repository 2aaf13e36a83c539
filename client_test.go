package resolver

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-resolver/pkg/correlation"
	"github.com/dep2p/go-resolver/pkg/protocol"
	"github.com/dep2p/go-resolver/pkg/types"
)

// ============================================================================
//                              测试辅助
// ============================================================================

// fakeDaemon 按脚本应答的守护进程
type fakeDaemon struct {
	ln      net.Listener
	handler func(conn net.Conn, req *protocol.Message)

	mu    sync.Mutex
	conns []net.Conn
}

func newFakeDaemon(t *testing.T, handler func(conn net.Conn, req *protocol.Message)) *fakeDaemon {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	f := &fakeDaemon{ln: ln, handler: handler}
	go f.serve(ln)
	t.Cleanup(f.close)
	return f
}

func (f *fakeDaemon) serve(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		f.mu.Lock()
		f.conns = append(f.conns, conn)
		f.mu.Unlock()

		go func() {
			r := protocol.NewReader(conn)
			for {
				msg, err := r.ReadMessage()
				if err != nil {
					return
				}
				f.handler(conn, msg)
			}
		}()
	}
}

func (f *fakeDaemon) addr() string {
	return f.ln.Addr().String()
}

// dropConns 断开所有已接受的连接
func (f *fakeDaemon) dropConns() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.conns {
		_ = c.Close()
	}
	f.conns = nil
}

func (f *fakeDaemon) close() {
	_ = f.ln.Close()
	f.dropConns()
}

// restart 在同一地址重新监听
func (f *fakeDaemon) restart(t *testing.T) {
	t.Helper()
	ln, err := net.Listen("tcp", f.addr())
	require.NoError(t, err)
	f.ln = ln
	go f.serve(ln)
}

func reply(conn net.Conn, req *protocol.Message, status types.Status) {
	resp := protocol.NewResponse(req, 1, status)
	if req.Type() == protocol.TypeLookup && status.IsOK() {
		resp.SetString(protocol.FieldEndpoint, "tcp://127.0.0.1:9000")
	}
	_ = protocol.WriteMessage(conn, resp)
}

func okHandler(conn net.Conn, req *protocol.Message) {
	reply(conn, req, types.StatusOK)
}

func silentHandler(net.Conn, *protocol.Message) {}

func testClientConfig(addr string) Config {
	cfg := DefaultConfig()
	cfg.DaemonAddr = addr
	cfg.RequestTimeout = time.Second
	cfg.LookupTimeout = time.Second
	cfg.ReconnectInterval = 20 * time.Millisecond
	cfg.DialTimeout = time.Second
	return cfg
}

func openClient(t *testing.T, addr string, opts ...Option) *Client {
	t.Helper()
	c, err := Open(context.Background(), testClientConfig(addr), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func withTimeout(t *testing.T, d time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	t.Cleanup(cancel)
	return ctx
}

// ============================================================================
//                              基本请求
// ============================================================================

func TestOpen_NoDaemon(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = Open(context.Background(), testClientConfig(addr))
	assert.ErrorIs(t, err, ErrNoConnection)
}

func TestOpen_InvalidKeyScheme(t *testing.T) {
	cfg := testClientConfig("127.0.0.1:1")
	cfg.KeyScheme = "dice"
	_, err := Open(context.Background(), cfg)
	assert.Error(t, err)
}

func TestOpen_InvalidConfig(t *testing.T) {
	mutations := map[string]func(*Config){
		"empty address":        func(c *Config) { c.DaemonAddr = "" },
		"zero request timeout": func(c *Config) { c.RequestTimeout = 0 },
		"zero lookup timeout":  func(c *Config) { c.LookupTimeout = 0 },
		"zero reconnect":       func(c *Config) { c.ReconnectInterval = 0 },
		"negative dial":        func(c *Config) { c.DialTimeout = -time.Second },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			dialed := false
			cfg := testClientConfig("127.0.0.1:1")
			mutate(&cfg)
			_, err := Open(context.Background(), cfg, WithDialer(func(context.Context, string, string) (net.Conn, error) {
				dialed = true
				return nil, errors.New("unreachable")
			}))
			assert.ErrorIs(t, err, ErrInvalidArgument)
			assert.False(t, dialed, "invalid config must be rejected before dialing")
		})
	}

	assert.NoError(t, DefaultConfig().Validate())
}

func TestClient_RequestFields(t *testing.T) {
	reqs := make(chan *protocol.Message, 3)
	f := newFakeDaemon(t, func(conn net.Conn, req *protocol.Message) {
		reqs <- req
		okHandler(conn, req)
	})
	c := openClient(t, f.addr(), WithSenderID(4242))
	ep := types.MustParseEndpoint("tcp://127.0.0.1:9000")

	require.NoError(t, c.Register(context.Background(), "foo.service", ep))
	reg := <-reqs
	assert.Equal(t, protocol.TypeRegister, reg.Type())
	sender, _ := reg.GetInt(protocol.FieldSenderID)
	assert.Equal(t, int64(4242), sender)
	gotEp, err := reg.Endpoint()
	require.NoError(t, err)
	assert.Equal(t, ep, gotEp)

	got, err := c.Lookup(withTimeout(t, 500*time.Millisecond), "foo.service")
	require.NoError(t, err)
	assert.Equal(t, ep, got)
	lookup := <-reqs
	timeout, ok := lookup.GetInt(protocol.FieldTimeout)
	require.True(t, ok)
	assert.LessOrEqual(t, timeout, int64(500))
	assert.Greater(t, timeout, int64(0))

	require.NoError(t, c.Unregister(context.Background(), "foo.service"))
	dereg := <-reqs
	assert.Equal(t, protocol.TypeDeregister, dereg.Type())

	// 每个请求使用不同的关联键
	assert.NotEqual(t, reg.CorrelationKey(), lookup.CorrelationKey())
	assert.NotEqual(t, lookup.CorrelationKey(), dereg.CorrelationKey())
}

func TestClient_InvalidArguments(t *testing.T) {
	f := newFakeDaemon(t, okHandler)
	c := openClient(t, f.addr())

	assert.ErrorIs(t, c.Register(context.Background(), "", types.MustParseEndpoint("tcp://1.2.3.4:5")), ErrInvalidArgument)
	assert.ErrorIs(t, c.Register(context.Background(), "svc", types.Endpoint{}), ErrInvalidArgument)
	_, err := c.Lookup(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.ErrorIs(t, c.Unregister(context.Background(), ""), ErrInvalidArgument)
}

// ============================================================================
//                              关联
// ============================================================================

// TestClient_ConcurrentOutOfOrder 乱序到达的响应各自交给发出请求的调用方
func TestClient_ConcurrentOutOfOrder(t *testing.T) {
	const n = 64

	var mu sync.Mutex
	var held []*protocol.Message
	f := newFakeDaemon(t, func(conn net.Conn, req *protocol.Message) {
		mu.Lock()
		defer mu.Unlock()
		held = append(held, req)
		if len(held) < n {
			return
		}
		// 倒序应答，端点端口编码了对象名
		for i := len(held) - 1; i >= 0; i-- {
			r := held[i]
			name, _ := r.ObjectID()
			var port int
			_, _ = fmt.Sscanf(name, "svc.%d", &port)
			resp := protocol.NewResponse(r, 1, types.StatusOK).
				SetString(protocol.FieldEndpoint, fmt.Sprintf("tcp://127.0.0.1:%d", 10000+port))
			_ = protocol.WriteMessage(conn, resp)
		}
		held = nil
	})
	c := openClient(t, f.addr())

	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			ep, err := c.Lookup(withTimeout(t, 5*time.Second), fmt.Sprintf("svc.%d", i))
			if err != nil {
				return err
			}
			if ep.Port != 10000+i {
				return fmt.Errorf("caller %d got port %d", i, ep.Port)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 0, c.pending.len())
}

// TestClient_TimeoutCleansPending 超时的请求从待决表中移除
func TestClient_TimeoutCleansPending(t *testing.T) {
	f := newFakeDaemon(t, silentHandler)
	c := openClient(t, f.addr())

	for i := 0; i < 50; i++ {
		_, err := c.Lookup(withTimeout(t, 5*time.Millisecond), "svc.a")
		require.ErrorIs(t, err, ErrTimeout)
		assert.Equal(t, types.StatusTimeout, StatusOf(err))
	}
	assert.Equal(t, 0, c.pending.len())

	// ctx 无截止时间时使用默认超时
	c.cfg.RequestTimeout = 30 * time.Millisecond
	start := time.Now()
	err := c.Register(context.Background(), "svc.a", types.MustParseEndpoint("tcp://1.2.3.4:5"))
	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Equal(t, 0, c.pending.len())
}

func TestClient_CallerCancel(t *testing.T) {
	f := newFakeDaemon(t, silentHandler)
	c := openClient(t, f.addr())

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	_, err := c.Lookup(ctx, "svc.a")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, c.pending.len())
}

// TestClient_KeepAliveNeverMatched 与待决请求同键的存活探测不会被当作响应
func TestClient_KeepAliveNeverMatched(t *testing.T) {
	f := newFakeDaemon(t, func(conn net.Conn, req *protocol.Message) {
		_ = protocol.WriteMessage(conn, protocol.NewKeepAlive(req.CorrelationKey(), 1))
		_ = protocol.WriteMessage(conn, protocol.NewResponse(req, 1, types.StatusOK).SetCorrelationKey("unmatched"))
		time.Sleep(20 * time.Millisecond)
		reply(conn, req, types.StatusOK)
	})
	c := openClient(t, f.addr())

	ep, err := c.Lookup(withTimeout(t, time.Second), "svc.a")
	require.NoError(t, err)
	assert.Equal(t, "tcp://127.0.0.1:9000", ep.String())
}

func TestClient_UndecodableMessageSkipped(t *testing.T) {
	f := newFakeDaemon(t, func(conn net.Conn, req *protocol.Message) {
		body := []byte(`{broken`)
		frame := make([]byte, 4+len(body))
		binary.BigEndian.PutUint32(frame, uint32(len(body)))
		copy(frame[4:], body)
		_, _ = conn.Write(frame)
		reply(conn, req, types.StatusOK)
	})
	c := openClient(t, f.addr())

	_, err := c.Lookup(withTimeout(t, time.Second), "svc.a")
	require.NoError(t, err)
	assert.True(t, c.Connected())
}

// ============================================================================
//                              状态码
// ============================================================================

func TestClient_StatusErrors(t *testing.T) {
	f := newFakeDaemon(t, func(conn net.Conn, req *protocol.Message) {
		name, _ := req.ObjectID()
		switch name {
		case "missing":
			resp := protocol.NewResponse(req, 1, types.StatusObjectNotFound).WithStatusMessage("no such name")
			_ = protocol.WriteMessage(conn, resp)
		case "no-endpoint":
			_ = protocol.WriteMessage(conn, protocol.NewResponse(req, 1, types.StatusOK))
		case "no-status":
			resp := protocol.NewResponse(req, 1, types.StatusOK)
			resp.Delete(protocol.FieldStatus)
			_ = protocol.WriteMessage(conn, resp)
		case "slow":
			reply(conn, req, types.StatusTimeout)
		default:
			reply(conn, req, types.StatusFail)
		}
	})
	c := openClient(t, f.addr())
	ctx := withTimeout(t, 2*time.Second)

	_, err := c.Lookup(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, types.StatusObjectNotFound, StatusOf(err))
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "lookup", se.Op)
	assert.Equal(t, "no such name", se.Message)

	_, err = c.Lookup(ctx, "no-endpoint")
	assert.ErrorIs(t, err, ErrProtocol)
	assert.Equal(t, types.StatusProtocolError, StatusOf(err))

	err = c.Register(ctx, "no-status", types.MustParseEndpoint("tcp://1.2.3.4:5"))
	assert.ErrorIs(t, err, ErrProtocol)

	_, err = c.Lookup(ctx, "slow")
	assert.ErrorIs(t, err, ErrTimeout)

	err = c.Unregister(ctx, "other")
	assert.ErrorIs(t, err, ErrFail)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, types.StatusOK, StatusOf(nil))
	assert.Equal(t, types.StatusNoConnection, StatusOf(opError("lookup", "x", ErrNoConnection)))
	assert.Equal(t, types.StatusNoConnection, StatusOf(ErrClosed))
	assert.Equal(t, types.StatusFail, StatusOf(io.ErrUnexpectedEOF))
	assert.Equal(t, types.StatusDuplicateEntry, StatusOf(&StatusError{Status: types.StatusDuplicateEntry}))
}

// ============================================================================
//                              连接管理
// ============================================================================

// TestClient_Reconnect 断线期间请求立即失败，重连后恢复
func TestClient_Reconnect(t *testing.T) {
	f := newFakeDaemon(t, okHandler)
	c := openClient(t, f.addr())
	require.NoError(t, c.Register(context.Background(), "svc.a", types.MustParseEndpoint("tcp://1.2.3.4:5")))

	// 先停止监听，再断开连接，客户端无法立即重连
	require.NoError(t, f.ln.Close())
	f.dropConns()
	require.Eventually(t, func() bool { return !c.Connected() }, 2*time.Second, 5*time.Millisecond)

	start := time.Now()
	_, err := c.Lookup(withTimeout(t, time.Second), "svc.a")
	assert.ErrorIs(t, err, ErrNoConnection)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "fails fast while disconnected")

	f.restart(t)
	require.Eventually(t, func() bool { return c.Connected() }, 2*time.Second, 5*time.Millisecond)

	_, err = c.Lookup(withTimeout(t, time.Second), "svc.a")
	assert.NoError(t, err)
}

// TestClient_PendingNotFailedEarly 断线前已发出的请求由自己的超时决定结果
func TestClient_PendingNotFailedEarly(t *testing.T) {
	f := newFakeDaemon(t, func(conn net.Conn, _ *protocol.Message) {
		_ = conn.Close()
	})
	c := openClient(t, f.addr())

	start := time.Now()
	_, err := c.Lookup(withTimeout(t, 200*time.Millisecond), "svc.a")
	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	assert.Equal(t, 0, c.pending.len())
}

// brokenConn 写入总是失败的连接
type brokenConn struct {
	net.Conn
	once   sync.Once
	closed chan struct{}
}

func newBrokenConn() *brokenConn {
	a, _ := net.Pipe()
	return &brokenConn{Conn: a, closed: make(chan struct{})}
}

func (b *brokenConn) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func (b *brokenConn) Read([]byte) (int, error) {
	<-b.closed
	return 0, io.EOF
}

func (b *brokenConn) Close() error {
	b.once.Do(func() { close(b.closed) })
	return b.Conn.Close()
}

func TestClient_WriteFailureInvalidatesConnection(t *testing.T) {
	dials := 0
	var mu sync.Mutex
	dialer := func(context.Context, string, string) (net.Conn, error) {
		mu.Lock()
		defer mu.Unlock()
		dials++
		if dials > 1 {
			return nil, errors.New("daemon unreachable")
		}
		return newBrokenConn(), nil
	}

	cfg := testClientConfig("127.0.0.1:1")
	cfg.ReconnectInterval = time.Hour
	c, err := Open(context.Background(), cfg, WithDialer(dialer))
	require.NoError(t, err)
	defer c.Close()

	err = c.Register(context.Background(), "svc.a", types.MustParseEndpoint("tcp://1.2.3.4:5"))
	assert.ErrorIs(t, err, ErrNoConnection)
	assert.False(t, c.Connected())
	assert.Equal(t, 0, c.pending.len())

	_, err = c.Lookup(context.Background(), "svc.a")
	assert.ErrorIs(t, err, ErrNoConnection)
}

// TestClient_Close 关闭会唤醒等待者并等待读 goroutine 退出
func TestClient_Close(t *testing.T) {
	f := newFakeDaemon(t, silentHandler)
	c, err := Open(context.Background(), testClientConfig(f.addr()))
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Lookup(withTimeout(t, 10*time.Second), "svc.a")
		errCh <- err
	}()
	require.Eventually(t, func() bool { return c.pending.len() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Close())
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter not released by Close")
	}

	// 读 goroutine 已退出
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reader still running after Close")
	}

	assert.NoError(t, c.Close())
	assert.ErrorIs(t, c.Register(context.Background(), "svc.a", types.MustParseEndpoint("tcp://1.2.3.4:5")), ErrClosed)
	assert.False(t, c.Connected())
}

func TestClient_LocalEndpoint(t *testing.T) {
	f := newFakeDaemon(t, okHandler)
	c := openClient(t, f.addr())

	ep := c.LocalEndpoint()
	assert.Equal(t, types.SchemeTCP, ep.Scheme)
	assert.Equal(t, "127.0.0.1", ep.Host)
	assert.NotZero(t, ep.Port)

	c.cfg.RPCInterface = "10.0.0.7"
	assert.Equal(t, "10.0.0.7", c.LocalEndpoint().Host)
}

func TestClient_SharedKeyGenerator(t *testing.T) {
	f := newFakeDaemon(t, okHandler)
	keys := correlation.NewSequenceGenerator()
	a := openClient(t, f.addr(), WithKeyGenerator(keys))
	b := openClient(t, f.addr(), WithKeyGenerator(keys))

	require.NoError(t, a.Unregister(context.Background(), "x"))
	require.NoError(t, b.Unregister(context.Background(), "x"))
	assert.Equal(t, correlation.Key("3"), keys.Next())
}
