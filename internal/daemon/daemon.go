package daemon

import (
	"context"
	"errors"
	"net"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-resolver/internal/registry"
	"github.com/dep2p/go-resolver/pkg/correlation"
	"github.com/dep2p/go-resolver/pkg/lib/log"
	"github.com/dep2p/go-resolver/pkg/protocol"
)

var logger = log.Logger("daemon")

// 接受连接失败后的重试退避
const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// Option 守护进程选项
type Option func(*Daemon)

// WithClock 使用指定时钟（测试中使用 clock.NewMock）
func WithClock(c clock.Clock) Option {
	return func(d *Daemon) { d.clock = c }
}

// WithRegisterer 把指标注册到指定的 Prometheus Registerer
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(d *Daemon) { d.registerer = reg }
}

// WithKeyGenerator 指定 keepalive 使用的关联键生成器
func WithKeyGenerator(g correlation.Generator) Option {
	return func(d *Daemon) { d.keys = g }
}

// Daemon 解析守护进程
type Daemon struct {
	cfg        Config
	reg        registry.Registry
	clock      clock.Clock
	keys       correlation.Generator
	registerer prometheus.Registerer
	metrics    *Metrics
	senderID   int64
	handlers   map[string]Handler
	listen     func(network, address string) (net.Listener, error)

	keepAliveInterval atomic.Int64

	ln      net.Listener
	accepts chan net.Conn
	events  chan event

	// 以下字段只由事件循环访问
	clients []*Client
	nextID  uint64

	connected atomic.Int32
	stats     struct {
		accepted   atomic.Uint64
		rejected   atomic.Uint64
		evicted    atomic.Uint64
		requests   atomic.Uint64
		dropped    atomic.Uint64
		keepAlives atomic.Uint64
		acceptErrs atomic.Uint64
	}

	// 生命周期
	ctx       context.Context
	ctxCancel context.CancelFunc
	group     *errgroup.Group
	readers   sync.WaitGroup
	started   atomic.Bool
	stopped   atomic.Bool
}

// New 创建守护进程
func New(cfg Config, reg registry.Registry, opts ...Option) (*Daemon, error) {
	if reg == nil {
		return nil, ErrNilRegistry
	}
	if cfg.KeepAliveInterval <= 0 {
		return nil, ErrInvalidInterval
	}

	d := &Daemon{
		cfg:      cfg,
		reg:      reg,
		clock:    clock.New(),
		keys:     correlation.NewUUIDGenerator(),
		senderID: int64(os.Getpid()),
		handlers: make(map[string]Handler),
		listen:   net.Listen,
		accepts:  make(chan net.Conn),
		events:   make(chan event, 128),
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.metrics = NewMetrics(d.registerer)
	d.keepAliveInterval.Store(int64(cfg.KeepAliveInterval))
	d.registerHandlers()
	return d, nil
}

// Start 绑定监听地址并启动事件循环
//
// 绑定失败直接返回错误。
func (d *Daemon) Start(_ context.Context) error {
	if d.started.Swap(true) {
		return ErrAlreadyStarted
	}

	ln, err := d.listen("tcp", d.cfg.ListenAddr)
	if err != nil {
		d.started.Store(false)
		return err
	}
	d.ln = ln

	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)
	d.ctx = gctx
	d.ctxCancel = cancel
	d.group = group

	group.Go(func() error { return d.acceptLoop(gctx) })
	group.Go(func() error { return d.eventLoop(gctx) })

	logger.Info("守护进程已启动",
		"addr", ln.Addr().String(),
		"keepalive", d.cfg.KeepAliveInterval,
		"maxClients", d.cfg.MaxClients)
	return nil
}

// Stop 停止事件循环并关闭所有连接
func (d *Daemon) Stop() error {
	if !d.started.Load() {
		return ErrNotStarted
	}
	if d.stopped.Swap(true) {
		return nil
	}

	d.ctxCancel()
	err := d.ln.Close()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	err = multierr.Append(err, d.group.Wait())
	d.readers.Wait()

	logger.Info("守护进程已停止")
	return err
}

// Addr 实际监听地址
func (d *Daemon) Addr() net.Addr {
	if d.ln == nil {
		return nil
	}
	return d.ln.Addr()
}

// Done 事件循环退出时关闭
func (d *Daemon) Done() <-chan struct{} {
	return d.ctx.Done()
}

// SenderID 守护进程写入 sender.id 的标识
func (d *Daemon) SenderID() int64 {
	return d.senderID
}

// SetKeepAliveInterval 修改存活探测间隔，下一轮迭代生效
func (d *Daemon) SetKeepAliveInterval(interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}
	old := time.Duration(d.keepAliveInterval.Swap(int64(interval)))
	if old != interval {
		logger.Info("keepalive 间隔已更新", "old", old, "new", interval)
	}
	return nil
}

// KeepAliveInterval 当前存活探测间隔
func (d *Daemon) KeepAliveInterval() time.Duration {
	return time.Duration(d.keepAliveInterval.Load())
}

// NumClients 当前连接数
func (d *Daemon) NumClients() int {
	return int(d.connected.Load())
}

// Stats 返回统计快照
func (d *Daemon) Stats() Stats {
	return Stats{
		Connected:      d.NumClients(),
		Accepted:       d.stats.accepted.Load(),
		Rejected:       d.stats.rejected.Load(),
		Evicted:        d.stats.evicted.Load(),
		Requests:       d.stats.requests.Load(),
		Dropped:        d.stats.dropped.Load(),
		KeepAlivesSent: d.stats.keepAlives.Load(),
		AcceptErrors:   d.stats.acceptErrs.Load(),
	}
}

// ============================================================================
//                              接受循环
// ============================================================================

// acceptLoop 把新连接交给事件循环
//
// 只有监听器关闭才会结束循环。其他接受错误（如 EMFILE）按退避等待后重试，
// 已连接的客户端不受影响。
func (d *Daemon) acceptLoop(ctx context.Context) error {
	var backoff time.Duration
	for {
		conn, err := d.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			backoff = nextAcceptBackoff(backoff)
			d.stats.acceptErrs.Add(1)
			d.metrics.AcceptErrors.Inc()
			logger.Warn("接受连接失败，稍后重试", "error", err, "retryIn", backoff)

			timer := time.NewTimer(backoff)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil
			}
			continue
		}
		backoff = 0

		select {
		case d.accepts <- conn:
		case <-ctx.Done():
			_ = conn.Close()
			return nil
		}
	}
}

func nextAcceptBackoff(prev time.Duration) time.Duration {
	if prev <= 0 {
		return minAcceptBackoff
	}
	if next := prev * 2; next < maxAcceptBackoff {
		return next
	}
	return maxAcceptBackoff
}

// ============================================================================
//                              事件循环
// ============================================================================

// eventLoop 单线程事件循环
func (d *Daemon) eventLoop(ctx context.Context) error {
	ticker := d.clock.Ticker(d.cfg.PollInterval)
	defer ticker.Stop()
	defer d.closeAll()

	for {
		var accepted []net.Conn
		var ready []event

		select {
		case <-ctx.Done():
			return nil
		case conn := <-d.accepts:
			accepted = append(accepted, conn)
		case ev := <-d.events:
			ready = append(ready, ev)
		case <-ticker.C:
		}

		accepted, ready = d.drain(accepted, ready)
		d.iterate(accepted, ready)
	}
}

// drain 非阻塞地收集本轮所有已就绪的连接和消息
func (d *Daemon) drain(accepted []net.Conn, ready []event) ([]net.Conn, []event) {
	for {
		select {
		case conn := <-d.accepts:
			accepted = append(accepted, conn)
		case ev := <-d.events:
			ready = append(ready, ev)
		default:
			return accepted, ready
		}
	}
}

// iterate 执行一轮迭代
func (d *Daemon) iterate(accepted []net.Conn, ready []event) {
	for _, conn := range accepted {
		d.admit(conn)
	}

	// 按接入顺序服务，每个连接本轮至多一条消息
	sort.SliceStable(ready, func(i, j int) bool {
		return ready[i].client.id < ready[j].client.id
	})
	for _, ev := range ready {
		d.service(ev)
	}

	d.keepAlivePass(d.clock.Now())
	d.evict()
}

// admit 接纳新连接，超过上限直接关闭
func (d *Daemon) admit(conn net.Conn) {
	remote := conn.RemoteAddr().String()
	if d.cfg.MaxClients > 0 && len(d.clients) >= d.cfg.MaxClients {
		_ = conn.Close()
		d.stats.rejected.Add(1)
		d.metrics.Rejected.Inc()
		logger.Warn("连接数已达上限，拒绝新连接", "remote", remote, "max", d.cfg.MaxClients)
		return
	}

	d.nextID++
	c := newClient(d.nextID, conn, d.clock.Now())
	d.clients = append(d.clients, c)
	c.state = StateActive

	d.connected.Add(1)
	d.stats.accepted.Add(1)
	d.metrics.Accepted.Inc()
	d.metrics.Connected.Inc()
	logger.Debug("客户端已连接", "client", c.id, "remote", remote)

	d.readers.Add(1)
	go d.readLoop(d.ctx, c)
}

// service 处理一个连接的一条消息
func (d *Daemon) service(ev event) {
	c := ev.client
	if !c.serviceable() {
		return
	}

	if ev.err != nil {
		// 读 goroutine 已退出
		c.fail(ev.err)
		return
	}

	if resp := d.dispatch(c, ev.msg); resp != nil {
		if err := c.write(resp, d.cfg.WriteTimeout); err != nil {
			c.fail(err)
			return
		}
	}

	select {
	case c.resume <- struct{}{}:
	default:
	}
}

// keepAlivePass 向超过间隔未探测的连接发送存活探测
func (d *Daemon) keepAlivePass(now time.Time) {
	interval := d.KeepAliveInterval()
	for _, c := range d.clients {
		if !c.serviceable() || now.Sub(c.lastKeepAlive) <= interval {
			continue
		}

		keepAlive := protocol.NewKeepAlive(d.keys.Next(), d.senderID)
		if err := c.write(keepAlive, d.cfg.WriteTimeout); err != nil {
			c.fail(err)
			continue
		}
		c.lastKeepAlive = now
		d.stats.keepAlives.Add(1)
		d.metrics.KeepAlives.Inc()
	}
}

// evict 关闭并移除所有失败连接
func (d *Daemon) evict() {
	kept := d.clients[:0]
	for _, c := range d.clients {
		if c.state != StateFailed {
			kept = append(kept, c)
			continue
		}

		logger.With("client", c.id, "remote", c.remote).Debug("淘汰客户端",
			"reason", c.err,
			"connectedFor", d.clock.Since(c.ConnectedAt()))
		_ = c.close()
		d.connected.Add(-1)
		d.stats.evicted.Add(1)
		d.metrics.Evicted.Inc()
		d.metrics.Connected.Dec()
	}
	for i := len(kept); i < len(d.clients); i++ {
		d.clients[i] = nil
	}
	d.clients = kept
}

// closeAll 事件循环退出时关闭全部连接
func (d *Daemon) closeAll() {
	for _, c := range d.clients {
		_ = c.close()
		d.connected.Add(-1)
		d.metrics.Connected.Dec()
	}
	d.clients = nil
}

// ============================================================================
//                              读 goroutine
// ============================================================================

// readLoop 从连接读取完整消息交给事件循环
//
// 每交出一条消息就等待事件循环处理完毕，读错误交出后退出。
func (d *Daemon) readLoop(ctx context.Context, c *Client) {
	defer d.readers.Done()

	for {
		msg, err := c.reader.ReadMessage()

		select {
		case d.events <- event{client: c, msg: msg, err: err}:
		case <-c.closed:
			return
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}

		select {
		case <-c.resume:
		case <-c.closed:
			return
		case <-ctx.Done():
			return
		}
	}
}
