package daemon

import (
	"context"

	"github.com/dep2p/go-resolver/pkg/protocol"
)

// Handler 请求处理器
//
// 在事件循环中同步调用，返回的响应立即写回同一连接；返回 nil 表示不响应。
// 处理器不得无限阻塞，ctx 在守护进程停止时取消。
type Handler interface {
	Handle(ctx context.Context, client *Client, req *protocol.Message) *protocol.Message
}

// HandlerFunc 函数形式的 Handler
type HandlerFunc func(ctx context.Context, client *Client, req *protocol.Message) *protocol.Message

// Handle 实现 Handler
func (f HandlerFunc) Handle(ctx context.Context, client *Client, req *protocol.Message) *protocol.Message {
	return f(ctx, client, req)
}

// Handle 注册消息类型的处理器，已存在的处理器被替换
//
// 必须在 Start 之前调用。
func (d *Daemon) Handle(msgType string, h Handler) {
	d.handlers[msgType] = h
}

// dispatch 按消息类型分派
//
// 未知类型记录日志后丢弃，连接保持。
func (d *Daemon) dispatch(c *Client, req *protocol.Message) *protocol.Message {
	h, ok := d.handlers[req.Type()]
	if !ok {
		d.stats.dropped.Add(1)
		d.metrics.Dropped.Inc()
		logger.Warn("未知消息类型，已丢弃", "client", c.remote, "type", req.Type())
		return nil
	}

	d.stats.requests.Add(1)
	resp := h.Handle(d.ctx, c, req)
	status := "none"
	if resp != nil {
		if st, ok := resp.Status(); ok {
			status = st.String()
		}
	}
	d.metrics.Requests.WithLabelValues(req.Type(), status).Inc()
	logger.DebugContext(d.ctx, "请求已处理", "client", c.id, "msg", req.Summary(), "status", status)
	return resp
}
