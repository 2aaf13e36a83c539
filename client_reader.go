package resolver

import (
	"net"

	"github.com/dep2p/go-resolver/pkg/protocol"
)

// readLoop 后台读 goroutine
//
// 逐条读取完整消息并按关联键交给待决请求。连接丢失后重连同一地址，直到 Close。
func (c *Client) readLoop() {
	defer c.wg.Done()

	for {
		conn := c.currentConn()
		if conn == nil {
			if conn = c.redial(); conn == nil {
				return
			}
		}

		err := c.readConn(conn)
		if c.ctx.Err() != nil {
			return
		}
		c.dropConn(conn, err)
	}
}

// readConn 读取一条连接直到传输错误
func (c *Client) readConn(conn net.Conn) error {
	reader := protocol.NewReader(conn)
	for {
		msg, err := reader.ReadMessage()
		if err != nil {
			if protocol.IsDecodeError(err) {
				// 只丢弃这一条，流仍在帧边界上
				logger.Warn("丢弃无法解码的消息", "error", err)
				continue
			}
			return err
		}
		c.handleMessage(msg)
	}
}

// handleMessage 分发一条收到的消息
func (c *Client) handleMessage(msg *protocol.Message) {
	msgType := msg.Type()
	if protocol.IsUnsolicited(msgType) {
		logger.Debug("收到存活探测", "key", msg.CorrelationKey().String())
		return
	}

	key := msg.CorrelationKey()
	if !key.IsValid() {
		logger.Warn("丢弃缺少关联键的消息", "type", msgType)
		return
	}
	if !c.pending.deliver(key, msg) {
		logger.Debug("丢弃无匹配请求的消息", "type", msgType, "key", key.String())
	}
}

// redial 按重连节奏重连，客户端关闭时返回 nil
func (c *Client) redial() net.Conn {
	for {
		if err := c.reconnect.Wait(c.ctx); err != nil {
			return nil
		}

		conn, err := c.dialOnce(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return nil
			}
			logger.Debug("重连失败", "addr", c.cfg.DaemonAddr, "error", err)
			continue
		}

		if !c.setConn(conn) {
			return nil
		}
		logger.Info("已重新连接守护进程", "addr", c.cfg.DaemonAddr)
		return conn
	}
}
