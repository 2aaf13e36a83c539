package daemon

import (
	"context"
	"errors"

	"github.com/dep2p/go-resolver/internal/registry"
	"github.com/dep2p/go-resolver/pkg/protocol"
	"github.com/dep2p/go-resolver/pkg/types"
)

// ============================================================================
//                              名称服务处理器
// ============================================================================

// nameService 注册/注销/查找处理器
//
// 三个处理器都总是返回携带状态码的响应，调用方按关联键阻塞等待，不能不回。
type nameService struct {
	reg      registry.Registry
	cfg      Config
	senderID int64
}

// registerHandlers 注册默认处理器
func (d *Daemon) registerHandlers() {
	ns := &nameService{reg: d.reg, cfg: d.cfg, senderID: d.senderID}
	d.Handle(protocol.TypeRegister, HandlerFunc(ns.handleRegister))
	d.Handle(protocol.TypeDeregister, HandlerFunc(ns.handleDeregister))
	d.Handle(protocol.TypeLookup, HandlerFunc(ns.handleLookup))
}

func (ns *nameService) handleRegister(ctx context.Context, c *Client, req *protocol.Message) *protocol.Message {
	name, ok := req.ObjectID()
	if !ok {
		return ns.reply(req, types.StatusProtocolError, "missing "+protocol.FieldObjectID)
	}

	ep, err := req.Endpoint()
	if errors.Is(err, protocol.ErrMissingField) {
		return ns.reply(req, types.StatusProtocolError, err.Error())
	}
	if err != nil {
		return ns.reply(req, types.StatusInvalidArgument, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, ns.cfg.RegistryTimeout)
	defer cancel()

	err = ns.reg.Register(ctx, name, ep)
	if err != nil {
		logger.Warn("注册失败", "client", c.remote, "name", name, "error", err)
	} else {
		logger.Debug("名称已注册", "client", c.remote, "name", name, "endpoint", ep.String())
	}
	return ns.replyErr(req, err)
}

func (ns *nameService) handleDeregister(ctx context.Context, c *Client, req *protocol.Message) *protocol.Message {
	name, ok := req.ObjectID()
	if !ok {
		return ns.reply(req, types.StatusProtocolError, "missing "+protocol.FieldObjectID)
	}

	ctx, cancel := context.WithTimeout(ctx, ns.cfg.RegistryTimeout)
	defer cancel()

	err := ns.reg.Unregister(ctx, name)
	if err == nil {
		logger.Debug("名称已注销", "client", c.remote, "name", name)
	}
	return ns.replyErr(req, err)
}

func (ns *nameService) handleLookup(ctx context.Context, c *Client, req *protocol.Message) *protocol.Message {
	name, ok := req.ObjectID()
	if !ok {
		return ns.reply(req, types.StatusProtocolError, "missing "+protocol.FieldObjectID)
	}

	requested, present := req.GetInt(protocol.FieldTimeout)
	ctx, cancel := context.WithTimeout(ctx, ns.cfg.lookupTimeout(requested, present))
	defer cancel()

	ep, err := ns.reg.Lookup(ctx, name)
	if err != nil {
		logger.Debug("查找失败", "client", c.remote, "name", name, "error", err)
		return ns.replyErr(req, err)
	}
	return ns.reply(req, types.StatusOK, "").SetString(protocol.FieldEndpoint, ep.String())
}

func (ns *nameService) reply(req *protocol.Message, status types.Status, text string) *protocol.Message {
	return protocol.NewResponse(req, ns.senderID, status).WithStatusMessage(text)
}

func (ns *nameService) replyErr(req *protocol.Message, err error) *protocol.Message {
	if err == nil {
		return ns.reply(req, types.StatusOK, "")
	}
	return ns.reply(req, statusFromError(err), err.Error())
}

// statusFromError 把后端错误映射为线上状态码
func statusFromError(err error) types.Status {
	switch {
	case err == nil:
		return types.StatusOK
	case errors.Is(err, registry.ErrNotFound):
		return types.StatusObjectNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return types.StatusTimeout
	case errors.Is(err, registry.ErrEmptyName), errors.Is(err, types.ErrInvalidEndpoint):
		return types.StatusInvalidArgument
	default:
		return types.StatusFail
	}
}
