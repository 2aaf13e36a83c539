package daemon

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-resolver/config"
	"github.com/dep2p/go-resolver/internal/registry"
)

// Params Daemon 模块依赖参数
type Params struct {
	fx.In

	Registry   registry.Registry
	UnifiedCfg *config.Config        `optional:"true"`
	Registerer prometheus.Registerer `optional:"true"`
}

// Module 返回 Daemon Fx 模块
//
// 提供:
//   - *Daemon: 解析守护进程
//
// 生命周期:
//   - OnStart: 绑定监听地址，启动事件循环
//   - OnStop: 停止事件循环，关闭所有连接
func Module() fx.Option {
	return fx.Module("daemon",
		fx.Provide(NewFromParams),
		fx.Invoke(registerLifecycle),
	)
}

// NewFromParams 从 Fx 参数创建守护进程
func NewFromParams(p Params) (*Daemon, error) {
	var opts []Option
	if p.Registerer != nil {
		opts = append(opts, WithRegisterer(p.Registerer))
	}
	return New(ConfigFromUnified(p.UnifiedCfg), p.Registry, opts...)
}

func registerLifecycle(lc fx.Lifecycle, d *Daemon) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := d.Start(ctx); err != nil {
				logger.Error("守护进程启动失败", "error", err)
				return err
			}
			return nil
		},
		OnStop: func(_ context.Context) error {
			return d.Stop()
		},
	})
}
