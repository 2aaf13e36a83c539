package registry

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/dep2p/go-resolver/config"
)

// Params Registry 模块依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// Module 返回 Registry Fx 模块
//
// 提供:
//   - Registry: 按 registry.backend 选择的后端
//
// 生命周期:
//   - OnStop: 关闭后端
func Module() fx.Option {
	return fx.Module("registry",
		fx.Provide(ProvideRegistry),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideRegistry 根据统一配置创建后端
func ProvideRegistry(p Params) (Registry, error) {
	cfg := config.DefaultRegistryConfig()
	if p.UnifiedCfg != nil {
		cfg = p.UnifiedCfg.Registry
	}
	return New(cfg)
}

// New 根据配置创建后端
func New(cfg config.RegistryConfig) (Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case config.RegistryBackendBadger:
		logger.Info("使用 badger 注册表", "path", cfg.DBPath())
		return OpenBadger(cfg.DBPath())
	case config.RegistryBackendMemory:
		logger.Info("使用内存注册表", "capacity", cfg.Capacity)
		return NewMemoryRegistry(cfg.Capacity)
	default:
		return nil, fmt.Errorf("registry: unknown backend %q", cfg.Backend)
	}
}

func registerLifecycle(lc fx.Lifecycle, r Registry) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			if err := r.Close(); err != nil {
				logger.Warn("注册表关闭失败", "error", err)
				return err
			}
			logger.Info("注册表已关闭")
			return nil
		},
	})
}
