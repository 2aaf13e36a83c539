package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-resolver/config"
	"github.com/dep2p/go-resolver/internal/daemon"
	"github.com/dep2p/go-resolver/internal/registry"
)

// newApp 组装守护进程的 Fx 应用
func newApp(cfg *config.Config) (*fx.App, *daemon.Daemon) {
	var d *daemon.Daemon
	app := fx.New(
		fx.Supply(cfg),
		fx.Provide(
			prometheus.NewRegistry,
			func(r *prometheus.Registry) prometheus.Registerer { return r },
		),
		registry.Module(),
		daemon.Module(),
		fx.Invoke(registerMetricsServer),
		fx.Populate(&d),

		// 禁用 Fx 日志输出（避免干扰用户日志）
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)
	return app, d
}

// registerMetricsServer 启用指标时挂载 /metrics 端点
func registerMetricsServer(lc fx.Lifecycle, cfg *config.Config, reg *prometheus.Registry) {
	if !cfg.Metrics.Enabled {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              cfg.Metrics.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("指标服务异常退出", "error", err)
				}
			}()
			logger.Info("指标端点已启动", "addr", ln.Addr().String())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
