// Package lib 包含与解析服务组件无关的基础设施工具库
//
//   - log: 基于 slog 的日志封装（组件级 Logger、级别与格式设置）
//
// # 使用示例
//
//	import "github.com/dep2p/go-resolver/pkg/lib/log"
//
//	var logger = log.Logger("daemon")
package lib
