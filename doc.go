// Package resolver 是解析守护进程的单播客户端
//
// 客户端与守护进程保持一条持久连接，在其上并发地发出注册、注销和查找请求。
// 每个请求分配一个关联键，响应由后台读 goroutine 按关联键交还给发出请求的调用方。
//
// 使用示例：
//
//	c, err := resolver.Open(ctx, resolver.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	ep := types.MustParseEndpoint("tcp://127.0.0.1:9000")
//	if err := c.Register(ctx, "foo.service", ep); err != nil {
//	    return err
//	}
//
//	lookupCtx, cancel := context.WithTimeout(ctx, time.Second)
//	defer cancel()
//	ep, err = c.Lookup(lookupCtx, "foo.service")
//
// # 超时
//
// 每个请求的截止时间取自 ctx；ctx 没有截止时间时使用配置中的默认超时。
// 超时后请求从待决表中移除并返回 ErrTimeout。
//
// # 断线重连
//
// 连接丢失后读 goroutine 按 ReconnectInterval 节奏重连同一地址。
// 断线期间发出的请求立即返回 ErrNoConnection；断线前已发出的请求不会被提前失败，
// 由各自的超时决定结果。守护进程可能已经重启，需要持久绑定的调用方应在重连后重新注册。
package resolver
