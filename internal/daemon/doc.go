// Package daemon 实现解析守护进程
//
// 守护进程接受任意多个客户端连接，按 message.type 把请求分派给处理器，
// 处理器调用后端注册表完成注册、注销和查找，并周期性地向空闲连接发送存活探测。
//
// # 事件循环
//
// 所有请求处理、响应写入、keepalive 和连接淘汰都在同一个事件循环 goroutine 中完成。
// 每个连接有一个读 goroutine，只负责把字节流拼成完整消息：
//
//   - 半帧留在该连接自己的缓冲区中，下一次读取继续拼接
//   - 读出一条消息后交给事件循环，并等待事件循环处理完才继续读下一条
//
// 因此每个连接在事件循环中最多只有一条待处理消息，
// 一轮迭代中每个就绪连接恰好被服务一次，服务顺序为连接接入顺序。
//
// 每轮迭代：
//
//  1. 等待新连接、消息事件或轮询定时器（PollInterval）
//  2. 接纳新连接，超过 MaxClients 的连接直接关闭
//  3. 按接入顺序服务就绪连接：分派请求并同步写回响应
//  4. 读错误或解码错误将连接标记为失败
//  5. keepalive：距上次探测超过 KeepAliveInterval 的连接发送探测
//  6. 淘汰所有失败连接
//
// # 连接状态
//
//	Accepted -> Active -> Failed -> Closed
//
// 守护进程不做重连，失败的客户端需要以新连接重新接入。
package daemon
