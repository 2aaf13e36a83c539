// Package protocol 定义名称解析协议的消息格式与线上帧格式
//
// 本包是解析协议字段名、消息类型的单一真相源，
// 客户端与守护进程都应从此包引用常量，而不是自行定义字符串。
//
// # 消息
//
// 消息是扁平的键值文档，每条消息都带 message.type；
// 请求/响应对还带 correlation.key，响应原样回传请求的关联键：
//
//	{"message.type":"ns.lookup","object.id":"foo.service","sender.id":4242,"timeout":4000,"correlation.key":"17"}
//	{"message.type":"ns.lookup.response","sender.id":9,"correlation.key":"17","object.id":"foo.service","endpoint":"tcp://10.0.0.5:9000","ns.status":0}
//
// # 帧格式
//
// 每条消息编码为一帧：4 字节大端长度前缀 + JSON 文档，单帧最大 1MB。
//
//	+----------------+---------------------------+
//	| length (4B BE) | JSON document (length B)  |
//	+----------------+---------------------------+
//
// # 消息类型
//
//   - ns.register / ns.register.response
//   - ns.deregister / ns.deregister.response
//   - ns.lookup / ns.lookup.response
//   - keep_alive.request（守护进程主动推送，不对应任何请求）
package protocol
