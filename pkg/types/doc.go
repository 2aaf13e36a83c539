// Package types 定义解析服务的公共数据结构
//
// 这是最底层的包，不依赖任何其他内部包：
//   - Endpoint: 可达地址描述，字符串形式可在线上无损往返
//   - Status: 响应中携带的状态码
package types
