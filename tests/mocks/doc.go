// Package mocks 提供测试用的手写模拟实现
//
// 每个 Mock 都有可覆盖的 XxxFunc 字段和调用记录，
// 未设置 Func 时使用内置的简单行为。
package mocks
