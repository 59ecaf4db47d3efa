// Package middleware 提供 gin 中间件：认证、CORS、限流、熔断、
// 指标采集、链路追踪，以及存储与调度器的上下文注入.
package middleware
