// Copyright (c) Erflog Authors.
// Licensed under the MIT License.

// Package metrics 提供基于 Prometheus 的指标收集。
//
// Collector 覆盖 HTTP 请求、面试会话（阶段切换、丢帧、轮次、协作者调用）、
// LLM 请求、缓存与数据库连接池。它实现 interview.Metrics，可直接注入引擎。
package metrics
