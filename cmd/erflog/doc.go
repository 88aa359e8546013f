// Copyright (c) Erflog Authors.
// Licensed under the MIT License.

/*
Package main 提供 Erflog 面试服务的程序入口。

# 概述

cmd/erflog 是面试服务的可执行入口，提供 serve（语音 / 文字面试
WebSocket 与 HTTP API）、migrate（数据库迁移）、health 与 version
子命令。程序支持 YAML 配置文件与环境变量加载、结构化日志（zap）、
Prometheus 指标、OpenTelemetry 追踪以及面试调优参数热更新。

# 核心类型

  - Server      — 主服务器，管理 HTTP、Metrics 双端口及优雅关闭
  - components  — 按配置装配的存储、缓存、LLM、语音协作方
  - Middleware  — HTTP 中间件函数签名 func(http.Handler) http.Handler

# 主要能力

  - 存储后端：sql（gorm + 连接池）、supabase（PostgREST）、none（本地联调）
  - Redis 启用时：面试上下文缓存、会话快照镜像、HTTP chat 会话存储
  - 中间件链：Recovery、RequestID、SecurityHeaders、OTelTracing、Metrics、
    RequestLogger、CORS、RateLimiter、APIKeyAuth、JWTAuth
  - 热更新：config.Watcher 回调替换面试调优参数，只影响新会话
  - 优雅关闭：停止监听 → 取消活动面试 → 等待会话收尾 → 释放资源
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
