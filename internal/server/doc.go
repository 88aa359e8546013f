// Copyright (c) Erflog Authors.
// Licensed under the MIT License.

/*
包 server 管理 Erflog 的 HTTP 监听生命周期，API 服务与指标服务各用一个 Manager。

# 核心类型

  - Manager：持有 http.Server 与 net.Listener，提供 Start/Shutdown/Errors。
  - Config：监听地址、超时、请求头上限与可选 TLS 配置。

# 注意事项

面试通道是 WebSocket 长连接。承载它的服务器应只设置 ReadHeaderTimeout，
ReadTimeout/WriteTimeout 保持为 0。http.Server.Shutdown 不等待被劫持的连接，
调用方通过 OnShutdown 注册钩子取消活跃会话。
*/
package server
