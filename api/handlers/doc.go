// Copyright (c) Erflog Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 Erflog HTTP API 的请求处理器实现。

# 概述

handlers 包实现面试服务所有 HTTP 端点的处理逻辑，包括 HTTP 文本面试、
面试历史、在线会话查询、健康检查以及统一的响应/错误处理。
WebSocket 面试通道见 api/ws 包。

# 核心类型

  - InterviewHandler — 面试历史（GET /api/v1/interviews/{user_id}）与
    HTTP 对话（POST /api/v1/interview/chat）
  - SessionHandler   — 在线会话列表与详情（本地注册表 + Redis 镜像）
  - HealthHandler    — 服务健康检查（/health, /healthz, /ready, /readyz, /version）
  - Response         — 统一 JSON 响应结构（success + data + error + timestamp）
  - ErrorInfo        — 结构化错误信息，含 code、message、retryable 标记
  - ResponseWriter   — 包装 http.ResponseWriter 以捕获状态码

# 响应格式

面试历史与 HTTP 对话沿用前端既有的裸 JSON 结构；其余端点使用 Response 包装。
所有错误均通过 WriteError 输出，types.ErrorCode 自动映射 HTTP 状态码。
*/
package handlers
