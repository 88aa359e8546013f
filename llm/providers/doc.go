// Copyright (c) Erflog Authors.
// Licensed under the MIT License.

// Package providers 提供各 HTTP 上游（聊天模型与语音服务）共享的错误映射与请求辅助。
package providers
