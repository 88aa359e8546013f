// Copyright (c) Erflog Authors.
// Licensed under the MIT License.

// Package tlsutil 为出站 HTTP 客户端（LLM、语音服务、Supabase）与入站
// HTTPS 监听提供统一的 TLS 配置（TLS 1.2+，仅 AEAD 密码套件）。
package tlsutil
