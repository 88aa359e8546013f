// Copyright (c) Erflog Authors.
// Licensed under the MIT License.

/*
Package storage 定义面试数据的持久化端口及各后端共用的辅助函数。

后端实现：

  - sqlstore  — gorm（postgres / mysql / sqlite）
  - supastore — Supabase PostgREST
  - redisstore — 上下文缓存、会话快照镜像、HTTP chat 会话

每个后端同时实现 interview.ContextLoader、interview.ReportSink 与
HistoryReader，由 cmd/erflog 按 storage.backend 配置选择。
*/
package storage
