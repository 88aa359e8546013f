// Copyright (c) Erflog Authors.
// Licensed under the MIT License.

/*
包 cache 封装 go-redis 客户端，为 Erflog 的 Redis 存储提供统一的读写入口。

# 核心类型

  - Manager：持有 redis.UniversalClient，统一键前缀、默认 TTL 与关闭语义，
    提供 Get/Set/GetJSON/SetJSON/Delete/Expire。
  - HitRecorder：命中统计回调，由 metrics.Collector 实现。

# 使用场景

  - 面试上下文缓存：按 user_id 与 job_id 缓存岗位与候选人资料。
  - 会话镜像：活跃会话快照写入 Redis，供运维查询。
  - HTTP chat 会话：无状态 chat 接口的会话快照存储。

ErrCacheMiss 表示键不存在，可用 IsCacheMiss 判断。
*/
package cache
