// Copyright (c) Erflog Authors.
// Licensed under the MIT License.

/*
Package ws 提供面试引擎的 WebSocket 通道适配器。

# 端点

  - GET /ws/interview/{job_id}       — 语音：二进制帧为 16 kHz 16-bit 单声道 PCM
  - GET /ws/interview/text/{job_id}  — 文本：文本帧为 {"message": "..."}

# 连接生命周期

 1. 握手：首条文本消息 {"interview_type", "user_id"}，须在 HandshakeTimeout 内到达，
    超时发送 error "Auth timeout" 并关闭，不创建会话
 2. 解析面试类型、用户与岗位编号，创建 interview.Engine 并 Start
 3. 读协程把入站帧放入有界队列（引擎不接收时到达即丢弃），引擎协程逐个处理；
    两者运行在同一个 errgroup 下，任一退出都会取消另一个
 4. 断开时取消进行中的外部调用，注销会话并丢弃缓冲音频

所有写操作经过连接上的互斥锁串行化。
*/
package ws
