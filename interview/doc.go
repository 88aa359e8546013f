// Copyright (c) Erflog Authors.
// Licensed under the MIT License.

/*
Package interview 实现实时语音面试的轮次控制引擎。

# 概述

一个 Engine 对应一个连接上的面试会话。它根据音频能量判断用户何时说完，
把整句交给转写服务，驱动对话策略推进阶段，合成回复语音，并通过冷却窗口
保证系统不会"听到"自己的声音。

# 核心组件

  - RMS / Detector   — 16-bit LE PCM 帧能量计算与语音/静音分类
  - UtteranceBuffer  — 当前轮次的音频累积，speaking 与 silenceSince 状态
  - Cooldown         — 系统发言后的静默窗口与播放时长等待计算
  - Phase            — idle / thinking / speaking / listening / ended 及合法转换表
  - Engine           — 每会话状态机，按顺序调用 ContextLoader、Transcriber、
    DialoguePolicy、Synthesizer、Evaluator
  - Registry         — 进程级会话表，逐条目加锁，可选 Mirror 同步快照

# 并发模型

Engine 只由一个 goroutine 驱动；Phase、Accepting、Snapshot 可被其他
goroutine 并发读取，供通道读取端在帧到达时直接丢弃非 listening 阶段的音频。
外部调用期间不持有任何 Registry 锁。
*/
package interview
