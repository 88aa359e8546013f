// Copyright (c) Erflog Authors.
// Licensed under the MIT License.

/*
Package llm 定义面试官对话策略与评估所用的聊天模型抽象。

# 核心接口

  - Provider          — 同步聊天补全，Gemini 与 OpenAI 兼容实现见 providers 子包
  - ResilientProvider — 重试 + 熔断装饰器
  - ObservedProvider  — 记录时延、token 用量与 trace span

# 子包

  - providers/gemini, providers/openaicompat — HTTP 实现
  - factory       — 根据 config.LLMConfig 组装 Provider 链
  - speech        — 语音转写与合成的 HTTP 实现
  - retry, circuitbreaker, tokenizer — 通用弹性与计数工具
*/
package llm
