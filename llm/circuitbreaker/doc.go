// Copyright (c) Erflog Authors.
// Licensed under the MIT License.

// Package circuitbreaker 为语音与 LLM 上游提供熔断保护：连续失败达到阈值后
// 快速失败，ResetTimeout 之后进入半开状态试探恢复。
package circuitbreaker
