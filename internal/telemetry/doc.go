// Copyright (c) Erflog Authors.
// Licensed under the MIT License.

// Package telemetry 封装 OpenTelemetry SDK 初始化，为 Erflog 提供
// TracerProvider 与 MeterProvider。面试引擎对每次转写、对话策略、
// 合成与评估调用创建 span。遥测关闭时使用 noop 实现，不连接外部服务。
package telemetry
