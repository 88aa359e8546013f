// Copyright (c) Erflog Authors.
// Licensed under the MIT License.

// Package config 提供 Erflog 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 旧版裸环境变量 → ERFLOG_ 前缀环境变量
// 的顺序叠加。Watcher 轮询配置文件并在变更后重新加载，面试调优参数
// 只对之后创建的会话生效。
package config
