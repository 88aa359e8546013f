// Copyright (c) Erflog Authors.
// Licensed under the MIT License.

// Package migration 基于 golang-migrate 管理 Erflog 的数据库结构。
//
// 迁移 SQL 按数据库类型（postgres、mysql、sqlite）内嵌在二进制中，
// 建立 jobs、profiles 与 interviews 三张表。CLI 为 `erflog migrate`
// 子命令渲染输出。
package migration
