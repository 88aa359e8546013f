// Copyright (c) Erflog Authors.
// Licensed under the MIT License.

// Package database 打开 GORM 连接（postgres、mysql、sqlite）并管理连接池。
//
// PoolManager 负责连接池参数、周期性健康检查、连接数上报与带重试的事务。
// 面试报告与候选人资料的 SQL 存储（storage/sqlstore）建立在它之上。
package database
