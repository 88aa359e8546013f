// Package openaicompat 实现 OpenAI Chat Completions 兼容协议的 Provider，
// 适用于 OpenAI 以及同协议的托管服务。
package openaicompat
