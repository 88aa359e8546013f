// Copyright (c) Erflog Authors.
// Licensed under the MIT License.

/*
Package retry 提供带指数退避的重试器，用于包装转写、合成与 LLM 调用。

是否重试由 Policy.ShouldRetry 决定，默认只重试 types.Error 中标记为
Retryable 的错误以及网络超时；context 取消立即返回。
*/
package retry
