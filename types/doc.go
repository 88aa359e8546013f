// Copyright (c) Erflog Authors.
// Licensed under the MIT License.

/*
Package types 提供 Erflog 的全局共享类型定义。

types 是最底层的公共包，不依赖任何内部包，为 interview、api、storage
等上层模块提供统一的错误契约。

# 核心类型

  - Error / ErrorCode — 结构化错误，含 HTTP 状态码、Retryable、Provider 标记
  - HTTPStatusFor     — 错误码到默认 HTTP 状态的映射

# 错误工具链

AsError / GetErrorCode / IsErrorCode / IsRetryable 都沿 errors.As 解包，
被 fmt.Errorf("%w") 包裹的 *Error 仍可识别。
*/
package types
