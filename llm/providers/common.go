package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Adhikkesh/Erflog/types"
)

// maxErrorBody 限制读取错误响应体的字节数
const maxErrorBody = 64 << 10

// MapHTTPError 将 HTTP 状态码映射为带重试标记的 types.Error
func MapHTTPError(status int, msg string, provider string) *types.Error {
	var e *types.Error
	switch status {
	case http.StatusUnauthorized:
		e = types.NewError(types.ErrUnauthorized, msg)
	case http.StatusForbidden:
		e = types.NewError(types.ErrForbidden, msg)
	case http.StatusNotFound:
		e = types.NewError(types.ErrNotFound, msg)
	case http.StatusTooManyRequests:
		e = types.NewError(types.ErrRateLimited, msg).WithRetryable(true)
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge:
		e = types.NewError(types.ErrInvalidRequest, msg)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		e = types.NewError(types.ErrUpstreamTimeout, msg).WithRetryable(true)
	case http.StatusServiceUnavailable, http.StatusBadGateway, 529:
		e = types.NewError(types.ErrUpstreamError, msg).WithRetryable(true)
	default:
		e = types.NewError(types.ErrUpstreamError, msg).WithRetryable(status >= 500)
	}
	return e.WithHTTPStatus(status).WithProvider(provider)
}

// ReadErrorMessage 读取错误响应体，优先解析 {"error":{"message"}} 与
// {"err_msg"}/{"detail"} 形式，失败时回退为原始文本。
func ReadErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil {
		return "failed to read error response"
	}

	var errResp struct {
		Error json.RawMessage `json:"error"`
		Msg   string          `json:"err_msg"`
		Det   json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &errResp); err == nil {
		var nested struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Status  string `json:"status"`
		}
		if len(errResp.Error) > 0 && json.Unmarshal(errResp.Error, &nested) == nil && nested.Message != "" {
			if nested.Type != "" {
				return fmt.Sprintf("%s (type: %s)", nested.Message, nested.Type)
			}
			return nested.Message
		}
		var plain string
		if len(errResp.Error) > 0 && json.Unmarshal(errResp.Error, &plain) == nil && plain != "" {
			return plain
		}
		if errResp.Msg != "" {
			return errResp.Msg
		}
		if len(errResp.Det) > 0 {
			if json.Unmarshal(errResp.Det, &plain) == nil && plain != "" {
				return plain
			}
			if json.Unmarshal(errResp.Det, &nested) == nil && nested.Message != "" {
				return nested.Message
			}
		}
	}
	return strings.TrimSpace(string(data))
}

// TransportError 包装请求发送阶段的错误。context 错误原样返回。
func TransportError(err error, provider string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return types.NewError(types.ErrUpstreamError, "request failed").
		WithCause(err).
		WithHTTPStatus(http.StatusBadGateway).
		WithRetryable(true).
		WithProvider(provider)
}

// DecodeError 包装响应解析错误
func DecodeError(err error, provider string) error {
	return types.NewError(types.ErrUpstreamError, "invalid response body").
		WithCause(err).
		WithHTTPStatus(http.StatusBadGateway).
		WithProvider(provider)
}

// CheckResponse 在状态码 >= 400 时读取错误体并返回映射后的错误
func CheckResponse(resp *http.Response, provider string) error {
	if resp.StatusCode < 400 {
		return nil
	}
	return MapHTTPError(resp.StatusCode, ReadErrorMessage(resp.Body), provider)
}

// SafeCloseBody 关闭响应体并丢弃剩余数据，便于连接复用
func SafeCloseBody(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxErrorBody))
	_ = body.Close()
}

// BearerTokenHeaders 设置标准 Bearer 认证头
func BearerTokenHeaders(r *http.Request, apiKey string) {
	r.Header.Set("Authorization", "Bearer "+apiKey)
	r.Header.Set("Content-Type", "application/json")
}

// ChooseModel 依次使用请求模型、默认模型、兜底模型
func ChooseModel(requested, defaultModel, fallbackModel string) string {
	if requested != "" {
		return requested
	}
	if defaultModel != "" {
		return defaultModel
	}
	return fallbackModel
}
