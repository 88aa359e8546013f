// =============================================================================
// 🧪 测试辅助函数
// =============================================================================
package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Adhikkesh/Erflog/llm"
)

// TestContext 返回带超时的测试上下文
func TestContext(t *testing.T) context.Context {
	t.Helper()
	return TestContextWithTimeout(t, 30*time.Second)
}

// TestContextWithTimeout 返回指定超时的测试上下文，测试结束时取消
func TestContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// AssertMessageRoles 断言消息的角色序列
func AssertMessageRoles(t *testing.T, msgs []llm.Message, roles ...llm.Role) {
	t.Helper()
	if len(msgs) != len(roles) {
		t.Errorf("message count mismatch: expected %d, got %d", len(roles), len(msgs))
		return
	}
	for i := range roles {
		if msgs[i].Role != roles[i] {
			t.Errorf("message[%d] role mismatch: expected %q, got %q", i, roles[i], msgs[i].Role)
		}
	}
}

// MustJSON 序列化 v，失败时终止测试
func MustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	return string(b)
}
