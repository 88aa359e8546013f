// Copyright (c) Erflog Authors.
// Licensed under the MIT License.

/*
Package testutil 提供 Erflog 测试共享的辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout，自动注册 Cleanup
  - 断言工具: AssertMessageRoles 校验发送给模型的消息角色序列
  - 数据工具: MustJSON

# 子包

  - testutil/mocks: MockProvider（llm.Provider），按脚本依次返回回复，
    支持错误注入与请求记录
  - testutil/fixtures: 面试上下文样例（岗位、候选人）与对话历史构造

# 使用示例

	ctx := testutil.TestContext(t)
	provider := mocks.NewMockProvider().WithReplies("Tell me about Go.")
	res, err := policy.Next(ctx, interview.PolicyRequest{Profile: fixtures.BackendProfile()})
*/
package testutil
