// Copyright (c) Erflog Authors.
// Licensed under the MIT License.

/*
Package policy 提供基于 LLM 的对话策略与面试评估。

# 阶段计划

每种面试类型对应一个阶段计划，每个阶段有提问预算：

	TECHNICAL: intro → experience → technical → problem_solving → closing → end
	HR:        intro → background → behavioral → culture → closing → end

策略把当前位置（阶段下标、本阶段已提问数、总轮次）编码为 base64 JSON
续接令牌，由引擎原样保存并在下一轮带回；引擎从不解析令牌内容。

# 组件

  - LLMPolicy  — interview.DialoguePolicy 实现，按阶段目标生成下一句
  - Evaluator  — interview.Evaluator 实现，以 JSON 模式生成评分报告
  - ParseReport — 解析模型输出的报告文本，容忍代码块包裹
*/
package policy
