// Package tokenizer 统计对话历史的 token 数，用于把面试记录裁剪到模型上下文预算内。
package tokenizer
