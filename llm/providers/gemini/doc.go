// Package gemini 实现 Google Gemini generateContent 接口的 Provider。
package gemini
