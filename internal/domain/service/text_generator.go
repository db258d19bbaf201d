// Package service 定义领域服务接口
package service

import "context"

// GenerateOptions 文本生成参数
type GenerateOptions struct {
	Temperature float32
	MaxTokens   int
}

// TextGenerator LLM 文本生成端口，由基础设施层实现
type TextGenerator interface {
	// Generate 以给定系统提示词与用户提示词生成文本
	Generate(ctx context.Context, system, prompt string, opts GenerateOptions) (string, error)
}

// TextStream 流式生成的增量读取器，读完返回 io.EOF
type TextStream interface {
	Recv() (string, error)
	Close()
}

// TextStreamer LLM 流式生成端口
type TextStreamer interface {
	GenerateStream(ctx context.Context, system, prompt string, opts GenerateOptions) (TextStream, error)
}
