package handler

import (
	"fmt"
	"strings"

	"ilka-rag-api/internal/config"
	"ilka-rag-api/internal/domain/service"
)

const (
	modelOnlyTemperature = 0.7
	modelOnlyMaxTokens   = 2000
)

// modelOnlySystemPrompt 直连模型模式的系统提示词，固定两段式输出
const modelOnlySystemPrompt = `You are a helpful assistant. Always structure your response in two clear sections:

THINKING:
[Write your step-by-step reasoning and analysis here. Show your thought process.]

ANSWER:
[Write your final, concise answer here.]

Always use exactly these section headers: "THINKING:" and "ANSWER:"`

// resolveProvider 校验请求指定的 LLM Provider
func resolveProvider(cfg *config.Config, provider string) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("server config not configured")
	}

	p := strings.TrimSpace(provider)
	if p == "" {
		p = strings.TrimSpace(cfg.LLM.DefaultProvider)
	}
	if p == "" {
		return "", fmt.Errorf("llm provider not specified")
	}
	if len(p) > 32 {
		return "", fmt.Errorf("llm provider too long")
	}

	if _, ok := cfg.LLM.Providers[p]; !ok {
		return "", fmt.Errorf("llm provider not found: %s", p)
	}
	return p, nil
}

// modelOnlyOptions 组装直连模型的生成参数，请求可覆盖默认值
func modelOnlyOptions(temperature *float32, maxTokens *int) service.GenerateOptions {
	opts := service.GenerateOptions{
		Temperature: modelOnlyTemperature,
		MaxTokens:   modelOnlyMaxTokens,
	}
	if temperature != nil {
		opts.Temperature = *temperature
	}
	if maxTokens != nil && *maxTokens > 0 {
		opts.MaxTokens = *maxTokens
	}
	return opts
}
