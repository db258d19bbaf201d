// Package llm 提供基于 Eino 的 LLM 访问层实现
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"ilka-rag-api/internal/domain/service"
	"ilka-rag-api/pkg/metrics"
	"ilka-rag-api/pkg/utils"
)

// Generator 文本生成器，绑定单个提供商
type Generator struct {
	factory  *EinoFactory
	provider string
}

// NewGenerator 创建文本生成器，provider 为空时使用默认提供商
func NewGenerator(factory *EinoFactory, provider string) *Generator {
	return &Generator{
		factory:  factory,
		provider: provider,
	}
}

var (
	_ service.TextGenerator = (*Generator)(nil)
	_ service.TextStreamer  = (*Generator)(nil)
)

// Generate 以系统提示词与用户提示词生成文本
func (g *Generator) Generate(ctx context.Context, system, prompt string, opts service.GenerateOptions) (string, error) {
	chatModel, err := g.factory.Get(ctx, g.provider)
	if err != nil {
		return "", err
	}

	provider := g.factory.ResolveProvider(g.provider)
	modelName := g.factory.ProviderModel(g.provider)

	start := time.Now()
	resp, err := chatModel.Generate(ctx, buildMessages(system, prompt), buildOptions(opts)...)
	metrics.LLMCallDuration.WithLabelValues(provider, modelName).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMCallTotal.WithLabelValues(provider, modelName, "error").Inc()
		return "", fmt.Errorf("llm generate failed: %w", err)
	}
	metrics.LLMCallTotal.WithLabelValues(provider, modelName, "success").Inc()

	recordTokenUsage(provider, modelName, resp)
	return resp.Content, nil
}

// GenerateJSON 生成并解析 JSON 输出到 v，输出中不含 JSON 对象时报错
func (g *Generator) GenerateJSON(ctx context.Context, system, prompt string, opts service.GenerateOptions, v any) error {
	text, err := g.Generate(ctx, system, prompt, opts)
	if err != nil {
		return err
	}

	raw := utils.ExtractJSONObject(text)
	if raw == "" {
		return fmt.Errorf("llm output contains no JSON object")
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("parse llm JSON output: %w", err)
	}
	return nil
}

// GenerateStream 流式生成，返回增量文本读取器
func (g *Generator) GenerateStream(ctx context.Context, system, prompt string, opts service.GenerateOptions) (service.TextStream, error) {
	chatModel, err := g.factory.Get(ctx, g.provider)
	if err != nil {
		return nil, err
	}

	provider := g.factory.ResolveProvider(g.provider)
	modelName := g.factory.ProviderModel(g.provider)

	reader, err := chatModel.Stream(ctx, buildMessages(system, prompt), buildOptions(opts)...)
	if err != nil {
		metrics.LLMCallTotal.WithLabelValues(provider, modelName, "error").Inc()
		return nil, fmt.Errorf("llm stream failed: %w", err)
	}
	metrics.LLMCallTotal.WithLabelValues(provider, modelName, "success").Inc()

	return &einoStream{
		reader:   reader,
		provider: provider,
		model:    modelName,
	}, nil
}

// einoStream 把 Eino 的流读取器适配为领域层的 TextStream
type einoStream struct {
	reader   *schema.StreamReader[*schema.Message]
	provider string
	model    string
}

// Recv 读取下一段增量文本，流结束时返回 io.EOF
func (s *einoStream) Recv() (string, error) {
	msg, err := s.reader.Recv()
	if err != nil {
		return "", err
	}
	recordTokenUsage(s.provider, s.model, msg)
	return msg.Content, nil
}

// Close 关闭底层流
func (s *einoStream) Close() {
	s.reader.Close()
}

func buildMessages(system, prompt string) []*schema.Message {
	messages := make([]*schema.Message, 0, 2)
	if system != "" {
		messages = append(messages, schema.SystemMessage(system))
	}
	messages = append(messages, schema.UserMessage(prompt))
	return messages
}

func buildOptions(opts service.GenerateOptions) []model.Option {
	var out []model.Option
	if opts.Temperature > 0 {
		out = append(out, model.WithTemperature(opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		out = append(out, model.WithMaxTokens(opts.MaxTokens))
	}
	return out
}

func recordTokenUsage(provider, modelName string, msg *schema.Message) {
	if msg == nil || msg.ResponseMeta == nil || msg.ResponseMeta.Usage == nil {
		return
	}
	usage := msg.ResponseMeta.Usage
	metrics.LLMTokensUsed.WithLabelValues(provider, modelName, "prompt").Add(float64(usage.PromptTokens))
	metrics.LLMTokensUsed.WithLabelValues(provider, modelName, "completion").Add(float64(usage.CompletionTokens))
}
