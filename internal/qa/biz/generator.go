package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/adityatadimeti/omnis/internal/qa/metrics"
	"github.com/adityatadimeti/omnis/pkg/llm"
	"github.com/adityatadimeti/omnis/pkg/utils/errors"
)

// noContextAnswer 没有任何可用上下文时的兜底回答。
const noContextAnswer = "I couldn't find any relevant course material for your question."

// Reference 一条参考资料（原始文件，不是片段）。
type Reference struct {
	// URL 原始文件地址。
	URL string `json:"url"`
	// Name 文件名称。
	Name string `json:"name"`
}

// Generator 负责基于定位结果生成最终答案。
type Generator struct {
	chatProvider llm.ChatProvider
	metrics      *metrics.Metrics
}

// NewGenerator 创建生成器实例。
func NewGenerator(chatProvider llm.ChatProvider) *Generator {
	return &Generator{
		chatProvider: chatProvider,
		metrics:      metrics.Get(),
	}
}

// GenerateAnswer 将所有定位片段拼入 CONTEXT 后生成一个答案。
// 空片段保留占位换行，整体输入为空时返回兜底回答。
func (g *Generator) GenerateAnswer(ctx context.Context, question string, snippets []string) (*llm.GenerateResponse, error) {
	if ctx.Err() != nil {
		return nil, errors.ErrQAQueryTimeout.WithCause(ctx.Err())
	}

	nonEmpty := 0
	var contextBuilder strings.Builder
	contextBuilder.WriteString("CONTEXT:\n")
	for _, snippet := range snippets {
		if strings.TrimSpace(snippet) != "" {
			nonEmpty++
		}
		contextBuilder.WriteString(snippet)
		contextBuilder.WriteString("\n")
	}

	if nonEmpty == 0 {
		return &llm.GenerateResponse{Content: noContextAnswer}, nil
	}

	prompt := question + contextBuilder.String()

	start := time.Now()
	resp, err := g.chatProvider.Generate(ctx, prompt, generateSystemPrompt)
	if err != nil {
		g.metrics.RecordLLMCall(time.Since(start), 0, 0, err)
		logger.Errorw("answer generation failed", "error", err.Error())
		return nil, errors.ErrLLMGenerationFailed.WithCause(err)
	}

	promptTokens, completionTokens := 0, 0
	if resp.TokenUsage != nil {
		promptTokens = resp.TokenUsage.PromptTokens
		completionTokens = resp.TokenUsage.CompletionTokens
	}
	g.metrics.RecordLLMCall(time.Since(start), promptTokens, completionTokens, nil)

	logger.Infow("answer generated",
		"length", len(resp.Content),
		"context_snippets", nonEmpty,
	)
	return resp, nil
}

// AppendReferences 在生成内容后追加参考资料区块，每条为
// 指向原始文件的 HTML 超链接。
func AppendReferences(content string, refs []Reference) string {
	var b strings.Builder
	b.WriteString(content)
	b.WriteString("Reference Material\n")
	for _, ref := range refs {
		b.WriteString(fmt.Sprintf("<a href=%s>%s</a> \n", ref.URL, ref.Name))
	}
	return b.String()
}
