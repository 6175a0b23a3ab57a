package biz

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kart-io/logger"

	"github.com/adityatadimeti/omnis/internal/pkg/textseg"
	"github.com/adityatadimeti/omnis/internal/qa/metrics"
	"github.com/adityatadimeti/omnis/pkg/infra/pool"
	"github.com/adityatadimeti/omnis/pkg/llm"
)

// defaultContextWords 定位上下文的词数上限。超长片段只保留
// 第一段作为上下文（截断式简化，不做摘要）。
const defaultContextWords = 16384

// LocalizerConfig 定位器配置。
type LocalizerConfig struct {
	// ContextWords 单次定位调用的上下文词数上限。
	ContextWords int
}

// LocalizeInput 单条定位输入。
type LocalizeInput struct {
	// Text 片段文本，视频来源为带时间戳的转写文本。
	Text string
	// FileType 来源类型（video, text, image）。
	FileType string
}

// Localization 单条定位输出。
type Localization struct {
	// Snippet 模型返回的原句，失败时为空字符串。
	Snippet string
	// Segments 视频来源解析出的时间戳分段，供归因使用。
	Segments []textseg.Segment
	// Failed 该条是否降级为空文本。
	Failed bool
}

// Localizer 负责从检索结果中定位答案原句。各条定位相互独立，
// 在工作池上并行执行，输出顺序始终与输入顺序一致。
type Localizer struct {
	chatProvider llm.ChatProvider
	pool         *pool.Pool
	config       *LocalizerConfig
	metrics      *metrics.Metrics
}

// NewLocalizer 创建定位器实例。workerPool 为 nil 时串行执行。
func NewLocalizer(chatProvider llm.ChatProvider, workerPool *pool.Pool, config *LocalizerConfig) *Localizer {
	if config == nil {
		config = &LocalizerConfig{}
	}
	if config.ContextWords <= 0 {
		config.ContextWords = defaultContextWords
	}
	return &Localizer{
		chatProvider: chatProvider,
		pool:         workerPool,
		config:       config,
		metrics:      metrics.Get(),
	}
}

// LocalizeAll 对每条输入执行答案定位。单条失败降级为空
// Snippet，不影响整批。
func (l *Localizer) LocalizeAll(ctx context.Context, question string, inputs []LocalizeInput) []Localization {
	out := make([]Localization, len(inputs))

	var wg sync.WaitGroup
	for i := range inputs {
		idx := i
		task := func() {
			defer wg.Done()
			out[idx] = l.localizeOne(ctx, question, inputs[idx])
		}

		wg.Add(1)
		if l.pool != nil {
			if err := l.pool.Submit(task); err == nil {
				continue
			}
			logger.Warnw("localize pool unavailable, running inline", "index", idx)
		}
		task()
	}
	wg.Wait()

	return out
}

func (l *Localizer) localizeOne(ctx context.Context, question string, input LocalizeInput) Localization {
	text := input.Text
	var segments []textseg.Segment

	if input.FileType == "video" {
		segments = textseg.ParseSegments(text)
		text = textseg.StripTimestamps(text)
	}

	pieces := textseg.ChunkWords(text, l.config.ContextWords)
	if len(pieces) == 0 {
		l.metrics.RecordLocalization(true)
		return Localization{Segments: segments, Failed: true}
	}

	// 超长片段只取第一段，尾部内容不参与定位
	prompt := question + "CONTEXT:\n " + pieces[0]

	start := time.Now()
	resp, err := l.chatProvider.Generate(ctx, prompt, identifySystemPrompt)
	if err != nil {
		l.metrics.RecordLLMCall(time.Since(start), 0, 0, err)
		l.metrics.RecordLocalization(true)
		logger.Warnw("answer localization failed, degrading to empty snippet",
			"error", err.Error(),
			"file_type", input.FileType,
		)
		return Localization{Segments: segments, Failed: true}
	}

	promptTokens, completionTokens := 0, 0
	if resp.TokenUsage != nil {
		promptTokens = resp.TokenUsage.PromptTokens
		completionTokens = resp.TokenUsage.CompletionTokens
	}
	l.metrics.RecordLLMCall(time.Since(start), promptTokens, completionTokens, nil)
	l.metrics.RecordLocalization(false)

	return Localization{
		Snippet:  normalizeSnippet(resp.Content),
		Segments: segments,
	}
}

// normalizeSnippet 去除模型输出中的换行与反引号。
func normalizeSnippet(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "`", "")
}
