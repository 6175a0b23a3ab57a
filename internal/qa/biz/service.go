package biz

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/adityatadimeti/omnis/internal/pkg/align"
	"github.com/adityatadimeti/omnis/internal/pkg/textseg"
	"github.com/adityatadimeti/omnis/internal/qa/metrics"
	"github.com/adityatadimeti/omnis/internal/qa/store"
	"github.com/adityatadimeti/omnis/pkg/llm"
	"github.com/adityatadimeti/omnis/pkg/utils/errors"
)

// AttributionRecord 单条检索结果的归因记录。
type AttributionRecord struct {
	// Index 对应检索结果的序号（与输入顺序一致）。
	Index int `json:"index"`
	// Snippet 定位出的答案原句，失败时为空。
	Snippet string `json:"snippet"`
	// Timestamp 视频来源解析出的 MM:SS 时间戳，非视频为空。
	Timestamp string `json:"timestamp,omitempty"`
}

// Source 一条检索来源。
type Source struct {
	ChunkURL        string  `json:"chunk_url"`
	OriginalFileURL string  `json:"original_file_url"`
	FileType        string  `json:"file_type"`
	FileName        string  `json:"file_name"`
	Score           float32 `json:"score"`
}

// AskResult 完整问答流水线的结果。
type AskResult struct {
	// Answer 含参考资料区块的最终答案。
	Answer string `json:"answer"`
	// Attributions 每条检索结果的归因记录。
	Attributions []AttributionRecord `json:"attributions"`
	// Sources 检索来源，按相似度降序。
	Sources []Source `json:"sources"`
}

// TimestampResult 时间戳归因结果。
type TimestampResult struct {
	// Timestamp MM:SS 格式的起始时间。
	Timestamp string `json:"timestamp"`
	// StartSeconds 起始秒数。
	StartSeconds int `json:"start_seconds"`
	// Score 词集 Jaccard 相似度。
	Score float64 `json:"score"`
	// Segment 命中的转写分段文本。
	Segment string `json:"segment"`
}

// Service 定义问答服务接口。
type Service interface {
	// RegisterChunk 幂等注册一个片段。
	RegisterChunk(ctx context.Context, req *RegisterRequest) (*RegisterResult, error)
	// Search 在租户内执行 Top-K 相似度检索。
	Search(ctx context.Context, tenant, query string, k int) ([]*store.RetrievalResult, error)
	// Ask 执行完整的检索-归因-生成流水线。
	Ask(ctx context.Context, tenant, question string) (*AskResult, error)
	// Identify 对给定片段逐条定位答案原句。
	Identify(ctx context.Context, question string, inputs []LocalizeInput) []Localization
	// Generate 基于定位片段生成答案。
	Generate(ctx context.Context, question string, snippets []string) (string, error)
	// Postprocess 在生成内容后追加参考资料。
	Postprocess(content string, refs []Reference) string
	// VideoTimestamp 将句子归因到转写文本中的时间戳分段。
	VideoTimestamp(sentence, transcript string) (*TimestampResult, bool)
	// Stats 返回租户统计与业务指标。
	Stats(ctx context.Context, tenant string) (map[string]any, error)
}

// QAService 组合注册、检索、定位与生成组件实现完整问答服务。
type QAService struct {
	ingester      *Ingester
	retriever     *Retriever
	localizer     *Localizer
	generator     *Generator
	cache         *AnswerCache
	store         store.VectorStore
	embedProvider llm.EmbeddingProvider
	chatProvider  llm.ChatProvider
	metrics       *metrics.Metrics
}

// NewQAService 创建问答服务实例。cache 可以为 nil。
func NewQAService(
	ingester *Ingester,
	retriever *Retriever,
	localizer *Localizer,
	generator *Generator,
	cache *AnswerCache,
	vectorStore store.VectorStore,
	embedProvider llm.EmbeddingProvider,
	chatProvider llm.ChatProvider,
) *QAService {
	return &QAService{
		ingester:      ingester,
		retriever:     retriever,
		localizer:     localizer,
		generator:     generator,
		cache:         cache,
		store:         vectorStore,
		embedProvider: embedProvider,
		chatProvider:  chatProvider,
		metrics:       metrics.Get(),
	}
}

// RegisterChunk 幂等注册一个片段。
func (s *QAService) RegisterChunk(ctx context.Context, req *RegisterRequest) (*RegisterResult, error) {
	return s.ingester.RegisterChunk(ctx, req)
}

// Search 在租户内执行 Top-K 检索。租户不存在视为零结果。
func (s *QAService) Search(ctx context.Context, tenant, query string, k int) ([]*store.RetrievalResult, error) {
	results, err := s.retriever.Retrieve(ctx, tenant, query, k)
	if err != nil {
		if errors.IsCode(err, errors.ErrQATenantNotFound.Code) {
			logger.Infow("tenant has no data, returning empty results", "tenant", tenant)
			return []*store.RetrievalResult{}, nil
		}
		return nil, err
	}
	return results, nil
}

// Ask 执行完整流水线：检索 → 并行定位 → 生成 → 参考资料
// 后处理 → 视频来源的时间戳归因。单条定位/归因失败按条降级，
// 检索或生成失败使整个请求失败。
func (s *QAService) Ask(ctx context.Context, tenant, question string) (*AskResult, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, tenant, question); err == nil && cached != nil {
			s.metrics.RecordAsk(true, nil)
			return cached, nil
		}
	}

	results, err := s.Search(ctx, tenant, question, 0)
	if err != nil {
		s.metrics.RecordAsk(false, err)
		return nil, err
	}

	inputs := make([]LocalizeInput, len(results))
	for i, r := range results {
		inputs[i] = LocalizeInput{Text: r.ChunkText, FileType: r.FileType}
	}
	localizations := s.localizer.LocalizeAll(ctx, question, inputs)

	snippets := make([]string, len(localizations))
	for i, loc := range localizations {
		snippets[i] = loc.Snippet
	}

	resp, err := s.generator.GenerateAnswer(ctx, question, snippets)
	if err != nil {
		s.metrics.RecordAsk(false, err)
		return nil, err
	}

	attributions := make([]AttributionRecord, len(localizations))
	refs := make([]Reference, len(results))
	sources := make([]Source, len(results))
	for i, loc := range localizations {
		record := AttributionRecord{Index: i, Snippet: loc.Snippet}
		if results[i].FileType == "video" && loc.Snippet != "" {
			if match, found := align.BestMatch(loc.Snippet, loc.Segments); found {
				record.Timestamp = FormatTimestamp(match.StartSec)
			}
		}
		attributions[i] = record

		refs[i] = Reference{URL: results[i].OriginalFileURL, Name: results[i].FileName}
		sources[i] = Source{
			ChunkURL:        results[i].ChunkURL,
			OriginalFileURL: results[i].OriginalFileURL,
			FileType:        results[i].FileType,
			FileName:        results[i].FileName,
			Score:           results[i].Score,
		}
	}

	answer := AppendReferences(resp.Content, refs)

	result := &AskResult{
		Answer:       answer,
		Attributions: attributions,
		Sources:      sources,
	}

	if s.cache != nil {
		// 缓存写入失败不影响正常返回
		_ = s.cache.Set(ctx, tenant, question, result)
	}

	s.metrics.RecordAsk(false, nil)
	return result, nil
}

// Identify 对给定片段逐条定位答案原句。
func (s *QAService) Identify(ctx context.Context, question string, inputs []LocalizeInput) []Localization {
	return s.localizer.LocalizeAll(ctx, question, inputs)
}

// Generate 基于定位片段生成答案内容。
func (s *QAService) Generate(ctx context.Context, question string, snippets []string) (string, error) {
	resp, err := s.generator.GenerateAnswer(ctx, question, snippets)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Postprocess 在生成内容后追加参考资料区块。
func (s *QAService) Postprocess(content string, refs []Reference) string {
	return AppendReferences(content, refs)
}

// VideoTimestamp 解析转写文本并将句子归因到分段。
// 无任何词集重叠时返回 found=false。
func (s *QAService) VideoTimestamp(sentence, transcript string) (*TimestampResult, bool) {
	segments := textseg.ParseSegments(transcript)
	match, found := align.BestMatch(sentence, segments)
	if !found {
		return nil, false
	}

	return &TimestampResult{
		Timestamp:    FormatTimestamp(match.StartSec),
		StartSeconds: match.StartSec,
		Score:        match.Score,
		Segment:      match.Segment.Text,
	}, true
}

// Stats 返回租户统计与业务指标。
func (s *QAService) Stats(ctx context.Context, tenant string) (map[string]any, error) {
	stats := map[string]any{
		"embed_provider": s.embedProvider.Name(),
		"chat_provider":  s.chatProvider.Name(),
		"metrics":        s.metrics.Stats(),
	}

	if tenant != "" {
		count, err := s.store.Stats(ctx, tenant)
		if err != nil {
			if !errors.IsCode(err, errors.ErrQATenantNotFound.Code) {
				return nil, err
			}
			count = 0
		}
		stats["tenant"] = tenant
		stats["chunk_count"] = count
	}

	if s.cache != nil {
		if cacheStats, err := s.cache.GetStats(ctx); err == nil {
			stats["cache"] = cacheStats
		}
	}

	return stats, nil
}

// FormatTimestamp 将秒数格式化为 MM:SS，分钟可以超过 59。
func FormatTimestamp(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// 确保 QAService 实现了 Service 接口。
var _ Service = (*QAService)(nil)
