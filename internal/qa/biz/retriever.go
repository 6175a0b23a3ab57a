package biz

import (
	"context"
	"time"

	"github.com/kart-io/logger"

	"github.com/adityatadimeti/omnis/internal/qa/metrics"
	"github.com/adityatadimeti/omnis/internal/qa/store"
	"github.com/adityatadimeti/omnis/pkg/llm"
	"github.com/adityatadimeti/omnis/pkg/utils/errors"
)

// RetrieverConfig 检索器配置。
type RetrieverConfig struct {
	// TopK 返回的结果数量。
	TopK int
}

// Retriever 负责问题嵌入与租户内 Top-K 检索。
type Retriever struct {
	store         store.VectorStore
	embedProvider llm.EmbeddingProvider
	config        *RetrieverConfig
	metrics       *metrics.Metrics
}

// NewRetriever 创建检索器实例。
func NewRetriever(vectorStore store.VectorStore, embedProvider llm.EmbeddingProvider, config *RetrieverConfig) *Retriever {
	if config == nil {
		config = &RetrieverConfig{TopK: 3}
	}
	return &Retriever{
		store:         vectorStore,
		embedProvider: embedProvider,
		config:        config,
		metrics:       metrics.Get(),
	}
}

// Retrieve 嵌入查询并返回租户内按点积降序的 k 条结果。
// k <= 0 时使用配置的 TopK。
func (r *Retriever) Retrieve(ctx context.Context, tenant, query string, k int) ([]*store.RetrievalResult, error) {
	if k <= 0 {
		k = r.config.TopK
	}

	embedding, err := r.embedProvider.EmbedSingle(ctx, query)
	if err != nil {
		return nil, errors.ErrLLMEmbeddingFailed.WithCause(err)
	}

	start := time.Now()
	results, err := r.store.TopK(ctx, tenant, embedding, k)
	r.metrics.RecordRetrieval(time.Since(start), err)
	if err != nil {
		return nil, err
	}

	logger.Infow("retrieval done",
		"tenant", tenant,
		"k", k,
		"results", len(results),
	)
	return results, nil
}
