package biz

import (
	"context"

	"github.com/kart-io/logger"

	"github.com/adityatadimeti/omnis/internal/qa/metrics"
	"github.com/adityatadimeti/omnis/internal/qa/store"
	"github.com/adityatadimeti/omnis/pkg/llm"
	"github.com/adityatadimeti/omnis/pkg/utils/errors"
)

// RegisterRequest 片段注册请求。
type RegisterRequest struct {
	// Tenant 租户（用户）标识。
	Tenant string
	// ChunkURL 片段唯一键。
	ChunkURL string
	// ChunkText 片段文本。
	ChunkText string
	// OriginalFileURL 原始文件地址。
	OriginalFileURL string
	// FileType 文件类型（video, text, image）。
	FileType string
	// FileName 文件名称。
	FileName string
}

// RegisterResult 片段注册结果。
type RegisterResult struct {
	// Created 本次调用是否新建了片段。
	Created bool `json:"created"`
	// AlreadyExists 片段是否已存在（幂等命中）。
	AlreadyExists bool `json:"already_exists"`
}

// Ingester 负责片段的幂等注册：同一 (tenant, chunk_url)
// 的嵌入至多计算一次。
type Ingester struct {
	store         store.VectorStore
	embedProvider llm.EmbeddingProvider
	metrics       *metrics.Metrics
}

// NewIngester 创建注册器实例。
func NewIngester(vectorStore store.VectorStore, embedProvider llm.EmbeddingProvider) *Ingester {
	return &Ingester{
		store:         vectorStore,
		embedProvider: embedProvider,
		metrics:       metrics.Get(),
	}
}

// RegisterChunk 注册一个片段。首次注册计算嵌入并持久化；
// 重复注册直接返回 AlreadyExists，不再调用嵌入模型。
//
// 存在性检查与插入之间存在窄竞态：同一新键并发注册时两次
// 嵌入都会执行，以最后写入为准。该竞态已知且接受，不加锁。
func (ing *Ingester) RegisterChunk(ctx context.Context, req *RegisterRequest) (*RegisterResult, error) {
	if err := ing.store.EnsureTenant(ctx, req.Tenant); err != nil {
		ing.metrics.RecordIngest(false, err)
		return nil, err
	}

	exists, err := ing.store.HasChunk(ctx, req.Tenant, req.ChunkURL)
	if err != nil {
		ing.metrics.RecordIngest(false, err)
		return nil, err
	}
	if exists {
		logger.Debugw("chunk already registered",
			"tenant", req.Tenant,
			"chunk_url", req.ChunkURL,
		)
		ing.metrics.RecordIngest(true, nil)
		return &RegisterResult{Created: false, AlreadyExists: true}, nil
	}

	embedding, err := ing.embedProvider.EmbedSingle(ctx, req.ChunkText)
	if err != nil {
		ing.metrics.RecordIngest(false, err)
		return nil, errors.ErrLLMEmbeddingFailed.WithCause(err)
	}

	chunk := &store.Chunk{
		URL:             req.ChunkURL,
		Text:            req.ChunkText,
		Embedding:       embedding,
		OriginalFileURL: req.OriginalFileURL,
		FileType:        req.FileType,
		FileName:        req.FileName,
	}
	if err := ing.store.InsertChunk(ctx, req.Tenant, chunk); err != nil {
		ing.metrics.RecordIngest(false, err)
		return nil, err
	}

	logger.Infow("chunk registered",
		"tenant", req.Tenant,
		"chunk_url", req.ChunkURL,
		"file_type", req.FileType,
	)
	ing.metrics.RecordIngest(false, nil)
	return &RegisterResult{Created: true, AlreadyExists: false}, nil
}
