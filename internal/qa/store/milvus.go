package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/adityatadimeti/omnis/pkg/component/milvus"
	"github.com/adityatadimeti/omnis/pkg/utils/errors"
)

// MilvusStore 实现基于 Milvus 的按租户向量存储。
type MilvusStore struct {
	client *milvus.Client
}

// NewMilvusStore 创建 Milvus 存储实例。
func NewMilvusStore(client *milvus.Client) *MilvusStore {
	return &MilvusStore{client: client}
}

var chunkOutputFields = []string{
	"chunk_url", "chunk_text", "original_file_url", "file_type", "file_name",
}

// EnsureTenant 幂等创建租户集合（含索引）。
func (s *MilvusStore) EnsureTenant(ctx context.Context, tenant string) error {
	name := SanitizeTenant(tenant)

	exists, err := s.client.HasCollection(ctx, name)
	if err != nil {
		return errors.ErrQAStoreFailed.WithCause(err)
	}
	if exists {
		return nil
	}

	schema := &milvus.CollectionSchema{
		Name:        name,
		Description: fmt.Sprintf("course material chunks for tenant %s", tenant),
		Dimension:   EmbeddingDim,
		MetaFields: []milvus.MetaField{
			{Name: "chunk_url", DataType: entity.FieldTypeVarChar, MaxLen: 1000},
			{Name: "chunk_text", DataType: entity.FieldTypeVarChar, MaxLen: 10000},
			{Name: "original_file_url", DataType: entity.FieldTypeVarChar, MaxLen: 1000},
			{Name: "file_type", DataType: entity.FieldTypeVarChar, MaxLen: 32},
			{Name: "file_name", DataType: entity.FieldTypeVarChar, MaxLen: 255},
		},
	}
	if err := s.client.CreateCollection(ctx, schema); err != nil {
		return errors.ErrQAStoreFailed.WithCause(err)
	}
	return nil
}

// HasChunk 通过 chunk_url 精确匹配检查片段是否已注册。
func (s *MilvusStore) HasChunk(ctx context.Context, tenant, chunkURL string) (bool, error) {
	name := SanitizeTenant(tenant)

	exists, err := s.client.HasCollection(ctx, name)
	if err != nil {
		return false, errors.ErrQAStoreFailed.WithCause(err)
	}
	if !exists {
		return false, nil
	}

	expr := fmt.Sprintf(`chunk_url == "%s"`, escapeExpr(chunkURL))
	rows, err := s.client.Query(ctx, name, expr, []string{"chunk_url"}, 1)
	if err != nil {
		return false, errors.ErrQAStoreFailed.WithCause(err)
	}
	return len(rows) > 0, nil
}

// InsertChunk 插入单个片段，向量维度不匹配视为致命错误。
func (s *MilvusStore) InsertChunk(ctx context.Context, tenant string, chunk *Chunk) error {
	if len(chunk.Embedding) != EmbeddingDim {
		return errors.ErrQADimensionMismatch.WithMessagef(
			"embedding dimension %d, want %d", len(chunk.Embedding), EmbeddingDim)
	}

	name := SanitizeTenant(tenant)
	data := &milvus.InsertData{
		Embeddings: [][]float32{chunk.Embedding},
		Metadata: map[string][]any{
			"chunk_url":         {chunk.URL},
			"chunk_text":        {chunk.Text},
			"original_file_url": {chunk.OriginalFileURL},
			"file_type":         {chunk.FileType},
			"file_name":         {chunk.FileName},
		},
	}

	if _, err := s.client.Insert(ctx, name, data); err != nil {
		return errors.ErrQAStoreFailed.WithCause(err)
	}
	return nil
}

// TopK 执行点积相似度检索，结果按分数降序。
func (s *MilvusStore) TopK(ctx context.Context, tenant string, embedding []float32, k int) ([]*RetrievalResult, error) {
	name := SanitizeTenant(tenant)

	exists, err := s.client.HasCollection(ctx, name)
	if err != nil {
		return nil, errors.ErrQAStoreFailed.WithCause(err)
	}
	if !exists {
		return nil, errors.ErrQATenantNotFound.WithMessagef("tenant %s has no data", tenant)
	}

	results, err := s.client.Search(ctx, name, embedding, k, chunkOutputFields)
	if err != nil {
		return nil, errors.ErrQARetrievalFailed.WithCause(err)
	}

	retrieved := make([]*RetrievalResult, len(results))
	for i, r := range results {
		retrieved[i] = &RetrievalResult{
			ChunkURL:        metaString(r.Metadata, "chunk_url"),
			ChunkText:       metaString(r.Metadata, "chunk_text"),
			OriginalFileURL: metaString(r.Metadata, "original_file_url"),
			FileType:        metaString(r.Metadata, "file_type"),
			FileName:        metaString(r.Metadata, "file_name"),
			Score:           r.Score,
		}
	}
	return retrieved, nil
}

// Stats 返回租户集合的行数。
func (s *MilvusStore) Stats(ctx context.Context, tenant string) (int64, error) {
	name := SanitizeTenant(tenant)

	exists, err := s.client.HasCollection(ctx, name)
	if err != nil {
		return 0, errors.ErrQAStoreFailed.WithCause(err)
	}
	if !exists {
		return 0, errors.ErrQATenantNotFound.WithMessagef("tenant %s has no data", tenant)
	}

	return s.client.GetCollectionStats(ctx, name)
}

// Close 关闭 Milvus 连接。
func (s *MilvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

func metaString(meta map[string]any, key string) string {
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}

// escapeExpr 转义过滤表达式中的引号与反斜杠。
func escapeExpr(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// 确保 MilvusStore 实现了 VectorStore 接口。
var _ VectorStore = (*MilvusStore)(nil)
