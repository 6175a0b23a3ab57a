package store

import (
	"context"
	"strings"
)

// EmbeddingDim 向量维度，与嵌入模型输出保持一致。
const EmbeddingDim = 1536

// Chunk 表示一个已切分的学习资料片段。
type Chunk struct {
	// URL 片段唯一键（租户内唯一）。
	URL string
	// Text 片段文本。
	Text string
	// Embedding 嵌入向量，长度必须等于 EmbeddingDim。
	Embedding []float32
	// OriginalFileURL 原始文件地址。
	OriginalFileURL string
	// FileType 文件类型（video, text, image）。
	FileType string
	// FileName 文件名称。
	FileName string
}

// RetrievalResult 表示检索结果，按相似度降序排列。
type RetrievalResult struct {
	// ChunkURL 片段唯一键。
	ChunkURL string
	// ChunkText 片段文本。
	ChunkText string
	// OriginalFileURL 原始文件地址。
	OriginalFileURL string
	// FileType 文件类型。
	FileType string
	// FileName 文件名称。
	FileName string
	// Score 点积相似度分数。
	Score float32
}

// VectorStore 定义按租户隔离的向量存储接口。
type VectorStore interface {
	// EnsureTenant 幂等创建租户集合。
	EnsureTenant(ctx context.Context, tenant string) error

	// HasChunk 检查 (tenant, chunkURL) 是否已存在。
	HasChunk(ctx context.Context, tenant, chunkURL string) (bool, error)

	// InsertChunk 插入一个片段。
	InsertChunk(ctx context.Context, tenant string, chunk *Chunk) error

	// TopK 在租户集合内执行点积相似度检索，返回降序结果。
	// 租户集合不存在时返回 ErrQATenantNotFound。
	TopK(ctx context.Context, tenant string, embedding []float32, k int) ([]*RetrievalResult, error)

	// Stats 返回租户集合的行数。
	Stats(ctx context.Context, tenant string) (int64, error)

	// Close 关闭连接。
	Close(ctx context.Context) error
}

// SanitizeTenant 将用户标识规整为合法的集合名：
// 小写化，保留 [a-z0-9_]，其余字符丢弃，并加 u_ 前缀。
func SanitizeTenant(userName string) string {
	lowered := strings.ToLower(strings.TrimSpace(userName))
	var b strings.Builder
	b.WriteString("u_")
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
