package biz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adityatadimeti/omnis/internal/qa/store"
	pkgerrors "github.com/adityatadimeti/omnis/pkg/utils/errors"
)

func TestRegisterChunkCreatesOnce(t *testing.T) {
	fs := newFakeStore()
	embed := &fakeEmbedProvider{dim: store.EmbeddingDim}
	ing := NewIngester(fs, embed)

	req := &RegisterRequest{
		Tenant:          "u_alice",
		ChunkURL:        "https://bucket/chunks/lec1-0.txt",
		ChunkText:       "Dynamic programming builds solutions bottom up.",
		OriginalFileURL: "https://bucket/files/lec1.pdf",
		FileType:        "text",
		FileName:        "lec1.pdf",
	}

	result, err := ing.RegisterChunk(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.False(t, result.AlreadyExists)
	assert.Equal(t, int64(1), embed.calls.Load())

	exists, err := fs.HasChunk(context.Background(), "u_alice", req.ChunkURL)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRegisterChunkIdempotent(t *testing.T) {
	fs := newFakeStore()
	embed := &fakeEmbedProvider{dim: store.EmbeddingDim}
	ing := NewIngester(fs, embed)

	req := &RegisterRequest{
		Tenant:    "u_alice",
		ChunkURL:  "https://bucket/chunks/lec1-0.txt",
		ChunkText: "some chunk text",
		FileType:  "text",
	}

	first, err := ing.RegisterChunk(context.Background(), req)
	require.NoError(t, err)
	require.True(t, first.Created)

	// 重复注册不应再次计算嵌入
	for i := 0; i < 3; i++ {
		result, err := ing.RegisterChunk(context.Background(), req)
		require.NoError(t, err)
		assert.False(t, result.Created)
		assert.True(t, result.AlreadyExists)
	}
	assert.Equal(t, int64(1), embed.calls.Load())
}

func TestRegisterChunkTenantIsolation(t *testing.T) {
	fs := newFakeStore()
	embed := &fakeEmbedProvider{dim: store.EmbeddingDim}
	ing := NewIngester(fs, embed)

	req := &RegisterRequest{
		Tenant:    "u_alice",
		ChunkURL:  "https://bucket/chunks/shared-0.txt",
		ChunkText: "shared chunk",
		FileType:  "text",
	}
	_, err := ing.RegisterChunk(context.Background(), req)
	require.NoError(t, err)

	// 同一 chunk_url 在不同租户下独立注册
	req2 := *req
	req2.Tenant = "u_bob"
	result, err := ing.RegisterChunk(context.Background(), &req2)
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, int64(2), embed.calls.Load())
}

func TestRegisterChunkEmbedFailure(t *testing.T) {
	fs := newFakeStore()
	embed := &fakeEmbedProvider{dim: store.EmbeddingDim, err: errors.New("embed api down")}
	ing := NewIngester(fs, embed)

	result, err := ing.RegisterChunk(context.Background(), &RegisterRequest{
		Tenant:    "u_alice",
		ChunkURL:  "https://bucket/chunks/lec1-0.txt",
		ChunkText: "text",
	})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrLLMEmbeddingFailed.Code))

	// 失败后不应留下残留条目，下次注册仍按新建处理
	exists, err := fs.HasChunk(context.Background(), "u_alice", "https://bucket/chunks/lec1-0.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRegisterChunkInsertFailure(t *testing.T) {
	fs := newFakeStore()
	fs.insertErr = pkgerrors.ErrQAStoreFailed.WithMessage("milvus unavailable")
	embed := &fakeEmbedProvider{dim: store.EmbeddingDim}
	ing := NewIngester(fs, embed)

	_, err := ing.RegisterChunk(context.Background(), &RegisterRequest{
		Tenant:    "u_alice",
		ChunkURL:  "https://bucket/chunks/lec1-0.txt",
		ChunkText: "text",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrQAStoreFailed.Code))
}
