package biz

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/adityatadimeti/omnis/internal/qa/store"
	"github.com/adityatadimeti/omnis/pkg/llm"
)

// fakeStore 内存版 VectorStore，按 (tenant, chunk_url) 存储。
type fakeStore struct {
	mu      sync.Mutex
	tenants map[string]map[string]*store.Chunk

	topKResults []*store.RetrievalResult
	topKErr     error
	insertErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{tenants: make(map[string]map[string]*store.Chunk)}
}

func (f *fakeStore) EnsureTenant(_ context.Context, tenant string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tenants[tenant]; !ok {
		f.tenants[tenant] = make(map[string]*store.Chunk)
	}
	return nil
}

func (f *fakeStore) HasChunk(_ context.Context, tenant, chunkURL string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	chunks, ok := f.tenants[tenant]
	if !ok {
		return false, nil
	}
	_, exists := chunks[chunkURL]
	return exists, nil
}

func (f *fakeStore) InsertChunk(_ context.Context, tenant string, chunk *store.Chunk) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tenants[tenant][chunk.URL] = chunk
	return nil
}

func (f *fakeStore) TopK(_ context.Context, tenant string, _ []float32, k int) ([]*store.RetrievalResult, error) {
	if f.topKErr != nil {
		return nil, f.topKErr
	}
	if len(f.topKResults) > k {
		return f.topKResults[:k], nil
	}
	return f.topKResults, nil
}

func (f *fakeStore) Stats(_ context.Context, tenant string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.tenants[tenant])), nil
}

func (f *fakeStore) Close(_ context.Context) error { return nil }

var _ store.VectorStore = (*fakeStore)(nil)

// fakeEmbedProvider 返回固定维度的零向量并统计调用次数。
type fakeEmbedProvider struct {
	dim   int
	calls atomic.Int64
	err   error
}

func (f *fakeEmbedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := f.EmbedSingle(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeEmbedProvider) EmbedSingle(_ context.Context, _ string) ([]float32, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return make([]float32, f.dim), nil
}

func (f *fakeEmbedProvider) Name() string { return "fake-embed" }

var _ llm.EmbeddingProvider = (*fakeEmbedProvider)(nil)

// fakeChatProvider 按调用顺序返回预置回复，耗尽后返回默认值。
type fakeChatProvider struct {
	mu        sync.Mutex
	responses []string
	prompts   []string
	err       error
	// onGenerate 非 nil 时在每次调用前执行，用于注入延迟。
	onGenerate func(prompt string)
	// respond 非 nil 时按提示词内容决定回复，优先于 responses。
	respond func(prompt string) (string, error)
}

func (f *fakeChatProvider) Chat(_ context.Context, _ []llm.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "chat reply", nil
}

func (f *fakeChatProvider) Generate(_ context.Context, prompt, _ string) (*llm.GenerateResponse, error) {
	if f.onGenerate != nil {
		f.onGenerate(prompt)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}

	if f.respond != nil {
		content, err := f.respond(prompt)
		if err != nil {
			return nil, err
		}
		return &llm.GenerateResponse{Content: content}, nil
	}

	content := fmt.Sprintf("reply-%d", len(f.prompts))
	if len(f.responses) > 0 {
		content = f.responses[0]
		f.responses = f.responses[1:]
	}
	return &llm.GenerateResponse{
		Content: content,
		TokenUsage: &llm.TokenUsage{
			PromptTokens:     10,
			CompletionTokens: 5,
			TotalTokens:      15,
		},
	}, nil
}

func (f *fakeChatProvider) Name() string { return "fake-chat" }

func (f *fakeChatProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeChatProvider) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

var _ llm.ChatProvider = (*fakeChatProvider)(nil)
