package biz

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adityatadimeti/omnis/internal/qa/store"
	pkgerrors "github.com/adityatadimeti/omnis/pkg/utils/errors"
)

func newTestService(fs *fakeStore, chat *fakeChatProvider) *QAService {
	embed := &fakeEmbedProvider{dim: store.EmbeddingDim}
	return NewQAService(
		NewIngester(fs, embed),
		NewRetriever(fs, embed, nil),
		NewLocalizer(chat, nil, nil),
		NewGenerator(chat),
		nil, // 不启用缓存
		fs,
		embed,
		chat,
	)
}

func TestAskFullPipeline(t *testing.T) {
	videoText := "00:00 - 00:06: intro to graphs\n00:06 - 00:12: dijkstra finds shortest paths\n"
	fs := newFakeStore()
	fs.topKResults = []*store.RetrievalResult{
		{
			ChunkURL:        "https://bucket/chunks/lec3-0.txt",
			ChunkText:       videoText,
			OriginalFileURL: "https://bucket/files/lec3.mp4",
			FileType:        "video",
			FileName:        "lec3.mp4",
			Score:           0.91,
		},
		{
			ChunkURL:        "https://bucket/chunks/notes-2.txt",
			ChunkText:       "greedy choice works when local optima compose",
			OriginalFileURL: "https://bucket/files/notes.pdf",
			FileType:        "text",
			FileName:        "notes.pdf",
			Score:           0.74,
		},
	}

	chat := &fakeChatProvider{
		respond: func(prompt string) (string, error) {
			switch {
			case strings.Contains(prompt, "intro to graphs"):
				return "dijkstra finds shortest paths", nil
			case strings.Contains(prompt, "local optima compose"):
				return "greedy choice works", nil
			default:
				return "Dijkstra computes shortest paths greedily.", nil
			}
		},
	}

	svc := newTestService(fs, chat)
	result, err := svc.Ask(context.Background(), "u_alice", "how does dijkstra work?")
	require.NoError(t, err)

	// 答案末尾追加参考资料区块
	assert.True(t, strings.HasPrefix(result.Answer, "Dijkstra computes shortest paths greedily."))
	assert.Contains(t, result.Answer, "Reference Material\n")
	assert.Contains(t, result.Answer, "<a href=https://bucket/files/lec3.mp4>lec3.mp4</a> \n")
	assert.Contains(t, result.Answer, "<a href=https://bucket/files/notes.pdf>notes.pdf</a> \n")

	// 归因记录与输入顺序一致，视频来源带时间戳
	require.Len(t, result.Attributions, 2)
	assert.Equal(t, 0, result.Attributions[0].Index)
	assert.Equal(t, "dijkstra finds shortest paths", result.Attributions[0].Snippet)
	assert.Equal(t, "00:06", result.Attributions[0].Timestamp)
	assert.Equal(t, "greedy choice works", result.Attributions[1].Snippet)
	assert.Empty(t, result.Attributions[1].Timestamp)

	require.Len(t, result.Sources, 2)
	assert.Equal(t, "video", result.Sources[0].FileType)
	assert.InDelta(t, 0.91, result.Sources[0].Score, 1e-6)

	// 两次定位 + 一次生成
	assert.Equal(t, 3, chat.callCount())
}

func TestAskNoResults(t *testing.T) {
	fs := newFakeStore()
	chat := &fakeChatProvider{}
	svc := newTestService(fs, chat)

	result, err := svc.Ask(context.Background(), "u_alice", "anything?")
	require.NoError(t, err)

	assert.Equal(t, noContextAnswer+"Reference Material\n", result.Answer)
	assert.Empty(t, result.Attributions)
	assert.Empty(t, result.Sources)
	assert.Zero(t, chat.callCount())
}

func TestAskTenantNotFoundMapsToEmpty(t *testing.T) {
	fs := newFakeStore()
	fs.topKErr = pkgerrors.ErrQATenantNotFound.WithMessage("collection missing")
	chat := &fakeChatProvider{}
	svc := newTestService(fs, chat)

	result, err := svc.Ask(context.Background(), "u_nobody", "question")
	require.NoError(t, err)
	assert.Equal(t, noContextAnswer+"Reference Material\n", result.Answer)
}

func TestAskRetrievalFailurePropagates(t *testing.T) {
	fs := newFakeStore()
	fs.topKErr = pkgerrors.ErrQARetrievalFailed.WithMessage("milvus down")
	svc := newTestService(fs, &fakeChatProvider{})

	_, err := svc.Ask(context.Background(), "u_alice", "question")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrQARetrievalFailed.Code))
}

func TestAskDegradedLocalizationStillAnswers(t *testing.T) {
	// 定位失败的条目留空，生成仍基于成功的条目
	fs := newFakeStore()
	fs.topKResults = []*store.RetrievalResult{
		{ChunkURL: "c1", ChunkText: "usable context here", FileType: "text", FileName: "a.pdf", OriginalFileURL: "u1"},
		{ChunkURL: "c2", ChunkText: "broken context", FileType: "text", FileName: "b.pdf", OriginalFileURL: "u2"},
	}
	chat := &fakeChatProvider{
		respond: func(prompt string) (string, error) {
			if strings.Contains(prompt, "broken context") {
				return "", assert.AnError
			}
			if strings.Contains(prompt, "usable context") {
				return "located sentence", nil
			}
			return "final answer", nil
		},
	}
	svc := newTestService(fs, chat)

	result, err := svc.Ask(context.Background(), "u_alice", "q")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.Answer, "final answer"))
	assert.Equal(t, "located sentence", result.Attributions[0].Snippet)
	assert.Empty(t, result.Attributions[1].Snippet)
}

func TestSearchTenantNotFound(t *testing.T) {
	fs := newFakeStore()
	fs.topKErr = pkgerrors.ErrQATenantNotFound.WithMessage("collection missing")
	svc := newTestService(fs, &fakeChatProvider{})

	results, err := svc.Search(context.Background(), "u_nobody", "query", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestVideoTimestamp(t *testing.T) {
	transcript := "00:00 - 00:06: welcome everyone\n01:30 - 01:42: binary search halves the range\n"
	svc := newTestService(newFakeStore(), &fakeChatProvider{})

	tests := []struct {
		name     string
		sentence string
		found    bool
		wantTS   string
		wantSec  int
	}{
		{"命中后段", "binary search halves the range each step", true, "01:30", 90},
		{"命中前段", "welcome everyone", true, "00:00", 0},
		{"无重叠", "quantum entanglement", false, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, found := svc.VideoTimestamp(tt.sentence, transcript)
			assert.Equal(t, tt.found, found)
			if tt.found {
				require.NotNil(t, result)
				assert.Equal(t, tt.wantTS, result.Timestamp)
				assert.Equal(t, tt.wantSec, result.StartSeconds)
				assert.Greater(t, result.Score, 0.0)
			}
		})
	}
}

func TestVideoTimestampMalformedTranscript(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeChatProvider{})

	result, found := svc.VideoTimestamp("any sentence", "no timestamps in here at all")
	assert.False(t, found)
	assert.Nil(t, result)
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		seconds int
		want    string
	}{
		{"零秒", 0, "00:00"},
		{"不足一分钟", 42, "00:42"},
		{"整分钟", 120, "02:00"},
		{"分秒混合", 90, "01:30"},
		{"超过一小时仍用分钟", 3725, "62:05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTimestamp(tt.seconds))
		})
	}
}

func TestStats(t *testing.T) {
	fs := newFakeStore()
	require.NoError(t, fs.EnsureTenant(context.Background(), "u_alice"))
	require.NoError(t, fs.InsertChunk(context.Background(), "u_alice", &store.Chunk{URL: "c1"}))

	svc := newTestService(fs, &fakeChatProvider{})
	stats, err := svc.Stats(context.Background(), "u_alice")
	require.NoError(t, err)

	assert.Equal(t, "fake-embed", stats["embed_provider"])
	assert.Equal(t, "fake-chat", stats["chat_provider"])
	assert.Equal(t, int64(1), stats["chunk_count"])
	assert.Contains(t, stats, "metrics")
}
