package biz

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adityatadimeti/omnis/pkg/infra/pool"
)

func TestLocalizeAllPreservesOrder(t *testing.T) {
	// 后提交的任务先完成，输出顺序仍须与输入一致
	chat := &fakeChatProvider{
		onGenerate: func(prompt string) {
			if strings.Contains(prompt, "first chunk") {
				time.Sleep(50 * time.Millisecond)
			}
		},
		respond: func(prompt string) (string, error) {
			switch {
			case strings.Contains(prompt, "first chunk"):
				return "snippet one", nil
			case strings.Contains(prompt, "second chunk"):
				return "snippet two", nil
			default:
				return "snippet three", nil
			}
		},
	}

	p, err := pool.NewPool("localize-test", pool.LocalizePool, pool.LocalizePoolConfig())
	require.NoError(t, err)
	defer p.Release()

	l := NewLocalizer(chat, p, nil)
	out := l.LocalizeAll(context.Background(), "what is DP?", []LocalizeInput{
		{Text: "first chunk", FileType: "text"},
		{Text: "second chunk", FileType: "text"},
		{Text: "third chunk", FileType: "text"},
	})

	require.Len(t, out, 3)
	assert.Equal(t, "snippet one", out[0].Snippet)
	assert.Equal(t, "snippet two", out[1].Snippet)
	assert.Equal(t, "snippet three", out[2].Snippet)
}

func TestLocalizeAllSerialWithoutPool(t *testing.T) {
	chat := &fakeChatProvider{responses: []string{"a", "b"}}
	l := NewLocalizer(chat, nil, nil)

	out := l.LocalizeAll(context.Background(), "q", []LocalizeInput{
		{Text: "chunk a", FileType: "text"},
		{Text: "chunk b", FileType: "text"},
	})

	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Snippet)
	assert.Equal(t, "b", out[1].Snippet)
}

func TestLocalizePerItemDegradation(t *testing.T) {
	// 单条失败降级为空 Snippet，不影响其他条目
	chat := &fakeChatProvider{
		respond: func(prompt string) (string, error) {
			if strings.Contains(prompt, "bad chunk") {
				return "", errors.New("model overloaded")
			}
			return "good snippet", nil
		},
	}
	l := NewLocalizer(chat, nil, nil)

	out := l.LocalizeAll(context.Background(), "q", []LocalizeInput{
		{Text: "good chunk", FileType: "text"},
		{Text: "bad chunk", FileType: "text"},
		{Text: "good chunk again", FileType: "text"},
	})

	require.Len(t, out, 3)
	assert.False(t, out[0].Failed)
	assert.Equal(t, "good snippet", out[0].Snippet)
	assert.True(t, out[1].Failed)
	assert.Empty(t, out[1].Snippet)
	assert.False(t, out[2].Failed)
}

func TestLocalizeVideoParsesSegments(t *testing.T) {
	transcript := "00:00 - 00:06: welcome to the course\n00:06 - 00:12: today we cover recursion\n"
	chat := &fakeChatProvider{responses: []string{"today we cover recursion"}}
	l := NewLocalizer(chat, nil, nil)

	out := l.LocalizeAll(context.Background(), "what is covered?", []LocalizeInput{
		{Text: transcript, FileType: "video"},
	})

	require.Len(t, out, 1)
	require.Len(t, out[0].Segments, 2)
	assert.Equal(t, "welcome to the course", out[0].Segments[0].Text)

	// 提示词里的上下文不应再包含时间戳前缀
	assert.NotContains(t, chat.lastPrompt(), "00:00 - 00:06:")
	assert.Contains(t, chat.lastPrompt(), "welcome to the course")
}

func TestLocalizeEmptyTextDegrades(t *testing.T) {
	chat := &fakeChatProvider{}
	l := NewLocalizer(chat, nil, nil)

	out := l.LocalizeAll(context.Background(), "q", []LocalizeInput{
		{Text: "   ", FileType: "text"},
	})

	require.Len(t, out, 1)
	assert.True(t, out[0].Failed)
	assert.Zero(t, chat.callCount())
}

func TestLocalizePromptShape(t *testing.T) {
	chat := &fakeChatProvider{responses: []string{"answer sentence"}}
	l := NewLocalizer(chat, nil, nil)

	l.LocalizeAll(context.Background(), "what is recursion?", []LocalizeInput{
		{Text: "recursion is self reference", FileType: "text"},
	})

	require.Equal(t, 1, chat.callCount())
	assert.Equal(t, "what is recursion?CONTEXT:\n recursion is self reference", chat.lastPrompt())
}

func TestNormalizeSnippet(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"去除换行", "line one\nline two", "line one line two"},
		{"去除反引号", "`code span`", "code span"},
		{"混合", "a\n`b`\nc", "a b c"},
		{"无需处理", "plain sentence", "plain sentence"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeSnippet(tt.in))
		})
	}
}
