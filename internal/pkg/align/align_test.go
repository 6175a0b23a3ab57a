package align_test

import (
	"testing"

	"github.com/adityatadimeti/omnis/internal/pkg/align"
	"github.com/adityatadimeti/omnis/internal/pkg/textseg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToSeconds(t *testing.T) {
	tests := []struct {
		name     string
		ts       string
		expected int
		wantErr  bool
	}{
		{name: "零点", ts: "00:00", expected: 0},
		{name: "普通时间", ts: "03:24", expected: 204},
		{name: "带空白", ts: " 01:06 ", expected: 66},
		{name: "缺少前导零", ts: "3:24", wantErr: true},
		{name: "非法格式", ts: "abc", wantErr: true},
		{name: "空字符串", ts: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sec, err := align.ToSeconds(tt.ts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, sec)
		})
	}
}

func TestTokenize(t *testing.T) {
	tokens := align.Tokenize("Hey, what's UP students? up!")

	assert.Contains(t, tokens, "hey")
	assert.Contains(t, tokens, "what")
	assert.Contains(t, tokens, "s")
	assert.Contains(t, tokens, "up")
	assert.Contains(t, tokens, "students")
	// 集合去重：大小写不同的 up 只保留一个
	assert.Len(t, tokens, 5)
}

func TestTokenizeEmpty(t *testing.T) {
	assert.Empty(t, align.Tokenize("!!! ... ---"))
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected float64
	}{
		{name: "完全相同", a: "the deck of cards", b: "the deck of cards", expected: 1.0},
		{name: "无重叠", a: "alpha beta", b: "gamma delta", expected: 0.0},
		{name: "部分重叠", a: "a b c", b: "b c d", expected: 0.5},
		{name: "双空集合", a: "", b: "", expected: 0.0},
		{name: "单空集合", a: "word", b: "", expected: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := align.Jaccard(align.Tokenize(tt.a), align.Tokenize(tt.b))
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestBestMatch(t *testing.T) {
	segments := []textseg.Segment{
		{Start: "00:00", End: "00:06", Text: "Hey, what's up students? Hope you all are doing well."},
		{Start: "03:18", End: "03:24", Text: "purchase a few additional tricks for their arsenal."},
		{Start: "00:06", End: "00:12", Text: "to do a product review."},
	}

	match, ok := align.BestMatch("arsenal", segments)
	require.True(t, ok)
	assert.Equal(t, "03:18", match.Segment.Start)
	assert.Equal(t, 198, match.StartSec)
	assert.Greater(t, match.Score, 0.0)
}

func TestBestMatchTieKeepsFirst(t *testing.T) {
	// 得分相同时保留先出现的片段
	segments := []textseg.Segment{
		{Start: "00:00", End: "00:06", Text: "alpha beta"},
		{Start: "00:06", End: "00:12", Text: "alpha beta"},
	}

	match, ok := align.BestMatch("alpha beta", segments)
	require.True(t, ok)
	assert.Equal(t, "00:00", match.Segment.Start)
}

func TestBestMatchNoOverlap(t *testing.T) {
	segments := []textseg.Segment{
		{Start: "00:00", End: "00:06", Text: "alpha beta"},
	}

	_, ok := align.BestMatch("gamma delta", segments)
	assert.False(t, ok)
}

func TestBestMatchEmptySegments(t *testing.T) {
	_, ok := align.BestMatch("anything", nil)
	assert.False(t, ok)
}
