// Package align 提供答案文本与转写片段之间的模糊对齐。
//
// 对齐基于词级 Jaccard 相似度：把答案与每个片段分词为小写词集合，
// 取交并比最高的片段作为答案的时间戳归属。
package align

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/adityatadimeti/omnis/internal/pkg/textseg"
)

var (
	wordPattern      = regexp.MustCompile(`\w+`)
	timestampPattern = regexp.MustCompile(`^(\d{2}):(\d{2})$`)
)

// Match 表示一次成功的片段对齐结果。
type Match struct {
	// Segment 得分最高的转写片段。
	Segment textseg.Segment
	// StartSec 片段起始时间换算的秒数。
	StartSec int
	// Score Jaccard 相似度得分。
	Score float64
}

// ToSeconds 将 "mm:ss" 格式的时间戳换算为秒数。
func ToSeconds(ts string) (int, error) {
	m := timestampPattern.FindStringSubmatch(strings.TrimSpace(ts))
	if m == nil {
		return 0, fmt.Errorf("无效的时间戳格式 %q，期望 mm:ss", ts)
	}

	mm, _ := strconv.Atoi(m[1])
	ss, _ := strconv.Atoi(m[2])
	return mm*60 + ss, nil
}

// Tokenize 将文本分词为小写词集合。非词字符作为分隔符。
func Tokenize(text string) map[string]struct{} {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	tokens := make(map[string]struct{}, len(words))
	for _, w := range words {
		tokens[w] = struct{}{}
	}
	return tokens
}

// Jaccard 计算两个词集合的 Jaccard 相似度 |A∩B| / |A∪B|。
// 两个集合都为空时返回 0.0。
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0.0
	}

	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// BestMatch 在片段列表中查找与答案文本词重叠度最高的片段。
// 采用严格大于比较，得分相同时保留先出现的片段。
// 所有片段得分均为 0 时返回 false。
func BestMatch(answer string, segments []textseg.Segment) (Match, bool) {
	answerTokens := Tokenize(answer)

	best := Match{}
	found := false
	for _, seg := range segments {
		score := Jaccard(answerTokens, Tokenize(seg.Text))
		if score > best.Score {
			best.Segment = seg
			best.Score = score
			found = true
		}
	}
	if !found {
		return Match{}, false
	}

	sec, err := ToSeconds(best.Segment.Start)
	if err != nil {
		return Match{}, false
	}
	best.StartSec = sec
	return best, true
}
