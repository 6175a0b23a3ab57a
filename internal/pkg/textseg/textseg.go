// Package textseg 提供课程资料的文本切分与时间戳转写解析工具。
package textseg

import (
	"regexp"
	"strings"
)

// markerPattern 匹配转写文本中的时间戳标记，形如 "00:06 - 00:12: "。
var markerPattern = regexp.MustCompile(`(\d{2}:\d{2})\s*-\s*(\d{2}:\d{2}):\s*`)

// Segment 表示转写文本中的一个带时间戳片段。
type Segment struct {
	// Start 起始时间，格式 "mm:ss"。
	Start string
	// End 结束时间，格式 "mm:ss"。
	End string
	// Text 该片段的文本内容（已去除首尾空白）。
	Text string
}

// ChunkWords 将文本按空白切分为词，每 size 个词合并为一个块（单空格连接）。
// size <= 0 或文本为空时返回 nil。最后一个块可能不足 size 个词。
func ChunkWords(text string, size int) []string {
	if size <= 0 {
		return nil
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(words)+size-1)/size)
	for i := 0; i < len(words); i += size {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}

// ParseSegments 从带时间戳的转写文本中解析出全部片段。
// 每个片段的文本是当前标记到下一个标记（或文本结尾）之间的内容。
// 不含任何时间戳标记的文本返回 nil。
func ParseSegments(text string) []Segment {
	markers := markerPattern.FindAllStringSubmatchIndex(text, -1)
	if len(markers) == 0 {
		return nil
	}

	segments := make([]Segment, 0, len(markers))
	for i, m := range markers {
		// m[2:4] 起始时间捕获组，m[4:6] 结束时间捕获组
		start := text[m[2]:m[3]]
		end := text[m[4]:m[5]]

		textEnd := len(text)
		if i+1 < len(markers) {
			textEnd = markers[i+1][0]
		}

		segments = append(segments, Segment{
			Start: start,
			End:   end,
			Text:  strings.TrimSpace(text[m[1]:textEnd]),
		})
	}
	return segments
}

// StripTimestamps 去除转写文本中的全部时间戳标记，返回纯文本。
// 各片段文本以换行符连接，与片段顺序一致。
func StripTimestamps(text string) string {
	segments := ParseSegments(text)
	if len(segments) == 0 {
		return strings.TrimSpace(text)
	}

	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		parts = append(parts, seg.Text)
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
