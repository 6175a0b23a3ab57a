// Package transcribe 实现音频转写管线：按固定窗口切分音频，
// 并行调用转写模型，再按序重组为带时间戳与纯文本两份转写稿。
package transcribe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kart-io/logger"

	"github.com/adityatadimeti/omnis/internal/qa/metrics"
	"github.com/adityatadimeti/omnis/pkg/infra/pool"
	"github.com/adityatadimeti/omnis/pkg/llm"
	"github.com/adityatadimeti/omnis/pkg/utils/errors"
)

const (
	// defaultWindowMs 单个转写窗口的毫秒长度。
	defaultWindowMs = 6000
	// minChunkMs 短于该毫秒数的尾窗直接丢弃。
	minChunkMs = 100
)

// Config 转写管线配置。
type Config struct {
	// WindowMs 切分窗口毫秒数，<=0 时使用默认值。
	WindowMs int
	// FFmpegPath ffmpeg 可执行文件路径，空值使用 PATH 查找。
	FFmpegPath string
	// FFprobePath ffprobe 可执行文件路径，空值使用 PATH 查找。
	FFprobePath string
}

// window 一个待转写的音频窗口。
type window struct {
	Index   int
	StartMs int
	EndMs   int
}

// chunkResult 单个窗口的转写结果，失败时 Text 为空。
type chunkResult struct {
	window
	Text   string
	Failed bool
}

// Result 一次转写任务的产物。
type Result struct {
	// TimestampedPath 带时间戳转写稿路径（MM:SS - MM:SS: text 行）。
	TimestampedPath string `json:"timestamped_path"`
	// PlainPath 纯文本转写稿路径。
	PlainPath string `json:"plain_path"`
	// Chunks 转写的窗口数。
	Chunks int `json:"chunks"`
	// Failures 降级为空文本的窗口数。
	Failures int `json:"failures"`
	// Elapsed 整个任务耗时。
	Elapsed time.Duration `json:"elapsed"`
}

// Pipeline 音频转写管线。各窗口在工作池上并行转写，
// 单窗口失败降级为空文本，不中断整个任务。
type Pipeline struct {
	provider llm.TranscriptionProvider
	pool     *pool.Pool
	config   *Config
	metrics  *metrics.Metrics
}

// NewPipeline 创建转写管线。workerPool 为 nil 时串行执行。
func NewPipeline(provider llm.TranscriptionProvider, workerPool *pool.Pool, config *Config) *Pipeline {
	if config == nil {
		config = &Config{}
	}
	if config.WindowMs <= 0 {
		config.WindowMs = defaultWindowMs
	}
	if config.FFmpegPath == "" {
		config.FFmpegPath = "ffmpeg"
	}
	if config.FFprobePath == "" {
		config.FFprobePath = "ffprobe"
	}
	return &Pipeline{
		provider: provider,
		pool:     workerPool,
		config:   config,
		metrics:  metrics.Get(),
	}
}

// Run 对给定音频文件执行完整转写，产物写为同目录下的
// <name>_timestamps.txt 与 <name>.txt 两个文件。
func (p *Pipeline) Run(ctx context.Context, audioPath string) (*Result, error) {
	start := time.Now()

	durationMs, err := p.probeDuration(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	windows := planWindows(durationMs, p.config.WindowMs)
	if len(windows) == 0 {
		return nil, errors.ErrTranscribeInvalidMedia.WithMessagef("audio too short: %dms", durationMs)
	}

	tempDir, err := os.MkdirTemp("", "omnis-transcribe-*")
	if err != nil {
		return nil, errors.ErrTranscribeFailed.WithCause(err)
	}
	// 兜底清理，逐块删除失败时也能回收
	defer os.RemoveAll(tempDir)

	paths, err := p.exportChunks(ctx, audioPath, tempDir, windows)
	if err != nil {
		return nil, err
	}

	results := p.transcribeAll(ctx, windows, paths)

	failures := 0
	for _, r := range results {
		if r.Failed {
			failures++
		}
	}
	p.metrics.RecordTranscription(len(results), failures)

	timestamped, plain := reassemble(results)

	base := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	timestampedPath := base + "_timestamps.txt"
	plainPath := base + ".txt"

	if err := os.WriteFile(timestampedPath, []byte(timestamped), 0o644); err != nil {
		return nil, errors.ErrTranscribeFailed.WithCause(err)
	}
	if err := os.WriteFile(plainPath, []byte(plain), 0o644); err != nil {
		return nil, errors.ErrTranscribeFailed.WithCause(err)
	}

	elapsed := time.Since(start)
	logger.Infow("transcription completed",
		"audio", audioPath,
		"chunks", len(results),
		"failures", failures,
		"elapsed_ms", elapsed.Milliseconds(),
	)

	return &Result{
		TimestampedPath: timestampedPath,
		PlainPath:       plainPath,
		Chunks:          len(results),
		Failures:        failures,
		Elapsed:         elapsed,
	}, nil
}

// probeDuration 用 ffprobe 获取音频时长（毫秒）。
func (p *Pipeline) probeDuration(ctx context.Context, audioPath string) (int, error) {
	cmd := exec.CommandContext(ctx, p.config.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		audioPath,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, errors.ErrTranscribeInvalidMedia.WithCause(err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, errors.ErrTranscribeInvalidMedia.WithCause(err)
	}
	return int(seconds * 1000), nil
}

// exportChunks 用 ffmpeg 把每个窗口导出为单声道 16kHz WAV。
// 返回与 windows 同序的文件路径。
func (p *Pipeline) exportChunks(ctx context.Context, audioPath, tempDir string, windows []window) ([]string, error) {
	paths := make([]string, len(windows))
	for i, w := range windows {
		chunkPath := filepath.Join(tempDir, fmt.Sprintf("chunk_%d.wav", w.Index))
		cmd := exec.CommandContext(ctx, p.config.FFmpegPath,
			"-y",
			"-ss", msToFFmpeg(w.StartMs),
			"-t", msToFFmpeg(w.EndMs-w.StartMs),
			"-i", audioPath,
			"-ac", "1", "-ar", "16000",
			"-f", "wav",
			chunkPath,
		)
		if err := cmd.Run(); err != nil {
			return nil, errors.ErrTranscribeFailed.WithMessagef("export chunk %d failed", w.Index).WithCause(err)
		}
		paths[i] = chunkPath
	}
	return paths, nil
}

// transcribeAll 并行转写所有窗口。结果槽按窗口序号寻址，
// 完成顺序任意，输出顺序固定。每块转写后立即删除临时文件。
func (p *Pipeline) transcribeAll(ctx context.Context, windows []window, paths []string) []chunkResult {
	out := make([]chunkResult, len(windows))

	var wg sync.WaitGroup
	for i := range windows {
		idx := i
		task := func() {
			defer wg.Done()
			out[idx] = p.transcribeOne(ctx, windows[idx], paths[idx])
		}

		wg.Add(1)
		if p.pool != nil {
			if err := p.pool.Submit(task); err == nil {
				continue
			}
			logger.Warnw("transcribe pool unavailable, running inline", "chunk", windows[idx].Index)
		}
		task()
	}
	wg.Wait()

	return out
}

func (p *Pipeline) transcribeOne(ctx context.Context, w window, path string) chunkResult {
	defer os.Remove(path)

	text, err := p.provider.Transcribe(ctx, path)
	if err != nil {
		logger.Warnw("chunk transcription failed, degrading to empty text",
			"chunk", w.Index,
			"error", err.Error(),
		)
		return chunkResult{window: w, Failed: true}
	}
	return chunkResult{window: w, Text: text}
}

// planWindows 把总时长切为固定长度的窗口，丢弃过短的尾窗。
func planWindows(durationMs, windowMs int) []window {
	if durationMs <= 0 || windowMs <= 0 {
		return nil
	}

	windows := make([]window, 0, (durationMs+windowMs-1)/windowMs)
	index := 0
	for start := 0; start < durationMs; start += windowMs {
		end := start + windowMs
		if end > durationMs {
			end = durationMs
		}
		if end-start < minChunkMs {
			logger.Debugw("dropping short tail window", "index", index, "length_ms", end-start)
			index++
			continue
		}
		windows = append(windows, window{Index: index, StartMs: start, EndMs: end})
		index++
	}
	return windows
}

// reassemble 按窗口顺序拼装两份转写稿。失败窗口保留时间戳行，
// 文本为空。
func reassemble(results []chunkResult) (timestamped, plain string) {
	var ts, pl strings.Builder
	for _, r := range results {
		ts.WriteString(fmt.Sprintf("%s - %s: %s\n", formatMs(r.StartMs), formatMs(r.EndMs), r.Text))
		pl.WriteString(r.Text)
		pl.WriteString("\n")
	}
	return ts.String(), pl.String()
}

// formatMs 把毫秒格式化为 MM:SS。
func formatMs(ms int) string {
	seconds := ms / 1000
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// msToFFmpeg 把毫秒转为 ffmpeg 的秒表示。
func msToFFmpeg(ms int) string {
	return strconv.FormatFloat(float64(ms)/1000.0, 'f', 3, 64)
}
