// Package qa 提供问答流水线配置项。
package qa

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/adityatadimeti/omnis/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains QA pipeline configuration.
type Options struct {
	// TopK is the number of results to return from similarity search.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// ContextWords 定位上下文的词数上限，超长片段截断到第一段。
	ContextWords int `json:"context-words" mapstructure:"context-words"`

	// LocalizeWorkers 答案定位池容量。
	LocalizeWorkers int `json:"localize-workers" mapstructure:"localize-workers"`

	// TranscribeWindowMs 音频转写窗口毫秒数。
	TranscribeWindowMs int `json:"transcribe-window-ms" mapstructure:"transcribe-window-ms"`

	// FFmpegPath ffmpeg 可执行文件路径。
	FFmpegPath string `json:"ffmpeg-path" mapstructure:"ffmpeg-path"`

	// FFprobePath ffprobe 可执行文件路径。
	FFprobePath string `json:"ffprobe-path" mapstructure:"ffprobe-path"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		TopK:               3,
		ContextWords:       16384,
		LocalizeWorkers:    8,
		TranscribeWindowMs: 6000,
		FFmpegPath:         "ffmpeg",
		FFprobePath:        "ffprobe",
	}
}

// AddFlags adds flags for QA options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.TopK, options.Join(prefixes...)+"qa.top-k", o.TopK, "Number of results from similarity search.")
	fs.IntVar(&o.ContextWords, options.Join(prefixes...)+"qa.context-words", o.ContextWords, "Word cap for answer localization context.")
	fs.IntVar(&o.LocalizeWorkers, options.Join(prefixes...)+"qa.localize-workers", o.LocalizeWorkers, "Concurrent answer localization workers.")
	fs.IntVar(&o.TranscribeWindowMs, options.Join(prefixes...)+"qa.transcribe-window-ms", o.TranscribeWindowMs, "Audio transcription window in milliseconds.")
	fs.StringVar(&o.FFmpegPath, options.Join(prefixes...)+"qa.ffmpeg-path", o.FFmpegPath, "Path to the ffmpeg binary.")
	fs.StringVar(&o.FFprobePath, options.Join(prefixes...)+"qa.ffprobe-path", o.FFprobePath, "Path to the ffprobe binary.")
}

// Validate validates the QA options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("qa.top-k must be positive, got %d", o.TopK))
	}
	if o.ContextWords <= 0 {
		errs = append(errs, fmt.Errorf("qa.context-words must be positive, got %d", o.ContextWords))
	}
	if o.LocalizeWorkers <= 0 {
		errs = append(errs, fmt.Errorf("qa.localize-workers must be positive, got %d", o.LocalizeWorkers))
	}
	if o.TranscribeWindowMs < 100 {
		errs = append(errs, fmt.Errorf("qa.transcribe-window-ms must be at least 100, got %d", o.TranscribeWindowMs))
	}
	return errs
}

// Complete fills in any fields not set that are required to have valid data.
func (o *Options) Complete() error {
	return nil
}
