// Package options contains flags and options for initializing the QA server.
package options

import (
	"errors"
	"fmt"
	"time"

	qasvc "github.com/adityatadimeti/omnis/internal/qa"
	appopts "github.com/adityatadimeti/omnis/pkg/options/app"
	cacheopts "github.com/adityatadimeti/omnis/pkg/options/cache"
	llmopts "github.com/adityatadimeti/omnis/pkg/options/llm"
	logopts "github.com/adityatadimeti/omnis/pkg/options/logger"
	milvusopts "github.com/adityatadimeti/omnis/pkg/options/milvus"
	qaopts "github.com/adityatadimeti/omnis/pkg/options/qa"
	httpopts "github.com/adityatadimeti/omnis/pkg/options/server/http"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// MilvusOptions contains Milvus database configuration.
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// ChatOptions contains answer generation provider configuration.
	ChatOptions *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// IdentifyOptions contains answer localization provider configuration.
	IdentifyOptions *llmopts.ProviderOptions `json:"identify" mapstructure:"identify"`

	// TranscribeOptions contains transcription provider configuration.
	TranscribeOptions *llmopts.ProviderOptions `json:"transcribe" mapstructure:"transcribe"`

	// QAOptions contains QA pipeline configuration.
	QAOptions *qaopts.Options `json:"qa" mapstructure:"qa"`

	// CacheOptions contains answer cache configuration.
	CacheOptions *cacheopts.Options `json:"cache" mapstructure:"cache"`

	// ShutdownTimeout is the timeout for graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	httpOpts := httpopts.NewOptions()
	httpOpts.Addr = ":8082"

	// 答案定位使用推理型模型
	identifyOpts := llmopts.NewChatOptions()
	identifyOpts.Model = "o1-mini"

	return &ServerOptions{
		HTTPOptions:       httpOpts,
		LogOptions:        logopts.NewOptions(),
		MilvusOptions:     milvusopts.NewOptions(),
		EmbeddingOptions:  llmopts.NewEmbeddingOptions(),
		ChatOptions:       llmopts.NewChatOptions(),
		IdentifyOptions:   identifyOpts,
		TranscribeOptions: llmopts.NewTranscribeOptions(),
		QAOptions:         qaopts.NewOptions(),
		CacheOptions:      cacheopts.NewOptions(),
		ShutdownTimeout:   30 * time.Second,
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss appopts.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("http"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"), "milvus.")
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"), "embedding.")
	o.ChatOptions.AddFlags(fss.FlagSet("chat"), "chat.")
	o.IdentifyOptions.AddFlags(fss.FlagSet("identify"), "identify.")
	o.TranscribeOptions.AddFlags(fss.FlagSet("transcribe"), "transcribe.")
	o.QAOptions.AddFlags(fss.FlagSet("qa"))
	o.CacheOptions.AddFlags(fss.FlagSet("cache"), "cache.")

	// misc flags
	fs := fss.FlagSet("misc")
	fs.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout")

	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	if err := o.HTTPOptions.Complete(); err != nil {
		return err
	}
	if err := o.EmbeddingOptions.Complete(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := o.ChatOptions.Complete(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	if err := o.IdentifyOptions.Complete(); err != nil {
		return fmt.Errorf("identify: %w", err)
	}
	if err := o.TranscribeOptions.Complete(); err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}
	if err := o.QAOptions.Complete(); err != nil {
		return fmt.Errorf("qa: %w", err)
	}
	if err := o.CacheOptions.Complete(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	var errs []error

	errs = append(errs, o.HTTPOptions.Validate()...)
	errs = append(errs, o.LogOptions.Validate())
	errs = append(errs, o.MilvusOptions.Validate()...)
	errs = append(errs, o.EmbeddingOptions.Validate()...)
	errs = append(errs, o.ChatOptions.Validate()...)
	errs = append(errs, o.IdentifyOptions.Validate()...)
	errs = append(errs, o.TranscribeOptions.Validate()...)
	errs = append(errs, o.QAOptions.Validate()...)
	errs = append(errs, o.CacheOptions.Validate()...)

	return errors.Join(errs...)
}

// Config builds a qasvc.Config based on ServerOptions.
func (o *ServerOptions) Config() (*qasvc.Config, error) {
	return &qasvc.Config{
		HTTPOptions:       o.HTTPOptions,
		LogOptions:        o.LogOptions,
		MilvusOptions:     o.MilvusOptions,
		EmbeddingOptions:  o.EmbeddingOptions,
		ChatOptions:       o.ChatOptions,
		IdentifyOptions:   o.IdentifyOptions,
		TranscribeOptions: o.TranscribeOptions,
		QAOptions:         o.QAOptions,
		CacheOptions:      o.CacheOptions,
		ShutdownTimeout:   o.ShutdownTimeout,
	}, nil
}
