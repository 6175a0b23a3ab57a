// Package qa 组装课程知识问答服务：向量存储、LLM 供应商、
// 工作池、业务层与 HTTP 服务。
package qa

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/adityatadimeti/omnis/internal/qa/biz"
	"github.com/adityatadimeti/omnis/internal/qa/handler"
	"github.com/adityatadimeti/omnis/internal/qa/router"
	"github.com/adityatadimeti/omnis/internal/qa/store"
	"github.com/adityatadimeti/omnis/internal/transcribe"
	"github.com/adityatadimeti/omnis/pkg/component/milvus"
	"github.com/adityatadimeti/omnis/pkg/infra/app"
	"github.com/adityatadimeti/omnis/pkg/infra/pool"
	"github.com/adityatadimeti/omnis/pkg/llm"
	// 导入 LLM 供应商以自动注册
	_ "github.com/adityatadimeti/omnis/pkg/llm/openai"
	cacheopts "github.com/adityatadimeti/omnis/pkg/options/cache"
	llmopts "github.com/adityatadimeti/omnis/pkg/options/llm"
	logopts "github.com/adityatadimeti/omnis/pkg/options/logger"
	milvusopts "github.com/adityatadimeti/omnis/pkg/options/milvus"
	qaopts "github.com/adityatadimeti/omnis/pkg/options/qa"
	httpopts "github.com/adityatadimeti/omnis/pkg/options/server/http"
	"github.com/adityatadimeti/omnis/pkg/server"
)

// Name is the name of the application.
const Name = "omnis-qa"

// Config contains application-related configurations.
type Config struct {
	HTTPOptions       *httpopts.Options
	LogOptions        *logopts.Options
	MilvusOptions     *milvusopts.Options
	EmbeddingOptions  *llmopts.ProviderOptions
	ChatOptions       *llmopts.ProviderOptions
	IdentifyOptions   *llmopts.ProviderOptions
	TranscribeOptions *llmopts.ProviderOptions
	QAOptions         *qaopts.Options
	CacheOptions      *cacheopts.Options
	ShutdownTimeout   time.Duration
}

// Server represents the QA server.
type Server struct {
	srv         *server.Manager
	milvusClose func()
	redisClose  func()
	poolClose   func()
}

// NewServer initializes and returns a new Server instance.
func (cfg *Config) NewServer(_ context.Context) (*Server, error) {
	printBanner(cfg)

	// 1. 初始化日志
	cfg.LogOptions.AddInitialField("service.name", Name)
	cfg.LogOptions.AddInitialField("service.version", app.GetVersion())
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting QA service...")

	// 2. 初始化 Milvus 客户端与向量存储
	milvusClient, err := milvus.New(cfg.MilvusOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize milvus: %w", err)
	}
	vectorStore := store.NewMilvusStore(milvusClient)
	logger.Infow("Vector store initialized", "address", cfg.MilvusOptions.Address)

	// 3. 初始化 Redis 客户端（答案缓存 + 嵌入缓存）
	var redisClient *goredis.Client
	var answerCache *biz.AnswerCache
	var redisClose func()
	if cfg.CacheOptions.Enabled && cfg.CacheOptions.Redis != nil {
		redisOpts := cfg.CacheOptions.Redis
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         fmt.Sprintf("%s:%d", redisOpts.Host, redisOpts.Port),
			Password:     redisOpts.Password,
			DB:           redisOpts.Database,
			MaxRetries:   redisOpts.MaxRetries,
			PoolSize:     redisOpts.PoolSize,
			MinIdleConns: redisOpts.MinIdleConns,
		})

		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warnw("failed to connect to redis, cache will be disabled", "error", err.Error())
			_ = redisClient.Close()
			redisClient = nil
		} else {
			answerCache = biz.NewAnswerCache(redisClient, &biz.AnswerCacheConfig{
				Enabled:   true,
				TTL:       cfg.CacheOptions.TTL,
				KeyPrefix: cfg.CacheOptions.KeyPrefix,
			})
			redisClose = func() { _ = redisClient.Close() }
			logger.Infow("Redis cache initialized",
				"host", redisOpts.Host,
				"port", redisOpts.Port,
				"ttl", cfg.CacheOptions.TTL,
			)
		}
	} else {
		logger.Info("Cache is disabled")
	}

	// 4. 初始化 LLM 供应商
	embedProvider, err := llm.NewEmbeddingProvider(cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	if redisClient != nil {
		embedProvider = llm.NewCachedEmbeddingProvider(embedProvider, redisClient, nil)
	}
	logger.Infow("Embedding provider initialized",
		"provider", cfg.EmbeddingOptions.Provider,
		"model", cfg.EmbeddingOptions.Model,
	)

	chatProvider, err := llm.NewChatProvider(cfg.ChatOptions.Provider, cfg.ChatOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	logger.Infow("Chat provider initialized",
		"provider", cfg.ChatOptions.Provider,
		"model", cfg.ChatOptions.Model,
	)

	// 答案定位使用独立的模型配置
	identifyProvider, err := llm.NewChatProvider(cfg.IdentifyOptions.Provider, cfg.IdentifyOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize identify provider: %w", err)
	}
	logger.Infow("Identify provider initialized",
		"provider", cfg.IdentifyOptions.Provider,
		"model", cfg.IdentifyOptions.Model,
	)

	transcribeProvider, err := llm.NewTranscriptionProvider(cfg.TranscribeOptions.Provider, cfg.TranscribeOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize transcription provider: %w", err)
	}

	// 5. 初始化工作池
	localizeConfig := pool.LocalizePoolConfig()
	localizeConfig.Capacity = cfg.QAOptions.LocalizeWorkers
	localizePool, err := pool.NewPool("localize", pool.LocalizePool, localizeConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create localize pool: %w", err)
	}

	transcribePool, err := pool.NewPool("transcribe", pool.TranscribePool, pool.TranscribePoolConfig())
	if err != nil {
		localizePool.Release()
		return nil, fmt.Errorf("failed to create transcribe pool: %w", err)
	}
	logger.Infow("Worker pools initialized",
		"localize_capacity", localizePool.Cap(),
		"transcribe_capacity", transcribePool.Cap(),
	)

	// 6. 初始化 Biz 层
	qaService := biz.NewQAService(
		biz.NewIngester(vectorStore, embedProvider),
		biz.NewRetriever(vectorStore, embedProvider, &biz.RetrieverConfig{TopK: cfg.QAOptions.TopK}),
		biz.NewLocalizer(identifyProvider, localizePool, &biz.LocalizerConfig{ContextWords: cfg.QAOptions.ContextWords}),
		biz.NewGenerator(chatProvider),
		answerCache,
		vectorStore,
		embedProvider,
		chatProvider,
	)

	transcribePipeline := transcribe.NewPipeline(transcribeProvider, transcribePool, &transcribe.Config{
		WindowMs:    cfg.QAOptions.TranscribeWindowMs,
		FFmpegPath:  cfg.QAOptions.FFmpegPath,
		FFprobePath: cfg.QAOptions.FFprobePath,
	})
	logger.Infow("QA service initialized",
		"top_k", cfg.QAOptions.TopK,
		"context_words", cfg.QAOptions.ContextWords,
		"cache.enabled", answerCache != nil,
	)

	// 7. 初始化 Handler 层与 HTTP 服务
	qaHandler := handler.NewQAHandler(qaService, transcribePipeline)
	serverManager := server.NewManager(cfg.HTTPOptions, server.WithShutdownTimeout(cfg.ShutdownTimeout))
	router.Register(serverManager, qaHandler)

	logger.Info("QA service is ready")
	return &Server{
		srv:         serverManager,
		milvusClose: func() { _ = vectorStore.Close(context.Background()) },
		redisClose:  redisClose,
		poolClose: func() {
			localizePool.Release()
			transcribePool.Release()
		},
	}, nil
}

// Run starts the server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	defer func() {
		if s.poolClose != nil {
			s.poolClose()
		}
		if s.milvusClose != nil {
			s.milvusClose()
		}
		if s.redisClose != nil {
			s.redisClose()
		}
	}()
	return s.srv.Run(ctx)
}

func printBanner(cfg *Config) {
	fmt.Printf("Starting %s...\n", Name)
	fmt.Printf("  Embedding: %s (%s)\n", cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.Model)
	fmt.Printf("  Chat: %s (%s)\n", cfg.ChatOptions.Provider, cfg.ChatOptions.Model)
	fmt.Printf("  Identify: %s (%s)\n", cfg.IdentifyOptions.Provider, cfg.IdentifyOptions.Model)
	fmt.Printf("  HTTP: %s\n", cfg.HTTPOptions.Addr)
}
