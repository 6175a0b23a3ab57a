// Package metrics 提供问答服务的业务指标收集。
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics 问答服务业务指标。
type Metrics struct {
	// 问答指标
	asksTotal      uint64 // 总问答次数
	asksCacheHits  uint64 // 缓存命中次数
	asksCacheMiss  uint64 // 缓存未命中次数
	asksErrors     uint64 // 问答错误次数

	// 检索指标
	retrievalTotal    uint64  // 总检索次数
	retrievalDuration float64 // 检索总耗时（秒）
	retrievalErrors   uint64  // 检索错误次数

	// LLM 调用指标
	llmCallsTotal       uint64  // LLM 总调用次数
	llmCallsDuration    float64 // LLM 调用总耗时（秒）
	llmCallsErrors      uint64  // LLM 调用错误次数
	llmTokensPrompt     uint64  // Prompt tokens 总数
	llmTokensCompletion uint64  // Completion tokens 总数

	// 定位指标
	localizationsTotal  uint64 // 答案定位总次数
	localizationsFailed uint64 // 降级为空文本的定位次数

	// 注册指标
	chunksRegistered uint64 // 新注册片段数
	chunksDuplicate  uint64 // 幂等命中（已存在）次数
	ingestErrors     uint64 // 注册错误次数

	// 转写指标
	transcribeJobs     uint64 // 转写任务数
	transcribeChunks   uint64 // 已转写音频块数
	transcribeFailures uint64 // 降级为空文本的音频块数

	startTime  time.Time
	durationMu sync.Mutex
}

var (
	global *Metrics
	once   sync.Once
)

// Get 获取全局指标实例。
func Get() *Metrics {
	once.Do(func() {
		global = &Metrics{startTime: time.Now()}
	})
	return global
}

// RecordAsk 记录一次问答请求。
func (m *Metrics) RecordAsk(cacheHit bool, err error) {
	atomic.AddUint64(&m.asksTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.asksErrors, 1)
		return
	}
	if cacheHit {
		atomic.AddUint64(&m.asksCacheHits, 1)
	} else {
		atomic.AddUint64(&m.asksCacheMiss, 1)
	}
}

// RecordRetrieval 记录一次检索。
func (m *Metrics) RecordRetrieval(duration time.Duration, err error) {
	atomic.AddUint64(&m.retrievalTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.retrievalErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.retrievalDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordLLMCall 记录一次 LLM 调用。
func (m *Metrics) RecordLLMCall(duration time.Duration, promptTokens, completionTokens int, err error) {
	atomic.AddUint64(&m.llmCallsTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.llmCallsErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.llmCallsDuration += duration.Seconds()
	m.durationMu.Unlock()

	if promptTokens > 0 {
		atomic.AddUint64(&m.llmTokensPrompt, uint64(promptTokens))
	}
	if completionTokens > 0 {
		atomic.AddUint64(&m.llmTokensCompletion, uint64(completionTokens))
	}
}

// RecordLocalization 记录一次答案定位，failed 表示降级为空文本。
func (m *Metrics) RecordLocalization(failed bool) {
	atomic.AddUint64(&m.localizationsTotal, 1)
	if failed {
		atomic.AddUint64(&m.localizationsFailed, 1)
	}
}

// RecordIngest 记录一次片段注册。
func (m *Metrics) RecordIngest(alreadyExists bool, err error) {
	if err != nil {
		atomic.AddUint64(&m.ingestErrors, 1)
		return
	}
	if alreadyExists {
		atomic.AddUint64(&m.chunksDuplicate, 1)
	} else {
		atomic.AddUint64(&m.chunksRegistered, 1)
	}
}

// RecordTranscription 记录一次转写任务的结果。
func (m *Metrics) RecordTranscription(chunks, failures int) {
	atomic.AddUint64(&m.transcribeJobs, 1)
	atomic.AddUint64(&m.transcribeChunks, uint64(chunks))
	atomic.AddUint64(&m.transcribeFailures, uint64(failures))
}

// Export 导出 Prometheus 文本格式指标。
func (m *Metrics) Export(namespace, subsystem string) string {
	var sb strings.Builder
	prefix := namespace
	if subsystem != "" {
		prefix = prefix + "_" + subsystem
	}

	counter := func(name, help string, v uint64) {
		sb.WriteString(fmt.Sprintf("# HELP %s_%s %s\n", prefix, name, help))
		sb.WriteString(fmt.Sprintf("# TYPE %s_%s counter\n", prefix, name))
		sb.WriteString(fmt.Sprintf("%s_%s %d\n\n", prefix, name, v))
	}

	counter("asks_total", "Total number of answered questions.", atomic.LoadUint64(&m.asksTotal))
	counter("asks_cache_hits_total", "Number of answer cache hits.", atomic.LoadUint64(&m.asksCacheHits))
	counter("asks_cache_misses_total", "Number of answer cache misses.", atomic.LoadUint64(&m.asksCacheMiss))
	counter("asks_errors_total", "Number of failed questions.", atomic.LoadUint64(&m.asksErrors))

	cacheHits := atomic.LoadUint64(&m.asksCacheHits)
	cacheMisses := atomic.LoadUint64(&m.asksCacheMiss)
	total := cacheHits + cacheMisses
	cacheHitRate := 0.0
	if total > 0 {
		cacheHitRate = float64(cacheHits) / float64(total)
	}
	sb.WriteString(fmt.Sprintf("# HELP %s_cache_hit_rate Answer cache hit rate (0-1).\n", prefix))
	sb.WriteString(fmt.Sprintf("# TYPE %s_cache_hit_rate gauge\n", prefix))
	sb.WriteString(fmt.Sprintf("%s_cache_hit_rate %.4f\n\n", prefix, cacheHitRate))

	counter("retrieval_total", "Total number of retrievals.", atomic.LoadUint64(&m.retrievalTotal))
	counter("retrieval_errors_total", "Number of retrieval errors.", atomic.LoadUint64(&m.retrievalErrors))

	m.durationMu.Lock()
	retrievalDuration := m.retrievalDuration
	llmDuration := m.llmCallsDuration
	m.durationMu.Unlock()

	sb.WriteString(fmt.Sprintf("# HELP %s_retrieval_duration_seconds_total Total retrieval duration.\n", prefix))
	sb.WriteString(fmt.Sprintf("# TYPE %s_retrieval_duration_seconds_total counter\n", prefix))
	sb.WriteString(fmt.Sprintf("%s_retrieval_duration_seconds_total %.6f\n\n", prefix, retrievalDuration))

	counter("llm_calls_total", "Total number of LLM calls.", atomic.LoadUint64(&m.llmCallsTotal))
	counter("llm_calls_errors_total", "Number of LLM call errors.", atomic.LoadUint64(&m.llmCallsErrors))
	counter("llm_tokens_prompt_total", "Total prompt tokens.", atomic.LoadUint64(&m.llmTokensPrompt))
	counter("llm_tokens_completion_total", "Total completion tokens.", atomic.LoadUint64(&m.llmTokensCompletion))

	sb.WriteString(fmt.Sprintf("# HELP %s_llm_calls_duration_seconds_total Total LLM call duration.\n", prefix))
	sb.WriteString(fmt.Sprintf("# TYPE %s_llm_calls_duration_seconds_total counter\n", prefix))
	sb.WriteString(fmt.Sprintf("%s_llm_calls_duration_seconds_total %.6f\n\n", prefix, llmDuration))

	counter("localizations_total", "Total number of answer localizations.", atomic.LoadUint64(&m.localizationsTotal))
	counter("localizations_failed_total", "Localizations degraded to empty text.", atomic.LoadUint64(&m.localizationsFailed))

	counter("chunks_registered_total", "Newly registered chunks.", atomic.LoadUint64(&m.chunksRegistered))
	counter("chunks_duplicate_total", "Idempotent registration hits.", atomic.LoadUint64(&m.chunksDuplicate))
	counter("ingest_errors_total", "Number of registration errors.", atomic.LoadUint64(&m.ingestErrors))

	counter("transcribe_jobs_total", "Total transcription jobs.", atomic.LoadUint64(&m.transcribeJobs))
	counter("transcribe_chunks_total", "Total transcribed audio chunks.", atomic.LoadUint64(&m.transcribeChunks))
	counter("transcribe_failures_total", "Audio chunks degraded to empty text.", atomic.LoadUint64(&m.transcribeFailures))

	uptime := time.Since(m.startTime).Seconds()
	sb.WriteString(fmt.Sprintf("# HELP %s_uptime_seconds Service uptime in seconds.\n", prefix))
	sb.WriteString(fmt.Sprintf("# TYPE %s_uptime_seconds gauge\n", prefix))
	sb.WriteString(fmt.Sprintf("%s_uptime_seconds %.2f\n\n", prefix, uptime))

	return sb.String()
}

// Stats 返回当前统计信息（用于 API）。
func (m *Metrics) Stats() map[string]interface{} {
	m.durationMu.Lock()
	retrievalDuration := m.retrievalDuration
	llmDuration := m.llmCallsDuration
	m.durationMu.Unlock()

	cacheHits := atomic.LoadUint64(&m.asksCacheHits)
	cacheMisses := atomic.LoadUint64(&m.asksCacheMiss)
	cacheTotal := cacheHits + cacheMisses
	cacheHitRate := 0.0
	if cacheTotal > 0 {
		cacheHitRate = float64(cacheHits) / float64(cacheTotal)
	}

	retrievalTotal := atomic.LoadUint64(&m.retrievalTotal)
	avgRetrievalDuration := 0.0
	if retrievalTotal > 0 {
		avgRetrievalDuration = retrievalDuration / float64(retrievalTotal)
	}

	llmTotal := atomic.LoadUint64(&m.llmCallsTotal)
	avgLLMDuration := 0.0
	if llmTotal > 0 {
		avgLLMDuration = llmDuration / float64(llmTotal)
	}

	return map[string]interface{}{
		"asks": map[string]interface{}{
			"total":          atomic.LoadUint64(&m.asksTotal),
			"cache_hits":     cacheHits,
			"cache_misses":   cacheMisses,
			"cache_hit_rate": cacheHitRate,
			"errors":         atomic.LoadUint64(&m.asksErrors),
		},
		"retrieval": map[string]interface{}{
			"total":               retrievalTotal,
			"total_duration_secs": retrievalDuration,
			"avg_duration_secs":   avgRetrievalDuration,
			"errors":              atomic.LoadUint64(&m.retrievalErrors),
		},
		"llm": map[string]interface{}{
			"calls_total":         llmTotal,
			"total_duration_secs": llmDuration,
			"avg_duration_secs":   avgLLMDuration,
			"errors":              atomic.LoadUint64(&m.llmCallsErrors),
			"tokens_prompt":       atomic.LoadUint64(&m.llmTokensPrompt),
			"tokens_completion":   atomic.LoadUint64(&m.llmTokensCompletion),
		},
		"localization": map[string]interface{}{
			"total":  atomic.LoadUint64(&m.localizationsTotal),
			"failed": atomic.LoadUint64(&m.localizationsFailed),
		},
		"ingest": map[string]interface{}{
			"chunks_registered": atomic.LoadUint64(&m.chunksRegistered),
			"chunks_duplicate":  atomic.LoadUint64(&m.chunksDuplicate),
			"errors":            atomic.LoadUint64(&m.ingestErrors),
		},
		"transcribe": map[string]interface{}{
			"jobs":     atomic.LoadUint64(&m.transcribeJobs),
			"chunks":   atomic.LoadUint64(&m.transcribeChunks),
			"failures": atomic.LoadUint64(&m.transcribeFailures),
		},
		"uptime_seconds": time.Since(m.startTime).Seconds(),
	}
}

// Reset 重置所有指标（仅用于测试）。
func (m *Metrics) Reset() {
	atomic.StoreUint64(&m.asksTotal, 0)
	atomic.StoreUint64(&m.asksCacheHits, 0)
	atomic.StoreUint64(&m.asksCacheMiss, 0)
	atomic.StoreUint64(&m.asksErrors, 0)
	atomic.StoreUint64(&m.retrievalTotal, 0)
	atomic.StoreUint64(&m.retrievalErrors, 0)
	atomic.StoreUint64(&m.llmCallsTotal, 0)
	atomic.StoreUint64(&m.llmCallsErrors, 0)
	atomic.StoreUint64(&m.llmTokensPrompt, 0)
	atomic.StoreUint64(&m.llmTokensCompletion, 0)
	atomic.StoreUint64(&m.localizationsTotal, 0)
	atomic.StoreUint64(&m.localizationsFailed, 0)
	atomic.StoreUint64(&m.chunksRegistered, 0)
	atomic.StoreUint64(&m.chunksDuplicate, 0)
	atomic.StoreUint64(&m.ingestErrors, 0)
	atomic.StoreUint64(&m.transcribeJobs, 0)
	atomic.StoreUint64(&m.transcribeChunks, 0)
	atomic.StoreUint64(&m.transcribeFailures, 0)

	m.durationMu.Lock()
	m.retrievalDuration = 0
	m.llmCallsDuration = 0
	m.startTime = time.Now()
	m.durationMu.Unlock()
}
