package errors

// 问答服务代码: 20，转写服务代码: 21 (业务服务范围 20-79)
// 错误码格式: AABBCCC
// - AA: 服务代码
// - BB: 类别代码
// - CCC: 序号

var (
	// 请求参数错误 (类别 01)
	ErrQAInvalidRequest    = Register(New(MakeCode(ServiceQA, CategoryRequest, 1), 400, "Invalid request parameters", "请求参数无效"))
	ErrQAEmptyQuestion     = Register(New(MakeCode(ServiceQA, CategoryRequest, 2), 400, "Question must not be empty", "问题不能为空"))
	ErrQABadTimestamp      = Register(New(MakeCode(ServiceQA, CategoryRequest, 3), 400, "Malformed timestamp, expected mm:ss", "时间戳格式无效，期望 mm:ss"))
	ErrQADimensionMismatch = Register(New(MakeCode(ServiceQA, CategoryRequest, 4), 400, "Embedding dimension mismatch", "向量维度不匹配"))

	// 资源错误 (类别 04)
	ErrQATenantNotFound = Register(New(MakeCode(ServiceQA, CategoryResource, 1), 404, "Tenant not found", "租户不存在"))
	ErrQANoResults      = Register(New(MakeCode(ServiceQA, CategoryResource, 2), 404, "No results found", "未找到结果"))

	// 内部错误 (类别 07/08)
	ErrQAIngestFailed    = Register(New(MakeCode(ServiceQA, CategoryInternal, 1), 500, "Chunk ingestion failed", "分块写入失败"))
	ErrQARetrievalFailed = Register(New(MakeCode(ServiceQA, CategoryInternal, 2), 500, "Retrieval failed", "检索失败"))
	ErrQAStoreFailed     = Register(New(MakeCode(ServiceQA, CategoryDatabase, 1), 500, "Vector store operation failed", "向量库操作失败"))
	ErrQAStatsUnavailable = Register(New(MakeCode(ServiceQA, CategoryInternal, 3), 500, "Statistics unavailable", "统计信息不可用"))

	// 超时 (类别 11)
	ErrQAQueryTimeout = Register(New(MakeCode(ServiceQA, CategoryTimeout, 1), 408, "Query timeout", "查询超时"))

	// LLM 供应商错误 (服务 90)
	ErrLLMEmbeddingFailed     = Register(New(MakeCode(ServiceThirdPartyLLM, CategoryNetwork, 1), 502, "Embedding request failed", "向量化请求失败"))
	ErrLLMGenerationFailed    = Register(New(MakeCode(ServiceThirdPartyLLM, CategoryNetwork, 2), 502, "Generation request failed", "生成请求失败"))
	ErrLLMTranscriptionFailed = Register(New(MakeCode(ServiceThirdPartyLLM, CategoryNetwork, 3), 502, "Transcription request failed", "转写请求失败"))

	// 转写管线错误 (服务 21)
	ErrTranscribeInvalidMedia = Register(New(MakeCode(ServiceTranscribe, CategoryRequest, 1), 400, "Invalid or unreadable media file", "媒体文件无效或不可读"))
	ErrTranscribeFailed       = Register(New(MakeCode(ServiceTranscribe, CategoryInternal, 1), 500, "Audio transcription failed", "音频转写失败"))
)
