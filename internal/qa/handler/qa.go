// Package handler 提供问答服务的 HTTP 处理器。
package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/adityatadimeti/omnis/internal/pkg/httputils"
	"github.com/adityatadimeti/omnis/internal/qa/biz"
	"github.com/adityatadimeti/omnis/internal/qa/metrics"
	"github.com/adityatadimeti/omnis/internal/qa/store"
	"github.com/adityatadimeti/omnis/internal/transcribe"
	"github.com/adityatadimeti/omnis/pkg/utils/errors"
)

// QAHandler 问答服务 HTTP 处理器。
type QAHandler struct {
	service    biz.Service
	transcribe *transcribe.Pipeline
}

// NewQAHandler 创建处理器实例。pipeline 可以为 nil，此时
// 转写接口返回内部错误。
func NewQAHandler(service biz.Service, pipeline *transcribe.Pipeline) *QAHandler {
	return &QAHandler{
		service:    service,
		transcribe: pipeline,
	}
}

// RegisterChunkRequest 片段注册请求体。
type RegisterChunkRequest struct {
	UserName        string `json:"user_name" binding:"required"`
	ChunkURL        string `json:"chunk_url" binding:"required"`
	ChunkText       string `json:"chunk_text" binding:"required"`
	OriginalFileURL string `json:"original_file_url" binding:"required"`
	FileType        string `json:"file_type"`
	FileName        string `json:"file_name"`
}

// RegisterChunk 幂等注册一个片段。
func (h *QAHandler) RegisterChunk(c *gin.Context) {
	var req RegisterChunkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrQAInvalidRequest.WithMessage(err.Error()), nil)
		return
	}

	if req.FileType == "" {
		req.FileType = "text"
	}

	result, err := h.service.RegisterChunk(c.Request.Context(), &biz.RegisterRequest{
		Tenant:          store.SanitizeTenant(req.UserName),
		ChunkURL:        req.ChunkURL,
		ChunkText:       req.ChunkText,
		OriginalFileURL: req.OriginalFileURL,
		FileType:        req.FileType,
		FileName:        req.FileName,
	})
	httputils.WriteResponse(c, err, result)
}

// SearchRequest 检索请求体。
type SearchRequest struct {
	UserName   string `json:"user_name" binding:"required"`
	Query      string `json:"query" binding:"required"`
	NumResults int    `json:"num_results"`
}

// Search 租户内 Top-K 检索。租户无数据时返回空结果。
func (h *QAHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrQAInvalidRequest.WithMessage(err.Error()), nil)
		return
	}

	results, err := h.service.Search(c.Request.Context(), store.SanitizeTenant(req.UserName), req.Query, req.NumResults)
	httputils.WriteResponse(c, err, gin.H{"results": results})
}

// AskRequest 问答请求体。
type AskRequest struct {
	UserName string `json:"user_name" binding:"required"`
	Question string `json:"question" binding:"required"`
}

// Ask 执行完整的检索-归因-生成流水线。
func (h *QAHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrQAInvalidRequest.WithMessage(err.Error()), nil)
		return
	}

	result, err := h.service.Ask(c.Request.Context(), store.SanitizeTenant(req.UserName), req.Question)
	httputils.WriteResponse(c, err, result)
}

// IdentifyChunk 单条定位输入。
type IdentifyChunk struct {
	Text     string `json:"text" binding:"required"`
	FileType string `json:"file_type"`
}

// IdentifyRequest 定位请求体。
type IdentifyRequest struct {
	Question string          `json:"question" binding:"required"`
	Chunks   []IdentifyChunk `json:"chunks" binding:"required,min=1"`
}

// IdentifyItem 单条定位结果。
type IdentifyItem struct {
	Snippet string `json:"snippet"`
	Failed  bool   `json:"failed"`
}

// Identify 对给定片段逐条定位答案原句。
func (h *QAHandler) Identify(c *gin.Context) {
	var req IdentifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrQAInvalidRequest.WithMessage(err.Error()), nil)
		return
	}

	inputs := make([]biz.LocalizeInput, len(req.Chunks))
	for i, chunk := range req.Chunks {
		inputs[i] = biz.LocalizeInput{Text: chunk.Text, FileType: chunk.FileType}
	}

	localizations := h.service.Identify(c.Request.Context(), req.Question, inputs)
	items := make([]IdentifyItem, len(localizations))
	for i, loc := range localizations {
		items[i] = IdentifyItem{Snippet: loc.Snippet, Failed: loc.Failed}
	}
	httputils.WriteResponse(c, nil, gin.H{"snippets": items})
}

// GenerateRequest 生成请求体。
type GenerateRequest struct {
	Question string   `json:"question" binding:"required"`
	Snippets []string `json:"snippets"`
}

// Generate 基于定位片段生成答案内容。
func (h *QAHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrQAInvalidRequest.WithMessage(err.Error()), nil)
		return
	}

	content, err := h.service.Generate(c.Request.Context(), req.Question, req.Snippets)
	httputils.WriteResponse(c, err, gin.H{"content": content})
}

// PostprocessRequest 后处理请求体。
type PostprocessRequest struct {
	Content    string          `json:"content" binding:"required"`
	References []biz.Reference `json:"references"`
}

// Postprocess 在生成内容后追加参考资料区块。
func (h *QAHandler) Postprocess(c *gin.Context) {
	var req PostprocessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrQAInvalidRequest.WithMessage(err.Error()), nil)
		return
	}

	content := h.service.Postprocess(req.Content, req.References)
	httputils.WriteResponse(c, nil, gin.H{"content": content})
}

// TimestampRequest 时间戳归因请求体。
type TimestampRequest struct {
	Sentence   string `json:"sentence" binding:"required"`
	Transcript string `json:"transcript" binding:"required"`
}

// Timestamp 将句子归因到转写文本中的时间戳分段。
// 转写文本无合法分段或无词集重叠时 found 为 false。
func (h *QAHandler) Timestamp(c *gin.Context) {
	var req TimestampRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrQAInvalidRequest.WithMessage(err.Error()), nil)
		return
	}

	result, found := h.service.VideoTimestamp(req.Sentence, req.Transcript)
	if !found {
		httputils.WriteResponse(c, nil, gin.H{"found": false})
		return
	}
	httputils.WriteResponse(c, nil, gin.H{"found": true, "result": result})
}

// TranscribeRequest 转写请求体。
type TranscribeRequest struct {
	AudioPath string `json:"audio_path" binding:"required"`
}

// Transcribe 对服务器本地音频文件执行转写，返回产物路径。
func (h *QAHandler) Transcribe(c *gin.Context) {
	var req TranscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrQAInvalidRequest.WithMessage(err.Error()), nil)
		return
	}

	if h.transcribe == nil {
		httputils.WriteResponse(c, errors.ErrTranscribeFailed.WithMessage("transcription pipeline not configured"), nil)
		return
	}

	result, err := h.transcribe.Run(c.Request.Context(), req.AudioPath)
	if err != nil {
		logger.Errorw("transcription job failed", "audio", req.AudioPath, "error", err.Error())
	}
	httputils.WriteResponse(c, err, result)
}

// Stats 返回租户统计与业务指标。user_name 可选。
func (h *QAHandler) Stats(c *gin.Context) {
	tenant := ""
	if userName := c.Query("user_name"); userName != "" {
		tenant = store.SanitizeTenant(userName)
	}

	stats, err := h.service.Stats(c.Request.Context(), tenant)
	httputils.WriteResponse(c, err, stats)
}

// Metrics 按 Prometheus 文本格式导出业务指标。
func (h *QAHandler) Metrics(c *gin.Context) {
	c.String(200, metrics.Get().Export("omnis", "qa"))
}
