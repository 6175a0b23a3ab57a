// Package router 注册问答服务路由。
package router

import (
	"github.com/kart-io/logger"

	"github.com/adityatadimeti/omnis/internal/qa/handler"
	"github.com/adityatadimeti/omnis/pkg/server"
)

// Register 在 HTTP 服务上注册问答服务路由。
func Register(mgr *server.Manager, qaHandler *handler.QAHandler) {
	router := mgr.Router()

	v1 := router.Group("/v1")
	{
		qa := v1.Group("/qa")
		{
			// 片段注册与检索
			qa.POST("/chunks", qaHandler.RegisterChunk)
			qa.POST("/search", qaHandler.Search)

			// 完整问答流水线及各独立阶段
			qa.POST("/ask", qaHandler.Ask)
			qa.POST("/identify", qaHandler.Identify)
			qa.POST("/generate", qaHandler.Generate)
			qa.POST("/postprocess", qaHandler.Postprocess)
			qa.POST("/timestamp", qaHandler.Timestamp)

			// 音频转写
			qa.POST("/transcribe", qaHandler.Transcribe)

			// 统计
			qa.GET("/stats", qaHandler.Stats)
		}
	}

	// Prometheus 文本格式指标
	router.GET("/metrics", qaHandler.Metrics)

	logger.Info("QA routes registered")
}
