// Package http は回答生成と教科ナビゲーションの薄い HTTP API を提供する
package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	httpH "github.com/jinford/textbook-rag/internal/interface/http/handlers"
	httpMW "github.com/jinford/textbook-rag/internal/interface/http/middleware"
)

// RouterConfig はルーターが使うハンドラ群
type RouterConfig struct {
	AnswerHandler  *httpH.AnswerHandler
	SubjectHandler *httpH.SubjectHandler
	HealthHandler  *httpH.HealthHandler

	AllowOrigins []string
	Logger       *slog.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.RequestLogger(cfg.Logger))
	r.Use(httpMW.CORS(cfg.AllowOrigins...))

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.AnswerHandler != nil {
			api.POST("/ask", cfg.AnswerHandler.Ask)
		}
		if cfg.SubjectHandler != nil {
			api.GET("/subjects", cfg.SubjectHandler.ListSubjects)
			api.GET("/subjects/:id/units", cfg.SubjectHandler.ListUnits)
			api.GET("/subjects/:id/units/:unitId/lessons", cfg.SubjectHandler.ListLessons)
			api.GET("/subjects/:id/lessons/search", cfg.SubjectHandler.SearchLessons)
		}
	}

	return r
}
