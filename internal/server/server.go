package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agenthands/seecat/internal/apperr"
	"github.com/agenthands/seecat/internal/core"
	"github.com/agenthands/seecat/internal/metrics"
)

type Server struct {
	Pipeline    *core.Pipeline
	Metrics     *metrics.Metrics
	MetricsPath string
	Logger      *zap.Logger
}

func NewServer(p *core.Pipeline, m *metrics.Metrics, metricsPath string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		Pipeline:    p,
		Metrics:     m,
		MetricsPath: metricsPath,
		Logger:      logger,
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.RequestID(), s.AccessLog(), s.Instrument())

	r.GET("/healthz", s.Health)
	if s.Metrics != nil && s.MetricsPath != "" {
		r.GET(s.MetricsPath, gin.WrapH(s.Metrics.Handler()))
	}

	api := r.Group("/api")
	api.GET("/enrichment", s.Enrich)
	api.GET("/transform", s.Transform)
	api.GET("/transform-v1", s.TransformIdentity)
	api.GET("/get-material-category", s.GetMaterialCategory)
	api.GET("/unspsc-search", s.SearchTaxonomy)
	api.GET("/ask-me", s.AskMe)

	return r
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Enrich serves one enriched record. The record is written as produced so
// that identity values keep their catalog bytes.
func (s *Server) Enrich(c *gin.Context) {
	rec, err := s.Pipeline.Enrich(c.Request.Context(), c.Query("material_name"), c.Query("category_code"))
	if err != nil {
		s.fail(c, err)
		return
	}
	body, err := rec.MarshalJSON()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func (s *Server) Transform(c *gin.Context) {
	names, err := s.Pipeline.Attributes(c.Request.Context(), c.Query("category_code"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, names)
}

func (s *Server) TransformIdentity(c *gin.Context) {
	mapping, err := s.Pipeline.IdentityOf(c.Request.Context(), c.Query("category_code"))
	if err != nil {
		s.fail(c, err)
		return
	}
	body, err := mapping.MarshalJSON()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func (s *Server) GetMaterialCategory(c *gin.Context) {
	id := c.Query("id")
	if strings.TrimSpace(id) == "" {
		s.fail(c, apperr.MissingParameter("id"))
		return
	}
	body, err := s.Pipeline.Category(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func (s *Server) SearchTaxonomy(c *gin.Context) {
	entries, err := s.Pipeline.Search(c.Request.Context(), c.Query("code"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) AskMe(c *gin.Context) {
	out, err := s.Pipeline.Explain(c.Request.Context(), c.Query("explain"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"explanation": out})
}

// fail writes the error body. Partial results are never sent.
func (s *Server) fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	message := "Internal server error"
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{
		"error":     message,
		"kind":      apperr.KindOf(err),
		"retryable": apperr.IsRetryable(err),
	})
}
