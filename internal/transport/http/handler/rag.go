package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"spacebio-rag/internal/app"
	"spacebio-rag/internal/facet"
	"spacebio-rag/internal/model"
	"spacebio-rag/internal/transport/http/response"
)

type RAGHandler struct {
	ragService *app.RAGService
}

type FacetFilter struct {
	Organism string `json:"organism" form:"organism"`
	Stressor string `json:"stressor" form:"stressor"`
	Platform string `json:"platform" form:"platform"`
}

func (f FacetFilter) facets() facet.Facets {
	return facet.Facets{
		Organism: model.StringPtr(strings.TrimSpace(f.Organism)),
		Stressor: model.StringPtr(strings.TrimSpace(f.Stressor)),
		Platform: model.StringPtr(strings.TrimSpace(f.Platform)),
	}
}

type AskRequest struct {
	Question string `json:"question" binding:"required"`
	TopK     int    `json:"top_k"`
	FacetFilter
}

type AskSimpleRequest struct {
	Question string `json:"question" binding:"required"`
	TopK     int    `json:"top_k"`
}

type ContextRequest struct {
	Question string   `json:"question"`
	TopK     int      `json:"top_k"`
	Paths    []string `json:"paths"`
	FacetFilter
}

func (r ContextRequest) input() app.ContextInput {
	return app.ContextInput{
		Question: r.Question,
		TopK:     r.TopK,
		Filters:  r.facets(),
		Paths:    r.Paths,
	}
}

type StoryRequest struct {
	ContextRequest
	Mode   string `json:"mode"`
	Length string `json:"length"`
}

func NewRAGHandler(ragService *app.RAGService) *RAGHandler {
	return &RAGHandler{ragService: ragService}
}

func (h *RAGHandler) Search(c *gin.Context) {
	topK, err := queryInt(c, "top_k")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid top_k")
		return
	}
	results, err := h.ragService.Search(c.Request.Context(), c.Query("q"), topK)
	if err != nil {
		writeError(c, err, "search failed")
		return
	}
	response.OK(c, gin.H{"results": results})
}

func (h *RAGHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	result, err := h.ragService.Ask(c.Request.Context(), app.AskInput{
		Question: req.Question,
		TopK:     req.TopK,
		Filters:  req.facets(),
	})
	if err != nil {
		writeError(c, err, "ask failed")
		return
	}
	response.OK(c, result)
}

func (h *RAGHandler) AskSimple(c *gin.Context) {
	var req AskSimpleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	result, err := h.ragService.Ask(c.Request.Context(), app.AskInput{
		Question: req.Question,
		TopK:     req.TopK,
		Rerank:   true,
	})
	if err != nil {
		writeError(c, err, "ask failed")
		return
	}
	response.OK(c, result)
}

func (h *RAGHandler) Context(c *gin.Context) {
	var req ContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	snippets, err := h.ragService.Context(c.Request.Context(), req.input())
	if err != nil {
		writeError(c, err, "context selection failed")
		return
	}
	response.OK(c, gin.H{"context": snippets})
}

func (h *RAGHandler) MindMap(c *gin.Context) {
	var req ContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	result, err := h.ragService.MindMap(c.Request.Context(), req.input())
	if err != nil {
		writeError(c, err, "mind map failed")
		return
	}
	response.OK(c, result)
}

func (h *RAGHandler) Story(c *gin.Context) {
	var req StoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	result, err := h.ragService.Story(c.Request.Context(), app.StoryInput{
		ContextInput: req.input(),
		Mode:         req.Mode,
		Length:       req.Length,
	})
	if err != nil {
		writeError(c, err, "story failed")
		return
	}
	response.OK(c, result)
}

// queryInt returns 0 for a missing parameter.
func queryInt(c *gin.Context, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
