package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spacebio-rag/internal/app"
	"spacebio-rag/internal/transport/http/response"
)

type IndexHandler struct {
	indexService *app.IndexService
}

type CreateRunRequest struct {
	Trigger string `json:"trigger" binding:"max=32"`
}

func NewIndexHandler(indexService *app.IndexService) *IndexHandler {
	return &IndexHandler{indexService: indexService}
}

func (h *IndexHandler) Reload(c *gin.Context) {
	if _, err := h.indexService.Reload(); err != nil {
		writeError(c, err, "reload index failed")
		return
	}
	response.OK(c, h.indexService.Status())
}

func (h *IndexHandler) CreateRun(c *gin.Context) {
	var req CreateRunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
			return
		}
	}
	run, err := h.indexService.RequestRebuild(c.Request.Context(), req.Trigger)
	if err != nil {
		writeError(c, err, "queue rebuild failed")
		return
	}
	c.JSON(http.StatusAccepted, response.APIResponse{Code: response.CodeOK, Message: "queued", Data: run})
}

func (h *IndexHandler) ListRuns(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid limit")
		return
	}
	runs, err := h.indexService.ListRuns(limit)
	if err != nil {
		writeError(c, err, "list ingest runs failed")
		return
	}
	response.OK(c, gin.H{"runs": runs})
}
