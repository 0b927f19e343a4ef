package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spacebio-rag/internal/app"
	"spacebio-rag/internal/transport/http/response"
)

type LibraryHandler struct {
	libraryService *app.LibraryService
}

type LibraryRequest struct {
	Q        string `form:"q"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Sort     string `form:"sort"`
	Order    string `form:"order"`
	FacetFilter
}

func NewLibraryHandler(libraryService *app.LibraryService) *LibraryHandler {
	return &LibraryHandler{libraryService: libraryService}
}

func (h *LibraryHandler) List(c *gin.Context) {
	var req LibraryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid query parameters")
		return
	}
	page, err := h.libraryService.Library(app.LibraryQuery{
		Text:     req.Q,
		Filters:  req.facets(),
		Page:     req.Page,
		PageSize: req.PageSize,
		Sort:     req.Sort,
		Order:    req.Order,
	})
	if err != nil {
		writeError(c, err, "library query failed")
		return
	}
	response.OK(c, page)
}

func (h *LibraryHandler) Stats(c *gin.Context) {
	response.OK(c, h.libraryService.Stats())
}
