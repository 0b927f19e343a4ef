package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"spacebio-rag/internal/ai"
	"spacebio-rag/internal/app"
	"spacebio-rag/internal/index"
	"spacebio-rag/internal/retrieval"
	"spacebio-rag/internal/transport/http/response"
)

// writeError maps service errors onto the response envelope. fallback is the
// message for unexpected failures, whose details stay out of the response.
func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput), errors.Is(err, retrieval.ErrInvalidQuery):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, response.CodeInvalidCredentials, "invalid password")
	case errors.Is(err, retrieval.ErrIndexUnavailable):
		response.Error(c, http.StatusServiceUnavailable, response.CodeIndexUnavailable,
			"index missing: run ingest with boot_mode=full to build it")
	case errors.Is(err, index.ErrDimensionMismatch):
		response.Error(c, http.StatusInternalServerError, response.CodeIndexMismatch,
			"embedding dimension does not match index: rebuild with the configured embedding model")
	case errors.Is(err, ai.ErrEmbeddingService):
		response.Error(c, http.StatusBadGateway, response.CodeEmbeddingFailed, "embedding service failed")
	case errors.Is(err, app.ErrGenerationFailed):
		response.Error(c, http.StatusBadGateway, response.CodeGenerationFailed, "generation failed")
	case errors.Is(err, app.ErrIngestDisabled):
		response.Error(c, http.StatusServiceUnavailable, response.CodeIngestDisabled, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
