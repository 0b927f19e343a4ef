package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spacebio-rag/internal/app"
	"spacebio-rag/internal/transport/http/middleware"
	"spacebio-rag/internal/transport/http/response"
)

type AuthHandler struct {
	authService *app.AuthService
}

type LoginRequest struct {
	Password string `json:"password" binding:"max=256"`
}

func NewAuthHandler(authService *app.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.authService.Login(req.Password)
	if err != nil {
		writeError(c, err, "login failed")
		return
	}
	response.OK(c, result)
}

func (h *AuthHandler) Me(c *gin.Context) {
	subject := c.GetString(middleware.ContextSubjectKey)
	if subject == "" {
		subject = "user"
	}
	response.OK(c, gin.H{
		"subject":      subject,
		"auth_enabled": h.authService.Enabled(),
	})
}
