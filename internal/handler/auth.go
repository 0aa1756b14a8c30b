package handler

import (
	"net/http"

	"github.com/aman-churiwal/gatekeeper/internal/apperror"
	"github.com/aman-churiwal/gatekeeper/internal/middleware"
	"github.com/aman-churiwal/gatekeeper/internal/security"
	"github.com/aman-churiwal/gatekeeper/internal/service"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	service      *service.AuthService
	csrfSecret   string
	secureCookie bool
	cookieMaxAge int
}

func NewAuthHandler(service *service.AuthService, csrfSecret string, secureCookie bool, expiryHours int) *AuthHandler {
	return &AuthHandler{
		service:      service,
		csrfSecret:   csrfSecret,
		secureCookie: secureCookie,
		cookieMaxAge: expiryHours * 3600,
	}
}

// Handles POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Name     string `json:"name"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperror.BadRequest("Email and password are required").Wrap(err))
		return
	}
	user, err := h.service.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		fail(c, err)
		return
	}

	respond(c, http.StatusCreated, user)
}

// Handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperror.BadRequest("Email and password are required").Wrap(err))
		return
	}

	token, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, token, h.cookieMaxAge, "/", "", h.secureCookie, true)

	respond(c, http.StatusOK, gin.H{"token": token})
}

// Handles GET /api/csrf
func (h *AuthHandler) CSRFToken(c *gin.Context) {
	token, err := security.GenerateCSRFToken(h.csrfSecret)
	if err != nil {
		fail(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"csrf_token": token})
}
