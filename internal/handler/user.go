package handler

import (
	"net/http"

	"github.com/aman-churiwal/gatekeeper/internal/apperror"
	"github.com/aman-churiwal/gatekeeper/internal/middleware"
	"github.com/aman-churiwal/gatekeeper/internal/service"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	service *service.UserService
}

func NewUserHandler(service *service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// Handles GET /api/me
func (h *UserHandler) Me(c *gin.Context) {
	p := middleware.PrincipalFrom(c)
	if p == nil {
		fail(c, apperror.Unauthorized(""))
		return
	}

	user, err := h.service.Get(c.Request.Context(), p, p.ID)
	if err != nil {
		fail(c, err)
		return
	}

	respond(c, http.StatusOK, user)
}

// Handles PATCH /api/me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req struct {
		Name *string `json:"name"`
		Bio  *string `json:"bio"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperror.BadRequest("Invalid profile payload").Wrap(err))
		return
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), middleware.PrincipalFrom(c), service.ProfileUpdate{
		Name: req.Name,
		Bio:  req.Bio,
	})
	if err != nil {
		fail(c, err)
		return
	}

	respond(c, http.StatusOK, user)
}

// Handles GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.service.Get(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	respond(c, http.StatusOK, user)
}

// Handles GET /api/admin/users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.service.List(c.Request.Context(), middleware.PrincipalFrom(c))
	if err != nil {
		fail(c, err)
		return
	}

	respond(c, http.StatusOK, users)
}

// Handles PATCH /api/admin/users/:id/role
func (h *UserHandler) UpdateRole(c *gin.Context) {
	var req struct {
		Role string `json:"role" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperror.BadRequest("Role is required").Wrap(err))
		return
	}

	if err := h.service.UpdateRole(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"), req.Role); err != nil {
		fail(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"message": "Role updated successfully"})
}
