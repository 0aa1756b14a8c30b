package handler

import (
	"net/http"

	"github.com/aman-churiwal/gatekeeper/internal/ratelimit"
	"github.com/gin-gonic/gin"
)

// Implemented by recorders that write through a circuit breaker
type breakerReporter interface {
	BreakerState() string
}

type AdminHandler struct {
	recorder ratelimit.Recorder
	policies []ratelimit.EndpointPolicy
}

func NewAdminHandler(recorder ratelimit.Recorder, policies []ratelimit.EndpointPolicy) *AdminHandler {
	return &AdminHandler{recorder: recorder, policies: policies}
}

// Handles GET /api/admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	rejections, err := h.recorder.Snapshot(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	policies := make([]gin.H, 0, len(h.policies))
	for _, p := range h.policies {
		policies = append(policies, gin.H{
			"name":      p.Name,
			"prefix":    p.Prefix,
			"requests":  p.Requests,
			"window_ms": p.WindowMs(),
		})
	}

	stats := gin.H{
		"rejections": rejections,
		"policies":   policies,
	}
	if br, ok := h.recorder.(breakerReporter); ok {
		stats["recorder_breaker"] = br.BreakerState()
	}

	respond(c, http.StatusOK, stats)
}
