package handler

import (
	"net/http"
	"unicode/utf8"

	"github.com/aman-churiwal/gatekeeper/internal/apperror"
	"github.com/aman-churiwal/gatekeeper/internal/security"
	"github.com/gin-gonic/gin"
)

const maxDocumentLength = 500_000

// Screens user submitted Markdown before it is handed to rendering or storage
type ContentHandler struct{}

func NewContentHandler() *ContentHandler {
	return &ContentHandler{}
}

type contentRequest struct {
	Content string `json:"content"`
}

// Handles POST /api/content/check
func (h *ContentHandler) Check(c *gin.Context) {
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperror.BadRequest("Invalid content payload").Wrap(err))
		return
	}

	respond(c, http.StatusOK, gin.H{
		"suspicious": security.ContainsSuspiciousContent(req.Content),
	})
}

// Handles POST /api/upload
func (h *ContentHandler) Upload(c *gin.Context) {
	var req struct {
		Filename string `json:"filename" binding:"required"`
		Content  string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperror.BadRequest("Filename and content are required").Wrap(err))
		return
	}

	if utf8.RuneCountInString(req.Content) > maxDocumentLength {
		fail(c, apperror.BadRequest("Document is too large").WithCode("DOCUMENT_TOO_LARGE"))
		return
	}
	if security.ContainsSuspiciousContent(req.Content) || security.ContainsSuspiciousContent(req.Filename) {
		fail(c, apperror.BadRequest("Document contains disallowed content").WithCode("SUSPICIOUS_CONTENT"))
		return
	}

	content := security.SanitizeInput(req.Content)
	respond(c, http.StatusCreated, gin.H{
		"filename": security.StripMarkup(req.Filename),
		"size":     len(content),
	})
}

// Handles POST /api/premium/export
func (h *ContentHandler) Export(c *gin.Context) {
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Content == "" {
		fail(c, apperror.BadRequest("Content is required"))
		return
	}

	respond(c, http.StatusOK, gin.H{
		"format":  "text",
		"content": security.StripMarkup(security.SanitizeInput(req.Content)),
	})
}
