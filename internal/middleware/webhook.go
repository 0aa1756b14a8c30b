package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/aman-churiwal/gatekeeper/internal/apperror"
	"github.com/aman-churiwal/gatekeeper/internal/security"
	"github.com/gin-gonic/gin"
)

const (
	SignatureHeader = "X-Signature-256"
	RawBodyKey      = "raw_body"

	maxWebhookBody = 1 << 20
)

// RequireWebhookSignature authenticates provider callbacks by the HMAC of the
// raw body. The body is restored for the handler and kept under RawBodyKey.
func RequireWebhookSignature(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				abortWithError(c, apperror.BadRequest("Payload too large"))
				return
			}
			abortWithError(c, apperror.BadRequest("Unreadable payload").Wrap(err))
			return
		}

		if !security.VerifyWebhookSignature(payload, c.GetHeader(SignatureHeader), secret) {
			abortWithError(c, apperror.Unauthorized("Invalid signature").WithCode("INVALID_SIGNATURE"))
			return
		}

		c.Set(RawBodyKey, payload)
		c.Request.Body = io.NopCloser(bytes.NewReader(payload))

		c.Next()
	}
}
