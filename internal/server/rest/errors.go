package rest

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/diarykeeper/internal/common"
	"github.com/dmitrijs2005/diarykeeper/internal/server/objectstore"
	"github.com/dmitrijs2005/diarykeeper/internal/server/services"
	"github.com/gin-gonic/gin"
)

// writeError is the single place service errors become HTTP responses.
func (s *Server) writeError(c *gin.Context, message string, err error) {
	var cleanup *services.AttachmentCleanupError
	if errors.As(err, &cleanup) {
		failures := cleanup.Failures
		if failures == nil {
			failures = []objectstore.DeleteError{}
		}
		c.JSON(http.StatusBadGateway, gin.H{
			"message": "Failed to delete attachments",
			"error":   err.Error(),
			"errors":  failures,
		})
		return
	}

	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), message, "error", err)
	}
	c.JSON(status, gin.H{"message": message, "error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrForbidden),
		errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrAttachmentCleanup):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
