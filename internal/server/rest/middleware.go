package rest

import (
	"net/http"
	"strings"

	"github.com/dmitrijs2005/diarykeeper/internal/common"
	"github.com/dmitrijs2005/diarykeeper/internal/server/auth"
	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// authenticate verifies the bearer token and consults the policy. Any
// failure ends the request with 403.
func (s *Server) authenticate(c *gin.Context) {
	ctx := c.Request.Context()

	header := c.GetHeader(common.AuthorizationHeaderName)
	raw, ok := strings.CutPrefix(header, common.BearerPrefix)
	if !ok || strings.TrimSpace(raw) == "" {
		forbid(c)
		return
	}

	id, err := s.verifier.Verify(ctx, strings.TrimSpace(raw))
	if err != nil {
		s.logger.Debug(ctx, "token rejected", "error", err)
		forbid(c)
		return
	}
	if err := s.policy.Authorize(ctx, id); err != nil {
		s.logger.Warn(ctx, "caller not authorized", "subject", id.Subject, "email", id.Email)
		forbid(c)
		return
	}

	c.Set(identityKey, id)
	c.Next()
}

func forbid(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Forbidden, begone!"})
}

// userID returns the verified caller's subject, or "" outside the gate.
func userID(c *gin.Context) string {
	v, ok := c.Get(identityKey)
	if !ok {
		return ""
	}
	id, _ := v.(auth.Identity)
	return id.Subject
}
