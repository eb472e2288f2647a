package httpapi

import (
	"github.com/dmitrijs2005/gophfeed/internal/common"
	"github.com/gin-gonic/gin"
)

// writeError renders err as {"error": msg}, or as {"errors": [...]} when it
// carries field messages. Internal causes are logged, never sent.
func (s *Server) writeError(c *gin.Context, err error) {
	e := common.AsError(err)

	if e.Kind == common.KindInternal {
		s.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}

	if len(e.Fields) > 0 {
		c.AbortWithStatusJSON(e.Status(), gin.H{"errors": e.Fields})
		return
	}
	c.AbortWithStatusJSON(e.Status(), gin.H{"error": e.Message})
}
