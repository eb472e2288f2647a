package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/gophfeed/internal/common"
	"github.com/dmitrijs2005/gophfeed/internal/server/services"
	"github.com/dmitrijs2005/gophfeed/internal/server/validation"
	"github.com/gin-gonic/gin"
)

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func (s *Server) register(c *gin.Context) {
	var in services.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		s.writeError(c, validation.BindError(err))
		return
	}

	res, err := s.auth.Register(c.Request.Context(), in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (s *Server) login(c *gin.Context) {
	var in services.LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		s.writeError(c, validation.BindError(err))
		return
	}

	res, err := s.auth.Login(c.Request.Context(), in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// refresh treats a missing or unreadable body as a missing token, which is
// an authentication failure rather than a bad request.
func (s *Server) refresh(c *gin.Context) {
	var in refreshRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		s.logger.Debug(c.Request.Context(), "refresh body rejected", "error", err)
		s.writeError(c, common.Auth(common.ErrRefreshTokenRequired, ""))
		return
	}

	access, err := s.auth.Refresh(c.Request.Context(), in.RefreshToken)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": access})
}

func (s *Server) logout(c *gin.Context) {
	var in refreshRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		s.writeError(c, validation.BindError(err))
		return
	}

	if err := s.auth.Logout(c.Request.Context(), in.RefreshToken); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": services.MessageLoggedOut})
}

func (s *Server) logoutAll(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		s.writeError(c, common.Auth(common.ErrorUnauthorized, ""))
		return
	}

	n, err := s.auth.LogoutAll(c.Request.Context(), id.UserID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": services.MessageLoggedOut, "revoked": n})
}

func (s *Server) me(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		s.writeError(c, common.Auth(common.ErrorUnauthorized, ""))
		return
	}

	user, err := s.auth.Me(c.Request.Context(), id.UserID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
