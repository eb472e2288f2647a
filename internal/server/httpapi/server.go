// Package httpapi is the REST transport of the server: user endpoints,
// the posts collection and the bearer-token guard, on top of gin.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophfeed/internal/logging"
	"github.com/dmitrijs2005/gophfeed/internal/server/auth"
	"github.com/dmitrijs2005/gophfeed/internal/server/posts"
	"github.com/dmitrijs2005/gophfeed/internal/server/services"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	address        string
	auth           *services.AuthService
	posts          posts.Store
	signer         *auth.Signer
	logger         logging.Logger
	allowedOrigins []string
	engine         *gin.Engine
}

func NewServer(address string, l logging.Logger, as *services.AuthService, ps posts.Store, signer *auth.Signer, allowedOrigins []string) *Server {
	s := &Server{
		address:        address,
		auth:           as,
		posts:          ps,
		signer:         signer,
		logger:         l.With("module", "http_server"),
		allowedOrigins: allowedOrigins,
	}
	s.engine = s.routes()
	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), securityHeaders(), cors(s.allowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	guard := Guard(s.signer)

	user := r.Group("/user")
	{
		user.POST("/register", s.register)
		user.POST("/login", s.login)
		user.POST("/refresh", s.refresh)
		user.POST("/logout", s.logout)
		user.POST("/logout-all", guard, s.logoutAll)
		user.GET("/me", guard, s.me)
	}

	p := r.Group("/posts")
	{
		p.GET("", s.listPosts)
		p.GET("/:id", s.getPost)
		p.POST("", guard, s.createPost)
		p.PUT("/:id", guard, s.updatePost)
		p.DELETE("/:id", guard, s.deletePost)
		p.PATCH("/:id/like", guard, s.likePost)
	}

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
