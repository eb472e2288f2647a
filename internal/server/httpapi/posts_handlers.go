package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/gophfeed/internal/common"
	"github.com/dmitrijs2005/gophfeed/internal/server/posts"
	"github.com/dmitrijs2005/gophfeed/internal/server/validation"
	"github.com/gin-gonic/gin"
)

const msgPostNotFound = "post not found"

func postID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, common.InvalidFields(common.FieldError{Field: "id", Msg: "id must be a positive integer"})
	}
	return id, nil
}

func storeError(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.NotFound(err, msgPostNotFound)
	}
	return err
}

func (s *Server) listPosts(c *gin.Context) {
	list, err := s.posts.List(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) getPost(c *gin.Context) {
	id, err := postID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	p, err := s.posts.Get(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, storeError(err))
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) createPost(c *gin.Context) {
	var d posts.Draft
	if err := c.ShouldBindJSON(&d); err != nil {
		s.writeError(c, validation.BindError(err))
		return
	}
	if err := d.ValidateCreate(); err != nil {
		s.writeError(c, err)
		return
	}

	p, err := s.posts.Create(c.Request.Context(), d)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) updatePost(c *gin.Context) {
	id, err := postID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	var d posts.Draft
	if err := c.ShouldBindJSON(&d); err != nil {
		s.writeError(c, validation.BindError(err))
		return
	}
	if err := d.ValidateUpdate(); err != nil {
		s.writeError(c, err)
		return
	}

	p, err := s.posts.Update(c.Request.Context(), id, d)
	if err != nil {
		s.writeError(c, storeError(err))
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) deletePost(c *gin.Context) {
	id, err := postID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	p, err := s.posts.Delete(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, storeError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "post deleted", "post": p})
}

func (s *Server) likePost(c *gin.Context) {
	id, err := postID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	p, err := s.posts.Like(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, storeError(err))
		return
	}
	c.JSON(http.StatusOK, p)
}
