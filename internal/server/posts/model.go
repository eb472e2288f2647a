// Package posts is the protected-resource collection served next to the
// user endpoints. Reads are public; writes require a verified access token.
package posts

import (
	"time"

	"github.com/dmitrijs2005/gophfeed/internal/server/validation"
)

type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	Likes     int       `json:"likes"`
}

// Draft is the body of create and update requests. Nil fields are left
// untouched on update, so the tags here only check values that are present.
type Draft struct {
	Title   *string `json:"title" binding:"omitempty,min=3,max=200"`
	Content *string `json:"content" binding:"omitempty,min=10"`
	Author  *string `json:"author" binding:"omitempty,notblank"`
}

// newPost is the rule set for create, where every field is required.
type newPost struct {
	Title   *string `binding:"required,notblank,min=3,max=200"`
	Content *string `binding:"required,notblank,min=10"`
	Author  *string `binding:"required,notblank"`
}

// ValidateCreate requires every field.
func (d *Draft) ValidateCreate() error {
	return validation.Struct(&newPost{Title: d.Title, Content: d.Content, Author: d.Author})
}

// ValidateUpdate checks only the fields that are present.
func (d *Draft) ValidateUpdate() error {
	return validation.Struct(d)
}
