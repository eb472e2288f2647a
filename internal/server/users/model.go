// Package users is the credential store: user records keyed by id and by
// unique email, backed by memory or PostgreSQL.
package users

import "time"

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Public is the shape of a user that may leave the server.
type Public struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) Public() Public {
	return Public{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}
