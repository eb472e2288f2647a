// Package broadcast carries session signals between client processes that
// share a data directory, the way browser tabs share storage events.
// Delivery is at-least-once and eventually consistent.
package broadcast

import (
	"context"
	"time"
)

type EventType string

const (
	EventLogout         EventType = "logout"
	EventLogin          EventType = "login"
	EventSessionExpired EventType = "session-expired"
)

type Event struct {
	Type EventType `json:"type"`
	// Origin identifies the publishing process so it can skip its own events.
	Origin string    `json:"origin"`
	At     time.Time `json:"at"`
}

type Bus interface {
	Publish(ctx context.Context, e Event) error
	// Subscribe delivers events until ctx is done, then closes the channel.
	Subscribe(ctx context.Context) (<-chan Event, error)
}
