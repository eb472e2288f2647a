// Package refreshtokens tracks the refresh tokens the server has issued and
// not yet revoked. A refresh token is usable only while it is both validly
// signed and present here.
package refreshtokens

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophfeed/internal/common"
)

// Entry is the server-side record of one refresh token.
type Entry struct {
	OwnerID   string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type Registry interface {
	Store(ctx context.Context, token, ownerID string, expiresAt time.Time) error
	// Validate returns the entry, or common.ErrorNotFound when the token is
	// unknown, revoked or past its expiry.
	Validate(ctx context.Context, token string) (*Entry, error)
	// Revoke is idempotent.
	Revoke(ctx context.Context, token string) error
	RevokeAllForOwner(ctx context.Context, ownerID string) (int, error)
}

// MemoryRegistry is a process-local Registry. Entries do not survive a
// restart. Expired entries are dropped lazily on lookup.
type MemoryRegistry struct {
	mu      sync.Mutex
	entries map[string]Entry
	now     func() time.Time
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{entries: make(map[string]Entry), now: time.Now}
}

func (r *MemoryRegistry) WithClock(now func() time.Time) *MemoryRegistry {
	r.now = now
	return r
}

func (r *MemoryRegistry) Store(_ context.Context, token, ownerID string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[token] = Entry{OwnerID: ownerID, ExpiresAt: expiresAt, CreatedAt: r.now()}
	return nil
}

func (r *MemoryRegistry) Validate(_ context.Context, token string) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if r.now().After(e.ExpiresAt) {
		delete(r.entries, token)
		return nil, common.ErrorNotFound
	}
	return &e, nil
}

func (r *MemoryRegistry) Revoke(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, token)
	return nil
}

func (r *MemoryRegistry) RevokeAllForOwner(_ context.Context, ownerID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for token, e := range r.entries {
		if e.OwnerID == ownerID {
			delete(r.entries, token)
			n++
		}
	}
	return n, nil
}

// Len reports the number of stored entries, expired ones included.
func (r *MemoryRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
