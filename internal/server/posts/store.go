package posts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophfeed/internal/common"
)

type Store interface {
	List(ctx context.Context) ([]Post, error)
	Get(ctx context.Context, id int64) (*Post, error)
	Create(ctx context.Context, d Draft) (*Post, error)
	Update(ctx context.Context, id int64, d Draft) (*Post, error)
	Delete(ctx context.Context, id int64) (*Post, error)
	Like(ctx context.Context, id int64) (*Post, error)
}

// MemoryStore keeps posts in a map. Missing ids yield common.ErrorNotFound.
type MemoryStore struct {
	mu     sync.RWMutex
	posts  map[int64]*Post
	nextID int64
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{posts: make(map[int64]*Post), nextID: 1, now: time.Now}
}

func (s *MemoryStore) List(_ context.Context) ([]Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Post, 0, len(s.posts))
	for _, p := range s.posts {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id int64) (*Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *p
	return &out, nil
}

func (s *MemoryStore) Create(_ context.Context, d Draft) (*Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &Post{ID: s.nextID, CreatedAt: s.now().UTC()}
	apply(p, d)
	s.posts[p.ID] = p
	s.nextID++

	out := *p
	return &out, nil
}

// Update merges the non-nil draft fields. Id, creation time and likes are kept.
func (s *MemoryStore) Update(_ context.Context, id int64, d Draft) (*Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	apply(p, d)

	out := *p
	return &out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id int64) (*Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(s.posts, id)
	return p, nil
}

func (s *MemoryStore) Like(_ context.Context, id int64) (*Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	p.Likes++

	out := *p
	return &out, nil
}

func apply(p *Post, d Draft) {
	if d.Title != nil {
		p.Title = *d.Title
	}
	if d.Content != nil {
		p.Content = *d.Content
	}
	if d.Author != nil {
		p.Author = *d.Author
	}
}
