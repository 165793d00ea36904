package inmemory

import (
	"context"
	"sync"

	"github.com/UkralStul/posts-service/internal/domain"
	"github.com/UkralStul/posts-service/internal/postfilter"
	"github.com/UkralStul/posts-service/internal/storage"
	"github.com/google/uuid"
)

// Store реализует интерфейс Storage в памяти.
// Один мьютекс на всю коллекцию: каждая операция видит целостный снимок.
type Store struct {
	mu    sync.Mutex
	posts []*domain.Post
	clock storage.Clock
}

// Option настраивает Store.
type Option func(*Store)

// WithClock подменяет источник времени.
func WithClock(clock storage.Clock) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// New создает новый экземпляр in-memory хранилища.
func New(opts ...Option) *Store {
	s := &Store{clock: storage.SystemClock}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetPosts заменяет содержимое хранилища копиями posts.
func (s *Store) SetPosts(posts []*domain.Post) {
	cp := make([]*domain.Post, 0, len(posts))
	for _, p := range posts {
		cp = append(cp, p.Clone())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = cp
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post domain.NewPost) (*domain.Post, error) {
	p := &domain.Post{
		ID:      uuid.NewString(),
		OwnerID: post.OwnerID,
		Text:    post.Text,
		Content: post.Content,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p.CreatedAt = s.clock()
	s.posts = append(s.posts, p)
	return p.Clone(), nil
}

func (s *Store) ListPosts(ctx context.Context, filter domain.PostFilter) ([]*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.list(filter), nil
}

func (s *Store) GetPost(ctx context.Context, ownerID, id string) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if found := s.list(domain.OwnedBy(ownerID, id)); len(found) > 0 {
		return found[0], nil
	}
	return nil, nil
}

func (s *Store) SoftDeletePost(ctx context.Context, ownerID, id string) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := domain.OwnedBy(ownerID, id)
	for _, p := range s.posts {
		if !postfilter.Matches(f, p) {
			continue
		}
		// Повторное удаление не двигает момент удаления
		if p.DeletedAt == nil {
			now := s.clock()
			p.DeletedAt = &now
		}
		return p.Clone(), nil
	}
	return nil, nil
}

// list возвращает копии подходящих постов. Вызывается под s.mu.
func (s *Store) list(filter domain.PostFilter) []*domain.Post {
	found := make([]*domain.Post, 0)
	for _, p := range s.posts {
		if postfilter.Matches(filter, p) {
			found = append(found, p.Clone())
		}
	}
	storage.SortPosts(found)
	return storage.Truncate(found, filter)
}

var _ storage.Storage = (*Store)(nil)
