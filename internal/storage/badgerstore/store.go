// Package badgerstore хранит посты во встроенной KV-базе Badger.
// Ключ - post/<owner_id>/<id>, значение - пост в JSON.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/UkralStul/posts-service/internal/domain"
	"github.com/UkralStul/posts-service/internal/postfilter"
	"github.com/UkralStul/posts-service/internal/storage"
	"github.com/UkralStul/posts-service/internal/workerpool"
)

const (
	postKeyPrefix = "post/"

	// Сколько раз повторять транзакцию при конфликте записи
	maxConflictRetries = 5

	defaultWorkers = 8
	defaultQueue   = 64
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store реализует интерфейс Storage поверх Badger.
// Каждая операция выполняется на ограниченном пуле воркеров.
type Store struct {
	db     *badger.DB
	clock  storage.Clock
	logger storage.Logger

	pool     *workerpool.Pool
	ownsPool bool
	workers  int
	queue    int
}

// Option настраивает Store.
type Option func(*Store)

func WithClock(clock storage.Clock) Option {
	return func(s *Store) { s.clock = clock }
}

func WithLogger(l storage.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithPool запускает операции на внешнем пуле. Закрывать его будет владелец.
func WithPool(pool *workerpool.Pool) Option {
	return func(s *Store) {
		if pool != nil {
			s.pool = pool
			s.ownsPool = false
		}
	}
}

// WithPoolSize задаёт размер собственного пула и длину очереди.
func WithPoolSize(workers, queue int) Option {
	return func(s *Store) {
		if workers > 0 {
			s.workers = workers
		}
		if queue >= 0 {
			s.queue = queue
		}
	}
}

// Open открывает базу в каталоге path.
func Open(path string, opts ...Option) (*Store, error) {
	return open(badger.DefaultOptions(path).WithLogger(nil), opts...)
}

// OpenInMemory открывает базу без диска. Данные живут до Close.
func OpenInMemory(opts ...Option) (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil), opts...)
}

func open(bopts badger.Options, opts ...Option) (*Store, error) {
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	s := &Store{
		db:       db,
		clock:    storage.SystemClock,
		workers:  defaultWorkers,
		queue:    defaultQueue,
		ownsPool: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pool == nil {
		s.pool = workerpool.New(s.workers, s.queue)
	}
	return s, nil
}

// Close останавливает собственный пул воркеров и закрывает базу.
func (s *Store) Close() error {
	if s.ownsPool {
		s.pool.Close()
	}
	return s.db.Close()
}

func postKey(ownerID, id string) []byte {
	return []byte(postKeyPrefix + ownerID + "/" + id)
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post domain.NewPost) (*domain.Post, error) {
	p := &domain.Post{
		ID:      uuid.NewString(),
		OwnerID: post.OwnerID,
		Text:    post.Text,
		Content: post.Content,
	}
	err := s.run(ctx, "create", func() error {
		p.CreatedAt = s.clock()
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to marshal post: %w", err)
		}
		return s.update(func(txn *badger.Txn) error {
			return txn.Set(postKey(p.OwnerID, p.ID), data)
		})
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) ListPosts(ctx context.Context, filter domain.PostFilter) ([]*domain.Post, error) {
	prefix := []byte(postKeyPrefix)
	if filter.OwnerID != nil {
		prefix = []byte(postKeyPrefix + *filter.OwnerID + "/")
	}

	found := make([]*domain.Post, 0)
	err := s.run(ctx, "list", func() error {
		return s.db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				var p domain.Post
				if err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &p)
				}); err != nil {
					return fmt.Errorf("failed to decode %s: %w", it.Item().Key(), err)
				}
				if postfilter.Matches(filter, &p) {
					found = append(found, &p)
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	storage.SortPosts(found)
	return storage.Truncate(found, filter), nil
}

func (s *Store) GetPost(ctx context.Context, ownerID, id string) (*domain.Post, error) {
	var post *domain.Post
	err := s.run(ctx, "get", func() error {
		return s.db.View(func(txn *badger.Txn) error {
			var err error
			post, err = get(txn, ownerID, id)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (s *Store) SoftDeletePost(ctx context.Context, ownerID, id string) (*domain.Post, error) {
	var post *domain.Post
	err := s.run(ctx, "soft_delete", func() error {
		return s.update(func(txn *badger.Txn) error {
			p, err := get(txn, ownerID, id)
			if err != nil || p == nil {
				post = nil
				return err
			}
			if p.DeletedAt == nil {
				now := s.clock()
				p.DeletedAt = &now
				data, err := json.Marshal(p)
				if err != nil {
					return fmt.Errorf("failed to marshal post: %w", err)
				}
				if err := txn.Set(postKey(ownerID, id), data); err != nil {
					return err
				}
			}
			post = p
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

func get(txn *badger.Txn, ownerID, id string) (*domain.Post, error) {
	item, err := txn.Get(postKey(ownerID, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p domain.Post
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &p)
	}); err != nil {
		return nil, fmt.Errorf("failed to decode post %s: %w", id, err)
	}
	return &p, nil
}

// update повторяет транзакцию, если её опередила параллельная запись.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < maxConflictRetries; i++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// run выполняет операцию на пуле. Начатая операция доводится до конца даже
// после отмены ctx вызывающего.
func (s *Store) run(ctx context.Context, op string, fn func() error) error {
	start := time.Now()
	if err := s.pool.Do(ctx, fn); err != nil {
		if s.logger != nil {
			s.logger.Error("badger operation failed", "operation", op, "error", err.Error())
		}
		return storage.Classify(err)
	}
	if s.logger != nil {
		s.logger.Debug("badger operation: "+op, "duration_ms", time.Since(start).Milliseconds())
	}
	return nil
}

var _ storage.Storage = (*Store)(nil)
