package badgerstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/posts-service/internal/domain"
	"github.com/UkralStul/posts-service/internal/storage"
	"github.com/UkralStul/posts-service/internal/storage/storagetest"
	"github.com/UkralStul/posts-service/internal/twoface"
	"github.com/UkralStul/posts-service/internal/workerpool"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := OpenInMemory(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Conformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T, clock storage.Clock) storage.Storage {
		return newTestStore(t, WithClock(clock))
	})
}

func TestStore_Persistence(t *testing.T) {
	dir := t.TempDir()
	owner := uuid.NewString()

	s, err := Open(dir)
	require.NoError(t, err)
	created, err := s.CreatePost(context.Background(), domain.NewPost{OwnerID: owner, Text: "durable", Content: domain.ContentNone})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetPost(context.Background(), owner, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "durable", got.Text)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
}

func TestStore_KeysAreScopedByOwner(t *testing.T) {
	s := newTestStore(t)
	owner := uuid.NewString()
	p, err := s.CreatePost(context.Background(), domain.NewPost{OwnerID: owner, Text: "x", Content: domain.ContentNone})
	require.NoError(t, err)

	err = s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte("post/" + owner + "/" + p.ID))
		return err
	})
	assert.NoError(t, err)
}

func TestStore_ConcurrentSoftDelete(t *testing.T) {
	s := newTestStore(t, WithClock(storagetest.NewStepClock(time.Second).Now))
	ctx := context.Background()
	owner := uuid.NewString()
	p, err := s.CreatePost(ctx, domain.NewPost{OwnerID: owner, Text: "race", Content: domain.ContentNone})
	require.NoError(t, err)

	results := make([]*domain.Post, 8)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			deleted, err := s.SoftDeletePost(ctx, owner, p.ID)
			assert.NoError(t, err)
			results[i] = deleted
		}(i)
	}
	wg.Wait()

	// Все видят один и тот же момент удаления
	final, err := s.GetPost(ctx, owner, p.ID)
	require.NoError(t, err)
	require.NotNil(t, final.DeletedAt)
	for _, r := range results {
		require.NotNil(t, r)
		assert.True(t, final.DeletedAt.Equal(*r.DeletedAt))
	}
}

func TestStore_ClosedPoolIsCancellation(t *testing.T) {
	pool := workerpool.New(1, 0)
	s := newTestStore(t, WithPool(pool))
	pool.Close()

	_, err := s.CreatePost(context.Background(), domain.NewPost{OwnerID: uuid.NewString(), Content: domain.ContentNone})
	require.Error(t, err)
	assert.ErrorIs(t, err, workerpool.ErrCancelled)
	assert.Equal(t, "ServerError: Internal server error", err.Error())

	var tf *twoface.Error
	require.ErrorAs(t, err, &tf)
	assert.Contains(t, tf.Internal.Error(), "operation cancelled")

	// Внешний пул хранилище не закрывает, а база по-прежнему доступна
	err = s.db.View(func(txn *badger.Txn) error { return nil })
	assert.NoError(t, err)
}

func TestStore_OperationsRunOnPool(t *testing.T) {
	pool := workerpool.New(1, 4)
	defer pool.Close()
	s := newTestStore(t, WithPool(pool))

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = pool.Do(context.Background(), func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	defer close(release)

	// Воркер занят: операция ждёт его и уходит по дедлайну, не выполнившись
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.ListPosts(ctx, domain.PostFilter{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
