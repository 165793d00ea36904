package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/UkralStul/posts-service/internal/domain"
	"github.com/UkralStul/posts-service/internal/storage"
	"github.com/UkralStul/posts-service/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore создает хранилище и один пост для тестов
func newTestStore(t *testing.T) (*Store, *domain.Post) {
	store := New(WithClock(storagetest.NewStepClock(time.Second).Now))
	post, err := store.CreatePost(context.Background(), domain.NewPost{
		OwnerID: "7f1b7e0e-5f55-4d7a-9d1e-3f9c2a7b8c11",
		Text:    "Test Post",
		Content: domain.ContentNone,
	})
	require.NoError(t, err)
	return store, post
}

func TestStore_Conformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T, clock storage.Clock) storage.Storage {
		return New(WithClock(clock))
	})
}

func TestStore_ReturnsCopies(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	// Изменение результата не должно менять хранилище
	post.Text = "changed"
	got, err := store.GetPost(ctx, post.OwnerID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test Post", got.Text)

	deleted, err := store.SoftDeletePost(ctx, post.OwnerID, post.ID)
	require.NoError(t, err)
	*deleted.DeletedAt = time.Time{}

	got, err = store.GetPost(ctx, post.OwnerID, post.ID)
	require.NoError(t, err)
	assert.False(t, got.DeletedAt.IsZero())
}

func TestStore_SetPosts(t *testing.T) {
	store, _ := newTestStore(t)
	owner := "c0a80121-7ac0-4e1c-9d3c-0f2f3b1d2e4f"
	deletedAt := storagetest.Epoch.Add(time.Minute)

	seed := []*domain.Post{
		{ID: "b", OwnerID: owner, CreatedAt: storagetest.Epoch, Text: "second by id", Content: domain.ContentNone},
		{ID: "a", OwnerID: owner, CreatedAt: storagetest.Epoch, Text: "first by id", Content: domain.ContentNone},
		{ID: "c", OwnerID: owner, CreatedAt: storagetest.Epoch.Add(-time.Hour), DeletedAt: &deletedAt, Content: domain.ContentNone},
	}
	store.SetPosts(seed)
	seed[0].Text = "mutated after seeding"

	posts, err := store.ListPosts(context.Background(), domain.PostFilter{})
	require.NoError(t, err)
	require.Len(t, posts, 3)

	// Одинаковый CreatedAt упорядочивается по ID
	assert.Equal(t, "c", posts[0].ID)
	assert.Equal(t, "a", posts[1].ID)
	assert.Equal(t, "b", posts[2].ID)
	assert.Equal(t, "second by id", posts[2].Text)
}

func TestStore_ConcurrentCreates(t *testing.T) {
	store := New()
	ctx := context.Background()
	owner := "7f1b7e0e-5f55-4d7a-9d1e-3f9c2a7b8c11"

	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			_, err := store.CreatePost(ctx, domain.NewPost{OwnerID: owner, Text: "x", Content: domain.ContentNone})
			assert.NoError(t, err)
		}()
	}
	for i := 0; i < 20; i++ {
		<-done
	}

	posts, err := store.ListPosts(ctx, domain.PostFilter{OwnerID: &owner})
	require.NoError(t, err)
	assert.Len(t, posts, 20)
}
