// Package storagetest - общий набор проверок, которые обязан проходить любой
// бэкенд storage.Storage.
package storagetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/UkralStul/posts-service/internal/domain"
	"github.com/UkralStul/posts-service/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory создаёт пустое хранилище, которое берёт время из clock.
type Factory func(t *testing.T, clock storage.Clock) storage.Storage

// Epoch - начало отсчёта StepClock в тестах.
var Epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// StepClock выдаёт Epoch, Epoch+step, Epoch+2*step и так далее.
type StepClock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

func NewStepClock(step time.Duration) *StepClock {
	return &StepClock{next: Epoch, step: step}
}

// Now - storage.Clock.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next = c.next.Add(c.step)
	return now
}

// Run прогоняет все проверки на свежих хранилищах из factory.
func Run(t *testing.T, factory Factory) {
	t.Run("Scenario", func(t *testing.T) { testScenario(t, factory) })
	t.Run("OwnershipIsolation", func(t *testing.T) { testOwnershipIsolation(t, factory) })
	t.Run("DefaultLimitAndOrder", func(t *testing.T) { testDefaultLimitAndOrder(t, factory) })
	t.Run("ExplicitLimit", func(t *testing.T) { testExplicitLimit(t, factory) })
	t.Run("ExistedAtBoundaries", func(t *testing.T) { testExistedAtBoundaries(t, factory) })
	t.Run("TextContainsIsCaseSensitive", func(t *testing.T) { testTextContains(t, factory) })
	t.Run("RepeatedSoftDelete", func(t *testing.T) { testRepeatedSoftDelete(t, factory) })
	t.Run("UnknownPost", func(t *testing.T) { testUnknownPost(t, factory) })
}

func create(t *testing.T, s storage.Storage, owner, text string) *domain.Post {
	t.Helper()
	p, err := s.CreatePost(context.Background(), domain.NewPost{OwnerID: owner, Text: text, Content: domain.ContentNone})
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

func list(t *testing.T, s storage.Storage, f domain.PostFilter) []*domain.Post {
	t.Helper()
	posts, err := s.ListPosts(context.Background(), f)
	require.NoError(t, err)
	return posts
}

func ids(posts []*domain.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func testScenario(t *testing.T, factory Factory) {
	clock := NewStepClock(time.Second)
	s := factory(t, clock.Now)
	ctx := context.Background()
	alice, bob := uuid.NewString(), uuid.NewString()

	p := create(t, s, alice, "hello")
	assert.Equal(t, alice, p.OwnerID)
	assert.Equal(t, "hello", p.Text)
	assert.Equal(t, domain.ContentNone, p.Content)
	assert.Nil(t, p.DeletedAt)
	_, err := uuid.Parse(p.ID)
	assert.NoError(t, err)
	assert.True(t, p.CreatedAt.Equal(Epoch))

	got, err := s.GetPost(ctx, alice, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p.ID, got.ID)
	assert.True(t, got.CreatedAt.Equal(p.CreatedAt))

	// Чужой владелец не видит и не удаляет пост
	got, err = s.GetPost(ctx, bob, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	deleted, err := s.SoftDeletePost(ctx, bob, p.ID)
	require.NoError(t, err)
	assert.Nil(t, deleted)

	deleted, err = s.SoftDeletePost(ctx, alice, p.ID)
	require.NoError(t, err)
	require.NotNil(t, deleted)
	require.NotNil(t, deleted.DeletedAt)
	assert.True(t, deleted.DeletedAt.After(deleted.CreatedAt))

	assert.Empty(t, list(t, s, domain.PostFilter{OwnerID: &alice, IsDeleted: ptr(false)}))
	assert.Equal(t, []string{p.ID}, ids(list(t, s, domain.PostFilter{OwnerID: &alice, IsDeleted: ptr(true)})))

	got, err = s.GetPost(ctx, alice, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsDeleted())
}

func testOwnershipIsolation(t *testing.T, factory Factory) {
	s := factory(t, NewStepClock(time.Millisecond).Now)
	alice, bob := uuid.NewString(), uuid.NewString()

	a1 := create(t, s, alice, "a1")
	b1 := create(t, s, bob, "b1")
	a2 := create(t, s, alice, "a2")

	assert.Equal(t, []string{a1.ID, a2.ID}, ids(list(t, s, domain.PostFilter{OwnerID: &alice})))
	assert.Equal(t, []string{b1.ID}, ids(list(t, s, domain.PostFilter{OwnerID: &bob})))

	// id другого владельца не находится даже при точном совпадении
	assert.Empty(t, list(t, s, domain.PostFilter{OwnerID: &alice, ID: &b1.ID}))
	assert.Equal(t, []string{a1.ID, b1.ID, a2.ID}, ids(list(t, s, domain.PostFilter{})))
}

func testDefaultLimitAndOrder(t *testing.T, factory Factory) {
	s := factory(t, NewStepClock(time.Millisecond).Now)
	owner := uuid.NewString()

	created := make([]string, 0, domain.DefaultLimit+20)
	for i := 0; i < domain.DefaultLimit+20; i++ {
		created = append(created, create(t, s, owner, "post").ID)
	}

	posts := list(t, s, domain.PostFilter{})
	require.Len(t, posts, domain.DefaultLimit)
	assert.Equal(t, created[:domain.DefaultLimit], ids(posts))
	for i := 1; i < len(posts); i++ {
		assert.True(t, posts[i-1].CreatedAt.Before(posts[i].CreatedAt))
	}
}

func testExplicitLimit(t *testing.T, factory Factory) {
	s := factory(t, NewStepClock(time.Millisecond).Now)
	owner := uuid.NewString()

	first := create(t, s, owner, "one")
	second := create(t, s, owner, "two")
	create(t, s, owner, "three")

	assert.Equal(t, []string{first.ID, second.ID}, ids(list(t, s, domain.PostFilter{Limit: 2})))
	assert.Len(t, list(t, s, domain.PostFilter{Limit: 10_000}), 3)
}

func testExistedAtBoundaries(t *testing.T, factory Factory) {
	clock := NewStepClock(time.Hour)
	s := factory(t, clock.Now)
	ctx := context.Background()
	owner := uuid.NewString()

	p := create(t, s, owner, "short lived")
	deleted, err := s.SoftDeletePost(ctx, owner, p.ID)
	require.NoError(t, err)
	require.NotNil(t, deleted)

	createdAt, deletedAt := Epoch, Epoch.Add(time.Hour)
	require.True(t, deleted.DeletedAt.Equal(deletedAt))

	cases := []struct {
		name  string
		at    time.Time
		found bool
	}{
		{"before creation", createdAt.Add(-time.Microsecond), false},
		{"at creation", createdAt, false},
		{"just after creation", createdAt.Add(time.Microsecond), true},
		{"just before deletion", deletedAt.Add(-time.Microsecond), true},
		{"at deletion", deletedAt, false},
		{"after deletion", deletedAt.Add(time.Microsecond), false},
		{"sub-microsecond after creation", createdAt.Add(500 * time.Nanosecond), false},
		{"sub-microsecond before deletion", deletedAt.Add(-500 * time.Nanosecond), true},
		{"sub-microsecond after deletion", deletedAt.Add(500 * time.Nanosecond), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			posts := list(t, s, domain.PostFilter{ExistedAt: ptr(tc.at)})
			if tc.found {
				assert.Equal(t, []string{p.ID}, ids(posts))
			} else {
				assert.Empty(t, posts)
			}
		})
	}
}

func testTextContains(t *testing.T, factory Factory) {
	s := factory(t, NewStepClock(time.Millisecond).Now)
	owner := uuid.NewString()

	upper := create(t, s, owner, "Hello, world")
	lower := create(t, s, owner, "say hello")
	create(t, s, owner, "nothing here")

	assert.Equal(t, []string{upper.ID}, ids(list(t, s, domain.PostFilter{TextContains: ptr("Hello")})))
	assert.Equal(t, []string{lower.ID}, ids(list(t, s, domain.PostFilter{TextContains: ptr("hello")})))
	assert.Equal(t, []string{upper.ID, lower.ID}, ids(list(t, s, domain.PostFilter{TextContains: ptr("ello")})))
	assert.Len(t, list(t, s, domain.PostFilter{TextContains: ptr("")}), 3)
}

func testRepeatedSoftDelete(t *testing.T, factory Factory) {
	s := factory(t, NewStepClock(time.Second).Now)
	ctx := context.Background()
	owner := uuid.NewString()
	p := create(t, s, owner, "bye")

	first, err := s.SoftDeletePost(ctx, owner, p.ID)
	require.NoError(t, err)
	require.NotNil(t, first)

	again, err := s.SoftDeletePost(ctx, owner, p.ID)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.True(t, first.DeletedAt.Equal(*again.DeletedAt))
}

func testUnknownPost(t *testing.T, factory Factory) {
	s := factory(t, NewStepClock(time.Second).Now)
	ctx := context.Background()
	owner, missing := uuid.NewString(), uuid.NewString()

	got, err := s.GetPost(ctx, owner, missing)
	assert.NoError(t, err)
	assert.Nil(t, got)

	deleted, err := s.SoftDeletePost(ctx, owner, missing)
	assert.NoError(t, err)
	assert.Nil(t, deleted)

	assert.Empty(t, list(t, s, domain.PostFilter{ID: &missing}))
}
