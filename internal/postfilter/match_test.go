package postfilter

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/UkralStul/posts-service/internal/domain"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func activePost() *domain.Post {
	return &domain.Post{
		ID:        uuid.NewString(),
		OwnerID:   uuid.NewString(),
		Text:      "example text",
		Content:   domain.ContentNone,
		CreatedAt: t0,
	}
}

func TestMatches_EmptyFilterMatchesEverything(t *testing.T) {
	deleted := activePost()
	deleted.DeletedAt = ptr(t0.Add(time.Hour))

	assert.True(t, Matches(domain.PostFilter{}, activePost()))
	assert.True(t, Matches(domain.PostFilter{}, deleted))
}

func TestMatches_EachFieldInIsolation(t *testing.T) {
	p := activePost()

	assert.True(t, Matches(domain.PostFilter{OwnerID: ptr(p.OwnerID)}, p))
	assert.False(t, Matches(domain.PostFilter{OwnerID: ptr(uuid.NewString())}, p))

	assert.True(t, Matches(domain.PostFilter{ID: ptr(p.ID)}, p))
	assert.False(t, Matches(domain.PostFilter{ID: ptr(uuid.NewString())}, p))

	assert.True(t, Matches(domain.PostFilter{IsDeleted: ptr(false)}, p))
	assert.False(t, Matches(domain.PostFilter{IsDeleted: ptr(true)}, p))

	assert.True(t, Matches(domain.PostFilter{TextContains: ptr("ample")}, p))
	assert.True(t, Matches(domain.PostFilter{TextContains: ptr("")}, p))
	assert.False(t, Matches(domain.PostFilter{TextContains: ptr("Ample")}, p), "contains is case-sensitive")

	assert.True(t, Matches(domain.PostFilter{ExistedAt: ptr(t0.Add(time.Minute))}, p))
	assert.False(t, Matches(domain.PostFilter{ExistedAt: ptr(t0.Add(-time.Minute))}, p))
}

func TestMatches_Conjunction(t *testing.T) {
	p := activePost()

	assert.True(t, Matches(domain.PostFilter{
		OwnerID:      ptr(p.OwnerID),
		ID:           ptr(p.ID),
		IsDeleted:    ptr(false),
		TextContains: ptr("text"),
		ExistedAt:    ptr(t0.Add(time.Second)),
	}, p))

	// Одно несовпавшее поле проваливает всю конъюнкцию
	assert.False(t, Matches(domain.PostFilter{
		OwnerID:      ptr(p.OwnerID),
		ID:           ptr(p.ID),
		IsDeleted:    ptr(true),
		TextContains: ptr("text"),
	}, p))
}

func TestMatches_ExistedAtBoundaries(t *testing.T) {
	t1 := t0.Add(time.Hour)
	p := activePost()
	p.DeletedAt = ptr(t1)

	existed := func(at time.Time) bool {
		return Matches(domain.PostFilter{ExistedAt: &at}, p)
	}

	assert.False(t, existed(t0), "creation instant is exclusive")
	assert.True(t, existed(t0.Add(time.Microsecond)))
	assert.True(t, existed(t1.Add(-time.Microsecond)))
	assert.False(t, existed(t1), "deletion instant is exclusive")
	assert.False(t, existed(t1.Add(time.Microsecond)))
	assert.False(t, existed(t0.Add(-time.Microsecond)))

	// Доли микросекунды отбрасываются, как в хранилищах
	assert.False(t, existed(t0.Add(500*time.Nanosecond)))
	assert.True(t, existed(t1.Add(-500*time.Nanosecond)))
	assert.False(t, existed(t1.Add(500*time.Nanosecond)))
}

func TestMatches_DeletedPost(t *testing.T) {
	p := activePost()
	p.DeletedAt = ptr(t0.Add(10 * time.Microsecond))

	assert.True(t, Matches(domain.PostFilter{IsDeleted: ptr(true)}, p))
	assert.False(t, Matches(domain.PostFilter{IsDeleted: ptr(false)}, p))
	// Пост больше не активен, значит "сейчас" его не существует
	assert.False(t, Matches(domain.PostFilter{ExistedAt: ptr(t0.Add(time.Hour))}, p))
}

func TestMatches_IsPure(t *testing.T) {
	p := activePost()
	f := domain.PostFilter{OwnerID: ptr(p.OwnerID), ExistedAt: ptr(t0.Add(time.Second))}
	before := *p

	for i := 0; i < 3; i++ {
		assert.True(t, Matches(f, p))
	}
	assert.Equal(t, before, *p)
}
