package storage

import (
	"errors"
	"sort"
	"time"

	"github.com/UkralStul/posts-service/internal/domain"
	"github.com/UkralStul/posts-service/internal/twoface"
	"github.com/UkralStul/posts-service/internal/workerpool"
)

// Clock выдаёт моменты времени для CreatedAt и DeletedAt.
type Clock func() time.Time

// SystemClock - UTC с точностью до микросекунды: столько хранит timestamptz,
// и все бэкенды должны видеть одинаковые моменты.
func SystemClock() time.Time {
	return domain.Instant(time.Now())
}

// SortPosts упорядочивает посты так же, как ORDER BY created_at, id.
func SortPosts(posts []*domain.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		if c := posts[i].CreatedAt.Compare(posts[j].CreatedAt); c != 0 {
			return c < 0
		}
		return posts[i].ID < posts[j].ID
	})
}

// Truncate обрезает выборку до лимита фильтра.
func Truncate(posts []*domain.Post, filter domain.PostFilter) []*domain.Post {
	if limit := filter.EffectiveLimit(); len(posts) > limit {
		return posts[:limit]
	}
	return posts
}

// Classify превращает ошибку бэкенда в конверт. Отмену задачи пулом
// описываем явно, чтобы она не потерялась в общем тексте.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, workerpool.ErrCancelled) {
		return twoface.From(errors.Join(errors.New("operation cancelled"), err))
	}
	return twoface.From(err)
}
