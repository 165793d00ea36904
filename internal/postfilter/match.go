// Package postfilter вычисляет domain.PostFilter двумя способами: в памяти
// (Matches) и через компиляцию в список условий для хранилища с запросами
// (Compile). Оба пути обязаны выбирать одни и те же посты.
package postfilter

import (
	"strings"

	"github.com/UkralStul/posts-service/internal/domain"
)

// Matches - конъюнкция всех заданных полей фильтра. Незаданное поле истинно.
func Matches(f domain.PostFilter, p *domain.Post) bool {
	if f.OwnerID != nil && *f.OwnerID != p.OwnerID {
		return false
	}
	if f.ID != nil && *f.ID != p.ID {
		return false
	}
	if f.IsDeleted != nil && *f.IsDeleted != p.IsDeleted() {
		return false
	}
	if f.TextContains != nil && !strings.Contains(p.Text, *f.TextContains) {
		return false
	}
	if f.ExistedAt != nil {
		t := domain.Instant(*f.ExistedAt)
		// Обе границы строгие
		if !p.CreatedAt.Before(t) {
			return false
		}
		if p.DeletedAt != nil && !p.DeletedAt.After(t) {
			return false
		}
	}
	return true
}
