package domain

import "time"

// TimePrecision - точность, с которой хранилища держат моменты времени.
const TimePrecision = time.Microsecond

// Instant приводит момент к UTC с точностью TimePrecision. Все сравнения
// моментов в фильтрах идут через него.
func Instant(t time.Time) time.Time {
	return t.UTC().Truncate(TimePrecision)
}

const (
	// DefaultLimit применяется, когда лимит не задан.
	DefaultLimit = 100
	// MaxLimit - верхняя граница лимита для любого хранилища.
	MaxLimit = 255
)

// PostFilter описывает выборку постов. Незаданное поле не участвует в фильтрации,
// пустой фильтр совпадает с любым постом.
//
// OwnerID на пользовательском API всегда подставляется сервером из пути запроса.
type PostFilter struct {
	ID           *string
	OwnerID      *string
	IsDeleted    *bool
	TextContains *string
	ExistedAt    *time.Time
	Limit        int
}

// EffectiveLimit возвращает лимит, который обязаны применить все хранилища.
func (f PostFilter) EffectiveLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultLimit
	case f.Limit > MaxLimit:
		return MaxLimit
	}
	return f.Limit
}

// OwnedBy сужает фильтр до одного поста владельца.
func OwnedBy(ownerID, id string) PostFilter {
	return PostFilter{OwnerID: &ownerID, ID: &id, Limit: 1}
}
