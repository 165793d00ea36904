package postfilter

import (
	"fmt"
	"strconv"
	"time"

	"github.com/UkralStul/posts-service/internal/domain"
)

// Term - одно атомарное условие над таблицей постов.
//
// Интерфейс запечатан маркерным методом: реализации есть только в этом пакете,
// поэтому хранилища могут разбирать условия исчерпывающим type switch.
// Вызывающий объединяет все условия через AND.
type Term interface {
	term()
	String() string
}

// OwnerIs: owner_id = OwnerID
type OwnerIs struct{ OwnerID string }

// IDIs: id = ID
type IDIs struct{ ID string }

// DeletedIs: deleted_at IS NOT NULL, если Deleted, иначе deleted_at IS NULL.
type DeletedIs struct{ Deleted bool }

// TextContains: text содержит Substring с учётом регистра.
type TextContains struct{ Substring string }

// CreatedBefore: created_at < At
type CreatedBefore struct{ At time.Time }

// NotDeletedBy: deleted_at IS NULL OR deleted_at > At
type NotDeletedBy struct{ At time.Time }

func (OwnerIs) term()       {}
func (IDIs) term()          {}
func (DeletedIs) term()     {}
func (TextContains) term()  {}
func (CreatedBefore) term() {}
func (NotDeletedBy) term()  {}

func (t OwnerIs) String() string { return "owner_id = " + strconv.Quote(t.OwnerID) }
func (t IDIs) String() string    { return "id = " + strconv.Quote(t.ID) }

func (t DeletedIs) String() string {
	if t.Deleted {
		return "deleted_at IS NOT NULL"
	}
	return "deleted_at IS NULL"
}

func (t TextContains) String() string {
	return "text CONTAINS " + strconv.Quote(t.Substring)
}

func (t CreatedBefore) String() string {
	return "created_at < " + t.At.UTC().Format(time.RFC3339Nano)
}

func (t NotDeletedBy) String() string {
	return fmt.Sprintf("(deleted_at IS NULL OR deleted_at > %s)", t.At.UTC().Format(time.RFC3339Nano))
}

// Compile переводит фильтр в упорядоченный список условий. Пустой список
// означает "все посты". Порядок фиксирован: owner, id, deleted, contains,
// затем два условия existed_at с моментом, приведённым через domain.Instant.
func Compile(f domain.PostFilter) []Term {
	terms := make([]Term, 0, 6)
	if f.OwnerID != nil {
		terms = append(terms, OwnerIs{OwnerID: *f.OwnerID})
	}
	if f.ID != nil {
		terms = append(terms, IDIs{ID: *f.ID})
	}
	if f.IsDeleted != nil {
		terms = append(terms, DeletedIs{Deleted: *f.IsDeleted})
	}
	if f.TextContains != nil {
		terms = append(terms, TextContains{Substring: *f.TextContains})
	}
	if f.ExistedAt != nil {
		at := domain.Instant(*f.ExistedAt)
		terms = append(terms,
			CreatedBefore{At: at},
			NotDeletedBy{At: at},
		)
	}
	return terms
}
