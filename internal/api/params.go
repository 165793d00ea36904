package api

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"

	"github.com/UkralStul/posts-service/internal/domain"
	"github.com/UkralStul/posts-service/internal/twoface"
)

// listParams - сырые параметры выборки из строки запроса.
type listParams struct {
	IsDeleted    string `query:"is_deleted" validate:"omitempty,boolean"`
	ExistedAt    string `query:"existed_at" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	UUID         string `query:"uuid" validate:"omitempty,uuid"`
	ID           string `query:"id" validate:"omitempty,uuid"`
	OwnerID      string `query:"owner_id" validate:"omitempty,uuid"`
	TextContains string `query:"text_contains"`
	Limit        string `query:"limit" validate:"omitempty,number"`
}

func readListParams(q url.Values) listParams {
	return listParams{
		IsDeleted:    q.Get("is_deleted"),
		ExistedAt:    q.Get("existed_at"),
		UUID:         q.Get("uuid"),
		ID:           q.Get("id"),
		OwnerID:      q.Get("owner_id"),
		TextContains: q.Get("text_contains"),
		Limit:        q.Get("limit"),
	}
}

// postFilter проверяет параметры и собирает фильтр. owner_id учитывается,
// только если allowOwner.
func (h *Handler) postFilter(q url.Values, allowOwner bool) (domain.PostFilter, error) {
	var f domain.PostFilter
	p := readListParams(q)

	if err := h.validate.Struct(p); err != nil {
		return f, invalidParams(err)
	}

	if p.IsDeleted != "" {
		deleted, _ := strconv.ParseBool(p.IsDeleted)
		f.IsDeleted = &deleted
	}
	if p.ExistedAt != "" {
		at, err := time.Parse(time.RFC3339Nano, p.ExistedAt)
		if err != nil {
			return f, twoface.Invalid(err, "existed_at must be an RFC 3339 timestamp")
		}
		at = domain.Instant(at)
		f.ExistedAt = &at
	}

	id := strings.ToLower(p.UUID)
	if id == "" {
		id = strings.ToLower(p.ID)
	} else if p.ID != "" && !strings.EqualFold(p.ID, p.UUID) {
		return f, twoface.Invalid(errors.New("uuid and id differ"), "uuid and id refer to different posts")
	}
	if id != "" {
		f.ID = &id
	}

	if allowOwner && p.OwnerID != "" {
		owner := strings.ToLower(p.OwnerID)
		f.OwnerID = &owner
	}
	if q.Has("text_contains") {
		text := norm.NFC.String(p.TextContains)
		f.TextContains = &text
	}

	if p.Limit != "" {
		limit, err := strconv.Atoi(p.Limit)
		if err == nil {
			err = h.validate.Var(limit, fmt.Sprintf("min=1,max=%d", domain.MaxLimit))
		}
		if err != nil {
			return f, twoface.Invalid(err, fmt.Sprintf("limit must be between 1 and %d", domain.MaxLimit))
		}
		f.Limit = limit
	}
	return f, nil
}

// uuidParam проверяет идентификатор из пути.
func (h *Handler) uuidParam(name, value string) (string, error) {
	if err := h.validate.Var(value, "required,uuid"); err != nil {
		return "", twoface.Invalid(err, name+" must be a UUID")
	}
	return strings.ToLower(value), nil
}

func invalidParams(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return twoface.Invalid(err, fmt.Sprintf("invalid value for %s", verrs[0].Field()))
	}
	return twoface.Invalid(err, "invalid query parameters")
}
