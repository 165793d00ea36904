package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/unicode/norm"

	"github.com/UkralStul/posts-service/internal/domain"
	"github.com/UkralStul/posts-service/internal/twoface"
)

// UserFacingPost - пост без полей, которые не показываются владельцу.
type UserFacingPost struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt *time.Time     `json:"deleted_at"`
	Text      string         `json:"text"`
	Content   domain.Content `json:"content"`
}

func userFacing(p *domain.Post) *UserFacingPost {
	if p == nil {
		return nil
	}
	return &UserFacingPost{
		ID:        p.ID,
		CreatedAt: p.CreatedAt,
		DeletedAt: p.DeletedAt,
		Text:      p.Text,
		Content:   p.Content,
	}
}

// writePostBody - тело POST /accounts/{account_id}/posts.
type writePostBody struct {
	Text    string         `json:"text"`
	Content domain.Content `json:"content"`
}

// UserfacingRoutes монтируется на /accounts.
func (h *Handler) UserfacingRoutes(r chi.Router) {
	r.Route("/{account_id}/posts", func(r chi.Router) {
		r.Post("/", h.observe("write_post", h.writePost))
		r.Get("/", h.observe("list_posts", h.listPosts))
		r.Get("/{post_id}", h.observe("get_post", h.getPost))
		r.Delete("/{post_id}", h.observe("delete_post", h.deletePost))
	})
}

func (h *Handler) writePost(r *http.Request) (any, error) {
	accountID, err := h.uuidParam("account_id", chi.URLParam(r, "account_id"))
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, actionInvalid(err, "request body is too large")
		}
		return nil, actionInvalid(err, "failed to read request body")
	}
	if len(data) == 0 {
		return nil, actionInvalid(nil, "request body is empty")
	}
	var body writePostBody
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, actionInvalid(err, "request body is not valid JSON")
	}
	if !body.Content.Valid() {
		return nil, twoface.Invalid(nil, "unknown content variant")
	}

	post, err := h.storage.CreatePost(r.Context(), domain.NewPost{
		OwnerID: accountID,
		Text:    norm.NFC.String(body.Text),
		Content: body.Content,
	})
	if err != nil {
		return nil, err
	}
	return userFacing(post), nil
}

func (h *Handler) listPosts(r *http.Request) (any, error) {
	accountID, err := h.uuidParam("account_id", chi.URLParam(r, "account_id"))
	if err != nil {
		return nil, err
	}
	filter, err := h.postFilter(r.URL.Query(), false)
	if err != nil {
		return nil, err
	}
	// Владелец берётся только из пути
	filter.OwnerID = &accountID

	posts, err := h.storage.ListPosts(r.Context(), filter)
	if err != nil {
		return nil, err
	}
	out := make([]*UserFacingPost, 0, len(posts))
	for _, p := range posts {
		out = append(out, userFacing(p))
	}
	return out, nil
}

func (h *Handler) getPost(r *http.Request) (any, error) {
	accountID, postID, err := h.accountPost(r)
	if err != nil {
		return nil, err
	}
	post, err := h.storage.GetPost(r.Context(), accountID, postID)
	if err != nil {
		return nil, err
	}
	return userFacing(post), nil
}

func (h *Handler) deletePost(r *http.Request) (any, error) {
	accountID, postID, err := h.accountPost(r)
	if err != nil {
		return nil, err
	}
	post, err := h.storage.SoftDeletePost(r.Context(), accountID, postID)
	if err != nil {
		return nil, err
	}
	return userFacing(post), nil
}

func actionInvalid(err error, text string) error {
	return twoface.Describe(err, twoface.ExternalError{Cause: twoface.UserActionInvalid, Text: text})
}

func (h *Handler) accountPost(r *http.Request) (string, string, error) {
	accountID, err := h.uuidParam("account_id", chi.URLParam(r, "account_id"))
	if err != nil {
		return "", "", err
	}
	postID, err := h.uuidParam("post_id", chi.URLParam(r, "post_id"))
	if err != nil {
		return "", "", err
	}
	return accountID, postID, nil
}
