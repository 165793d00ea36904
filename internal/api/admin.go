package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/UkralStul/posts-service/internal/domain"
)

// AdminRoutes монтируется на /admin. Здесь посты отдаются целиком
// и фильтр может задавать owner_id.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/posts", h.observe("admin_list_posts", h.listAllPosts))
}

func (h *Handler) listAllPosts(r *http.Request) (any, error) {
	filter, err := h.postFilter(r.URL.Query(), true)
	if err != nil {
		return nil, err
	}
	posts, err := h.storage.ListPosts(r.Context(), filter)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*domain.Post{}
	}
	return posts, nil
}
