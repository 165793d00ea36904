package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewUserfacingRouter собирает пользовательский уровень.
func NewUserfacingRouter(h *Handler) http.Handler {
	router := h.baseRouter()
	router.Route("/accounts", h.UserfacingRoutes)
	return router
}

// NewAdminRouter собирает административный уровень.
func NewAdminRouter(h *Handler) http.Handler {
	router := h.baseRouter()
	router.Route("/admin", h.AdminRoutes)
	return router
}

func (h *Handler) baseRouter() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	// countStatus снаружи Recoverer: восстановленные 500 тоже считаются
	router.Use(h.countStatus)
	router.Use(middleware.Recoverer)
	router.Use(h.limitBody)
	return router
}

// countStatus считает отданные HTTP-статусы.
func (h *Handler) countStatus(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.metrics.IncrementCounter(metricHTTPResponses, map[string]string{"status": strconv.Itoa(status)})
	})
}

func (h *Handler) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
		next.ServeHTTP(w, r)
	})
}
