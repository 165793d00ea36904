// Package api - HTTP-граница сервиса: пользовательский и административный
// уровни поверх storage.Storage.
package api

import (
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"

	"github.com/UkralStul/posts-service/internal/metrics"
	"github.com/UkralStul/posts-service/internal/storage"
	"github.com/UkralStul/posts-service/internal/twoface"
)

// DefaultMaxBodySize - предел тела запроса по умолчанию.
const DefaultMaxBodySize = 65536

const (
	metricHandlerSeconds = "posts_handler_seconds"
	metricResponses      = "posts_responses_total"
	metricHTTPResponses  = "posts_http_responses_total"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Handler содержит все зависимости, которые нужны обработчикам.
type Handler struct {
	storage     storage.Storage
	metrics     metrics.Collector
	logger      *slog.Logger
	maxBodySize int64
	validate    *validator.Validate
}

// Option настраивает Handler.
type Option func(*Handler)

func WithMetrics(c metrics.Collector) Option {
	return func(h *Handler) { h.metrics = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// WithMaxBodySize ограничивает размер тела запроса в байтах.
func WithMaxBodySize(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodySize = n
		}
	}
}

// NewHandler создаёт обработчики поверх store.
func NewHandler(store storage.Storage, opts ...Option) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	// В сообщениях об ошибках - имя параметра запроса, а не поля структуры
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("query"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	h := &Handler{
		storage:     store,
		metrics:     metrics.Nop{},
		logger:      slog.Default(),
		maxBodySize: DefaultMaxBodySize,
		validate:    v,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// endpoint - обработчик, который возвращает тело ответа или ошибку.
type endpoint func(r *http.Request) (any, error)

// observe замеряет время обработчика и считает ok/err по имени эндпоинта,
// затем пишет ответ.
func (h *Handler) observe(name string, fn endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		body, err := fn(r)
		h.metrics.RecordDuration(metricHandlerSeconds, time.Since(start), map[string]string{"endpoint": name})

		result := "ok"
		if err != nil {
			result = "err"
		}
		h.metrics.IncrementCounter(metricResponses, map[string]string{"endpoint": name, "result": result})

		if err != nil {
			twoface.WriteHTTP(w, h.logger, err)
			return
		}
		h.writeJSON(w, http.StatusOK, body)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		twoface.WriteHTTP(w, h.logger, twoface.Errorf("marshal response: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
