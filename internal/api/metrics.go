package api

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/UkralStul/posts-service/internal/twoface"
)

// MetricSample - одна точка данных в ответе /metrics.
type MetricSample struct {
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Value      *float64          `json:"value,omitempty"`
	Count      *uint64           `json:"count,omitempty"`
	Sum        *float64          `json:"sum,omitempty"`
}

// NewMetricsRouter отдаёт снимок всех метрик из reader на GET /metrics.
func NewMetricsRouter(reader sdkmetric.Reader, logger *slog.Logger) http.Handler {
	router := chi.NewRouter()
	router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		var rm metricdata.ResourceMetrics
		if err := reader.Collect(r.Context(), &rm); err != nil {
			twoface.WriteHTTP(w, logger, twoface.Errorf("collect metrics: %w", err))
			return
		}

		data, err := json.Marshal(Samples(rm))
		if err != nil {
			twoface.WriteHTTP(w, logger, twoface.Errorf("marshal metrics: %w", err))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	})
	return router
}

// Samples раскладывает собранные метрики в плоский список, отсортированный по имени.
func Samples(rm metricdata.ResourceMetrics) []MetricSample {
	out := make([]MetricSample, 0)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					v := float64(dp.Value)
					out = append(out, MetricSample{Name: m.Name, Attributes: attrMap(dp.Attributes), Value: &v})
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					v := float64(dp.Value)
					out = append(out, MetricSample{Name: m.Name, Attributes: attrMap(dp.Attributes), Value: &v})
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					count, sum := dp.Count, dp.Sum
					out = append(out, MetricSample{Name: m.Name, Attributes: attrMap(dp.Attributes), Count: &count, Sum: &sum})
				}
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func attrMap(set attribute.Set) map[string]string {
	if set.Len() == 0 {
		return nil
	}
	out := make(map[string]string, set.Len())
	for _, kv := range set.ToSlice() {
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}
