package metrics

import (
	"context"
	"database/sql"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// StatsFunc отдаёт текущее состояние пула соединений.
type StatsFunc func() sql.DBStats

// ObserveDBStats регистрирует датчики открытых и простаивающих соединений.
// Значения снимаются в момент сбора метрик, а не при каждом запросе.
func ObserveDBStats(meter metric.Meter, backend string, stats StatsFunc) (metric.Registration, error) {
	open, err := meter.Int64ObservableGauge("posts_db_connections",
		metric.WithDescription("How many DB connections are open"))
	if err != nil {
		return nil, err
	}
	idle, err := meter.Int64ObservableGauge("posts_db_connections_idle",
		metric.WithDescription("How many DB connections are currently idle"))
	if err != nil {
		return nil, err
	}

	set := metric.WithAttributes(attribute.String("backend", backend))
	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := stats()
		o.ObserveInt64(open, int64(s.OpenConnections), set)
		o.ObserveInt64(idle, int64(s.Idle), set)
		return nil
	}, open, idle)
}
