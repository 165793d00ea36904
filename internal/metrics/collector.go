// Package metrics - приёмник метрик, который передаётся зависимостью в те места,
// где что-то измеряется. Глобальных реестров нет.
package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Collector принимает измерения.
type Collector interface {
	RecordDuration(name string, d time.Duration, labels map[string]string)
	IncrementCounter(name string, labels map[string]string)
}

// Nop ничего не делает.
type Nop struct{}

func (Nop) RecordDuration(string, time.Duration, map[string]string) {}
func (Nop) IncrementCounter(string, map[string]string)              {}

// OTelCollector отображает Collector на инструменты OpenTelemetry:
// длительности в гистограммы (секунды), счётчики в Int64Counter.
type OTelCollector struct {
	meter metric.Meter

	mu         sync.Mutex
	histograms map[string]metric.Float64Histogram
	counters   map[string]metric.Int64Counter
}

// NewOTelCollector создаёт инструменты по требованию из meter.
func NewOTelCollector(meter metric.Meter) *OTelCollector {
	return &OTelCollector{
		meter:      meter,
		histograms: make(map[string]metric.Float64Histogram),
		counters:   make(map[string]metric.Int64Counter),
	}
}

func (c *OTelCollector) RecordDuration(name string, d time.Duration, labels map[string]string) {
	h := c.histogram(name)
	if h == nil {
		return
	}
	h.Record(context.Background(), d.Seconds(), metric.WithAttributes(attrs(labels)...))
}

func (c *OTelCollector) IncrementCounter(name string, labels map[string]string) {
	counter := c.counter(name)
	if counter == nil {
		return
	}
	counter.Add(context.Background(), 1, metric.WithAttributes(attrs(labels)...))
}

func (c *OTelCollector) histogram(name string) metric.Float64Histogram {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.histograms[name]; ok {
		return h
	}
	h, err := c.meter.Float64Histogram(name, metric.WithUnit("s"))
	if err != nil {
		return nil
	}
	c.histograms[name] = h
	return h
}

func (c *OTelCollector) counter(name string) metric.Int64Counter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if counter, ok := c.counters[name]; ok {
		return counter
	}
	counter, err := c.meter.Int64Counter(name)
	if err != nil {
		return nil
	}
	c.counters[name] = counter
	return counter
}

func attrs(labels map[string]string) []attribute.KeyValue {
	kv := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		kv = append(kv, attribute.String(k, v))
	}
	return kv
}

var (
	_ Collector = Nop{}
	_ Collector = (*OTelCollector)(nil)
)
