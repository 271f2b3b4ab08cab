package metrics

import (
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/tag"
)

// Init global settings for metrics collection, such as the exporter.
//
// Init may be called multiple times: only the first time matters.
// Until Init is called, recording measurements is a no-op.
func Init(opts ...Option) {
	initOnce.Do(func() {
		mp = newSettings(opts...)
	})
}

// Flush all collected metrics to the exporter
func Flush() {
	if mp == nil {
		return
	}
	mp.Flush()
}

// EnsureMetrics allows for lazy registration of metrics definitions.
//
// It may safely be called several times, and only the first registration
// for a given unique location will be retained.
// It panics when a location is registered again with another type.
func EnsureMetrics(location string, m interface{}) interface{} {
	Init()
	return mp.EnsureMetrics(location, m)
}

// Inc increments a counter-like metric
func Inc(counter *stats.Int64Measure, tags ...map[string]string) {
	if mp == nil || counter == nil {
		return
	}
	_ = stats.RecordWithTags(mp.contexter(), mergeTags(tags), counter.M(1))
}

// Int64 sets a value to a measurement
func Int64(measure *stats.Int64Measure, value int64, tags ...map[string]string) {
	if mp == nil || measure == nil {
		return
	}
	_ = stats.RecordWithTags(mp.contexter(), mergeTags(tags), measure.M(value))
}

// Since feeds a millisecs timing measurement from some start time
func Since(start time.Time, measure *stats.Float64Measure, tags ...map[string]string) {
	if mp == nil || measure == nil {
		return
	}
	ms := float64(time.Since(start).Nanoseconds()) / 1e6
	_ = stats.RecordWithTags(mp.contexter(), mergeTags(tags), measure.M(ms))
}

func mergeTags(extras []map[string]string) []tag.Mutator {
	mutators := make([]tag.Mutator, 0, 4)
	for _, extra := range extras {
		for k, v := range extra {
			mutators = append(mutators, tag.Upsert(tag.MustNewKey(k), v))
		}
	}
	return mutators
}

// Enable equips any type with some capabilities to collect metrics in a very concise way.
//
// Sample usage:
//
//	type myType struct{
//	  metrics.Enable
//	  m *myMetrics
//	}
//
//	func NewMyType() *myType {
//	  t := &myType{}
//	  t.EnableMetrics(true)
//	  t.m = t.EnsureMetrics("MyType", &myMetrics{}).(*myMetrics)
//	  return t
//	}
type Enable struct {
	metricsEnabled bool
}

// MetricsEnabled tells whether metrics are enabled or not
func (e Enable) MetricsEnabled() bool {
	return e.metricsEnabled
}

// EnableMetrics toggles metrics collection
func (e *Enable) EnableMetrics(enabled bool) {
	e.metricsEnabled = enabled
}

// EnsureMetrics registers a type describing metrics to the global metrics collection.
//
// NOTE: EnsureMetrics panics if not called with a pointer to a struct.
func (e *Enable) EnsureMetrics(name string, m interface{}) interface{} {
	return EnsureMetrics(name, m)
}
