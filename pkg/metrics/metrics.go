package metrics

import (
	"context"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/oneconcern/trellis/pkg/metrics/exporters/logexporter"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

const (
	unitCount        = "count"
	unitMilliseconds = "milliseconds"
)

var (
	// global settings for metrics
	mp       *settings
	initOnce sync.Once
)

type settings struct {
	basePath  string
	contexter func() context.Context
	exporter  view.Exporter

	allMetrics []stats.Measure
	allViews   []*view.View

	// a map of all registered modules
	modules   map[string]interface{}
	exclusive sync.Mutex

	reportingPeriod time.Duration
}

func defaultSettings() *settings {
	return &settings{
		modules:   make(map[string]interface{}),
		contexter: context.Background,
	}
}

func newSettings(opts ...Option) *settings {
	s := defaultSettings()
	for _, apply := range opts {
		apply(s)
	}

	if s.exporter == nil {
		s.exporter = logexporter.New(nil)
	}

	s.registerExporter()
	return s
}

func (s *settings) EnsureMetrics(location string, m interface{}) interface{} {
	s.exclusive.Lock()
	defer s.exclusive.Unlock()
	location = path.Join(s.basePath, location)

	if existing, ok := s.modules[location]; ok {
		if !equalType(existing, m) {
			panic("trying to re-register existing metrics module with a different type")
		}
		return existing
	}
	scanStruct(location, s.addMetric, m)
	s.modules[location] = m
	return m
}

// Flush collects all remaining data for registered views and exports them
func (s *settings) Flush() {
	for _, v := range s.allViews {
		rows, err := view.RetrieveData(v.Name)
		if err != nil {
			continue
		}
		now := time.Now()
		s.exporter.ExportView(&view.Data{
			View:  v,
			Start: now,
			End:   now,
			Rows:  rows,
		})
	}
}

func (s *settings) registerExporter() {
	view.RegisterExporter(s.exporter)
	if s.reportingPeriod > 0 {
		view.SetReportingPeriod(s.reportingPeriod)
	}
}

// addMetric creates a measure and its default view, as described by the decoded struct tags.
//
// Counters get a count view, timings get a duration distribution.
// Extra views may be requested with extraviews:"sum,lastvalue,count".
func (s *settings) addMetric(m interface{}, metric, group string, tags map[string]string) interface{} {
	name := path.Join(group, metric)
	description := tags["description"]
	if description == "" {
		description = name
	}
	u, dist := unitAndDist(tags["unit"])

	var measure stats.Measure
	switch m.(type) {
	case *stats.Int64Measure:
		measure = stats.Int64(name, description, u)
	case *stats.Float64Measure:
		measure = stats.Float64(name, description, u)
	default:
		return nil
	}
	s.allMetrics = append(s.allMetrics, measure)

	keys := tagKeys(tags["groupings"])
	s.register(&view.View{
		Name:        name,
		Description: description,
		Measure:     measure,
		Aggregation: dist,
		TagKeys:     keys,
	})

	if extraViews := tags["views"]; extraViews != "" {
		for _, extra := range strings.Split(extraViews, ",") {
			var agg *view.Aggregation
			switch extra {
			case unitCount:
				agg = view.Count()
			case "sum":
				agg = view.Sum()
			case "lastvalue":
				agg = view.LastValue()
			default:
				continue
			}
			s.register(&view.View{
				Name:        name + "." + extra,
				Description: description + " [" + extra + "]",
				Measure:     measure,
				Aggregation: agg,
				TagKeys:     keys,
			})
		}
	}
	return measure
}

func (s *settings) register(v *view.View) {
	s.allViews = append(s.allViews, v)
	_ = view.Register(v)
}

func tagKeys(groupings string) []tag.Key {
	keys := make([]tag.Key, 0, 3)
	for _, g := range strings.Split(groupings, ",") {
		if g != "" {
			keys = append(keys, tag.MustNewKey(g))
		}
	}
	return keys
}

func durationDistribution() *view.Aggregation {
	// buckets in milliseconds
	return view.Distribution(
		0.1, 0.5, 1, 5, 10, 50,
		100, 300, 500, 1000,
		2000, 5000, 10000,
	)
}

func unitAndDist(unit string) (string, *view.Aggregation) {
	switch unit {
	case unitMilliseconds:
		return stats.UnitMilliseconds, durationDistribution()
	case unitCount:
		fallthrough
	default:
		return stats.UnitDimensionless, view.Count()
	}
}
