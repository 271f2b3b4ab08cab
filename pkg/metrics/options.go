package metrics

import (
	"context"
	"strings"
	"time"

	"go.opencensus.io/stats/view"
)

// DefaultBasePath prefixes the views registered by trellis components, e.g. "trellis/cafs"
const DefaultBasePath = "trellis"

// minReportingPeriod is the smallest period honored by opencensus
const minReportingPeriod = time.Second

// Option tunes the global metrics settings, see Init
type Option func(*settings)

// WithBasePath prefixes the location of all metrics modules.
//
// Leading and trailing slashes are ignored.
func WithBasePath(location string) Option {
	return func(m *settings) {
		m.basePath = strings.Trim(location, "/")
	}
}

// WithContexter yields the context metrics are recorded with
func WithContexter(c func() context.Context) Option {
	return func(m *settings) {
		if c != nil {
			m.contexter = c
		}
	}
}

// WithExporter sends views to some exporter. Without one, views are logged at debug level.
func WithExporter(exporter view.Exporter) Option {
	return func(m *settings) {
		if exporter != nil {
			m.exporter = exporter
		}
	}
}

// WithReportingPeriod sets how often views are exported, by default every 10s.
//
// Periods shorter than a second are ignored.
func WithReportingPeriod(d time.Duration) Option {
	return func(m *settings) {
		if d >= minReportingPeriod {
			m.reportingPeriod = d
		}
	}
}
