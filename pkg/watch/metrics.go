package watch

import (
	"github.com/oneconcern/trellis/pkg/metrics"
	"go.opencensus.io/stats"
)

// M describes metrics for the watch package
type M struct {
	Dispatch struct {
		Delivered *stats.Int64Measure `metric:"delivered" extraviews:"sum" tags:"kind" description:"number of notifications delivered"`
		Failures  *stats.Int64Measure `metric:"failures" extraviews:"sum" tags:"kind" description:"number of failed or panicking callbacks"`
		Watchers  *stats.Int64Measure `metric:"watchers" extraviews:"lastvalue" description:"number of registered watchers"`
	} `group:"dispatch" description:"watch notifications"`
}

func (m *M) delivered(kind DiffKind) {
	metrics.Inc(m.Dispatch.Delivered, map[string]string{"kind": kind.String()})
}

func (m *M) failed(kind DiffKind) {
	metrics.Inc(m.Dispatch.Failures, map[string]string{"kind": kind.String()})
}

func (m *M) watchers(n int) {
	metrics.Int64(m.Dispatch.Watchers, int64(n))
}
