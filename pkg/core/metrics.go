package core

import (
	"github.com/oneconcern/trellis/pkg/metrics"
	"go.opencensus.io/stats"
)

// M describes metrics for the core package
type M struct {
	Volume struct {
		Commits metrics.CountMetrics `group:"commits" description:"metrics about commits"`
		Merges  mergeMetrics         `group:"merges" description:"metrics about merges"`
	} `group:"volumetry" description:""`
	Usage metrics.UsageMetrics `group:"telemetry" description:"usage stats for the core package"`
}

type mergeMetrics struct {
	Conflicts *stats.Int64Measure `metric:"conflicts" extraviews:"sum" tags:"kind" description:"number of merge conflicts"`
	Retries   *stats.Int64Measure `metric:"retries" extraviews:"sum" tags:"kind" description:"number of optimistic update retries"`
}

func (m *mergeMetrics) conflict(kind string) {
	metrics.Inc(m.Conflicts, map[string]string{"kind": kind})
}

func (m *mergeMetrics) retry(kind string) {
	metrics.Inc(m.Retries, map[string]string{"kind": kind})
}
