package cafs

import (
	"github.com/oneconcern/trellis/pkg/metrics"
	"go.opencensus.io/stats"
)

// M describes metrics for the cafs package
type M struct {
	Volume struct {
		Blobs cafsMetrics `group:"blobs" description:"metrics about cafs objects"`
		Cache cacheUsage  `group:"cache" description:"metrics about the cafs object cache"`
	} `group:"volumetry" description:""`
	Usage metrics.UsageMetrics `group:"telemetry" description:"usage stats for the cafs package"`
}

type cafsMetrics struct {
	BlobsCount     *stats.Int64Measure `metric:"blobs" extraviews:"sum" tags:"kind,operation" description:"number of new cafs objects"`
	DuplicateCount *stats.Int64Measure `metric:"duplicateBlobs" extraviews:"sum" tags:"kind,operation" description:"number of deduplicated cafs objects"`
	BlobSize       *stats.Int64Measure `metric:"blobsSize" extraviews:"sum" tags:"kind,operation" description:"cumulated size of cafs objects"`
}

func (*cafsMetrics) tags(operation string) map[string]string {
	return map[string]string{"kind": "io", "operation": operation}
}

func (m *cafsMetrics) IncBlob(operation string) {
	metrics.Inc(m.BlobsCount, m.tags(operation))
}

func (m *cafsMetrics) IncDuplicate(operation string) {
	metrics.Inc(m.DuplicateCount, m.tags(operation))
}

func (m *cafsMetrics) Size(size int64, operation string) {
	metrics.Int64(m.BlobSize, size, m.tags(operation))
}

type cacheUsage struct {
	CacheHits   *stats.Int64Measure `metric:"cacheHits" tags:"operation"`
	CacheMisses *stats.Int64Measure `metric:"cacheMisses" tags:"operation"`
}

func (u *cacheUsage) Hit(operation string) {
	metrics.Inc(u.CacheHits, map[string]string{"operation": operation})
}

func (u *cacheUsage) Miss(operation string) {
	metrics.Inc(u.CacheMisses, map[string]string{"operation": operation})
}
