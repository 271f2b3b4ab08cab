package metrics

import (
	"time"

	"go.opencensus.io/stats"
)

// UsageMetrics is a common set of metrics reporting about usage
type UsageMetrics struct {
	Count    *stats.Int64Measure   `metric:"usageCount" description:"number of calls" tags:"kind,method"`
	Failures *stats.Int64Measure   `metric:"usageFailures" description:"number of failed calls" tags:"kind,method"`
	Timing   *stats.Float64Measure `metric:"timing" unit:"milliseconds" description:"duration of a call" tags:"kind,method"`
}

func (u *UsageMetrics) tags(method string) map[string]string {
	return map[string]string{"kind": "usage", "method": method}
}

// Inc records the usage of some method, without timings or failure reporting
func (u *UsageMetrics) Inc(method string) {
	Inc(u.Count, u.tags(method))
}

// UsedAll records usage of some instrumented entry point with failures, in one go.
//
// Example:
//
//	func (m *myType) MyInstrumentedFunc() (err error) {
//	  defer func(start time.Time) {
//	    myUsageMetrics.UsedAll(start, "MyInstrumentedFunc")(err)
//	  }(time.Now())
//	  ...
//	}
func (u *UsageMetrics) UsedAll(start time.Time, method string) func(error) {
	return func(err error) {
		Since(start, u.Timing, u.tags(method))
		Inc(u.Count, u.tags(method))
		if err != nil {
			Inc(u.Failures, u.tags(method))
		}
	}
}

// CountMetrics reports about the volume of some objects
type CountMetrics struct {
	Count *stats.Int64Measure `metric:"count" description:"number of objects" extraviews:"sum" tags:"kind,operation"`
	Size  *stats.Int64Measure `metric:"size" description:"size of objects in bytes" extraviews:"sum" tags:"kind,operation"`
}

func (c *CountMetrics) tags(kind, operation string) map[string]string {
	return map[string]string{"kind": kind, "operation": operation}
}

// Inc counts one object
func (c *CountMetrics) Inc(kind, operation string) {
	Inc(c.Count, c.tags(kind, operation))
}

// Bytes records the size of some object. Zero sizes are not recorded.
func (c *CountMetrics) Bytes(size int64, kind, operation string) {
	if size == 0 {
		return
	}
	Int64(c.Size, size, c.tags(kind, operation))
}
