package metrics

import (
	"github.com/oneconcern/trellis/pkg/metrics/exporters/logexporter"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.uber.org/zap"
)

type exampleMetrics struct {
	Telemetry struct {
		UsageCounts   []CountMetrics        `group:"usage" description:""`    // ignored
		FailureCounts []*stats.Int64Measure `group:"failures" description:""` // ignored
		TestCount     *stats.Int64Measure   `metric:"testCount" description:"number of tests"`
	} `group:"telemetry" description:""`
	Volumetry struct {
		Objects CountMetrics `group:"objects" description:""`
	} `group:"volumetry" description:""`
	Calls struct {
		Usage *UsageMetrics
	} `group:"calls" description:""`
}

func (e *exampleMetrics) IncTest() {
	Inc(e.Telemetry.TestCount, map[string]string{"kind": "test"})
}

func testExporter() view.Exporter {
	l, _ := zap.NewDevelopment()
	return logexporter.New(l)
}
