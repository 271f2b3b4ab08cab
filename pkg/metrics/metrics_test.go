package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureRequires(t testing.TB, m *exampleMetrics) {
	require.NotNil(t, m.Telemetry.TestCount)
	require.NotNil(t, m.Volumetry.Objects.Count)
	require.NotNil(t, m.Calls.Usage)
	require.NotNil(t, m.Calls.Usage.Count)
}

func TestRegister(t *testing.T) {
	Init(WithExporter(testExporter()))

	testMetrics := &exampleMetrics{}
	x := EnsureMetrics("registerExample", testMetrics)
	fixtureRequires(t, testMetrics)

	testMetrics.IncTest()
	Int64(testMetrics.Volumetry.Objects.Count, 10)

	// retry registration
	y := EnsureMetrics("registerExample", testMetrics)
	require.Equal(t, x, y)

	require.Panics(t, func() {
		_ = EnsureMetrics("registerExample", &UsageMetrics{})
	})
	Flush()
}

func TestModules(t *testing.T) {
	s := newSettings(
		WithBasePath("root"),
		WithExporter(testExporter()),
	)
	testMetrics := &exampleMetrics{}
	_ = s.EnsureMetrics("moduleTesting", testMetrics)

	require.Len(t, s.modules, 1)
	assert.Len(t, s.allMetrics, 6)
	assert.Len(t, s.allViews, 8)
	fixtureRequires(t, testMetrics)

	t0 := time.Now()
	testMetrics.Calls.Usage.Inc("get")
	testMetrics.Calls.Usage.UsedAll(t0, "set")(nil)
	testMetrics.Calls.Usage.UsedAll(t0, "merge")(fmt.Errorf("conflict"))
	testMetrics.Volumetry.Objects.Inc("contents", "add")
	testMetrics.Volumetry.Objects.Bytes(100, "contents", "add")
	testMetrics.Volumetry.Objects.Bytes(0, "contents", "add")

	s.Flush()
}

func TestOptions(t *testing.T) {
	s := defaultSettings()
	for _, apply := range []Option{
		WithBasePath("/" + DefaultBasePath + "/"),
		WithReportingPeriod(10 * time.Millisecond),
		WithContexter(nil),
		WithExporter(nil),
	} {
		apply(s)
	}
	assert.Equal(t, DefaultBasePath, s.basePath)
	assert.Zero(t, s.reportingPeriod, "periods under a second are ignored")
	assert.NotNil(t, s.contexter)
	assert.Nil(t, s.exporter)

	WithReportingPeriod(2 * time.Second)(s)
	assert.Equal(t, 2*time.Second, s.reportingPeriod)
}

func TestStructTags(t *testing.T) {
	var names []string
	m := &exampleMetrics{}
	scanStruct("parent", func(_ interface{}, metric, group string, _ map[string]string) interface{} {
		names = append(names, group+"/"+metric)
		return nil
	}, m)

	assert.ElementsMatch(t, []string{
		"parent/telemetry/testCount",
		"parent/volumetry/objects/count",
		"parent/volumetry/objects/size",
		"parent/calls/usageCount",
		"parent/calls/usageFailures",
		"parent/calls/timing",
	}, names)
	assert.Nil(t, m.Telemetry.UsageCounts)
	assert.Nil(t, m.Telemetry.FailureCounts)

	assert.Panics(t, func() { scanStruct("x", nil, exampleMetrics{}) })
}
