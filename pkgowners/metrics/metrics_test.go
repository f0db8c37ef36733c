package metrics

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsRegister(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	for _, c := range Collectors() {
		require.NoError(t, reg.Register(c))
	}

	// Registering twice is rejected
	assert.Error(t, reg.Register(IndexFilesTotal))
}

func TestCounterVecLabels(t *testing.T) {
	before := testutil.ToFloat64(IndexBuildsTotal.WithLabelValues("basename", Ok))
	IndexBuildsTotal.WithLabelValues("basename", Ok).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(IndexBuildsTotal.WithLabelValues("basename", Ok)))

	before = testutil.ToFloat64(LookupMissesTotal.WithLabelValues("hashed"))
	LookupMissesTotal.WithLabelValues("hashed").Add(3)
	assert.Equal(t, before+3, testutil.ToFloat64(LookupMissesTotal.WithLabelValues("hashed")))
}

func TestWriteText(t *testing.T) {
	reg := NewRegistry()
	MetadataQueriesTotal.WithLabelValues(Ok).Inc()
	IndexBuildsTotal.WithLabelValues("hashed", Fail).Inc()

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, reg))

	out := buf.String()
	assert.Contains(t, out, "# TYPE pkgowners_metadata_queries_total counter")
	assert.Contains(t, out, `pkgowners_metadata_queries_total{status="ok"}`)
	assert.Contains(t, out, `pkgowners_index_builds_total{status="fail",strategy="hashed"}`)
	assert.Contains(t, out, "pkgowners_index_build_seconds_total")
}
