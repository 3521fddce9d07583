package observability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/newsdtm/pkg/newsdtm/record"
)

func TestObserveDrops(t *testing.T) {
	counter := DropsTotal.WithLabelValues("test_stage", "test_reason")
	before := testutil.ToFloat64(counter)

	ObserveDrops([]record.Drop{
		{Stage: "test_stage", Reason: "test_reason", ID: "1"},
		{Stage: "test_stage", Reason: "test_reason", ID: "2"},
		{Stage: "test_stage", Reason: "other", ID: "3"},
	})

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestWriteTextfile(t *testing.T) {
	ObserveStage("test_stage", time.Now())
	path := filepath.Join(t.TempDir(), "newsdtm.prom")

	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `newsdtm_stage_duration_seconds_count{stage="test_stage"}`))
}
