package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveBatch(t *testing.T) {
	before := testutil.ToFloat64(batchesTotal.WithLabelValues(BatchEmpty))
	ObserveBatch(BatchEmpty)
	assert.InDelta(t, before+1, testutil.ToFloat64(batchesTotal.WithLabelValues(BatchEmpty)), 0.0001)
}

func TestObserveFetch(t *testing.T) {
	okBefore := testutil.ToFloat64(fetchAttemptsTotal.WithLabelValues(StatusSuccess))
	errBefore := testutil.ToFloat64(fetchAttemptsTotal.WithLabelValues(StatusError))

	ObserveFetch(nil, 10*time.Millisecond)
	ObserveFetch(errors.New("timeout"), time.Second)

	assert.InDelta(t, okBefore+1, testutil.ToFloat64(fetchAttemptsTotal.WithLabelValues(StatusSuccess)), 0.0001)
	assert.InDelta(t, errBefore+1, testutil.ToFloat64(fetchAttemptsTotal.WithLabelValues(StatusError)), 0.0001)
	assert.Positive(t, testutil.CollectAndCount(fetchDurationSeconds))
}

func TestObserveEntityAndPublish(t *testing.T) {
	matched := testutil.ToFloat64(entitiesTotal.WithLabelValues("true"))
	failed := testutil.ToFloat64(publishTotal.WithLabelValues(StatusError))

	ObserveEntity(true)
	ObservePublish(errors.New("queue down"))

	assert.InDelta(t, matched+1, testutil.ToFloat64(entitiesTotal.WithLabelValues("true")), 0.0001)
	assert.InDelta(t, failed+1, testutil.ToFloat64(publishTotal.WithLabelValues(StatusError)), 0.0001)
}

func TestCheckpointWriteUpdatesGaugeOnlyOnSuccess(t *testing.T) {
	ObserveCheckpointWrite(200, nil)
	assert.InDelta(t, 200, testutil.ToFloat64(checkpointCursorGauge), 0.0001)

	ObserveCheckpointWrite(300, errors.New("denied"))
	assert.InDelta(t, 200, testutil.ToFloat64(checkpointCursorGauge), 0.0001)
}

func TestGauges(t *testing.T) {
	SetCursor(120)
	assert.InDelta(t, 120, testutil.ToFloat64(cursorGauge), 0.0001)

	SetFetchStalled(true)
	assert.InDelta(t, 1, testutil.ToFloat64(fetchStalledGauge), 0.0001)
	SetFetchStalled(false)
	assert.InDelta(t, 0, testutil.ToFloat64(fetchStalledGauge), 0.0001)
}

func TestHandlerExposesHarvesterMetrics(t *testing.T) {
	SetCursor(1)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "harvester_cursor"))
}
