package metrics

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haxii/fastresp/result"
	"github.com/haxii/fastresp/stream"
	"github.com/haxii/fastresp/usage"
)

func TestPoolObserver(t *testing.T) {
	m := New("test")
	m.ObserveAcquire(result.KindNotFound, false)
	m.ObserveAcquire(result.KindNotFound, true)
	m.ObserveRelease(result.KindNotFound, true)
	m.ObserveCleanupError(result.KindNotFound)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResultsAcquired.WithLabelValues("NotFound", "ClientError", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResultsAcquired.WithLabelValues("NotFound", "ClientError", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResultsReleased.WithLabelValues("NotFound", "ClientError", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CleanupErrors.WithLabelValues("NotFound")))
}

func TestStreamObserver(t *testing.T) {
	m := New("")
	m.ObserveTransition(stream.StateIdle, stream.StateStreaming)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveStreams))
	m.ObserveBytes(10)
	m.ObserveBytes(5)
	m.ObserveSuspend()
	m.ObserveTransition(stream.StateStreaming, stream.StateCompleted)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActiveStreams))
	assert.Equal(t, 15.0, testutil.ToFloat64(m.BodyBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InputSuspends))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StreamTransitions.WithLabelValues("streaming", "completed")))
}

func TestExposition(t *testing.T) {
	m := New("fastresp")
	m.ObserveSuspend()

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))
	assert.Contains(t, buf.String(), "fastresp_stream_input_suspends_total 1")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fastresp_stream_input_suspends_total")
}

func TestTraffic(t *testing.T) {
	m := New("fastresp")
	traffic := &usage.Traffic{}
	m.RegisterTraffic(traffic)
	traffic.AddSent(42)
	traffic.AddReceived(7)

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))
	assert.Contains(t, buf.String(), "fastresp_conn_sent_bytes_total 42")
	assert.Contains(t, buf.String(), "fastresp_conn_received_bytes_total 7")
}
