package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderImplementsDispatcherMetrics(t *testing.T) {
	r := New(DefaultConfig())
	r.IncUpdateProcessed("message_created")
	r.ObserveHandlerDuration("router-1", 15*time.Millisecond)
	r.IncHandlerFailure("router-1")
	r.IncLongpollRetry("connection")
	r.IncFSMOp("memory", "get_state")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	r.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "maxbot_updates_processed_total")
	assert.Contains(t, body, "maxbot_handler_duration_seconds")
	assert.Contains(t, body, "maxbot_handler_failures_total")
	assert.Contains(t, body, "maxbot_longpoll_retries_total")
	assert.Contains(t, body, "maxbot_fsm_ops_total")
}

func TestNewCreatesRegistryWhenUnset(t *testing.T) {
	r := New(Config{})
	assert.NotNil(t, r.Registry())
}
