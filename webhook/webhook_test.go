package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/maxbot/updates"
)

type recordingHandler struct {
	last *updates.Update
}

func (h *recordingHandler) Handle(_ context.Context, u *updates.Update) error {
	h.last = u
	return nil
}

func TestReceiveDecodesAndAlwaysReturnsOK(t *testing.T) {
	handler := &recordingHandler{}
	srv := New(nil, handler)
	echoInstance := srv.echo
	srv.Listen(DefaultPath)

	body := `{"update_type":"message_created","timestamp":1,"message":{"recipient":{"chat_type":"dialog"},"body":{"mid":"m","seq":1},"timestamp":1}}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	echoInstance.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	require.NotNil(t, handler.last)
	assert.Equal(t, updates.KindMessageCreated, handler.last.Kind)
}

func TestReceiveUnknownUpdateTypeStillReturnsOK(t *testing.T) {
	handler := &recordingHandler{}
	srv := New(nil, handler)
	echoInstance := srv.echo
	srv.Listen(DefaultPath)

	body := `{"update_type":"something_new","timestamp":1}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	echoInstance.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Nil(t, handler.last)
}
