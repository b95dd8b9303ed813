package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/maxbot/maxerr"
)

func TestGetMeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me", r.URL.Path)
		assert.Equal(t, "tok123", r.URL.Query().Get("access_token"))
		w.Write([]byte(`{"user_id": 1, "username": "bot", "first_name": "Bot"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok123")
	me, err := c.GetMe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bot", me.Username)
}

func TestGetMeAuthFailureReturnsInvalidToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad token"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "bad")
	_, err := c.GetMe(context.Background())
	require.Error(t, err)
	var ite *maxerr.InvalidTokenError
	require.ErrorAs(t, err, &ite)
}

func TestGetMeServerErrorReturnsPlatformError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`oops`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	_, err := c.GetMe(context.Background())
	require.Error(t, err)
	var pe *maxerr.PlatformError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 500, pe.Code)
	assert.False(t, pe.IsAuthFailure())
}

func TestGetUpdatesPassesMarkerAndTypes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("marker"))
		assert.Equal(t, []string{"message_created"}, r.URL.Query()["types"])
		w.Write([]byte(`{"updates": [{"update_type":"message_created"}], "marker": 6}`))
	}))
	defer srv.Close()

	marker := int64(5)
	c := New(srv.URL, "tok")
	updates, nextMarker, err := c.GetUpdates(context.Background(), &marker, 30, []string{"message_created"})
	require.NoError(t, err)
	require.Len(t, updates, 1)
	require.NotNil(t, nextMarker)
	assert.EqualValues(t, 6, *nextMarker)
}
