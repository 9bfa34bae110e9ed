package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aussiebroadwan/gamevault/internal/broker/sessions"
	"github.com/aussiebroadwan/gamevault/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func logoutWithCookie(t *testing.T, f *fixture, sessionID string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, f.srv.URL+"/logout", http.NoBody)
	require.NoError(t, err)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: testCookieName, Value: sessionID})
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestLogout(t *testing.T) {
	t.Parallel()

	t.Run("destroys the session", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		f := newFixture(t)

		sess, err := f.sessions.Create(ctx, testSteamID)
		require.NoError(t, err)

		resp := logoutWithCookie(t, f, sess.ID)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body httpx.MessageResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Equal(t, "Logged out", body.Message)

		cleared := false
		for _, ck := range resp.Cookies() {
			if ck.Name == testCookieName && ck.MaxAge < 0 {
				cleared = true
			}
		}
		require.True(t, cleared, "session cookie should be cleared")

		_, err = f.sessions.Get(ctx, sess.ID)
		require.ErrorIs(t, err, sessions.ErrNotFound)
	})

	t.Run("without a session", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		require.NoError(t, f.sdk.Logout(context.Background()))
		require.Equal(t, http.StatusOK, logoutWithCookie(t, f, "unknown-session").StatusCode)
	})

	failures := []struct {
		name    string
		prepare func(*flakySessions)
		message string
		code    string
	}{
		{
			name:    "save fails",
			prepare: func(s *flakySessions) { s.saveErr = errors.New("disk full") },
			message: "Logout failed",
			code:    "logout_failed",
		},
		{
			name:    "destroy fails",
			prepare: func(s *flakySessions) { s.destroyErr = errors.New("connection reset") },
			message: "Session destroy failed",
			code:    "session_destroy_failed",
		},
	}
	for _, tc := range failures {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)

			sess, err := f.sessions.Create(context.Background(), testSteamID)
			require.NoError(t, err)
			tc.prepare(f.sessions)

			resp := logoutWithCookie(t, f, sess.ID)
			require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

			var body httpx.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			require.Equal(t, tc.message, body.Error)
			require.Equal(t, tc.code, body.Code)
		})
	}
}
