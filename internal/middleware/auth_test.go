package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabegon8910/server-donation-tool/internal/middleware"
	"github.com/gabegon8910/server-donation-tool/internal/model"
)

const testSecret = "test-secret"

func doRequest(t *testing.T, secret string, cookie *http.Cookie) (*httptest.ResponseRecorder, model.User, bool) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got model.User
	var ok bool
	handler := middleware.SessionAuth(secret)(func(c echo.Context) error {
		got, ok = middleware.UserFrom(c)
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, got, ok
}

func TestSessionAuth(t *testing.T) {
	t.Parallel()

	user := model.User{SteamID: "7650000001", DiscordID: "discord-1"}

	t.Run("round-trips the signed member", func(t *testing.T) {
		t.Parallel()
		token, err := middleware.Sign(testSecret, user, time.Hour)
		require.NoError(t, err)

		rec, got, ok := doRequest(t, testSecret, &http.Cookie{Name: "session", Value: token})

		assert.Equal(t, http.StatusOK, rec.Code)
		require.True(t, ok)
		assert.Equal(t, user, got)
	})

	t.Run("rejects a missing cookie", func(t *testing.T) {
		t.Parallel()
		rec, _, ok := doRequest(t, testSecret, nil)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, ok)
	})

	t.Run("rejects a token signed with another secret", func(t *testing.T) {
		t.Parallel()
		token, err := middleware.Sign("other-secret", user, time.Hour)
		require.NoError(t, err)

		rec, _, _ := doRequest(t, testSecret, &http.Cookie{Name: "session", Value: token})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		t.Parallel()
		token, err := middleware.Sign(testSecret, user, -time.Minute)
		require.NoError(t, err)

		rec, _, _ := doRequest(t, testSecret, &http.Cookie{Name: "session", Value: token})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
