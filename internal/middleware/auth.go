package middleware

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/gabegon8910/server-donation-tool/internal/model"
)

const userContextKey = "user"

type sessionClaims struct {
	SteamID   string `json:"steam_id,omitempty"`
	DiscordID string `json:"discord_id"`
	jwt.RegisteredClaims
}

// Sign mints a session token for a logged-in member. The login flow itself
// (Discord OAuth) lives outside this service; it calls Sign and hands the
// token to the browser.
func Sign(secret string, user model.User, ttl time.Duration) (string, error) {
	claims := sessionClaims{
		SteamID:   user.SteamID,
		DiscordID: user.DiscordID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// SessionAuth validates the session cookie and puts the member on the
// request context. Requests without a valid session are rejected.
func SessionAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie("session")
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing session")
			}

			var claims sessionClaims
			token, err := jwt.ParseWithClaims(cookie.Value, &claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
			}

			c.Set(userContextKey, model.User{
				SteamID:   claims.SteamID,
				DiscordID: claims.DiscordID,
			})
			return next(c)
		}
	}
}

// UserFrom reads the authenticated member set by SessionAuth.
func UserFrom(c echo.Context) (model.User, bool) {
	user, ok := c.Get(userContextKey).(model.User)
	return user, ok
}
