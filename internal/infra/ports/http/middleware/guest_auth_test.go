package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/nanalive/randomchat/internal/infra/appctx"
)

const testSecret = "test-secret"

func signGuestToken(t *testing.T, secret string, subject string, ttl time.Duration) string {
	t.Helper()

	claims := &jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func runGuestAuth(t *testing.T, target string, header string) (int, uuid.UUID, bool) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var (
		gotID uuid.UUID
		seen  bool
	)

	handler := GuestAuthMiddleware(testSecret)(func(c echo.Context) error {
		gotID, seen = appctx.ParticipantID(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	require.NoError(t, handler(c))
	return rec.Code, gotID, seen
}

func Test_GuestAuth_Accepts_Bearer_Token(t *testing.T) {
	req := require.New(t)

	id := uuid.New()
	token := signGuestToken(t, testSecret, id.String(), time.Hour)

	code, gotID, seen := runGuestAuth(t, "/api/v1/ws", "Bearer "+token)

	req.Equal(http.StatusOK, code)
	req.True(seen)
	req.Equal(id, gotID)
}

func Test_GuestAuth_Accepts_Query_Token_For_Websocket_Dials(t *testing.T) {
	req := require.New(t)

	id := uuid.New()
	token := signGuestToken(t, testSecret, id.String(), time.Hour)

	code, gotID, seen := runGuestAuth(t, "/api/v1/ws?token="+token, "")

	req.Equal(http.StatusOK, code)
	req.True(seen)
	req.Equal(id, gotID)
}

func Test_GuestAuth_Rejects_Missing_And_Invalid_Tokens(t *testing.T) {
	req := require.New(t)

	code, _, seen := runGuestAuth(t, "/api/v1/ws", "")
	req.Equal(http.StatusUnauthorized, code)
	req.False(seen)

	expired := signGuestToken(t, testSecret, uuid.New().String(), -time.Hour)
	code, _, seen = runGuestAuth(t, "/api/v1/ws", "Bearer "+expired)
	req.Equal(http.StatusUnauthorized, code)
	req.False(seen)

	foreign := signGuestToken(t, "other-secret", uuid.New().String(), time.Hour)
	code, _, seen = runGuestAuth(t, "/api/v1/ws", "Bearer "+foreign)
	req.Equal(http.StatusUnauthorized, code)
	req.False(seen)

	badSubject := signGuestToken(t, testSecret, "not-a-uuid", time.Hour)
	code, _, seen = runGuestAuth(t, "/api/v1/ws", "Bearer "+badSubject)
	req.Equal(http.StatusUnauthorized, code)
	req.False(seen)
}
