package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/aicanvas/core"
	"github.com/trezcool/aicanvas/core/user"
	sqlxrepos "github.com/trezcool/aicanvas/storage/database/sqlx"
	testutil "github.com/trezcool/aicanvas/tests"
)

func sessionTestConfig() *core.Config {
	return &core.Config{
		AppName:   "AI Canvas",
		SecretKey: "test-secret",
		Server:    core.ServerConfig{SessionMaxAge: 7 * 24 * time.Hour},
	}
}

func Test_parseSessionToken(t *testing.T) {
	conf := sessionTestConfig()
	now := time.Now()

	valid, err := newSessionToken(conf, "u1", now)
	require.NoError(t, err)
	claims, err := parseSessionToken(conf, valid)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)

	otherKey := *conf
	otherKey.SecretKey = "another-secret"
	forged, err := newSessionToken(&otherKey, "u1", now)
	require.NoError(t, err)

	otherApp := *conf
	otherApp.AppName = "Other"
	foreign, err := newSessionToken(&otherApp, "u1", now)
	require.NoError(t, err)

	expired, err := newSessionToken(conf, "u1", now.Add(-8*24*time.Hour))
	require.NoError(t, err)

	noSubject, err := newSessionToken(conf, "", now)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Issuer: conf.AppName, Subject: "u1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"raw user id":    "u1",
		"other key":      forged,
		"other issuer":   foreign,
		"expired":        expired,
		"no subject":     noSubject,
		"unsigned (alg)": none,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := parseSessionToken(conf, token)
			assert.ErrorIs(t, err, errInvalidSession)
		})
	}
}

func Test_sessionMiddleware(t *testing.T) {
	conf := sessionTestConfig()
	db := testutil.PrepareDB(t)
	usrRepo := sqlxrepos.NewUserRepository(db)
	usr := testutil.CreateUser(t, usrRepo, "s@x.com", user.RoleStudent)

	e := echo.New()
	handler := sessionMiddleware(conf, user.NewService(usrRepo))(func(ctx echo.Context) error {
		got, err := getContextUser(ctx)
		if err != nil {
			return err
		}
		return ctx.String(http.StatusOK, got.Email)
	})

	valid, err := newSessionToken(conf, usr.ID, time.Now())
	require.NoError(t, err)
	ghost, err := newSessionToken(conf, "deleted-user", time.Now())
	require.NoError(t, err)

	tests := []struct {
		name     string
		cookie   *http.Cookie
		wantCode int
	}{
		{name: "no cookie", wantCode: http.StatusUnauthorized},
		{name: "empty cookie", cookie: &http.Cookie{Name: sessionCookieName}, wantCode: http.StatusUnauthorized},
		{name: "raw user id", cookie: &http.Cookie{Name: sessionCookieName, Value: usr.ID}, wantCode: http.StatusUnauthorized},
		{name: "unknown user", cookie: &http.Cookie{Name: sessionCookieName, Value: ghost}, wantCode: http.StatusUnauthorized},
		{name: "valid", cookie: &http.Cookie{Name: sessionCookieName, Value: valid}, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			rec := httptest.NewRecorder()
			err := handler(e.NewContext(req, rec))

			if tt.wantCode == http.StatusOK {
				require.NoError(t, err)
				assert.Equal(t, "s@x.com", rec.Body.String())
				return
			}
			var herr *echo.HTTPError
			require.ErrorAs(t, err, &herr)
			assert.Equal(t, tt.wantCode, herr.Code)
		})
	}
}
