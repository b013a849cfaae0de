package echoapi

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/aicanvas/core"
	"github.com/trezcool/aicanvas/core/user"
)

const (
	sessionCookieName = "session"
	contextSessionKey = "session"
	contextUserKey    = "user"
)

var errInvalidSession = errors.New("invalid session")

// sessionClaims is the payload of the session cookie. The user ID is carried in Subject.
type sessionClaims struct {
	jwt.RegisteredClaims
}

// newSessionToken returns a signed session token for userID, valid for conf.Server.SessionMaxAge.
func newSessionToken(conf *core.Config, userID string, now time.Time) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    conf.AppName,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(conf.Server.SessionMaxAge)),
		},
	}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing session token")
	}
	return ss, nil
}

// parseSessionToken verifies the signature, issuer and expiry of a session token. The user ID is in Subject.
func parseSessionToken(conf *core.Config, tokenStr string) (*sessionClaims, error) {
	claims := new(sessionClaims)
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(conf.SecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(conf.AppName))
	if err != nil {
		return nil, errors.Wrap(errInvalidSession, err.Error())
	}
	if claims.Subject == "" {
		return nil, errInvalidSession
	}
	return claims, nil
}

func setSessionCookie(ctx echo.Context, conf *core.Config, token string) {
	ctx.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(conf.Server.SessionMaxAge / time.Second),
		HttpOnly: true,
		Secure:   conf.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(ctx echo.Context, conf *core.Config) {
	ctx.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   conf.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionJWTConfig reads the session token from the session cookie and stores its *sessionClaims under contextSessionKey.
func sessionJWTConfig(conf *core.Config) echojwt.Config {
	return echojwt.Config{
		TokenLookup: "cookie:" + sessionCookieName,
		ContextKey:  contextSessionKey,
		ParseTokenFunc: func(_ echo.Context, auth string) (interface{}, error) {
			return parseSessionToken(conf, auth)
		},
		ErrorHandler: func(echo.Context, error) error {
			return errUnauthorized
		},
	}
}

// sessionMiddleware resolves the session cookie to a User and stores it in the context.
// Missing, forged or expired sessions, and sessions of deleted users, are rejected with 401.
func sessionMiddleware(conf *core.Config, svc *user.Service) echo.MiddlewareFunc {
	jwtMiddleware := echojwt.WithConfig(sessionJWTConfig(conf))
	loadUser := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, ok := ctx.Get(contextSessionKey).(*sessionClaims)
			if !ok {
				return errUnauthorized
			}
			usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
			if err != nil {
				if errors.Is(err, user.ErrNotFound) {
					return errUnauthorized
				}
				return errors.Wrap(err, "finding user by ID")
			}
			ctx.Set(contextUserKey, usr)
			return next(ctx)
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return jwtMiddleware(loadUser(next))
	}
}

func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}
