package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/aicanvas/core"
	"github.com/trezcool/aicanvas/core/auth"
	"github.com/trezcool/aicanvas/core/user"
)

const (
	dashboardPath       = "/dashboard"
	errInvalidTokenPath = "/?error=invalid_token"
	errExpiredTokenPath = "/?error=invalid_or_expired"
	msgDevLinkGenerated = "Magic link generated (dev mode)"
	msgMagicLinkSent    = "Magic link sent to your email"
	msgLoggedOut        = "Logged out"
)

type authApi struct {
	conf     *core.Config
	authSvc  *auth.Service
	validate *validator.Validate
	metrics  *metrics
}

func registerAuthAPI(g *echo.Group, session echo.MiddlewareFunc, deps ServerDeps, m *metrics) {
	api := authApi{
		conf:     deps.Conf,
		authSvc:  deps.AuthSvc,
		validate: deps.Validate,
		metrics:  m,
	}

	ag := g.Group("/auth")
	ag.POST("/login", api.login)
	ag.GET("/verify", api.verify)
	ag.POST("/logout", api.logout)
	ag.GET("/me", api.me, session)
}

type (
	LoginResponse struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		DevLink string `json:"devLink,omitempty"`
	}

	SuccessResponse struct {
		Success bool   `json:"success"`
		Message string `json:"message,omitempty"`
	}
)

func (api *authApi) login(ctx echo.Context) error {
	var data auth.LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	data.Clean()
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	res, err := api.authSvc.RequestLogin(ctx.Request().Context(), data.Email, data.Role)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return err
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to send magic link").SetInternal(err)
	}

	resp := LoginResponse{Success: res.Sent, Message: msgMagicLinkSent}
	if res.DevLink != "" {
		resp.Message = msgDevLinkGenerated
		resp.DevLink = res.DevLink
		api.metrics.magicLinks.WithLabelValues("dev").Inc()
	} else {
		api.metrics.magicLinks.WithLabelValues("email").Inc()
	}
	return ctx.JSON(http.StatusOK, resp)
}

// verify consumes a magic link token, starts a session and redirects to the dashboard.
// Failures redirect to the home page with an error code instead of returning an error body.
func (api *authApi) verify(ctx echo.Context) error {
	token := ctx.QueryParam("token")
	if token == "" {
		return ctx.Redirect(http.StatusFound, errInvalidTokenPath)
	}

	userID, err := api.authSvc.Consume(ctx.Request().Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			return ctx.Redirect(http.StatusFound, errExpiredTokenPath)
		}
		return errors.Wrap(err, "consuming magic link")
	}

	session, err := newSessionToken(api.conf, userID, auth.NowFunc())
	if err != nil {
		return err
	}
	setSessionCookie(ctx, api.conf, session)
	return ctx.Redirect(http.StatusFound, dashboardPath)
}

func (api *authApi) logout(ctx echo.Context) error {
	clearSessionCookie(ctx, api.conf)
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: true, Message: msgLoggedOut})
}

func (api *authApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}
