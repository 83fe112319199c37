package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/account"
)

type authApi struct {
	svc      *account.Service
	sessions *core.SessionStore
	validate *validator.Validate
}

func registerAuthAPI(g *echo.Group, jwt, session echo.MiddlewareFunc, deps *ServerDeps) {
	api := authApi{
		svc:      deps.AccountSvc,
		sessions: deps.Sessions,
		validate: deps.Validate,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/login", api.login)
	ag.POST("/register", api.register)

	// authed endpoints
	authed := ag.Group("", jwt, session)
	authed.POST("/logout", api.logout)
	authed.POST("/token-refresh", api.refreshToken)
}

// Handlers

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	role := account.Role(data.Role)
	if data.Role == "" {
		role = account.RoleStudent
	}
	if !role.Valid() {
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: "unknown role"})
	}

	var claims *Claims
	switch role {
	case account.RoleAdmin:
		adm, err := api.svc.AuthenticateAdmin(ctx.Request().Context(), data.Username, data.Password)
		if err != nil {
			if errors.Cause(err) == account.ErrNotFound {
				return errAuthenticationFailed
			}
			return errors.Wrap(err, "authenticating admin")
		}
		claims = GetAdminClaims(adm, api.sessions.New(adm.ID, string(role)))
	default:
		st, err := api.svc.AuthenticateStudent(ctx.Request().Context(), data.Username, data.Password)
		if err != nil {
			if errors.Cause(err) == account.ErrNotFound {
				return errAuthenticationFailed
			}
			return errors.Wrap(err, "authenticating student")
		}
		claims = GetStudentClaims(st, api.sessions.New(st.ID, string(role)))
	}

	token, err := GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, LandingPath: role.LandingPath()})
}

func (api *authApi) register(ctx echo.Context) error {
	var data account.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	st, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering student")
	}
	return ctx.JSON(http.StatusCreated, st)
}

func (api *authApi) logout(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	api.sessions.Invalidate(claims.SessionID)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.sessions)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
		// Role selects the portal: "admin" or "student" (default).
		Role string `json:"role"`
	}

	LoginResponse struct {
		Token       string `json:"token"`
		LandingPath string `json:"landing_path,omitempty"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	lr.Role = core.CleanString(lr.Role, true /* lower */)
	return validate.Struct(lr)
}
