package echoapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campusboard/core"
	"github.com/trezcool/campusboard/core/auth"
	"github.com/trezcool/campusboard/core/policy"
	"github.com/trezcool/campusboard/core/user"
)

const (
	contextClaimsKey = "claims"
	bearerScheme     = "Bearer"
)

var (
	errMissingToken     = echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed token")
	errClaimsNotInCtx   = errors.New("claims not found in echo.Context")
	passwordResetText   = "If the email address supplied is associated with an active account on this system, an email will arrive in your inbox shortly with instructions to reset your password."
	passwordConfirmText = "Password has been reset with the new password."
	logoutText          = "Successfully logged out."
)

// authMiddleware verifies the bearer token of the request and stores its claims in the context.
func authMiddleware(svc *auth.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			token, ok := bearerToken(ctx.Request())
			if !ok {
				return errMissingToken
			}
			claims, err := svc.Verify(ctx.Request().Context(), token)
			if err != nil {
				return err
			}
			ctx.Set(contextClaimsKey, claims)
			return next(ctx)
		}
	}
}

// requireOperation rejects requests whose role may not perform op.
func requireOperation(op policy.Operation) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if !claims.Actor().Can(op) {
				return core.ErrForbidden
			}
			return next(ctx)
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.Fields(r.Header.Get(echo.HeaderAuthorization))
	if len(parts) != 2 || !strings.EqualFold(parts[0], bearerScheme) {
		return "", false
	}
	return parts[1], true
}

func getContextClaims(ctx echo.Context) (*auth.Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(*auth.Claims); ok {
		return claims, nil
	}
	return nil, errors.WithStack(errClaimsNotInCtx)
}

type authApi struct {
	authSvc  *auth.Service
	userSvc  *user.Service
	validate *core.Validator
	logger   core.Logger
}

func registerAuthAPI(e *echo.Echo, authed echo.MiddlewareFunc, opts *Options) {
	api := authApi{
		authSvc:  opts.AuthSvc,
		userSvc:  opts.UserSvc,
		validate: opts.Validator,
		logger:   opts.Logger,
	}

	// un-authed endpoints
	e.POST("/login", api.login)
	e.POST("/password-reset", api.resetPassword)
	e.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	e.POST("/logout", api.logout, authed)
	e.POST("/token-refresh", api.refreshToken, authed)
	e.GET("/me", api.me, authed)
}

// Handlers

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	data.Clean()
	if err := api.validate.Check(data); err != nil {
		return err
	}

	sess, token, err := api.authSvc.Login(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		return errors.Wrap(err, "logging in")
	}
	return ctx.JSON(http.StatusOK, newLoginResponse(sess, token))
}

func (api *authApi) logout(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if err := api.authSvc.Logout(ctx.Request().Context(), claims); err != nil {
		return errors.Wrap(err, "logging out")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: logoutText})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	sess, token, err := api.authSvc.Refresh(ctx.Request().Context(), claims)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, newLoginResponse(sess, token))
}

func (api *authApi) me(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	usr, err := api.userSvc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	data.Clean()
	if err := api.validate.Check(data); err != nil {
		return err
	}

	if err := api.userSvc.RequestPasswordReset(ctx.Request().Context(), data.Email); err != nil && !errors.Is(err, core.ErrNotFound) {
		// do not return errors to attackers
		api.logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: passwordResetText})
}

func (api *authApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if _, err := api.userSvc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: passwordConfirmText})
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"notblank"`
		Password string `json:"password" validate:"notblank"`
	}

	LoginResponse struct {
		Token     string      `json:"token"`
		ExpiresAt time.Time   `json:"expires_at"`
		Role      policy.Role `json:"role"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Clean() {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
}

func (pr *PasswordResetRequest) Clean() {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
}

func newLoginResponse(sess auth.Session, token string) LoginResponse {
	return LoginResponse{Token: token, ExpiresAt: sess.ExpiresAt, Role: sess.Role}
}
