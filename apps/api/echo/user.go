package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campusboard/core/policy"
	"github.com/trezcool/campusboard/core/user"
)

type userApi struct {
	svc *user.Service
}

func registerUserAPI(e *echo.Echo, authed echo.MiddlewareFunc, svc *user.Service) {
	api := userApi{svc: svc}

	ug := e.Group("/users", authed, requireOperation(policy.ManageUsers))
	ug.GET("", api.query)
	ug.DELETE("/:id", api.destroy)
}

// Handlers

func (api *userApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var filter user.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}

	users, err := api.svc.Query(ctx.Request().Context(), filter, claims.Actor())
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id"), claims.Actor()); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}
