package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campusboard/core/notice"
	"github.com/trezcool/campusboard/core/policy"
)

type noticeApi struct {
	svc *notice.Service
}

func registerNoticeAPI(e *echo.Echo, authed echo.MiddlewareFunc, svc *notice.Service) {
	api := noticeApi{svc: svc}

	e.GET("/categories", api.categories, authed)

	ng := e.Group("/notices", authed)
	ng.GET("", api.query, requireOperation(policy.ListNotices))
	ng.GET("/:id", api.retrieve, requireOperation(policy.ListNotices))
	ng.POST("", api.create, requireOperation(policy.CreateNotice))
	ng.DELETE("/:id", api.destroy, requireOperation(policy.DeleteNotice))
}

// Handlers

func (api *noticeApi) categories(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, notice.CategoryTable())
}

func (api *noticeApi) query(ctx echo.Context) error {
	var filter notice.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	notices, err := api.svc.List(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying notices")
	}
	return ctx.JSON(http.StatusOK, notices)
}

func (api *noticeApi) retrieve(ctx echo.Context) error {
	n, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding notice")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *noticeApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data notice.NewNotice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNotice")
	}

	n, err := api.svc.Create(ctx.Request().Context(), data, claims.Actor())
	if err != nil {
		return errors.Wrap(err, "creating notice")
	}
	return ctx.JSON(http.StatusCreated, n)
}

func (api *noticeApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id"), claims.Actor()); err != nil {
		return errors.Wrap(err, "deleting notice")
	}
	return ctx.NoContent(http.StatusNoContent)
}
