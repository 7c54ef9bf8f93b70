package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/cadet"
	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/grading"
)

type cadetApi struct {
	svc      *cadet.Service
	grades   *grading.Service
	validate *validator.Validate
}

func registerCadetAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := cadetApi{
		svc:      deps.CadetSvc,
		grades:   deps.GradingSvc,
		validate: deps.Validate,
	}

	cg := g.Group("/cadets", jwt)
	cg.POST("", api.create, adminMiddleware())
	cg.GET("", api.query)

	dg := cg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminMiddleware())
	dg.POST("/archive", api.archive, adminMiddleware())
	dg.POST("/unarchive", api.unarchive, adminMiddleware())
	dg.DELETE("", api.purge, adminMiddleware())
}

// Handlers

func (api *cadetApi) create(ctx echo.Context) error {
	var data cadet.NewCadet
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCadet")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	cdt, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating cadet")
	}
	return ctx.JSON(http.StatusCreated, cdt)
}

func (api *cadetApi) query(ctx echo.Context) error {
	filter := new(cadet.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []cadet.Cadet{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	cadets, err := api.svc.Filter(ctx.Request().Context(), *filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying cadets")
	}
	if cadets == nil {
		cadets = []cadet.Cadet{}
	}
	return ctx.JSON(http.StatusOK, cadets)
}

func (api *cadetApi) retrieve(ctx echo.Context) error {
	cdt, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == cadet.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding cadet by ID")
	}
	return ctx.JSON(http.StatusOK, cdt)
}

func (api *cadetApi) update(ctx echo.Context) error {
	var data cadet.UpdateCadet
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCadet")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	cdt, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == cadet.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating cadet")
	}
	return ctx.JSON(http.StatusOK, cdt)
}

func (api *cadetApi) archive(ctx echo.Context) error {
	cdt, err := api.svc.Archive(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == cadet.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "archiving cadet")
	}
	return ctx.JSON(http.StatusOK, cdt)
}

func (api *cadetApi) unarchive(ctx echo.Context) error {
	cdt, err := api.svc.Unarchive(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == cadet.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "unarchiving cadet")
	}
	return ctx.JSON(http.StatusOK, cdt)
}

func (api *cadetApi) purge(ctx echo.Context) error {
	err := api.svc.Purge(ctx.Request().Context(), ctx.Param("id"))
	switch errors.Cause(err) {
	case nil:
		return ctx.NoContent(http.StatusNoContent)
	case cadet.ErrNotFound:
		return errHttpNotFound
	case cadet.ErrNotArchived, cadet.ErrRetentionWindow:
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return errors.Wrap(err, "purging cadet")
	}
}
