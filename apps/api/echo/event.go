package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core/event"
)

type eventApi struct {
	auth     *authenticator
	svc      event.Service
	validate *validator.Validate
}

func registerEventAPI(g *echo.Group, jwt, optJWT echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := eventApi{auth: auth, svc: deps.EventSvc, validate: deps.Validate}

	eg := g.Group("/events")
	eg.GET("", api.query, optJWT)
	eg.GET("/:id", api.retrieve, optJWT)
	eg.POST("", api.create, jwt)
	eg.PUT("/:id", api.update, jwt)
	eg.DELETE("/:id", api.destroy, jwt)
	eg.GET("/:id/registrations", api.registrations, jwt)
	eg.POST("/:id/registration", api.register, jwt)
	eg.DELETE("/:id/registration", api.cancelRegistration, jwt)
}

func (api *eventApi) query(ctx echo.Context) error {
	actor, err := api.auth.optionalUser(ctx)
	if err != nil {
		return err
	}
	filter := event.QueryFilter{
		Search: ctx.QueryParam("search"),
		Status: ctx.QueryParam("status"),
	}
	if past := bindQueryBool(ctx, "include_past"); past != nil {
		filter.IncludePast = *past
	}
	if t, err := time.Parse(time.RFC3339, ctx.QueryParam("from")); err == nil {
		filter.From = t
	}
	page := bindPagination(ctx)

	events, total, err := api.svc.Query(ctx.Request().Context(), actor, filter, page)
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	if events == nil {
		events = []event.Event{}
	}
	return ok(ctx, newPage(events, total, page))
}

func (api *eventApi) retrieve(ctx echo.Context) error {
	actor, err := api.auth.optionalUser(ctx)
	if err != nil {
		return err
	}
	e, err := api.svc.Get(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding event")
	}
	return ok(ctx, e)
}

func (api *eventApi) create(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	var data event.NewEvent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	e, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	return created(ctx, e)
}

func (api *eventApi) update(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	orig, err := api.svc.Get(reqCtx, &actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding event")
	}

	var data event.UpdateEvent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEvent")
	}
	if err = data.Validate(orig, api.validate); err != nil {
		return err
	}
	e, err := api.svc.Update(reqCtx, actor, orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating event")
	}
	return ok(ctx, e)
}

func (api *eventApi) destroy(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting event")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *eventApi) registrations(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	regs, err := api.svc.ListRegistrations(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing registrations")
	}
	if regs == nil {
		regs = []event.Registration{}
	}
	return ok(ctx, regs)
}

func (api *eventApi) register(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	reg, err := api.svc.Register(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "registering for event")
	}
	return created(ctx, reg)
}

func (api *eventApi) cancelRegistration(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.CancelRegistration(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "cancelling registration")
	}
	return ctx.NoContent(http.StatusNoContent)
}
