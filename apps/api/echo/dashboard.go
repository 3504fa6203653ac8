package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core/dashboard"
)

type dashboardApi struct {
	auth *authenticator
	svc  dashboard.Service
}

func registerDashboardAPI(g *echo.Group, jwt, admin echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := dashboardApi{auth: auth, svc: deps.DashboardSvc}
	g.GET("/dashboard/stats", api.stats, jwt, admin)
}

func (api *dashboardApi) stats(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	stats, err := api.svc.Stats(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "computing dashboard stats")
	}
	return ok(ctx, stats)
}
