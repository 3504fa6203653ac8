package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core/review"
	"github.com/darasa-lms/darasa/core/user"
)

type reviewApi struct {
	auth     *authenticator
	svc      review.Service
	validate *validator.Validate
}

func registerReviewAPI(g *echo.Group, jwt, admin echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := reviewApi{auth: auth, svc: deps.ReviewSvc, validate: deps.Validate}

	rg := g.Group("/reviews", jwt)
	rg.POST("", api.create)
	rg.GET("", api.query, admin)
	rg.PUT("/:id", api.update)
	rg.DELETE("/:id", api.destroy)
	rg.POST("/:id/approve", api.moderate(review.Service.Approve))
	rg.POST("/:id/reject", api.moderate(review.Service.Reject))
	rg.POST("/:id/flag", api.moderate(review.Service.Flag))
	rg.POST("/:id/helpful", api.vote(review.Service.MarkHelpful))
	rg.POST("/:id/report", api.vote(review.Service.Report))
}

func (api *reviewApi) create(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	var data review.NewReview
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReview")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	rv, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating review")
	}
	return created(ctx, rv)
}

func (api *reviewApi) query(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	filter := review.QueryFilter{
		CourseID:  ctx.QueryParam("course_id"),
		UserID:    ctx.QueryParam("user_id"),
		Status:    ctx.QueryParam("status"),
		IsFlagged: bindQueryBool(ctx, "is_flagged"),
	}
	page := bindPagination(ctx)
	reviews, total, err := api.svc.Query(ctx.Request().Context(), actor, filter, page)
	if err != nil {
		return errors.Wrap(err, "querying reviews")
	}
	if reviews == nil {
		reviews = []review.Review{}
	}
	return ok(ctx, newPage(reviews, total, page))
}

func (api *reviewApi) update(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	var data review.UpdateReview
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateReview")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	rv, err := api.svc.Update(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating review")
	}
	return ok(ctx, rv)
}

func (api *reviewApi) destroy(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting review")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type moderateFunc func(review.Service, context.Context, user.User, string, review.Moderation) (review.Review, error)

func (api *reviewApi) moderate(fn moderateFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		actor, err := api.auth.currentUser(ctx)
		if err != nil {
			return err
		}
		var data review.Moderation
		if err = ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to Moderation")
		}
		if err = data.Validate(api.validate); err != nil {
			return err
		}
		rv, err := fn(api.svc, ctx.Request().Context(), actor, ctx.Param("id"), data)
		if err != nil {
			return errors.Wrap(err, "moderating review")
		}
		return ok(ctx, rv)
	}
}

func (api *reviewApi) vote(fn func(review.Service, context.Context, string) (review.Review, error)) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		rv, err := fn(api.svc, ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "voting on review")
		}
		return ok(ctx, rv)
	}
}
