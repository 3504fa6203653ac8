package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/progress"
	"github.com/darasa-lms/darasa/core/review"
	"github.com/darasa-lms/darasa/core/user"
)

type courseApi struct {
	auth        *authenticator
	svc         course.Service
	reviewSvc   review.Service
	progressSvc progress.Service
	validate    *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt, optJWT echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := courseApi{
		auth:        auth,
		svc:         deps.CourseSvc,
		reviewSvc:   deps.ReviewSvc,
		progressSvc: deps.ProgressSvc,
		validate:    deps.Validate,
	}

	cg := g.Group("/courses")
	cg.GET("", api.query, optJWT)
	cg.GET("/slug/:slug", api.retrieveBySlug, optJWT)
	cg.GET("/:id", api.retrieve, optJWT)
	cg.GET("/:id/modules", api.modules, optJWT)
	cg.GET("/:id/reviews", api.reviews)
	cg.GET("/:id/progress", api.progress, jwt)
	cg.POST("", api.create, jwt)
	cg.PUT("/:id", api.update, jwt)
	cg.DELETE("/:id", api.destroy, jwt)
}

// visible returns the course if actor may see it, and a not found error otherwise.
func (api *courseApi) visible(ctx echo.Context, c course.Course) (*user.User, error) {
	actor, err := api.auth.optionalUser(ctx)
	if err != nil {
		return nil, err
	}
	if !course.CanView(actor, c) {
		return nil, course.ErrNotFound
	}
	return actor, nil
}

func (api *courseApi) query(ctx echo.Context) error {
	actor, err := api.auth.optionalUser(ctx)
	if err != nil {
		return err
	}

	filter := &course.QueryFilter{
		Search:       ctx.QueryParam("search"),
		Status:       ctx.QueryParam("status"),
		Level:        ctx.QueryParam("level"),
		InstructorID: ctx.QueryParam("instructor_id"),
		IsFree:       bindQueryBool(ctx, "is_free"),
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)
	page := bindPagination(ctx)

	courses, total, err := api.svc.Query(ctx.Request().Context(), actor, filter, ordering.Orderings, page)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ok(ctx, newPage(courses, total, page))
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	c, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}
	if _, err = api.visible(ctx, c); err != nil {
		return err
	}
	return ok(ctx, c)
}

func (api *courseApi) retrieveBySlug(ctx echo.Context) error {
	c, err := api.svc.GetBySlug(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		return errors.Wrap(err, "finding course by slug")
	}
	if _, err = api.visible(ctx, c); err != nil {
		return err
	}
	return ok(ctx, c)
}

func (api *courseApi) modules(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	c, err := api.svc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}
	actor, err := api.visible(ctx, c)
	if err != nil {
		return err
	}

	modules, err := api.svc.ListModules(reqCtx, c.ID)
	if err != nil {
		return errors.Wrap(err, "listing modules")
	}
	manager := actor != nil && actor.CanManage(c.InstructorID)
	listed := make([]course.Module, 0, len(modules))
	for _, m := range modules {
		if manager || m.Status == course.ContentPublished {
			listed = append(listed, m)
		}
	}
	return ok(ctx, listed)
}

func (api *courseApi) reviews(ctx echo.Context) error {
	listing, err := api.reviewSvc.ListForCourse(ctx.Request().Context(), ctx.Param("id"), bindPagination(ctx))
	if err != nil {
		return errors.Wrap(err, "listing course reviews")
	}
	if listing.Reviews == nil {
		listing.Reviews = []review.Review{}
	}
	return ok(ctx, listing)
}

func (api *courseApi) progress(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	report, err := api.progressSvc.Report(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building progress report")
	}
	return ok(ctx, report)
}

func (api *courseApi) create(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}

	var data course.NewCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return created(ctx, c)
}

func (api *courseApi) update(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}

	var data course.UpdateCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Update(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ok(ctx, c)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}
