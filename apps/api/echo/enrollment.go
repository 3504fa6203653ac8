package echoapi

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/enrollment"
	"github.com/darasa-lms/darasa/core/progress"
)

type enrollmentApi struct {
	auth        *authenticator
	svc         enrollment.Service
	progressSvc progress.Service
	validate    *validator.Validate
}

func registerEnrollmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := enrollmentApi{
		auth:        auth,
		svc:         deps.EnrollmentSvc,
		progressSvc: deps.ProgressSvc,
		validate:    deps.Validate,
	}

	// the current user's enrollments
	eg := g.Group("/enrollments", jwt)
	eg.POST("", api.enroll)
	eg.GET("", api.mine)

	// management
	cg := g.Group("/course-enrollments", jwt)
	cg.GET("", api.forCourse)
	cg.GET("/:id", api.retrieve)
	cg.PATCH("/:id/progress", api.updateProgress)
	cg.PATCH("/:id/status", api.changeStatus)

	pg := g.Group("/progress", jwt)
	pg.POST("", api.recordProgress)
	pg.GET("", api.listProgress)

	// gateway webhook; authenticity is checked through the notification signature
	g.POST("/payments/notification", api.paymentNotification)
}

func (api *enrollmentApi) enroll(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	var data enrollment.NewEnrollment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	enr, err := api.svc.Enroll(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return created(ctx, enr)
}

func (api *enrollmentApi) mine(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	page := bindPagination(ctx)
	filter := enrollment.QueryFilter{
		Status:        ctx.QueryParam("status"),
		PaymentStatus: ctx.QueryParam("payment_status"),
	}
	list, total, err := api.svc.ListForUser(ctx.Request().Context(), actor.ID, filter, page)
	if err != nil {
		return errors.Wrap(err, "listing enrollments")
	}
	if list == nil {
		list = []enrollment.CourseEnrollment{}
	}
	return ok(ctx, newPage(list, total, page))
}

func (api *enrollmentApi) forCourse(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	filter := enrollment.QueryFilter{
		CourseID:      ctx.QueryParam("course_id"),
		Status:        ctx.QueryParam("status"),
		PaymentStatus: ctx.QueryParam("payment_status"),
	}
	if filter.CourseID == "" {
		return core.NewFieldError("course_id", "this field is required")
	}
	page := bindPagination(ctx)

	list, total, err := api.svc.ListForCourse(ctx.Request().Context(), actor, filter, page)
	if err != nil {
		return errors.Wrap(err, "listing course enrollments")
	}
	if list == nil {
		list = []enrollment.CourseEnrollment{}
	}
	return ok(ctx, newPage(list, total, page))
}

func (api *enrollmentApi) retrieve(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	enr, err := api.svc.Get(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding enrollment")
	}
	return ok(ctx, enr)
}

func (api *enrollmentApi) updateProgress(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	var data enrollment.UpdateProgress
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProgress")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	enr, err := api.svc.UpdateProgress(ctx.Request().Context(), actor, ctx.Param("id"), *data.Progress)
	if err != nil {
		return errors.Wrap(err, "updating enrollment progress")
	}
	return ok(ctx, enr)
}

func (api *enrollmentApi) changeStatus(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	var data enrollment.ChangeStatus
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangeStatus")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	enr, err := api.svc.ChangeStatus(ctx.Request().Context(), actor, ctx.Param("id"), data.Status)
	if err != nil {
		return errors.Wrap(err, "changing enrollment status")
	}
	return ok(ctx, enr)
}

func (api *enrollmentApi) paymentNotification(ctx echo.Context) error {
	var data enrollment.PaymentNotification
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PaymentNotification")
	}
	enr, err := api.svc.ConfirmPayment(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "confirming payment")
	}
	return ok(ctx, enr)
}

func (api *enrollmentApi) recordProgress(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	var data progress.NewProgress
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProgress")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	p, err := api.progressSvc.Record(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "recording progress")
	}
	return ok(ctx, p)
}

func (api *enrollmentApi) listProgress(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	courseID := ctx.QueryParam("course_id")
	if courseID == "" {
		return core.NewFieldError("course_id", "this field is required")
	}
	list, err := api.progressSvc.List(ctx.Request().Context(), actor, courseID)
	if err != nil {
		return errors.Wrap(err, "listing progress")
	}
	if list == nil {
		list = []progress.CourseProgress{}
	}
	return ok(ctx, list)
}
