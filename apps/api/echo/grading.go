package echoapi

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/grading"
)

type gradingApi struct {
	auth     *authenticator
	svc      grading.Service
	validate *validator.Validate
}

func registerGradingAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := gradingApi{auth: auth, svc: deps.GradingSvc, validate: deps.Validate}

	qg := g.Group("/quiz-submissions", jwt)
	qg.POST("", api.submitQuiz)
	qg.GET("", api.quizSubmissions)
	qg.GET("/:id", api.retrieveQuizSubmission)

	sg := g.Group("/assignment-submissions", jwt)
	sg.GET("/:id", api.retrieveSubmission)
	sg.POST("/:id/grade", api.grade)
	sg.POST("/:id/return", api.returnSubmission)
	sg.POST("/:id/resubmit", api.resubmit)
	sg.POST("/:id/peer-reviews", api.peerReview)
}

func (api *gradingApi) submitQuiz(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	var data grading.NewQuizSubmission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuizSubmission")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	sub, err := api.svc.SubmitQuiz(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "submitting quiz")
	}
	return created(ctx, sub)
}

func (api *gradingApi) quizSubmissions(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	filter := grading.QuizSubmissionFilter{QuizID: ctx.QueryParam("quiz_id"), UserID: ctx.QueryParam("user_id")}
	if filter.QuizID == "" {
		return core.NewFieldError("quiz_id", "this field is required")
	}
	subs, err := api.svc.ListQuizSubmissions(ctx.Request().Context(), actor, filter)
	if err != nil {
		return errors.Wrap(err, "listing quiz submissions")
	}
	if subs == nil {
		subs = []grading.QuizSubmission{}
	}
	return ok(ctx, subs)
}

func (api *gradingApi) retrieveQuizSubmission(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	sub, err := api.svc.GetQuizSubmission(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding quiz submission")
	}
	return ok(ctx, sub)
}

func (api *gradingApi) retrieveSubmission(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	sub, err := api.svc.GetSubmission(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding submission")
	}
	return ok(ctx, sub)
}

func (api *gradingApi) grade(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	var data grading.GradeSubmission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeSubmission")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	sub, err := api.svc.Grade(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}
	return ok(ctx, sub)
}

func (api *gradingApi) returnSubmission(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	var data grading.ReturnSubmission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReturnSubmission")
	}
	sub, err := api.svc.Return(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "returning submission")
	}
	return ok(ctx, sub)
}

func (api *gradingApi) resubmit(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	var data grading.NewAssignmentSubmission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignmentSubmission")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	sub, err := api.svc.Resubmit(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "resubmitting assignment")
	}
	return ok(ctx, sub)
}

func (api *gradingApi) peerReview(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	var data grading.PeerReview
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PeerReview")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	sub, err := api.svc.AddPeerReview(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding peer review")
	}
	return created(ctx, sub)
}
