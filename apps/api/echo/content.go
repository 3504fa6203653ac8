package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/grading"
	"github.com/darasa-lms/darasa/core/user"
)

// contentApi serves the modules, lessons, quizzes and assignments of courses.
type contentApi struct {
	auth       *authenticator
	svc        course.Service
	gradingSvc grading.Service
	validate   *validator.Validate
}

func registerContentAPI(g *echo.Group, jwt, optJWT echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := contentApi{
		auth:       auth,
		svc:        deps.CourseSvc,
		gradingSvc: deps.GradingSvc,
		validate:   deps.Validate,
	}

	mg := g.Group("/modules")
	mg.POST("", api.createModule, jwt)
	mg.GET("/:id", api.retrieveModule, optJWT)
	mg.GET("/:id/lessons", api.moduleLessons, optJWT)
	mg.PUT("/:id", api.updateModule, jwt)
	mg.DELETE("/:id", api.destroyModule, jwt)

	lg := g.Group("/lessons")
	lg.POST("", api.createLesson, jwt)
	lg.GET("/:id", api.retrieveLesson, optJWT)
	lg.GET("/:id/quizzes", api.lessonQuizzes, optJWT)
	lg.PUT("/:id", api.updateLesson, jwt)
	lg.DELETE("/:id", api.destroyLesson, jwt)

	qg := g.Group("/quizzes")
	qg.POST("", api.createQuiz, jwt)
	qg.GET("/:id", api.retrieveQuiz, optJWT)
	qg.PUT("/:id", api.updateQuiz, jwt)
	qg.DELETE("/:id", api.destroyQuiz, jwt)

	ag := g.Group("/assignments")
	ag.POST("", api.createAssignment, jwt)
	ag.GET("/:id", api.retrieveAssignment, optJWT)
	ag.PUT("/:id", api.updateAssignment, jwt)
	ag.DELETE("/:id", api.destroyAssignment, jwt)
	ag.POST("/:id/submissions", api.submitAssignment, jwt)
	ag.GET("/:id/submissions", api.assignmentSubmissions, jwt)
}

// access loads the course of a content item and reports whether actor manages it.
// Content of courses actor may not see is reported as notFound.
func (api *contentApi) access(ctx echo.Context, courseID string, notFound error) (*user.User, bool, error) {
	actor, err := api.auth.optionalUser(ctx)
	if err != nil {
		return nil, false, err
	}
	c, err := api.svc.GetByID(ctx.Request().Context(), courseID)
	if err != nil {
		return nil, false, errors.Wrap(err, "finding course by ID")
	}
	if !course.CanView(actor, c) {
		return nil, false, notFound
	}
	return actor, actor != nil && actor.CanManage(c.InstructorID), nil
}

// Modules

func (api *contentApi) createModule(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	var data course.NewModule
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewModule")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	m, err := api.svc.CreateModule(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating module")
	}
	return created(ctx, m)
}

func (api *contentApi) retrieveModule(ctx echo.Context) error {
	m, err := api.svc.GetModule(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding module by ID")
	}
	_, manager, err := api.access(ctx, m.CourseID, course.ErrModuleNotFound)
	if err != nil {
		return err
	}
	if !manager && m.Status != course.ContentPublished {
		return course.ErrModuleNotFound
	}
	return ok(ctx, m)
}

func (api *contentApi) moduleLessons(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	m, err := api.svc.GetModule(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding module by ID")
	}
	_, manager, err := api.access(ctx, m.CourseID, course.ErrModuleNotFound)
	if err != nil {
		return err
	}
	lessons, err := api.svc.ListLessons(reqCtx, course.LessonFilter{ModuleID: m.ID, PublishedOnly: !manager})
	if err != nil {
		return errors.Wrap(err, "listing lessons")
	}
	if lessons == nil {
		lessons = []course.Lesson{}
	}
	return ok(ctx, lessons)
}

func (api *contentApi) updateModule(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	var data course.UpdateModule
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateModule")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	m, err := api.svc.UpdateModule(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating module")
	}
	return ok(ctx, m)
}

func (api *contentApi) destroyModule(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteModule(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting module")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Lessons

func (api *contentApi) createLesson(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	var data course.NewLesson
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	l, err := api.svc.CreateLesson(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return created(ctx, l)
}

func (api *contentApi) retrieveLesson(ctx echo.Context) error {
	l, err := api.svc.GetLesson(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding lesson by ID")
	}
	_, manager, err := api.access(ctx, l.CourseID, course.ErrLessonNotFound)
	if err != nil {
		return err
	}
	if !manager && !l.IsPublished() {
		return course.ErrLessonNotFound
	}
	return ok(ctx, l)
}

func (api *contentApi) lessonQuizzes(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	l, err := api.svc.GetLesson(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding lesson by ID")
	}
	_, manager, err := api.access(ctx, l.CourseID, course.ErrLessonNotFound)
	if err != nil {
		return err
	}
	if !manager && !l.IsPublished() {
		return course.ErrLessonNotFound
	}

	quizzes, err := api.svc.ListQuizzes(reqCtx, l.ID)
	if err != nil {
		return errors.Wrap(err, "listing quizzes")
	}
	if manager {
		if quizzes == nil {
			quizzes = []course.Quiz{}
		}
		return ok(ctx, quizzes)
	}
	views := make([]course.QuizView, 0, len(quizzes))
	for _, q := range quizzes {
		views = append(views, q.StudentView())
	}
	return ok(ctx, views)
}

func (api *contentApi) updateLesson(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	var data course.UpdateLesson
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLesson")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	l, err := api.svc.UpdateLesson(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return ok(ctx, l)
}

func (api *contentApi) destroyLesson(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteLesson(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Quizzes

func (api *contentApi) createQuiz(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	var data course.NewQuiz
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuiz")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	q, err := api.svc.CreateQuiz(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating quiz")
	}
	return created(ctx, q)
}

func (api *contentApi) retrieveQuiz(ctx echo.Context) error {
	q, err := api.svc.GetQuiz(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding quiz by ID")
	}
	_, manager, err := api.access(ctx, q.CourseID, course.ErrQuizNotFound)
	if err != nil {
		return err
	}
	if manager {
		return ok(ctx, q)
	}
	return ok(ctx, q.StudentView())
}

func (api *contentApi) updateQuiz(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	orig, err := api.svc.GetQuiz(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding quiz by ID")
	}

	var data course.UpdateQuiz
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateQuiz")
	}
	if err = data.Validate(orig, api.validate); err != nil {
		return err
	}
	q, err := api.svc.UpdateQuiz(reqCtx, actor, orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating quiz")
	}
	return ok(ctx, q)
}

func (api *contentApi) destroyQuiz(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteQuiz(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting quiz")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Assignments

func (api *contentApi) createAssignment(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	var data course.NewAssignment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	a, err := api.svc.CreateAssignment(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return created(ctx, a)
}

func (api *contentApi) retrieveAssignment(ctx echo.Context) error {
	a, err := api.svc.GetAssignment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding assignment by ID")
	}
	_, manager, err := api.access(ctx, a.CourseID, course.ErrAssignmentNotFound)
	if err != nil {
		return err
	}
	if !manager && a.Status != course.ContentPublished {
		return course.ErrAssignmentNotFound
	}
	return ok(ctx, a)
}

func (api *contentApi) updateAssignment(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	var data course.UpdateAssignment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssignment")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	a, err := api.svc.UpdateAssignment(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating assignment")
	}
	return ok(ctx, a)
}

func (api *contentApi) destroyAssignment(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteAssignment(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *contentApi) submitAssignment(ctx echo.Context) error {
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
	sub, err := api.gradingSvc.SubmitAssignment(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "submitting assignment")
	}
	return created(ctx, sub)
}

func (api *contentApi) assignmentSubmissions(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	subs, err := api.gradingSvc.ListSubmissions(ctx.Request().Context(), actor, grading.SubmissionFilter{
		AssignmentID: ctx.Param("id"),
		Status:       ctx.QueryParam("status"),
	})
	if err != nil {
		return errors.Wrap(err, "listing submissions")
	}
	if subs == nil {
		subs = []grading.AssignmentSubmission{}
	}
	return ok(ctx, subs)
}
