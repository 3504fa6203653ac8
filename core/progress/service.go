package progress

import (
	"context"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/enrollment"
	"github.com/darasa-lms/darasa/core/user"
)

var (
	// errors
	ErrNotFound = core.NewError(core.KindNotFound, "progress not found")
)

type (
	Repository interface {
		// UpsertProgress inserts p or, when a row with the same (enrollment, key) exists, merges p into it:
		// attempts and time spent accumulate, completion is never undone and completed_at keeps its first value.
		UpsertProgress(ctx context.Context, p CourseProgress) (CourseProgress, error)
		ListProgress(ctx context.Context, filter Filter) ([]CourseProgress, error)
	}

	Service interface {
		// Record saves the progress of actor on a course item.
		Record(ctx context.Context, actor user.User, np NewProgress) (CourseProgress, error)
		// Save upserts p as is; it joins any transaction carried by ctx.
		Save(ctx context.Context, p CourseProgress) (CourseProgress, error)
		// Recompute sets the enrollment progress to its share of completed published lessons.
		Recompute(ctx context.Context, enr enrollment.CourseEnrollment) (enrollment.CourseEnrollment, error)
		List(ctx context.Context, actor user.User, courseID string) ([]CourseProgress, error)
		Report(ctx context.Context, actor user.User, courseID string) (CourseReport, error)
	}

	service struct {
		repo      Repository
		tx        core.Transactor
		courseSvc course.Service
		enrollSvc enrollment.Service
		logger    core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, tx core.Transactor, courseSvc course.Service, enrollSvc enrollment.Service, logger core.Logger) Service {
	return &service{
		repo:      repo,
		tx:        tx,
		courseSvc: courseSvc,
		enrollSvc: enrollSvc,
		logger:    logger,
	}
}

func (svc *service) Record(ctx context.Context, actor user.User, np NewProgress) (CourseProgress, error) {
	enr, err := svc.enrollSvc.RequireOngoing(ctx, np.CourseID, actor.ID)
	if err != nil {
		return CourseProgress{}, err
	}
	if err := svc.resolveItems(ctx, &np); err != nil {
		return CourseProgress{}, err
	}
	np.normalize()

	p := CourseProgress{
		EnrollmentID:         enr.ID,
		CourseID:             enr.CourseID,
		UserID:               enr.UserID,
		ModuleID:             np.ModuleID,
		LessonID:             np.LessonID,
		QuizID:               np.QuizID,
		AssignmentID:         np.AssignmentID,
		ProgressType:         np.ProgressType,
		Status:               np.Status,
		CompletionPercentage: np.CompletionPercentage,
		Score:                np.Score,
		TimeSpentMinutes:     np.TimeSpentMinutes,
	}

	var saved CourseProgress
	err = svc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if saved, err = svc.Save(ctx, p); err != nil {
			return err
		}
		if saved.ProgressType == TypeLesson && saved.Status == StatusCompleted {
			_, err = svc.Recompute(ctx, enr)
		}
		return err
	})
	if err != nil {
		return CourseProgress{}, err
	}
	return saved, nil
}

// resolveItems checks that the referenced items belong to the course and fills in their parents.
func (svc *service) resolveItems(ctx context.Context, np *NewProgress) error {
	if np.QuizID != nil {
		q, err := svc.courseSvc.GetQuiz(ctx, *np.QuizID)
		if err != nil {
			return err
		}
		if q.CourseID != np.CourseID {
			return core.NewFieldError("quiz_id", "quiz does not belong to this course")
		}
		if np.LessonID == nil {
			np.LessonID = &q.LessonID
		} else if *np.LessonID != q.LessonID {
			return core.NewFieldError("lesson_id", "quiz does not belong to this lesson")
		}
	}
	if np.AssignmentID != nil {
		a, err := svc.courseSvc.GetAssignment(ctx, *np.AssignmentID)
		if err != nil {
			return err
		}
		if a.CourseID != np.CourseID {
			return core.NewFieldError("assignment_id", "assignment does not belong to this course")
		}
		if np.LessonID == nil && a.LessonID != nil {
			np.LessonID = a.LessonID
		}
		if np.ModuleID == nil && a.ModuleID != nil {
			np.ModuleID = a.ModuleID
		}
	}
	if np.LessonID != nil {
		l, err := svc.courseSvc.GetLesson(ctx, *np.LessonID)
		if err != nil {
			return err
		}
		if l.CourseID != np.CourseID {
			return core.NewFieldError("lesson_id", "lesson does not belong to this course")
		}
		if np.ModuleID == nil {
			np.ModuleID = &l.ModuleID
		} else if *np.ModuleID != l.ModuleID {
			return core.NewFieldError("module_id", "lesson does not belong to this module")
		}
	}
	if np.ModuleID != nil {
		m, err := svc.courseSvc.GetModule(ctx, *np.ModuleID)
		if err != nil {
			return err
		}
		if m.CourseID != np.CourseID {
			return core.NewFieldError("module_id", "module does not belong to this course")
		}
	}
	return nil
}

func (svc *service) Save(ctx context.Context, p CourseProgress) (CourseProgress, error) {
	now := time.Now().UTC()
	p.setKey()
	p.CompletionPercentage = core.ClampPercentage(p.CompletionPercentage)
	if p.Status == "" {
		p.Status = StatusInProgress
	}
	if p.Status == StatusCompleted && p.CompletedAt == nil {
		p.CompletedAt = &now
	}
	if p.CountsAttempts() {
		p.Attempts = 1
	}
	p.StartedAt = now
	p.LastAccessedAt = now
	p.CreatedAt = now
	p.UpdatedAt = now

	saved, err := svc.repo.UpsertProgress(ctx, p)
	if err != nil {
		return CourseProgress{}, pkgerrors.Wrap(err, "saving progress")
	}
	return saved, nil
}

func (svc *service) Recompute(ctx context.Context, enr enrollment.CourseEnrollment) (enrollment.CourseEnrollment, error) {
	lessons, err := svc.courseSvc.ListLessons(ctx, course.LessonFilter{CourseID: enr.CourseID, PublishedOnly: true})
	if err != nil {
		return enrollment.CourseEnrollment{}, pkgerrors.Wrap(err, "listing lessons")
	}
	done, err := svc.completedLessons(ctx, enr.ID)
	if err != nil {
		return enrollment.CourseEnrollment{}, err
	}

	completed := 0
	for _, l := range lessons {
		if _, ok := done[l.ID]; ok {
			completed++
		}
	}
	return svc.enrollSvc.SetProgress(ctx, enr.ID, LessonPercentage(completed, len(lessons)))
}

// completedLessons maps the IDs of the lessons completed in an enrollment to their progress rows.
func (svc *service) completedLessons(ctx context.Context, enrollmentID string) (map[string]CourseProgress, error) {
	rows, err := svc.repo.ListProgress(ctx, Filter{EnrollmentID: enrollmentID, ProgressType: TypeLesson})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "listing progress")
	}
	done := make(map[string]CourseProgress, len(rows))
	for _, row := range rows {
		if row.LessonID != nil && row.Status == StatusCompleted {
			done[*row.LessonID] = row
		}
	}
	return done, nil
}

func (svc *service) List(ctx context.Context, actor user.User, courseID string) ([]CourseProgress, error) {
	enr, err := svc.enrollSvc.GetForUser(ctx, courseID, actor.ID)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, enrollment.ErrNotEnrolled
		}
		return nil, err
	}
	return svc.repo.ListProgress(ctx, Filter{EnrollmentID: enr.ID})
}

func (svc *service) Report(ctx context.Context, actor user.User, courseID string) (CourseReport, error) {
	enr, err := svc.enrollSvc.GetForUser(ctx, courseID, actor.ID)
	if err != nil {
		if core.IsNotFound(err) {
			return CourseReport{}, enrollment.ErrNotEnrolled
		}
		return CourseReport{}, err
	}

	modules, err := svc.courseSvc.ListModules(ctx, courseID)
	if err != nil {
		return CourseReport{}, pkgerrors.Wrap(err, "listing modules")
	}
	lessons, err := svc.courseSvc.ListLessons(ctx, course.LessonFilter{CourseID: courseID, PublishedOnly: true})
	if err != nil {
		return CourseReport{}, pkgerrors.Wrap(err, "listing lessons")
	}
	done, err := svc.completedLessons(ctx, enr.ID)
	if err != nil {
		return CourseReport{}, err
	}

	report := CourseReport{
		CourseID:     courseID,
		EnrollmentID: enr.ID,
		Status:       enr.Status,
		Progress:     enr.Progress,
		Modules:      make([]ModuleReport, 0, len(modules)),
	}
	for _, m := range modules {
		mr := ModuleReport{ModuleID: m.ID, Title: m.Title, ModuleOrder: m.ModuleOrder, Lessons: []LessonReport{}}
		for _, l := range lessons {
			if l.ModuleID != m.ID {
				continue
			}
			lr := LessonReport{LessonID: l.ID, Title: l.Title, LessonOrder: l.LessonOrder, Status: StatusNotStarted}
			if row, ok := done[l.ID]; ok {
				lr.Status = row.Status
				lr.CompletedAt = row.CompletedAt
				mr.CompletedLessons++
			}
			mr.Lessons = append(mr.Lessons, lr)
			mr.TotalLessons++
		}
		report.TotalLessons += mr.TotalLessons
		report.CompletedLessons += mr.CompletedLessons
		report.Modules = append(report.Modules, mr)
	}
	return report, nil
}
