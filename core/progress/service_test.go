package progress_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/enrollment"
	"github.com/darasa-lms/darasa/core/progress"
	"github.com/darasa-lms/darasa/core/user"
	"github.com/darasa-lms/darasa/tests"
)

func TestService_Record(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	instructor := testutil.CreateUser(t, env.UserRepo, "Ins", "ins", "ins@test.cd", "", user.RoleInstructor, true)
	student := testutil.CreateUser(t, env.UserRepo, "Stu", "stu", "stu@test.cd", "", user.RoleStudent, true)
	stranger := testutil.CreateUser(t, env.UserRepo, "Str", "str", "str@test.cd", "", user.RoleStudent, true)

	crs := testutil.CreateCourse(t, env.CourseRepos, instructor.ID, course.Course{})
	mod := testutil.CreateModule(t, env.CourseRepos, crs.ID, 1)
	l1 := testutil.CreateLesson(t, env.CourseRepos, mod, 1)
	l2 := testutil.CreateLesson(t, env.CourseRepos, mod, 2)
	l3 := testutil.CreateLesson(t, env.CourseRepos, mod, 3)
	draft := testutil.CreateLesson(t, env.CourseRepos, mod, 4, course.ContentDraft)

	otherMod := testutil.CreateModule(t, env.CourseRepos, crs.ID, 2)

	otherCrs := testutil.CreateCourse(t, env.CourseRepos, instructor.ID, course.Course{})
	otherLesson := testutil.CreateLesson(t, env.CourseRepos, testutil.CreateModule(t, env.CourseRepos, otherCrs.ID, 1), 1)

	enr := testutil.CreateEnrollment(t, env.EnrollmentRepo, crs.ID, student.ID)

	lesson := func(l course.Lesson, status string, minutes int) progress.NewProgress {
		return progress.NewProgress{
			CourseID:         crs.ID,
			LessonID:         core.StrPtr(l.ID),
			ProgressType:     progress.TypeLesson,
			Status:           status,
			TimeSpentMinutes: minutes,
		}
	}
	enrollmentProgress := func() enrollment.CourseEnrollment {
		e, err := env.EnrollmentSvc.GetByID(ctx, enr.ID)
		require.NoError(t, err)
		return e
	}

	t.Run("rejections", func(t *testing.T) {
		_, err := env.ProgressSvc.Record(ctx, stranger, lesson(l1, progress.StatusCompleted, 0))
		assert.ErrorIs(t, err, enrollment.ErrNotEnrolled)

		np := lesson(otherLesson, progress.StatusCompleted, 0)
		_, err = env.ProgressSvc.Record(ctx, student, np)
		var verr *core.ValidationError
		assert.ErrorAs(t, err, &verr)

		np = lesson(l1, progress.StatusCompleted, 0)
		np.ModuleID = core.StrPtr(otherMod.ID)
		_, err = env.ProgressSvc.Record(ctx, student, np)
		if assert.ErrorAs(t, err, &verr) {
			assert.Equal(t, "module_id", verr.Fields[0].Field)
		}
		assert.Zero(t, enrollmentProgress().Progress)
	})

	t.Run("in progress", func(t *testing.T) {
		p, err := env.ProgressSvc.Record(ctx, student, lesson(l1, progress.StatusInProgress, 10))
		require.NoError(t, err)
		assert.Equal(t, progress.StatusInProgress, p.Status)
		assert.Equal(t, mod.ID, *p.ModuleID)
		assert.Zero(t, enrollmentProgress().Progress)
	})

	t.Run("completing a lesson recomputes the enrollment", func(t *testing.T) {
		p, err := env.ProgressSvc.Record(ctx, student, lesson(l1, progress.StatusCompleted, 5))
		require.NoError(t, err)
		assert.Equal(t, progress.StatusCompleted, p.Status)
		assert.Equal(t, 100.0, p.CompletionPercentage)
		assert.Equal(t, 15, p.TimeSpentMinutes)
		assert.NotNil(t, p.CompletedAt)
		// the draft lesson does not count
		assert.Equal(t, 33.33, enrollmentProgress().Progress)
	})

	t.Run("completion is sticky", func(t *testing.T) {
		p, err := env.ProgressSvc.Record(ctx, student, lesson(l1, progress.StatusInProgress, 1))
		require.NoError(t, err)
		assert.Equal(t, progress.StatusCompleted, p.Status)
		assert.Equal(t, 100.0, p.CompletionPercentage)
		assert.Equal(t, 16, p.TimeSpentMinutes)
	})

	t.Run("all lessons completed", func(t *testing.T) {
		for _, l := range []course.Lesson{l2, l3} {
			_, err := env.ProgressSvc.Record(ctx, student, lesson(l, progress.StatusCompleted, 0))
			require.NoError(t, err)
		}
		e := enrollmentProgress()
		assert.Equal(t, 100.0, e.Progress)
		assert.Equal(t, enrollment.StatusCompleted, e.Status)
		assert.Len(t, env.Events.Events(core.EventEnrollmentCompleted), 1)
	})

	t.Run("List", func(t *testing.T) {
		list, err := env.ProgressSvc.List(ctx, student, crs.ID)
		require.NoError(t, err)
		assert.Len(t, list, 3)

		_, err = env.ProgressSvc.List(ctx, stranger, crs.ID)
		assert.ErrorIs(t, err, enrollment.ErrNotEnrolled)
	})

	t.Run("Report", func(t *testing.T) {
		report, err := env.ProgressSvc.Report(ctx, student, crs.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, report.TotalLessons)
		assert.Equal(t, 3, report.CompletedLessons)
		if assert.Len(t, report.Modules, 2) {
			assert.Equal(t, mod.ID, report.Modules[0].ModuleID)
			assert.Empty(t, report.Modules[1].Lessons)
			assert.Len(t, report.Modules[0].Lessons, 3)
			for _, lr := range report.Modules[0].Lessons {
				assert.NotEqual(t, draft.ID, lr.LessonID)
				assert.Equal(t, progress.StatusCompleted, lr.Status)
			}
		}
	})
}

func TestNewProgress_Validate(t *testing.T) {
	validate, _ := testutil.Validator()
	courseID := "9b2f6a1e-3c4d-4e5f-8a9b-0c1d2e3f4a5b"

	tests := []struct {
		name       string
		np         progress.NewProgress
		wantErr    bool
		wantStatus string
		wantPct    float64
	}{
		{name: "type required", np: progress.NewProgress{CourseID: courseID}, wantErr: true},
		{name: "unknown type", np: progress.NewProgress{CourseID: courseID, ProgressType: "chapter"}, wantErr: true},
		{name: "lesson id required", np: progress.NewProgress{CourseID: courseID, ProgressType: progress.TypeLesson}, wantErr: true},
		{
			name: "pct over 100", wantErr: true,
			np: progress.NewProgress{CourseID: courseID, ProgressType: progress.TypeCourse, CompletionPercentage: 101},
		},
		{
			name: "default status", wantStatus: progress.StatusInProgress,
			np: progress.NewProgress{CourseID: courseID, ProgressType: progress.TypeCourse},
		},
		{
			name: "completed from pct", wantStatus: progress.StatusCompleted, wantPct: 100,
			np: progress.NewProgress{CourseID: courseID, ProgressType: progress.TypeCourse, CompletionPercentage: 100},
		},
		{
			name: "pct from completed", wantStatus: progress.StatusCompleted, wantPct: 100,
			np: progress.NewProgress{CourseID: courseID, ProgressType: "Course", Status: "COMPLETED"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.np.Validate(validate)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, tt.np.Status)
			assert.Equal(t, tt.wantPct, tt.np.CompletionPercentage)
		})
	}
}

func TestLessonPercentage(t *testing.T) {
	assert.Equal(t, 0.0, progress.LessonPercentage(0, 0))
	assert.Equal(t, 33.33, progress.LessonPercentage(1, 3))
	assert.Equal(t, 66.67, progress.LessonPercentage(2, 3))
	assert.Equal(t, 100.0, progress.LessonPercentage(4, 4))
}
