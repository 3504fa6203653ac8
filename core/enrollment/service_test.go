package enrollment_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/enrollment"
	"github.com/darasa-lms/darasa/core/user"
	emailsvc "github.com/darasa-lms/darasa/services/email"
	"github.com/darasa-lms/darasa/tests"
)

func TestService_Enroll_FreeCourse(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	emailsvc.ResetSentMessages()

	instructor := testutil.CreateUser(t, env.UserRepo, "Ins", "ins", "ins@test.cd", "", user.RoleInstructor, true)
	student := testutil.CreateUser(t, env.UserRepo, "Stu", "stu", "stu@test.cd", "", user.RoleUser, true)
	crs := testutil.CreateCourse(t, env.CourseRepos, instructor.ID, course.Course{Title: "Go Basics"})

	enr, err := env.EnrollmentSvc.Enroll(ctx, student, enrollment.NewEnrollment{CourseID: crs.ID})
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusActive, enr.Status)
	assert.Equal(t, enrollment.PaymentFree, enr.PaymentStatus)
	assert.Zero(t, enr.Progress)
	assert.Empty(t, enr.PaymentOrderID)

	crs, err = env.CourseSvc.GetByID(ctx, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, crs.CurrentStudents)

	promoted, err := env.UserSvc.GetByID(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, user.RoleStudent, promoted.Role)

	assert.Len(t, env.Events.Events(core.EventEnrollmentCreated), 1)
	if sent := emailsvc.Sent(); assert.Len(t, sent, 1) {
		assert.Equal(t, "stu@test.cd", sent[0].To[0].Address)
		assert.Equal(t, "enrollment_confirmation", sent[0].TemplateName)
	}
	assert.Empty(t, env.Gateway.Checkouts)

	t.Run("twice", func(t *testing.T) {
		_, err := env.EnrollmentSvc.Enroll(ctx, promoted, enrollment.NewEnrollment{CourseID: crs.ID})
		assert.ErrorIs(t, err, enrollment.ErrAlreadyEnrolled)

		crs, err := env.CourseSvc.GetByID(ctx, crs.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, crs.CurrentStudents)
	})
}

func TestService_Enroll_Concurrent(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	instructor := testutil.CreateUser(t, env.UserRepo, "Ins", "ins", "ins@test.cd", "", user.RoleInstructor, true)
	student := testutil.CreateUser(t, env.UserRepo, "Stu", "stu", "stu@test.cd", "", user.RoleUser, true)
	crs := testutil.CreateCourse(t, env.CourseRepos, instructor.ID, course.Course{Title: "Go Basics"})

	const workers = 6
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.EnrollmentSvc.Create(ctx, crs.ID, student.ID, nil)
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, enrollment.ErrAlreadyEnrolled)
	}
	assert.Equal(t, 1, created)

	list, total, err := env.EnrollmentSvc.ListForUser(ctx, student.ID, enrollment.QueryFilter{}, core.Pagination{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, list, 1)

	crs, err = env.CourseSvc.GetByID(ctx, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, crs.CurrentStudents)
	assert.Len(t, env.Events.Events(core.EventEnrollmentCreated), 1)
}

func TestService_Enroll_Rejections(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	instructor := testutil.CreateUser(t, env.UserRepo, "Ins", "ins", "ins@test.cd", "", user.RoleInstructor, true)
	stu1 := testutil.CreateUser(t, env.UserRepo, "One", "one", "one@test.cd", "", user.RoleStudent, true)
	stu2 := testutil.CreateUser(t, env.UserRepo, "Two", "two", "two@test.cd", "", user.RoleUser, true)

	draft := testutil.CreateCourse(t, env.CourseRepos, instructor.ID, course.Course{Status: course.StatusDraft})
	small := testutil.CreateCourse(t, env.CourseRepos, instructor.ID, course.Course{MaxStudents: core.IntPtr(1)})
	_, err := env.EnrollmentSvc.Enroll(ctx, stu1, enrollment.NewEnrollment{CourseID: small.ID})
	require.NoError(t, err)

	tests := []struct {
		name     string
		actor    user.User
		courseID string
		wantErr  error
	}{
		{name: "unknown course", actor: stu1, courseID: "9b2f6a1e-3c4d-4e5f-8a9b-0c1d2e3f4a5b", wantErr: course.ErrNotFound},
		{name: "draft course", actor: stu1, courseID: draft.ID, wantErr: enrollment.ErrCourseNotAvailable},
		{name: "full course", actor: stu2, courseID: small.ID, wantErr: course.ErrCourseFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.EnrollmentSvc.Enroll(ctx, tt.actor, enrollment.NewEnrollment{CourseID: tt.courseID})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// the failed enrollment was rolled back as a whole
	_, err = env.EnrollmentSvc.GetForUser(ctx, small.ID, stu2.ID)
	assert.ErrorIs(t, err, enrollment.ErrNotFound)
	usr, err := env.UserSvc.GetByID(ctx, stu2.ID)
	require.NoError(t, err)
	assert.Equal(t, user.RoleUser, usr.Role)
}

func TestService_Enroll_PaidCourse(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	instructor := testutil.CreateUser(t, env.UserRepo, "Ins", "ins", "ins@test.cd", "", user.RoleInstructor, true)
	student := testutil.CreateUser(t, env.UserRepo, "Stu", "stu", "stu@test.cd", "", user.RoleStudent, true)
	crs := testutil.CreateCourse(t, env.CourseRepos, instructor.ID, course.Course{
		Title: "Concurrency in Go", Price: 149000, Currency: "IDR",
	})

	enr, err := env.EnrollmentSvc.Enroll(ctx, student, enrollment.NewEnrollment{CourseID: crs.ID})
	require.NoError(t, err)
	assert.Equal(t, enrollment.PaymentPending, enr.PaymentStatus)
	assert.Equal(t, "ENR-"+enr.ID, enr.PaymentOrderID)
	assert.Contains(t, enr.PaymentURL, "snap-ENR-"+enr.ID)
	if assert.Len(t, env.Gateway.Checkouts, 1) {
		co := env.Gateway.Checkouts[0]
		assert.Equal(t, 149000.0, co.Amount)
		assert.Equal(t, "IDR", co.Currency)
		assert.Equal(t, "stu@test.cd", co.CustomerEmail)
	}

	notification := func(status string) enrollment.PaymentNotification {
		return testutil.SignNotification(enrollment.PaymentNotification{
			OrderID:           enr.PaymentOrderID,
			StatusCode:        "200",
			GrossAmount:       "149000.00",
			TransactionStatus: status,
		})
	}

	t.Run("bad signature", func(t *testing.T) {
		n := notification("settlement")
		n.GrossAmount = "1.00"
		_, err := env.EnrollmentSvc.ConfirmPayment(ctx, n)
		assert.Equal(t, core.KindInvalid, core.KindOf(err))
	})

	t.Run("unknown order", func(t *testing.T) {
		n := testutil.SignNotification(enrollment.PaymentNotification{
			OrderID: "ENR-nope", StatusCode: "200", GrossAmount: "1.00", TransactionStatus: "settlement",
		})
		_, err := env.EnrollmentSvc.ConfirmPayment(ctx, n)
		assert.ErrorIs(t, err, enrollment.ErrNotFound)
	})

	t.Run("pending keeps the enrollment pending", func(t *testing.T) {
		got, err := env.EnrollmentSvc.ConfirmPayment(ctx, notification("pending"))
		require.NoError(t, err)
		assert.Equal(t, enrollment.PaymentPending, got.PaymentStatus)
		assert.Nil(t, got.PaidAt)
	})

	t.Run("settlement", func(t *testing.T) {
		got, err := env.EnrollmentSvc.ConfirmPayment(ctx, notification("settlement"))
		require.NoError(t, err)
		assert.Equal(t, enrollment.PaymentPaid, got.PaymentStatus)
		assert.Equal(t, 149000.0, got.AmountPaid)
		assert.NotNil(t, got.PaidAt)
		assert.Len(t, env.Events.Events(core.EventPaymentConfirmed), 1)

		revenue, err := env.EnrollmentSvc.TotalRevenue(ctx)
		require.NoError(t, err)
		assert.Equal(t, 149000.0, revenue)
	})

	t.Run("replayed settlement", func(t *testing.T) {
		_, err := env.EnrollmentSvc.ConfirmPayment(ctx, notification("settlement"))
		require.NoError(t, err)
		assert.Len(t, env.Events.Events(core.EventPaymentConfirmed), 1)
	})
}

func TestService_SetProgress(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	instructor := testutil.CreateUser(t, env.UserRepo, "Ins", "ins", "ins@test.cd", "", user.RoleInstructor, true)
	student := testutil.CreateUser(t, env.UserRepo, "Stu", "stu", "stu@test.cd", "", user.RoleStudent, true)
	crs := testutil.CreateCourse(t, env.CourseRepos, instructor.ID, course.Course{})
	enr := testutil.CreateEnrollment(t, env.EnrollmentRepo, crs.ID, student.ID)

	tests := []struct {
		name         string
		percentage   float64
		wantProgress float64
		wantStatus   string
	}{
		{name: "negative", percentage: -5, wantProgress: 0, wantStatus: enrollment.StatusActive},
		{name: "partial", percentage: 42.5, wantProgress: 42.5, wantStatus: enrollment.StatusActive},
		{name: "over 100", percentage: 150, wantProgress: 100, wantStatus: enrollment.StatusCompleted},
		{name: "completion is kept", percentage: 80, wantProgress: 80, wantStatus: enrollment.StatusCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.EnrollmentSvc.SetProgress(ctx, enr.ID, tt.percentage)
			require.NoError(t, err)
			assert.Equal(t, tt.wantProgress, got.Progress)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.NotNil(t, got.LastAccessedAt)
		})
	}
	assert.Len(t, env.Events.Events(core.EventEnrollmentCompleted), 1)

	t.Run("only course managers update progress directly", func(t *testing.T) {
		_, err := env.EnrollmentSvc.UpdateProgress(ctx, student, enr.ID, 10)
		assert.ErrorIs(t, err, course.ErrForbidden)

		_, err = env.EnrollmentSvc.UpdateProgress(ctx, instructor, enr.ID, 10)
		assert.NoError(t, err)
	})
}

func TestService_ChangeStatus(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	instructor := testutil.CreateUser(t, env.UserRepo, "Ins", "ins", "ins@test.cd", "", user.RoleInstructor, true)
	other := testutil.CreateUser(t, env.UserRepo, "Other", "other", "other@test.cd", "", user.RoleInstructor, true)
	student := testutil.CreateUser(t, env.UserRepo, "Stu", "stu", "stu@test.cd", "", user.RoleStudent, true)
	crs := testutil.CreateCourse(t, env.CourseRepos, instructor.ID, course.Course{})
	enr, err := env.EnrollmentSvc.Enroll(ctx, student, enrollment.NewEnrollment{CourseID: crs.ID})
	require.NoError(t, err)

	seats := func() int {
		c, err := env.CourseSvc.GetByID(ctx, crs.ID)
		require.NoError(t, err)
		return c.CurrentStudents
	}

	tests := []struct {
		name      string
		actor     user.User
		status    string
		wantErr   error
		wantSeats int
	}{
		{name: "student cannot suspend", actor: student, status: enrollment.StatusSuspended, wantErr: course.ErrForbidden, wantSeats: 1},
		{name: "foreign instructor", actor: other, status: enrollment.StatusSuspended, wantErr: course.ErrForbidden, wantSeats: 1},
		{name: "student drops", actor: student, status: enrollment.StatusDropped, wantSeats: 0},
		{name: "dropped cannot complete", actor: instructor, status: enrollment.StatusCompleted, wantErr: enrollment.ErrInvalidTransition, wantSeats: 0},
		{name: "instructor reactivates", actor: instructor, status: enrollment.StatusActive, wantSeats: 1},
		{name: "instructor completes", actor: instructor, status: enrollment.StatusCompleted, wantSeats: 1},
		{name: "completed is final", actor: instructor, status: enrollment.StatusActive, wantErr: enrollment.ErrInvalidTransition, wantSeats: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.EnrollmentSvc.ChangeStatus(ctx, tt.actor, enr.ID, tt.status)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else if assert.NoError(t, err) {
				assert.Equal(t, tt.status, got.Status)
			}
			assert.Equal(t, tt.wantSeats, seats())
		})
	}
}

func TestService_Access(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	instructor := testutil.CreateUser(t, env.UserRepo, "Ins", "ins", "ins@test.cd", "", user.RoleInstructor, true)
	admin := testutil.CreateUser(t, env.UserRepo, "Adm", "adm", "adm@test.cd", "", user.RoleAdmin, true)
	student := testutil.CreateUser(t, env.UserRepo, "Stu", "stu", "stu@test.cd", "", user.RoleStudent, true)
	stranger := testutil.CreateUser(t, env.UserRepo, "Str", "str", "str@test.cd", "", user.RoleStudent, true)
	crs := testutil.CreateCourse(t, env.CourseRepos, instructor.ID, course.Course{})
	enr := testutil.CreateEnrollment(t, env.EnrollmentRepo, crs.ID, student.ID)

	t.Run("Get", func(t *testing.T) {
		for _, actor := range []user.User{student, instructor, admin} {
			got, err := env.EnrollmentSvc.Get(ctx, actor, enr.ID)
			if assert.NoError(t, err, actor.Username) {
				assert.Equal(t, enr.ID, got.ID)
			}
		}
		_, err := env.EnrollmentSvc.Get(ctx, stranger, enr.ID)
		assert.ErrorIs(t, err, enrollment.ErrForbidden)
	})

	t.Run("RequireOngoing", func(t *testing.T) {
		_, err := env.EnrollmentSvc.RequireOngoing(ctx, crs.ID, student.ID)
		assert.NoError(t, err)
		_, err = env.EnrollmentSvc.RequireOngoing(ctx, crs.ID, stranger.ID)
		assert.ErrorIs(t, err, enrollment.ErrNotEnrolled)
	})

	t.Run("ListForCourse", func(t *testing.T) {
		list, total, err := env.EnrollmentSvc.ListForCourse(ctx, instructor, enrollment.QueryFilter{CourseID: crs.ID}, core.Pagination{})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		assert.Len(t, list, 1)

		_, _, err = env.EnrollmentSvc.ListForCourse(ctx, stranger, enrollment.QueryFilter{CourseID: crs.ID}, core.Pagination{})
		assert.ErrorIs(t, err, course.ErrForbidden)

		_, _, err = env.EnrollmentSvc.ListForCourse(ctx, instructor, enrollment.QueryFilter{}, core.Pagination{})
		assert.Error(t, err)

		_, total, err = env.EnrollmentSvc.ListForCourse(ctx, admin, enrollment.QueryFilter{}, core.Pagination{})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
	})

	t.Run("ListForUser", func(t *testing.T) {
		_, total, err := env.EnrollmentSvc.ListForUser(ctx, stranger.ID, enrollment.QueryFilter{}, core.Pagination{})
		require.NoError(t, err)
		assert.Zero(t, total)
	})
}
