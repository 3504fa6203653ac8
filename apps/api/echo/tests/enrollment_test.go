package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/dashboard"
	"github.com/darasa-lms/darasa/core/enrollment"
	"github.com/darasa-lms/darasa/core/progress"
	"github.com/darasa-lms/darasa/core/user"
	"github.com/darasa-lms/darasa/tests"
)

func Test_enrollmentApi(t *testing.T) {
	app, env := setup(t)
	instructor := testutil.CreateUser(t, env.UserRepo, "Instructor", "instructor", "instructor@test.cd", "", user.RoleInstructor, true)
	learner := testutil.CreateUser(t, env.UserRepo, "Hero", "hero", "hero@test.cd", "", user.RoleUser, true)
	other := testutil.CreateUser(t, env.UserRepo, "Villain", "villain", "villain@test.cd", "", user.RoleStudent, true)
	instructorToken := getToken(t, env.Conf, instructor)
	learnerToken := getToken(t, env.Conf, learner)
	otherToken := getToken(t, env.Conf, other)

	free := testutil.CreateCourse(t, env.CourseRepos, instructor.ID, course.Course{Title: "Go Concurrency"})
	draft := testutil.CreateCourse(t, env.CourseRepos, instructor.ID, course.Course{Title: "Go Generics", Status: course.StatusDraft})
	m := testutil.CreateModule(t, env.CourseRepos, free.ID, 1)
	l1 := testutil.CreateLesson(t, env.CourseRepos, m, 1)
	testutil.CreateLesson(t, env.CourseRepos, m, 2)

	var enr enrollment.CourseEnrollment
	t.Run("enroll", func(t *testing.T) {
		code, resp := call(t, app, http.MethodPost, "/api/enrollments", learnerToken, enrollment.NewEnrollment{CourseID: free.ID})
		require.Equal(t, http.StatusCreated, code, resp.Message)
		decodeData(t, resp, &enr)
		assert.Equal(t, enrollment.StatusActive, enr.Status)
		assert.Equal(t, enrollment.PaymentFree, enr.PaymentStatus)
		assert.Empty(t, enr.PaymentURL)

		usr, err := env.UserSvc.GetByID(context.Background(), learner.ID)
		require.NoError(t, err)
		assert.Equal(t, user.RoleStudent, usr.Role)

		c, err := env.CourseSvc.GetByID(context.Background(), free.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, c.CurrentStudents)
		assert.NotEmpty(t, env.Events.Events(core.EventEnrollmentCreated))
	})
	require.NotEmpty(t, enr.ID)

	enroll := func(courseID string) []byte {
		return marchallObj(t, enrollment.NewEnrollment{CourseID: courseID})
	}
	runHTTPTests(t, app, []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/api/enrollments", body: enroll(free.ID), wantCode: http.StatusUnauthorized},
		{
			name: "enroll twice", method: http.MethodPost, path: "/api/enrollments", body: enroll(free.ID), token: learnerToken,
			wantCode: http.StatusConflict, wantMsg: "already enrolled in this course",
		},
		{
			name: "draft course", method: http.MethodPost, path: "/api/enrollments", body: enroll(draft.ID), token: learnerToken,
			wantCode: http.StatusConflict, wantMsg: "course is not open for enrollment",
		},
		{name: "invalid course id", method: http.MethodPost, path: "/api/enrollments", body: enroll("lol"), token: learnerToken, wantCode: http.StatusBadRequest},
		{name: "own enrollment", path: "/api/course-enrollments/" + enr.ID, token: learnerToken},
		{name: "instructor sees enrollment", path: "/api/course-enrollments/" + enr.ID, token: instructorToken},
		{name: "others cannot see enrollment", path: "/api/course-enrollments/" + enr.ID, token: otherToken, wantCode: http.StatusForbidden},
		{name: "course_id required", path: "/api/course-enrollments", token: instructorToken, wantCode: http.StatusBadRequest},
		{name: "students cannot list course enrollments", path: "/api/course-enrollments?course_id=" + free.ID, token: otherToken, wantCode: http.StatusForbidden},
		{name: "not enrolled progress report", path: "/api/courses/" + free.ID + "/progress", token: otherToken, wantCode: http.StatusForbidden},
	})

	t.Run("list", func(t *testing.T) {
		code, resp := call(t, app, http.MethodGet, "/api/enrollments", learnerToken, nil)
		require.Equal(t, http.StatusOK, code)
		var list []enrollment.CourseEnrollment
		assert.EqualValues(t, 1, decodePage(t, resp, &list))

		code, resp = call(t, app, http.MethodGet, "/api/course-enrollments?course_id="+free.ID, instructorToken, nil)
		require.Equal(t, http.StatusOK, code)
		assert.EqualValues(t, 1, decodePage(t, resp, &list))

		code, resp = call(t, app, http.MethodGet, "/api/enrollments", otherToken, nil)
		require.Equal(t, http.StatusOK, code)
		assert.EqualValues(t, 0, decodePage(t, resp, &list))
	})

	t.Run("record progress", func(t *testing.T) {
		np := progress.NewProgress{CourseID: free.ID, LessonID: &l1.ID, ProgressType: progress.TypeLesson, Status: progress.StatusCompleted}
		code, resp := call(t, app, http.MethodPost, "/api/progress", otherToken, np)
		assert.Equal(t, http.StatusForbidden, code, resp.Message)

		code, resp = call(t, app, http.MethodPost, "/api/progress", learnerToken, progress.NewProgress{CourseID: free.ID, ProgressType: progress.TypeLesson})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, resp.ValidationErrors, "lesson_id")

		code, resp = call(t, app, http.MethodPost, "/api/progress", learnerToken, np)
		require.Equal(t, http.StatusOK, code, resp.Message)
		var p progress.CourseProgress
		decodeData(t, resp, &p)
		assert.Equal(t, progress.StatusCompleted, p.Status)
		assert.EqualValues(t, 100, p.CompletionPercentage)

		got, err := env.EnrollmentSvc.GetByID(context.Background(), enr.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 50, got.Progress)

		code, resp = call(t, app, http.MethodGet, "/api/progress?course_id="+free.ID, learnerToken, nil)
		require.Equal(t, http.StatusOK, code)
		var rows []progress.CourseProgress
		decodeData(t, resp, &rows)
		assert.Len(t, rows, 1)

		code, resp = call(t, app, http.MethodGet, "/api/courses/"+free.ID+"/progress", learnerToken, nil)
		require.Equal(t, http.StatusOK, code)
		var report progress.CourseReport
		decodeData(t, resp, &report)
		assert.Equal(t, 2, report.TotalLessons)
		assert.Equal(t, 1, report.CompletedLessons)
		if assert.Len(t, report.Modules, 1) {
			assert.Len(t, report.Modules[0].Lessons, 2)
		}
	})

	t.Run("manage", func(t *testing.T) {
		pct := 100.0
		code, _ := call(t, app, http.MethodPatch, "/api/course-enrollments/"+enr.ID+"/progress", learnerToken, enrollment.UpdateProgress{Progress: &pct})
		assert.Equal(t, http.StatusForbidden, code)

		code, resp := call(t, app, http.MethodPatch, "/api/course-enrollments/"+enr.ID+"/progress", instructorToken, enrollment.UpdateProgress{Progress: &pct})
		require.Equal(t, http.StatusOK, code, resp.Message)
		var got enrollment.CourseEnrollment
		decodeData(t, resp, &got)
		assert.Equal(t, enrollment.StatusCompleted, got.Status)
		assert.NotNil(t, got.CompletedAt)

		code, resp = call(t, app, http.MethodPatch, "/api/course-enrollments/"+enr.ID+"/status", instructorToken, enrollment.ChangeStatus{Status: enrollment.StatusSuspended})
		assert.Equal(t, http.StatusConflict, code)
		assert.Equal(t, "invalid enrollment status transition", resp.Message)

		code, resp = call(t, app, http.MethodPatch, "/api/course-enrollments/"+enr.ID+"/status", instructorToken, enrollment.ChangeStatus{Status: "lol"})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, resp.ValidationErrors, "status")
	})
}

func Test_enrollmentApi_payments(t *testing.T) {
	app, env := setup(t)
	instructor := testutil.CreateUser(t, env.UserRepo, "Instructor", "instructor", "instructor@test.cd", "", user.RoleInstructor, true)
	student := testutil.CreateUser(t, env.UserRepo, "Hero", "hero", "hero@test.cd", "", user.RoleStudent, true)
	paid := testutil.CreateCourse(t, env.CourseRepos, instructor.ID, course.Course{Title: "Go in Production", Price: 150000, Currency: "IDR"})

	code, resp := call(t, app, http.MethodPost, "/api/enrollments", getToken(t, env.Conf, student), enrollment.NewEnrollment{CourseID: paid.ID})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	var enr enrollment.CourseEnrollment
	decodeData(t, resp, &enr)
	assert.Equal(t, enrollment.PaymentPending, enr.PaymentStatus)
	assert.Equal(t, "ENR-"+enr.ID, enr.PaymentOrderID)
	assert.NotEmpty(t, enr.PaymentURL)
	require.Len(t, env.Gateway.Checkouts, 1)
	assert.EqualValues(t, 150000, env.Gateway.Checkouts[0].Amount)

	settlement := enrollment.PaymentNotification{
		OrderID:           enr.PaymentOrderID,
		StatusCode:        "200",
		GrossAmount:       "150000.00",
		TransactionStatus: "settlement",
		PaymentType:       "bank_transfer",
	}

	t.Run("bad signature", func(t *testing.T) {
		n := settlement
		n.SignatureKey = "lol"
		code, _ := call(t, app, http.MethodPost, "/api/payments/notification", "", n)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("unknown order", func(t *testing.T) {
		n := settlement
		n.OrderID = "ENR-lol"
		code, _ := call(t, app, http.MethodPost, "/api/payments/notification", "", testutil.SignNotification(n))
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("settlement", func(t *testing.T) {
		code, resp := call(t, app, http.MethodPost, "/api/payments/notification", "", testutil.SignNotification(settlement))
		require.Equal(t, http.StatusOK, code, resp.Message)
		var got enrollment.CourseEnrollment
		decodeData(t, resp, &got)
		assert.Equal(t, enrollment.PaymentPaid, got.PaymentStatus)
		assert.EqualValues(t, 150000, got.AmountPaid)
		assert.NotNil(t, got.PaidAt)
		assert.Len(t, env.Events.Events(core.EventPaymentConfirmed), 1)

		// replays are no-ops
		code, _ = call(t, app, http.MethodPost, "/api/payments/notification", "", testutil.SignNotification(settlement))
		assert.Equal(t, http.StatusOK, code)
		assert.Len(t, env.Events.Events(core.EventPaymentConfirmed), 1)
	})
}

func Test_dashboardApi(t *testing.T) {
	app, env := setup(t)
	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "admin@test.cd", "", user.RoleAdmin, true)
	instructor := testutil.CreateUser(t, env.UserRepo, "Instructor", "instructor", "instructor@test.cd", "", user.RoleInstructor, true)
	student := testutil.CreateUser(t, env.UserRepo, "Hero", "hero", "hero@test.cd", "", user.RoleStudent, true)
	c := testutil.CreateCourse(t, env.CourseRepos, instructor.ID, course.Course{Title: "Go Concurrency"})
	testutil.CreateCourse(t, env.CourseRepos, instructor.ID, course.Course{Title: "Go Generics", Status: course.StatusDraft})
	testutil.CreateEnrollment(t, env.EnrollmentRepo, c.ID, student.ID)

	runHTTPTests(t, app, []httpTest{
		{name: "auth required", path: "/api/dashboard/stats", wantCode: http.StatusUnauthorized},
		{name: "admin required", path: "/api/dashboard/stats", token: getToken(t, env.Conf, instructor), wantCode: http.StatusForbidden},
	})

	code, resp := call(t, app, http.MethodGet, "/api/dashboard/stats", getToken(t, env.Conf, admin), nil)
	require.Equal(t, http.StatusOK, code, resp.Message)
	var stats dashboard.Stats
	decodeData(t, resp, &stats)
	assert.EqualValues(t, 3, stats.TotalUsers)
	assert.EqualValues(t, 1, stats.UsersByRole[user.RoleStudent])
	assert.EqualValues(t, 2, stats.TotalCourses)
	assert.EqualValues(t, 1, stats.CoursesByStatus[course.StatusDraft])
	assert.EqualValues(t, 1, stats.TotalEnrollments)
	assert.EqualValues(t, 0, stats.TotalRevenue)
}
