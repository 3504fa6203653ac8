package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/grading"
	"github.com/darasa-lms/darasa/core/user"
	"github.com/darasa-lms/darasa/tests"
)

func intPtr(i int) *int { return &i }
func floatPtr(f float64) *float64 { return &f }

func Test_gradingApi_quizzes(t *testing.T) {
	app, env := setup(t)
	instructor := testutil.CreateUser(t, env.UserRepo, "Instructor", "instructor", "instructor@test.cd", "", user.RoleInstructor, true)
	student := testutil.CreateUser(t, env.UserRepo, "Hero", "hero", "hero@test.cd", "", user.RoleStudent, true)
	outsider := testutil.CreateUser(t, env.UserRepo, "Villain", "villain", "villain@test.cd", "", user.RoleStudent, true)
	instructorToken := getToken(t, env.Conf, instructor)
	studentToken := getToken(t, env.Conf, student)

	c := testutil.CreateCourse(t, env.CourseRepos, instructor.ID, course.Course{Title: "Go Concurrency"})
	l := testutil.CreateLesson(t, env.CourseRepos, testutil.CreateModule(t, env.CourseRepos, c.ID, 1), 1)
	q := testutil.CreateQuiz(t, env.CourseRepos, l, intPtr(2))
	testutil.CreateEnrollment(t, env.EnrollmentRepo, c.ID, student.ID)

	answer := func(i int) grading.NewQuizSubmission {
		return grading.NewQuizSubmission{QuizID: q.ID, SelectedAnswer: intPtr(i)}
	}

	t.Run("validation", func(t *testing.T) {
		code, resp := call(t, app, http.MethodPost, "/api/quiz-submissions", studentToken, grading.NewQuizSubmission{QuizID: q.ID})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, resp.ValidationErrors, "score")

		code, resp = call(t, app, http.MethodPost, "/api/quiz-submissions", studentToken, answer(4))
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, resp.ValidationErrors, "selected_answer")
	})

	t.Run("not enrolled", func(t *testing.T) {
		code, resp := call(t, app, http.MethodPost, "/api/quiz-submissions", getToken(t, env.Conf, outsider), answer(0))
		assert.Equal(t, http.StatusForbidden, code)
		assert.Equal(t, "you are not enrolled in this course", resp.Message)
	})

	var first grading.QuizSubmission
	t.Run("attempts", func(t *testing.T) {
		tests := []struct {
			name        string
			answer      int
			wantCode    int
			wantPassed  bool
			wantAttempt int
		}{
			{name: "correct", answer: 0, wantCode: http.StatusCreated, wantPassed: true, wantAttempt: 1},
			{name: "wrong", answer: 2, wantCode: http.StatusCreated, wantAttempt: 2},
			{name: "max attempts reached", answer: 0, wantCode: http.StatusConflict},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				code, resp := call(t, app, http.MethodPost, "/api/quiz-submissions", studentToken, answer(tt.answer))
				require.Equal(t, tt.wantCode, code, resp.Message)
				if code != http.StatusCreated {
					assert.Equal(t, "maximum number of attempts reached", resp.Message)
					return
				}
				var sub grading.QuizSubmission
				decodeData(t, resp, &sub)
				assert.Equal(t, tt.wantPassed, sub.IsPassed)
				assert.Equal(t, tt.wantAttempt, sub.AttemptNumber)
				assert.EqualValues(t, 1, sub.MaxScore)
				if sub.AttemptNumber == 1 {
					first = sub
				}
			})
		}
	})
	require.NotEmpty(t, first.ID)

	runHTTPTests(t, app, []httpTest{
		{name: "quiz_id required", path: "/api/quiz-submissions", token: studentToken, wantCode: http.StatusBadRequest},
		{name: "own submission", path: "/api/quiz-submissions/" + first.ID, token: studentToken},
		{name: "instructor reads submission", path: "/api/quiz-submissions/" + first.ID, token: instructorToken},
		{
			name: "others cannot read submission", path: "/api/quiz-submissions/" + first.ID, token: getToken(t, env.Conf, outsider),
			wantCode: http.StatusForbidden, wantMsg: "you are not allowed to access this submission",
		},
	})

	t.Run("list", func(t *testing.T) {
		code, resp := call(t, app, http.MethodGet, "/api/quiz-submissions?quiz_id="+q.ID, instructorToken, nil)
		require.Equal(t, http.StatusOK, code)
		var subs []grading.QuizSubmission
		decodeData(t, resp, &subs)
		assert.Len(t, subs, 2)

		code, resp = call(t, app, http.MethodGet, "/api/quiz-submissions?quiz_id="+q.ID, getToken(t, env.Conf, outsider), nil)
		require.Equal(t, http.StatusOK, code)
		decodeData(t, resp, &subs)
		assert.Empty(t, subs)
	})
}

func Test_gradingApi_assignments(t *testing.T) {
	app, env := setup(t)
	instructor := testutil.CreateUser(t, env.UserRepo, "Instructor", "instructor", "instructor@test.cd", "", user.RoleInstructor, true)
	student := testutil.CreateUser(t, env.UserRepo, "Hero", "hero", "hero@test.cd", "", user.RoleStudent, true)
	peer := testutil.CreateUser(t, env.UserRepo, "Sidekick", "sidekick", "sidekick@test.cd", "", user.RoleStudent, true)
	instructorToken := getToken(t, env.Conf, instructor)
	studentToken := getToken(t, env.Conf, student)
	peerToken := getToken(t, env.Conf, peer)

	c := testutil.CreateCourse(t, env.CourseRepos, instructor.ID, course.Course{Title: "Go Concurrency"})
	a := testutil.CreateAssignment(t, env.CourseRepos, c.ID, nil, false)
	past := time.Now().Add(-time.Hour)
	closed := testutil.CreateAssignment(t, env.CourseRepos, c.ID, &past, false)
	testutil.CreateEnrollment(t, env.EnrollmentRepo, c.ID, student.ID)
	testutil.CreateEnrollment(t, env.EnrollmentRepo, c.ID, peer.ID)

	work := grading.NewAssignmentSubmission{Content: "func pool(n int) {}"}
	code, resp := call(t, app, http.MethodPost, "/api/assignments/"+a.ID+"/submissions", studentToken, work)
	require.Equal(t, http.StatusCreated, code, resp.Message)
	var sub grading.AssignmentSubmission
	decodeData(t, resp, &sub)
	assert.Equal(t, grading.StatusSubmitted, sub.Status)
	assert.Equal(t, 1, sub.Attempt)
	assert.False(t, sub.IsLate)

	submissions := "/api/assignment-submissions/" + sub.ID
	runHTTPTests(t, app, []httpTest{
		{
			name: "submit twice", method: http.MethodPost, path: "/api/assignments/" + a.ID + "/submissions", token: studentToken,
			body: marchallObj(t, work), wantCode: http.StatusConflict, wantMsg: "assignment already submitted",
		},
		{
			name: "empty submission", method: http.MethodPost, path: "/api/assignments/" + a.ID + "/submissions", token: peerToken,
			body: marchallObj(t, grading.NewAssignmentSubmission{}), wantCode: http.StatusBadRequest,
		},
		{
			name: "deadline passed", method: http.MethodPost, path: "/api/assignments/" + closed.ID + "/submissions", token: studentToken,
			body: marchallObj(t, work), wantCode: http.StatusConflict, wantMsg: "the submission deadline has passed",
		},
		{name: "own submission", path: submissions, token: studentToken},
		{
			name: "students cannot grade", method: http.MethodPost, path: submissions + "/grade", token: peerToken,
			body: marchallObj(t, grading.GradeSubmission{Score: floatPtr(100)}), wantCode: http.StatusForbidden,
		},
		{
			name: "score above max", method: http.MethodPost, path: submissions + "/grade", token: instructorToken,
			body: marchallObj(t, grading.GradeSubmission{Score: floatPtr(101)}), wantCode: http.StatusBadRequest,
		},
		{
			name: "return before grading", method: http.MethodPost, path: submissions + "/return", token: instructorToken,
			body: marchallObj(t, grading.ReturnSubmission{}), wantCode: http.StatusConflict, wantMsg: "invalid submission status transition",
		},
	})

	t.Run("list", func(t *testing.T) {
		code, resp := call(t, app, http.MethodGet, "/api/assignments/"+a.ID+"/submissions", instructorToken, nil)
		require.Equal(t, http.StatusOK, code)
		var subs []grading.AssignmentSubmission
		decodeData(t, resp, &subs)
		assert.Len(t, subs, 1)

		code, resp = call(t, app, http.MethodGet, "/api/assignments/"+a.ID+"/submissions", peerToken, nil)
		require.Equal(t, http.StatusOK, code)
		decodeData(t, resp, &subs)
		assert.Empty(t, subs)
	})

	t.Run("grade return resubmit", func(t *testing.T) {
		code, resp := call(t, app, http.MethodPost, submissions+"/grade", instructorToken, grading.GradeSubmission{Score: floatPtr(65), Feedback: "close"})
		require.Equal(t, http.StatusOK, code, resp.Message)
		var got grading.AssignmentSubmission
		decodeData(t, resp, &got)
		assert.Equal(t, grading.StatusGraded, got.Status)
		assert.False(t, got.IsPassed)
		if assert.NotNil(t, got.Percentage) {
			assert.EqualValues(t, 65, *got.Percentage)
		}
		if assert.NotNil(t, got.GradedBy) {
			assert.Equal(t, instructor.ID, *got.GradedBy)
		}

		code, resp = call(t, app, http.MethodPost, submissions+"/return", instructorToken, grading.ReturnSubmission{Feedback: "handle shutdown"})
		require.Equal(t, http.StatusOK, code, resp.Message)
		decodeData(t, resp, &got)
		assert.Equal(t, grading.StatusReturned, got.Status)

		code, _ = call(t, app, http.MethodPost, submissions+"/resubmit", peerToken, work)
		assert.Equal(t, http.StatusForbidden, code)

		code, resp = call(t, app, http.MethodPost, submissions+"/resubmit", studentToken, work)
		require.Equal(t, http.StatusOK, code, resp.Message)
		decodeData(t, resp, &got)
		assert.Equal(t, grading.StatusResubmitted, got.Status)
		assert.Equal(t, 2, got.Attempt)
		assert.Nil(t, got.Score)

		code, resp = call(t, app, http.MethodPost, submissions+"/grade", instructorToken, grading.GradeSubmission{Score: floatPtr(70)})
		require.Equal(t, http.StatusOK, code, resp.Message)
		decodeData(t, resp, &got)
		assert.True(t, got.IsPassed)
	})

	t.Run("peer reviews", func(t *testing.T) {
		review := grading.PeerReview{Rating: 4, Comment: "nice use of context"}
		code, resp := call(t, app, http.MethodPost, submissions+"/peer-reviews", studentToken, review)
		assert.Equal(t, http.StatusForbidden, code)
		assert.Equal(t, "you cannot review your own submission", resp.Message)

		code, resp = call(t, app, http.MethodPost, submissions+"/peer-reviews", peerToken, grading.PeerReview{Rating: 6})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, resp.ValidationErrors, "rating")

		code, resp = call(t, app, http.MethodPost, submissions+"/peer-reviews", peerToken, review)
		require.Equal(t, http.StatusCreated, code, resp.Message)
		var got grading.AssignmentSubmission
		decodeData(t, resp, &got)
		if assert.Len(t, got.PeerReviews, 1) {
			assert.Equal(t, peer.ID, got.PeerReviews[0]["reviewer_id"])
		}

		code, _ = call(t, app, http.MethodPost, submissions+"/peer-reviews", peerToken, review)
		assert.Equal(t, http.StatusConflict, code)
	})
}
