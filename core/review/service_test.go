package review_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/enrollment"
	"github.com/darasa-lms/darasa/core/review"
	"github.com/darasa-lms/darasa/core/user"
	"github.com/darasa-lms/darasa/tests"
)

func TestService_Moderation(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	svc := env.ReviewSvc

	instructor := testutil.CreateUser(t, env.UserRepo, "Ins", "ins", "ins@test.cd", "", user.RoleInstructor, true)
	admin := testutil.CreateUser(t, env.UserRepo, "Adm", "adm", "adm@test.cd", "", user.RoleAdmin, true)
	stu1 := testutil.CreateUser(t, env.UserRepo, "One", "one", "one@test.cd", "", user.RoleStudent, true)
	stu2 := testutil.CreateUser(t, env.UserRepo, "Two", "two", "two@test.cd", "", user.RoleStudent, true)
	stranger := testutil.CreateUser(t, env.UserRepo, "Str", "str", "str@test.cd", "", user.RoleStudent, true)

	crs := testutil.CreateCourse(t, env.CourseRepos, instructor.ID, course.Course{})
	testutil.CreateEnrollment(t, env.EnrollmentRepo, crs.ID, stu1.ID)
	testutil.CreateEnrollment(t, env.EnrollmentRepo, crs.ID, stu2.ID)

	rv1, err := svc.Create(ctx, stu1, review.NewReview{CourseID: crs.ID, Rating: 5, Title: "Great"})
	require.NoError(t, err)
	assert.Equal(t, review.StatusPending, rv1.Status)
	rv2, err := svc.Create(ctx, stu2, review.NewReview{CourseID: crs.ID, Rating: 2})
	require.NoError(t, err)

	t.Run("create rejections", func(t *testing.T) {
		_, err := svc.Create(ctx, stu1, review.NewReview{CourseID: crs.ID, Rating: 4})
		assert.ErrorIs(t, err, review.ErrAlreadyReviewed)

		_, err = svc.Create(ctx, stranger, review.NewReview{CourseID: crs.ID, Rating: 4})
		assert.ErrorIs(t, err, enrollment.ErrNotEnrolled)
	})

	t.Run("pending reviews are not listed", func(t *testing.T) {
		listing, err := svc.ListForCourse(ctx, crs.ID, core.Pagination{})
		require.NoError(t, err)
		assert.Zero(t, listing.Count)
		assert.Zero(t, listing.AverageRating)
		assert.Empty(t, listing.Reviews)
	})

	t.Run("only admins moderate", func(t *testing.T) {
		_, err := svc.Approve(ctx, instructor, rv1.ID, review.Moderation{})
		assert.ErrorIs(t, err, review.ErrForbidden)
	})

	t.Run("approve", func(t *testing.T) {
		for _, id := range []string{rv1.ID, rv2.ID} {
			got, err := svc.Approve(ctx, admin, id, review.Moderation{Note: "ok"})
			require.NoError(t, err)
			assert.Equal(t, review.StatusApproved, got.Status)
			assert.Equal(t, admin.ID, *got.ModeratedBy)
			assert.Equal(t, "ok", got.ModerationNote)
		}
		listing, err := svc.ListForCourse(ctx, crs.ID, core.Pagination{})
		require.NoError(t, err)
		assert.EqualValues(t, 2, listing.Count)
		assert.Equal(t, 3.5, listing.AverageRating)
	})

	t.Run("helpful reviews come first", func(t *testing.T) {
		got, err := svc.MarkHelpful(ctx, rv2.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.HelpfulCount)

		listing, err := svc.ListForCourse(ctx, crs.ID, core.Pagination{})
		require.NoError(t, err)
		if assert.Len(t, listing.Reviews, 2) {
			assert.Equal(t, rv2.ID, listing.Reviews[0].ID)
		}
	})

	t.Run("flag and report", func(t *testing.T) {
		got, err := svc.Report(ctx, rv2.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.ReportCount)

		got, err = svc.Flag(ctx, admin, rv2.ID, review.Moderation{Note: "spam"})
		require.NoError(t, err)
		assert.True(t, got.IsFlagged)
		assert.Equal(t, "spam", got.FlagReason)

		flagged, total, err := svc.Query(ctx, admin, review.QueryFilter{IsFlagged: core.BoolPtr(true)}, core.Pagination{})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		assert.Equal(t, rv2.ID, flagged[0].ID)
	})

	t.Run("reject", func(t *testing.T) {
		_, err := svc.Reject(ctx, admin, rv2.ID, review.Moderation{})
		require.NoError(t, err)
		listing, err := svc.ListForCourse(ctx, crs.ID, core.Pagination{})
		require.NoError(t, err)
		assert.EqualValues(t, 1, listing.Count)
		assert.Equal(t, 5.0, listing.AverageRating)
	})

	t.Run("editing sends the review back to moderation", func(t *testing.T) {
		rating := 4
		_, err := svc.Update(ctx, stu2, rv1.ID, review.UpdateReview{Rating: &rating})
		assert.ErrorIs(t, err, review.ErrForbidden)

		got, err := svc.Update(ctx, stu1, rv1.ID, review.UpdateReview{Rating: &rating})
		require.NoError(t, err)
		assert.Equal(t, 4, got.Rating)
		assert.Equal(t, review.StatusPending, got.Status)
	})

	t.Run("students only see their own reviews", func(t *testing.T) {
		mine, total, err := svc.Query(ctx, stu1, review.QueryFilter{}, core.Pagination{})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		assert.Equal(t, rv1.ID, mine[0].ID)
	})

	t.Run("delete", func(t *testing.T) {
		assert.ErrorIs(t, svc.Delete(ctx, stu1, rv2.ID), review.ErrForbidden)
		assert.NoError(t, svc.Delete(ctx, stu2, rv2.ID))
		assert.NoError(t, svc.Delete(ctx, admin, rv1.ID))
		_, err := svc.GetByID(ctx, rv1.ID)
		assert.ErrorIs(t, err, review.ErrNotFound)
	})

	assert.Len(t, env.Events.Events(core.EventReviewModerated), 4)
}
