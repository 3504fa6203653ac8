package dashboard

import (
	"context"

	pkgerrors "github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/enrollment"
	"github.com/darasa-lms/darasa/core/review"
	"github.com/darasa-lms/darasa/core/user"
)

var ErrForbidden = core.NewError(core.KindForbidden, "admin access required")

type Stats struct {
	TotalUsers          int64            `json:"total_users"`
	UsersByRole         map[string]int64 `json:"users_by_role"`
	TotalCourses        int64            `json:"total_courses"`
	CoursesByStatus     map[string]int64 `json:"courses_by_status"`
	TotalEnrollments    int64            `json:"total_enrollments"`
	EnrollmentsByStatus map[string]int64 `json:"enrollments_by_status"`
	TotalRevenue        float64          `json:"total_revenue"`
	PendingReviews      int64            `json:"pending_reviews"`
}

type (
	Service interface {
		Stats(ctx context.Context, actor user.User) (Stats, error)
	}

	service struct {
		userSvc   user.Service
		courseSvc course.Service
		enrollSvc enrollment.Service
		reviewSvc review.Service
	}
)

func NewService(userSvc user.Service, courseSvc course.Service, enrollSvc enrollment.Service, reviewSvc review.Service) Service {
	return &service{userSvc: userSvc, courseSvc: courseSvc, enrollSvc: enrollSvc, reviewSvc: reviewSvc}
}

func (svc *service) Stats(ctx context.Context, actor user.User) (Stats, error) {
	if !actor.IsAdmin() {
		return Stats{}, ErrForbidden
	}

	var (
		stats Stats
		err   error
	)
	if stats.UsersByRole, err = svc.userSvc.CountByRole(ctx); err != nil {
		return Stats{}, pkgerrors.Wrap(err, "counting users")
	}
	if stats.CoursesByStatus, err = svc.courseSvc.CountByStatus(ctx); err != nil {
		return Stats{}, pkgerrors.Wrap(err, "counting courses")
	}
	if stats.EnrollmentsByStatus, err = svc.enrollSvc.CountByStatus(ctx); err != nil {
		return Stats{}, pkgerrors.Wrap(err, "counting enrollments")
	}
	if stats.TotalRevenue, err = svc.enrollSvc.TotalRevenue(ctx); err != nil {
		return Stats{}, pkgerrors.Wrap(err, "summing revenue")
	}
	reviews, err := svc.reviewSvc.CountByStatus(ctx)
	if err != nil {
		return Stats{}, pkgerrors.Wrap(err, "counting reviews")
	}

	stats.TotalUsers = sum(stats.UsersByRole)
	stats.TotalCourses = sum(stats.CoursesByStatus)
	stats.TotalEnrollments = sum(stats.EnrollmentsByStatus)
	stats.PendingReviews = reviews[review.StatusPending]
	return stats, nil
}

func sum(counts map[string]int64) int64 {
	var total int64
	for _, n := range counts {
		total += n
	}
	return total
}
