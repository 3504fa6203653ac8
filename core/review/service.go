package review

import (
	"context"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/enrollment"
	"github.com/darasa-lms/darasa/core/user"
)

var (
	// errors
	ErrNotFound        = core.NewError(core.KindNotFound, "review not found")
	ErrAlreadyReviewed = core.NewError(core.KindConflict, "you already reviewed this course")
	ErrForbidden       = core.NewError(core.KindForbidden, "you are not allowed to modify this review")
)

type (
	Repository interface {
		// CreateReview returns ErrAlreadyReviewed when the (user, course) pair is taken.
		CreateReview(ctx context.Context, r Review) (Review, error)
		GetReview(ctx context.Context, id string) (Review, error)
		QueryReviews(ctx context.Context, filter QueryFilter, page core.Pagination) ([]Review, int64, error)
		UpdateReview(ctx context.Context, r Review) (Review, error)
		DeleteReview(ctx context.Context, id string) error
		IncrementHelpful(ctx context.Context, id string) error
		IncrementReports(ctx context.Context, id string) error
		// RatingStats returns the average rating and count of the approved reviews of a course.
		RatingStats(ctx context.Context, courseID string) (float64, int64, error)
		CountByStatus(ctx context.Context) (map[string]int64, error)
	}

	Service interface {
		Create(ctx context.Context, actor user.User, nr NewReview) (Review, error)
		GetByID(ctx context.Context, id string) (Review, error)
		// Update edits actor's own review and sends it back to moderation.
		Update(ctx context.Context, actor user.User, id string, ur UpdateReview) (Review, error)
		Delete(ctx context.Context, actor user.User, id string) error
		Approve(ctx context.Context, actor user.User, id string, m Moderation) (Review, error)
		Reject(ctx context.Context, actor user.User, id string, m Moderation) (Review, error)
		Flag(ctx context.Context, actor user.User, id string, m Moderation) (Review, error)
		MarkHelpful(ctx context.Context, id string) (Review, error)
		Report(ctx context.Context, id string) (Review, error)
		// ListForCourse returns the approved reviews of a course.
		ListForCourse(ctx context.Context, courseID string, page core.Pagination) (CourseReviews, error)
		Query(ctx context.Context, actor user.User, filter QueryFilter, page core.Pagination) ([]Review, int64, error)
		CountByStatus(ctx context.Context) (map[string]int64, error)
	}

	service struct {
		repo      Repository
		enrollSvc enrollment.Service
		events    core.EventPublisher
		logger    core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, enrollSvc enrollment.Service, events core.EventPublisher, logger core.Logger) Service {
	return &service{repo: repo, enrollSvc: enrollSvc, events: events, logger: logger}
}

func (svc *service) Create(ctx context.Context, actor user.User, nr NewReview) (Review, error) {
	if _, err := svc.enrollSvc.RequireOngoing(ctx, nr.CourseID, actor.ID); err != nil {
		return Review{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateReview(ctx, Review{
		CourseID:  nr.CourseID,
		UserID:    actor.ID,
		Rating:    nr.Rating,
		Title:     nr.Title,
		Comment:   nr.Comment,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *service) GetByID(ctx context.Context, id string) (Review, error) {
	return svc.repo.GetReview(ctx, id)
}

func (svc *service) Update(ctx context.Context, actor user.User, id string, ur UpdateReview) (Review, error) {
	r, err := svc.repo.GetReview(ctx, id)
	if err != nil {
		return Review{}, err
	}
	if r.UserID != actor.ID {
		return Review{}, ErrForbidden
	}
	if ur.Rating != nil {
		r.Rating = *ur.Rating
	}
	if ur.Title != nil {
		r.Title = *ur.Title
	}
	if ur.Comment != nil {
		r.Comment = *ur.Comment
	}
	r.Status = StatusPending
	r.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateReview(ctx, r)
}

func (svc *service) Delete(ctx context.Context, actor user.User, id string) error {
	r, err := svc.repo.GetReview(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanManage(r.UserID) {
		return ErrForbidden
	}
	return svc.repo.DeleteReview(ctx, id)
}

func (svc *service) Approve(ctx context.Context, actor user.User, id string, m Moderation) (Review, error) {
	return svc.moderate(ctx, actor, id, m, func(r *Review) {
		r.Status = StatusApproved
		r.IsFlagged = false
	})
}

func (svc *service) Reject(ctx context.Context, actor user.User, id string, m Moderation) (Review, error) {
	return svc.moderate(ctx, actor, id, m, func(r *Review) {
		r.Status = StatusRejected
	})
}

func (svc *service) Flag(ctx context.Context, actor user.User, id string, m Moderation) (Review, error) {
	return svc.moderate(ctx, actor, id, m, func(r *Review) {
		r.IsFlagged = true
		r.FlagReason = m.Note
	})
}

func (svc *service) moderate(ctx context.Context, actor user.User, id string, m Moderation, apply func(r *Review)) (Review, error) {
	if !actor.IsAdmin() {
		return Review{}, ErrForbidden
	}
	r, err := svc.repo.GetReview(ctx, id)
	if err != nil {
		return Review{}, err
	}

	now := time.Now().UTC()
	apply(&r)
	r.ModeratedBy = &actor.ID
	r.ModeratedAt = &now
	if m.Note != "" {
		r.ModerationNote = m.Note
	}
	r.UpdatedAt = now
	if r, err = svc.repo.UpdateReview(ctx, r); err != nil {
		return Review{}, pkgerrors.Wrap(err, "updating review")
	}

	core.PublishQuietly(ctx, svc.events, svc.logger, core.NewEvent(core.EventReviewModerated, r.ID, r))
	return r, nil
}

func (svc *service) MarkHelpful(ctx context.Context, id string) (Review, error) {
	if err := svc.repo.IncrementHelpful(ctx, id); err != nil {
		return Review{}, err
	}
	return svc.repo.GetReview(ctx, id)
}

func (svc *service) Report(ctx context.Context, id string) (Review, error) {
	if err := svc.repo.IncrementReports(ctx, id); err != nil {
		return Review{}, err
	}
	return svc.repo.GetReview(ctx, id)
}

func (svc *service) ListForCourse(ctx context.Context, courseID string, page core.Pagination) (CourseReviews, error) {
	page.Clean()
	reviews, _, err := svc.repo.QueryReviews(ctx, QueryFilter{CourseID: courseID, Status: StatusApproved}, page)
	if err != nil {
		return CourseReviews{}, pkgerrors.Wrap(err, "querying reviews")
	}
	avg, count, err := svc.repo.RatingStats(ctx, courseID)
	if err != nil {
		return CourseReviews{}, pkgerrors.Wrap(err, "computing rating")
	}
	return CourseReviews{AverageRating: core.Round2(avg), Count: count, Reviews: reviews}, nil
}

func (svc *service) Query(ctx context.Context, actor user.User, filter QueryFilter, page core.Pagination) ([]Review, int64, error) {
	if !actor.IsAdmin() {
		filter.UserID = actor.ID
	}
	page.Clean()
	return svc.repo.QueryReviews(ctx, filter, page)
}

func (svc *service) CountByStatus(ctx context.Context) (map[string]int64, error) {
	return svc.repo.CountByStatus(ctx)
}
