package gormrepos

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/review"
)

type reviewRepository struct {
	db *gorm.DB
}

var _ review.Repository = (*reviewRepository)(nil) // interface compliance check

func NewReviewRepository(db *gorm.DB) *reviewRepository {
	return &reviewRepository{db: db}
}

func (repo reviewRepository) boil(rv review.Review) *reviewRow {
	return &reviewRow{
		ID:             rv.ID,
		CourseID:       rv.CourseID,
		UserID:         rv.UserID,
		Rating:         rv.Rating,
		Title:          rv.Title,
		Comment:        rv.Comment,
		Status:         rv.Status,
		IsFlagged:      rv.IsFlagged,
		FlagReason:     rv.FlagReason,
		HelpfulCount:   rv.HelpfulCount,
		ReportCount:    rv.ReportCount,
		ModeratedBy:    rv.ModeratedBy,
		ModeratedAt:    utcPtr(rv.ModeratedAt),
		ModerationNote: rv.ModerationNote,
		CreatedAt:      rv.CreatedAt.UTC(),
		UpdatedAt:      rv.UpdatedAt.UTC(),
	}
}

func (repo reviewRepository) unboil(r *reviewRow) review.Review {
	return review.Review{
		ID:             r.ID,
		CourseID:       r.CourseID,
		UserID:         r.UserID,
		Rating:         r.Rating,
		Title:          r.Title,
		Comment:        r.Comment,
		Status:         r.Status,
		IsFlagged:      r.IsFlagged,
		FlagReason:     r.FlagReason,
		HelpfulCount:   r.HelpfulCount,
		ReportCount:    r.ReportCount,
		ModeratedBy:    r.ModeratedBy,
		ModeratedAt:    r.ModeratedAt,
		ModerationNote: r.ModerationNote,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func (repo reviewRepository) CreateReview(ctx context.Context, rv review.Review) (review.Review, error) {
	rv.ID = newID()
	r := repo.boil(rv)
	res := conn(ctx, repo.db).Clauses(clause.OnConflict{DoNothing: true}).Create(r)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return review.Review{}, review.ErrAlreadyReviewed
		}
		return review.Review{}, errors.Wrap(res.Error, "inserting review")
	}
	if res.RowsAffected == 0 {
		return review.Review{}, review.ErrAlreadyReviewed
	}
	return repo.unboil(r), nil
}

func (repo reviewRepository) GetReview(ctx context.Context, id string) (review.Review, error) {
	if !validID(id) {
		return review.Review{}, review.ErrNotFound
	}
	var r reviewRow
	if err := conn(ctx, repo.db).Where("id = ?", id).First(&r).Error; err != nil {
		if isNotFound(err) {
			return review.Review{}, review.ErrNotFound
		}
		return review.Review{}, errors.Wrap(err, "finding review")
	}
	return repo.unboil(&r), nil
}

func (repo reviewRepository) QueryReviews(ctx context.Context, filter review.QueryFilter, page core.Pagination) ([]review.Review, int64, error) {
	q := conn(ctx, repo.db).Model(&reviewRow{})
	if filter.CourseID != "" {
		q = q.Where("course_id = ?", filter.CourseID)
	}
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.IsFlagged != nil {
		q = q.Where("is_flagged = ?", *filter.IsFlagged)
	}

	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "counting reviews")
	}

	var rows []reviewRow
	// most helpful first, then newest
	err := q.Order("helpful_count DESC, created_at DESC").Offset(page.Offset()).Limit(page.Limit()).Find(&rows).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying reviews")
	}
	reviews := make([]review.Review, 0, len(rows))
	for i := range rows {
		reviews = append(reviews, repo.unboil(&rows[i]))
	}
	return reviews, total, nil
}

func (repo reviewRepository) UpdateReview(ctx context.Context, rv review.Review) (review.Review, error) {
	r := repo.boil(rv)
	if err := conn(ctx, repo.db).Save(r).Error; err != nil {
		return review.Review{}, errors.Wrap(err, "updating review")
	}
	return repo.unboil(r), nil
}

func (repo reviewRepository) DeleteReview(ctx context.Context, id string) error {
	if !validID(id) {
		return review.ErrNotFound
	}
	res := conn(ctx, repo.db).Where("id = ?", id).Delete(&reviewRow{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "deleting review")
	}
	if res.RowsAffected == 0 {
		return review.ErrNotFound
	}
	return nil
}

func (repo reviewRepository) increment(ctx context.Context, id, column string) error {
	if !validID(id) {
		return review.ErrNotFound
	}
	res := conn(ctx, repo.db).Model(&reviewRow{}).Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + 1"))
	if res.Error != nil {
		return errors.Wrapf(res.Error, "incrementing review %s", column)
	}
	if res.RowsAffected == 0 {
		return review.ErrNotFound
	}
	return nil
}

func (repo reviewRepository) IncrementHelpful(ctx context.Context, id string) error {
	return repo.increment(ctx, id, "helpful_count")
}

func (repo reviewRepository) IncrementReports(ctx context.Context, id string) error {
	return repo.increment(ctx, id, "report_count")
}

func (repo reviewRepository) RatingStats(ctx context.Context, courseID string) (float64, int64, error) {
	var stats struct {
		Average float64
		Total   int64
	}
	err := conn(ctx, repo.db).Model(&reviewRow{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS total").
		Where("course_id = ? AND status = ?", courseID, review.StatusApproved).
		Scan(&stats).Error
	if err != nil {
		return 0, 0, errors.Wrap(err, "computing rating stats")
	}
	return core.Round2(stats.Average), stats.Total, nil
}

func (repo reviewRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	counts, err := countBy(conn(ctx, repo.db), &reviewRow{}, "status")
	if err != nil {
		return nil, errors.Wrap(err, "counting reviews by status")
	}
	return counts, nil
}
