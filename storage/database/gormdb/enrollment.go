package gormrepos

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/enrollment"
)

type enrollmentRepository struct {
	db *gorm.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *gorm.DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (repo enrollmentRepository) boil(e enrollment.CourseEnrollment) *enrollmentRow {
	return &enrollmentRow{
		ID:             e.ID,
		CourseID:       e.CourseID,
		UserID:         e.UserID,
		Status:         e.Status,
		Progress:       e.Progress,
		EnrolledAt:     e.EnrolledAt.UTC(),
		CompletedAt:    utcPtr(e.CompletedAt),
		LastAccessedAt: utcPtr(e.LastAccessedAt),
		PaymentStatus:  e.PaymentStatus,
		AmountPaid:     e.AmountPaid,
		Currency:       e.Currency,
		PaymentOrderID: nullString(e.PaymentOrderID),
		PaymentURL:     e.PaymentURL,
		PaidAt:         utcPtr(e.PaidAt),
		Metadata:       e.Metadata,
		CreatedAt:      e.CreatedAt.UTC(),
		UpdatedAt:      e.UpdatedAt.UTC(),
	}
}

func (repo enrollmentRepository) unboil(r *enrollmentRow) enrollment.CourseEnrollment {
	e := enrollment.CourseEnrollment{
		ID:             r.ID,
		CourseID:       r.CourseID,
		UserID:         r.UserID,
		Status:         r.Status,
		Progress:       r.Progress,
		EnrolledAt:     r.EnrolledAt,
		CompletedAt:    r.CompletedAt,
		LastAccessedAt: r.LastAccessedAt,
		PaymentStatus:  r.PaymentStatus,
		AmountPaid:     r.AmountPaid,
		Currency:       r.Currency,
		PaymentURL:     r.PaymentURL,
		PaidAt:         r.PaidAt,
		Metadata:       r.Metadata,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.PaymentOrderID != nil {
		e.PaymentOrderID = *r.PaymentOrderID
	}
	if e.Metadata == nil {
		e.Metadata = map[string]interface{}{}
	}
	return e
}

func (repo enrollmentRepository) CreateEnrollment(ctx context.Context, e enrollment.CourseEnrollment) (enrollment.CourseEnrollment, error) {
	e.ID = newID()
	r := repo.boil(e)
	res := conn(ctx, repo.db).Clauses(clause.OnConflict{DoNothing: true}).Create(r)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return enrollment.CourseEnrollment{}, enrollment.ErrAlreadyEnrolled
		}
		return enrollment.CourseEnrollment{}, errors.Wrap(res.Error, "inserting enrollment")
	}
	if res.RowsAffected == 0 {
		return enrollment.CourseEnrollment{}, enrollment.ErrAlreadyEnrolled
	}
	return repo.unboil(r), nil
}

func (repo enrollmentRepository) GetEnrollment(ctx context.Context, filter enrollment.GetFilter) (enrollment.CourseEnrollment, error) {
	q := conn(ctx, repo.db)
	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return enrollment.CourseEnrollment{}, enrollment.ErrNotFound
		}
		q = q.Where("id = ?", filter.ID)
	case filter.PaymentOrderID != "":
		q = q.Where("payment_order_id = ?", filter.PaymentOrderID)
	case filter.CourseID != "" && filter.UserID != "":
		if !validID(filter.CourseID) || !validID(filter.UserID) {
			return enrollment.CourseEnrollment{}, enrollment.ErrNotFound
		}
		q = q.Where("course_id = ? AND user_id = ?", filter.CourseID, filter.UserID)
	default:
		return enrollment.CourseEnrollment{}, enrollment.ErrNotFound
	}

	var r enrollmentRow
	if err := q.First(&r).Error; err != nil {
		if isNotFound(err) {
			return enrollment.CourseEnrollment{}, enrollment.ErrNotFound
		}
		return enrollment.CourseEnrollment{}, errors.Wrap(err, "finding enrollment")
	}
	return repo.unboil(&r), nil
}

func (repo enrollmentRepository) QueryEnrollments(ctx context.Context, filter enrollment.QueryFilter, page core.Pagination) ([]enrollment.CourseEnrollment, int64, error) {
	q := conn(ctx, repo.db).Model(&enrollmentRow{})
	if filter.CourseID != "" {
		q = q.Where("course_id = ?", filter.CourseID)
	}
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.PaymentStatus != "" {
		q = q.Where("payment_status = ?", filter.PaymentStatus)
	}

	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "counting enrollments")
	}

	var rows []enrollmentRow
	err := q.Order("enrolled_at DESC").Offset(page.Offset()).Limit(page.Limit()).Find(&rows).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying enrollments")
	}
	enrollments := make([]enrollment.CourseEnrollment, 0, len(rows))
	for i := range rows {
		enrollments = append(enrollments, repo.unboil(&rows[i]))
	}
	return enrollments, total, nil
}

func (repo enrollmentRepository) UpdateEnrollment(ctx context.Context, e enrollment.CourseEnrollment) (enrollment.CourseEnrollment, error) {
	r := repo.boil(e)
	if err := conn(ctx, repo.db).Save(r).Error; err != nil {
		return enrollment.CourseEnrollment{}, errors.Wrap(err, "updating enrollment")
	}
	return repo.unboil(r), nil
}

func (repo enrollmentRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	counts, err := countBy(conn(ctx, repo.db), &enrollmentRow{}, "status")
	if err != nil {
		return nil, errors.Wrap(err, "counting enrollments by status")
	}
	return counts, nil
}

func (repo enrollmentRepository) SumRevenue(ctx context.Context) (float64, error) {
	var total float64
	err := conn(ctx, repo.db).Model(&enrollmentRow{}).
		Select("COALESCE(SUM(amount_paid), 0)").
		Where("payment_status = ?", enrollment.PaymentPaid).
		Scan(&total).Error
	return total, errors.Wrap(err, "summing revenue")
}
