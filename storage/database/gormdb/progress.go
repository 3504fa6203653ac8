package gormrepos

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/darasa-lms/darasa/core/progress"
)

type progressRepository struct {
	db *gorm.DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *gorm.DB) *progressRepository {
	return &progressRepository{db: db}
}

// progressMerge is applied when the (enrollment_id, progress_key) row already exists.
var progressMerge = clause.OnConflict{
	Columns: []clause.Column{{Name: "enrollment_id"}, {Name: "progress_key"}},
	DoUpdates: clause.Set{
		{Column: clause.Column{Name: "status"}, Value: gorm.Expr(
			"CASE WHEN course_progress.status = 'completed' THEN course_progress.status ELSE excluded.status END")},
		{Column: clause.Column{Name: "completion_percentage"}, Value: gorm.Expr(
			"CASE WHEN course_progress.status = 'completed' THEN course_progress.completion_percentage ELSE excluded.completion_percentage END")},
		{Column: clause.Column{Name: "score"}, Value: gorm.Expr("COALESCE(excluded.score, course_progress.score)")},
		{Column: clause.Column{Name: "time_spent_minutes"}, Value: gorm.Expr("course_progress.time_spent_minutes + excluded.time_spent_minutes")},
		{Column: clause.Column{Name: "attempts"}, Value: gorm.Expr("course_progress.attempts + excluded.attempts")},
		{Column: clause.Column{Name: "max_attempts"}, Value: gorm.Expr("COALESCE(excluded.max_attempts, course_progress.max_attempts)")},
		{Column: clause.Column{Name: "completed_at"}, Value: gorm.Expr("COALESCE(course_progress.completed_at, excluded.completed_at)")},
		{Column: clause.Column{Name: "last_accessed_at"}, Value: gorm.Expr("excluded.last_accessed_at")},
		{Column: clause.Column{Name: "updated_at"}, Value: gorm.Expr("excluded.updated_at")},
	},
}

func (repo progressRepository) boil(p progress.CourseProgress) *progressRow {
	return &progressRow{
		ID:                   p.ID,
		EnrollmentID:         p.EnrollmentID,
		CourseID:             p.CourseID,
		UserID:               p.UserID,
		ModuleID:             p.ModuleID,
		LessonID:             p.LessonID,
		QuizID:               p.QuizID,
		AssignmentID:         p.AssignmentID,
		ProgressType:         p.ProgressType,
		ProgressKey:          p.ProgressKey,
		Status:               p.Status,
		CompletionPercentage: p.CompletionPercentage,
		Score:                p.Score,
		TimeSpentMinutes:     p.TimeSpentMinutes,
		Attempts:             p.Attempts,
		MaxAttempts:          p.MaxAttempts,
		StartedAt:            p.StartedAt.UTC(),
		CompletedAt:          utcPtr(p.CompletedAt),
		LastAccessedAt:       p.LastAccessedAt.UTC(),
		CreatedAt:            p.CreatedAt.UTC(),
		UpdatedAt:            p.UpdatedAt.UTC(),
	}
}

func (repo progressRepository) unboil(r *progressRow) progress.CourseProgress {
	return progress.CourseProgress{
		ID:                   r.ID,
		EnrollmentID:         r.EnrollmentID,
		CourseID:             r.CourseID,
		UserID:               r.UserID,
		ModuleID:             r.ModuleID,
		LessonID:             r.LessonID,
		QuizID:               r.QuizID,
		AssignmentID:         r.AssignmentID,
		ProgressType:         r.ProgressType,
		ProgressKey:          r.ProgressKey,
		Status:               r.Status,
		CompletionPercentage: r.CompletionPercentage,
		Score:                r.Score,
		TimeSpentMinutes:     r.TimeSpentMinutes,
		Attempts:             r.Attempts,
		MaxAttempts:          r.MaxAttempts,
		StartedAt:            r.StartedAt,
		CompletedAt:          r.CompletedAt,
		LastAccessedAt:       r.LastAccessedAt,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

func (repo progressRepository) UpsertProgress(ctx context.Context, p progress.CourseProgress) (progress.CourseProgress, error) {
	if p.ID == "" {
		p.ID = newID()
	}
	db := conn(ctx, repo.db)
	if err := db.Clauses(progressMerge).Create(repo.boil(p)).Error; err != nil {
		return progress.CourseProgress{}, errors.Wrap(err, "upserting progress")
	}

	// the stored row may be an older one merged with p
	var r progressRow
	err := db.Where("enrollment_id = ? AND progress_key = ?", p.EnrollmentID, p.ProgressKey).First(&r).Error
	if err != nil {
		if isNotFound(err) {
			return progress.CourseProgress{}, progress.ErrNotFound
		}
		return progress.CourseProgress{}, errors.Wrap(err, "reloading progress")
	}
	return repo.unboil(&r), nil
}

func (repo progressRepository) ListProgress(ctx context.Context, filter progress.Filter) ([]progress.CourseProgress, error) {
	q := conn(ctx, repo.db).Model(&progressRow{})
	if filter.EnrollmentID != "" {
		q = q.Where("enrollment_id = ?", filter.EnrollmentID)
	}
	if filter.CourseID != "" {
		q = q.Where("course_id = ?", filter.CourseID)
	}
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.ProgressType != "" {
		q = q.Where("progress_type = ?", filter.ProgressType)
	}

	var rows []progressRow
	if err := q.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "listing progress")
	}
	list := make([]progress.CourseProgress, 0, len(rows))
	for i := range rows {
		list = append(list, repo.unboil(&rows[i]))
	}
	return list, nil
}
