package gormrepos

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/darasa-lms/darasa/core/grading"
)

// Quiz submissions

type quizSubmissionRepository struct {
	db *gorm.DB
}

var _ grading.QuizSubmissionRepository = (*quizSubmissionRepository)(nil) // interface compliance check

func NewQuizSubmissionRepository(db *gorm.DB) *quizSubmissionRepository {
	return &quizSubmissionRepository{db: db}
}

func (repo quizSubmissionRepository) boil(s grading.QuizSubmission) *quizSubmissionRow {
	return &quizSubmissionRow{
		ID:               s.ID,
		QuizID:           s.QuizID,
		LessonID:         s.LessonID,
		CourseID:         s.CourseID,
		UserID:           s.UserID,
		EnrollmentID:     s.EnrollmentID,
		SelectedAnswer:   s.SelectedAnswer,
		Score:            s.Score,
		MaxScore:         s.MaxScore,
		Percentage:       s.Percentage,
		IsPassed:         s.IsPassed,
		AttemptNumber:    s.AttemptNumber,
		Status:           s.Status,
		TimeTakenSeconds: s.TimeTakenSeconds,
		SubmittedAt:      s.SubmittedAt.UTC(),
		CreatedAt:        s.CreatedAt.UTC(),
	}
}

func (repo quizSubmissionRepository) unboil(r *quizSubmissionRow) grading.QuizSubmission {
	return grading.QuizSubmission{
		ID:               r.ID,
		QuizID:           r.QuizID,
		LessonID:         r.LessonID,
		CourseID:         r.CourseID,
		UserID:           r.UserID,
		EnrollmentID:     r.EnrollmentID,
		SelectedAnswer:   r.SelectedAnswer,
		Score:            r.Score,
		MaxScore:         r.MaxScore,
		Percentage:       r.Percentage,
		IsPassed:         r.IsPassed,
		AttemptNumber:    r.AttemptNumber,
		Status:           r.Status,
		TimeTakenSeconds: r.TimeTakenSeconds,
		SubmittedAt:      r.SubmittedAt,
		CreatedAt:        r.CreatedAt,
	}
}

func (repo quizSubmissionRepository) MaxAttempt(ctx context.Context, userID, quizID string) (int, error) {
	var attempt int
	err := conn(ctx, repo.db).Model(&quizSubmissionRow{}).
		Select("COALESCE(MAX(attempt_number), 0)").
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Scan(&attempt).Error
	return attempt, errors.Wrap(err, "finding last quiz attempt")
}

func (repo quizSubmissionRepository) CreateQuizSubmission(ctx context.Context, s grading.QuizSubmission) (grading.QuizSubmission, error) {
	s.ID = newID()
	r := repo.boil(s)
	res := conn(ctx, repo.db).Clauses(clause.OnConflict{DoNothing: true}).Create(r)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return grading.QuizSubmission{}, grading.ErrDuplicateAttempt
		}
		return grading.QuizSubmission{}, errors.Wrap(res.Error, "inserting quiz submission")
	}
	if res.RowsAffected == 0 {
		return grading.QuizSubmission{}, grading.ErrDuplicateAttempt
	}
	return repo.unboil(r), nil
}

func (repo quizSubmissionRepository) GetQuizSubmission(ctx context.Context, id string) (grading.QuizSubmission, error) {
	if !validID(id) {
		return grading.QuizSubmission{}, grading.ErrQuizSubmissionNotFound
	}
	var r quizSubmissionRow
	if err := conn(ctx, repo.db).Where("id = ?", id).First(&r).Error; err != nil {
		if isNotFound(err) {
			return grading.QuizSubmission{}, grading.ErrQuizSubmissionNotFound
		}
		return grading.QuizSubmission{}, errors.Wrap(err, "finding quiz submission")
	}
	return repo.unboil(&r), nil
}

func (repo quizSubmissionRepository) ListQuizSubmissions(ctx context.Context, filter grading.QuizSubmissionFilter) ([]grading.QuizSubmission, error) {
	q := conn(ctx, repo.db).Model(&quizSubmissionRow{})
	if filter.QuizID != "" {
		q = q.Where("quiz_id = ?", filter.QuizID)
	}
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}

	var rows []quizSubmissionRow
	if err := q.Order("submitted_at ASC, attempt_number ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "listing quiz submissions")
	}
	subs := make([]grading.QuizSubmission, 0, len(rows))
	for i := range rows {
		subs = append(subs, repo.unboil(&rows[i]))
	}
	return subs, nil
}

// Assignment submissions

type submissionRepository struct {
	db *gorm.DB
}

var _ grading.AssignmentSubmissionRepository = (*submissionRepository)(nil) // interface compliance check

func NewAssignmentSubmissionRepository(db *gorm.DB) *submissionRepository {
	return &submissionRepository{db: db}
}

func (repo submissionRepository) boil(s grading.AssignmentSubmission) *assignmentSubmissionRow {
	return &assignmentSubmissionRow{
		ID:              s.ID,
		AssignmentID:    s.AssignmentID,
		CourseID:        s.CourseID,
		UserID:          s.UserID,
		EnrollmentID:    s.EnrollmentID,
		Content:         s.Content,
		AttachmentURL:   s.AttachmentURL,
		Score:           s.Score,
		MaxScore:        s.MaxScore,
		Percentage:      s.Percentage,
		IsPassed:        s.IsPassed,
		IsLate:          s.IsLate,
		Status:          s.Status,
		Feedback:        s.Feedback,
		Rubric:          s.Rubric,
		PeerReviews:     datatypes.NewJSONSlice(s.PeerReviews),
		PlagiarismScore: s.PlagiarismScore,
		Attempt:         s.Attempt,
		SubmittedAt:     s.SubmittedAt.UTC(),
		GradedAt:        utcPtr(s.GradedAt),
		GradedBy:        s.GradedBy,
		ReturnedAt:      utcPtr(s.ReturnedAt),
		CreatedAt:       s.CreatedAt.UTC(),
		UpdatedAt:       s.UpdatedAt.UTC(),
	}
}

func (repo submissionRepository) unboil(r *assignmentSubmissionRow) grading.AssignmentSubmission {
	s := grading.AssignmentSubmission{
		ID:              r.ID,
		AssignmentID:    r.AssignmentID,
		CourseID:        r.CourseID,
		UserID:          r.UserID,
		EnrollmentID:    r.EnrollmentID,
		Content:         r.Content,
		AttachmentURL:   r.AttachmentURL,
		Score:           r.Score,
		MaxScore:        r.MaxScore,
		Percentage:      r.Percentage,
		IsPassed:        r.IsPassed,
		IsLate:          r.IsLate,
		Status:          r.Status,
		Feedback:        r.Feedback,
		Rubric:          r.Rubric,
		PeerReviews:     r.PeerReviews,
		PlagiarismScore: r.PlagiarismScore,
		Attempt:         r.Attempt,
		SubmittedAt:     r.SubmittedAt,
		GradedAt:        r.GradedAt,
		GradedBy:        r.GradedBy,
		ReturnedAt:      r.ReturnedAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if s.PeerReviews == nil {
		s.PeerReviews = []map[string]interface{}{}
	}
	return s
}

func (repo submissionRepository) CreateSubmission(ctx context.Context, s grading.AssignmentSubmission) (grading.AssignmentSubmission, error) {
	s.ID = newID()
	r := repo.boil(s)
	res := conn(ctx, repo.db).Clauses(clause.OnConflict{DoNothing: true}).Create(r)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return grading.AssignmentSubmission{}, grading.ErrAlreadySubmitted
		}
		return grading.AssignmentSubmission{}, errors.Wrap(res.Error, "inserting assignment submission")
	}
	if res.RowsAffected == 0 {
		return grading.AssignmentSubmission{}, grading.ErrAlreadySubmitted
	}
	return repo.unboil(r), nil
}

func (repo submissionRepository) GetSubmission(ctx context.Context, id string) (grading.AssignmentSubmission, error) {
	if !validID(id) {
		return grading.AssignmentSubmission{}, grading.ErrSubmissionNotFound
	}
	var r assignmentSubmissionRow
	if err := conn(ctx, repo.db).Where("id = ?", id).First(&r).Error; err != nil {
		if isNotFound(err) {
			return grading.AssignmentSubmission{}, grading.ErrSubmissionNotFound
		}
		return grading.AssignmentSubmission{}, errors.Wrap(err, "finding assignment submission")
	}
	return repo.unboil(&r), nil
}

func (repo submissionRepository) ListSubmissions(ctx context.Context, filter grading.SubmissionFilter) ([]grading.AssignmentSubmission, error) {
	q := conn(ctx, repo.db).Model(&assignmentSubmissionRow{})
	if filter.AssignmentID != "" {
		q = q.Where("assignment_id = ?", filter.AssignmentID)
	}
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var rows []assignmentSubmissionRow
	if err := q.Order("submitted_at ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "listing assignment submissions")
	}
	subs := make([]grading.AssignmentSubmission, 0, len(rows))
	for i := range rows {
		subs = append(subs, repo.unboil(&rows[i]))
	}
	return subs, nil
}

func (repo submissionRepository) UpdateSubmission(ctx context.Context, s grading.AssignmentSubmission) (grading.AssignmentSubmission, error) {
	r := repo.boil(s)
	if err := conn(ctx, repo.db).Save(r).Error; err != nil {
		return grading.AssignmentSubmission{}, errors.Wrap(err, "updating assignment submission")
	}
	return repo.unboil(r), nil
}
