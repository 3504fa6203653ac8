package grading

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasa-lms/darasa/core"
)

const QuizStatusGraded = "graded"

// Assignment submission statuses
const (
	StatusSubmitted   = "submitted"
	StatusGraded      = "graded"
	StatusReturned    = "returned"
	StatusResubmitted = "resubmitted"
)

func ratio(score, maxScore float64) float64 {
	if maxScore <= 0 {
		return 0
	}
	return score * 100 / maxScore
}

// Percentage returns score/maxScore as a percentage rounded to 2 decimals.
func Percentage(score, maxScore float64) float64 {
	return core.Round2(ratio(score, maxScore))
}

// Passed reports whether the unrounded percentage of score reaches threshold; the boundary passes.
func Passed(score, maxScore, threshold float64) bool {
	return ratio(score, maxScore) >= threshold
}

// QuizSubmission is one attempt of a user at a quiz.
type QuizSubmission struct {
	ID               string    `json:"id"`
	QuizID           string    `json:"quiz_id"`
	LessonID         string    `json:"lesson_id"`
	CourseID         string    `json:"course_id"`
	UserID           string    `json:"user_id"`
	EnrollmentID     string    `json:"enrollment_id"`
	SelectedAnswer   *int      `json:"selected_answer"`
	Score            float64   `json:"score"`
	MaxScore         float64   `json:"max_score"`
	Percentage       float64   `json:"percentage"`
	IsPassed         bool      `json:"is_passed"`
	AttemptNumber    int       `json:"attempt_number"`
	Status           string    `json:"status"`
	TimeTakenSeconds int       `json:"time_taken_seconds"`
	SubmittedAt      time.Time `json:"submitted_at"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewQuizSubmission is either a selected answer, scored against the quiz, or a precomputed score.
type NewQuizSubmission struct {
	QuizID           string   `json:"quiz_id" validate:"required,uuid"`
	SelectedAnswer   *int     `json:"selected_answer" validate:"omitempty,gte=0"`
	Score            *float64 `json:"score" validate:"omitempty,gte=0"`
	MaxScore         *float64 `json:"max_score" validate:"omitempty,gt=0"`
	TimeTakenSeconds int      `json:"time_taken_seconds" validate:"gte=0"`
}

func (ns NewQuizSubmission) Validate(validate *validator.Validate) error {
	if err := validate.Struct(ns); err != nil {
		return err
	}
	if ns.SelectedAnswer != nil {
		return nil
	}
	if ns.Score == nil {
		return core.NewFieldError("score", "one of selected_answer or score is required")
	}
	if ns.MaxScore == nil {
		return core.NewFieldError("max_score", "this field is required")
	}
	if *ns.Score > *ns.MaxScore {
		return core.NewFieldError("score", "score cannot exceed max_score")
	}
	return nil
}

type QuizSubmissionFilter struct {
	QuizID string `query:"quiz_id"`
	UserID string `query:"user_id"`
}

type AssignmentSubmission struct {
	ID              string                   `json:"id"`
	AssignmentID    string                   `json:"assignment_id"`
	CourseID        string                   `json:"course_id"`
	UserID          string                   `json:"user_id"`
	EnrollmentID    string                   `json:"enrollment_id"`
	Content         string                   `json:"content"`
	AttachmentURL   string                   `json:"attachment_url"`
	Score           *float64                 `json:"score"`
	MaxScore        float64                  `json:"max_score"`
	Percentage      *float64                 `json:"percentage"`
	IsPassed        bool                     `json:"is_passed"`
	IsLate          bool                     `json:"is_late"`
	Status          string                   `json:"status"`
	Feedback        string                   `json:"feedback"`
	Rubric          map[string]interface{}   `json:"rubric"`
	PeerReviews     []map[string]interface{} `json:"peer_reviews"`
	PlagiarismScore *float64                 `json:"plagiarism_score"`
	Attempt         int                      `json:"attempt"`
	SubmittedAt     time.Time                `json:"submitted_at"`
	GradedAt        *time.Time               `json:"graded_at"`
	GradedBy        *string                  `json:"graded_by"`
	ReturnedAt      *time.Time               `json:"returned_at"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
}

// CanBeGraded reports whether the submission awaits a grade.
func (s AssignmentSubmission) CanBeGraded() bool {
	return s.Status == StatusSubmitted || s.Status == StatusResubmitted
}

type NewAssignmentSubmission struct {
	Content       string `json:"content"`
	AttachmentURL string `json:"attachment_url" validate:"omitempty,max=1024"`
}

func (ns *NewAssignmentSubmission) Validate(validate *validator.Validate) error {
	ns.Content = core.CleanString(ns.Content)
	ns.AttachmentURL = core.CleanString(ns.AttachmentURL)
	if err := validate.Struct(ns); err != nil {
		return err
	}
	if ns.Content == "" && ns.AttachmentURL == "" {
		return core.NewFieldError("content", "one of content or attachment_url is required")
	}
	return nil
}

type GradeSubmission struct {
	Score           *float64               `json:"score" validate:"required,gte=0"`
	Feedback        string                 `json:"feedback"`
	Rubric          map[string]interface{} `json:"rubric"`
	PlagiarismScore *float64               `json:"plagiarism_score" validate:"omitempty,gte=0,lte=100"`
}

func (gs GradeSubmission) Validate(validate *validator.Validate) error { return validate.Struct(gs) }

type ReturnSubmission struct {
	Feedback string `json:"feedback"`
}

type PeerReview struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

func (pr PeerReview) Validate(validate *validator.Validate) error { return validate.Struct(pr) }

type SubmissionFilter struct {
	AssignmentID string `query:"assignment_id"`
	UserID       string `query:"user_id"`
	Status       string `query:"status"`
}
