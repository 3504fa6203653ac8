package review

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasa-lms/darasa/core"
)

// Moderation statuses
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

type Review struct {
	ID             string     `json:"id"`
	CourseID       string     `json:"course_id"`
	UserID         string     `json:"user_id"`
	Rating         int        `json:"rating"`
	Title          string     `json:"title"`
	Comment        string     `json:"comment"`
	Status         string     `json:"status"`
	IsFlagged      bool       `json:"is_flagged"`
	FlagReason     string     `json:"flag_reason,omitempty"`
	HelpfulCount   int        `json:"helpful_count"`
	ReportCount    int        `json:"report_count"`
	ModeratedBy    *string    `json:"moderated_by"`
	ModeratedAt    *time.Time `json:"moderated_at"`
	ModerationNote string     `json:"moderation_note,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type NewReview struct {
	CourseID string `json:"course_id" validate:"required,uuid"`
	Rating   int    `json:"rating" validate:"required,gte=1,lte=5"`
	Title    string `json:"title" validate:"max=255"`
	Comment  string `json:"comment" validate:"max=5000"`
}

func (nr *NewReview) Validate(validate *validator.Validate) error {
	nr.Title = core.CleanString(nr.Title)
	nr.Comment = core.CleanString(nr.Comment)
	return validate.Struct(nr)
}

type UpdateReview struct {
	Rating  *int    `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Title   *string `json:"title" validate:"omitempty,max=255"`
	Comment *string `json:"comment" validate:"omitempty,max=5000"`
}

func (ur *UpdateReview) Validate(validate *validator.Validate) error {
	if ur.Title != nil {
		*ur.Title = core.CleanString(*ur.Title)
	}
	if ur.Comment != nil {
		*ur.Comment = core.CleanString(*ur.Comment)
	}
	return validate.Struct(ur)
}

type Moderation struct {
	Note string `json:"note" validate:"max=1000"`
}

func (m Moderation) Validate(validate *validator.Validate) error { return validate.Struct(m) }

type QueryFilter struct {
	CourseID  string `query:"course_id"`
	UserID    string `query:"user_id"`
	Status    string `query:"status"`
	IsFlagged *bool  `query:"is_flagged"`
}

// CourseReviews is the public review listing of a course.
type CourseReviews struct {
	AverageRating float64  `json:"average_rating"`
	Count         int64    `json:"count"`
	Reviews       []Review `json:"reviews"`
}
