package progress

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasa-lms/darasa/core"
)

// Progress types
const (
	TypeLesson     = "lesson"
	TypeQuiz       = "quiz"
	TypeAssignment = "assignment"
	TypeModule     = "module"
	TypeCourse     = "course"
)

// Progress statuses
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusSkipped    = "skipped"
)

var (
	Types    = []string{TypeLesson, TypeQuiz, TypeAssignment, TypeModule, TypeCourse}
	Statuses = []string{StatusNotStarted, StatusInProgress, StatusCompleted, StatusFailed, StatusSkipped}
)

// CourseProgress tracks the progress of an enrollment on one course item.
type CourseProgress struct {
	ID                   string     `json:"id"`
	EnrollmentID         string     `json:"enrollment_id"`
	CourseID             string     `json:"course_id"`
	UserID               string     `json:"user_id"`
	ModuleID             *string    `json:"module_id"`
	LessonID             *string    `json:"lesson_id"`
	QuizID               *string    `json:"quiz_id"`
	AssignmentID         *string    `json:"assignment_id"`
	ProgressType         string     `json:"progress_type"`
	ProgressKey          string     `json:"-"`
	Status               string     `json:"status"`
	CompletionPercentage float64    `json:"completion_percentage"`
	Score                *float64   `json:"score"`
	TimeSpentMinutes     int        `json:"time_spent_minutes"`
	Attempts             int        `json:"attempts"`
	MaxAttempts          *int       `json:"max_attempts"`
	StartedAt            time.Time  `json:"started_at"`
	CompletedAt          *time.Time `json:"completed_at"`
	LastAccessedAt       time.Time  `json:"last_accessed_at"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// Key derives the identity of a progress row inside its enrollment.
func Key(progressType string, moduleID, lessonID, quizID, assignmentID *string) string {
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	return strings.Join([]string{progressType, deref(moduleID), deref(lessonID), deref(quizID), deref(assignmentID)}, ":")
}

// CountsAttempts reports whether every save of this row is an attempt.
func (p CourseProgress) CountsAttempts() bool {
	return p.ProgressType == TypeQuiz || p.ProgressType == TypeAssignment
}

func (p *CourseProgress) setKey() {
	p.ProgressKey = Key(p.ProgressType, p.ModuleID, p.LessonID, p.QuizID, p.AssignmentID)
}

type NewProgress struct {
	CourseID             string   `json:"course_id" validate:"required,uuid"`
	ModuleID             *string  `json:"module_id" validate:"omitempty,uuid"`
	LessonID             *string  `json:"lesson_id" validate:"omitempty,uuid"`
	QuizID               *string  `json:"quiz_id" validate:"omitempty,uuid"`
	AssignmentID         *string  `json:"assignment_id" validate:"omitempty,uuid"`
	ProgressType         string   `json:"progress_type" validate:"required,progresstype"`
	Status               string   `json:"status" validate:"omitempty,progressstatus"`
	CompletionPercentage float64  `json:"completion_percentage" validate:"gte=0,lte=100"`
	Score                *float64 `json:"score" validate:"omitempty,gte=0"`
	TimeSpentMinutes     int      `json:"time_spent_minutes" validate:"gte=0"`
}

func (np *NewProgress) Validate(validate *validator.Validate) error {
	np.ProgressType = core.CleanString(np.ProgressType, true /* lower */)
	np.Status = core.CleanString(np.Status, true /* lower */)
	if err := validate.Struct(np); err != nil {
		return err
	}

	switch {
	case np.ProgressType == TypeLesson && np.LessonID == nil:
		return core.NewFieldError("lesson_id", "this field is required")
	case np.ProgressType == TypeQuiz && np.QuizID == nil:
		return core.NewFieldError("quiz_id", "this field is required")
	case np.ProgressType == TypeAssignment && np.AssignmentID == nil:
		return core.NewFieldError("assignment_id", "this field is required")
	case np.ProgressType == TypeModule && np.ModuleID == nil:
		return core.NewFieldError("module_id", "this field is required")
	}

	np.normalize()
	return nil
}

// normalize derives the status from the percentage, or the percentage from a completed status.
func (np *NewProgress) normalize() {
	switch {
	case np.Status == StatusCompleted:
		np.CompletionPercentage = 100
	case np.Status == "" && np.CompletionPercentage >= 100:
		np.Status = StatusCompleted
	case np.Status == "":
		np.Status = StatusInProgress
	}
}

type Filter struct {
	EnrollmentID string
	CourseID     string
	UserID       string
	ProgressType string
}

type LessonReport struct {
	LessonID    string     `json:"lesson_id"`
	Title       string     `json:"title"`
	LessonOrder int        `json:"lesson_order"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completed_at"`
}

type ModuleReport struct {
	ModuleID         string         `json:"module_id"`
	Title            string         `json:"title"`
	ModuleOrder      int            `json:"module_order"`
	TotalLessons     int            `json:"total_lessons"`
	CompletedLessons int            `json:"completed_lessons"`
	Lessons          []LessonReport `json:"lessons"`
}

// CourseReport is the "X of Y lessons completed" view of an enrollment.
type CourseReport struct {
	CourseID         string         `json:"course_id"`
	EnrollmentID     string         `json:"enrollment_id"`
	Status           string         `json:"status"`
	Progress         float64        `json:"progress"`
	TotalLessons     int            `json:"total_lessons"`
	CompletedLessons int            `json:"completed_lessons"`
	Modules          []ModuleReport `json:"modules"`
}

// LessonPercentage returns completed/total as a percentage rounded to 2 decimals.
func LessonPercentage(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return core.Round2(float64(completed) * 100 / float64(total))
}
