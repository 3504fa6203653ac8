package course

import (
	"time"

	"github.com/darasa-lms/darasa/core"
)

// Course statuses
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
	StatusSuspended = "suspended"
)

// Course levels
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
	LevelAll          = "all_levels"
)

// Content (module, lesson, assignment) statuses
const (
	ContentDraft     = "draft"
	ContentPublished = "published"
	ContentArchived  = "archived"
)

// Lesson types
const (
	LessonVideo      = "video"
	LessonText       = "text"
	LessonAudio      = "audio"
	LessonPractical  = "practical"
	LessonDiscussion = "discussion"
	LessonAssignment = "assignment"
)

const DefaultCurrency = "USD"

var (
	CourseStatuses  = []string{StatusDraft, StatusPublished, StatusArchived, StatusSuspended}
	CourseLevels    = []string{LevelBeginner, LevelIntermediate, LevelAdvanced, LevelAll}
	ContentStatuses = []string{ContentDraft, ContentPublished, ContentArchived}
	LessonTypes     = []string{LessonVideo, LessonText, LessonAudio, LessonPractical, LessonDiscussion, LessonAssignment}
)

type Course struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Slug             string     `json:"slug"`
	ShortDescription string     `json:"short_description"`
	Description      string     `json:"description"`
	ThumbnailURL     string     `json:"thumbnail_url"`
	Price            float64    `json:"price"`
	IsFree           bool       `json:"is_free"`
	Currency         string     `json:"currency"`
	Status           string     `json:"status"`
	Level            string     `json:"level"`
	Language         string     `json:"language"`
	MaxStudents      *int       `json:"max_students"`
	CurrentStudents  int        `json:"current_students"`
	InstructorID     string     `json:"instructor_id"`
	PublishedAt      *time.Time `json:"published_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (c Course) IsPublished() bool { return c.Status == StatusPublished }

type Module struct {
	ID              string    `json:"id"`
	CourseID        string    `json:"course_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	ModuleOrder     int       `json:"module_order"`
	Status          string    `json:"status"`
	LessonCount     int       `json:"lesson_count"`
	QuizCount       int       `json:"quiz_count"`
	AssignmentCount int       `json:"assignment_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Lesson struct {
	ID              string    `json:"id"`
	ModuleID        string    `json:"module_id"`
	CourseID        string    `json:"course_id"`
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	VideoURL        string    `json:"video_url"`
	DurationMinutes int       `json:"duration_minutes"`
	LessonOrder     int       `json:"lesson_order"`
	LessonType      string    `json:"lesson_type"`
	Status          string    `json:"status"`
	IsFreePreview   bool      `json:"is_free_preview"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (l Lesson) IsPublished() bool { return l.Status == ContentPublished }

type Quiz struct {
	ID                string    `json:"id"`
	LessonID          string    `json:"lesson_id"`
	CourseID          string    `json:"course_id"`
	Question          string    `json:"question"`
	Answers           []string  `json:"answers"`
	CorrectAnswer     int       `json:"correct_answer"`
	Explanation       string    `json:"explanation"`
	PassingPercentage *float64  `json:"passing_percentage"`
	MaxAttempts       *int      `json:"max_attempts"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// PassThreshold is the percentage a submission needs to pass this quiz.
func (q Quiz) PassThreshold(defaultPct float64) float64 {
	if q.PassingPercentage != nil {
		return *q.PassingPercentage
	}
	return defaultPct
}

// QuizView is what students get to see of a Quiz.
type QuizView struct {
	ID                string   `json:"id"`
	LessonID          string   `json:"lesson_id"`
	CourseID          string   `json:"course_id"`
	Question          string   `json:"question"`
	Answers           []string `json:"answers"`
	PassingPercentage *float64 `json:"passing_percentage"`
	MaxAttempts       *int     `json:"max_attempts"`
}

func (q Quiz) StudentView() QuizView {
	return QuizView{
		ID:                q.ID,
		LessonID:          q.LessonID,
		CourseID:          q.CourseID,
		Question:          q.Question,
		Answers:           q.Answers,
		PassingPercentage: q.PassingPercentage,
		MaxAttempts:       q.MaxAttempts,
	}
}

type Assignment struct {
	ID                  string     `json:"id"`
	CourseID            string     `json:"course_id"`
	ModuleID            *string    `json:"module_id"`
	LessonID            *string    `json:"lesson_id"`
	Title               string     `json:"title"`
	Instructions        string     `json:"instructions"`
	MaxScore            float64    `json:"max_score"`
	PassingPercentage   float64    `json:"passing_percentage"`
	DueDate             *time.Time `json:"due_date"`
	AllowLateSubmission bool       `json:"allow_late_submission"`
	Status              string     `json:"status"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// IsLate reports whether a submission made at t is past the due date.
func (a Assignment) IsLate(t time.Time) bool {
	return a.DueDate != nil && t.After(*a.DueDate)
}

type QueryFilter struct {
	Search       string `query:"search"`
	Status       string `query:"status"`
	Level        string `query:"level"`
	InstructorID string `query:"instructor_id"`
	IsFree       *bool  `query:"is_free"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	qf.Level = core.CleanString(qf.Level, true /* lower */)
}

// GetFilter selects a single Course by ID or slug.
type GetFilter struct {
	ID   string
	Slug string
}

type LessonFilter struct {
	CourseID      string
	ModuleID      string
	PublishedOnly bool
}

type AssignmentFilter struct {
	CourseID string
	ModuleID string
	LessonID string
}
