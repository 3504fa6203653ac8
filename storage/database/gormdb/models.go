package gormrepos

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Row models. Production tables are created by the SQL migrations; AutoMigrate mirrors them for tests.

type userRow struct {
	ID           string  `gorm:"primaryKey;size:36"`
	Name         string  `gorm:"size:255;not null"`
	Username     *string `gorm:"size:50;uniqueIndex"`
	Email        *string `gorm:"size:255;uniqueIndex"`
	IsActive     bool    `gorm:"not null"`
	Role         string  `gorm:"size:20;not null"`
	PasswordHash []byte  `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLogin    *time.Time
}

func (userRow) TableName() string { return "users" }

type courseRow struct {
	ID               string `gorm:"primaryKey;size:36"`
	Title            string `gorm:"size:255;not null"`
	Slug             string `gorm:"size:255;uniqueIndex;not null"`
	ShortDescription string `gorm:"size:500"`
	Description      string
	ThumbnailURL     string  `gorm:"size:1024"`
	Price            float64 `gorm:"not null"`
	IsFree           bool    `gorm:"not null"`
	Currency         string  `gorm:"size:3;not null"`
	Status           string  `gorm:"size:20;index;not null"`
	Level            string  `gorm:"size:20;not null"`
	Language         string  `gorm:"size:50"`
	MaxStudents      *int
	CurrentStudents  int    `gorm:"not null"`
	InstructorID     string `gorm:"size:36;index;not null"`
	PublishedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (courseRow) TableName() string { return "courses" }

type moduleRow struct {
	ID          string `gorm:"primaryKey;size:36"`
	CourseID    string `gorm:"size:36;index;not null"`
	Title       string `gorm:"size:255;not null"`
	Description string
	ModuleOrder int    `gorm:"not null"`
	Status      string `gorm:"size:20;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (moduleRow) TableName() string { return "course_modules" }

type lessonRow struct {
	ID              string `gorm:"primaryKey;size:36"`
	ModuleID        string `gorm:"size:36;index;not null"`
	CourseID        string `gorm:"size:36;index;not null"`
	Title           string `gorm:"size:255;not null"`
	Content         string
	VideoURL        string `gorm:"size:1024"`
	DurationMinutes int
	LessonOrder     int    `gorm:"not null"`
	LessonType      string `gorm:"size:20;not null"`
	Status          string `gorm:"size:20;not null"`
	IsFreePreview   bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (lessonRow) TableName() string { return "lessons" }

type quizRow struct {
	ID                string                      `gorm:"primaryKey;size:36"`
	LessonID          string                      `gorm:"size:36;index;not null"`
	CourseID          string                      `gorm:"size:36;not null"`
	Question          string                      `gorm:"not null"`
	Answers           datatypes.JSONSlice[string] `gorm:"not null"`
	CorrectAnswer     int                         `gorm:"not null"`
	Explanation       string
	PassingPercentage *float64
	MaxAttempts       *int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (quizRow) TableName() string { return "quizzes" }

type assignmentRow struct {
	ID                  string  `gorm:"primaryKey;size:36"`
	CourseID            string  `gorm:"size:36;index;not null"`
	ModuleID            *string `gorm:"size:36"`
	LessonID            *string `gorm:"size:36"`
	Title               string  `gorm:"size:255;not null"`
	Instructions        string
	MaxScore            float64 `gorm:"not null"`
	PassingPercentage   float64 `gorm:"not null"`
	DueDate             *time.Time
	AllowLateSubmission bool
	Status              string `gorm:"size:20;not null"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (assignmentRow) TableName() string { return "assignments" }

type enrollmentRow struct {
	ID             string  `gorm:"primaryKey;size:36"`
	CourseID       string  `gorm:"size:36;not null;uniqueIndex:idx_enrollment_course_user"`
	UserID         string  `gorm:"size:36;not null;uniqueIndex:idx_enrollment_course_user;index"`
	Status         string  `gorm:"size:20;not null"`
	Progress       float64 `gorm:"not null"`
	EnrolledAt     time.Time
	CompletedAt    *time.Time
	LastAccessedAt *time.Time
	PaymentStatus  string  `gorm:"size:20;not null"`
	AmountPaid     float64 `gorm:"not null"`
	Currency       string  `gorm:"size:3;not null"`
	PaymentOrderID *string `gorm:"size:64;uniqueIndex"`
	PaymentURL     string  `gorm:"size:1024"`
	PaidAt         *time.Time
	Metadata       datatypes.JSONMap
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (enrollmentRow) TableName() string { return "course_enrollments" }

type progressRow struct {
	ID                   string  `gorm:"primaryKey;size:36"`
	EnrollmentID         string  `gorm:"size:36;not null;uniqueIndex:idx_progress_key"`
	CourseID             string  `gorm:"size:36;not null"`
	UserID               string  `gorm:"size:36;not null"`
	ModuleID             *string `gorm:"size:36"`
	LessonID             *string `gorm:"size:36"`
	QuizID               *string `gorm:"size:36"`
	AssignmentID         *string `gorm:"size:36"`
	ProgressType         string  `gorm:"size:20;not null"`
	ProgressKey          string  `gorm:"size:200;not null;uniqueIndex:idx_progress_key"`
	Status               string  `gorm:"size:20;not null"`
	CompletionPercentage float64 `gorm:"not null"`
	Score                *float64
	TimeSpentMinutes     int `gorm:"not null"`
	Attempts             int `gorm:"not null"`
	MaxAttempts          *int
	StartedAt            time.Time
	CompletedAt          *time.Time
	LastAccessedAt       time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (progressRow) TableName() string { return "course_progress" }

type quizSubmissionRow struct {
	ID               string `gorm:"primaryKey;size:36"`
	QuizID           string `gorm:"size:36;not null;uniqueIndex:idx_quiz_attempt"`
	LessonID         string `gorm:"size:36;not null"`
	CourseID         string `gorm:"size:36;not null"`
	UserID           string `gorm:"size:36;not null;uniqueIndex:idx_quiz_attempt"`
	EnrollmentID     string `gorm:"size:36;not null"`
	SelectedAnswer   *int
	Score            float64 `gorm:"not null"`
	MaxScore         float64 `gorm:"not null"`
	Percentage       float64 `gorm:"not null"`
	IsPassed         bool    `gorm:"not null"`
	AttemptNumber    int     `gorm:"not null;uniqueIndex:idx_quiz_attempt"`
	Status           string  `gorm:"size:20;not null"`
	TimeTakenSeconds int
	SubmittedAt      time.Time
	CreatedAt        time.Time
}

func (quizSubmissionRow) TableName() string { return "quiz_submissions" }

type assignmentSubmissionRow struct {
	ID              string `gorm:"primaryKey;size:36"`
	AssignmentID    string `gorm:"size:36;not null;uniqueIndex:idx_submission_assignment_user"`
	CourseID        string `gorm:"size:36;not null"`
	UserID          string `gorm:"size:36;not null;uniqueIndex:idx_submission_assignment_user"`
	EnrollmentID    string `gorm:"size:36;not null"`
	Content         string
	AttachmentURL   string `gorm:"size:1024"`
	Score           *float64
	MaxScore        float64 `gorm:"not null"`
	Percentage      *float64
	IsPassed        bool
	IsLate          bool
	Status          string `gorm:"size:20;not null"`
	Feedback        string
	Rubric          datatypes.JSONMap
	PeerReviews     datatypes.JSONSlice[map[string]interface{}]
	PlagiarismScore *float64
	Attempt         int `gorm:"not null"`
	SubmittedAt     time.Time
	GradedAt        *time.Time
	GradedBy        *string `gorm:"size:36"`
	ReturnedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (assignmentSubmissionRow) TableName() string { return "assignment_submissions" }

type reviewRow struct {
	ID             string `gorm:"primaryKey;size:36"`
	CourseID       string `gorm:"size:36;not null;uniqueIndex:idx_review_user_course"`
	UserID         string `gorm:"size:36;not null;uniqueIndex:idx_review_user_course"`
	Rating         int    `gorm:"not null"`
	Title          string `gorm:"size:255"`
	Comment        string
	Status         string `gorm:"size:20;not null"`
	IsFlagged      bool
	FlagReason     string `gorm:"size:1000"`
	HelpfulCount   int     `gorm:"not null"`
	ReportCount    int     `gorm:"not null"`
	ModeratedBy    *string `gorm:"size:36"`
	ModeratedAt    *time.Time
	ModerationNote string `gorm:"size:1000"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (reviewRow) TableName() string { return "reviews" }

type postRow struct {
	ID            string `gorm:"primaryKey;size:36"`
	Title         string `gorm:"size:255;not null"`
	Slug          string `gorm:"size:255;uniqueIndex;not null"`
	Excerpt       string `gorm:"size:500"`
	Content       string `gorm:"not null"`
	CoverImageURL string `gorm:"size:1024"`
	Tags          datatypes.JSONSlice[string]
	Status        string `gorm:"size:20;not null"`
	PublishedAt   *time.Time
	AuthorID      string `gorm:"size:36;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (postRow) TableName() string { return "posts" }

type eventRow struct {
	ID              string `gorm:"primaryKey;size:36"`
	Title           string `gorm:"size:255;not null"`
	Slug            string `gorm:"size:255;uniqueIndex;not null"`
	Description     string
	Location        string `gorm:"size:255"`
	IsOnline        bool
	MeetingURL      string    `gorm:"size:1024"`
	StartsAt        time.Time `gorm:"not null"`
	EndsAt          time.Time `gorm:"not null"`
	Capacity        *int
	RegisteredCount int    `gorm:"not null"`
	Status          string `gorm:"size:20;not null"`
	OrganizerID     string `gorm:"size:36;not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (eventRow) TableName() string { return "events" }

type registrationRow struct {
	ID           string `gorm:"primaryKey;size:36"`
	EventID      string `gorm:"size:36;not null;uniqueIndex:idx_registration_event_user"`
	UserID       string `gorm:"size:36;not null;uniqueIndex:idx_registration_event_user"`
	RegisteredAt time.Time
}

func (registrationRow) TableName() string { return "event_registrations" }

// AutoMigrate creates the tables of every row model. Used on test databases.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&userRow{},
		&courseRow{},
		&moduleRow{},
		&lessonRow{},
		&quizRow{},
		&assignmentRow{},
		&enrollmentRow{},
		&progressRow{},
		&quizSubmissionRow{},
		&assignmentSubmissionRow{},
		&reviewRow{},
		&postRow{},
		&eventRow{},
		&registrationRow{},
	)
}
