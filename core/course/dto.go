package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasa-lms/darasa/core"
)

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title            string  `json:"title" validate:"required,max=255"`
	Slug             string  `json:"slug" validate:"omitempty,max=255,slug"`
	ShortDescription string  `json:"short_description" validate:"max=500"`
	Description      string  `json:"description"`
	ThumbnailURL     string  `json:"thumbnail_url" validate:"omitempty,max=1024"`
	Price            float64 `json:"price" validate:"gte=0"`
	Currency         string  `json:"currency" validate:"omitempty,len=3,alpha"`
	Level            string  `json:"level" validate:"omitempty,courselevel"`
	Language         string  `json:"language" validate:"max=50"`
	MaxStudents      *int    `json:"max_students" validate:"omitempty,gte=1"`
	Status           string  `json:"status" validate:"omitempty,coursestatus"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Slug = core.CleanString(nc.Slug, true /* lower */)
	nc.Currency = core.CleanString(nc.Currency)
	nc.Level = core.CleanString(nc.Level, true /* lower */)
	if nc.Level == "" {
		nc.Level = LevelAll
	}
	if nc.Status == "" {
		nc.Status = StatusDraft
	}
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
// nil fields are left untouched.
type UpdateCourse struct {
	Title            *string  `json:"title" validate:"omitempty,min=1,max=255"`
	Slug             *string  `json:"slug" validate:"omitempty,max=255,slug"`
	ShortDescription *string  `json:"short_description" validate:"omitempty,max=500"`
	Description      *string  `json:"description"`
	ThumbnailURL     *string  `json:"thumbnail_url" validate:"omitempty,max=1024"`
	Price            *float64 `json:"price" validate:"omitempty,gte=0"`
	Currency         *string  `json:"currency" validate:"omitempty,len=3,alpha"`
	Level            *string  `json:"level" validate:"omitempty,courselevel"`
	Language         *string  `json:"language" validate:"omitempty,max=50"`
	MaxStudents      *int     `json:"max_students" validate:"omitempty,gte=1"`
	Status           *string  `json:"status" validate:"omitempty,coursestatus"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	if uc.Title != nil {
		*uc.Title = core.CleanString(*uc.Title)
	}
	if uc.Slug != nil {
		*uc.Slug = core.CleanString(*uc.Slug, true /* lower */)
	}
	return validate.Struct(uc)
}

func (uc UpdateCourse) apply(c *Course) {
	if uc.Title != nil {
		c.Title = *uc.Title
	}
	if uc.ShortDescription != nil {
		c.ShortDescription = *uc.ShortDescription
	}
	if uc.Description != nil {
		c.Description = *uc.Description
	}
	if uc.ThumbnailURL != nil {
		c.ThumbnailURL = *uc.ThumbnailURL
	}
	if uc.Price != nil {
		c.Price = *uc.Price
		c.IsFree = *uc.Price == 0
	}
	if uc.Currency != nil {
		c.Currency = *uc.Currency
	}
	if uc.Level != nil {
		c.Level = *uc.Level
	}
	if uc.Language != nil {
		c.Language = *uc.Language
	}
	if uc.MaxStudents != nil {
		c.MaxStudents = uc.MaxStudents
	}
}

type NewModule struct {
	CourseID    string `json:"course_id" validate:"required,uuid"`
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description"`
	ModuleOrder *int   `json:"module_order" validate:"omitempty,gte=1"`
	Status      string `json:"status" validate:"omitempty,contentstatus"`
}

func (nm *NewModule) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	if nm.Status == "" {
		nm.Status = ContentDraft
	}
	return validate.Struct(nm)
}

type UpdateModule struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
	ModuleOrder *int    `json:"module_order" validate:"omitempty,gte=1"`
	Status      *string `json:"status" validate:"omitempty,contentstatus"`
}

func (um *UpdateModule) Validate(validate *validator.Validate) error {
	if um.Title != nil {
		*um.Title = core.CleanString(*um.Title)
	}
	return validate.Struct(um)
}

func (um UpdateModule) apply(m *Module) {
	if um.Title != nil {
		m.Title = *um.Title
	}
	if um.Description != nil {
		m.Description = *um.Description
	}
	if um.ModuleOrder != nil {
		m.ModuleOrder = *um.ModuleOrder
	}
	if um.Status != nil {
		m.Status = *um.Status
	}
}

type NewLesson struct {
	ModuleID        string `json:"module_id" validate:"required,uuid"`
	Title           string `json:"title" validate:"required,max=255"`
	Content         string `json:"content"`
	VideoURL        string `json:"video_url" validate:"omitempty,url,max=1024"`
	DurationMinutes int    `json:"duration_minutes" validate:"gte=0"`
	LessonOrder     *int   `json:"lesson_order" validate:"omitempty,gte=1"`
	LessonType      string `json:"lesson_type" validate:"omitempty,lessontype"`
	Status          string `json:"status" validate:"omitempty,contentstatus"`
	IsFreePreview   bool   `json:"is_free_preview"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	nl.VideoURL = core.CleanString(nl.VideoURL)
	if nl.LessonType == "" {
		nl.LessonType = LessonText
	}
	if nl.Status == "" {
		nl.Status = ContentDraft
	}
	return validate.Struct(nl)
}

type UpdateLesson struct {
	Title           *string `json:"title" validate:"omitempty,min=1,max=255"`
	Content         *string `json:"content"`
	VideoURL        *string `json:"video_url" validate:"omitempty,url,max=1024"`
	DurationMinutes *int    `json:"duration_minutes" validate:"omitempty,gte=0"`
	LessonOrder     *int    `json:"lesson_order" validate:"omitempty,gte=1"`
	LessonType      *string `json:"lesson_type" validate:"omitempty,lessontype"`
	Status          *string `json:"status" validate:"omitempty,contentstatus"`
	IsFreePreview   *bool   `json:"is_free_preview"`
}

func (ul *UpdateLesson) Validate(validate *validator.Validate) error {
	if ul.Title != nil {
		*ul.Title = core.CleanString(*ul.Title)
	}
	return validate.Struct(ul)
}

func (ul UpdateLesson) apply(l *Lesson) {
	if ul.Title != nil {
		l.Title = *ul.Title
	}
	if ul.Content != nil {
		l.Content = *ul.Content
	}
	if ul.VideoURL != nil {
		l.VideoURL = *ul.VideoURL
	}
	if ul.DurationMinutes != nil {
		l.DurationMinutes = *ul.DurationMinutes
	}
	if ul.LessonOrder != nil {
		l.LessonOrder = *ul.LessonOrder
	}
	if ul.LessonType != nil {
		l.LessonType = *ul.LessonType
	}
	if ul.Status != nil {
		l.Status = *ul.Status
	}
	if ul.IsFreePreview != nil {
		l.IsFreePreview = *ul.IsFreePreview
	}
}

type NewQuiz struct {
	LessonID          string   `json:"lesson_id" validate:"required,uuid"`
	Question          string   `json:"question" validate:"required"`
	Answers           []string `json:"answers" validate:"required,min=2,max=10,dive,required,max=500"`
	CorrectAnswer     *int     `json:"correct_answer" validate:"required,gte=0"`
	Explanation       string   `json:"explanation"`
	PassingPercentage *float64 `json:"passing_percentage" validate:"omitempty,gte=0,lte=100"`
	MaxAttempts       *int     `json:"max_attempts" validate:"omitempty,gte=1"`
}

func (nq *NewQuiz) Validate(validate *validator.Validate) error {
	nq.Question = core.CleanString(nq.Question)
	for i := range nq.Answers {
		nq.Answers[i] = core.CleanString(nq.Answers[i])
	}
	if err := validate.Struct(nq); err != nil {
		return err
	}
	return validateCorrectAnswer(*nq.CorrectAnswer, len(nq.Answers))
}

type UpdateQuiz struct {
	Question          *string  `json:"question" validate:"omitempty,min=1"`
	Answers           []string `json:"answers" validate:"omitempty,min=2,max=10,dive,required,max=500"`
	CorrectAnswer     *int     `json:"correct_answer" validate:"omitempty,gte=0"`
	Explanation       *string  `json:"explanation"`
	PassingPercentage *float64 `json:"passing_percentage" validate:"omitempty,gte=0,lte=100"`
	MaxAttempts       *int     `json:"max_attempts" validate:"omitempty,gte=1"`
}

// Validate checks the update against the Quiz it modifies: the correct answer must stay in range.
func (uq *UpdateQuiz) Validate(orig Quiz, validate *validator.Validate) error {
	if uq.Question != nil {
		*uq.Question = core.CleanString(*uq.Question)
	}
	if err := validate.Struct(uq); err != nil {
		return err
	}
	answers, correct := orig.Answers, orig.CorrectAnswer
	if uq.Answers != nil {
		answers = uq.Answers
	}
	if uq.CorrectAnswer != nil {
		correct = *uq.CorrectAnswer
	}
	return validateCorrectAnswer(correct, len(answers))
}

func (uq UpdateQuiz) apply(q *Quiz) {
	if uq.Question != nil {
		q.Question = *uq.Question
	}
	if uq.Answers != nil {
		q.Answers = uq.Answers
	}
	if uq.CorrectAnswer != nil {
		q.CorrectAnswer = *uq.CorrectAnswer
	}
	if uq.Explanation != nil {
		q.Explanation = *uq.Explanation
	}
	if uq.PassingPercentage != nil {
		q.PassingPercentage = uq.PassingPercentage
	}
	if uq.MaxAttempts != nil {
		q.MaxAttempts = uq.MaxAttempts
	}
}

func validateCorrectAnswer(idx, nAnswers int) error {
	if idx < 0 || idx >= nAnswers {
		return core.NewFieldError("correct_answer", "correct_answer must be the index of one of the answers")
	}
	return nil
}

type NewAssignment struct {
	CourseID            string     `json:"course_id" validate:"required,uuid"`
	ModuleID            *string    `json:"module_id" validate:"omitempty,uuid"`
	LessonID            *string    `json:"lesson_id" validate:"omitempty,uuid"`
	Title               string     `json:"title" validate:"required,max=255"`
	Instructions        string     `json:"instructions"`
	MaxScore            float64    `json:"max_score" validate:"gt=0"`
	PassingPercentage   *float64   `json:"passing_percentage" validate:"omitempty,gte=0,lte=100"`
	DueDate             *time.Time `json:"due_date"`
	AllowLateSubmission bool       `json:"allow_late_submission"`
	Status              string     `json:"status" validate:"omitempty,contentstatus"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	if na.MaxScore == 0 {
		na.MaxScore = 100
	}
	if na.Status == "" {
		na.Status = ContentPublished
	}
	return validate.Struct(na)
}

type UpdateAssignment struct {
	Title               *string    `json:"title" validate:"omitempty,min=1,max=255"`
	Instructions        *string    `json:"instructions"`
	MaxScore            *float64   `json:"max_score" validate:"omitempty,gt=0"`
	PassingPercentage   *float64   `json:"passing_percentage" validate:"omitempty,gte=0,lte=100"`
	DueDate             *time.Time `json:"due_date"`
	AllowLateSubmission *bool      `json:"allow_late_submission"`
	Status              *string    `json:"status" validate:"omitempty,contentstatus"`
}

func (ua *UpdateAssignment) Validate(validate *validator.Validate) error {
	if ua.Title != nil {
		*ua.Title = core.CleanString(*ua.Title)
	}
	return validate.Struct(ua)
}

func (ua UpdateAssignment) apply(a *Assignment) {
	if ua.Title != nil {
		a.Title = *ua.Title
	}
	if ua.Instructions != nil {
		a.Instructions = *ua.Instructions
	}
	if ua.MaxScore != nil {
		a.MaxScore = *ua.MaxScore
	}
	if ua.PassingPercentage != nil {
		a.PassingPercentage = *ua.PassingPercentage
	}
	if ua.DueDate != nil {
		due := ua.DueDate.UTC()
		a.DueDate = &due
	}
	if ua.AllowLateSubmission != nil {
		a.AllowLateSubmission = *ua.AllowLateSubmission
	}
	if ua.Status != nil {
		a.Status = *ua.Status
	}
}
