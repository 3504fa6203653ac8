package course

import (
	"context"
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/user"
)

var (
	// errors
	ErrNotFound           = core.NewError(core.KindNotFound, "course not found")
	ErrModuleNotFound     = core.NewError(core.KindNotFound, "module not found")
	ErrLessonNotFound     = core.NewError(core.KindNotFound, "lesson not found")
	ErrQuizNotFound       = core.NewError(core.KindNotFound, "quiz not found")
	ErrAssignmentNotFound = core.NewError(core.KindNotFound, "assignment not found")
	ErrForbidden          = core.NewError(core.KindForbidden, "you are not allowed to manage this course")
	ErrSlugExists         = core.NewError(core.KindConflict, "a course with this slug already exists")
	ErrCourseFull         = core.NewError(core.KindConflict, "course is full")

	maxSlugAttempts = 50
)

type (
	CourseRepository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		// QueryCourses applies AND operation on available QueryFilter fields and returns the total count before paging.
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Course, int64, error)
		GetCourse(ctx context.Context, filter GetFilter) (Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		DeleteCourse(ctx context.Context, id string) error
		SlugExists(ctx context.Context, slug, excludedID string) (bool, error)
		// ReserveSeat increments current_students unless the course is at capacity. It reports whether a seat was taken.
		ReserveSeat(ctx context.Context, id string) (bool, error)
		ReleaseSeat(ctx context.Context, id string) error
		CountByStatus(ctx context.Context) (map[string]int64, error)
	}

	ModuleRepository interface {
		CreateModule(ctx context.Context, m Module) (Module, error)
		GetModule(ctx context.Context, id string) (Module, error)
		// ListModules returns the modules of a course by module_order, with their content counts.
		ListModules(ctx context.Context, courseID string) ([]Module, error)
		UpdateModule(ctx context.Context, m Module) (Module, error)
		DeleteModule(ctx context.Context, id string) error
		NextModuleOrder(ctx context.Context, courseID string) (int, error)
	}

	LessonRepository interface {
		CreateLesson(ctx context.Context, l Lesson) (Lesson, error)
		GetLesson(ctx context.Context, id string) (Lesson, error)
		ListLessons(ctx context.Context, filter LessonFilter) ([]Lesson, error)
		CountLessons(ctx context.Context, filter LessonFilter) (int64, error)
		UpdateLesson(ctx context.Context, l Lesson) (Lesson, error)
		DeleteLesson(ctx context.Context, id string) error
		NextLessonOrder(ctx context.Context, moduleID string) (int, error)
	}

	QuizRepository interface {
		CreateQuiz(ctx context.Context, q Quiz) (Quiz, error)
		GetQuiz(ctx context.Context, id string) (Quiz, error)
		ListQuizzes(ctx context.Context, lessonID string) ([]Quiz, error)
		UpdateQuiz(ctx context.Context, q Quiz) (Quiz, error)
		DeleteQuiz(ctx context.Context, id string) error
	}

	AssignmentRepository interface {
		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		GetAssignment(ctx context.Context, id string) (Assignment, error)
		ListAssignments(ctx context.Context, filter AssignmentFilter) ([]Assignment, error)
		UpdateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		DeleteAssignment(ctx context.Context, id string) error
	}

	// Repositories bundles the storage of every course content entity.
	Repositories struct {
		Courses     CourseRepository
		Modules     ModuleRepository
		Lessons     LessonRepository
		Quizzes     QuizRepository
		Assignments AssignmentRepository
	}

	Service interface {
		// Query lists courses visible to actor (nil for anonymous users).
		Query(ctx context.Context, actor *user.User, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Course, int64, error)
		GetByID(ctx context.Context, id string) (Course, error)
		GetBySlug(ctx context.Context, slug string) (Course, error)
		Create(ctx context.Context, actor user.User, nc NewCourse) (Course, error)
		Update(ctx context.Context, actor user.User, id string, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, actor user.User, id string) error
		// Authorize returns ErrForbidden unless actor may manage the course.
		Authorize(ctx context.Context, actor user.User, courseID string) (Course, error)
		ReserveSeat(ctx context.Context, id string) error
		ReleaseSeat(ctx context.Context, id string) error
		CountByStatus(ctx context.Context) (map[string]int64, error)

		ListModules(ctx context.Context, courseID string) ([]Module, error)
		GetModule(ctx context.Context, id string) (Module, error)
		CreateModule(ctx context.Context, actor user.User, nm NewModule) (Module, error)
		UpdateModule(ctx context.Context, actor user.User, id string, um UpdateModule) (Module, error)
		DeleteModule(ctx context.Context, actor user.User, id string) error

		ListLessons(ctx context.Context, filter LessonFilter) ([]Lesson, error)
		CountLessons(ctx context.Context, filter LessonFilter) (int64, error)
		GetLesson(ctx context.Context, id string) (Lesson, error)
		CreateLesson(ctx context.Context, actor user.User, nl NewLesson) (Lesson, error)
		UpdateLesson(ctx context.Context, actor user.User, id string, ul UpdateLesson) (Lesson, error)
		DeleteLesson(ctx context.Context, actor user.User, id string) error

		ListQuizzes(ctx context.Context, lessonID string) ([]Quiz, error)
		GetQuiz(ctx context.Context, id string) (Quiz, error)
		CreateQuiz(ctx context.Context, actor user.User, nq NewQuiz) (Quiz, error)
		UpdateQuiz(ctx context.Context, actor user.User, id string, uq UpdateQuiz) (Quiz, error)
		DeleteQuiz(ctx context.Context, actor user.User, id string) error

		ListAssignments(ctx context.Context, filter AssignmentFilter) ([]Assignment, error)
		GetAssignment(ctx context.Context, id string) (Assignment, error)
		CreateAssignment(ctx context.Context, actor user.User, na NewAssignment) (Assignment, error)
		UpdateAssignment(ctx context.Context, actor user.User, id string, ua UpdateAssignment) (Assignment, error)
		DeleteAssignment(ctx context.Context, actor user.User, id string) error
	}

	service struct {
		repos                Repositories
		defaultAssignmentPct float64
		logger               core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repos Repositories, conf *core.Config, logger core.Logger) Service {
	return &service{
		repos:                repos,
		defaultAssignmentPct: conf.Grading.AssignmentPassingPercentage,
		logger:               logger,
	}
}

// CanView reports whether actor (nil for anonymous users) may see the course.
func CanView(actor *user.User, c Course) bool {
	if c.IsPublished() {
		return true
	}
	return actor != nil && actor.CanManage(c.InstructorID)
}

// Courses

func (svc *service) Query(ctx context.Context, actor *user.User, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Course, int64, error) {
	if filter == nil {
		filter = &QueryFilter{}
	}
	filter.Clean()
	switch {
	case actor != nil && actor.IsAdmin():
	case actor != nil && actor.IsInstructor() && filter.InstructorID == actor.ID:
	default:
		filter.Status = StatusPublished
	}
	page.Clean()
	ordering = core.FilterOrdering(ordering, "title", "price", "level", "status", "current_students", "created_at", "published_at")
	return svc.repos.Courses.QueryCourses(ctx, filter, ordering, page)
}

func (svc *service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repos.Courses.GetCourse(ctx, GetFilter{ID: id})
}

func (svc *service) GetBySlug(ctx context.Context, slug string) (Course, error) {
	return svc.repos.Courses.GetCourse(ctx, GetFilter{Slug: core.CleanString(slug, true /* lower */)})
}

func (svc *service) Create(ctx context.Context, actor user.User, nc NewCourse) (Course, error) {
	if !actor.CanAuthor() {
		return Course{}, ErrForbidden
	}

	base := nc.Slug
	if base == "" {
		base = nc.Title
	}
	slug, err := svc.uniqueSlug(ctx, core.Slugify(base), "")
	if err != nil {
		return Course{}, err
	}

	now := time.Now().UTC()
	currency := nc.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	c := Course{
		Title:            nc.Title,
		Slug:             slug,
		ShortDescription: nc.ShortDescription,
		Description:      nc.Description,
		ThumbnailURL:     nc.ThumbnailURL,
		Price:            nc.Price,
		IsFree:           nc.Price == 0,
		Currency:         currency,
		Status:           nc.Status,
		Level:            nc.Level,
		Language:         nc.Language,
		MaxStudents:      nc.MaxStudents,
		InstructorID:     actor.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if c.IsPublished() {
		c.PublishedAt = &now
	}
	return svc.repos.Courses.CreateCourse(ctx, c)
}

func (svc *service) Update(ctx context.Context, actor user.User, id string, uc UpdateCourse) (Course, error) {
	c, err := svc.Authorize(ctx, actor, id)
	if err != nil {
		return Course{}, err
	}

	uc.apply(&c)
	if uc.Slug != nil && *uc.Slug != c.Slug {
		slug := core.Slugify(*uc.Slug)
		exists, err := svc.repos.Courses.SlugExists(ctx, slug, c.ID)
		if err != nil {
			return Course{}, pkgerrors.Wrap(err, "checking slug")
		}
		if exists {
			return Course{}, ErrSlugExists
		}
		c.Slug = slug
	}
	if uc.Status != nil {
		c.Status = *uc.Status
		if c.IsPublished() && c.PublishedAt == nil {
			now := time.Now().UTC()
			c.PublishedAt = &now
		}
	}
	c.UpdatedAt = time.Now().UTC()
	return svc.repos.Courses.UpdateCourse(ctx, c)
}

func (svc *service) Delete(ctx context.Context, actor user.User, id string) error {
	if _, err := svc.Authorize(ctx, actor, id); err != nil {
		return err
	}
	return svc.repos.Courses.DeleteCourse(ctx, id)
}

func (svc *service) Authorize(ctx context.Context, actor user.User, courseID string) (Course, error) {
	c, err := svc.GetByID(ctx, courseID)
	if err != nil {
		return Course{}, err
	}
	if !actor.CanManage(c.InstructorID) {
		return Course{}, ErrForbidden
	}
	return c, nil
}

func (svc *service) ReserveSeat(ctx context.Context, id string) error {
	ok, err := svc.repos.Courses.ReserveSeat(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(err, "reserving seat")
	}
	if !ok {
		return ErrCourseFull
	}
	return nil
}

func (svc *service) ReleaseSeat(ctx context.Context, id string) error {
	return svc.repos.Courses.ReleaseSeat(ctx, id)
}

func (svc *service) CountByStatus(ctx context.Context) (map[string]int64, error) {
	return svc.repos.Courses.CountByStatus(ctx)
}

// uniqueSlug returns base, or base suffixed with -2, -3... when taken.
func (svc *service) uniqueSlug(ctx context.Context, base, excludedID string) (string, error) {
	if base == "" {
		base = "course"
	}
	slug := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		exists, err := svc.repos.Courses.SlugExists(ctx, slug, excludedID)
		if err != nil {
			return "", pkgerrors.Wrap(err, "checking slug")
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
	return "", ErrSlugExists
}

// Modules

func (svc *service) ListModules(ctx context.Context, courseID string) ([]Module, error) {
	return svc.repos.Modules.ListModules(ctx, courseID)
}

func (svc *service) GetModule(ctx context.Context, id string) (Module, error) {
	return svc.repos.Modules.GetModule(ctx, id)
}

func (svc *service) CreateModule(ctx context.Context, actor user.User, nm NewModule) (Module, error) {
	if _, err := svc.Authorize(ctx, actor, nm.CourseID); err != nil {
		return Module{}, err
	}

	order := 0
	if nm.ModuleOrder != nil {
		order = *nm.ModuleOrder
	} else {
		next, err := svc.repos.Modules.NextModuleOrder(ctx, nm.CourseID)
		if err != nil {
			return Module{}, pkgerrors.Wrap(err, "computing module order")
		}
		order = next
	}

	now := time.Now().UTC()
	return svc.repos.Modules.CreateModule(ctx, Module{
		CourseID:    nm.CourseID,
		Title:       nm.Title,
		Description: nm.Description,
		ModuleOrder: order,
		Status:      nm.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *service) UpdateModule(ctx context.Context, actor user.User, id string, um UpdateModule) (Module, error) {
	m, err := svc.authorizeModule(ctx, actor, id)
	if err != nil {
		return Module{}, err
	}
	um.apply(&m)
	m.UpdatedAt = time.Now().UTC()
	return svc.repos.Modules.UpdateModule(ctx, m)
}

func (svc *service) DeleteModule(ctx context.Context, actor user.User, id string) error {
	if _, err := svc.authorizeModule(ctx, actor, id); err != nil {
		return err
	}
	return svc.repos.Modules.DeleteModule(ctx, id)
}

func (svc *service) authorizeModule(ctx context.Context, actor user.User, id string) (Module, error) {
	m, err := svc.repos.Modules.GetModule(ctx, id)
	if err != nil {
		return Module{}, err
	}
	if _, err := svc.Authorize(ctx, actor, m.CourseID); err != nil {
		return Module{}, err
	}
	return m, nil
}

// Lessons

func (svc *service) ListLessons(ctx context.Context, filter LessonFilter) ([]Lesson, error) {
	return svc.repos.Lessons.ListLessons(ctx, filter)
}

func (svc *service) CountLessons(ctx context.Context, filter LessonFilter) (int64, error) {
	return svc.repos.Lessons.CountLessons(ctx, filter)
}

func (svc *service) GetLesson(ctx context.Context, id string) (Lesson, error) {
	return svc.repos.Lessons.GetLesson(ctx, id)
}

func (svc *service) CreateLesson(ctx context.Context, actor user.User, nl NewLesson) (Lesson, error) {
	m, err := svc.authorizeModule(ctx, actor, nl.ModuleID)
	if err != nil {
		return Lesson{}, err
	}

	order := 0
	if nl.LessonOrder != nil {
		order = *nl.LessonOrder
	} else {
		next, err := svc.repos.Lessons.NextLessonOrder(ctx, m.ID)
		if err != nil {
			return Lesson{}, pkgerrors.Wrap(err, "computing lesson order")
		}
		order = next
	}

	now := time.Now().UTC()
	return svc.repos.Lessons.CreateLesson(ctx, Lesson{
		ModuleID:        m.ID,
		CourseID:        m.CourseID,
		Title:           nl.Title,
		Content:         nl.Content,
		VideoURL:        nl.VideoURL,
		DurationMinutes: nl.DurationMinutes,
		LessonOrder:     order,
		LessonType:      nl.LessonType,
		Status:          nl.Status,
		IsFreePreview:   nl.IsFreePreview,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
}

func (svc *service) UpdateLesson(ctx context.Context, actor user.User, id string, ul UpdateLesson) (Lesson, error) {
	l, err := svc.authorizeLesson(ctx, actor, id)
	if err != nil {
		return Lesson{}, err
	}
	ul.apply(&l)
	l.UpdatedAt = time.Now().UTC()
	return svc.repos.Lessons.UpdateLesson(ctx, l)
}

func (svc *service) DeleteLesson(ctx context.Context, actor user.User, id string) error {
	if _, err := svc.authorizeLesson(ctx, actor, id); err != nil {
		return err
	}
	return svc.repos.Lessons.DeleteLesson(ctx, id)
}

func (svc *service) authorizeLesson(ctx context.Context, actor user.User, id string) (Lesson, error) {
	l, err := svc.repos.Lessons.GetLesson(ctx, id)
	if err != nil {
		return Lesson{}, err
	}
	if _, err := svc.Authorize(ctx, actor, l.CourseID); err != nil {
		return Lesson{}, err
	}
	return l, nil
}

// Quizzes

func (svc *service) ListQuizzes(ctx context.Context, lessonID string) ([]Quiz, error) {
	return svc.repos.Quizzes.ListQuizzes(ctx, lessonID)
}

func (svc *service) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	return svc.repos.Quizzes.GetQuiz(ctx, id)
}

func (svc *service) CreateQuiz(ctx context.Context, actor user.User, nq NewQuiz) (Quiz, error) {
	l, err := svc.authorizeLesson(ctx, actor, nq.LessonID)
	if err != nil {
		return Quiz{}, err
	}
	now := time.Now().UTC()
	return svc.repos.Quizzes.CreateQuiz(ctx, Quiz{
		LessonID:          l.ID,
		CourseID:          l.CourseID,
		Question:          nq.Question,
		Answers:           nq.Answers,
		CorrectAnswer:     *nq.CorrectAnswer,
		Explanation:       nq.Explanation,
		PassingPercentage: nq.PassingPercentage,
		MaxAttempts:       nq.MaxAttempts,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
}

func (svc *service) UpdateQuiz(ctx context.Context, actor user.User, id string, uq UpdateQuiz) (Quiz, error) {
	q, err := svc.authorizeQuiz(ctx, actor, id)
	if err != nil {
		return Quiz{}, err
	}
	uq.apply(&q)
	q.UpdatedAt = time.Now().UTC()
	return svc.repos.Quizzes.UpdateQuiz(ctx, q)
}

func (svc *service) DeleteQuiz(ctx context.Context, actor user.User, id string) error {
	if _, err := svc.authorizeQuiz(ctx, actor, id); err != nil {
		return err
	}
	return svc.repos.Quizzes.DeleteQuiz(ctx, id)
}

func (svc *service) authorizeQuiz(ctx context.Context, actor user.User, id string) (Quiz, error) {
	q, err := svc.repos.Quizzes.GetQuiz(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	if _, err := svc.Authorize(ctx, actor, q.CourseID); err != nil {
		return Quiz{}, err
	}
	return q, nil
}

// Assignments

func (svc *service) ListAssignments(ctx context.Context, filter AssignmentFilter) ([]Assignment, error) {
	return svc.repos.Assignments.ListAssignments(ctx, filter)
}

func (svc *service) GetAssignment(ctx context.Context, id string) (Assignment, error) {
	return svc.repos.Assignments.GetAssignment(ctx, id)
}

func (svc *service) CreateAssignment(ctx context.Context, actor user.User, na NewAssignment) (Assignment, error) {
	if _, err := svc.Authorize(ctx, actor, na.CourseID); err != nil {
		return Assignment{}, err
	}
	if na.LessonID != nil {
		l, err := svc.repos.Lessons.GetLesson(ctx, *na.LessonID)
		if err != nil {
			return Assignment{}, err
		}
		if l.CourseID != na.CourseID {
			return Assignment{}, core.NewFieldError("lesson_id", "lesson does not belong to this course")
		}
		if na.ModuleID == nil {
			na.ModuleID = &l.ModuleID
		}
	}
	if na.ModuleID != nil {
		m, err := svc.repos.Modules.GetModule(ctx, *na.ModuleID)
		if err != nil {
			return Assignment{}, err
		}
		if m.CourseID != na.CourseID {
			return Assignment{}, core.NewFieldError("module_id", "module does not belong to this course")
		}
	}

	pct := svc.defaultAssignmentPct
	if na.PassingPercentage != nil {
		pct = *na.PassingPercentage
	}
	var due *time.Time
	if na.DueDate != nil {
		d := na.DueDate.UTC()
		due = &d
	}

	now := time.Now().UTC()
	return svc.repos.Assignments.CreateAssignment(ctx, Assignment{
		CourseID:            na.CourseID,
		ModuleID:            na.ModuleID,
		LessonID:            na.LessonID,
		Title:               na.Title,
		Instructions:        na.Instructions,
		MaxScore:            na.MaxScore,
		PassingPercentage:   pct,
		DueDate:             due,
		AllowLateSubmission: na.AllowLateSubmission,
		Status:              na.Status,
		CreatedAt:           now,
		UpdatedAt:           now,
	})
}

func (svc *service) UpdateAssignment(ctx context.Context, actor user.User, id string, ua UpdateAssignment) (Assignment, error) {
	a, err := svc.authorizeAssignment(ctx, actor, id)
	if err != nil {
		return Assignment{}, err
	}
	ua.apply(&a)
	a.UpdatedAt = time.Now().UTC()
	return svc.repos.Assignments.UpdateAssignment(ctx, a)
}

func (svc *service) DeleteAssignment(ctx context.Context, actor user.User, id string) error {
	if _, err := svc.authorizeAssignment(ctx, actor, id); err != nil {
		return err
	}
	return svc.repos.Assignments.DeleteAssignment(ctx, id)
}

func (svc *service) authorizeAssignment(ctx context.Context, actor user.User, id string) (Assignment, error) {
	a, err := svc.repos.Assignments.GetAssignment(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if _, err := svc.Authorize(ctx, actor, a.CourseID); err != nil {
		return Assignment{}, err
	}
	return a, nil
}
