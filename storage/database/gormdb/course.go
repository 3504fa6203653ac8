package gormrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/course"
)

// NewCourseRepositories returns the gorm storage of every course content entity.
func NewCourseRepositories(db *gorm.DB) course.Repositories {
	return course.Repositories{
		Courses:     &courseRepository{db: db},
		Modules:     &moduleRepository{db: db},
		Lessons:     &lessonRepository{db: db},
		Quizzes:     &quizRepository{db: db},
		Assignments: &assignmentRepository{db: db},
	}
}

// Courses

type courseRepository struct {
	db *gorm.DB
}

var _ course.CourseRepository = (*courseRepository)(nil) // interface compliance check

func (repo courseRepository) boil(c course.Course) *courseRow {
	return &courseRow{
		ID:               c.ID,
		Title:            c.Title,
		Slug:             c.Slug,
		ShortDescription: c.ShortDescription,
		Description:      c.Description,
		ThumbnailURL:     c.ThumbnailURL,
		Price:            c.Price,
		IsFree:           c.IsFree,
		Currency:         c.Currency,
		Status:           c.Status,
		Level:            c.Level,
		Language:         c.Language,
		MaxStudents:      c.MaxStudents,
		CurrentStudents:  c.CurrentStudents,
		InstructorID:     c.InstructorID,
		PublishedAt:      c.PublishedAt,
		CreatedAt:        c.CreatedAt.UTC(),
		UpdatedAt:        c.UpdatedAt.UTC(),
	}
}

func (repo courseRepository) unboil(r *courseRow) course.Course {
	return course.Course{
		ID:               r.ID,
		Title:            r.Title,
		Slug:             r.Slug,
		ShortDescription: r.ShortDescription,
		Description:      r.Description,
		ThumbnailURL:     r.ThumbnailURL,
		Price:            r.Price,
		IsFree:           r.IsFree,
		Currency:         r.Currency,
		Status:           r.Status,
		Level:            r.Level,
		Language:         r.Language,
		MaxStudents:      r.MaxStudents,
		CurrentStudents:  r.CurrentStudents,
		InstructorID:     r.InstructorID,
		PublishedAt:      r.PublishedAt,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	c.ID = newID()
	r := repo.boil(c)
	if err := conn(ctx, repo.db).Create(r).Error; err != nil {
		if isUniqueViolation(err) {
			return course.Course{}, course.ErrSlugExists
		}
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return repo.unboil(r), nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]course.Course, int64, error) {
	q := conn(ctx, repo.db).Model(&courseRow{})

	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			q = q.Where("LOWER(title) LIKE LOWER(?) OR LOWER(short_description) LIKE LOWER(?)", val, val)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.Level != "" {
			q = q.Where("level = ?", filter.Level)
		}
		if filter.InstructorID != "" {
			q = q.Where("instructor_id = ?", filter.InstructorID)
		}
		if filter.IsFree != nil {
			q = q.Where("is_free = ?", *filter.IsFree)
		}
	}

	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "counting courses")
	}

	var rows []courseRow
	err := q.Order(orderClause(ordering, "created_at DESC")).
		Offset(page.Offset()).Limit(page.Limit()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for i := range rows {
		courses = append(courses, repo.unboil(&rows[i]))
	}
	return courses, total, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, filter course.GetFilter) (course.Course, error) {
	q := conn(ctx, repo.db)
	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return course.Course{}, course.ErrNotFound
		}
		q = q.Where("id = ?", filter.ID)
	case filter.Slug != "":
		q = q.Where("slug = ?", filter.Slug)
	default:
		return course.Course{}, course.ErrNotFound
	}

	var r courseRow
	if err := q.First(&r).Error; err != nil {
		if isNotFound(err) {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "finding course")
	}
	return repo.unboil(&r), nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	r := repo.boil(c)
	if err := conn(ctx, repo.db).Save(r).Error; err != nil {
		if isUniqueViolation(err) {
			return course.Course{}, course.ErrSlugExists
		}
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	return repo.unboil(r), nil
}

// DeleteCourse removes the course with all its content.
func (repo courseRepository) DeleteCourse(ctx context.Context, id string) error {
	if !validID(id) {
		return course.ErrNotFound
	}
	return conn(ctx, repo.db).Transaction(func(tx *gorm.DB) error {
		lessons := tx.Model(&lessonRow{}).Select("id").Where("course_id = ?", id)
		if err := tx.Where("lesson_id IN (?)", lessons).Delete(&quizRow{}).Error; err != nil {
			return errors.Wrap(err, "deleting course quizzes")
		}
		for _, model := range []interface{}{&assignmentRow{}, &lessonRow{}, &moduleRow{}} {
			if err := tx.Where("course_id = ?", id).Delete(model).Error; err != nil {
				return errors.Wrap(err, "deleting course content")
			}
		}
		res := tx.Where("id = ?", id).Delete(&courseRow{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "deleting course")
		}
		if res.RowsAffected == 0 {
			return course.ErrNotFound
		}
		return nil
	})
}

func (repo courseRepository) SlugExists(ctx context.Context, slug, excludedID string) (bool, error) {
	q := conn(ctx, repo.db).Model(&courseRow{}).Where("slug = ?", slug)
	if excludedID != "" {
		q = q.Where("id <> ?", excludedID)
	}
	var cnt int64
	if err := q.Count(&cnt).Error; err != nil {
		return false, errors.Wrap(err, "checking course slug")
	}
	return cnt > 0, nil
}

func (repo courseRepository) ReserveSeat(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, course.ErrNotFound
	}
	res := conn(ctx, repo.db).Model(&courseRow{}).
		Where("id = ? AND (max_students IS NULL OR current_students < max_students)", id).
		UpdateColumn("current_students", gorm.Expr("current_students + 1"))
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "reserving course seat")
	}
	return res.RowsAffected > 0, nil
}

func (repo courseRepository) ReleaseSeat(ctx context.Context, id string) error {
	if !validID(id) {
		return course.ErrNotFound
	}
	err := conn(ctx, repo.db).Model(&courseRow{}).
		Where("id = ? AND current_students > 0", id).
		UpdateColumn("current_students", gorm.Expr("current_students - 1")).Error
	return errors.Wrap(err, "releasing course seat")
}

func (repo courseRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	counts, err := countBy(conn(ctx, repo.db), &courseRow{}, "status")
	if err != nil {
		return nil, errors.Wrap(err, "counting courses by status")
	}
	return counts, nil
}

// Modules

type moduleRepository struct {
	db *gorm.DB
}

var _ course.ModuleRepository = (*moduleRepository)(nil) // interface compliance check

// moduleCounts is a module row with its content counts.
type moduleCounts struct {
	ModuleRow       moduleRow `gorm:"embedded"`
	LessonCount     int
	QuizCount       int
	AssignmentCount int
}

const moduleCountColumns = `course_modules.*,
	(SELECT COUNT(*) FROM lessons WHERE lessons.module_id = course_modules.id) AS lesson_count,
	(SELECT COUNT(*) FROM quizzes JOIN lessons ON lessons.id = quizzes.lesson_id WHERE lessons.module_id = course_modules.id) AS quiz_count,
	(SELECT COUNT(*) FROM assignments WHERE assignments.module_id = course_modules.id) AS assignment_count`

func (repo moduleRepository) boil(m course.Module) *moduleRow {
	return &moduleRow{
		ID:          m.ID,
		CourseID:    m.CourseID,
		Title:       m.Title,
		Description: m.Description,
		ModuleOrder: m.ModuleOrder,
		Status:      m.Status,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

func (repo moduleRepository) unboil(r *moduleRow) course.Module {
	return course.Module{
		ID:          r.ID,
		CourseID:    r.CourseID,
		Title:       r.Title,
		Description: r.Description,
		ModuleOrder: r.ModuleOrder,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (repo moduleRepository) unboilCounts(r *moduleCounts) course.Module {
	m := repo.unboil(&r.ModuleRow)
	m.LessonCount = r.LessonCount
	m.QuizCount = r.QuizCount
	m.AssignmentCount = r.AssignmentCount
	return m
}

func (repo moduleRepository) CreateModule(ctx context.Context, m course.Module) (course.Module, error) {
	m.ID = newID()
	r := repo.boil(m)
	if err := conn(ctx, repo.db).Create(r).Error; err != nil {
		return course.Module{}, errors.Wrap(err, "inserting module")
	}
	return repo.unboil(r), nil
}

func (repo moduleRepository) GetModule(ctx context.Context, id string) (course.Module, error) {
	if !validID(id) {
		return course.Module{}, course.ErrModuleNotFound
	}
	var r moduleCounts
	err := conn(ctx, repo.db).Table("course_modules").Select(moduleCountColumns).
		Where("course_modules.id = ?", id).Take(&r).Error
	if err != nil {
		if isNotFound(err) {
			return course.Module{}, course.ErrModuleNotFound
		}
		return course.Module{}, errors.Wrap(err, "finding module")
	}
	return repo.unboilCounts(&r), nil
}

func (repo moduleRepository) ListModules(ctx context.Context, courseID string) ([]course.Module, error) {
	if !validID(courseID) {
		return []course.Module{}, nil
	}
	var rows []moduleCounts
	err := conn(ctx, repo.db).Table("course_modules").Select(moduleCountColumns).
		Where("course_modules.course_id = ?", courseID).
		Order("course_modules.module_order ASC, course_modules.created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "listing modules")
	}
	modules := make([]course.Module, 0, len(rows))
	for i := range rows {
		modules = append(modules, repo.unboilCounts(&rows[i]))
	}
	return modules, nil
}

func (repo moduleRepository) UpdateModule(ctx context.Context, m course.Module) (course.Module, error) {
	r := repo.boil(m)
	if err := conn(ctx, repo.db).Save(r).Error; err != nil {
		return course.Module{}, errors.Wrap(err, "updating module")
	}
	updated := repo.unboil(r)
	updated.LessonCount, updated.QuizCount, updated.AssignmentCount = m.LessonCount, m.QuizCount, m.AssignmentCount
	return updated, nil
}

// DeleteModule removes the module with its lessons, their quizzes and the module assignments.
func (repo moduleRepository) DeleteModule(ctx context.Context, id string) error {
	if !validID(id) {
		return course.ErrModuleNotFound
	}
	return conn(ctx, repo.db).Transaction(func(tx *gorm.DB) error {
		lessons := tx.Model(&lessonRow{}).Select("id").Where("module_id = ?", id)
		if err := tx.Where("lesson_id IN (?)", lessons).Delete(&quizRow{}).Error; err != nil {
			return errors.Wrap(err, "deleting module quizzes")
		}
		for _, model := range []interface{}{&assignmentRow{}, &lessonRow{}} {
			if err := tx.Where("module_id = ?", id).Delete(model).Error; err != nil {
				return errors.Wrap(err, "deleting module content")
			}
		}
		res := tx.Where("id = ?", id).Delete(&moduleRow{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "deleting module")
		}
		if res.RowsAffected == 0 {
			return course.ErrModuleNotFound
		}
		return nil
	})
}

func (repo moduleRepository) NextModuleOrder(ctx context.Context, courseID string) (int, error) {
	var next int
	err := conn(ctx, repo.db).Model(&moduleRow{}).
		Select("COALESCE(MAX(module_order), 0) + 1").
		Where("course_id = ?", courseID).
		Scan(&next).Error
	return next, errors.Wrap(err, "computing next module order")
}

// Lessons

type lessonRepository struct {
	db *gorm.DB
}

var _ course.LessonRepository = (*lessonRepository)(nil) // interface compliance check

func (repo lessonRepository) boil(l course.Lesson) *lessonRow {
	return &lessonRow{
		ID:              l.ID,
		ModuleID:        l.ModuleID,
		CourseID:        l.CourseID,
		Title:           l.Title,
		Content:         l.Content,
		VideoURL:        l.VideoURL,
		DurationMinutes: l.DurationMinutes,
		LessonOrder:     l.LessonOrder,
		LessonType:      l.LessonType,
		Status:          l.Status,
		IsFreePreview:   l.IsFreePreview,
		CreatedAt:       l.CreatedAt.UTC(),
		UpdatedAt:       l.UpdatedAt.UTC(),
	}
}

func (repo lessonRepository) unboil(r *lessonRow) course.Lesson {
	return course.Lesson{
		ID:              r.ID,
		ModuleID:        r.ModuleID,
		CourseID:        r.CourseID,
		Title:           r.Title,
		Content:         r.Content,
		VideoURL:        r.VideoURL,
		DurationMinutes: r.DurationMinutes,
		LessonOrder:     r.LessonOrder,
		LessonType:      r.LessonType,
		Status:          r.Status,
		IsFreePreview:   r.IsFreePreview,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func (repo lessonRepository) filtered(ctx context.Context, filter course.LessonFilter) *gorm.DB {
	q := conn(ctx, repo.db).Model(&lessonRow{})
	if filter.CourseID != "" {
		q = q.Where("lessons.course_id = ?", filter.CourseID)
	}
	if filter.ModuleID != "" {
		q = q.Where("lessons.module_id = ?", filter.ModuleID)
	}
	if filter.PublishedOnly {
		q = q.Where("lessons.status = ?", course.ContentPublished)
	}
	return q
}

func (repo lessonRepository) CreateLesson(ctx context.Context, l course.Lesson) (course.Lesson, error) {
	l.ID = newID()
	r := repo.boil(l)
	if err := conn(ctx, repo.db).Create(r).Error; err != nil {
		return course.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return repo.unboil(r), nil
}

func (repo lessonRepository) GetLesson(ctx context.Context, id string) (course.Lesson, error) {
	if !validID(id) {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	var r lessonRow
	if err := conn(ctx, repo.db).Where("id = ?", id).First(&r).Error; err != nil {
		if isNotFound(err) {
			return course.Lesson{}, course.ErrLessonNotFound
		}
		return course.Lesson{}, errors.Wrap(err, "finding lesson")
	}
	return repo.unboil(&r), nil
}

func (repo lessonRepository) ListLessons(ctx context.Context, filter course.LessonFilter) ([]course.Lesson, error) {
	var rows []lessonRow
	// lessons of a course follow the module order first
	err := repo.filtered(ctx, filter).
		Joins("JOIN course_modules ON course_modules.id = lessons.module_id").
		Select("lessons.*").
		Order("course_modules.module_order ASC, lessons.lesson_order ASC, lessons.created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "listing lessons")
	}
	lessons := make([]course.Lesson, 0, len(rows))
	for i := range rows {
		lessons = append(lessons, repo.unboil(&rows[i]))
	}
	return lessons, nil
}

func (repo lessonRepository) CountLessons(ctx context.Context, filter course.LessonFilter) (int64, error) {
	var cnt int64
	err := repo.filtered(ctx, filter).Count(&cnt).Error
	return cnt, errors.Wrap(err, "counting lessons")
}

func (repo lessonRepository) UpdateLesson(ctx context.Context, l course.Lesson) (course.Lesson, error) {
	r := repo.boil(l)
	if err := conn(ctx, repo.db).Save(r).Error; err != nil {
		return course.Lesson{}, errors.Wrap(err, "updating lesson")
	}
	return repo.unboil(r), nil
}

func (repo lessonRepository) DeleteLesson(ctx context.Context, id string) error {
	if !validID(id) {
		return course.ErrLessonNotFound
	}
	return conn(ctx, repo.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lesson_id = ?", id).Delete(&quizRow{}).Error; err != nil {
			return errors.Wrap(err, "deleting lesson quizzes")
		}
		res := tx.Where("id = ?", id).Delete(&lessonRow{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "deleting lesson")
		}
		if res.RowsAffected == 0 {
			return course.ErrLessonNotFound
		}
		return nil
	})
}

func (repo lessonRepository) NextLessonOrder(ctx context.Context, moduleID string) (int, error) {
	var next int
	err := conn(ctx, repo.db).Model(&lessonRow{}).
		Select("COALESCE(MAX(lesson_order), 0) + 1").
		Where("module_id = ?", moduleID).
		Scan(&next).Error
	return next, errors.Wrap(err, "computing next lesson order")
}

// Quizzes

type quizRepository struct {
	db *gorm.DB
}

var _ course.QuizRepository = (*quizRepository)(nil) // interface compliance check

func (repo quizRepository) boil(q course.Quiz) *quizRow {
	return &quizRow{
		ID:                q.ID,
		LessonID:          q.LessonID,
		CourseID:          q.CourseID,
		Question:          q.Question,
		Answers:           q.Answers,
		CorrectAnswer:     q.CorrectAnswer,
		Explanation:       q.Explanation,
		PassingPercentage: q.PassingPercentage,
		MaxAttempts:       q.MaxAttempts,
		CreatedAt:         q.CreatedAt.UTC(),
		UpdatedAt:         q.UpdatedAt.UTC(),
	}
}

func (repo quizRepository) unboil(r *quizRow) course.Quiz {
	answers := []string(r.Answers)
	if answers == nil {
		answers = []string{}
	}
	return course.Quiz{
		ID:                r.ID,
		LessonID:          r.LessonID,
		CourseID:          r.CourseID,
		Question:          r.Question,
		Answers:           answers,
		CorrectAnswer:     r.CorrectAnswer,
		Explanation:       r.Explanation,
		PassingPercentage: r.PassingPercentage,
		MaxAttempts:       r.MaxAttempts,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func (repo quizRepository) CreateQuiz(ctx context.Context, q course.Quiz) (course.Quiz, error) {
	q.ID = newID()
	r := repo.boil(q)
	if err := conn(ctx, repo.db).Create(r).Error; err != nil {
		return course.Quiz{}, errors.Wrap(err, "inserting quiz")
	}
	return repo.unboil(r), nil
}

func (repo quizRepository) GetQuiz(ctx context.Context, id string) (course.Quiz, error) {
	if !validID(id) {
		return course.Quiz{}, course.ErrQuizNotFound
	}
	var r quizRow
	if err := conn(ctx, repo.db).Where("id = ?", id).First(&r).Error; err != nil {
		if isNotFound(err) {
			return course.Quiz{}, course.ErrQuizNotFound
		}
		return course.Quiz{}, errors.Wrap(err, "finding quiz")
	}
	return repo.unboil(&r), nil
}

func (repo quizRepository) ListQuizzes(ctx context.Context, lessonID string) ([]course.Quiz, error) {
	if !validID(lessonID) {
		return []course.Quiz{}, nil
	}
	var rows []quizRow
	if err := conn(ctx, repo.db).Where("lesson_id = ?", lessonID).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "listing quizzes")
	}
	quizzes := make([]course.Quiz, 0, len(rows))
	for i := range rows {
		quizzes = append(quizzes, repo.unboil(&rows[i]))
	}
	return quizzes, nil
}

func (repo quizRepository) UpdateQuiz(ctx context.Context, q course.Quiz) (course.Quiz, error) {
	r := repo.boil(q)
	if err := conn(ctx, repo.db).Save(r).Error; err != nil {
		return course.Quiz{}, errors.Wrap(err, "updating quiz")
	}
	return repo.unboil(r), nil
}

func (repo quizRepository) DeleteQuiz(ctx context.Context, id string) error {
	if !validID(id) {
		return course.ErrQuizNotFound
	}
	res := conn(ctx, repo.db).Where("id = ?", id).Delete(&quizRow{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "deleting quiz")
	}
	if res.RowsAffected == 0 {
		return course.ErrQuizNotFound
	}
	return nil
}

// Assignments

type assignmentRepository struct {
	db *gorm.DB
}

var _ course.AssignmentRepository = (*assignmentRepository)(nil) // interface compliance check

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func (repo assignmentRepository) boil(a course.Assignment) *assignmentRow {
	return &assignmentRow{
		ID:                  a.ID,
		CourseID:            a.CourseID,
		ModuleID:            a.ModuleID,
		LessonID:            a.LessonID,
		Title:               a.Title,
		Instructions:        a.Instructions,
		MaxScore:            a.MaxScore,
		PassingPercentage:   a.PassingPercentage,
		DueDate:             utcPtr(a.DueDate),
		AllowLateSubmission: a.AllowLateSubmission,
		Status:              a.Status,
		CreatedAt:           a.CreatedAt.UTC(),
		UpdatedAt:           a.UpdatedAt.UTC(),
	}
}

func (repo assignmentRepository) unboil(r *assignmentRow) course.Assignment {
	return course.Assignment{
		ID:                  r.ID,
		CourseID:            r.CourseID,
		ModuleID:            r.ModuleID,
		LessonID:            r.LessonID,
		Title:               r.Title,
		Instructions:        r.Instructions,
		MaxScore:            r.MaxScore,
		PassingPercentage:   r.PassingPercentage,
		DueDate:             r.DueDate,
		AllowLateSubmission: r.AllowLateSubmission,
		Status:              r.Status,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

func (repo assignmentRepository) CreateAssignment(ctx context.Context, a course.Assignment) (course.Assignment, error) {
	a.ID = newID()
	r := repo.boil(a)
	if err := conn(ctx, repo.db).Create(r).Error; err != nil {
		return course.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return repo.unboil(r), nil
}

func (repo assignmentRepository) GetAssignment(ctx context.Context, id string) (course.Assignment, error) {
	if !validID(id) {
		return course.Assignment{}, course.ErrAssignmentNotFound
	}
	var r assignmentRow
	if err := conn(ctx, repo.db).Where("id = ?", id).First(&r).Error; err != nil {
		if isNotFound(err) {
			return course.Assignment{}, course.ErrAssignmentNotFound
		}
		return course.Assignment{}, errors.Wrap(err, "finding assignment")
	}
	return repo.unboil(&r), nil
}

func (repo assignmentRepository) ListAssignments(ctx context.Context, filter course.AssignmentFilter) ([]course.Assignment, error) {
	q := conn(ctx, repo.db).Model(&assignmentRow{})
	if filter.CourseID != "" {
		q = q.Where("course_id = ?", filter.CourseID)
	}
	if filter.ModuleID != "" {
		q = q.Where("module_id = ?", filter.ModuleID)
	}
	if filter.LessonID != "" {
		q = q.Where("lesson_id = ?", filter.LessonID)
	}

	var rows []assignmentRow
	if err := q.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "listing assignments")
	}
	assignments := make([]course.Assignment, 0, len(rows))
	for i := range rows {
		assignments = append(assignments, repo.unboil(&rows[i]))
	}
	return assignments, nil
}

func (repo assignmentRepository) UpdateAssignment(ctx context.Context, a course.Assignment) (course.Assignment, error) {
	r := repo.boil(a)
	if err := conn(ctx, repo.db).Save(r).Error; err != nil {
		return course.Assignment{}, errors.Wrap(err, "updating assignment")
	}
	return repo.unboil(r), nil
}

func (repo assignmentRepository) DeleteAssignment(ctx context.Context, id string) error {
	if !validID(id) {
		return course.ErrAssignmentNotFound
	}
	res := conn(ctx, repo.db).Where("id = ?", id).Delete(&assignmentRow{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "deleting assignment")
	}
	if res.RowsAffected == 0 {
		return course.ErrAssignmentNotFound
	}
	return nil
}
