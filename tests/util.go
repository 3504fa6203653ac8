package testutil

import (
	"context"
	"net/mail"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/blog"
	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/dashboard"
	"github.com/darasa-lms/darasa/core/enrollment"
	"github.com/darasa-lms/darasa/core/event"
	"github.com/darasa-lms/darasa/core/grading"
	"github.com/darasa-lms/darasa/core/progress"
	"github.com/darasa-lms/darasa/core/review"
	"github.com/darasa-lms/darasa/core/user"
	emailsvc "github.com/darasa-lms/darasa/services/email"
	eventsvc "github.com/darasa-lms/darasa/services/events"
	logsvc "github.com/darasa-lms/darasa/services/logger"
	paymentsvc "github.com/darasa-lms/darasa/services/payment"
	gormrepos "github.com/darasa-lms/darasa/storage/database/gormdb"
)

const (
	// DefaultPassword satisfies the password policy.
	DefaultPassword = "Th3-Qu1ck-Br0wn!"

	// GatewayServerKey signs the payment notifications accepted by the FakeGateway.
	GatewayServerKey = "test-server-key"
)

var (
	tmplOnce sync.Once

	validate   *validator.Validate
	translator ut.Translator
	validOnce  sync.Once
)

// NewConfig returns the configuration used by tests.
func NewConfig() *core.Config {
	return &core.Config{
		Env:              "TEST",
		Build:            "test",
		TestMode:         true,
		AppName:          "Darasa",
		SecretKey:        "test-secret-key",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: mail.Address{Name: "Darasa", Address: "noreply@test.cd"},
		WorkDir:          core.ProjectRoot(),

		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,

		Server: core.ServerConfig{
			DisableReqLogs:            true,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Database: core.DatabaseConfig{Engine: "sqlite"},
		Midtrans: core.MidtransConfig{ServerKey: GatewayServerKey},
		Upload: core.UploadConfig{
			PublicURL:     "/uploads",
			MaxSize:       1 << 20,
			AllowedTypes:  []string{"image/jpeg", "image/png", "application/pdf"},
			MaxImageWidth: 1280,
		},
		Grading: core.GradingConfig{
			QuizPassingPercentage:       70,
			AssignmentPassingPercentage: 70,
		},
	}
}

func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewZapLogger(logsvc.NewZap(conf, "test"))
}

// Validator returns the validator and translator with every package validator registered.
func Validator() (*validator.Validate, ut.Translator) {
	validOnce.Do(func() {
		validate = validator.New()
		translator = core.NewTranslator()
		core.InitValidators(validate, translator)
		user.InitValidators(validate, translator)
		course.InitValidators(validate, translator)
		enrollment.InitValidators(validate, translator)
		progress.InitValidators(validate, translator)
	})
	return validate, translator
}

// PrepareDB opens an isolated in-memory database migrated with the storage models.
func PrepareDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	// a single connection keeps the in-memory database alive and serializes transactions
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err = gormrepos.AutoMigrate(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

// FakeGateway records checkouts and accepts notifications signed with GatewayServerKey.
type FakeGateway struct {
	mu        sync.Mutex
	Checkouts []enrollment.Checkout
	Fail      error
}

var _ enrollment.PaymentGateway = (*FakeGateway)(nil)

func (gw *FakeGateway) CreateCheckout(_ context.Context, checkout enrollment.Checkout) (enrollment.CheckoutSession, error) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if gw.Fail != nil {
		return enrollment.CheckoutSession{}, gw.Fail
	}
	gw.Checkouts = append(gw.Checkouts, checkout)
	return enrollment.CheckoutSession{
		Token:       "snap-" + checkout.OrderID,
		RedirectURL: "https://app.sandbox.midtrans.com/snap/v2/vtweb/snap-" + checkout.OrderID,
	}, nil
}

func (gw *FakeGateway) VerifyNotification(n enrollment.PaymentNotification) error {
	if n.SignatureKey != paymentsvc.Signature(n.OrderID, n.StatusCode, n.GrossAmount, GatewayServerKey) {
		return enrollment.ErrInvalidNotification
	}
	return nil
}

// SignNotification fills the signature a FakeGateway accepts.
func SignNotification(n enrollment.PaymentNotification) enrollment.PaymentNotification {
	n.SignatureKey = paymentsvc.Signature(n.OrderID, n.StatusCode, n.GrossAmount, GatewayServerKey)
	return n
}

// Env holds a fully wired application over a fresh database.
type Env struct {
	Conf     *core.Config
	DB       *gorm.DB
	Logger   core.Logger
	Events   *eventsvc.MemoryPublisher
	Gateway  *FakeGateway
	Tx       core.Transactor
	Validate *validator.Validate

	UserRepo       user.Repository
	CourseRepos    course.Repositories
	EnrollmentRepo enrollment.Repository
	ProgressRepo   progress.Repository
	QuizSubRepo    grading.QuizSubmissionRepository
	SubmissionRepo grading.AssignmentSubmissionRepository
	ReviewRepo     review.Repository
	PostRepo       blog.Repository
	EventRepo      event.Repository

	UserSvc       user.Service
	CourseSvc     course.Service
	EnrollmentSvc enrollment.Service
	ProgressSvc   progress.Service
	GradingSvc    grading.Service
	ReviewSvc     review.Service
	BlogSvc       blog.Service
	EventSvc      event.Service
	DashboardSvc  dashboard.Service
}

func NewEnv(t *testing.T) *Env {
	t.Helper()
	conf := NewConfig()
	logger := NewLogger(conf)
	tmplOnce.Do(func() { core.ParseEmailTemplates(conf, logger) })
	vld, _ := Validator()
	db := PrepareDB(t)

	env := &Env{
		Conf:     conf,
		DB:       db,
		Logger:   logger,
		Events:   eventsvc.NewMemoryPublisher(),
		Gateway:  &FakeGateway{},
		Tx:       gormrepos.NewTransactor(db),
		Validate: vld,

		UserRepo:       gormrepos.NewUserRepository(db),
		CourseRepos:    gormrepos.NewCourseRepositories(db),
		EnrollmentRepo: gormrepos.NewEnrollmentRepository(db),
		ProgressRepo:   gormrepos.NewProgressRepository(db),
		QuizSubRepo:    gormrepos.NewQuizSubmissionRepository(db),
		SubmissionRepo: gormrepos.NewAssignmentSubmissionRepository(db),
		ReviewRepo:     gormrepos.NewReviewRepository(db),
		PostRepo:       gormrepos.NewPostRepository(db),
		EventRepo:      gormrepos.NewEventRepository(db),
	}

	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	env.UserSvc = user.NewService(env.UserRepo, mailSvc, conf, logger)
	env.CourseSvc = course.NewService(env.CourseRepos, conf, logger)
	env.EnrollmentSvc = enrollment.NewService(
		env.EnrollmentRepo, env.Tx, env.CourseSvc, env.UserSvc, env.Gateway, mailSvc, env.Events, logger,
	)
	env.ProgressSvc = progress.NewService(env.ProgressRepo, env.Tx, env.CourseSvc, env.EnrollmentSvc, logger)
	env.GradingSvc = grading.NewService(
		env.QuizSubRepo, env.SubmissionRepo, env.Tx, env.CourseSvc, env.EnrollmentSvc, env.ProgressSvc, env.Events, conf, logger,
	)
	env.ReviewSvc = review.NewService(env.ReviewRepo, env.EnrollmentSvc, env.Events, logger)
	env.BlogSvc = blog.NewService(env.PostRepo, logger)
	env.EventSvc = event.NewService(env.EventRepo, env.Tx, mailSvc, env.Events, logger)
	env.DashboardSvc = dashboard.NewService(env.UserSvc, env.CourseSvc, env.EnrollmentSvc, env.ReviewSvc)
	return env
}

// Factories

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	if role == "" {
		role = user.RoleUser
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateCourse stores c with defaults for the missing fields: a published free course.
func CreateCourse(t *testing.T, repos course.Repositories, instructorID string, c course.Course) course.Course {
	t.Helper()
	now := time.Now().UTC()
	if c.Title == "" {
		c.Title = "Course " + uuid.NewString()[:8]
	}
	if c.Slug == "" {
		c.Slug = core.Slugify(c.Title)
	}
	if c.Status == "" {
		c.Status = course.StatusPublished
	}
	if c.Level == "" {
		c.Level = course.LevelAll
	}
	if c.Currency == "" {
		c.Currency = course.DefaultCurrency
	}
	c.IsFree = c.Price == 0
	c.InstructorID = instructorID
	if c.IsPublished() && c.PublishedAt == nil {
		c.PublishedAt = &now
	}
	c.CreatedAt, c.UpdatedAt = now, now

	c, err := repos.Courses.CreateCourse(context.Background(), c)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}

func CreateModule(t *testing.T, repos course.Repositories, courseID string, order int) course.Module {
	t.Helper()
	now := time.Now().UTC()
	m, err := repos.Modules.CreateModule(context.Background(), course.Module{
		CourseID:    courseID,
		Title:       "Module " + uuid.NewString()[:8],
		ModuleOrder: order,
		Status:      course.ContentPublished,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateModule() failed: %v", err)
	}
	return m
}

func CreateLesson(t *testing.T, repos course.Repositories, m course.Module, order int, status ...string) course.Lesson {
	t.Helper()
	st := course.ContentPublished
	if len(status) > 0 {
		st = status[0]
	}
	now := time.Now().UTC()
	l, err := repos.Lessons.CreateLesson(context.Background(), course.Lesson{
		ModuleID:    m.ID,
		CourseID:    m.CourseID,
		Title:       "Lesson " + uuid.NewString()[:8],
		LessonOrder: order,
		LessonType:  course.LessonText,
		Status:      st,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateLesson() failed: %v", err)
	}
	return l
}

// CreateQuiz stores a 4 answers quiz whose correct answer is the first one.
func CreateQuiz(t *testing.T, repos course.Repositories, l course.Lesson, maxAttempts *int) course.Quiz {
	t.Helper()
	now := time.Now().UTC()
	q, err := repos.Quizzes.CreateQuiz(context.Background(), course.Quiz{
		LessonID:      l.ID,
		CourseID:      l.CourseID,
		Question:      "What does `go vet` do?",
		Answers:       []string{"reports suspicious constructs", "formats code", "runs tests", "builds binaries"},
		CorrectAnswer: 0,
		MaxAttempts:   maxAttempts,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		t.Fatalf("CreateQuiz() failed: %v", err)
	}
	return q
}

func CreateAssignment(t *testing.T, repos course.Repositories, courseID string, dueDate *time.Time, allowLate bool) course.Assignment {
	t.Helper()
	now := time.Now().UTC()
	a, err := repos.Assignments.CreateAssignment(context.Background(), course.Assignment{
		CourseID:            courseID,
		Title:               "Assignment " + uuid.NewString()[:8],
		Instructions:        "Write a worker pool.",
		MaxScore:            100,
		PassingPercentage:   70,
		DueDate:             dueDate,
		AllowLateSubmission: allowLate,
		Status:              course.ContentPublished,
		CreatedAt:           now,
		UpdatedAt:           now,
	})
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	return a
}

// CreateEnrollment stores an active enrollment without touching seats or roles.
func CreateEnrollment(t *testing.T, repo enrollment.Repository, courseID, userID string) enrollment.CourseEnrollment {
	t.Helper()
	now := time.Now().UTC()
	e, err := repo.CreateEnrollment(context.Background(), enrollment.CourseEnrollment{
		CourseID:      courseID,
		UserID:        userID,
		Status:        enrollment.StatusActive,
		EnrolledAt:    now,
		PaymentStatus: enrollment.PaymentFree,
		Currency:      course.DefaultCurrency,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		t.Fatalf("CreateEnrollment() failed: %v", err)
	}
	return e
}
