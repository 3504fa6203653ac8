package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	echoapi "github.com/darasa-lms/darasa/apps/api/echo"
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
	"github.com/darasa-lms/darasa/services/tokenstore"
	"github.com/darasa-lms/darasa/services/upload"
	"github.com/darasa-lms/darasa/storage/database"
	gormrepos "github.com/darasa-lms/darasa/storage/database/gormdb"
)

// TODO: APM/Tracing
func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(logsvc.NewZap(conf, "API"), conf)
	dbLogger := logsvc.NewRollbarLogger(logsvc.NewZap(conf, "DB"), conf)

	// set up DB
	sqlDB, db, err := setUpDB(conf, dbLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = sqlDB.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	ctx := context.Background()
	tokens, closeTokens := tokenstore.New(ctx, conf.Redis, logger)
	defer func() { _ = closeTokens() }()

	events := eventsvc.NewPublisher(conf, logger)
	if closer, ok := events.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	var gateway enrollment.PaymentGateway
	if conf.Midtrans.ServerKey != "" {
		gateway = paymentsvc.NewMidtransGateway(conf.Midtrans)
	} else {
		logger.Warn("no midtrans server key configured, paid enrollments stay pending")
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	tx := gormrepos.NewTransactor(db)
	userSvc := user.NewService(gormrepos.NewUserRepository(db), mailSvc, conf, logger)
	courseSvc := course.NewService(gormrepos.NewCourseRepositories(db), conf, logger)
	enrollSvc := enrollment.NewService(
		gormrepos.NewEnrollmentRepository(db), tx, courseSvc, userSvc, gateway, mailSvc, events, logger,
	)
	progressSvc := progress.NewService(gormrepos.NewProgressRepository(db), tx, courseSvc, enrollSvc, logger)
	gradingSvc := grading.NewService(
		gormrepos.NewQuizSubmissionRepository(db), gormrepos.NewAssignmentSubmissionRepository(db),
		tx, courseSvc, enrollSvc, progressSvc, events, conf, logger,
	)
	reviewSvc := review.NewService(gormrepos.NewReviewRepository(db), enrollSvc, events, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	enrollment.InitValidators(validate, translator)
	progress.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	user.LoadCommonPasswords(conf, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Validate:   validate,
			Translator: translator,
			Tokens:     tokens,

			UserSvc:       userSvc,
			CourseSvc:     courseSvc,
			EnrollmentSvc: enrollSvc,
			ProgressSvc:   progressSvc,
			GradingSvc:    gradingSvc,
			ReviewSvc:     reviewSvc,
			BlogSvc:       blog.NewService(gormrepos.NewPostRepository(db), logger),
			EventSvc:      event.NewService(gormrepos.NewEventRepository(db), tx, mailSvc, events, logger),
			DashboardSvc:  dashboard.NewService(userSvc, courseSvc, enrollSvc, reviewSvc),
			UploadSvc:     upload.NewService(conf.Upload, logger),
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(ctx, conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config, logger core.Logger) (*sql.DB, *gorm.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, nil, err
	}

	sqlDB, err := database.Open(conf)
	if err != nil {
		return nil, nil, err
	}

	if err = database.Migrate(sqlDB, "up"); err != nil {
		_ = sqlDB.Close()
		return nil, nil, err
	}

	db, err := database.OpenGorm(sqlDB, conf, logger)
	if err != nil {
		_ = sqlDB.Close()
		return nil, nil, err
	}
	return sqlDB, db, nil
}
