package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.uber.org/zap"

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
	"github.com/darasa-lms/darasa/services/tokenstore"
	"github.com/darasa-lms/darasa/services/upload"
)

type ServerDeps struct {
	Conf       *core.Config
	Logger     core.Logger
	AccessLog  *zap.Logger // request logs; nil disables them
	Validate   *validator.Validate
	Translator ut.Translator
	Tokens     tokenstore.Store

	UserSvc       user.Service
	CourseSvc     course.Service
	EnrollmentSvc enrollment.Service
	ProgressSvc   progress.Service
	GradingSvc    grading.Service
	ReviewSvc     review.Service
	BlogSvc       blog.Service
	EventSvc      event.Service
	DashboardSvc  dashboard.Service
	UploadSvc     upload.Service
}

type Server struct {
	deps     ServerDeps
	app      *echo.Echo
	auth     *authenticator
	server   *http.Server
	shutdown chan os.Signal
	errors   chan error
}

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	s.server = &http.Server{
		Addr:         deps.Conf.Server.Address,
		Handler:      s.app,
		ReadTimeout:  deps.Conf.Server.ReadTimeout,
		WriteTimeout: deps.Conf.Server.WriteTimeout,
	}
	s.auth = newAuthenticator(deps.Conf, deps.Tokens, deps.UserSvc)
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestID())
	if s.deps.AccessLog != nil && !conf.Server.DisableReqLogs {
		s.app.Use(requestLogger(s.deps.AccessLog))
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	if conf.Upload.Dir != "" && conf.Upload.PublicURL != "" {
		s.app.Static(conf.Upload.PublicURL, conf.Upload.Dir)
	}

	g := s.app.Group("/api")
	jwt := s.auth.middleware()
	optJWT := optionalAuth(jwt)
	admin := adminMiddleware(s.auth)

	registerUserAPI(g, jwt, admin, s.auth, s.deps)
	registerCourseAPI(g, jwt, optJWT, s.auth, s.deps)
	registerContentAPI(g, jwt, optJWT, s.auth, s.deps)
	registerEnrollmentAPI(g, jwt, s.auth, s.deps)
	registerGradingAPI(g, jwt, s.auth, s.deps)
	registerReviewAPI(g, jwt, admin, s.auth, s.deps)
	registerBlogAPI(g, jwt, optJWT, s.auth, s.deps)
	registerEventAPI(g, jwt, optJWT, s.auth, s.deps)
	registerUploadAPI(g, jwt, s.auth, s.deps)
	registerDashboardAPI(g, jwt, admin, s.auth, s.deps)
}

// Start runs the HTTP server until it fails or is shut down; failures are sent to Errors.
func (s *Server) Start() {
	s.deps.Logger.Info("API listening on " + s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error            { return s.errors }
func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// SignalShutdown asks the app to shut down gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signaled
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.server.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
