package enrollment

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/user"
)

var (
	// errors
	ErrNotFound            = core.NewError(core.KindNotFound, "enrollment not found")
	ErrAlreadyEnrolled     = core.NewError(core.KindConflict, "already enrolled in this course")
	ErrCourseNotAvailable  = core.NewError(core.KindConflict, "course is not open for enrollment")
	ErrInvalidTransition   = core.NewError(core.KindConflict, "invalid enrollment status transition")
	ErrNotEnrolled         = core.NewError(core.KindForbidden, "you are not enrolled in this course")
	ErrForbidden           = core.NewError(core.KindForbidden, "you are not allowed to manage this enrollment")
	ErrInvalidNotification = core.NewError(core.KindInvalid, "invalid payment notification")

	orderIDPrefix = "ENR-"
)

type (
	Repository interface {
		// CreateEnrollment inserts e unless the (course, user) pair is taken, in which case it returns ErrAlreadyEnrolled.
		CreateEnrollment(ctx context.Context, e CourseEnrollment) (CourseEnrollment, error)
		GetEnrollment(ctx context.Context, filter GetFilter) (CourseEnrollment, error)
		QueryEnrollments(ctx context.Context, filter QueryFilter, page core.Pagination) ([]CourseEnrollment, int64, error)
		UpdateEnrollment(ctx context.Context, e CourseEnrollment) (CourseEnrollment, error)
		CountByStatus(ctx context.Context) (map[string]int64, error)
		// SumRevenue totals amount_paid of paid enrollments.
		SumRevenue(ctx context.Context) (float64, error)
	}

	// Checkout describes a purchase to be paid through the gateway.
	Checkout struct {
		OrderID       string
		Amount        float64
		Currency      string
		ItemID        string
		ItemName      string
		CustomerName  string
		CustomerEmail string
	}

	CheckoutSession struct {
		Token       string
		RedirectURL string
	}

	// PaymentGateway creates checkouts and authenticates their notifications.
	PaymentGateway interface {
		CreateCheckout(ctx context.Context, checkout Checkout) (CheckoutSession, error)
		VerifyNotification(n PaymentNotification) error
	}

	Service interface {
		// Enroll enrolls actor in a course.
		Enroll(ctx context.Context, actor user.User, ne NewEnrollment) (CourseEnrollment, error)
		Create(ctx context.Context, courseID, userID string, metadata map[string]interface{}) (CourseEnrollment, error)
		GetByID(ctx context.Context, id string) (CourseEnrollment, error)
		// GetForUser returns the enrollment of userID in courseID.
		GetForUser(ctx context.Context, courseID, userID string) (CourseEnrollment, error)
		// RequireOngoing returns ErrNotEnrolled unless userID has an active or completed enrollment in courseID.
		RequireOngoing(ctx context.Context, courseID, userID string) (CourseEnrollment, error)
		// Get returns the enrollment if actor is its student or manages its course.
		Get(ctx context.Context, actor user.User, id string) (CourseEnrollment, error)
		ListForUser(ctx context.Context, userID string, filter QueryFilter, page core.Pagination) ([]CourseEnrollment, int64, error)
		ListForCourse(ctx context.Context, actor user.User, filter QueryFilter, page core.Pagination) ([]CourseEnrollment, int64, error)
		SetProgress(ctx context.Context, id string, percentage float64) (CourseEnrollment, error)
		UpdateProgress(ctx context.Context, actor user.User, id string, percentage float64) (CourseEnrollment, error)
		ChangeStatus(ctx context.Context, actor user.User, id, status string) (CourseEnrollment, error)
		Touch(ctx context.Context, id string) error
		ConfirmPayment(ctx context.Context, n PaymentNotification) (CourseEnrollment, error)
		CountByStatus(ctx context.Context) (map[string]int64, error)
		TotalRevenue(ctx context.Context) (float64, error)
	}

	service struct {
		repo      Repository
		tx        core.Transactor
		courseSvc course.Service
		userSvc   user.Service
		gateway   PaymentGateway
		mailSvc   core.EmailService
		events    core.EventPublisher
		logger    core.Logger
	}
)

var _ Service = (*service)(nil)

// NewService returns the enrollment service. gateway may be nil, in which case paid enrollments stay pending
// until confirmed by other means.
func NewService(
	repo Repository,
	tx core.Transactor,
	courseSvc course.Service,
	userSvc user.Service,
	gateway PaymentGateway,
	mailSvc core.EmailService,
	events core.EventPublisher,
	logger core.Logger,
) Service {
	return &service{
		repo:      repo,
		tx:        tx,
		courseSvc: courseSvc,
		userSvc:   userSvc,
		gateway:   gateway,
		mailSvc:   mailSvc,
		events:    events,
		logger:    logger,
	}
}

func (svc *service) Enroll(ctx context.Context, actor user.User, ne NewEnrollment) (CourseEnrollment, error) {
	return svc.Create(ctx, ne.CourseID, actor.ID, ne.Metadata)
}

func (svc *service) Create(ctx context.Context, courseID, userID string, metadata map[string]interface{}) (CourseEnrollment, error) {
	var (
		enr CourseEnrollment
		crs course.Course
		usr user.User
	)

	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if crs, err = svc.courseSvc.GetByID(ctx, courseID); err != nil {
			return err
		}
		if !crs.IsPublished() {
			return ErrCourseNotAvailable
		}
		if usr, err = svc.userSvc.GetByID(ctx, userID); err != nil {
			return err
		}

		now := time.Now().UTC()
		enr = CourseEnrollment{
			CourseID:      crs.ID,
			UserID:        usr.ID,
			Status:        StatusActive,
			EnrolledAt:    now,
			PaymentStatus: PaymentFree,
			Currency:      crs.Currency,
			Metadata:      metadata,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if !crs.IsFree && crs.Price > 0 {
			enr.PaymentStatus = PaymentPending
		}

		if enr, err = svc.repo.CreateEnrollment(ctx, enr); err != nil {
			return err
		}
		if err = svc.courseSvc.ReserveSeat(ctx, crs.ID); err != nil {
			return err
		}
		if usr.Role == user.RoleUser {
			if _, err = svc.userSvc.PromoteToStudent(ctx, usr.ID); err != nil {
				return pkgerrors.Wrap(err, "promoting user")
			}
		}
		return nil
	})
	if err != nil {
		return CourseEnrollment{}, err
	}

	if enr.PaymentStatus == PaymentPending {
		enr = svc.startCheckout(ctx, enr, crs, usr)
	}
	svc.sendConfirmation(enr, crs, usr)
	core.PublishQuietly(ctx, svc.events, svc.logger, core.NewEvent(core.EventEnrollmentCreated, enr.ID, enr))
	return enr, nil
}

// startCheckout opens a gateway checkout for a pending enrollment. Failures leave the enrollment pending.
func (svc *service) startCheckout(ctx context.Context, enr CourseEnrollment, crs course.Course, usr user.User) CourseEnrollment {
	if svc.gateway == nil {
		return enr
	}
	orderID := orderIDPrefix + enr.ID
	session, err := svc.gateway.CreateCheckout(ctx, Checkout{
		OrderID:       orderID,
		Amount:        crs.Price,
		Currency:      crs.Currency,
		ItemID:        crs.ID,
		ItemName:      crs.Title,
		CustomerName:  usr.Name,
		CustomerEmail: usr.Email,
	})
	if err != nil {
		svc.logger.Error(fmt.Sprintf("creating checkout: %v", err), err, map[string]interface{}{"enrollment_id": enr.ID})
		return enr
	}

	updated := enr
	updated.PaymentOrderID = orderID
	updated.PaymentURL = session.RedirectURL
	updated.UpdatedAt = time.Now().UTC()
	updated, err = svc.repo.UpdateEnrollment(ctx, updated)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("saving checkout: %v", err), err, map[string]interface{}{"enrollment_id": enr.ID})
		return enr
	}
	return updated
}

func (svc *service) sendConfirmation(enr CourseEnrollment, crs course.Course, usr user.User) {
	if svc.mailSvc == nil || usr.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Enrollment Confirmation",
		TemplateName: "enrollment_confirmation",
		TemplateData: map[string]interface{}{
			"Name":           usr.Name,
			"CourseTitle":    crs.Title,
			"CourseSlug":     crs.Slug,
			"PaymentPending": enr.PaymentStatus == PaymentPending,
		},
	})
}

func (svc *service) GetByID(ctx context.Context, id string) (CourseEnrollment, error) {
	return svc.repo.GetEnrollment(ctx, GetFilter{ID: id})
}

func (svc *service) GetForUser(ctx context.Context, courseID, userID string) (CourseEnrollment, error) {
	return svc.repo.GetEnrollment(ctx, GetFilter{CourseID: courseID, UserID: userID})
}

func (svc *service) RequireOngoing(ctx context.Context, courseID, userID string) (CourseEnrollment, error) {
	enr, err := svc.GetForUser(ctx, courseID, userID)
	if err != nil {
		if core.IsNotFound(err) {
			return CourseEnrollment{}, ErrNotEnrolled
		}
		return CourseEnrollment{}, err
	}
	if !enr.IsOngoing() {
		return CourseEnrollment{}, ErrNotEnrolled
	}
	return enr, nil
}

func (svc *service) Get(ctx context.Context, actor user.User, id string) (CourseEnrollment, error) {
	enr, err := svc.GetByID(ctx, id)
	if err != nil {
		return CourseEnrollment{}, err
	}
	if enr.UserID == actor.ID {
		return enr, nil
	}
	if _, err := svc.courseSvc.Authorize(ctx, actor, enr.CourseID); err != nil {
		return CourseEnrollment{}, ErrForbidden
	}
	return enr, nil
}

func (svc *service) ListForUser(ctx context.Context, userID string, filter QueryFilter, page core.Pagination) ([]CourseEnrollment, int64, error) {
	filter.UserID = userID
	page.Clean()
	return svc.repo.QueryEnrollments(ctx, filter, page)
}

func (svc *service) ListForCourse(ctx context.Context, actor user.User, filter QueryFilter, page core.Pagination) ([]CourseEnrollment, int64, error) {
	if filter.CourseID == "" {
		if !actor.IsAdmin() {
			return nil, 0, core.NewFieldError("course_id", "this field is required")
		}
	} else if _, err := svc.courseSvc.Authorize(ctx, actor, filter.CourseID); err != nil {
		return nil, 0, err
	}
	page.Clean()
	return svc.repo.QueryEnrollments(ctx, filter, page)
}

func (svc *service) SetProgress(ctx context.Context, id string, percentage float64) (CourseEnrollment, error) {
	enr, err := svc.GetByID(ctx, id)
	if err != nil {
		return CourseEnrollment{}, err
	}

	wasCompleted := enr.Status == StatusCompleted
	applyProgress(&enr, percentage, time.Now().UTC())
	if enr, err = svc.repo.UpdateEnrollment(ctx, enr); err != nil {
		return CourseEnrollment{}, pkgerrors.Wrap(err, "updating enrollment")
	}
	if !wasCompleted && enr.Status == StatusCompleted {
		core.PublishQuietly(ctx, svc.events, svc.logger, core.NewEvent(core.EventEnrollmentCompleted, enr.ID, enr))
	}
	return enr, nil
}

// applyProgress clamps percentage to [0, 100] and completes the enrollment when it reaches 100.
func applyProgress(enr *CourseEnrollment, percentage float64, now time.Time) {
	enr.Progress = core.ClampPercentage(percentage)
	if enr.Progress >= 100 && enr.Status != StatusCompleted {
		enr.Status = StatusCompleted
		enr.CompletedAt = &now
	}
	enr.LastAccessedAt = &now
	enr.UpdatedAt = now
}

func (svc *service) UpdateProgress(ctx context.Context, actor user.User, id string, percentage float64) (CourseEnrollment, error) {
	enr, err := svc.GetByID(ctx, id)
	if err != nil {
		return CourseEnrollment{}, err
	}
	if _, err := svc.courseSvc.Authorize(ctx, actor, enr.CourseID); err != nil {
		return CourseEnrollment{}, err
	}
	return svc.SetProgress(ctx, id, percentage)
}

func (svc *service) ChangeStatus(ctx context.Context, actor user.User, id, status string) (CourseEnrollment, error) {
	var enr CourseEnrollment
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if enr, err = svc.GetByID(ctx, id); err != nil {
			return err
		}
		// students may only drop their own enrollment
		if !(enr.UserID == actor.ID && status == StatusDropped) {
			if _, err := svc.courseSvc.Authorize(ctx, actor, enr.CourseID); err != nil {
				return err
			}
		}
		if !CanTransition(enr.Status, status) {
			return ErrInvalidTransition
		}

		switch {
		case status == StatusDropped:
			err = svc.courseSvc.ReleaseSeat(ctx, enr.CourseID)
		case enr.Status == StatusDropped && status == StatusActive:
			err = svc.courseSvc.ReserveSeat(ctx, enr.CourseID)
		}
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		enr.Status = status
		if status == StatusCompleted {
			enr.CompletedAt = &now
		}
		enr.UpdatedAt = now
		enr, err = svc.repo.UpdateEnrollment(ctx, enr)
		return err
	})
	if err != nil {
		return CourseEnrollment{}, err
	}
	if status == StatusCompleted {
		core.PublishQuietly(ctx, svc.events, svc.logger, core.NewEvent(core.EventEnrollmentCompleted, enr.ID, enr))
	}
	return enr, nil
}

func (svc *service) Touch(ctx context.Context, id string) error {
	enr, err := svc.GetByID(ctx, id)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	enr.LastAccessedAt = &now
	_, err = svc.repo.UpdateEnrollment(ctx, enr)
	return err
}

func (svc *service) ConfirmPayment(ctx context.Context, n PaymentNotification) (CourseEnrollment, error) {
	if svc.gateway == nil {
		return CourseEnrollment{}, ErrInvalidNotification
	}
	if err := svc.gateway.VerifyNotification(n); err != nil {
		return CourseEnrollment{}, core.WrapKind(core.KindInvalid, err, "verifying payment notification")
	}

	enr, err := svc.repo.GetEnrollment(ctx, GetFilter{PaymentOrderID: n.OrderID})
	if err != nil {
		return CourseEnrollment{}, err
	}
	status := n.PaymentStatus()
	if status == "" || status == enr.PaymentStatus || enr.PaymentStatus == PaymentFree {
		return enr, nil
	}

	crs, err := svc.courseSvc.GetByID(ctx, enr.CourseID)
	if err != nil {
		return CourseEnrollment{}, pkgerrors.Wrap(err, "finding course")
	}

	now := time.Now().UTC()
	enr.PaymentStatus = status
	if status == PaymentPaid {
		enr.AmountPaid = crs.Price
		enr.PaidAt = &now
	}
	enr.UpdatedAt = now
	if enr, err = svc.repo.UpdateEnrollment(ctx, enr); err != nil {
		return CourseEnrollment{}, pkgerrors.Wrap(err, "updating enrollment")
	}
	if status == PaymentPaid {
		core.PublishQuietly(ctx, svc.events, svc.logger, core.NewEvent(core.EventPaymentConfirmed, enr.ID, enr))
	}
	return enr, nil
}

func (svc *service) CountByStatus(ctx context.Context) (map[string]int64, error) {
	return svc.repo.CountByStatus(ctx)
}

func (svc *service) TotalRevenue(ctx context.Context) (float64, error) {
	return svc.repo.SumRevenue(ctx)
}
