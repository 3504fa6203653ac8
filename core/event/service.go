package event

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/user"
)

var (
	// errors
	ErrNotFound             = core.NewError(core.KindNotFound, "event not found")
	ErrRegistrationNotFound = core.NewError(core.KindNotFound, "registration not found")
	ErrForbidden            = core.NewError(core.KindForbidden, "you are not allowed to manage this event")
	ErrAlreadyRegistered    = core.NewError(core.KindConflict, "already registered for this event")
	ErrEventFull            = core.NewError(core.KindConflict, "event is full")
	ErrRegistrationClosed   = core.NewError(core.KindConflict, "event is not open for registration")
)

type (
	Repository interface {
		CreateEvent(ctx context.Context, e Event) (Event, error)
		GetEvent(ctx context.Context, id string) (Event, error)
		QueryEvents(ctx context.Context, filter QueryFilter, page core.Pagination) ([]Event, int64, error)
		UpdateEvent(ctx context.Context, e Event) (Event, error)
		DeleteEvent(ctx context.Context, id string) error
		SlugExists(ctx context.Context, slug string) (bool, error)

		// CreateRegistration returns ErrAlreadyRegistered when the (event, user) pair is taken.
		CreateRegistration(ctx context.Context, r Registration) (Registration, error)
		// DeleteRegistration reports whether a registration was removed.
		DeleteRegistration(ctx context.Context, eventID, userID string) (bool, error)
		ListRegistrations(ctx context.Context, eventID string) ([]Registration, error)
		// ReserveSeat increments registered_count unless the event is at capacity. It reports whether a seat was taken.
		ReserveSeat(ctx context.Context, eventID string) (bool, error)
		ReleaseSeat(ctx context.Context, eventID string) error
	}

	Service interface {
		Create(ctx context.Context, actor user.User, ne NewEvent) (Event, error)
		// Get returns a published or cancelled event, or a draft to its organizer and admins.
		Get(ctx context.Context, actor *user.User, id string) (Event, error)
		GetByID(ctx context.Context, id string) (Event, error)
		// Query lists upcoming events unless filter.IncludePast.
		Query(ctx context.Context, actor *user.User, filter QueryFilter, page core.Pagination) ([]Event, int64, error)
		Update(ctx context.Context, actor user.User, id string, ue UpdateEvent) (Event, error)
		Delete(ctx context.Context, actor user.User, id string) error
		Register(ctx context.Context, actor user.User, eventID string) (Registration, error)
		CancelRegistration(ctx context.Context, actor user.User, eventID string) error
		ListRegistrations(ctx context.Context, actor user.User, eventID string) ([]Registration, error)
	}

	service struct {
		repo    Repository
		tx      core.Transactor
		mailSvc core.EmailService
		events  core.EventPublisher
		logger  core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, tx core.Transactor, mailSvc core.EmailService, events core.EventPublisher, logger core.Logger) Service {
	return &service{repo: repo, tx: tx, mailSvc: mailSvc, events: events, logger: logger}
}

func (svc *service) Create(ctx context.Context, actor user.User, ne NewEvent) (Event, error) {
	if !actor.CanAuthor() {
		return Event{}, ErrForbidden
	}

	base := core.Slugify(ne.Title)
	if base == "" {
		base = "event"
	}
	slug := base
	for i := 2; ; i++ {
		exists, err := svc.repo.SlugExists(ctx, slug)
		if err != nil {
			return Event{}, pkgerrors.Wrap(err, "checking slug")
		}
		if !exists {
			break
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}

	now := time.Now().UTC()
	return svc.repo.CreateEvent(ctx, Event{
		Title:       ne.Title,
		Slug:        slug,
		Description: ne.Description,
		Location:    ne.Location,
		IsOnline:    ne.IsOnline,
		MeetingURL:  ne.MeetingURL,
		StartsAt:    ne.StartsAt.UTC(),
		EndsAt:      ne.EndsAt.UTC(),
		Capacity:    ne.Capacity,
		Status:      ne.Status,
		OrganizerID: actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *service) GetByID(ctx context.Context, id string) (Event, error) {
	return svc.repo.GetEvent(ctx, id)
}

func (svc *service) Get(ctx context.Context, actor *user.User, id string) (Event, error) {
	e, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if e.Status == StatusDraft && (actor == nil || !actor.CanManage(e.OrganizerID)) {
		return Event{}, ErrNotFound
	}
	return e, nil
}

func (svc *service) Query(ctx context.Context, actor *user.User, filter QueryFilter, page core.Pagination) ([]Event, int64, error) {
	filter.Search = core.CleanString(filter.Search)
	if actor == nil || !actor.IsAdmin() {
		filter.Status = StatusPublished
	}
	if !filter.IncludePast && filter.From.IsZero() {
		filter.From = time.Now().UTC()
	}
	page.Clean()
	return svc.repo.QueryEvents(ctx, filter, page)
}

func (svc *service) Update(ctx context.Context, actor user.User, id string, ue UpdateEvent) (Event, error) {
	e, err := svc.authorize(ctx, actor, id)
	if err != nil {
		return Event{}, err
	}
	ue.apply(&e)
	e.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateEvent(ctx, e)
}

func (svc *service) Delete(ctx context.Context, actor user.User, id string) error {
	if _, err := svc.authorize(ctx, actor, id); err != nil {
		return err
	}
	return svc.repo.DeleteEvent(ctx, id)
}

func (svc *service) authorize(ctx context.Context, actor user.User, id string) (Event, error) {
	e, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if !actor.CanManage(e.OrganizerID) {
		return Event{}, ErrForbidden
	}
	return e, nil
}

func (svc *service) Register(ctx context.Context, actor user.User, eventID string) (Registration, error) {
	var (
		e   Event
		reg Registration
	)
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if e, err = svc.repo.GetEvent(ctx, eventID); err != nil {
			return err
		}
		if !e.IsOpen(time.Now()) {
			return ErrRegistrationClosed
		}
		reg = Registration{EventID: e.ID, UserID: actor.ID, RegisteredAt: time.Now().UTC()}
		if reg, err = svc.repo.CreateRegistration(ctx, reg); err != nil {
			return err
		}
		ok, err := svc.repo.ReserveSeat(ctx, e.ID)
		if err != nil {
			return pkgerrors.Wrap(err, "reserving seat")
		}
		if !ok {
			return ErrEventFull
		}
		return nil
	})
	if err != nil {
		return Registration{}, err
	}

	svc.sendConfirmation(e, actor)
	core.PublishQuietly(ctx, svc.events, svc.logger, core.NewEvent(core.EventRegistrationCreated, e.ID, reg))
	return reg, nil
}

func (svc *service) sendConfirmation(e Event, usr user.User) {
	if svc.mailSvc == nil || usr.Email == "" {
		return
	}
	location := e.Location
	if e.IsOnline && e.MeetingURL != "" {
		location = e.MeetingURL
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Event Registration",
		TemplateName: "event_registration",
		TemplateData: map[string]interface{}{
			"Name":       usr.Name,
			"EventTitle": e.Title,
			"StartsAt":   e.StartsAt.Format(time.RFC1123),
			"Location":   location,
		},
	})
}

func (svc *service) CancelRegistration(ctx context.Context, actor user.User, eventID string) error {
	return svc.tx.InTx(ctx, func(ctx context.Context) error {
		deleted, err := svc.repo.DeleteRegistration(ctx, eventID, actor.ID)
		if err != nil {
			return pkgerrors.Wrap(err, "deleting registration")
		}
		if !deleted {
			return ErrRegistrationNotFound
		}
		return svc.repo.ReleaseSeat(ctx, eventID)
	})
}

func (svc *service) ListRegistrations(ctx context.Context, actor user.User, eventID string) ([]Registration, error) {
	if _, err := svc.authorize(ctx, actor, eventID); err != nil {
		return nil, err
	}
	return svc.repo.ListRegistrations(ctx, eventID)
}
