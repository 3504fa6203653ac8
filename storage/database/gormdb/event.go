package gormrepos

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/event"
)

type eventRepository struct {
	db *gorm.DB
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *gorm.DB) *eventRepository {
	return &eventRepository{db: db}
}

func (repo eventRepository) boil(e event.Event) *eventRow {
	return &eventRow{
		ID:              e.ID,
		Title:           e.Title,
		Slug:            e.Slug,
		Description:     e.Description,
		Location:        e.Location,
		IsOnline:        e.IsOnline,
		MeetingURL:      e.MeetingURL,
		StartsAt:        e.StartsAt.UTC(),
		EndsAt:          e.EndsAt.UTC(),
		Capacity:        e.Capacity,
		RegisteredCount: e.RegisteredCount,
		Status:          e.Status,
		OrganizerID:     e.OrganizerID,
		CreatedAt:       e.CreatedAt.UTC(),
		UpdatedAt:       e.UpdatedAt.UTC(),
	}
}

func (repo eventRepository) unboil(r *eventRow) event.Event {
	return event.Event{
		ID:              r.ID,
		Title:           r.Title,
		Slug:            r.Slug,
		Description:     r.Description,
		Location:        r.Location,
		IsOnline:        r.IsOnline,
		MeetingURL:      r.MeetingURL,
		StartsAt:        r.StartsAt,
		EndsAt:          r.EndsAt,
		Capacity:        r.Capacity,
		RegisteredCount: r.RegisteredCount,
		Status:          r.Status,
		OrganizerID:     r.OrganizerID,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func (repo eventRepository) CreateEvent(ctx context.Context, e event.Event) (event.Event, error) {
	e.ID = newID()
	r := repo.boil(e)
	if err := conn(ctx, repo.db).Create(r).Error; err != nil {
		return event.Event{}, errors.Wrap(err, "inserting event")
	}
	return repo.unboil(r), nil
}

func (repo eventRepository) GetEvent(ctx context.Context, id string) (event.Event, error) {
	if !validID(id) {
		return event.Event{}, event.ErrNotFound
	}
	var r eventRow
	if err := conn(ctx, repo.db).Where("id = ?", id).First(&r).Error; err != nil {
		if isNotFound(err) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, errors.Wrap(err, "finding event")
	}
	return repo.unboil(&r), nil
}

func (repo eventRepository) QueryEvents(ctx context.Context, filter event.QueryFilter, page core.Pagination) ([]event.Event, int64, error) {
	q := conn(ctx, repo.db).Model(&eventRow{})
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		q = q.Where("LOWER(title) LIKE LOWER(?) OR LOWER(location) LIKE LOWER(?)", val, val)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	// events still running at From count as upcoming
	if !filter.From.IsZero() {
		q = q.Where("ends_at >= ?", filter.From.UTC())
	}

	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "counting events")
	}

	var rows []eventRow
	err := q.Order("starts_at ASC").Offset(page.Offset()).Limit(page.Limit()).Find(&rows).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying events")
	}
	events := make([]event.Event, 0, len(rows))
	for i := range rows {
		events = append(events, repo.unboil(&rows[i]))
	}
	return events, total, nil
}

func (repo eventRepository) UpdateEvent(ctx context.Context, e event.Event) (event.Event, error) {
	r := repo.boil(e)
	if err := conn(ctx, repo.db).Save(r).Error; err != nil {
		return event.Event{}, errors.Wrap(err, "updating event")
	}
	return repo.unboil(r), nil
}

func (repo eventRepository) DeleteEvent(ctx context.Context, id string) error {
	if !validID(id) {
		return event.ErrNotFound
	}
	return conn(ctx, repo.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", id).Delete(&registrationRow{}).Error; err != nil {
			return errors.Wrap(err, "deleting event registrations")
		}
		res := tx.Where("id = ?", id).Delete(&eventRow{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "deleting event")
		}
		if res.RowsAffected == 0 {
			return event.ErrNotFound
		}
		return nil
	})
}

func (repo eventRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var cnt int64
	if err := conn(ctx, repo.db).Model(&eventRow{}).Where("slug = ?", slug).Count(&cnt).Error; err != nil {
		return false, errors.Wrap(err, "checking event slug")
	}
	return cnt > 0, nil
}

func (repo eventRepository) CreateRegistration(ctx context.Context, reg event.Registration) (event.Registration, error) {
	r := &registrationRow{
		ID:           newID(),
		EventID:      reg.EventID,
		UserID:       reg.UserID,
		RegisteredAt: reg.RegisteredAt.UTC(),
	}
	res := conn(ctx, repo.db).Clauses(clause.OnConflict{DoNothing: true}).Create(r)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return event.Registration{}, event.ErrAlreadyRegistered
		}
		return event.Registration{}, errors.Wrap(res.Error, "inserting registration")
	}
	if res.RowsAffected == 0 {
		return event.Registration{}, event.ErrAlreadyRegistered
	}
	return event.Registration{ID: r.ID, EventID: r.EventID, UserID: r.UserID, RegisteredAt: r.RegisteredAt}, nil
}

func (repo eventRepository) DeleteRegistration(ctx context.Context, eventID, userID string) (bool, error) {
	if !validID(eventID) || !validID(userID) {
		return false, nil
	}
	res := conn(ctx, repo.db).Where("event_id = ? AND user_id = ?", eventID, userID).Delete(&registrationRow{})
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "deleting registration")
	}
	return res.RowsAffected > 0, nil
}

func (repo eventRepository) ListRegistrations(ctx context.Context, eventID string) ([]event.Registration, error) {
	if !validID(eventID) {
		return []event.Registration{}, nil
	}
	var rows []registrationRow
	if err := conn(ctx, repo.db).Where("event_id = ?", eventID).Order("registered_at ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "listing registrations")
	}
	regs := make([]event.Registration, 0, len(rows))
	for _, r := range rows {
		regs = append(regs, event.Registration{ID: r.ID, EventID: r.EventID, UserID: r.UserID, RegisteredAt: r.RegisteredAt})
	}
	return regs, nil
}

func (repo eventRepository) ReserveSeat(ctx context.Context, eventID string) (bool, error) {
	if !validID(eventID) {
		return false, event.ErrNotFound
	}
	res := conn(ctx, repo.db).Model(&eventRow{}).
		Where("id = ? AND (capacity IS NULL OR registered_count < capacity)", eventID).
		UpdateColumn("registered_count", gorm.Expr("registered_count + 1"))
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "reserving event seat")
	}
	return res.RowsAffected > 0, nil
}

func (repo eventRepository) ReleaseSeat(ctx context.Context, eventID string) error {
	if !validID(eventID) {
		return event.ErrNotFound
	}
	err := conn(ctx, repo.db).Model(&eventRow{}).
		Where("id = ? AND registered_count > 0", eventID).
		UpdateColumn("registered_count", gorm.Expr("registered_count - 1")).Error
	return errors.Wrap(err, "releasing event seat")
}
