package event

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasa-lms/darasa/core"
)

// Event statuses
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusCancelled = "cancelled"
)

type Event struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug"`
	Description     string    `json:"description"`
	Location        string    `json:"location"`
	IsOnline        bool      `json:"is_online"`
	MeetingURL      string    `json:"meeting_url,omitempty"`
	StartsAt        time.Time `json:"starts_at"`
	EndsAt          time.Time `json:"ends_at"`
	Capacity        *int      `json:"capacity"`
	RegisteredCount int       `json:"registered_count"`
	Status          string    `json:"status"`
	OrganizerID     string    `json:"organizer_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsOpen reports whether registrations are accepted at t.
func (e Event) IsOpen(t time.Time) bool {
	return e.Status == StatusPublished && t.Before(e.EndsAt)
}

type Registration struct {
	ID           string    `json:"id"`
	EventID      string    `json:"event_id"`
	UserID       string    `json:"user_id"`
	RegisteredAt time.Time `json:"registered_at"`
}

type NewEvent struct {
	Title       string    `json:"title" validate:"required,max=255"`
	Description string    `json:"description"`
	Location    string    `json:"location" validate:"max=255"`
	IsOnline    bool      `json:"is_online"`
	MeetingURL  string    `json:"meeting_url" validate:"omitempty,url,max=1024"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	EndsAt      time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
	Capacity    *int      `json:"capacity" validate:"omitempty,gte=1"`
	Status      string    `json:"status" validate:"omitempty,oneof=draft published cancelled"`
}

func (ne *NewEvent) Validate(validate *validator.Validate) error {
	ne.Title = core.CleanString(ne.Title)
	ne.Location = core.CleanString(ne.Location)
	if ne.Status == "" {
		ne.Status = StatusDraft
	}
	return validate.Struct(ne)
}

type UpdateEvent struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string    `json:"description"`
	Location    *string    `json:"location" validate:"omitempty,max=255"`
	IsOnline    *bool      `json:"is_online"`
	MeetingURL  *string    `json:"meeting_url" validate:"omitempty,url,max=1024"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	Capacity    *int       `json:"capacity" validate:"omitempty,gte=1"`
	Status      *string    `json:"status" validate:"omitempty,oneof=draft published cancelled"`
}

// Validate checks the update against the Event it modifies: it must still end after it starts.
func (ue *UpdateEvent) Validate(orig Event, validate *validator.Validate) error {
	if ue.Title != nil {
		*ue.Title = core.CleanString(*ue.Title)
	}
	if err := validate.Struct(ue); err != nil {
		return err
	}
	starts, ends := orig.StartsAt, orig.EndsAt
	if ue.StartsAt != nil {
		starts = *ue.StartsAt
	}
	if ue.EndsAt != nil {
		ends = *ue.EndsAt
	}
	if !ends.After(starts) {
		return core.NewFieldError("ends_at", "ends_at must be after starts_at")
	}
	return nil
}

func (ue UpdateEvent) apply(e *Event) {
	if ue.Title != nil {
		e.Title = *ue.Title
	}
	if ue.Description != nil {
		e.Description = *ue.Description
	}
	if ue.Location != nil {
		e.Location = *ue.Location
	}
	if ue.IsOnline != nil {
		e.IsOnline = *ue.IsOnline
	}
	if ue.MeetingURL != nil {
		e.MeetingURL = *ue.MeetingURL
	}
	if ue.StartsAt != nil {
		e.StartsAt = ue.StartsAt.UTC()
	}
	if ue.EndsAt != nil {
		e.EndsAt = ue.EndsAt.UTC()
	}
	if ue.Capacity != nil {
		e.Capacity = ue.Capacity
	}
	if ue.Status != nil {
		e.Status = *ue.Status
	}
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Status      string    `query:"status"`
	From        time.Time `query:"from"`
	IncludePast bool      `query:"include_past"`
}
