package event_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/event"
	"github.com/darasa-lms/darasa/core/user"
	emailsvc "github.com/darasa-lms/darasa/services/email"
	"github.com/darasa-lms/darasa/tests"
)

func TestService_Registration(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	svc := env.EventSvc
	emailsvc.ResetSentMessages()

	organizer := testutil.CreateUser(t, env.UserRepo, "Org", "org", "org@test.cd", "", user.RoleInstructor, true)
	stu1 := testutil.CreateUser(t, env.UserRepo, "One", "one", "one@test.cd", "", user.RoleStudent, true)
	stu2 := testutil.CreateUser(t, env.UserRepo, "Two", "two", "two@test.cd", "", user.RoleStudent, true)

	start := time.Now().Add(24 * time.Hour)
	meetup, err := svc.Create(ctx, organizer, event.NewEvent{
		Title: "Go Meetup", StartsAt: start, EndsAt: start.Add(2 * time.Hour),
		Capacity: core.IntPtr(1), Status: event.StatusPublished, Location: "Kinshasa",
	})
	require.NoError(t, err)
	assert.Equal(t, "go-meetup", meetup.Slug)

	draft, err := svc.Create(ctx, organizer, event.NewEvent{
		Title: "Go Meetup", StartsAt: start, EndsAt: start.Add(time.Hour), Status: event.StatusDraft,
	})
	require.NoError(t, err)
	assert.Equal(t, "go-meetup-2", draft.Slug)

	t.Run("students cannot organize", func(t *testing.T) {
		_, err := svc.Create(ctx, stu1, event.NewEvent{Title: "Nope", StartsAt: start, EndsAt: start.Add(time.Hour)})
		assert.ErrorIs(t, err, event.ErrForbidden)
	})

	t.Run("drafts are hidden", func(t *testing.T) {
		_, err := svc.Get(ctx, nil, draft.ID)
		assert.ErrorIs(t, err, event.ErrNotFound)
		_, err = svc.Get(ctx, &organizer, draft.ID)
		assert.NoError(t, err)

		list, total, err := svc.Query(ctx, nil, event.QueryFilter{}, core.Pagination{})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		assert.Equal(t, meetup.ID, list[0].ID)

		_, err = svc.Register(ctx, stu1, draft.ID)
		assert.ErrorIs(t, err, event.ErrRegistrationClosed)
	})

	t.Run("register", func(t *testing.T) {
		reg, err := svc.Register(ctx, stu1, meetup.ID)
		require.NoError(t, err)
		assert.Equal(t, stu1.ID, reg.UserID)

		e, err := svc.GetByID(ctx, meetup.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, e.RegisteredCount)

		assert.Len(t, env.Events.Events(core.EventRegistrationCreated), 1)
		if sent := emailsvc.Sent(); assert.Len(t, sent, 1) {
			assert.Equal(t, "event_registration", sent[0].TemplateName)
		}
	})

	t.Run("register twice", func(t *testing.T) {
		_, err := svc.Register(ctx, stu1, meetup.ID)
		assert.ErrorIs(t, err, event.ErrAlreadyRegistered)
	})

	t.Run("full", func(t *testing.T) {
		_, err := svc.Register(ctx, stu2, meetup.ID)
		assert.ErrorIs(t, err, event.ErrEventFull)

		regs, err := svc.ListRegistrations(ctx, organizer, meetup.ID)
		require.NoError(t, err)
		assert.Len(t, regs, 1)
	})

	t.Run("cancel frees the seat", func(t *testing.T) {
		assert.ErrorIs(t, svc.CancelRegistration(ctx, stu2, meetup.ID), event.ErrRegistrationNotFound)
		require.NoError(t, svc.CancelRegistration(ctx, stu1, meetup.ID))

		_, err := svc.Register(ctx, stu2, meetup.ID)
		assert.NoError(t, err)
	})

	t.Run("update", func(t *testing.T) {
		title := "Go Meetup #2"
		_, err := svc.Update(ctx, stu1, meetup.ID, event.UpdateEvent{Title: &title})
		assert.ErrorIs(t, err, event.ErrForbidden)

		got, err := svc.Update(ctx, organizer, meetup.ID, event.UpdateEvent{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, title, got.Title)

		_, err = svc.ListRegistrations(ctx, stu1, meetup.ID)
		assert.ErrorIs(t, err, event.ErrForbidden)
	})

	t.Run("past events", func(t *testing.T) {
		ended := time.Now().Add(-time.Hour)
		_, err := svc.Update(ctx, organizer, meetup.ID, event.UpdateEvent{StartsAt: timePtr(ended.Add(-time.Hour)), EndsAt: &ended})
		require.NoError(t, err)

		_, err = svc.Register(ctx, stu1, meetup.ID)
		assert.ErrorIs(t, err, event.ErrRegistrationClosed)

		_, total, err := svc.Query(ctx, nil, event.QueryFilter{}, core.Pagination{})
		require.NoError(t, err)
		assert.Zero(t, total)
		_, total, err = svc.Query(ctx, nil, event.QueryFilter{IncludePast: true}, core.Pagination{})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
	})
}

func TestUpdateEvent_Validate(t *testing.T) {
	validate, _ := testutil.Validator()
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	orig := event.Event{StartsAt: start, EndsAt: start.Add(time.Hour)}
	before := start.Add(-time.Minute)
	after := start.Add(3 * time.Hour)

	tests := []struct {
		name    string
		ue      event.UpdateEvent
		wantErr bool
	}{
		{name: "empty", ue: event.UpdateEvent{}},
		{name: "ends before start", ue: event.UpdateEvent{EndsAt: &before}, wantErr: true},
		{name: "starts after end", ue: event.UpdateEvent{StartsAt: &after}, wantErr: true},
		{name: "both moved", ue: event.UpdateEvent{StartsAt: &after, EndsAt: timePtr(after.Add(time.Hour))}},
		{name: "bad status", ue: event.UpdateEvent{Status: core.StrPtr("live")}, wantErr: true},
		{name: "bad meeting url", ue: event.UpdateEvent{MeetingURL: core.StrPtr("meet")}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ue.Validate(orig, validate)
			assert.Equal(t, tt.wantErr, err != nil, "err = %v", err)
		})
	}
}

func timePtr(t time.Time) *time.Time { return &t }
