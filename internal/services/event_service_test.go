package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/bienestar-api/internal/domain/account"
	"github.com/gravadigital/bienestar-api/internal/domain/common"
	"github.com/gravadigital/bienestar-api/internal/storage/postgres"
)

func TestCreateEventValidationOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	v := env.venue(t, "Parque Amarilis", -9.3, -75.9)

	start := testNow.Add(24 * time.Hour)
	valid := CreateEventRequest{
		Title:       "Morning yoga",
		Description: "Gentle yoga session for all levels",
		StartAt:     start,
		EndAt:       start.Add(time.Hour),
		VenueID:     v.ID,
		MaxCapacity: 10,
	}

	tests := []struct {
		name    string
		mutate  func(r *CreateEventRequest)
		kind    common.Kind
		message string
	}{
		{"title first", func(r *CreateEventRequest) {
			r.Title, r.Description, r.MaxCapacity = "Yoga", "short", 0
		}, common.KindInvalid, "title must be at least 5 characters long"},
		{"description", func(r *CreateEventRequest) { r.Description = "  too short  " }, common.KindInvalid, "description must be at least 20 characters long"},
		{"start in the past", func(r *CreateEventRequest) { r.StartAt = testNow.Add(-time.Minute) }, common.KindInvalid, "start date must be in the future"},
		{"start equal to now", func(r *CreateEventRequest) { r.StartAt = testNow }, common.KindInvalid, "start date must be in the future"},
		{"end equal to start", func(r *CreateEventRequest) { r.EndAt = r.StartAt }, common.KindInvalid, "end date must be after start date"},
		{"capacity", func(r *CreateEventRequest) { r.MaxCapacity = 0 }, common.KindInvalid, "capacity must be at least 1 person"},
		{"unknown venue", func(r *CreateEventRequest) { r.VenueID = uuid.New() }, common.KindNotFound, "the selected venue does not exist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)

			res, err := env.events.CreateEvent(ctx, req, nil)
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Equal(t, tt.kind, res.Kind)
			assert.Equal(t, tt.message, res.Message)
		})
	}
}

func TestCreateEventRequiresActiveVenue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	v := env.venue(t, "Parque Amarilis", -9.3, -75.9)

	res, err := env.venues.DeleteVenue(ctx, v.ID, false)
	require.NoError(t, err)
	require.True(t, res.Success)

	start := testNow.Add(24 * time.Hour)
	created, err := env.events.CreateEvent(ctx, CreateEventRequest{
		Title:       "Morning yoga",
		Description: "Gentle yoga session for all levels",
		StartAt:     start,
		EndAt:       start.Add(time.Hour),
		VenueID:     v.ID,
		MaxCapacity: 10,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, common.KindNotFound, created.Kind)
}

func TestCreateEventPersistsTrimmedActiveEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	v := env.venue(t, "Parque Amarilis", -9.3, -75.9)
	actor := &common.Actor{ID: uuid.New()}

	start := testNow.Add(24 * time.Hour)
	res, err := env.events.CreateEvent(ctx, CreateEventRequest{
		Title:       "  Morning yoga  ",
		Description: "  Gentle yoga session for all levels  ",
		StartAt:     start,
		EndAt:       start.Add(time.Hour),
		VenueID:     v.ID,
		MaxCapacity: 3,
	}, actor)
	require.NoError(t, err)
	require.True(t, res.Success)

	got, err := env.events.GetEvent(ctx, res.Payload.ID)
	require.NoError(t, err)
	require.True(t, got.Success)
	assert.Equal(t, "Morning yoga", got.Payload.Title)
	assert.Equal(t, "Gentle yoga session for all levels", got.Payload.Description)
	assert.True(t, got.Payload.Active)
	assert.Zero(t, got.Payload.EnrolledCount())
	assert.Equal(t, 3, got.Payload.RemainingSeats())
	require.NotNil(t, got.Payload.Venue)
	assert.Equal(t, v.ID, got.Payload.Venue.ID)
	assert.Equal(t, actor.ID, *got.Payload.CreatedBy)
}

func TestEnrollUpToCapacity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	e := env.event(t, env.venue(t, "Parque Amarilis", -9.3, -75.9), 2)

	ana := env.account(t, "ana")
	ben := env.account(t, "ben")
	carla := env.account(t, "carla")

	res, err := env.events.Enroll(ctx, e.ID, ana.ID)
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	assert.False(t, res.Payload.IsFull())

	res, err = env.events.Enroll(ctx, e.ID, ben.ID)
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	assert.True(t, res.Payload.IsFull())
	assert.Zero(t, res.Payload.RemainingSeats())

	res, err = env.events.Enroll(ctx, e.ID, carla.ID)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, common.KindConflict, res.Kind)
	assert.Equal(t, "the event is full (capacity: 2)", res.Message)

	assert.Equal(t, []string{"ana:Morning yoga", "ben:Morning yoga"}, env.notifier.enrolled)
}

func TestEnrollFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	e := env.event(t, env.venue(t, "Parque Amarilis", -9.3, -75.9), 5)
	ana := env.account(t, "ana")

	res, err := env.events.Enroll(ctx, e.ID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, common.KindNotFound, res.Kind)
	assert.Equal(t, "account not found", res.Message)

	res, err = env.events.Enroll(ctx, uuid.New(), ana.ID)
	require.NoError(t, err)
	assert.Equal(t, "event not found", res.Message)

	res, err = env.events.Enroll(ctx, e.ID, ana.ID)
	require.NoError(t, err)
	require.True(t, res.Success)

	res, err = env.events.Enroll(ctx, e.ID, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, common.KindConflict, res.Kind)
	assert.Equal(t, "you are already enrolled in this event", res.Message)

	got, err := env.events.GetEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Payload.EnrolledCount())
}

func TestEnrollRefusesStartedAndInactiveEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	v := env.venue(t, "Parque Amarilis", -9.3, -75.9)
	started := env.event(t, v, 5)
	inactive := env.event(t, v, 5)
	ana := env.account(t, "ana")

	env.events.now = func() time.Time { return started.StartAt.Add(time.Minute) }
	res, err := env.events.Enroll(ctx, started.ID, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, common.KindInvalid, res.Kind)
	assert.Equal(t, "this event has already started", res.Message)

	del, err := env.events.DeleteEvent(ctx, inactive.ID, false)
	require.NoError(t, err)
	require.True(t, del.Success)

	res, err = env.events.Enroll(ctx, inactive.ID, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, common.KindNotFound, res.Kind)
}

func TestConcurrentEnrollForLastSeat(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	e := env.event(t, env.venue(t, "Parque Amarilis", -9.3, -75.9), 2)

	first := env.account(t, "first")
	res, err := env.events.Enroll(ctx, e.ID, first.ID)
	require.NoError(t, err)
	require.True(t, res.Success)

	contenders := []*account.Account{env.account(t, "ana"), env.account(t, "ben")}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for _, acc := range contenders {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			res, err := env.events.Enroll(ctx, e.ID, id)
			assert.NoError(t, err)
			if res.Success {
				mu.Lock()
				successes++
				mu.Unlock()
			} else {
				assert.Equal(t, common.KindConflict, res.Kind)
			}
		}(acc.ID)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)

	got, err := env.events.GetEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Payload.EnrolledCount())
	assert.True(t, got.Payload.IsFull())
}

func TestUnenroll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	e := env.event(t, env.venue(t, "Parque Amarilis", -9.3, -75.9), 1)
	ana := env.account(t, "ana")
	ben := env.account(t, "ben")

	res, err := env.events.Unenroll(ctx, e.ID, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, common.KindConflict, res.Kind)
	assert.Equal(t, "you are not enrolled in this event", res.Message)

	res, err = env.events.Enroll(ctx, e.ID, ana.ID)
	require.NoError(t, err)
	require.True(t, res.Success)

	res, err = env.events.Unenroll(ctx, e.ID, ana.ID)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.False(t, res.Payload.IsEnrolled(ana.ID))

	res, err = env.events.Enroll(ctx, e.ID, ben.ID)
	require.NoError(t, err)
	assert.True(t, res.Success, "the freed seat can be taken")
}

func TestUpdateEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	v := env.venue(t, "Parque Amarilis", -9.3, -75.9)
	e := env.event(t, v, 3)

	for _, name := range []string{"ana", "ben"} {
		res, err := env.events.Enroll(ctx, e.ID, env.account(t, name).ID)
		require.NoError(t, err)
		require.True(t, res.Success)
	}

	one := 1
	res, err := env.events.UpdateEvent(ctx, e.ID, UpdateEventRequest{MaxCapacity: &one})
	require.NoError(t, err)
	assert.Equal(t, common.KindInvalid, res.Kind)
	assert.Equal(t, "capacity cannot be lower than the 2 people already enrolled", res.Message)

	earlyEnd := e.StartAt.Add(-time.Minute)
	res, err = env.events.UpdateEvent(ctx, e.ID, UpdateEventRequest{EndAt: &earlyEnd})
	require.NoError(t, err)
	assert.Equal(t, "end date must be after start date", res.Message)

	two := 2
	title := "Sunset yoga"
	res, err = env.events.UpdateEvent(ctx, e.ID, UpdateEventRequest{MaxCapacity: &two, Title: &title})
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)

	got, err := env.events.GetEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sunset yoga", got.Payload.Title)
	assert.Equal(t, e.Description, got.Payload.Description)
	assert.True(t, got.Payload.IsFull())

	other := uuid.New()
	res, err = env.events.UpdateEvent(ctx, e.ID, UpdateEventRequest{VenueID: &other})
	require.NoError(t, err)
	assert.Equal(t, common.KindNotFound, res.Kind)
}

func TestListEventsFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	v := env.venue(t, "Parque Amarilis", -9.3, -75.9)

	small := env.event(t, v, 1)
	big := env.event(t, v, 10)
	ana := env.account(t, "ana")

	res, err := env.events.Enroll(ctx, small.ID, ana.ID)
	require.NoError(t, err)
	require.True(t, res.Success)

	all, err := env.events.ListEvents(ctx, FilterAll, "", postgres.PaginationParams{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)

	available, err := env.events.ListEvents(ctx, ParseListFilter("available"), "", postgres.PaginationParams{})
	require.NoError(t, err)
	require.Len(t, available.Items, 1)
	assert.Equal(t, big.ID, available.Items[0].ID)

	env.events.now = func() time.Time { return small.StartAt.Add(time.Hour) }
	upcoming, err := env.events.ListEvents(ctx, ParseListFilter("UPCOMING"), "", postgres.PaginationParams{})
	require.NoError(t, err)
	assert.Empty(t, upcoming.Items)

	mine, err := env.events.MyEvents(ctx, &common.Actor{ID: ana.ID}, postgres.PaginationParams{})
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, small.ID, mine.Items[0].ID)

	none, err := env.events.MyEvents(ctx, nil, postgres.PaginationParams{})
	require.NoError(t, err)
	assert.Empty(t, none.Items)

	assert.Equal(t, FilterAll, ParseListFilter("whatever"))
}

func TestParticipantsAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	e := env.event(t, env.venue(t, "Parque Amarilis", -9.3, -75.9), 5)
	ana := env.account(t, "ana")

	res, err := env.events.Enroll(ctx, e.ID, ana.ID)
	require.NoError(t, err)
	require.True(t, res.Success)

	people, err := env.events.Participants(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, people.Payload, 1)
	assert.Equal(t, "ana", people.Payload[0].Username)

	del, err := env.events.DeleteEvent(ctx, e.ID, true)
	require.NoError(t, err)
	assert.True(t, del.Success)

	people, err = env.events.Participants(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, common.KindNotFound, people.Kind)

	del, err = env.events.DeleteEvent(ctx, e.ID, false)
	require.NoError(t, err)
	assert.Equal(t, common.KindNotFound, del.Kind)
}
