package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gravadigital/bienestar-api/internal/cache"
	"github.com/gravadigital/bienestar-api/internal/domain/account"
	"github.com/gravadigital/bienestar-api/internal/domain/event"
	"github.com/gravadigital/bienestar-api/internal/domain/venue"
	"github.com/gravadigital/bienestar-api/internal/identity"
	"github.com/gravadigital/bienestar-api/internal/objectstore"
	"github.com/gravadigital/bienestar-api/internal/storage/memory"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// recordingNotifier captures notifications instead of mailing them
type recordingNotifier struct {
	mu       sync.Mutex
	welcomed []string
	enrolled []string
}

func (n *recordingNotifier) Welcome(ctx context.Context, a *account.Account) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomed = append(n.welcomed, a.Username)
}

func (n *recordingNotifier) Enrolled(ctx context.Context, a *account.Account, e *event.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enrolled = append(n.enrolled, a.Username+":"+e.Title)
}

type testEnv struct {
	store    *memory.Store
	photos   *objectstore.Memory
	notifier *recordingNotifier
	venues   *VenueService
	events   *EventService
	accounts *AccountService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	photos := objectstore.NewMemory()
	notifier := &recordingNotifier{}

	env := &testEnv{
		store:    store,
		photos:   photos,
		notifier: notifier,
		venues:   NewVenueService(store, cache.NewLocal(time.Minute), photos),
		events:   NewEventService(store, notifier),
		accounts: NewAccountService(store, identity.NewStoreWithCost(store.Accounts(), bcrypt.MinCost), notifier),
	}
	env.events.now = func() time.Time { return testNow }
	env.accounts.now = func() time.Time { return testNow }
	return env
}

func (env *testEnv) venue(t *testing.T, name string, lat, lon float64) *venue.Venue {
	t.Helper()
	res, err := env.venues.CreateVenue(context.Background(), CreateVenueRequest{
		Name:        name,
		Description: "A quiet place for practice",
		Address:     "Av. Universitaria 601",
		Latitude:    lat,
		Longitude:   lon,
	}, nil)
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	return res.Payload
}

func (env *testEnv) event(t *testing.T, v *venue.Venue, capacity int) *event.Event {
	t.Helper()
	start := testNow.Add(48 * time.Hour)
	res, err := env.events.CreateEvent(context.Background(), CreateEventRequest{
		Title:       "Morning yoga",
		Description: "Gentle yoga session for all levels",
		StartAt:     start,
		EndAt:       start.Add(time.Hour),
		VenueID:     v.ID,
		MaxCapacity: capacity,
	}, nil)
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	return res.Payload
}

func (env *testEnv) account(t *testing.T, username string) *account.Account {
	t.Helper()
	a := account.NewAccount(username, username+"@example.com")
	require.NoError(t, env.store.Accounts().Create(context.Background(), a))
	return a
}
