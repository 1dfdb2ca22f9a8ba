package services

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/bienestar-api/internal/cache"
	"github.com/gravadigital/bienestar-api/internal/domain/common"
	"github.com/gravadigital/bienestar-api/internal/domain/venue"
	"github.com/gravadigital/bienestar-api/internal/geo"
	"github.com/gravadigital/bienestar-api/internal/objectstore"
	"github.com/gravadigital/bienestar-api/internal/storage/memory"
	"github.com/gravadigital/bienestar-api/internal/storage/postgres"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func TestCreateVenueValidationOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	valid := CreateVenueRequest{
		Name:        "Parque Amarilis",
		Description: "Open air park with trails",
		Address:     "Jr. Dos de Mayo 123",
		Latitude:    -9.3,
		Longitude:   -75.9,
	}

	tests := []struct {
		name    string
		mutate  func(r *CreateVenueRequest)
		message string
	}{
		{"everything wrong reports the name", func(r *CreateVenueRequest) {
			r.Name, r.Description, r.Latitude = "ab", "short", 200
		}, "name must be at least 3 characters long"},
		{"blank padded name", func(r *CreateVenueRequest) { r.Name = "  a  " }, "name must be at least 3 characters long"},
		{"description", func(r *CreateVenueRequest) { r.Description = "too short" }, "description must be at least 10 characters long"},
		{"address", func(r *CreateVenueRequest) { r.Address = "Jr." }, "address must be at least 5 characters long"},
		{"latitude", func(r *CreateVenueRequest) { r.Latitude = 91.5 }, "invalid latitude (91.5), must be between -90 and 90"},
		{"longitude", func(r *CreateVenueRequest) { r.Longitude = -180.5 }, "invalid longitude (-180.5), must be between -180 and 180"},
		{"nan latitude", func(r *CreateVenueRequest) { r.Latitude = math.NaN() }, "invalid latitude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)

			res, err := env.venues.CreateVenue(ctx, req, nil)
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Equal(t, common.KindInvalid, res.Kind)
			assert.True(t, strings.HasPrefix(res.Message, tt.message), res.Message)
		})
	}

	count, err := env.store.Venues().CountActive(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCreateVenueDerivesMapURLAndStampsCreator(t *testing.T) {
	env := newTestEnv(t)
	actor := &common.Actor{ID: uuid.New()}

	res, err := env.venues.CreateVenue(context.Background(), CreateVenueRequest{
		Name:        "  Parque Amarilis  ",
		Description: "Open air park with trails",
		Address:     "Jr. Dos de Mayo 123",
		Latitude:    -9.3,
		Longitude:   -75.9,
	}, actor)
	require.NoError(t, err)
	require.True(t, res.Success)

	assert.Equal(t, "Parque Amarilis", res.Payload.Name)
	assert.Equal(t, "https://www.google.com/maps?q=-9.3,-75.9", res.Payload.MapURL)
	require.NotNil(t, res.Payload.CreatedBy)
	assert.Equal(t, actor.ID, *res.Payload.CreatedBy)

	custom, err := env.venues.CreateVenue(context.Background(), CreateVenueRequest{
		Name:        "Studio Zen",
		Description: "Indoor studio downtown",
		Address:     "Jr. Huallayco 456",
		Latitude:    0,
		Longitude:   0,
		MapURL:      "https://maps.example/zen",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://maps.example/zen", custom.Payload.MapURL)
	assert.Nil(t, custom.Payload.CreatedBy)
}

func TestUpdateVenueIsPartial(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	v := env.venue(t, "Parque Amarilis", -9.3, -75.9)

	res, err := env.venues.UpdateVenue(ctx, v.ID, UpdateVenueRequest{Name: strPtr("Parque Nuevo")})
	require.NoError(t, err)
	require.True(t, res.Success)

	got, err := env.venues.GetVenue(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "Parque Nuevo", got.Payload.Name)
	assert.Equal(t, v.Description, got.Payload.Description)
	assert.Equal(t, v.Address, got.Payload.Address)
	assert.Equal(t, v.Latitude, got.Payload.Latitude)
	assert.Equal(t, v.MapURL, got.Payload.MapURL)
}

func TestConcurrentVenueUpdatesKeepBothFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	v := env.venue(t, "Parque Amarilis", -9.3, -75.9)

	var wg sync.WaitGroup
	for _, req := range []UpdateVenueRequest{
		{Name: strPtr("Parque Nuevo")},
		{Address: strPtr("Jr. Dos de Mayo 1020")},
	} {
		wg.Add(1)
		go func(req UpdateVenueRequest) {
			defer wg.Done()
			res, err := env.venues.UpdateVenue(ctx, v.ID, req)
			assert.NoError(t, err)
			assert.True(t, res.Success)
		}(req)
	}
	wg.Wait()

	got, err := env.venues.GetVenue(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "Parque Nuevo", got.Payload.Name)
	assert.Equal(t, "Jr. Dos de Mayo 1020", got.Payload.Address)
}

func TestUpdateVenueRejectsInvalidFieldsWithoutWriting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	v := env.venue(t, "Parque Amarilis", -9.3, -75.9)

	res, err := env.venues.UpdateVenue(ctx, v.ID, UpdateVenueRequest{
		Name:     strPtr("Valid name"),
		Latitude: floatPtr(120),
	})
	require.NoError(t, err)
	assert.Equal(t, common.KindInvalid, res.Kind)

	got, err := env.venues.GetVenue(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "Parque Amarilis", got.Payload.Name)

	res, err = env.venues.UpdateVenue(ctx, uuid.New(), UpdateVenueRequest{Name: strPtr("Valid name")})
	require.NoError(t, err)
	assert.Equal(t, common.KindNotFound, res.Kind)
}

func TestUpdateVenueMapURLFollowsCoordinate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	derived := env.venue(t, "Parque Amarilis", -9.3, -75.9)

	res, err := env.venues.UpdateVenue(ctx, derived.ID, UpdateVenueRequest{Latitude: floatPtr(-9.31)})
	require.NoError(t, err)
	assert.Equal(t, "https://www.google.com/maps?q=-9.31,-75.9", res.Payload.MapURL)

	custom, err := env.venues.CreateVenue(ctx, CreateVenueRequest{
		Name:        "Studio Zen",
		Description: "Indoor studio downtown",
		Address:     "Jr. Huallayco 456",
		Latitude:    -9.29,
		Longitude:   -75.99,
		MapURL:      "https://maps.example/zen",
	}, nil)
	require.NoError(t, err)

	res, err = env.venues.UpdateVenue(ctx, custom.Payload.ID, UpdateVenueRequest{Longitude: floatPtr(-75.98)})
	require.NoError(t, err)
	assert.Equal(t, "https://maps.example/zen", res.Payload.MapURL, "custom links are kept")

	res, err = env.venues.UpdateVenue(ctx, custom.Payload.ID, UpdateVenueRequest{MapURL: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "https://www.google.com/maps?q=-9.29,-75.98", res.Payload.MapURL, "an empty link is derived again")
}

func TestFindNearby(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	far := env.venue(t, "Far retreat", -9.39, -75.9)
	center := env.venue(t, "Center park", -9.3, -75.9)
	near := env.venue(t, "Near studio", -9.309, -75.9)

	results, err := env.venues.FindNearby(ctx, -9.3, -75.9, 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, center.ID, results[0].Venue.ID)
	assert.Equal(t, 0.0, results[0].DistanceKm)
	assert.Equal(t, near.ID, results[1].Venue.ID)
	assert.Equal(t, geo.Round2(geo.Distance(-9.3, -75.9, -9.309, -75.9)), results[1].DistanceKm)

	results, err = env.venues.FindNearby(ctx, -9.3, -75.9, 50)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, far.ID, results[2].Venue.ID)

	results, err = env.venues.FindNearby(ctx, 95, -75.9, 50)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestFindNearbyCacheIsInvalidatedByWrites(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.venue(t, "Center park", -9.3, -75.9)

	results, err := env.venues.FindNearby(ctx, -9.3, -75.9, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)

	added := env.venue(t, "Near studio", -9.301, -75.9)
	results, err = env.venues.FindNearby(ctx, -9.3, -75.9, 5)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	res, err := env.venues.DeleteVenue(ctx, added.ID, false)
	require.NoError(t, err)
	require.True(t, res.Success)

	results, err = env.venues.FindNearby(ctx, -9.3, -75.9, 5)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

// scanHookStore runs afterScan once, right after ListActive has read the venues
type scanHookStore struct {
	*memory.Store
	venues *scanHookVenues
}

func (s *scanHookStore) Venues() postgres.VenueRepository { return s.venues }

type scanHookVenues struct {
	postgres.VenueRepository
	afterScan func()
}

func (r *scanHookVenues) ListActive(ctx context.Context) ([]*venue.Venue, error) {
	venues, err := r.VenueRepository.ListActive(ctx)
	if hook := r.afterScan; hook != nil {
		r.afterScan = nil
		hook()
	}
	return venues, err
}

func TestFindNearbyDoesNotCacheScanOverlappingWrite(t *testing.T) {
	base := memory.NewStore()
	venues := &scanHookVenues{VenueRepository: base.Venues()}
	svc := NewVenueService(&scanHookStore{Store: base, venues: venues}, cache.NewLocal(time.Minute), objectstore.NewMemory())
	ctx := context.Background()

	created, err := svc.CreateVenue(ctx, CreateVenueRequest{
		Name:        "Center park",
		Description: "A quiet place for practice",
		Address:     "Av. Universitaria 601",
		Latitude:    -9.3,
		Longitude:   -75.9,
	}, nil)
	require.NoError(t, err)
	require.True(t, created.Success)

	venues.afterScan = func() {
		res, err := svc.DeleteVenue(ctx, created.Payload.ID, false)
		require.NoError(t, err)
		require.True(t, res.Success)
	}

	results, err := svc.FindNearby(ctx, -9.3, -75.9, 5)
	require.NoError(t, err)
	assert.Len(t, results, 1, "the scan ran before the delete")

	count, err := base.Venues().CountActive(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	results, err = svc.FindNearby(ctx, -9.3, -75.9, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestListVenuesSearch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.venue(t, "Parque Amarilis", -9.3, -75.9)
	env.venue(t, "Studio Zen", -9.3, -75.9)

	page, err := env.venues.ListVenues(ctx, "zen", postgres.PaginationParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Studio Zen", page.Items[0].Name)

	page, err = env.venues.ListVenues(ctx, " z ", postgres.PaginationParams{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2, "short queries list everything")
	assert.Equal(t, int64(2), page.Total)
}

func TestDeleteVenue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hosting := env.venue(t, "Parque Amarilis", -9.3, -75.9)
	env.event(t, hosting, 10)

	res, err := env.venues.DeleteVenue(ctx, hosting.ID, true)
	require.NoError(t, err)
	assert.Equal(t, common.KindConflict, res.Kind)
	assert.Contains(t, res.Message, "1 events")

	empty := env.venue(t, "Studio Zen", -9.3, -75.9)
	res, err = env.venues.DeleteVenue(ctx, empty.ID, false)
	require.NoError(t, err)
	assert.True(t, res.Success)

	got, err := env.venues.GetVenue(ctx, empty.ID)
	require.NoError(t, err)
	assert.Equal(t, common.KindNotFound, got.Kind)

	res, err = env.venues.DeleteVenue(ctx, empty.ID, true)
	require.NoError(t, err)
	assert.True(t, res.Success, "inactive venues can still be removed")

	res, err = env.venues.DeleteVenue(ctx, empty.ID, true)
	require.NoError(t, err)
	assert.Equal(t, common.KindNotFound, res.Kind)
}

func TestVenueStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := &common.Actor{ID: uuid.New()}

	_, err := env.venues.CreateVenue(ctx, CreateVenueRequest{
		Name:        "Mine",
		Description: "A place I registered",
		Address:     "Jr. Dos de Mayo 123",
		Latitude:    -9.3,
		Longitude:   -75.9,
	}, actor)
	require.NoError(t, err)
	env.venue(t, "Someone else's", -9.3, -75.9)

	stats, err := env.venues.Stats(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalVenues)
	assert.Equal(t, int64(1), stats.CreatedByYou)

	stats, err = env.venues.Stats(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, stats.CreatedByYou)
}

func TestVenuePhoto(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	v := env.venue(t, "Parque Amarilis", -9.3, -75.9)

	missing, err := env.venues.PhotoURL(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, common.KindNotFound, missing.Kind)

	res, err := env.venues.SetPhoto(ctx, v.ID, strings.NewReader("pdf"), 3, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, common.KindInvalid, res.Kind)

	res, err = env.venues.SetPhoto(ctx, v.ID, strings.NewReader("png"), 3, "image/png")
	require.NoError(t, err)
	require.True(t, res.Success)
	first := res.Payload.PhotoKey
	assert.NotEmpty(t, first)

	res, err = env.venues.SetPhoto(ctx, v.ID, strings.NewReader("jpg"), 3, "image/jpeg")
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.NotEqual(t, first, res.Payload.PhotoKey)
	assert.Equal(t, 1, env.photos.Len(), "the previous photo is removed")

	url, err := env.venues.PhotoURL(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "http://objects.local/"+res.Payload.PhotoKey, url.Payload)
}
