package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	tokens "github.com/gravadigital/bienestar-api/internal/auth"
	"github.com/gravadigital/bienestar-api/internal/cache"
	"github.com/gravadigital/bienestar-api/internal/domain/common"
	"github.com/gravadigital/bienestar-api/internal/domain/venue"
	"github.com/gravadigital/bienestar-api/internal/identity"
	"github.com/gravadigital/bienestar-api/internal/middleware/auth"
	"github.com/gravadigital/bienestar-api/internal/notify"
	"github.com/gravadigital/bienestar-api/internal/objectstore"
	"github.com/gravadigital/bienestar-api/internal/services"
	"github.com/gravadigital/bienestar-api/internal/storage/memory"
)

// envelope decodes both the success and the error response shapes
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    int             `json:"code"`
}

type handlerEnv struct {
	store    *memory.Store
	photos   *objectstore.Memory
	venues   *services.VenueService
	events   *services.EventService
	accounts *services.AccountService
	tokens   *tokens.TokenManager
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	photos := objectstore.NewMemory()
	return &handlerEnv{
		store:    store,
		photos:   photos,
		venues:   services.NewVenueService(store, cache.NewLocal(time.Minute), photos),
		events:   services.NewEventService(store, notify.Noop{}),
		accounts: services.NewAccountService(store, identity.NewStoreWithCost(store.Accounts(), bcrypt.MinCost), notify.Noop{}),
		tokens:   tokens.NewTokenManager("test-secret", "test", time.Hour),
	}
}

// router mounts the handlers with actor as the authenticated account
func (env *handlerEnv) router(actor *common.Actor) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if actor != nil {
			auth.SetActor(c, actor)
		}
		c.Next()
	})

	vh := NewVenueHandler(env.venues)
	eh := NewEventHandler(env.events)
	ah := NewAccountHandler(env.accounts)
	auh := NewAuthHandler(env.accounts, env.tokens)

	r.POST("/auth/register", auh.Register)
	r.POST("/auth/login", auh.Login)

	r.GET("/venues", vh.ListVenues)
	r.POST("/venues", vh.CreateVenue)
	r.GET("/venues/nearby", vh.NearbyVenues)
	r.GET("/venues/:id", vh.GetVenue)
	r.DELETE("/venues/:id/permanent", vh.DeleteVenuePermanently)
	r.PUT("/venues/:id/photo", vh.UploadPhoto)
	r.GET("/venues/:id/photo", vh.GetPhoto)

	r.GET("/events", eh.ListEvents)
	r.POST("/events", eh.CreateEvent)
	r.GET("/events/:id", eh.GetEvent)
	r.POST("/events/:id/enrollment", eh.Enroll)
	r.DELETE("/events/:id/enrollment", eh.Unenroll)

	r.GET("/accounts/me", ah.Me)
	r.GET("/accounts", ah.ListAccounts)
	return r
}

func (env *handlerEnv) register(t *testing.T, username string) *common.Actor {
	t.Helper()
	res, err := env.accounts.Register(context.Background(), services.RegisterRequest{
		Username:        username,
		Email:           username + "@example.com",
		Password:        "secreto1",
		PasswordConfirm: "secreto1",
	})
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	return &common.Actor{ID: res.Payload.ID}
}

func (env *handlerEnv) venue(t *testing.T) *venue.Venue {
	t.Helper()
	res, err := env.venues.CreateVenue(context.Background(), services.CreateVenueRequest{
		Name:        "Parque Amarilis",
		Description: "Open air park",
		Address:     "Jr. Huallayco 450",
		Latitude:    -9.3,
		Longitude:   -75.9,
	}, nil)
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	return res.Payload
}

func do(r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestCreateAndGetVenue(t *testing.T) {
	env := newHandlerEnv(t)
	r := env.router(env.register(t, "ana"))

	w, body := do(r, http.MethodPost, "/venues", gin.H{
		"name":        "Coliseo Amarilis",
		"description": "Indoor court",
		"address":     "Jr. Huánuco 123",
		"latitude":    -9.93,
		"longitude":   -76.24,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, body.Success)

	var created venue.Venue
	require.NoError(t, json.Unmarshal(body.Data, &created))
	assert.Equal(t, "https://www.google.com/maps?q=-9.93,-76.24", created.MapURL)

	w, body = do(r, http.MethodGet, "/venues/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(body.Data), "Coliseo Amarilis")

	w, body = do(r, http.MethodGet, "/venues/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "id must be a valid UUID", body.Error)

	w, _ = do(r, http.MethodGet, "/venues/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateVenueValidation(t *testing.T) {
	env := newHandlerEnv(t)
	r := env.router(nil)

	w, body := do(r, http.MethodPost, "/venues", gin.H{
		"name":        "Coliseo",
		"description": "Indoor court",
		"address":     "Jr. Huánuco 123",
		"latitude":    95,
		"longitude":   -76.24,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, body.Success)
	assert.Contains(t, body.Error, "latitude")

	w, _ = do(r, http.MethodPost, "/venues", gin.H{"name": "Coliseo"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNearbyVenues(t *testing.T) {
	env := newHandlerEnv(t)
	r := env.router(nil)
	env.venue(t)

	w, body := do(r, http.MethodGet, "/venues/nearby", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Count    int     `json:"count"`
		RadiusKm float64 `json:"radius_km"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Equal(t, 1, data.Count)
	assert.Equal(t, DefaultRadiusKm, data.RadiusKm)

	for _, query := range []string{"lat=abc", "radius=NaN", "radius=Inf", "radius=-Inf", "lat=NaN", "lon=%2BInf"} {
		w, _ = do(r, http.MethodGet, "/venues/nearby?"+query, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
		assert.Contains(t, w.Body.String(), "must be numbers", query)
	}

	w, body = do(r, http.MethodGet, "/venues/nearby?lat=95", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Zero(t, data.Count)
}

func TestDeleteVenueWithEventsConflicts(t *testing.T) {
	env := newHandlerEnv(t)
	actor := env.register(t, "ana")
	r := env.router(actor)
	v := env.venue(t)

	w, _ := do(r, http.MethodPost, "/events", gin.H{
		"title":        "Yoga al amanecer",
		"description":  "Morning yoga session for all levels",
		"start_at":     time.Now().Add(48 * time.Hour),
		"end_at":       time.Now().Add(50 * time.Hour),
		"venue_id":     v.ID,
		"max_capacity": 10,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, body := do(r, http.MethodDelete, "/venues/"+v.ID.String()+"/permanent", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "venue still hosts 1 events, delete them first", body.Error)
}

func uploadPhoto(r *gin.Engine, path, contentType string, content []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="photo"; filename="cover"`)
	h.Set("Content-Type", contentType)
	part, _ := mw.CreatePart(h)
	_, _ = part.Write(content)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPut, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestVenuePhoto(t *testing.T) {
	env := newHandlerEnv(t)
	r := env.router(nil)
	v := env.venue(t)
	path := "/venues/" + v.ID.String() + "/photo"

	w, _ := do(r, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = uploadPhoto(r, path, "application/pdf", []byte("%PDF-1.4"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "JPEG, PNG or WebP")
	assert.Zero(t, env.photos.Len())

	w = uploadPhoto(r, path, "image/png", []byte("\x89PNG\r\n\x1a\n"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, env.photos.Len())

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "venues/"+v.ID.String()+"/cover-")
}

func TestEnrollmentFlow(t *testing.T) {
	env := newHandlerEnv(t)
	ana := env.register(t, "ana")
	ben := env.register(t, "ben")
	v := env.venue(t)

	w, body := do(env.router(ana), http.MethodPost, "/events", gin.H{
		"title":        "Yoga al amanecer",
		"description":  "Morning yoga session for all levels",
		"start_at":     time.Now().Add(48 * time.Hour),
		"end_at":       time.Now().Add(50 * time.Hour),
		"venue_id":     v.ID,
		"max_capacity": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID             string `json:"id"`
		RemainingSeats int    `json:"remaining_seats"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &created))
	assert.Equal(t, 1, created.RemainingSeats)
	enrollment := "/events/" + created.ID + "/enrollment"

	w, body = do(env.router(ana), http.MethodPost, enrollment, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, `you are enrolled in "Yoga al amanecer"`, body.Message)

	w, body = do(env.router(ana), http.MethodPost, enrollment, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, body = do(env.router(ben), http.MethodPost, enrollment, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "the event is full (capacity: 1)", body.Error)

	w, body = do(env.router(ana), http.MethodGet, "/events/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		Enrolled bool `json:"enrolled"`
		Event    struct {
			IsFull bool `json:"is_full"`
		} `json:"event"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &detail))
	assert.True(t, detail.Enrolled)
	assert.True(t, detail.Event.IsFull)

	w, _ = do(env.router(ana), http.MethodDelete, enrollment, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, body = do(env.router(ana), http.MethodDelete, enrollment, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "you are not enrolled in this event", body.Error)

	w, _ = do(env.router(nil), http.MethodPost, enrollment, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListEventsFilter(t *testing.T) {
	env := newHandlerEnv(t)
	r := env.router(env.register(t, "ana"))
	v := env.venue(t)

	for i := 0; i < 3; i++ {
		w, _ := do(r, http.MethodPost, "/events", gin.H{
			"title":        fmt.Sprintf("Taller %d", i+1),
			"description":  "Weekly workshop for the whole community",
			"start_at":     time.Now().Add(time.Duration(24*(i+1)) * time.Hour),
			"end_at":       time.Now().Add(time.Duration(24*(i+1)+2) * time.Hour),
			"venue_id":     v.ID,
			"max_capacity": 5,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w, body := do(r, http.MethodGet, "/events?filter=upcoming&page_size=2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Items      []map[string]any `json:"items"`
		Total      int64            `json:"total"`
		TotalPages int              `json:"total_pages"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &page))
	assert.Len(t, page.Items, 2)
	assert.EqualValues(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Contains(t, page.Items[0], "remaining_seats")
}

func TestAuthHandlers(t *testing.T) {
	env := newHandlerEnv(t)
	r := env.router(nil)

	w, body := do(r, http.MethodPost, "/auth/register", gin.H{
		"username":         "lucia",
		"email":            "lucia@example.com",
		"password":         "secreto1",
		"password_confirm": "secreto1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var issued struct {
		Token     string `json:"token"`
		TokenType string `json:"token_type"`
		ExpiresIn int    `json:"expires_in"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &issued))
	assert.Equal(t, "Bearer", issued.TokenType)
	assert.Equal(t, 3600, issued.ExpiresIn)

	claims, err := env.tokens.Parse(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "lucia", claims.Username)

	w, body = do(r, http.MethodPost, "/auth/register", gin.H{
		"username":         "lucia",
		"email":            "lucia@example.com",
		"password":         "secreto1",
		"password_confirm": "secreto1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "username already taken", body.Error)

	w, body = do(r, http.MethodPost, "/auth/login", gin.H{"username": "lucia", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid credentials", body.Error)

	w, _ = do(r, http.MethodPost, "/auth/login", gin.H{"username": "lucia", "password": "secreto1"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAccountHandlers(t *testing.T) {
	env := newHandlerEnv(t)
	ana := env.register(t, "ana")

	w, body := do(env.router(ana), http.MethodGet, "/accounts/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(body.Data), `"username":"ana"`)
	assert.NotContains(t, string(body.Data), "password")

	w, _ = do(env.router(ana), http.MethodGet, "/accounts", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	staff := &common.Actor{ID: ana.ID, IsStaff: true}
	w, _ = do(env.router(staff), http.MethodGet, "/accounts", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
