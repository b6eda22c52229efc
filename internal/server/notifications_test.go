package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackitnow-backend/internal/store"
	"trackitnow-backend/internal/types"
)

func newTestNotificationServer() (*NotificationServer, *store.MemoryDocumentStore) {
	docs := store.NewMemoryDocumentStore()
	docs.AddUser(types.User{ID: "admin1", Role: types.RoleAdmin})
	docs.AddUser(types.User{ID: "client1", Role: types.RoleClient})
	docs.AddUser(types.User{ID: "courier1", Role: types.RoleCourier})
	docs.AddUser(types.User{ID: "courier2", Role: types.RoleCourier})

	s := NewNotificationServer(testOptions(), docs)
	s.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s, docs
}

func listFor(t *testing.T, h http.Handler, userID string) []types.Notification {
	t.Helper()
	rec := doJSON(t, h, http.MethodGet, "/api/notifications/"+userID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	return decode[[]types.Notification](t, rec)
}

func TestNotifications_CreateAndList(t *testing.T) {
	s, _ := newTestNotificationServer()
	h := s.Router()

	rec := doJSON(t, h, http.MethodPost, "/api/notifications", types.NotifyRequest{
		UserID:  "client1",
		Message: "Your parcel has shipped",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[types.Notification](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, types.NotificationStatus, created.Type)
	assert.False(t, created.Read)

	ns := listFor(t, h, "client1")
	require.Len(t, ns, 1)
	assert.Equal(t, created.ID, ns[0].ID)
	assert.Equal(t, "Your parcel has shipped", ns[0].Message)
}

func TestNotifications_ListEmpty(t *testing.T) {
	s, _ := newTestNotificationServer()
	rec := doJSON(t, s.Router(), http.MethodGet, "/api/notifications/nobody", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestNotifications_Validation(t *testing.T) {
	s, _ := newTestNotificationServer()
	h := s.Router()

	tests := []struct {
		name string
		path string
		body any
		want string
	}{
		{"missing message", "/api/notifications", types.NotifyRequest{UserID: "client1"}, "message is required"},
		{"unknown type", "/api/notifications", types.NotifyRequest{Message: "hi", Type: "promo"}, `invalid notification type "promo"`},
		{"user without id", "/api/notifications/user", types.NotifyRequest{Message: "hi"}, "userId is required"},
		{"role without role", "/api/notifications/role", types.NotifyRequest{Message: "hi"}, "role is required"},
		{"parcel without id", "/api/notifications/parcel", types.NotifyRequest{Message: "hi"}, "parcelId is required"},
		{"bad json", "/api/notifications/system", "{", "invalid JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decode[types.ErrorResponse](t, rec).Error)
		})
	}
}

func TestNotifications_NotifyUser(t *testing.T) {
	s, _ := newTestNotificationServer()
	h := s.Router()

	rec := doJSON(t, h, http.MethodPost, "/api/notifications/user", types.NotifyRequest{
		UserID:   "client1",
		ParcelID: "ABC123XYZ",
		Message:  "Delivered",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[types.MessageResponse](t, rec).ID)

	ns := listFor(t, h, "client1")
	require.Len(t, ns, 1)
	assert.Equal(t, types.NotificationParcelStatus, ns[0].Type)
	assert.Equal(t, "ABC123XYZ", ns[0].ParcelID)
}

func TestNotifications_FanOutByRole(t *testing.T) {
	s, _ := newTestNotificationServer()
	h := s.Router()

	rec := doJSON(t, h, http.MethodPost, "/api/notifications/role", types.NotifyRequest{
		Role:    types.RoleCourier,
		Message: "New delivery available",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[types.MessageResponse](t, rec)
	require.NotNil(t, resp.Count)
	assert.Equal(t, 2, *resp.Count)

	for _, id := range []string{"courier1", "courier2"} {
		ns := listFor(t, h, id)
		require.Len(t, ns, 1, id)
		assert.Equal(t, types.NotificationMission, ns[0].Type)
		assert.Equal(t, types.RoleCourier, ns[0].Role)
	}
	assert.Empty(t, listFor(t, h, "client1"))
}

func TestNotifications_FanOutUnknownRole(t *testing.T) {
	s, _ := newTestNotificationServer()
	rec := doJSON(t, s.Router(), http.MethodPost, "/api/notifications/role", types.NotifyRequest{
		Role:    "ghost",
		Message: "hello",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, *decode[types.MessageResponse](t, rec).Count)
}

func TestNotifications_System(t *testing.T) {
	s, _ := newTestNotificationServer()
	h := s.Router()

	rec := doJSON(t, h, http.MethodPost, "/api/notifications/system", types.NotifyRequest{
		Type:    types.NotificationMission,
		Message: "Maintenance tonight",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, *decode[types.MessageResponse](t, rec).Count)

	ns := listFor(t, h, "admin1")
	require.Len(t, ns, 1)
	assert.Equal(t, types.NotificationSystem, ns[0].Type)
}

func TestNotifications_MarkReadAndDelete(t *testing.T) {
	s, _ := newTestNotificationServer()
	h := s.Router()

	created := decode[types.Notification](t, doJSON(t, h, http.MethodPost, "/api/notifications", types.NotifyRequest{
		UserID:  "client1",
		Message: "hello",
	}))

	rec := doJSON(t, h, http.MethodPatch, "/api/notifications/"+created.ID+"/read", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, listFor(t, h, "client1")[0].Read)

	rec = doJSON(t, h, http.MethodDelete, "/api/notifications/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, listFor(t, h, "client1"))

	assert.Equal(t, http.StatusNotFound, doJSON(t, h, http.MethodPatch, "/api/notifications/"+created.ID+"/read", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, h, http.MethodDelete, "/api/notifications/"+created.ID, nil).Code)
}

func TestNotifications_ParcelLifecycle(t *testing.T) {
	s, _ := newTestNotificationServer()
	h := s.Router()

	for i := 0; i < 2; i++ {
		rec := doJSON(t, h, http.MethodPost, "/api/notifications/parcel", types.NotifyRequest{
			UserID:   "client1",
			ParcelID: "ABC123XYZ",
			Message:  "Status changed",
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	doJSON(t, h, http.MethodPost, "/api/notifications/parcel", types.NotifyRequest{
		UserID:   "client1",
		ParcelID: "DEF456",
		Message:  "Status changed",
	})

	rec := doJSON(t, h, http.MethodDelete, "/api/notifications/parcel/ABC123XYZ", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, *decode[types.MessageResponse](t, rec).Count)

	ns := listFor(t, h, "client1")
	require.Len(t, ns, 1)
	assert.Equal(t, "DEF456", ns[0].ParcelID)
}
