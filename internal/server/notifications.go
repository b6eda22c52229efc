package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trackitnow-backend/internal/metrics"
	"trackitnow-backend/internal/store"
	"trackitnow-backend/internal/types"
)

const notificationListLimit = 100

// NotificationStore is the slice of the document store the notification
// service needs.
type NotificationStore interface {
	FindUsersByRole(ctx context.Context, role string) ([]types.User, error)
	CreateNotifications(ctx context.Context, ns ...types.Notification) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]types.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	DeleteNotification(ctx context.Context, id string) error
	DeleteNotificationsForParcel(ctx context.Context, parcelID string) (int64, error)
}

// NotificationServer stores and fans out user notifications.
type NotificationServer struct {
	router *chi.Mux
	store  NotificationStore
	logger zerolog.Logger
	now    func() time.Time
}

func NewNotificationServer(opts Options, st NotificationStore) *NotificationServer {
	s := &NotificationServer{
		router: newRouter(opts),
		store:  st,
		logger: opts.Logger,
		now:    time.Now,
	}
	limit := rateLimit(opts.RateLimitPerMinute)
	s.router.Route("/api/notifications", func(r chi.Router) {
		r.With(limit).Post("/", s.handleCreate)
		r.With(limit).Post("/user", s.handleNotifyUser)
		r.With(limit).Post("/role", s.handleNotifyRole)
		r.With(limit).Post("/system", s.handleNotifySystem)
		r.With(limit).Post("/parcel", s.handleNotifyParcel)
		r.Delete("/parcel/{parcelId}", s.handleDeleteForParcel)
		r.Get("/{userId}", s.handleList)
		r.Patch("/{id}/read", s.handleMarkRead)
		r.Delete("/{id}", s.handleDelete)
	})
	return s
}

func (s *NotificationServer) Router() http.Handler { return s.router }

func validNotificationType(t string) bool {
	switch t {
	case types.NotificationStatus, types.NotificationMission, types.NotificationSystem, types.NotificationParcelStatus:
		return true
	}
	return false
}

// decodeNotify reads a notify body, filling in defaultType when the client
// left the type out.
func decodeNotify(r *http.Request, defaultType string) (types.NotifyRequest, error) {
	var req types.NotifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, errors.New("invalid JSON body")
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return req, errors.New("message is required")
	}
	if req.Type == "" {
		req.Type = defaultType
	}
	if !validNotificationType(req.Type) {
		return req, fmt.Errorf("invalid notification type %q", req.Type)
	}
	return req, nil
}

func (s *NotificationServer) newNotification(userID, role, parcelID, typ, message string) types.Notification {
	return types.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      role,
		ParcelID:  parcelID,
		Type:      typ,
		Message:   message,
		CreatedAt: s.now().UTC(),
	}
}

func (s *NotificationServer) save(w http.ResponseWriter, r *http.Request, ns ...types.Notification) bool {
	if err := s.store.CreateNotifications(r.Context(), ns...); err != nil {
		s.logger.Error().Err(err).Int("count", len(ns)).Msg("failed to save notifications")
		writeError(w, http.StatusInternalServerError, "failed to save notification")
		return false
	}
	for _, n := range ns {
		metrics.NotificationsCreatedTotal.WithLabelValues(n.Type).Inc()
	}
	return true
}

// POST /api/notifications
func (s *NotificationServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeNotify(r, types.NotificationStatus)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n := s.newNotification(req.UserID, req.Role, req.ParcelID, req.Type, req.Message)
	if !s.save(w, r, n) {
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// POST /api/notifications/user
func (s *NotificationServer) handleNotifyUser(w http.ResponseWriter, r *http.Request) {
	req, err := decodeNotify(r, types.NotificationParcelStatus)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	n := s.newNotification(req.UserID, "", req.ParcelID, req.Type, req.Message)
	if !s.save(w, r, n) {
		return
	}
	writeJSON(w, http.StatusOK, types.MessageResponse{Message: "Notification sent", ID: n.ID})
}

// POST /api/notifications/role
func (s *NotificationServer) handleNotifyRole(w http.ResponseWriter, r *http.Request) {
	req, err := decodeNotify(r, types.NotificationMission)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Role == "" {
		writeError(w, http.StatusBadRequest, "role is required")
		return
	}
	s.fanOut(w, r, req, req.Role)
}

// POST /api/notifications/system
func (s *NotificationServer) handleNotifySystem(w http.ResponseWriter, r *http.Request) {
	req, err := decodeNotify(r, types.NotificationSystem)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Type = types.NotificationSystem
	s.fanOut(w, r, req, "")
}

// fanOut stores one copy of req per user holding role; an empty role means
// every user.
func (s *NotificationServer) fanOut(w http.ResponseWriter, r *http.Request, req types.NotifyRequest, role string) {
	users, err := s.store.FindUsersByRole(r.Context(), role)
	if err != nil {
		s.logger.Error().Err(err).Str("role", role).Msg("failed to list users")
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	ns := make([]types.Notification, 0, len(users))
	for _, u := range users {
		ns = append(ns, s.newNotification(u.ID, role, req.ParcelID, req.Type, req.Message))
	}
	if !s.save(w, r, ns...) {
		return
	}
	count := len(ns)
	writeJSON(w, http.StatusOK, types.MessageResponse{
		Message: fmt.Sprintf("Notification sent to %d user(s)", count),
		Count:   &count,
	})
}

// POST /api/notifications/parcel
func (s *NotificationServer) handleNotifyParcel(w http.ResponseWriter, r *http.Request) {
	req, err := decodeNotify(r, types.NotificationParcelStatus)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ParcelID == "" {
		writeError(w, http.StatusBadRequest, "parcelId is required")
		return
	}
	n := s.newNotification(req.UserID, "", req.ParcelID, types.NotificationParcelStatus, req.Message)
	if !s.save(w, r, n) {
		return
	}
	writeJSON(w, http.StatusOK, types.MessageResponse{Message: "Parcel notification recorded", ID: n.ID})
}

// GET /api/notifications/{userId}
func (s *NotificationServer) handleList(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	ns, err := s.store.ListNotifications(r.Context(), userID, notificationListLimit)
	if err != nil {
		s.logger.Error().Err(err).Str("user", userID).Msg("failed to list notifications")
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	if ns == nil {
		ns = []types.Notification{}
	}
	writeJSON(w, http.StatusOK, ns)
}

// PATCH /api/notifications/{id}/read
func (s *NotificationServer) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.store.MarkNotificationRead(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("id", id).Msg("failed to mark notification read")
		writeError(w, http.StatusInternalServerError, "failed to update notification")
		return
	}
	writeJSON(w, http.StatusOK, types.MessageResponse{Message: "Notification marked as read", ID: id})
}

// DELETE /api/notifications/{id}
func (s *NotificationServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.store.DeleteNotification(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("id", id).Msg("failed to delete notification")
		writeError(w, http.StatusInternalServerError, "failed to delete notification")
		return
	}
	writeJSON(w, http.StatusOK, types.MessageResponse{Message: "Notification deleted", ID: id})
}

// DELETE /api/notifications/parcel/{parcelId}
func (s *NotificationServer) handleDeleteForParcel(w http.ResponseWriter, r *http.Request) {
	parcelID := chi.URLParam(r, "parcelId")
	n, err := s.store.DeleteNotificationsForParcel(r.Context(), parcelID)
	if err != nil {
		s.logger.Error().Err(err).Str("parcel", parcelID).Msg("failed to delete parcel notifications")
		writeError(w, http.StatusInternalServerError, "failed to delete notifications")
		return
	}
	count := int(n)
	writeJSON(w, http.StatusOK, types.MessageResponse{
		Message: fmt.Sprintf("%d notification(s) deleted", count),
		Count:   &count,
	})
}
