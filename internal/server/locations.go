package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"trackitnow-backend/internal/metrics"
	"trackitnow-backend/internal/store"
	"trackitnow-backend/internal/types"
)

// GeolocationServer records parcel and courier positions.
type GeolocationServer struct {
	router    *chi.Mux
	positions store.PositionStore
	logger    zerolog.Logger
	now       func() time.Time
}

func NewGeolocationServer(opts Options, positions store.PositionStore) *GeolocationServer {
	s := &GeolocationServer{
		router:    newRouter(opts),
		positions: positions,
		logger:    opts.Logger,
		now:       time.Now,
	}
	s.router.Route("/locations", func(r chi.Router) {
		r.With(rateLimit(opts.RateLimitPerMinute)).Post("/parcels/{id}", s.handleSetParcelPosition)
		r.Get("/parcels/{id}", s.handleGetParcelPosition)
		r.With(rateLimit(opts.RateLimitPerMinute)).Post("/couriers/{id}", s.handleAddCourierPosition)
		r.Get("/couriers/{id}", s.handleGetCourierPositions)
	})
	return s
}

func (s *GeolocationServer) Router() http.Handler { return s.router }

// decodePosition validates a position body, stamping it with the current
// time when the client sent none.
func (s *GeolocationServer) decodePosition(r *http.Request) (types.Position, error) {
	var req types.PositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return types.Position{}, errors.New("invalid JSON body")
	}
	if req.Latitude == nil || req.Longitude == nil {
		return types.Position{}, errors.New("latitude and longitude are required")
	}
	if *req.Latitude < -90 || *req.Latitude > 90 {
		return types.Position{}, errors.New("latitude must be between -90 and 90")
	}
	if *req.Longitude < -180 || *req.Longitude > 180 {
		return types.Position{}, errors.New("longitude must be between -180 and 180")
	}
	p := types.Position{Latitude: *req.Latitude, Longitude: *req.Longitude}
	if req.Timestamp != nil && !req.Timestamp.IsZero() {
		p.Timestamp = req.Timestamp.UTC()
	} else {
		p.Timestamp = s.now().UTC()
	}
	return p, nil
}

// POST /locations/parcels/{id}
func (s *GeolocationServer) handleSetParcelPosition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := s.decodePosition(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.positions.SetParcelPosition(r.Context(), id, p); err != nil {
		s.logger.Error().Err(err).Str("parcel", id).Msg("failed to save parcel position")
		writeError(w, http.StatusInternalServerError, "failed to save position")
		return
	}
	metrics.PositionUpdatesTotal.WithLabelValues("parcel").Inc()
	writeMessage(w, http.StatusOK, fmt.Sprintf("Position of parcel %s updated", id))
}

// GET /locations/parcels/{id}
func (s *GeolocationServer) handleGetParcelPosition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := s.positions.ParcelPosition(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "parcel not found")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("parcel", id).Msg("failed to load parcel position")
		writeError(w, http.StatusInternalServerError, "failed to load position")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// POST /locations/couriers/{id}
func (s *GeolocationServer) handleAddCourierPosition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := s.decodePosition(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.positions.AppendCourierPosition(r.Context(), id, p); err != nil {
		s.logger.Error().Err(err).Str("courier", id).Msg("failed to save courier position")
		writeError(w, http.StatusInternalServerError, "failed to save position")
		return
	}
	metrics.PositionUpdatesTotal.WithLabelValues("courier").Inc()
	writeMessage(w, http.StatusOK, fmt.Sprintf("Position of courier %s added", id))
}

// GET /locations/couriers/{id}
func (s *GeolocationServer) handleGetCourierPositions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ps, err := s.positions.CourierPositions(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "courier not found")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("courier", id).Msg("failed to load courier positions")
		writeError(w, http.StatusInternalServerError, "failed to load positions")
		return
	}
	writeJSON(w, http.StatusOK, ps)
}
