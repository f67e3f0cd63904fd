// Package api exposes nearest-amenity matching and price prediction over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hdb-resale/resale-cli/internal/model"
	"github.com/hdb-resale/resale-cli/internal/nearest"
	"github.com/hdb-resale/resale-cli/internal/predict"
)

// DefaultMaxBodyBytes caps request bodies.
const DefaultMaxBodyBytes = 32 << 20

// Options configures the router.
type Options struct {
	AllowedOrigins []string
	Concurrency    int
	MaxBodyBytes   int64
	// Model may be nil, in which case /v1/predict answers 503.
	Model *predict.Model
}

type server struct {
	opts Options
	log  *zap.Logger
}

// NewRouter builds the HTTP handler.
func NewRouter(opts Options) http.Handler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	s := &server{opts: opts, log: zap.L().With(zap.String("component", "api"))}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/nearest", s.nearest)
		r.Post("/predict", s.predict)
	})
	return r
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"model_loaded": s.opts.Model != nil,
	})
}

// point accepts null or missing coordinates, which become NaN and are
// rejected by the matcher.
type point struct {
	ID        string   `json:"id"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (p point) entity() model.LocatedEntity {
	lat, lon := math.NaN(), math.NaN()
	if p.Latitude != nil {
		lat = *p.Latitude
	}
	if p.Longitude != nil {
		lon = *p.Longitude
	}
	return model.NewLocatedEntity(p.ID, lat, lon)
}

type nearestRequest struct {
	Houses    []point `json:"houses"`
	Amenities []point `json:"amenities"`
}

type nearestResponse struct {
	Results []model.MatchResult `json:"results"`
}

func (s *server) nearest(w http.ResponseWriter, r *http.Request) {
	var req nearestRequest
	if !s.decode(w, r, &req) {
		return
	}

	houses := make([]model.LocatedEntity, len(req.Houses))
	for i, p := range req.Houses {
		houses[i] = p.entity()
	}
	amenities := make([]model.LocatedEntity, len(req.Amenities))
	for i, p := range req.Amenities {
		amenities[i] = p.entity()
	}

	set, err := nearest.FindNearest(r.Context(), houses, amenities, nearest.WithConcurrency(s.opts.Concurrency))
	if err != nil {
		s.fail(w, err)
		return
	}
	results := set.Results()
	if results == nil {
		results = []model.MatchResult{}
	}
	writeJSON(w, http.StatusOK, nearestResponse{Results: results})
}

type predictResponse struct {
	Price float64 `json:"price"`
}

func (s *server) predict(w http.ResponseWriter, r *http.Request) {
	if s.opts.Model == nil {
		writeError(w, http.StatusServiceUnavailable, "no price model loaded")
		return
	}
	var in predict.Input
	if !s.decode(w, r, &in) {
		return
	}
	price, err := s.opts.Model.Predict(in)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, predictResponse{Price: price})
}

func (s *server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func (s *server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, nearest.ErrInvalidInput), errors.Is(err, predict.ErrUnknownCategory):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, nearest.ErrComputation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
