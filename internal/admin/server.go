// Package admin exposes the master's management surface as a small
// token-protected JSON API: services, the weekly schedule, holidays,
// settings, appointment review and an xlsx export.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"zapisnik/internal/database"
	"zapisnik/internal/model"
	"zapisnik/internal/slots"
)

// Server is the admin HTTP API.
type Server struct {
	db     *database.DB
	token  string
	logger zerolog.Logger
}

func NewServer(db *database.DB, token string, logger zerolog.Logger) *Server {
	return &Server{db: db, token: token, logger: logger}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/services", s.handleServices)
	mux.HandleFunc("/api/services/", s.handleService)
	mux.HandleFunc("/api/schedule", s.handleSchedule)
	mux.HandleFunc("/api/holidays", s.handleHolidays)
	mux.HandleFunc("/api/holidays/", s.handleHoliday)
	mux.HandleFunc("/api/settings", s.handleSettings)
	mux.HandleFunc("/api/appointments", s.handleAppointments)
	mux.HandleFunc("/api/appointments/", s.handleAppointmentStatus)
	mux.HandleFunc("/api/export", s.handleExport)

	return s.auth(mux)
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if s.token == "" || token != s.token {
			s.logger.Warn().Str("path", r.URL.Path).Msg("unauthorized admin request")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- services ---

type serviceRequest struct {
	Name            string  `json:"name"`
	DurationMinutes int     `json:"duration_minutes"`
	Price           float64 `json:"price"`
	Description     string  `json:"description"`
	Active          *bool   `json:"active"`
}

func (req *serviceRequest) validate() string {
	if strings.TrimSpace(req.Name) == "" {
		return "name is required"
	}
	if req.DurationMinutes <= 0 {
		return "duration_minutes must be positive"
	}
	if req.Price < 0 {
		return "price must not be negative"
	}
	return ""
}

func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		services, err := s.db.ListServices(r.Context())
		if err != nil {
			s.internalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, services)

	case http.MethodPost:
		var req serviceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if msg := req.validate(); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		svc := model.Service{
			Name:            strings.TrimSpace(req.Name),
			DurationMinutes: req.DurationMinutes,
			Price:           req.Price,
			Description:     req.Description,
			Active:          true,
		}
		if req.Active != nil {
			svc.Active = *req.Active
		}
		if err := s.db.CreateService(r.Context(), &svc); err != nil {
			s.internalError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, svc)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleService(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r.URL.Path, "/api/services/")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPut:
		svc, err := s.db.GetService(r.Context(), id)
		if err != nil {
			s.internalError(w, err)
			return
		}
		if svc == nil {
			writeError(w, http.StatusNotFound, "service not found")
			return
		}
		var req serviceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if msg := req.validate(); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		svc.Name = strings.TrimSpace(req.Name)
		svc.DurationMinutes = req.DurationMinutes
		svc.Price = req.Price
		svc.Description = req.Description
		if req.Active != nil {
			svc.Active = *req.Active
		}
		if err := s.db.UpdateService(r.Context(), svc); err != nil {
			s.internalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, svc)

	case http.MethodDelete:
		if err := s.db.DeactivateService(r.Context(), id); err != nil {
			s.internalError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// --- schedule ---

type workDayRequest struct {
	Weekday   int    `json:"weekday"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	IsWorking bool   `json:"is_working"`
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		days, err := s.db.ListWorkSchedule(r.Context())
		if err != nil {
			s.internalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, days)

	case http.MethodPut:
		var req workDayRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if req.Weekday < 0 || req.Weekday > 6 {
			writeError(w, http.StatusBadRequest, "weekday must be 0..6 (Monday=0)")
			return
		}
		if req.IsWorking {
			startH, startM, err := slots.ParseClock(req.StartTime)
			if err != nil {
				writeError(w, http.StatusBadRequest, "start_time must be HH:MM")
				return
			}
			endH, endM, err := slots.ParseClock(req.EndTime)
			if err != nil {
				writeError(w, http.StatusBadRequest, "end_time must be HH:MM")
				return
			}
			if endH*60+endM <= startH*60+startM {
				writeError(w, http.StatusBadRequest, "end_time must be after start_time")
				return
			}
		}
		day := model.WorkDay{
			Weekday:   req.Weekday,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			IsWorking: req.IsWorking,
		}
		if err := s.db.UpdateWorkDay(r.Context(), &day); err != nil {
			s.internalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, day)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// --- holidays ---

type holidayRequest struct {
	Date   string `json:"date"` // YYYY-MM-DD
	Reason string `json:"reason"`
}

func (s *Server) handleHolidays(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		holidays, err := s.db.ListHolidays(r.Context())
		if err != nil {
			s.internalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, holidays)

	case http.MethodPost:
		var req holidayRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		h := model.Holiday{Date: date, Reason: req.Reason}
		if err := s.db.CreateHoliday(r.Context(), &h); err != nil {
			// Most likely the unique index on date.
			writeError(w, http.StatusConflict, "holiday already exists")
			return
		}
		writeJSON(w, http.StatusCreated, h)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleHoliday(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, ok := pathID(w, r.URL.Path, "/api/holidays/")
	if !ok {
		return
	}
	if err := s.db.DeleteHoliday(r.Context(), id); err != nil {
		s.internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- settings ---

type settingsRequest struct {
	PlanningHorizonDays int    `json:"planning_horizon_days"`
	Timezone            string `json:"timezone"`
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := s.db.GetSettings(r.Context())
		if err != nil {
			s.internalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)

	case http.MethodPut:
		settings, err := s.db.GetSettings(r.Context())
		if err != nil {
			s.internalError(w, err)
			return
		}
		var req settingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		settings.PlanningHorizonDays = req.PlanningHorizonDays
		settings.Timezone = req.Timezone
		if err := s.db.UpdateSettings(r.Context(), settings); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, settings)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// --- appointments ---

func (s *Server) handleAppointments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	start, end, err := rangeParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	appts, err := s.db.ListAppointmentsBetween(r.Context(), start, end)
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appts)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	path := strings.TrimSuffix(r.URL.Path, "/status")
	id, ok := pathID(w, path, "/api/appointments/")
	if !ok {
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	switch req.Status {
	case model.StatusPending, model.StatusConfirmed, model.StatusCancelled, model.StatusCompleted:
	default:
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	if err := s.db.UpdateAppointmentStatus(r.Context(), id, req.Status); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// rangeParams parses ?from=YYYY-MM-DD&to=YYYY-MM-DD, defaulting to the
// next 30 days.
func rangeParams(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	start := now.AddDate(0, 0, -1)
	end := now.AddDate(0, 0, 30)

	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("from must be YYYY-MM-DD")
		}
		start = parsed
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("to must be YYYY-MM-DD")
		}
		end = parsed.AddDate(0, 0, 1)
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, errors.New("from must be before to")
	}
	return start, end, nil
}

func pathID(w http.ResponseWriter, path, prefix string) (int64, bool) {
	raw := strings.TrimPrefix(path, prefix)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.logger.Error().Err(err).Msg("admin api error")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
