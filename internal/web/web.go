// Package web exposes the boundary operations over HTTP. Requests and
// responses are the structured argument maps of the wire schema; every
// failure is a taxonomy error rendered as {code, message, details}.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"calbridge/internal/calerr"
	"calbridge/internal/config"
	"calbridge/internal/domain"
	"calbridge/internal/ics"
	appLog "calbridge/internal/log"
	"calbridge/internal/store"
	"calbridge/internal/usecase"
	"calbridge/internal/wire"
)

// Server routes boundary calls to the use-case layer.
type Server struct {
	cfg    *config.Config
	svc    *usecase.Service
	loc    *time.Location
	router *mux.Router
}

// NewServer constructs a Server with all routes registered.
func NewServer(cfg *config.Config, svc *usecase.Service, loc *time.Location) *Server {
	if loc == nil {
		loc = time.UTC
	}
	s := &Server{
		cfg:    cfg,
		svc:    svc,
		loc:    loc,
		router: mux.NewRouter(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler, wrapped with basic auth when
// configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// ListenAndServe starts the server on cfg.Listen and shuts down when ctx
// is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Listen,
		Handler: s.Handler(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password is treated as disabled.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="calbridge", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/permission", s.handlePermission).Methods(http.MethodGet)
	api.HandleFunc("/permission/request", s.handleRequestPermission).Methods(http.MethodPost)
	api.HandleFunc("/calendars", s.handleCalendars).Methods(http.MethodGet)
	api.HandleFunc("/calendars", s.handleCreateCalendar).Methods(http.MethodPost)
	api.HandleFunc("/calendars/default", s.handleDefaultCalendar).Methods(http.MethodGet)
	api.HandleFunc("/calendars/{calendarId}", s.handleDeleteCalendar).Methods(http.MethodDelete)
	api.HandleFunc("/calendars/{calendarId}/color", s.handleCalendarColor).Methods(http.MethodPut)
	api.HandleFunc("/calendars/{calendarId}/events", s.handleEvents).Methods(http.MethodGet)
	api.HandleFunc("/calendars/{calendarId}/export.ics", s.handleExport).Methods(http.MethodGet)
	api.HandleFunc("/events", s.handleSaveEvent).Methods(http.MethodPost)
	api.HandleFunc("/events/{calendarId}/{eventId}", s.handleDeleteEvent).Methods(http.MethodDelete)
	api.HandleFunc("/occurrences/delete", s.handleDeleteOccurrence).Methods(http.MethodPost)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handlePermission(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.PermissionStatus(r.Context())
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": string(status)})
}

func (s *Server) handleRequestPermission(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.RequestPermission(r.Context())
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": string(status)})
}

func (s *Server) handleCalendars(w http.ResponseWriter, r *http.Request) {
	cals, err := s.svc.RetrieveCalendars(r.Context())
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(cals))
	for _, c := range cals {
		out = append(out, calendarDTO(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"calendars": out})
}

func (s *Server) handleDefaultCalendar(w http.ResponseWriter, r *http.Request) {
	cal, err := s.svc.DefaultCalendar(r.Context())
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, calendarDTO(*cal))
}

func (s *Server) handleCreateCalendar(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		Color       *int64 `json:"color,omitempty"`
		AccountName string `json:"accountName,omitempty"`
		AccountType string `json:"accountType,omitempty"`
		IsDefault   bool   `json:"isDefault,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeTaxonomyError(w, calerr.InvalidArgumentDetails("malformed request body", err.Error()))
		return
	}
	id, err := s.svc.CreateCalendar(r.Context(), domain.Calendar{
		Name:        body.Name,
		Color:       body.Color,
		AccountName: body.AccountName,
		AccountType: body.AccountType,
		IsDefault:   body.IsDefault,
	})
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{wire.FieldCalendarID: id})
}

func (s *Server) handleDeleteCalendar(w http.ResponseWriter, r *http.Request) {
	calendarID := mux.Vars(r)["calendarId"]
	if err := s.svc.DeleteCalendar(r.Context(), calendarID); err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (s *Server) handleCalendarColor(w http.ResponseWriter, r *http.Request) {
	calendarID := mux.Vars(r)["calendarId"]
	var body struct {
		ColorKey string `json:"colorKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeTaxonomyError(w, calerr.InvalidArgumentDetails("malformed request body", err.Error()))
		return
	}
	if err := s.svc.UpdateCalendarColor(r.Context(), calendarID, body.ColorKey); err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	calendarID := mux.Vars(r)["calendarId"]
	filter, err := eventFilterFromQuery(r)
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	events, err := s.svc.RetrieveEvents(r.Context(), calendarID, filter)
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(events))
	for i := range events {
		ev := withLocation(events[i], s.loc)
		out = append(out, wire.EncodeEvent(&ev))
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	calendarID := mux.Vars(r)["calendarId"]
	filter, err := eventFilterFromQuery(r)
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}

	cals, err := s.svc.RetrieveCalendars(r.Context())
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	var calendar *domain.Calendar
	for i := range cals {
		if cals[i].ID == calendarID {
			calendar = &cals[i]
			break
		}
	}
	if calendar == nil {
		writeTaxonomyError(w, calerr.CalendarNotFound(calendarID))
		return
	}

	events, err := s.svc.RetrieveEvents(r.Context(), calendarID, filter)
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	payload := ics.Export(*calendar, events)
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(payload))
}

func (s *Server) handleSaveEvent(w http.ResponseWriter, r *http.Request) {
	args, err := decodeArgs(r)
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	ev, err := wire.DecodeEvent(args, s.loc)
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	if ev.ID == "" {
		id, err := s.svc.CreateEvent(r.Context(), *ev)
		if err != nil {
			writeTaxonomyError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{wire.FieldEventID: id})
		return
	}
	if err := s.svc.UpdateEvent(r.Context(), *ev); err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{wire.FieldEventID: ev.ID})
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.svc.DeleteEvent(r.Context(), vars["calendarId"], vars["eventId"]); err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (s *Server) handleDeleteOccurrence(w http.ResponseWriter, r *http.Request) {
	args, err := decodeArgs(r)
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	occ, err := wire.DecodeOccurrenceArgs(args)
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	ok, err := s.svc.DeleteOccurrence(r.Context(), occ.CalendarID, occ.EventID, occ.StartDate, occ.FollowingInstances)
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": ok})
}

func decodeArgs(r *http.Request) (map[string]any, error) {
	var args map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&args); err != nil {
		return nil, calerr.InvalidArgumentDetails("malformed request body", err.Error())
	}
	return args, nil
}

func eventFilterFromQuery(r *http.Request) (store.EventFilter, error) {
	var filter store.EventFilter
	q := r.URL.Query()
	if v := q.Get("start"); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, calerr.InvalidArgumentDetails("invalid start", v)
		}
		t := time.UnixMilli(ms).UTC()
		filter.Start = &t
	}
	if v := q.Get("end"); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, calerr.InvalidArgumentDetails("invalid end", v)
		}
		t := time.UnixMilli(ms).UTC()
		filter.End = &t
	}
	if ids, ok := q["eventId"]; ok {
		filter.EventIDs = ids
	}
	return filter, nil
}

func calendarDTO(c domain.Calendar) map[string]any {
	out := map[string]any{
		wire.FieldCalendarID: c.ID,
		"name":               c.Name,
		"isReadOnly":         c.ReadOnly,
		"isDefault":          c.IsDefault,
	}
	if c.Color != nil {
		out["color"] = *c.Color
	}
	if c.AccountName != "" {
		out["accountName"] = c.AccountName
	}
	if c.AccountType != "" {
		out["accountType"] = c.AccountType
	}
	return out
}

// withLocation re-attaches the caller-facing timezone to an event's
// instants before encoding.
func withLocation(ev domain.Event, loc *time.Location) domain.Event {
	if ev.Start != nil {
		t := ev.Start.In(loc)
		ev.Start = &t
	}
	if ev.End != nil {
		t := ev.End.In(loc)
		ev.End = &t
	}
	if ev.OriginalStart != nil {
		t := ev.OriginalStart.In(loc)
		ev.OriginalStart = &t
	}
	return ev
}

func writeTaxonomyError(w http.ResponseWriter, err error) {
	ce := calerr.Wrap(err, "request failed")
	writeJSON(w, httpStatus(ce.Kind), map[string]any{
		"code":    string(ce.Kind),
		"message": ce.Message,
		"details": ce.Details,
	})
}

func httpStatus(kind calerr.Kind) int {
	switch kind {
	case calerr.KindPermissionDenied:
		return http.StatusForbidden
	case calerr.KindCalendarNotFound, calerr.KindEventNotFound:
		return http.StatusNotFound
	case calerr.KindInvalidArgument:
		return http.StatusBadRequest
	case calerr.KindUnsupportedOperation:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}
