package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"faqpage/internal/auth"
	"faqpage/internal/handle"
	"faqpage/internal/og"
	"faqpage/internal/page"
	"faqpage/internal/search"
)

type tokenVerifier interface {
	Verify(authorization string) (auth.Claims, error)
}

// ServerOptions wires the optional collaborators. Nil PageCache, OG and Metrics
// disable the matching feature; a nil Search answers every query with no results.
type ServerOptions struct {
	Verifier   tokenVerifier
	PageCache  *page.Cache
	OG         *og.Generator
	Search     *search.Service
	Metrics    http.Handler
	CORSOrigin string
	Logger     zerolog.Logger
}

type HTTPServer struct {
	service *Service
	opts    ServerOptions
	logger  zerolog.Logger
	router  *mux.Router
}

func NewHTTPServer(service *Service, opts ServerOptions) *HTTPServer {
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "*"
	}
	s := &HTTPServer{
		service: service,
		opts:    opts,
		logger:  opts.Logger.With().Str("component", "http").Logger(),
	}
	s.router = s.routes()
	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

func (s *HTTPServer) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.withMiddleware)
	r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet, http.MethodHead)

	api.HandleFunc("/settings", s.authed(s.handleGetSettings)).Methods(http.MethodGet)
	api.HandleFunc("/settings", s.authed(s.handleSetSettings)).Methods(http.MethodPut)
	api.HandleFunc("/settings/name", s.authed(s.handleSetName)).Methods(http.MethodPut)
	api.HandleFunc("/settings/handle", s.authed(s.handleClaimHandle)).Methods(http.MethodPut)

	api.HandleFunc("/questions", s.authed(s.handleListQuestions)).Methods(http.MethodGet)
	api.HandleFunc("/questions", s.authed(s.handleAddQuestion)).Methods(http.MethodPost)
	api.HandleFunc("/questions/{id}", s.authed(s.handleGetQuestion)).Methods(http.MethodGet)
	api.HandleFunc("/questions/{id}", s.authed(s.handleUpdateQuestion)).Methods(http.MethodPut)
	api.HandleFunc("/questions/{id}", s.authed(s.handleDeleteQuestion)).Methods(http.MethodDelete)
	api.HandleFunc("/questions/{id}/index", s.authed(s.handleMoveQuestion)).Methods(http.MethodPut)

	api.HandleFunc("/pages/{handle}", s.handlePageJSON).Methods(http.MethodGet)
	api.HandleFunc("/og", s.handleOG).Methods(http.MethodGet)
	api.HandleFunc("/search", s.handleSearch).Methods(http.MethodGet)
	api.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "Not found", nil)
	})

	if s.opts.Metrics != nil {
		r.Handle("/metrics", s.opts.Metrics).Methods(http.MethodGet)
	}
	r.HandleFunc("/p/{handle}", s.handlePublicPage).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/{handle:[A-Za-z0-9_]{4,16}}", s.handlePublicPage).Methods(http.MethodGet, http.MethodHead)
	return r
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"database": map[string]any{"status": "ok"},
	}

	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["database"] = map[string]any{
			"status": "error",
			"error":  err.Error(),
		}
	}

	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

type authedHandler func(w http.ResponseWriter, r *http.Request, caller Caller)

// authed verifies the bearer token and upserts the caller before next runs.
func (s *HTTPServer) authed(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Verifier == nil {
			writeError(w, http.StatusUnauthorized, CodeUnauthorized, "Unauthorized", nil)
			return
		}
		claims, err := s.opts.Verifier.Verify(r.Header.Get("Authorization"))
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		caller, err := s.service.EnsureUser(r.Context(), claims)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		next(w, r, caller)
	}
}

func (s *HTTPServer) handleGetSettings(w http.ResponseWriter, r *http.Request, caller Caller) {
	settings, err := s.service.GetSettings(r.Context(), caller)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *HTTPServer) handleSetSettings(w http.ResponseWriter, r *http.Request, caller Caller) {
	var body SettingsInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := s.service.SetDisplaySettings(r.Context(), caller, body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleSetName(w http.ResponseWriter, r *http.Request, caller Caller) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := s.service.SetDisplayName(r.Context(), caller, body.Name); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleClaimHandle(w http.ResponseWriter, r *http.Request, caller Caller) {
	var body struct {
		Handle string `json:"handle"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	claimed, err := s.service.ClaimHandle(r.Context(), caller, body.Handle)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"handle": claimed,
		"url":    s.service.cfg.PublicURL + handle.Path(claimed),
	})
}

func (s *HTTPServer) handleListQuestions(w http.ResponseWriter, r *http.Request, caller Caller) {
	items, err := s.service.ListQuestions(r.Context(), caller)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": items})
}

func (s *HTTPServer) handleAddQuestion(w http.ResponseWriter, r *http.Request, caller Caller) {
	created, err := s.service.AddQuestion(r.Context(), caller)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *HTTPServer) handleGetQuestion(w http.ResponseWriter, r *http.Request, caller Caller) {
	q, err := s.service.GetQuestion(r.Context(), caller, mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *HTTPServer) handleUpdateQuestion(w http.ResponseWriter, r *http.Request, caller Caller) {
	var body UpdateQuestionInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := s.service.UpdateQuestion(r.Context(), caller, mux.Vars(r)["id"], body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleDeleteQuestion(w http.ResponseWriter, r *http.Request, caller Caller) {
	if err := s.service.DeleteQuestion(r.Context(), caller, mux.Vars(r)["id"]); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleMoveQuestion(w http.ResponseWriter, r *http.Request, caller Caller) {
	var body struct {
		NewIndex *int `json:"newIndex"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if body.NewIndex == nil {
		writeError(w, http.StatusUnprocessableEntity, CodeValidation, "newIndex is required", nil)
		return
	}
	if err := s.service.MoveQuestion(r.Context(), caller, mux.Vars(r)["id"], *body.NewIndex); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handlePageJSON(w http.ResponseWriter, r *http.Request) {
	view, found, err := s.service.GetPublicPage(r.Context(), mux.Vars(r)["handle"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, CodeNotFound, "Page not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handlePublicPage serves the rendered page, reading through the Redis cache. The
// cache key is the public path, which is what invalidations name.
func (s *HTTPServer) handlePublicPage(w http.ResponseWriter, r *http.Request) {
	path := handle.Path(strings.ToLower(mux.Vars(r)["handle"]))
	if cache := s.opts.PageCache; cache != nil {
		body, ok, err := cache.Get(r.Context(), path)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("page cache read failed")
		} else if ok {
			writeHTML(w, http.StatusOK, body, "HIT")
			return
		}
	}

	view, found, err := s.service.GetPublicPage(r.Context(), strings.TrimPrefix(path, "/"))
	if err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("load public page")
		writeHTML(w, http.StatusInternalServerError, []byte("<!DOCTYPE html><p>Something went wrong</p>"), "")
		return
	}
	if !found {
		writeHTML(w, http.StatusNotFound, []byte("<!DOCTYPE html><p>This page could not be found</p>"), "")
		return
	}

	body, err := page.Render(view)
	if err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("render public page")
		writeHTML(w, http.StatusInternalServerError, []byte("<!DOCTYPE html><p>Something went wrong</p>"), "")
		return
	}
	if cache := s.opts.PageCache; cache != nil {
		if err := cache.Set(r.Context(), path, body); err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("page cache write failed")
		}
	}
	writeHTML(w, http.StatusOK, body, "MISS")
}

func (s *HTTPServer) handleOG(w http.ResponseWriter, r *http.Request) {
	params, err := og.ParseParams(r.URL.Query())
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if s.opts.OG == nil {
		writeError(w, http.StatusServiceUnavailable, "OG_UNAVAILABLE", "Image generation is not configured", nil)
		return
	}
	png, err := s.opts.OG.Generate(r.Context(), params)
	if err != nil {
		s.logger.Error().Err(err).Int("theme", params.Theme).Msg("og generation failed")
		writeError(w, http.StatusInternalServerError, CodeServer, "Failed to generate the image", nil)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))
	writeJSON(w, http.StatusOK, s.opts.Search.Search(search.Query{
		Text:   query.Get("q"),
		Limit:  limit,
		Offset: offset,
	}))
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("request_id", requestID(r.Context())).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.opts.CORSOrigin)
		writer.Header().Set("X-Request-ID", reqID)

		next.ServeHTTP(writer, r)

		s.logger.Info().
			Str("request_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", writer.status).
			Int64("duration_ms", time.Since(started).Milliseconds()).
			Msg("request")
	})
}

type requestIDKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func writeHTML(w http.ResponseWriter, status int, body []byte, cacheState string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=0, must-revalidate")
	if cacheState != "" {
		w.Header().Set("X-Cache", cacheState)
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}
