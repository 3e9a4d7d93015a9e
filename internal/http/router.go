package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"podcast-voice-service/internal/app"
	"podcast-voice-service/internal/models"
	"podcast-voice-service/internal/service/command"
	"podcast-voice-service/internal/service/transcript"
)

const maxTranscriptBytes = 8 << 20

// NewRouter constructs the HTTP router for the service.
func NewRouter(application *app.Application) http.Handler {
	h := &handlers{app: application}
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.instrument)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		// Health endpoints
		r.Get("/liveness", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		r.Get("/readiness", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
		})

		r.Post("/intents", h.parseIntent)

		r.Post("/commands", h.executeCommand)
		r.Get("/commands", h.listCommands)
		r.Delete("/commands", h.clearCommands)

		r.Put("/playback", h.setPlayback)

		r.Route("/episodes/{id}", func(r chi.Router) {
			r.Put("/transcript", h.loadTranscript)
			r.Get("/transcript/search", h.searchTranscript)
			r.Get("/transcript/segment", h.segmentAt)
			r.Get("/transcript/near", h.segmentsNear)
			r.Get("/bookmarks", h.listBookmarks)
		})
	})

	return r
}

type handlers struct {
	app *app.Application
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handlers) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.app.Metrics.RecordRequest("http", r.Method+" "+route, strconv.Itoa(status), time.Since(start).Seconds())
	})
}

type utteranceBody struct {
	Utterance string `json:"utterance"`
}

func (h *handlers) parseIntent(w http.ResponseWriter, r *http.Request) {
	var body utteranceBody
	if !readJSON(w, r, &body) {
		return
	}
	writeJSON(w, http.StatusOK, h.app.ParseIntent(body.Utterance))
}

func (h *handlers) executeCommand(w http.ResponseWriter, r *http.Request) {
	var body utteranceBody
	if !readJSON(w, r, &body) {
		return
	}
	if body.Utterance == "" {
		writeError(w, http.StatusBadRequest, errors.New("utterance is required"))
		return
	}

	cmd, err := h.app.HandleUtterance(r.Context(), body.Utterance)
	var capErr *command.CapabilityError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, cmd)
	case errors.As(err, &capErr):
		writeJSON(w, http.StatusBadGateway, cmd)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func (h *handlers) listCommands(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(h.app.Executor.History().Records()))
}

func (h *handlers) clearCommands(w http.ResponseWriter, _ *http.Request) {
	h.app.Executor.History().Clear()
	h.app.Metrics.SetHistorySize(0)
	w.WriteHeader(http.StatusNoContent)
}

type playbackBody struct {
	EpisodeID  string           `json:"episodeId"`
	DurationMs int64            `json:"durationMs"`
	PositionMs int64            `json:"positionMs"`
	Chapters   []models.Chapter `json:"chapters"`
}

func (h *handlers) setPlayback(w http.ResponseWriter, r *http.Request) {
	var body playbackBody
	if !readJSON(w, r, &body) {
		return
	}
	ps, err := h.app.SetPlayback(r.Context(), app.EpisodeSetup(body))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, app.ErrNoEpisode) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *handlers) loadTranscript(w http.ResponseWriter, r *http.Request) {
	episodeID := chi.URLParam(r, "id")

	formatParam := r.URL.Query().Get("format")
	if formatParam == "" {
		formatParam, _, _ = strings.Cut(r.Header.Get("Content-Type"), ";")
	}
	format, err := models.ParseFormat(formatParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxTranscriptBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	t, err := h.app.Transcripts.Load(episodeID, string(raw), format)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, transcript.ErrUnrecognizedFormat) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"episodeId":   t.EpisodeID,
		"format":      t.Format,
		"segments":    len(t.Segments),
		"lastUpdated": t.LastUpdated,
	})
}

func (h *handlers) searchTranscript(w http.ResponseWriter, r *http.Request) {
	segs := h.app.Transcripts.Search(chi.URLParam(r, "id"), r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, nonNil(segs))
}

func (h *handlers) segmentAt(w http.ResponseWriter, r *http.Request) {
	at, ok := int64Query(w, r, "at", 0, true)
	if !ok {
		return
	}
	seg, found := h.app.Transcripts.SegmentAt(chi.URLParam(r, "id"), at)
	if !found {
		writeError(w, http.StatusNotFound, errors.New("no segment at timestamp"))
		return
	}
	writeJSON(w, http.StatusOK, seg)
}

func (h *handlers) segmentsNear(w http.ResponseWriter, r *http.Request) {
	at, ok := int64Query(w, r, "at", 0, true)
	if !ok {
		return
	}
	window, ok := int64Query(w, r, "window", 0, false)
	if !ok {
		return
	}
	segs := h.app.Transcripts.SegmentsNear(chi.URLParam(r, "id"), at, window)
	writeJSON(w, http.StatusOK, nonNil(segs))
}

func (h *handlers) listBookmarks(w http.ResponseWriter, r *http.Request) {
	bookmarks, err := h.app.Bookmarks.BookmarksByEpisode(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(bookmarks))
}

func int64Query(w http.ResponseWriter, r *http.Request, key string, def int64, required bool) (int64, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		if required {
			writeError(w, http.StatusBadRequest, errors.New(key+" is required"))
			return 0, false
		}
		return def, true
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New(key+" must be an integer"))
		return 0, false
	}
	return n, true
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
