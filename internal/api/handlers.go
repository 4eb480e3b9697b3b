package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"DailyDigest/internal/domain"
)

const briefingKeyHeader = "X-Briefing-Key"

// Handler adapts Service calls to JSON over HTTP.
type Handler struct {
	svc    Service
	logger *slog.Logger
}

type registerRequest struct {
	Email     string            `json:"email" validate:"required,email"`
	Interests []domain.Interest `json:"interests" validate:"dive"`
}

type articleRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url" validate:"required,url"`
}

type feedRequest struct {
	FeedURL string `json:"feedUrl" validate:"required,url"`
}

type notifyRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
}

type sendEmailRequest struct {
	Email        string          `json:"email" validate:"required,email"`
	BriefingData domain.Briefing `json:"briefingData"`
}

// Register stores the user and responds with a first briefing.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.svc.Register(r.Context(), req.Email, req.Interests)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if result.Key != "" {
		w.Header().Set(briefingKeyHeader, result.Key)
	}
	respondJSON(w, http.StatusOK, result.Briefing)
}

// NewArticle ingests one article.
func (h *Handler) NewArticle(w http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.svc.IngestArticle(r.Context(), req.Title, req.Content, req.URL)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "article processed",
		"created": result.Created,
	})
}

// IngestFeed fetches a feed and ingests its items.
func (h *Handler) IngestFeed(w http.ResponseWriter, r *http.Request) {
	var req feedRequest
	if !h.decode(w, r, &req) {
		return
	}

	report, err := h.svc.IngestFeed(r.Context(), req.FeedURL)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// NotifyRecent runs the notification sweep for one user or everyone.
func (h *Handler) NotifyRecent(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	// The body is optional; an empty one sweeps every user.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(w, fmt.Errorf("invalid request body: %v: %w", err, domain.ErrInvalidInput))
		return
	}
	if err := validateStruct(req); err != nil {
		h.respondError(w, err)
		return
	}

	report, err := h.svc.NotifyRecent(r.Context(), req.Email)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Briefing builds the current briefing for ?email=.
func (h *Handler) Briefing(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetBriefing(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	if result.Key != "" {
		w.Header().Set(briefingKeyHeader, result.Key)
	}
	respondJSON(w, http.StatusOK, result.Briefing)
}

// StoredBriefing returns a persisted briefing by key.
func (h *Handler) StoredBriefing(w http.ResponseWriter, r *http.Request) {
	briefing, err := h.svc.GetBriefingByKey(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, briefing)
}

// SendBriefingEmail emails a client-supplied briefing.
func (h *Handler) SendBriefingEmail(w http.ResponseWriter, r *http.Request) {
	var req sendEmailRequest
	if !h.decode(w, r, &req) {
		return
	}

	ok, err := h.svc.SendBriefing(r.Context(), req.Email, req.BriefingData)
	if err != nil {
		h.respondError(w, err)
		return
	}
	message := "Briefing email sent"
	if !ok {
		message = "Briefing email could not be delivered"
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": ok,
		"message": message,
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.respondError(w, fmt.Errorf("invalid request body: %v: %w", err, domain.ErrInvalidInput))
		return false
	}
	if err := validateStruct(dst); err != nil {
		h.respondError(w, err)
		return false
	}
	return true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		message = err.Error()
	default:
		h.logger.Error("request failed", "error", err)
	}
	respondJSON(w, status, map[string]string{"error": message})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
