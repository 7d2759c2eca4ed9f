package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/candidstudio/moodgrab/internal/domain"
	"github.com/candidstudio/moodgrab/internal/extract"
)

// ProfileHandler handles creator-profile extraction requests.
type ProfileHandler struct {
	profiles *extract.ProfileExtractor
	logger   *slog.Logger
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(profiles *extract.ProfileExtractor, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		logger:   logger,
	}
}

// ProfileRequest is the JSON body for profile analysis. Either a
// profile URL or a bare handle is accepted.
type ProfileRequest struct {
	URL    string `json:"url,omitempty"`
	Handle string `json:"handle,omitempty"`
}

// Analyze handles POST /api/v1/profile
func (h *ProfileHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := req.URL
	if input == "" {
		input = req.Handle
	}

	handle, err := extract.HandleFromURL(input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrProfileUnsupported):
			h.writeError(w, http.StatusUnprocessableEntity, "profile analysis is only supported for TikTok")
		default:
			h.writeError(w, http.StatusBadRequest, "invalid profile URL or handle")
		}
		return
	}

	profile, err := h.profiles.Extract(r.Context(), handle)
	if err != nil {
		var tierErr *extract.TierError
		switch {
		case errors.As(err, &tierErr) && tierErr.Reason == domain.FailureNotFound:
			h.writeError(w, http.StatusNotFound, "profile not found")
		case errors.As(err, &tierErr) && tierErr.Reason == domain.FailureRateLimited:
			h.writeError(w, http.StatusTooManyRequests, "upstream rate limited, try again later")
		default:
			h.logger.Error("profile extraction failed", "handle", handle, "error", err)
			h.writeError(w, http.StatusBadGateway, "failed to analyze profile")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *ProfileHandler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
