package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/candidstudio/moodgrab/internal/domain"
	"github.com/candidstudio/moodgrab/internal/ingest"
)

// ItemHandler handles media item HTTP requests.
type ItemHandler struct {
	svc    *ingest.Service
	logger *slog.Logger
}

// NewItemHandler creates a new item handler.
func NewItemHandler(svc *ingest.Service, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{
		svc:    svc,
		logger: logger,
	}
}

// CreateItemRequest is the JSON body for single-item ingestion.
type CreateItemRequest struct {
	URL       string  `json:"url"`
	BoardID   string  `json:"board_id"`
	PositionX float64 `json:"position_x,omitempty"`
	PositionY float64 `json:"position_y,omitempty"`
	Width     float64 `json:"width,omitempty"`
}

// BatchCreateRequest is the JSON body for batch ingestion.
type BatchCreateRequest struct {
	BoardID string   `json:"board_id"`
	URLs    []string `json:"urls"`
}

// RescriptRequest is the JSON body for the rescript job.
type RescriptRequest struct {
	ClientID       string `json:"client_id,omitempty"`
	Tone           string `json:"brand_voice,omitempty"`
	Product        string `json:"product,omitempty"`
	TargetAudience string `json:"target_audience,omitempty"`
}

// ItemResponse represents an item in API responses.
type ItemResponse struct {
	ItemID        string             `json:"item_id"`
	BoardID       string             `json:"board_id"`
	SourceURL     string             `json:"source_url"`
	Platform      string             `json:"platform"`
	ItemType      string             `json:"item_type"`
	Status        string             `json:"status"`
	Title         string             `json:"title,omitempty"`
	AuthorName    string             `json:"author_name,omitempty"`
	AuthorHandle  string             `json:"author_handle,omitempty"`
	ThumbnailURL  string             `json:"thumbnail_url,omitempty"`
	MediaURL      string             `json:"media_url,omitempty"`
	Duration      int                `json:"duration_seconds,omitempty"`
	Stats         *domain.Stats      `json:"stats,omitempty"`
	Transcript    *domain.Transcript `json:"transcript,omitempty"`
	Analysis      *domain.Analysis   `json:"analysis,omitempty"`
	Rescript      *domain.Rescript   `json:"rescript,omitempty"`
	Error         string             `json:"error,omitempty"`
	FailureReason string             `json:"failure_reason,omitempty"`
	PositionX     float64            `json:"position_x,omitempty"`
	PositionY     float64            `json:"position_y,omitempty"`
	Width         float64            `json:"width,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	ProcessedAt   *time.Time         `json:"processed_at,omitempty"`
}

// BatchItemResult is the per-URL outcome in a batch response.
type BatchItemResult struct {
	URL    string        `json:"url"`
	Item   *ItemResponse `json:"item,omitempty"`
	Error  string        `json:"error,omitempty"`
	Status string        `json:"status"`
}

// BatchCreateResponse summarizes a batch ingestion.
type BatchCreateResponse struct {
	Results  []BatchItemResult `json:"results"`
	Accepted int               `json:"accepted"`
	Rejected int               `json:"rejected"`
}

// ListItemsResponse contains a paginated item list.
type ListItemsResponse struct {
	Items  []ItemResponse `json:"items"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

func toItemResponse(item *domain.MediaItem) *ItemResponse {
	return &ItemResponse{
		ItemID:        string(item.ID),
		BoardID:       item.BoardID,
		SourceURL:     item.SourceURL,
		Platform:      string(item.Platform),
		ItemType:      string(item.ItemType),
		Status:        string(item.Status),
		Title:         item.Title,
		AuthorName:    item.AuthorName,
		AuthorHandle:  item.AuthorHandle,
		ThumbnailURL:  item.ThumbnailURL,
		MediaURL:      item.MediaURL,
		Duration:      item.DurationSeconds,
		Stats:         item.Stats,
		Transcript:    item.Transcript,
		Analysis:      item.Analysis,
		Rescript:      item.Rescript,
		Error:         item.ErrorMessage,
		FailureReason: string(item.FailureReason),
		PositionX:     item.PositionX,
		PositionY:     item.PositionY,
		Width:         item.Width,
		CreatedAt:     item.CreatedAt,
		ProcessedAt:   item.ProcessedAt,
	}
}

// Create handles POST /api/v1/items
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	item, err := h.svc.Ingest(r.Context(), ingest.IngestRequest{
		URL:       req.URL,
		BoardID:   req.BoardID,
		PositionX: req.PositionX,
		PositionY: req.PositionY,
		Width:     req.Width,
	})
	if err != nil {
		h.writeServiceError(w, err, "ingest failed")
		return
	}

	h.writeJSON(w, http.StatusAccepted, toItemResponse(item))
}

// CreateBatch handles POST /api/v1/items/batch
func (h *ItemHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if len(req.URLs) == 0 {
		h.writeError(w, http.StatusBadRequest, "no URLs provided", "")
		return
	}

	summary, err := h.svc.IngestMany(r.Context(), req.BoardID, req.URLs)
	if err != nil {
		h.writeServiceError(w, err, "batch ingest failed")
		return
	}

	resp := BatchCreateResponse{
		Results:  make([]BatchItemResult, 0, len(summary.Results)),
		Accepted: summary.Accepted,
		Rejected: summary.Rejected,
	}
	for _, res := range summary.Results {
		br := BatchItemResult{URL: res.URL}
		if res.Error != nil {
			br.Status = "rejected"
			br.Error = res.Error.Error()
		} else {
			br.Status = "accepted"
			br.Item = toItemResponse(res.Item)
		}
		resp.Results = append(resp.Results, br)
	}

	h.writeJSON(w, http.StatusAccepted, resp)
}

// Get handles GET /api/v1/items/{itemID}
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	if itemID == "" {
		h.writeError(w, http.StatusBadRequest, "missing item ID", "")
		return
	}

	item, err := h.svc.Get(r.Context(), domain.ItemID(itemID))
	if err != nil {
		h.writeServiceError(w, err, "get failed")
		return
	}

	h.writeJSON(w, http.StatusOK, toItemResponse(item))
}

// List handles GET /api/v1/items?board_id=...
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	boardID := r.URL.Query().Get("board_id")
	if boardID == "" {
		h.writeError(w, http.StatusBadRequest, "board_id is required", "")
		return
	}

	limit := 50
	offset := 0
	var status *domain.ItemStatus

	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	if s := r.URL.Query().Get("status"); s != "" {
		st := domain.ItemStatus(s)
		status = &st
	}

	items, total, err := h.svc.List(r.Context(), boardID, status, limit, offset)
	if err != nil {
		h.logger.Error("list failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list items", "")
		return
	}

	resp := ListItemsResponse{
		Items:  make([]ItemResponse, 0, len(items)),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for _, item := range items {
		resp.Items = append(resp.Items, *toItemResponse(item))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// Delete handles DELETE /api/v1/items/{itemID}
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	if itemID == "" {
		h.writeError(w, http.StatusBadRequest, "missing item ID", "")
		return
	}

	if err := h.svc.Delete(r.Context(), domain.ItemID(itemID)); err != nil {
		h.writeServiceError(w, err, "delete failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Reprocess handles POST /api/v1/items/{itemID}/reprocess
func (h *ItemHandler) Reprocess(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	if itemID == "" {
		h.writeError(w, http.StatusBadRequest, "missing item ID", "")
		return
	}

	item, err := h.svc.Reprocess(r.Context(), domain.ItemID(itemID))
	if err != nil {
		h.writeServiceError(w, err, "reprocess failed")
		return
	}

	h.writeJSON(w, http.StatusAccepted, toItemResponse(item))
}

// Transcribe handles POST /api/v1/items/{itemID}/transcribe
func (h *ItemHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	if itemID == "" {
		h.writeError(w, http.StatusBadRequest, "missing item ID", "")
		return
	}

	item, err := h.svc.Transcribe(r.Context(), domain.ItemID(itemID))
	if err != nil {
		h.writeServiceError(w, err, "transcribe failed")
		return
	}

	h.writeJSON(w, http.StatusOK, toItemResponse(item))
}

// Analyze handles POST /api/v1/items/{itemID}/analyze
func (h *ItemHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	if itemID == "" {
		h.writeError(w, http.StatusBadRequest, "missing item ID", "")
		return
	}

	item, err := h.svc.Analyze(r.Context(), domain.ItemID(itemID))
	if err != nil {
		h.writeServiceError(w, err, "analysis failed")
		return
	}

	h.writeJSON(w, http.StatusOK, toItemResponse(item))
}

// Rescript handles POST /api/v1/items/{itemID}/rescript
func (h *ItemHandler) Rescript(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	if itemID == "" {
		h.writeError(w, http.StatusBadRequest, "missing item ID", "")
		return
	}

	var req RescriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	item, err := h.svc.RescriptJob(r.Context(), domain.ItemID(itemID), domain.BrandVoice{
		ClientID:       req.ClientID,
		Tone:           req.Tone,
		Product:        req.Product,
		TargetAudience: req.TargetAudience,
	})
	if err != nil {
		h.writeServiceError(w, err, "rescript failed")
		return
	}

	h.writeJSON(w, http.StatusOK, toItemResponse(item))
}

// writeServiceError maps domain errors to HTTP responses.
func (h *ItemHandler) writeServiceError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, domain.ErrInvalidURL):
		h.writeError(w, http.StatusBadRequest, "invalid URL", "")
	case errors.Is(err, domain.ErrMissingBoard):
		h.writeError(w, http.StatusBadRequest, "board_id is required", "")
	case errors.Is(err, domain.ErrItemNotFound):
		h.writeError(w, http.StatusNotFound, "item not found", "")
	case errors.Is(err, domain.ErrItemBusy):
		h.writeError(w, http.StatusConflict, "item is already being processed", "")
	case errors.Is(err, domain.ErrNotReprocessable):
		h.writeError(w, http.StatusConflict, "only finished items can be reprocessed", "")
	case errors.Is(err, domain.ErrNotVideo):
		h.writeError(w, http.StatusUnprocessableEntity, "item is not a video", "")
	case errors.Is(err, domain.ErrTranscriptEmpty):
		h.writeError(w, http.StatusUnprocessableEntity, "no transcript available", "")
	case errors.Is(err, domain.ErrNoMediaURL):
		h.writeError(w, http.StatusUnprocessableEntity, "no resolvable media for transcription", "")
	case errors.Is(err, domain.ErrAudioTooLong):
		h.writeError(w, http.StatusUnprocessableEntity, "media exceeds transcription limits", string(domain.FailureTooLong))
	case errors.Is(err, domain.ErrEnrichmentFailed):
		h.writeError(w, http.StatusBadGateway, "enrichment model unavailable", "")
	case errors.Is(err, domain.ErrSpeechToTextUnavailable):
		h.writeError(w, http.StatusBadGateway, "speech-to-text unavailable", "")
	default:
		h.logger.Error(logMsg, "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

func (h *ItemHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *ItemHandler) writeError(w http.ResponseWriter, status int, message, failureReason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]string{"error": message}
	if failureReason != "" {
		body["failure_reason"] = failureReason
	}
	json.NewEncoder(w).Encode(body)
}
