package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"event-gallery-backend/internal/services"
	"event-gallery-backend/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const multipartMemory = 32 << 20

// UploadResponse lists the uploads created by one request
type UploadResponse struct {
	Uploads []string `json:"uploads"`
}

// MediaHandler handles media ingestion and delivery
type MediaHandler struct {
	registry *services.Registry
	media    *services.MediaService
	maxBytes int64
}

// NewMediaHandler creates a new media handler. maxBytes caps a request
// body; zero means no limit.
func NewMediaHandler(registry *services.Registry, media *services.MediaService, maxBytes int64) *MediaHandler {
	return &MediaHandler{
		registry: registry,
		media:    media,
		maxBytes: maxBytes,
	}
}

// Upload handles POST /api/uploads. Multiple files may be sent by
// repeating the file field.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		respondError(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	eventID := r.FormValue("event_id")
	if _, err := h.registry.GetEvent(eventID); err != nil {
		respondError(w, "Invalid event_id", http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		respondError(w, "No file part", http.StatusBadRequest)
		return
	}

	created := make([]string, 0, len(files))
	for _, fh := range files {
		if fh.Filename == "" {
			continue
		}

		f, err := fh.Open()
		if err != nil {
			respondError(w, "Failed to read file", http.StatusBadRequest)
			return
		}
		upload, err := h.media.Ingest(r.Context(), eventID, fh.Filename, f)
		f.Close()
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				respondError(w, "Invalid event_id", http.StatusBadRequest)
				return
			}
			log.Error().
				Err(err).
				Str("event_id", eventID).
				Str("filename", fh.Filename).
				Msg("Failed to ingest upload")
			respondServiceError(w, err, "")
			return
		}
		created = append(created, upload.ID)
	}

	respondJSON(w, UploadResponse{Uploads: created}, http.StatusOK)
}

// Serve handles GET /api/media/{filename}
func (h *MediaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	data, err := h.media.Retrieve(r.Context(), filename)
	if err != nil {
		if errors.Is(err, storage.ErrAssetNotFound) {
			respondError(w, "File not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("filename", filename).Msg("Failed to retrieve media")
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
