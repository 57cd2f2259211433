package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/idudko/mendel/internal/middleware"
	"github.com/idudko/mendel/internal/service"
	"github.com/idudko/mendel/pkg/hash"
)

// MaxPayloadSize bounds ingested request bodies.
const MaxPayloadSize = 1 << 20

type Handler struct {
	valuesService *service.ValuesService
	key           string
}

// NewHandler returns the HTTP handlers over svc. A non-empty key signs
// response bodies with HMAC-SHA256 in the HashSHA256 header.
func NewHandler(svc *service.ValuesService, key string) *Handler {
	return &Handler{valuesService: svc, key: key}
}

// IngestHandler feeds the request body into the pipeline as a message on the
// subject given by the rest of the path.
//
// Endpoint: POST /ingest/*
//
// Example:
//
//	POST /ingest/zigbee2mqtt/kitchen
//	{"temperature": 21.5}
func (h *Handler) IngestHandler(w http.ResponseWriter, r *http.Request) {
	topic := chi.URLParam(r, "*")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxPayloadSize))
	if err != nil {
		http.Error(w, "Failed to read request body", middleware.BodyReadStatus(err))
		return
	}

	resp, err := h.valuesService.Ingest(r.Context(), topic, body)
	if err != nil {
		if errors.Is(err, service.ErrEmptySubject) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusAccepted, resp)
}

// ListValuesHandler returns every stored value.
//
// Endpoint: GET /values
func (h *Handler) ListValuesHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.valuesService.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

// GetValueHandler returns one stored value.
//
// Endpoint: GET /value/{id}
func (h *Handler) GetValueHandler(w http.ResponseWriter, r *http.Request) {
	v, err := h.valuesService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if h.key != "" {
		w.Header().Set(middleware.HeaderHash, hash.ComputeHash(data, h.key))
	}
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}
