// Package httpapi exposes the classification service over JSON HTTP.
//
// The surface is small and device-oriented: a tablet app posts embeddings
// and transcriptions to /api/classify, answers confirmations via
// /api/confirm, and caregivers manage training data through the remaining
// endpoints. All responses are JSON objects; errors carry a top-level
// "error" field.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/verbao/intentd/internal/pending"
	"github.com/verbao/intentd/internal/service"
	"github.com/verbao/intentd/pkg/embedding"
	"github.com/verbao/intentd/pkg/intent"
)

// maxBodyBytes caps request bodies. A 768-dimension float64 JSON array is
// well under 32 KiB; batches stay reasonable below this.
const maxBodyBytes = 4 << 20

// Server holds the handlers for the classification API.
type Server struct {
	svc *service.Service
}

// New creates a Server over svc.
func New(svc *service.Service) *Server {
	return &Server{svc: svc}
}

// Register adds all API routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/classify", s.handleClassify)
	mux.HandleFunc("POST /api/confirm", s.handleConfirm)
	mux.HandleFunc("POST /api/train", s.handleTrain)
	mux.HandleFunc("DELETE /api/intents/{intent}/samples", s.handleClear)
	mux.HandleFunc("GET /api/intents", s.handleIntents)
	mux.HandleFunc("GET /api/stats", s.handleStats)
}

// ─── Request / response bodies ───────────────────────────────────────────────

type classifyRequest struct {
	// Embedding is the speech embedding. Optional when Transcription is set.
	Embedding []float32 `json:"embedding,omitempty"`

	// Transcription is the speech-to-text output. Optional when Embedding
	// is set.
	Transcription string `json:"transcription,omitempty"`
}

type classifyResponse struct {
	Intent       string   `json:"intent"`
	Confidence   float64  `json:"confidence"`
	Modality     string   `json:"modality"`
	Status       string   `json:"status"`
	Action       string   `json:"action"`
	Options      []string `json:"options"`
	Alternatives []string `json:"alternatives,omitempty"`
	Token        string   `json:"token,omitempty"`
}

type confirmRequest struct {
	Token string `json:"token"`

	// Intent is the label the user confirmed. Required when Accept is true.
	Intent string `json:"intent,omitempty"`

	// Accept is false when the user dismissed the suggestion; the parked
	// embedding is discarded.
	Accept bool `json:"accept"`
}

type trainRequest struct {
	Intent     string      `json:"intent"`
	Embeddings [][]float32 `json:"embeddings"`
}

type trainResponse struct {
	Intent string `json:"intent"`
	Stored int    `json:"stored"`
}

type statsResponse struct {
	Samples map[string]int `json:"samples"`
	Pending int            `json:"pending"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ─── Handlers ────────────────────────────────────────────────────────────────

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	vec := embedding.Vector(req.Embedding)
	c, err := s.svc.ClassifyHybrid(r.Context(), vec, req.Transcription)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := classifyResponse{
		Intent:     string(c.Intent),
		Confidence: c.Confidence,
		Modality:   string(c.Modality),
		Status:     string(c.Status),
		Action:     string(c.Action),
		Options:    c.Options,
		Token:      c.Token,
	}
	for _, alt := range c.Alternatives {
		resp.Alternatives = append(resp.Alternatives, string(alt))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "token is required"})
		return
	}

	var err error
	if req.Accept {
		var in intent.Intent
		in, err = intent.Parse(req.Intent)
		if err == nil {
			err = s.svc.Confirm(r.Context(), req.Token, in)
		}
	} else {
		err = s.svc.Reject(r.Context(), req.Token)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	var req trainRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in, err := intent.Parse(req.Intent)
	if err != nil {
		writeError(w, err)
		return
	}

	vecs := make([]embedding.Vector, len(req.Embeddings))
	for i, e := range req.Embeddings {
		vecs[i] = embedding.Vector(e)
	}

	n, err := s.svc.TrainBatch(r.Context(), in, vecs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trainResponse{Intent: string(in), Stored: n})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	in, err := intent.Parse(r.PathValue("intent"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.svc.ClearIntent(r.Context(), in); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIntents(w http.ResponseWriter, _ *http.Request) {
	all := s.svc.Intents()
	labels := make([]string, len(all))
	for i, in := range all {
		labels[i] = string(in)
	}
	writeJSON(w, http.StatusOK, map[string][]string{"intents": labels})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, pendingLen, err := s.svc.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	resp := statsResponse{
		Samples: make(map[string]int, len(counts)),
		Pending: pendingLen,
	}
	for in, n := range counts {
		resp.Samples[string(in)] = n
	}
	writeJSON(w, http.StatusOK, resp)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// decodeJSON decodes the request body into v. On failure it writes a 400
// response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// writeError maps service errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, intent.ErrInvalid),
		errors.Is(err, embedding.ErrDimensionMismatch),
		errors.Is(err, service.ErrNoInput):
		status = http.StatusBadRequest
	case errors.Is(err, pending.ErrTokenExpired):
		status = http.StatusGone
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeJSON encodes v as JSON and writes it with the given status code. On
// encoding failure it falls back to a plain-text 500 response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failure"}`, http.StatusInternalServerError)
	}
}
