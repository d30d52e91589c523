package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"docvalidator/classifier"
	"docvalidator/extract"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ClassifyRequest carries a document to classify. ContentType defaults to
// text/plain.
type ClassifyRequest struct {
	Text        string `json:"text"`
	ContentType string `json:"content_type,omitempty"`
}

type ChunkResponse struct {
	Index         int        `json:"index"`
	Text          string     `json:"text"`
	Class         int        `json:"class"`
	Probabilities [2]float32 `json:"probabilities"`
	Weight        float32    `json:"weight"`
}

type ClassifyResponse struct {
	ID            string          `json:"id"`
	Class         int             `json:"class"`
	Probabilities [2]float32      `json:"probabilities"`
	Chunks        []ChunkResponse `json:"chunks,omitempty"`
}

type ErrorResponse struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// ClassifyHandler classifies a whole document, chunking it as needed.
func (s *Server) ClassifyHandler(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	text, ok := s.decode(w, r, id)
	if !ok {
		return
	}

	var chunks []ChunkResponse
	collect := func(cr classifier.ChunkResult) {
		chunks = append(chunks, ChunkResponse{
			Index:         cr.Index,
			Text:          cr.Text,
			Class:         cr.Prediction.Class,
			Probabilities: cr.Prediction.Probabilities,
			Weight:        cr.Weight,
		})
	}

	s.inferMu.Lock()
	p, err := s.aggregator.PredictLongDocument(r.Context(), text, collect)
	s.inferMu.Unlock()
	if err != nil {
		s.writeError(w, id, err)
		return
	}

	s.logger.Info("document classified",
		zap.String("id", id),
		zap.Int("class", p.Class),
		zap.Int("chunks", len(chunks)))

	s.writeJSON(w, http.StatusOK, ClassifyResponse{
		ID:            id,
		Class:         p.Class,
		Probabilities: p.Probabilities,
		Chunks:        chunks,
	})
}

// ClassifyChunkHandler runs the model once on the text; tokens beyond the
// model's max length are truncated.
func (s *Server) ClassifyChunkHandler(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	text, ok := s.decode(w, r, id)
	if !ok {
		return
	}

	s.inferMu.Lock()
	p, err := s.classifier.Classify(r.Context(), text)
	s.inferMu.Unlock()
	if err != nil {
		s.writeError(w, id, err)
		return
	}

	s.writeJSON(w, http.StatusOK, ClassifyResponse{
		ID:            id,
		Class:         p.Class,
		Probabilities: p.Probabilities,
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, id string) (string, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return "", false
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	defer r.Body.Close()

	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{ID: id, Kind: "input", Error: "request body too large"})
			return "", false
		}
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{ID: id, Kind: "input", Error: "invalid JSON"})
		return "", false
	}

	text, err := extract.Text(req.ContentType, req.Text)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{ID: id, Kind: "input", Error: err.Error()})
		return "", false
	}
	return text, true
}

func (s *Server) writeError(w http.ResponseWriter, id string, err error) {
	kind := classifier.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case classifier.KindInput:
		status = http.StatusBadRequest
	case classifier.KindDegenerateAggregation:
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("classification failed", zap.String("id", id), zap.Error(err))
	} else {
		s.logger.Info("rejected document", zap.String("id", id), zap.Error(err))
	}

	s.writeJSON(w, status, ErrorResponse{ID: id, Kind: kind.String(), Error: err.Error()})
}

// writeJSON encodes before writing the header so an unencodable value turns
// into a 500 instead of an empty 200.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to encode response", zap.Int("status", status), zap.Error(err))
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}
