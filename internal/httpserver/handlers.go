package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// handleHealth handles GET /health
func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: s.version,
		Events:  s.ledger.Len(),
	})
}

// handleUsage handles POST /usage (record one event) and DELETE /usage (clear).
func (s *HTTPServer) handleUsage(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleRecordUsage(w, r)
	case http.MethodDelete:
		s.ledger.Clear()
		s.respondJSON(w, http.StatusOK, ClearResponse{Cleared: true})
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleRecordUsage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req RecordUsageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	if req.ConversationID == "" {
		s.respondError(w, http.StatusBadRequest, "field 'conversationId' is required")
		return
	}
	if req.ModelID == "" {
		s.respondError(w, http.StatusBadRequest, "field 'modelId' is required")
		return
	}

	ev := s.ledger.Record(req.ConversationID, req.ModelID, req.InputTokens, req.OutputTokens)
	s.respondJSON(w, http.StatusCreated, ev)
}

// handleExport handles GET /export?format=json|csv
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	var (
		data        []byte
		err         error
		contentType string
	)
	switch format {
	case "json":
		data, err = s.ledger.ExportJSON()
		contentType = "application/json"
	case "csv":
		data, err = s.ledger.ExportCSV()
		contentType = "text/csv; charset=utf-8"
	default:
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q (expected json or csv)", format))
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("export failed: %v", err))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="token-usage.%s"`, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
