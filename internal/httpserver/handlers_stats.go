package httpserver

import (
	"fmt"
	"net/http"
)

// handleStatsOverall handles GET /stats/overall
func (s *HTTPServer) handleStatsOverall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.respondJSON(w, http.StatusOK, s.ledger.Overall())
}

// handleStatsConversations handles GET /stats/conversations
func (s *HTTPServer) handleStatsConversations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.respondJSON(w, http.StatusOK, ConversationListResponse{Conversations: s.ledger.Conversations()})
}

// handleStatsConversation handles GET /stats/conversations/{id}
func (s *HTTPServer) handleStatsConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := r.PathValue("id")
	conv, ok := s.ledger.Conversation(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("conversation %q not found", id))
		return
	}
	s.respondJSON(w, http.StatusOK, conv)
}

// handleStatsModels handles GET /stats/models
func (s *HTTPServer) handleStatsModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.respondJSON(w, http.StatusOK, ModelListResponse{Models: s.ledger.Models()})
}

// handleStatsModel handles GET /stats/models/{id}
func (s *HTTPServer) handleStatsModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := r.PathValue("id")
	model, ok := s.ledger.Model(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("model %q not found", id))
		return
	}
	s.respondJSON(w, http.StatusOK, model)
}

// handleStatsDaily handles GET /stats/daily?days=7
func (s *HTTPServer) handleStatsDaily(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	days, err := parseDays(r.URL.Query().Get("days"), s.dailyWindow)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, DailyResponse{Days: days, Daily: s.ledger.Daily(days)})
}

// handleStatsShare handles GET /stats/share
func (s *HTTPServer) handleStatsShare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.respondJSON(w, http.StatusOK, ShareResponse{Models: s.ledger.ModelShares()})
}
