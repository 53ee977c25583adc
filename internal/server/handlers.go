package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/dyike/StockScout/internal/models"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("write response failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"time":             time.Now().UTC().Format(time.RFC3339),
		"live_subscribers": s.broadcaster.SubscriberCount(),
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req models.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" && len(req.ConfirmedTickers) == 0 && req.ConversationID == "" {
		s.writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	resp, err := s.coordinator.Handle(r.Context(), &req)
	if err != nil {
		s.log.WithError(err).WithField("request_id", req.RequestID).Error("analyze failed")
		s.writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	// Partial per-ticker failures still return 200 with a populated errors
	// array.
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, http.StatusServiceUnavailable, "history store not configured")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := s.history.ListRequests(r.Context(), limit)
	if err != nil {
		s.log.WithError(err).Error("history read failed")
		s.writeError(w, http.StatusInternalServerError, "history read failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"requests": records})
}

func (s *Server) handleHistoryInsights(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, http.StatusServiceUnavailable, "history store not configured")
		return
	}

	requestID := mux.Vars(r)["request_id"]
	insights, err := s.history.GetInsights(r.Context(), requestID)
	if err != nil {
		s.log.WithError(err).WithField("request_id", requestID).Error("history read failed")
		s.writeError(w, http.StatusInternalServerError, "history read failed")
		return
	}
	if len(insights) == 0 {
		s.writeError(w, http.StatusNotFound, "no insights for request "+requestID)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"request_id": requestID, "insights": insights})
}
