package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mindmesh-ai/mindmesh/internal/api/middleware"
	"github.com/mindmesh-ai/mindmesh/internal/domain"
	"github.com/mindmesh-ai/mindmesh/internal/memory"
)

// CognitiveHandler ingests metric observations and exposes goal snapshots.
// Metrics arrive from the caller's own signal extraction; the reflex engine
// reads them on the next pipeline run.
type CognitiveHandler struct {
	managers *memory.Cache
}

func NewCognitiveHandler(managers *memory.Cache) *CognitiveHandler {
	return &CognitiveHandler{managers: managers}
}

type recordMetricRequest struct {
	UserID     uuid.UUID `json:"user_id"`
	MetricType string    `json:"metric_type"`
	Category   string    `json:"category"`
	Subject    string    `json:"subject,omitempty"`
	Value      float64   `json:"value"`
	Threshold  float64   `json:"threshold,omitempty"`
}

func (h *CognitiveHandler) RecordMetric(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	agentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	var req recordMetricRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.MetricType == "" {
		writeError(w, http.StatusBadRequest, "metric_type is required")
		return
	}
	if !domain.ValidMetricCategory(req.Category) {
		writeError(w, http.StatusBadRequest, "category must be emotional, behavioral or cognitive")
		return
	}

	mgr, err := h.managers.GetOrCreate(tenant.ID, agentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to acquire memory manager")
		return
	}

	metric := &domain.CognitiveMetric{
		MetricType: req.MetricType,
		Category:   domain.MetricCategory(req.Category),
		Subject:    req.Subject,
		Value:      req.Value,
		Threshold:  req.Threshold,
	}
	if err := mgr.StoreCognitiveMetric(r.Context(), req.UserID, metric); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to record metric")
		return
	}

	writeJSON(w, http.StatusCreated, metric)
}

func (h *CognitiveHandler) ListGoals(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	agentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}

	mgr, err := h.managers.GetOrCreate(tenant.ID, agentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to acquire memory manager")
		return
	}

	goals, err := mgr.Goals(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list goals")
		return
	}
	if goals == nil {
		goals = []domain.GoalAssessment{}
	}

	writeJSON(w, http.StatusOK, goals)
}
