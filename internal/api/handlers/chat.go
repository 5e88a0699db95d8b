package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mindmesh-ai/mindmesh/internal/api/middleware"
	"github.com/mindmesh-ai/mindmesh/internal/domain"
	"github.com/mindmesh-ai/mindmesh/internal/memory"
	"github.com/mindmesh-ai/mindmesh/internal/orchestrator"
	"github.com/mindmesh-ai/mindmesh/internal/store"
)

// ChatHandler fronts the orchestrator. It validates, resolves the contract
// and manager, and delegates; no pipeline logic lives here.
type ChatHandler struct {
	contracts domain.ContractStore
	managers  *memory.Cache
	orch      *orchestrator.Orchestrator
}

func NewChatHandler(contracts domain.ContractStore, managers *memory.Cache, orch *orchestrator.Orchestrator) *ChatHandler {
	return &ChatHandler{contracts: contracts, managers: managers, orch: orch}
}

type chatRequest struct {
	ThreadID uuid.UUID `json:"thread_id,omitempty"`
	UserID   uuid.UUID `json:"user_id"`
	Input    string    `json:"input"`
}

type chatResponse struct {
	ThreadID string `json:"thread_id"`
	orchestrator.ChatResult
}

// Chat runs one conversational turn against the agent. A missing thread_id
// starts a new thread.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
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

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Input == "" {
		writeError(w, http.StatusBadRequest, "input is required")
		return
	}
	if req.UserID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.ThreadID == uuid.Nil {
		req.ThreadID = uuid.New()
	}

	contract, mgr, ok := h.resolve(w, r, tenant.ID, agentID)
	if !ok {
		return
	}

	result, err := h.orch.Chat(r.Context(), contract, mgr, req.ThreadID, req.UserID, req.Input)
	if err != nil {
		if errors.Is(err, orchestrator.ErrModelInvocation) {
			writeError(w, http.StatusBadGateway, "model invocation failed, retry later")
			return
		}
		writeError(w, http.StatusInternalServerError, "chat failed")
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		ThreadID:   req.ThreadID.String(),
		ChatResult: *result,
	})
}

type flowRequest struct {
	UserID uuid.UUID `json:"user_id"`
	Input  string    `json:"input"`
}

// Flow runs the discovery full flow: goal extraction plus affirmation and
// protocol synthesis.
func (h *ChatHandler) Flow(w http.ResponseWriter, r *http.Request) {
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

	var req flowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Input == "" {
		writeError(w, http.StatusBadRequest, "input is required")
		return
	}
	if req.UserID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	contract, mgr, ok := h.resolve(w, r, tenant.ID, agentID)
	if !ok {
		return
	}

	result, err := h.orch.RunFullFlow(r.Context(), contract, mgr, req.UserID, req.Input)
	if err != nil {
		if errors.Is(err, orchestrator.ErrModelInvocation) {
			writeError(w, http.StatusBadGateway, "model invocation failed, retry later")
			return
		}
		writeError(w, http.StatusInternalServerError, "flow failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// resolve loads the contract and the manager for the pair, writing the error
// response itself on failure.
func (h *ChatHandler) resolve(w http.ResponseWriter, r *http.Request, tenantID, agentID uuid.UUID) (*domain.Contract, *memory.Manager, bool) {
	contract, err := h.contracts.GetByID(r.Context(), agentID, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "agent not found")
			return nil, nil, false
		}
		writeError(w, http.StatusInternalServerError, "failed to load agent contract")
		return nil, nil, false
	}

	mgr, err := h.managers.GetOrCreate(tenantID, agentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to acquire memory manager")
		return nil, nil, false
	}
	return contract, mgr, true
}
