package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mindmesh-ai/mindmesh/internal/api/middleware"
	"github.com/mindmesh-ai/mindmesh/internal/domain"
	"github.com/mindmesh-ai/mindmesh/internal/store"
)

type ContractHandler struct {
	store domain.ContractStore
}

func NewContractHandler(s domain.ContractStore) *ContractHandler {
	return &ContractHandler{store: s}
}

type contractRequest struct {
	Name          string               `json:"name"`
	Type          string               `json:"type"`
	Identity      domain.Identity      `json:"identity"`
	Traits        domain.Traits        `json:"traits"`
	Configuration domain.Configuration `json:"configuration"`
	Voice         *domain.VoiceProfile `json:"voice,omitempty"`
}

// Create validates and stores a new contract at version 1.
func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req contractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	contract, err := domain.NewContract(tenant.ID, req.Name, domain.ContractType(req.Type),
		req.Identity, req.Traits, req.Configuration, req.Voice)
	if err != nil {
		if errors.Is(err, domain.ErrContractInvalid) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create contract")
		return
	}

	if err := h.store.Create(r.Context(), contract); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create contract")
		return
	}

	writeJSON(w, http.StatusCreated, contract)
}

func (h *ContractHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid contract id")
		return
	}

	contract, err := h.store.GetByID(r.Context(), id, tenant.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "contract not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get contract")
		return
	}

	writeJSON(w, http.StatusOK, contract)
}

// Update appends a new contract version; the stored history is append-only
// and prior versions stay readable.
func (h *ContractHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid contract id")
		return
	}

	var req contractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	current, err := h.store.GetByID(r.Context(), id, tenant.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "contract not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load contract")
		return
	}

	next, err := current.NewVersion(req.Identity, req.Traits, req.Configuration, req.Voice)
	if err != nil {
		if errors.Is(err, domain.ErrContractInvalid) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to build contract version")
		return
	}

	if err := h.store.AppendVersion(r.Context(), next); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Someone appended a version between our read and write.
			writeError(w, http.StatusConflict, "contract was updated concurrently, retry")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update contract")
		return
	}

	writeJSON(w, http.StatusOK, next)
}

func (h *ContractHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid contract id")
		return
	}

	versions, err := h.store.ListVersions(r.Context(), id, tenant.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list versions")
		return
	}
	if len(versions) == 0 {
		writeError(w, http.StatusNotFound, "contract not found")
		return
	}

	writeJSON(w, http.StatusOK, versions)
}
