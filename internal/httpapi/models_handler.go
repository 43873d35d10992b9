package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"sarinfer/internal/models"
	"sarinfer/internal/registry"
	"sarinfer/internal/utils"
)

// ModelsHandler serves /api/v1/models.
type ModelsHandler struct {
	svc    *registry.Service
	logger *utils.Logger
}

// NewModelsHandler creates a new models handler
func NewModelsHandler(svc *registry.Service) *ModelsHandler {
	return &ModelsHandler{
		svc:    svc,
		logger: utils.NewLogger("httpapi"),
	}
}

// ListModelsResponse is the body of GET /api/v1/models.
type ListModelsResponse struct {
	Models []*models.ModelMetadata `json:"models"`
	Total  int                     `json:"total"`
}

// TransferRequest is the optional body of the backup and restore endpoints.
type TransferRequest struct {
	LocalPath string `json:"local_path,omitempty"`
	Bucket    string `json:"bucket,omitempty"`
	Prefix    string `json:"prefix,omitempty"`
}

// List handles GET /api/v1/models
func (h *ModelsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	if list == nil {
		list = []*models.ModelMetadata{}
	}
	_ = utils.RespondWithJSON(w, http.StatusOK, ListModelsResponse{Models: list, Total: len(list)})
}

// Register handles POST /api/v1/models
func (h *ModelsHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registry.RegisterRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	m, created, err := h.svc.Register(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if !created {
		utils.RespondWithError(w, http.StatusConflict, "Model with this model_id already exists")
		return
	}
	_ = utils.RespondWithJSON(w, http.StatusCreated, m)
}

// Get handles GET /api/v1/models/{id}
func (h *ModelsHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	_ = utils.RespondWithJSON(w, http.StatusOK, m)
}

// Update handles PATCH /api/v1/models/{id}
func (h *ModelsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var update models.MetadataUpdate
	if err := utils.DecodeJSON(r, &update); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	m, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), update)
	if err != nil {
		h.respondError(w, err)
		return
	}
	_ = utils.RespondWithJSON(w, http.StatusOK, m)
}

// Delete handles DELETE /api/v1/models/{id}
func (h *ModelsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Backup handles POST /api/v1/models/{id}/backup
func (h *ModelsHandler) Backup(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	result, err := h.svc.Backup(r.Context(), registry.BackupRequest{
		ModelRef:  registry.ModelRef{ModelID: chi.URLParam(r, "id")},
		LocalPath: req.LocalPath,
		Bucket:    req.Bucket,
		Prefix:    req.Prefix,
	})
	if err != nil {
		h.respondTransferError(w, err, result)
		return
	}
	_ = utils.RespondWithJSON(w, http.StatusOK, result)
}

// Restore handles POST /api/v1/models/{id}/restore
func (h *ModelsHandler) Restore(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	result, err := h.svc.Restore(r.Context(), registry.RestoreRequest{
		ModelRef:  registry.ModelRef{ModelID: chi.URLParam(r, "id")},
		LocalPath: req.LocalPath,
		Bucket:    req.Bucket,
		Prefix:    req.Prefix,
	})
	if err != nil {
		h.respondTransferError(w, err, result)
		return
	}
	_ = utils.RespondWithJSON(w, http.StatusOK, result)
}

// Load handles POST /api/v1/models/{id}/load. Loading is only requested;
// the response does not wait for it.
func (h *ModelsHandler) Load(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	if err := h.svc.Load(r.Context(), m.ModelName); err != nil {
		h.respondError(w, err)
		return
	}
	_ = utils.RespondWithJSON(w, http.StatusAccepted, map[string]string{
		"model_id":   m.ModelID,
		"model_name": m.ModelName,
		"status":     "load requested",
	})
}
