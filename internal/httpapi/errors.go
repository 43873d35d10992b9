package httpapi

import (
	"errors"
	"net/http"

	"sarinfer/internal/models"
	"sarinfer/internal/registry"
	"sarinfer/internal/storage"
	"sarinfer/internal/transfer"
	"sarinfer/internal/utils"
)

// transferErrorResponse carries the per-file report alongside a failed
// backup or restore.
type transferErrorResponse struct {
	Error  string                 `json:"error"`
	Result *registry.BackupResult `json:"result,omitempty"`
}

// statusFor maps a service error to an HTTP status and a client message.
// Unrecognised errors are reported as 500 without detail.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, registry.ErrMissingReference),
		errors.Is(err, registry.ErrNoBucket),
		errors.Is(err, transfer.ErrFolderNotFound):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, registry.ErrPathNotAllowed):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, storage.ErrModelNotFound):
		return http.StatusNotFound, "Model not found"
	case errors.Is(err, transfer.ErrBucketNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, registry.ErrPartialTransfer),
		errors.Is(err, transfer.ErrBackend):
		return http.StatusBadGateway, err.Error()
	}
	return http.StatusInternalServerError, "Internal server error"
}

func (h *ModelsHandler) respondError(w http.ResponseWriter, err error) {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "status", code, "error", err)
	}
	utils.RespondWithError(w, code, msg)
}

func (h *ModelsHandler) respondTransferError(w http.ResponseWriter, err error, result *registry.BackupResult) {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error("Transfer failed", "status", code, "error", err)
	}
	_ = utils.RespondWithJSON(w, code, transferErrorResponse{Error: msg, Result: result})
}
