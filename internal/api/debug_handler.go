package api

import (
	"net/http"

	"github.com/phrazzld/adsmith-api/internal/api/shared"
	"github.com/phrazzld/adsmith-api/internal/domain"
	"github.com/phrazzld/adsmith-api/internal/generation"
)

// DebugHandler serves operator-only diagnostics. Its routes are mounted only
// when debug routes are enabled.
type DebugHandler struct {
	models generation.ModelLister
}

// NewDebugHandler creates a DebugHandler.
func NewDebugHandler(models generation.ModelLister) *DebugHandler {
	return &DebugHandler{models: models}
}

// ListModels handles GET /api/debug/list-models.
func (h *DebugHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.models.ListModels(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list models")
		return
	}
	if models == nil {
		models = []domain.ModelInfo{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ModelsResponse{Models: models})
}
