package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"homedash-backend/application/services"
	"homedash-backend/pkg/auth"
	"homedash-backend/pkg/common"
	pkgerrors "homedash-backend/pkg/errors"
)

// defaultViewportWidth is assumed when the client omits ?width; wide
// desktop is the common case.
const defaultViewportWidth = 1280

// LayoutHandler handles dashboard layout HTTP requests
type LayoutHandler struct {
	service      *services.LayoutService
	errorHandler *pkgerrors.ErrorHandler
	logger       *zap.Logger
}

// NewLayoutHandler creates a new layout handler
func NewLayoutHandler(service *services.LayoutService, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *LayoutHandler {
	return &LayoutHandler{
		service:      service,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// LayoutResponse wraps a rendered layout with its autosave state
type LayoutResponse struct {
	Layout    interface{} `json:"layout"`
	SaveState string      `json:"save_state"`
}

// GetLayout handles GET /dashboard/layout?width=N
func (h *LayoutHandler) GetLayout(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Unauthorized")
		return
	}

	width := defaultViewportWidth
	if raw := r.URL.Query().Get("width"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "width must be a positive integer")
			return
		}
		width = parsed
	}

	model, err := h.service.Render(r.Context(), userCtx.UserID, width)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, LayoutResponse{
		Layout:    model,
		SaveState: string(h.service.SaveState(userCtx.UserID)),
	})
}

// GetSaveState handles GET /dashboard/layout/state
func (h *LayoutHandler) GetSaveState(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Unauthorized")
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{
		"save_state": string(h.service.SaveState(userCtx.UserID)),
	})
}

// FlushLayout handles POST /dashboard/flush. Clients call this
// on page unload so pending changes survive the tab closing.
func (h *LayoutHandler) FlushLayout(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Unauthorized")
		return
	}

	if err := h.service.Flush(r.Context(), userCtx.UserID); err != nil {
		h.logger.Warn("Explicit flush failed",
			zap.String("userId", userCtx.UserID),
			zap.Error(err),
		)
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{
		"save_state": string(h.service.SaveState(userCtx.UserID)),
	})
}

// GetWidgetTypes handles GET /dashboard/widget-types
func (h *LayoutHandler) GetWidgetTypes(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"widget_types": h.service.WidgetTypes(),
	})
}
