package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"homedash-backend/application/services"
	"homedash-backend/domain/core/aggregates"
	"homedash-backend/domain/core/valueobjects"
	"homedash-backend/domain/registry"
	"homedash-backend/pkg/auth"
	"homedash-backend/pkg/common"
	pkgerrors "homedash-backend/pkg/errors"
	"homedash-backend/pkg/utils"
)

// WidgetHandler handles widget mutation HTTP requests. Every mutation
// responds with the full layout document so the client can reconcile
// without a follow-up fetch.
type WidgetHandler struct {
	service      *services.LayoutService
	errorHandler *pkgerrors.ErrorHandler
	logger       *zap.Logger
}

// NewWidgetHandler creates a new widget handler
func NewWidgetHandler(service *services.LayoutService, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *WidgetHandler {
	return &WidgetHandler{
		service:      service,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// AddWidgetRequest represents the request body for adding a widget
type AddWidgetRequest struct {
	Type      string              `json:"type" validate:"required,min=1,max=50"`
	Sizes     map[string]SizeBody `json:"sizes,omitempty"`
	SizeClass string              `json:"size_class,omitempty" validate:"omitempty,oneof=small medium large wide"`
}

// SizeBody is a widget footprint override for one breakpoint
type SizeBody struct {
	W int `json:"w" validate:"gte=1"`
	H int `json:"h" validate:"gte=1"`
}

// PlacementRequest represents the request body for moving or resizing a
// widget at one breakpoint
type PlacementRequest struct {
	Breakpoint string   `json:"breakpoint" validate:"required"`
	Rect       RectBody `json:"rect" validate:"required"`
}

// RectBody is the placement rectangle payload
type RectBody struct {
	X int `json:"x" validate:"gte=0"`
	Y int `json:"y" validate:"gte=0"`
	W int `json:"w" validate:"gte=1"`
	H int `json:"h" validate:"gte=1"`
}

// PositionRequest represents the request body for reordering a
// flow-mode widget
type PositionRequest struct {
	Index *int `json:"index" validate:"required"`
}

// AddWidget handles POST /dashboard/widgets
func (h *WidgetHandler) AddWidget(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Unauthorized")
		return
	}

	var req AddWidgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.ValidationError, err.Error())
		return
	}

	hint := buildSizeHint(req)

	widget, err := h.service.AddWidget(r.Context(), userCtx.UserID, registry.WidgetType(req.Type), hint)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("Widget added",
		zap.String("userId", userCtx.UserID),
		zap.String("widgetId", widget.ID().String()),
		zap.String("widgetType", req.Type),
	)

	h.respondWithLayout(w, r, userCtx.UserID, http.StatusCreated)
}

// RemoveWidget handles DELETE /dashboard/widgets/{widgetID}. Removing an
// unknown ID succeeds: the client retrying a delete must not see an
// error for work already done.
func (h *WidgetHandler) RemoveWidget(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Unauthorized")
		return
	}

	widgetID, ok := h.parseWidgetID(w, r)
	if !ok {
		return
	}

	if err := h.service.RemoveWidget(r.Context(), userCtx.UserID, widgetID); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.respondWithLayout(w, r, userCtx.UserID, http.StatusOK)
}

// UpdatePlacement handles PUT /dashboard/widgets/{widgetID}/placement
func (h *WidgetHandler) UpdatePlacement(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Unauthorized")
		return
	}

	widgetID, ok := h.parseWidgetID(w, r)
	if !ok {
		return
	}

	var req PlacementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.ValidationError, err.Error())
		return
	}

	rect := valueobjects.Rect{X: req.Rect.X, Y: req.Rect.Y, W: req.Rect.W, H: req.Rect.H}
	err = h.service.MoveOrResize(r.Context(), userCtx.UserID, widgetID, valueobjects.Breakpoint(req.Breakpoint), rect)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.respondWithLayout(w, r, userCtx.UserID, http.StatusOK)
}

// UpdatePosition handles PUT /dashboard/widgets/{widgetID}/position
func (h *WidgetHandler) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Unauthorized")
		return
	}

	widgetID, ok := h.parseWidgetID(w, r)
	if !ok {
		return
	}

	var req PositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.ValidationError, err.Error())
		return
	}

	if err := h.service.Reorder(r.Context(), userCtx.UserID, widgetID, *req.Index); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.respondWithLayout(w, r, userCtx.UserID, http.StatusOK)
}

// UpdateSettings handles PATCH /dashboard/widgets/{widgetID}/settings.
// The body is the partial settings bag itself; keys with null values
// delete the setting.
func (h *WidgetHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Unauthorized")
		return
	}

	widgetID, ok := h.parseWidgetID(w, r)
	if !ok {
		return
	}

	var partial map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := h.service.UpdateSettings(r.Context(), userCtx.UserID, widgetID, partial); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.respondWithLayout(w, r, userCtx.UserID, http.StatusOK)
}

// parseWidgetID extracts and validates the widget ID path parameter
func (h *WidgetHandler) parseWidgetID(w http.ResponseWriter, r *http.Request) (valueobjects.WidgetID, bool) {
	raw := chi.URLParam(r, "widgetID")
	if raw == "" {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Widget ID is required")
		return valueobjects.WidgetID{}, false
	}

	widgetID, err := valueobjects.NewWidgetIDFromString(raw)
	if err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.ValidationError, "Invalid widget ID")
		return valueobjects.WidgetID{}, false
	}
	return widgetID, true
}

// respondWithLayout returns the full current document plus save state
func (h *WidgetHandler) respondWithLayout(w http.ResponseWriter, r *http.Request, userID string, status int) {
	snap, err := h.service.CurrentSnapshot(r.Context(), userID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, status, LayoutResponse{
		Layout:    snap,
		SaveState: string(h.service.SaveState(userID)),
	})
}

func buildSizeHint(req AddWidgetRequest) *aggregates.SizeHint {
	if len(req.Sizes) == 0 && req.SizeClass == "" {
		return nil
	}

	hint := &aggregates.SizeHint{
		Sizes:     make(map[valueobjects.Breakpoint]registry.Size, len(req.Sizes)),
		SizeClass: valueobjects.SizeClass(req.SizeClass),
	}
	for bp, s := range req.Sizes {
		hint.Sizes[valueobjects.Breakpoint(bp)] = registry.Size{W: s.W, H: s.H}
	}
	return hint
}
