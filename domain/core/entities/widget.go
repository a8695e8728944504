package entities

import (
	"time"

	"homedash-backend/domain/config"
	"homedash-backend/domain/core/valueobjects"
	"homedash-backend/domain/registry"
	pkgerrors "homedash-backend/pkg/errors"
)

// Widget is one placed dashboard panel. The type is immutable after
// creation; the settings bag is opaque to the layout engine and round-trips
// unchanged to whichever renderer owns the type.
type Widget struct {
	id         valueobjects.WidgetID
	widgetType registry.WidgetType
	settings   map[string]interface{}
	createdAt  time.Time
	updatedAt  time.Time
}

// NewWidget creates a widget of a registered type with a fresh ID
func NewWidget(widgetType registry.WidgetType) (*Widget, error) {
	if !registry.IsRegistered(widgetType) {
		return nil, pkgerrors.NewUnknownWidgetTypeError(string(widgetType))
	}

	now := time.Now()
	return &Widget{
		id:         valueobjects.NewWidgetID(),
		widgetType: widgetType,
		settings:   make(map[string]interface{}),
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// ReconstructWidget rebuilds a widget from persisted data. The type is
// deliberately not checked against the registry here: a saved layout may
// reference a type removed in a later product version, and it must still
// hydrate so the renderer can show the unknown-widget placeholder.
func ReconstructWidget(
	id valueobjects.WidgetID,
	widgetType registry.WidgetType,
	settings map[string]interface{},
	createdAt, updatedAt time.Time,
) (*Widget, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("widget ID cannot be empty")
	}
	if settings == nil {
		settings = make(map[string]interface{})
	}

	return &Widget{
		id:         id,
		widgetType: widgetType,
		settings:   settings,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}, nil
}

// ID returns the widget's unique identifier
func (w *Widget) ID() valueobjects.WidgetID {
	return w.id
}

// Type returns the widget's registry type
func (w *Widget) Type() registry.WidgetType {
	return w.widgetType
}

// Settings returns a copy of the settings bag
func (w *Widget) Settings() map[string]interface{} {
	out := make(map[string]interface{}, len(w.settings))
	for k, v := range w.settings {
		out[k] = v
	}
	return out
}

// MergeSettings shallow-merges the partial bag into the widget's settings.
// Keys absent from the partial are left untouched; a nil value removes the
// key so renderers can reset an option to its default.
func (w *Widget) MergeSettings(partial map[string]interface{}) error {
	if len(partial) == 0 {
		return nil
	}
	if len(w.settings)+len(partial) > config.DefaultDomainConfig().MaxSettingsKeys {
		return pkgerrors.NewValidationError("widget settings bag is too large")
	}

	for k, v := range partial {
		if v == nil {
			delete(w.settings, k)
			continue
		}
		w.settings[k] = v
	}
	w.updatedAt = time.Now()
	return nil
}

// CreatedAt returns when the widget was created
func (w *Widget) CreatedAt() time.Time {
	return w.createdAt
}

// UpdatedAt returns when the widget was last modified
func (w *Widget) UpdatedAt() time.Time {
	return w.updatedAt
}
