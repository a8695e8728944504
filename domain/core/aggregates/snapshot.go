package aggregates

import (
	"time"

	"homedash-backend/domain/core/entities"
	"homedash-backend/domain/core/valueobjects"
	"homedash-backend/domain/events"
	"homedash-backend/domain/registry"
	pkgerrors "homedash-backend/pkg/errors"
)

// Snapshot is the JSON-serializable full-document form of a layout. The
// autosaver always ships a whole snapshot, never a diff, so an in-flight
// save losing a race with a newer mutation is harmless: the next save
// re-sends the latest state.
type Snapshot struct {
	UserID        string                                             `json:"user_id"`
	Mode          LayoutMode                                         `json:"mode"`
	SchemaVersion int                                                `json:"schema_version"`
	Revision      int                                                `json:"revision"`
	Widgets       []WidgetSnapshot                                   `json:"widgets"`
	Placements    map[valueobjects.Breakpoint][]PlacementEntry       `json:"placements,omitempty"`
	Flow          []FlowEntry                                        `json:"flow,omitempty"`
	CreatedAt     time.Time                                          `json:"created_at"`
	UpdatedAt     time.Time                                          `json:"updated_at"`
}

// WidgetSnapshot is the persisted form of one widget instance
type WidgetSnapshot struct {
	ID        valueobjects.WidgetID  `json:"id"`
	Type      registry.WidgetType    `json:"type"`
	Settings  map[string]interface{} `json:"settings,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// Snapshot captures the layout's current full state. The copy is deep
// enough that later mutations never leak into a dispatched save payload.
// Grid placements are compacted per breakpoint before serialization:
// drag gestures may leave raw rectangles overlapping, but the persisted
// document is always overlap-free.
func (l *Layout) Snapshot() Snapshot {
	snap := Snapshot{
		UserID:        l.userID,
		Mode:          l.mode,
		SchemaVersion: l.schemaVersion,
		Revision:      l.revision,
		Widgets:       make([]WidgetSnapshot, 0, len(l.widgets)),
		CreatedAt:     l.createdAt,
		UpdatedAt:     l.updatedAt,
	}

	for _, w := range l.Widgets() {
		snap.Widgets = append(snap.Widgets, WidgetSnapshot{
			ID:        w.ID(),
			Type:      w.Type(),
			Settings:  w.Settings(),
			CreatedAt: w.CreatedAt(),
			UpdatedAt: w.UpdatedAt(),
		})
	}

	switch l.mode {
	case ModeGrid:
		snap.Placements = make(map[valueobjects.Breakpoint][]PlacementEntry, len(l.placements))
		for bp := range l.placements {
			entries := l.PlacementsFor(bp)
			if spec, err := valueobjects.SpecFor(bp); err == nil {
				entries = Reflow(entries, spec.Columns)
			}
			snap.Placements[bp] = entries
		}
	case ModeFlow:
		snap.Flow = l.FlowEntries()
	}

	return snap
}

// FromSnapshot hydrates a layout aggregate from a persisted document.
// Widget types are not re-validated against the registry: stale layouts
// referencing retired types must still load (they render as placeholders).
// Placement entries are kept even when dangling; the render pass skips
// them without mutating the stored document.
func FromSnapshot(snap Snapshot) (*Layout, error) {
	if snap.UserID == "" {
		return nil, pkgerrors.NewValidationError("layout snapshot missing user ID")
	}
	mode := snap.Mode
	if mode == "" {
		mode = ModeGrid
	}
	if mode != ModeGrid && mode != ModeFlow {
		return nil, pkgerrors.NewValidationError("unknown layout mode: " + string(mode))
	}

	l := &Layout{
		userID:        snap.UserID,
		mode:          mode,
		widgets:       make(map[string]*entities.Widget, len(snap.Widgets)),
		placements:    make(map[valueobjects.Breakpoint][]PlacementEntry),
		flow:          []FlowEntry{},
		schemaVersion: snap.SchemaVersion,
		revision:      snap.Revision,
		createdAt:     snap.CreatedAt,
		updatedAt:     snap.UpdatedAt,
		events:        []events.DomainEvent{},
	}

	for _, ws := range snap.Widgets {
		widget, err := entities.ReconstructWidget(ws.ID, ws.Type, ws.Settings, ws.CreatedAt, ws.UpdatedAt)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "invalid widget in layout snapshot")
		}
		l.widgets[ws.ID.String()] = widget
	}

	for _, bp := range valueobjects.AllBreakpoints() {
		l.placements[bp] = []PlacementEntry{}
	}
	for bp, entries := range snap.Placements {
		list := make([]PlacementEntry, len(entries))
		copy(list, entries)
		l.placements[bp] = list
	}

	if len(snap.Flow) > 0 {
		l.flow = make([]FlowEntry, len(snap.Flow))
		copy(l.flow, snap.Flow)
		l.renumberFlow()
	}

	return l, nil
}
