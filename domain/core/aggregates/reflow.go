package aggregates

import (
	"sort"

	"homedash-backend/domain/core/valueobjects"
	"homedash-backend/domain/registry"
)

// Reflow compacts one breakpoint's raw placements into a non-overlapping
// arrangement: entries are processed in increasing (y, x) order and each
// one slides straight down to the smallest row at or above its requested
// position that clears everything already placed. X and W never change
// (beyond the initial clamp to the column count), relative vertical order
// is preserved as closely as the no-overlap constraint allows, and the
// pass is idempotent.
func Reflow(entries []PlacementEntry, columns int) []PlacementEntry {
	out := make([]PlacementEntry, len(entries))
	copy(out, entries)

	for i := range out {
		out[i].Rect = out[i].Rect.ClampToColumns(columns)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rect.Y != out[j].Rect.Y {
			return out[i].Rect.Y < out[j].Rect.Y
		}
		return out[i].Rect.X < out[j].Rect.X
	})

	placed := make([]valueobjects.Rect, 0, len(out))
	for i := range out {
		rect := out[i].Rect
		for {
			collided := false
			for _, p := range placed {
				if rect.Overlaps(p) {
					if p.Bottom() > rect.Y {
						rect.Y = p.Bottom()
					}
					collided = true
				}
			}
			if !collided {
				break
			}
		}
		out[i].Rect = rect
		placed = append(placed, rect)
	}

	return out
}

// RenderedWidget is what the frontend's widget renderer receives for one
// panel: identity, pass-through settings, and either a grid rectangle or
// a flow span depending on the layout mode.
type RenderedWidget struct {
	ID       valueobjects.WidgetID  `json:"id"`
	Type     registry.WidgetType    `json:"type"`
	Title    string                 `json:"title"`
	Known    bool                   `json:"known"`
	Settings map[string]interface{} `json:"settings"`

	// Grid mode
	Rect *valueobjects.Rect `json:"rect,omitempty"`

	// Flow mode
	SizeClass  valueobjects.SizeClass `json:"size_class,omitempty"`
	ColumnSpan int                    `json:"column_span,omitempty"`
}

// RenderModel is the reflowed, render-ready view of a layout at one
// breakpoint
type RenderModel struct {
	Breakpoint valueobjects.Breakpoint `json:"breakpoint"`
	Columns    int                     `json:"columns"`
	Mode       LayoutMode              `json:"mode"`
	Widgets    []RenderedWidget        `json:"widgets"`

	// Dangling holds placement references whose widget instance is gone.
	// They are skipped from Widgets, never fatal; callers log them for
	// diagnostics only.
	Dangling []valueobjects.WidgetID `json:"-"`
}

// Render produces the final layout for one breakpoint. Grid mode runs the
// compaction pass; flow mode maps size classes to column spans. Placement
// entries referencing a widget the store no longer knows are skipped.
// Widgets whose type has left the registry render as the unknown-widget
// placeholder.
func (l *Layout) Render(spec valueobjects.BreakpointSpec) RenderModel {
	model := RenderModel{
		Breakpoint: spec.Name,
		Columns:    spec.Columns,
		Mode:       l.mode,
	}

	switch l.mode {
	case ModeGrid:
		for _, entry := range Reflow(l.placements[spec.Name], spec.Columns) {
			widget, ok := l.widgets[entry.WidgetID.String()]
			if !ok {
				model.Dangling = append(model.Dangling, entry.WidgetID)
				continue
			}
			rect := entry.Rect
			model.Widgets = append(model.Widgets, RenderedWidget{
				ID:       widget.ID(),
				Type:     widget.Type(),
				Title:    registry.LookupOrPlaceholder(widget.Type()).Title,
				Known:    registry.IsRegistered(widget.Type()),
				Settings: widget.Settings(),
				Rect:     &rect,
			})
		}
	case ModeFlow:
		for _, entry := range l.flow {
			widget, ok := l.widgets[entry.WidgetID.String()]
			if !ok {
				model.Dangling = append(model.Dangling, entry.WidgetID)
				continue
			}
			model.Widgets = append(model.Widgets, RenderedWidget{
				ID:         widget.ID(),
				Type:       widget.Type(),
				Title:      registry.LookupOrPlaceholder(widget.Type()).Title,
				Known:      registry.IsRegistered(widget.Type()),
				Settings:   widget.Settings(),
				SizeClass:  entry.Size,
				ColumnSpan: entry.Size.ColumnSpan(spec.Columns),
			})
		}
	}

	return model
}
