package aggregates

import (
	"sort"
	"time"

	"homedash-backend/domain/core/entities"
	"homedash-backend/domain/core/valueobjects"
	"homedash-backend/domain/events"
	"homedash-backend/domain/registry"
	pkgerrors "homedash-backend/pkg/errors"
)

// LayoutMode selects the placement strategy for a layout
type LayoutMode string

const (
	// ModeGrid places widgets by free-form (x,y,w,h) rectangles per
	// breakpoint, compacted by the reflow pass. Product default.
	ModeGrid LayoutMode = "grid"

	// ModeFlow keeps a single ordered list with declared size classes and
	// no explicit coordinates.
	ModeFlow LayoutMode = "flow"
)

// CurrentSchemaVersion is the layout document schema this build writes.
// Loads of older documents run the registered migrations first.
const CurrentSchemaVersion = 2

// PlacementEntry binds a widget to a rectangle at one breakpoint
type PlacementEntry struct {
	WidgetID valueobjects.WidgetID `json:"widget_id"`
	Rect     valueobjects.Rect     `json:"rect"`
}

// FlowEntry binds a widget to a list position and size class in flow mode
type FlowEntry struct {
	WidgetID valueobjects.WidgetID  `json:"widget_id"`
	Size     valueobjects.SizeClass `json:"size"`
	Order    int                    `json:"order"`
}

// SizeHint optionally overrides the registry defaults when adding a widget
type SizeHint struct {
	Sizes     map[valueobjects.Breakpoint]registry.Size
	SizeClass valueobjects.SizeClass
}

// Layout is the authoritative in-memory arrangement of one user's
// dashboard: the widget instances plus their placements across every
// breakpoint (grid mode) or the ordered flow list (flow mode). One user
// owns exactly one layout. All mutations are synchronous, touch no I/O,
// and leave the structural invariants intact; persistence is the
// autosaver's concern.
type Layout struct {
	userID        string
	mode          LayoutMode
	widgets       map[string]*entities.Widget
	placements    map[valueobjects.Breakpoint][]PlacementEntry
	flow          []FlowEntry
	schemaVersion int
	revision      int
	createdAt     time.Time
	updatedAt     time.Time

	events []events.DomainEvent
}

// NewLayout creates an empty layout for a user
func NewLayout(userID string, mode LayoutMode) (*Layout, error) {
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}
	if mode != ModeGrid && mode != ModeFlow {
		return nil, pkgerrors.NewValidationError("unknown layout mode: " + string(mode))
	}

	now := time.Now()
	l := &Layout{
		userID:        userID,
		mode:          mode,
		widgets:       make(map[string]*entities.Widget),
		placements:    make(map[valueobjects.Breakpoint][]PlacementEntry),
		flow:          []FlowEntry{},
		schemaVersion: CurrentSchemaVersion,
		revision:      0,
		createdAt:     now,
		updatedAt:     now,
		events:        []events.DomainEvent{},
	}
	for _, bp := range valueobjects.AllBreakpoints() {
		l.placements[bp] = []PlacementEntry{}
	}
	return l, nil
}

// UserID returns the owning user's ID
func (l *Layout) UserID() string {
	return l.userID
}

// Mode returns the placement strategy
func (l *Layout) Mode() LayoutMode {
	return l.mode
}

// SchemaVersion returns the document schema version the layout was
// hydrated from
func (l *Layout) SchemaVersion() int {
	return l.schemaVersion
}

// Revision counts mutations since the layout was created or hydrated.
// The autosaver records the revision at dispatch time to tell whether a
// completed save still reflects the latest state.
func (l *Layout) Revision() int {
	return l.revision
}

// CreatedAt returns when the layout was first generated
func (l *Layout) CreatedAt() time.Time {
	return l.createdAt
}

// UpdatedAt returns the time of the last mutation
func (l *Layout) UpdatedAt() time.Time {
	return l.updatedAt
}

// WidgetCount returns the number of widget instances
func (l *Layout) WidgetCount() int {
	return len(l.widgets)
}

// Widget looks up one widget instance by ID
func (l *Layout) Widget(id valueobjects.WidgetID) (*entities.Widget, bool) {
	w, ok := l.widgets[id.String()]
	return w, ok
}

// Widgets returns all widget instances in stable ID order
func (l *Layout) Widgets() []*entities.Widget {
	out := make([]*entities.Widget, 0, len(l.widgets))
	for _, w := range l.widgets {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID().String() < out[j].ID().String()
	})
	return out
}

// PlacementsFor returns a copy of the raw placement list at a breakpoint
func (l *Layout) PlacementsFor(bp valueobjects.Breakpoint) []PlacementEntry {
	entries := l.placements[bp]
	out := make([]PlacementEntry, len(entries))
	copy(out, entries)
	return out
}

// FlowEntries returns a copy of the flow-mode list in order
func (l *Layout) FlowEntries() []FlowEntry {
	out := make([]FlowEntry, len(l.flow))
	copy(out, l.flow)
	return out
}

// AddWidget creates a widget of the given type and places it. In grid
// mode the placement lands at the bottom of each breakpoint's current
// extent, left-aligned; in flow mode it appends to the list. The hint may
// override the registry's default footprints; capacity is never a reason
// to fail.
func (l *Layout) AddWidget(widgetType registry.WidgetType, hint *SizeHint) (*entities.Widget, error) {
	widget, err := entities.NewWidget(widgetType)
	if err != nil {
		return nil, err
	}

	switch l.mode {
	case ModeGrid:
		for _, spec := range valueobjects.DefaultBreakpoints {
			size := registry.DefaultSize(widgetType, spec.Name)
			if hint != nil {
				if s, ok := hint.Sizes[spec.Name]; ok {
					size = s
				}
			}
			rect := valueobjects.Rect{X: 0, Y: l.bottomExtent(spec.Name), W: size.W, H: size.H}
			rect = rect.ClampToColumns(spec.Columns)
			l.placements[spec.Name] = append(l.placements[spec.Name], PlacementEntry{
				WidgetID: widget.ID(),
				Rect:     rect,
			})
		}
	case ModeFlow:
		class := registry.LookupOrPlaceholder(widgetType).DefaultSizeClass
		if hint != nil && valueobjects.IsValidSizeClass(hint.SizeClass) {
			class = hint.SizeClass
		}
		l.flow = append(l.flow, FlowEntry{
			WidgetID: widget.ID(),
			Size:     class,
			Order:    len(l.flow),
		})
	}

	l.widgets[widget.ID().String()] = widget
	l.touch()
	l.addEvent(events.NewWidgetAdded(l.userID, widget.ID(), string(widgetType), l.updatedAt))
	return widget, nil
}

// RemoveWidget deletes the widget instance and every placement that
// references it. Removing an absent ID is a no-op.
func (l *Layout) RemoveWidget(id valueobjects.WidgetID) {
	if _, ok := l.widgets[id.String()]; !ok {
		return
	}

	delete(l.widgets, id.String())

	for bp, entries := range l.placements {
		kept := entries[:0]
		for _, e := range entries {
			if !e.WidgetID.Equals(id) {
				kept = append(kept, e)
			}
		}
		l.placements[bp] = kept
	}

	kept := l.flow[:0]
	for _, e := range l.flow {
		if !e.WidgetID.Equals(id) {
			kept = append(kept, e)
		}
	}
	l.flow = kept
	l.renumberFlow()

	l.touch()
	l.addEvent(events.NewWidgetRemoved(l.userID, id, l.updatedAt))
}

// MoveOrResize replaces the widget's placement at one breakpoint with the
// rectangle produced by the caller's drag gesture. Other breakpoints are
// untouched, and overlap is not checked here: the reflow pass resolves it
// deterministically before the layout is rendered or persisted.
func (l *Layout) MoveOrResize(id valueobjects.WidgetID, bp valueobjects.Breakpoint, newRect valueobjects.Rect) error {
	if l.mode != ModeGrid {
		return pkgerrors.NewValidationError("placement rectangles only apply to grid layouts").
			WithCode(pkgerrors.CodeWrongLayoutMode)
	}
	if !valueobjects.IsValidBreakpoint(bp) {
		return pkgerrors.NewValidationError("unknown breakpoint: " + string(bp)).
			WithCode(pkgerrors.CodeInvalidBreakpoint)
	}
	if err := newRect.Validate(); err != nil {
		return pkgerrors.NewValidationError(err.Error()).WithCode(pkgerrors.CodeInvalidPlacement)
	}
	if _, ok := l.widgets[id.String()]; !ok {
		return pkgerrors.NewNotFoundError("widget")
	}

	entries := l.placements[bp]
	for i, e := range entries {
		if e.WidgetID.Equals(id) {
			old := e.Rect
			if old.Equals(newRect) {
				return nil
			}
			entries[i].Rect = newRect
			l.touch()
			l.addEvent(events.NewWidgetMoved(l.userID, id, bp, old, newRect, l.updatedAt))
			return nil
		}
	}

	// A widget known to the store but missing its entry at this breakpoint
	// (e.g. hydrated from a partially-written document) gets one created.
	l.placements[bp] = append(entries, PlacementEntry{WidgetID: id, Rect: newRect})
	l.touch()
	l.addEvent(events.NewWidgetMoved(l.userID, id, bp, valueobjects.Rect{}, newRect, l.updatedAt))
	return nil
}

// Reorder splices a flow-mode widget from its current list position to
// targetIndex and renumbers every entry's order field.
func (l *Layout) Reorder(id valueobjects.WidgetID, targetIndex int) error {
	if l.mode != ModeFlow {
		return pkgerrors.NewValidationError("reordering only applies to flow layouts").
			WithCode(pkgerrors.CodeWrongLayoutMode)
	}

	current := -1
	for i, e := range l.flow {
		if e.WidgetID.Equals(id) {
			current = i
			break
		}
	}
	if current == -1 {
		return pkgerrors.NewNotFoundError("widget")
	}

	if targetIndex < 0 {
		targetIndex = 0
	}
	if targetIndex > len(l.flow)-1 {
		targetIndex = len(l.flow) - 1
	}
	if targetIndex == current {
		return nil
	}

	entry := l.flow[current]
	l.flow = append(l.flow[:current], l.flow[current+1:]...)
	l.flow = append(l.flow[:targetIndex], append([]FlowEntry{entry}, l.flow[targetIndex:]...)...)
	l.renumberFlow()

	l.touch()
	l.addEvent(events.NewWidgetReordered(l.userID, id, current, targetIndex, l.updatedAt))
	return nil
}

// UpdateSettings shallow-merges a partial settings bag into the widget.
// Placement is unaffected; this is how a widget's own configuration
// round-trips through the same persistence path as placement changes.
func (l *Layout) UpdateSettings(id valueobjects.WidgetID, partial map[string]interface{}) error {
	widget, ok := l.widgets[id.String()]
	if !ok {
		return pkgerrors.NewNotFoundError("widget")
	}
	if len(partial) == 0 {
		return nil
	}

	if err := widget.MergeSettings(partial); err != nil {
		return err
	}

	keys := make([]string, 0, len(partial))
	for k := range partial {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	l.touch()
	l.addEvent(events.NewWidgetSettingsUpdated(l.userID, id, keys, l.updatedAt))
	return nil
}

// MarkSeeded records that the default layout generator populated this
// layout, without counting the seed as an ordinary mutation burst.
func (l *Layout) MarkSeeded() {
	l.addEvent(events.NewLayoutSeeded(l.userID, len(l.widgets), time.Now()))
}

// GetUncommittedEvents returns all uncommitted domain events
func (l *Layout) GetUncommittedEvents() []events.DomainEvent {
	return l.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (l *Layout) MarkEventsAsCommitted() {
	l.events = []events.DomainEvent{}
}

// bottomExtent returns the first free row below every placement at a
// breakpoint: max(y+h), or 0 for an empty band.
func (l *Layout) bottomExtent(bp valueobjects.Breakpoint) int {
	bottom := 0
	for _, e := range l.placements[bp] {
		if e.Rect.Bottom() > bottom {
			bottom = e.Rect.Bottom()
		}
	}
	return bottom
}

func (l *Layout) renumberFlow() {
	for i := range l.flow {
		l.flow[i].Order = i
	}
}

func (l *Layout) touch() {
	l.updatedAt = time.Now()
	l.revision++
}

func (l *Layout) addEvent(event events.DomainEvent) {
	l.events = append(l.events, event)
}
