// Package registry holds the closed, compile-time-known set of dashboard
// widget types. Adding a widget type is an edit here, not a data-model
// change; layouts referencing a type that was later removed degrade to a
// placeholder instead of breaking the whole dashboard.
package registry

import (
	"sort"

	"homedash-backend/domain/core/valueobjects"
)

// WidgetType identifies a kind of dashboard panel
type WidgetType string

const (
	TypeWelcome  WidgetType = "welcome"
	TypeClock    WidgetType = "clock"
	TypeDueToday WidgetType = "due_today"
	TypeInbox    WidgetType = "inbox"
	TypeNotes    WidgetType = "notes"
	TypeJournal  WidgetType = "journal"
	TypeGoals    WidgetType = "goals"
	TypeFlow     WidgetType = "flow"

	// TypeUnknown is the render placeholder for types absent from the
	// registry, e.g. a layout saved by a newer product version.
	TypeUnknown WidgetType = "unknown"
)

// Size is a default footprint (grid cells) for one breakpoint
type Size struct {
	W int `json:"w"`
	H int `json:"h"`
}

// Descriptor maps a widget type to its rendering identity and default
// footprints. Footprints are per breakpoint; the size class feeds flow
// mode.
type Descriptor struct {
	Type             WidgetType                            `json:"type"`
	Title            string                                `json:"title"`
	DefaultSizes     map[valueobjects.Breakpoint]Size      `json:"default_sizes"`
	DefaultSizeClass valueobjects.SizeClass                `json:"default_size_class"`
}

var descriptors = map[WidgetType]Descriptor{
	TypeWelcome: {
		Type:  TypeWelcome,
		Title: "Welcome",
		DefaultSizes: map[valueobjects.Breakpoint]Size{
			valueobjects.BreakpointWide:   {W: 12, H: 1},
			valueobjects.BreakpointNarrow: {W: 4, H: 1},
		},
		DefaultSizeClass: valueobjects.SizeWide,
	},
	TypeClock: {
		Type:  TypeClock,
		Title: "Clock",
		DefaultSizes: map[valueobjects.Breakpoint]Size{
			valueobjects.BreakpointWide:   {W: 4, H: 2},
			valueobjects.BreakpointNarrow: {W: 4, H: 2},
		},
		DefaultSizeClass: valueobjects.SizeSmall,
	},
	TypeDueToday: {
		Type:  TypeDueToday,
		Title: "Due Today",
		DefaultSizes: map[valueobjects.Breakpoint]Size{
			valueobjects.BreakpointWide:   {W: 4, H: 3},
			valueobjects.BreakpointNarrow: {W: 4, H: 3},
		},
		DefaultSizeClass: valueobjects.SizeMedium,
	},
	TypeInbox: {
		Type:  TypeInbox,
		Title: "Inbox",
		DefaultSizes: map[valueobjects.Breakpoint]Size{
			valueobjects.BreakpointWide:   {W: 4, H: 3},
			valueobjects.BreakpointNarrow: {W: 4, H: 3},
		},
		DefaultSizeClass: valueobjects.SizeMedium,
	},
	TypeNotes: {
		Type:  TypeNotes,
		Title: "Notes",
		DefaultSizes: map[valueobjects.Breakpoint]Size{
			valueobjects.BreakpointWide:   {W: 6, H: 3},
			valueobjects.BreakpointNarrow: {W: 4, H: 3},
		},
		DefaultSizeClass: valueobjects.SizeLarge,
	},
	TypeJournal: {
		Type:  TypeJournal,
		Title: "Journal",
		DefaultSizes: map[valueobjects.Breakpoint]Size{
			valueobjects.BreakpointWide:   {W: 6, H: 3},
			valueobjects.BreakpointNarrow: {W: 4, H: 3},
		},
		DefaultSizeClass: valueobjects.SizeLarge,
	},
	TypeGoals: {
		Type:  TypeGoals,
		Title: "Goals",
		DefaultSizes: map[valueobjects.Breakpoint]Size{
			valueobjects.BreakpointWide:   {W: 6, H: 2},
			valueobjects.BreakpointNarrow: {W: 4, H: 2},
		},
		DefaultSizeClass: valueobjects.SizeMedium,
	},
	TypeFlow: {
		Type:  TypeFlow,
		Title: "Flow",
		DefaultSizes: map[valueobjects.Breakpoint]Size{
			valueobjects.BreakpointWide:   {W: 6, H: 2},
			valueobjects.BreakpointNarrow: {W: 4, H: 2},
		},
		DefaultSizeClass: valueobjects.SizeMedium,
	},
}

// unknownDescriptor renders as a clearly-identified placeholder panel
var unknownDescriptor = Descriptor{
	Type:  TypeUnknown,
	Title: "Unknown widget",
	DefaultSizes: map[valueobjects.Breakpoint]Size{
		valueobjects.BreakpointWide:   {W: 4, H: 2},
		valueobjects.BreakpointNarrow: {W: 4, H: 2},
	},
	DefaultSizeClass: valueobjects.SizeSmall,
}

// Lookup returns the descriptor for a type and whether it is registered
func Lookup(t WidgetType) (Descriptor, bool) {
	d, ok := descriptors[t]
	return d, ok
}

// LookupOrPlaceholder never fails: unregistered types get the
// unknown-widget placeholder so stale layouts keep rendering.
func LookupOrPlaceholder(t WidgetType) Descriptor {
	if d, ok := descriptors[t]; ok {
		return d
	}
	return unknownDescriptor
}

// IsRegistered checks whether a type is part of the closed set
func IsRegistered(t WidgetType) bool {
	_, ok := descriptors[t]
	return ok
}

// All returns every registered descriptor in stable type order
func All() []Descriptor {
	out := make([]Descriptor, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// DefaultSize returns the type's footprint at a breakpoint, falling back
// to the placeholder footprint for unregistered types.
func DefaultSize(t WidgetType, bp valueobjects.Breakpoint) Size {
	d := LookupOrPlaceholder(t)
	if s, ok := d.DefaultSizes[bp]; ok {
		return s
	}
	return Size{W: 4, H: 2}
}
