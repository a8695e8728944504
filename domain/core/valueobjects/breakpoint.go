package valueobjects

import "errors"

// Breakpoint names a container-width band with its own column count.
// The dashboard ships two bands: a wide desktop grid and a narrow
// single-column-ish mobile grid.
type Breakpoint string

const (
	BreakpointWide   Breakpoint = "wide"
	BreakpointNarrow Breakpoint = "narrow"
)

// BreakpointSpec describes one band: the minimum container width that
// activates it and the number of grid columns it offers.
type BreakpointSpec struct {
	Name     Breakpoint `json:"name"`
	MinWidth int        `json:"min_width"`
	Columns  int        `json:"columns"`
}

// DefaultBreakpoints is the fixed ascending threshold list. The narrow
// band is the floor: any width below the wide threshold resolves to it.
var DefaultBreakpoints = []BreakpointSpec{
	{Name: BreakpointNarrow, MinWidth: 0, Columns: 4},
	{Name: BreakpointWide, MinWidth: 996, Columns: 12},
}

// AllBreakpoints returns the names of every configured band
func AllBreakpoints() []Breakpoint {
	names := make([]Breakpoint, len(DefaultBreakpoints))
	for i, spec := range DefaultBreakpoints {
		names[i] = spec.Name
	}
	return names
}

// ResolveBreakpoint selects the largest band whose threshold does not
// exceed the observed container width. Pure function of the width.
func ResolveBreakpoint(containerWidth int) BreakpointSpec {
	selected := DefaultBreakpoints[0]
	for _, spec := range DefaultBreakpoints {
		if containerWidth >= spec.MinWidth && spec.MinWidth >= selected.MinWidth {
			selected = spec
		}
	}
	return selected
}

// SpecFor looks up the spec for a named breakpoint
func SpecFor(name Breakpoint) (BreakpointSpec, error) {
	for _, spec := range DefaultBreakpoints {
		if spec.Name == name {
			return spec, nil
		}
	}
	return BreakpointSpec{}, errors.New("unknown breakpoint: " + string(name))
}

// IsValidBreakpoint checks if a name matches a configured band
func IsValidBreakpoint(name Breakpoint) bool {
	_, err := SpecFor(name)
	return err == nil
}
