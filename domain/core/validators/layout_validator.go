package validators

import (
	"fmt"

	"homedash-backend/domain/core/aggregates"
	"homedash-backend/domain/core/valueobjects"
	pkgerrors "homedash-backend/pkg/errors"
)

// LayoutValidator checks the structural invariants of a layout document
// before it crosses the persistence boundary. Dangling placement
// references are deliberately not a hard failure: they are skipped at
// render time and reported separately for diagnostics.
type LayoutValidator struct{}

// NewLayoutValidator creates a layout validator
func NewLayoutValidator() *LayoutValidator {
	return &LayoutValidator{}
}

// ValidateSnapshot returns an error for structural corruption that must
// never be written: duplicate widget IDs, zero IDs, malformed rectangles,
// or an unknown mode.
func (v *LayoutValidator) ValidateSnapshot(snap aggregates.Snapshot) error {
	if snap.UserID == "" {
		return pkgerrors.NewValidationError("layout has no owning user")
	}
	if snap.Mode != aggregates.ModeGrid && snap.Mode != aggregates.ModeFlow {
		return pkgerrors.NewValidationError("unknown layout mode: " + string(snap.Mode))
	}

	seen := make(map[string]bool, len(snap.Widgets))
	for _, w := range snap.Widgets {
		if w.ID.IsZero() {
			return pkgerrors.NewValidationError("widget with empty ID")
		}
		if seen[w.ID.String()] {
			return pkgerrors.NewValidationError("duplicate widget ID: " + w.ID.String())
		}
		seen[w.ID.String()] = true
	}

	for bp, entries := range snap.Placements {
		if !valueobjects.IsValidBreakpoint(bp) {
			return pkgerrors.NewValidationError("placements for unknown breakpoint: " + string(bp))
		}
		for _, e := range entries {
			if err := e.Rect.Validate(); err != nil {
				return pkgerrors.NewValidationError(
					fmt.Sprintf("invalid placement for widget %s at %s: %v", e.WidgetID.String(), bp, err))
			}
		}
	}

	return nil
}

// DanglingReferences lists placement entries whose widget instance is
// missing from the snapshot. Not an error; callers log these.
func (v *LayoutValidator) DanglingReferences(snap aggregates.Snapshot) []valueobjects.WidgetID {
	known := make(map[string]bool, len(snap.Widgets))
	for _, w := range snap.Widgets {
		known[w.ID.String()] = true
	}

	var dangling []valueobjects.WidgetID
	seen := make(map[string]bool)
	for _, entries := range snap.Placements {
		for _, e := range entries {
			if !known[e.WidgetID.String()] && !seen[e.WidgetID.String()] {
				dangling = append(dangling, e.WidgetID)
				seen[e.WidgetID.String()] = true
			}
		}
	}
	for _, e := range snap.Flow {
		if !known[e.WidgetID.String()] && !seen[e.WidgetID.String()] {
			dangling = append(dangling, e.WidgetID)
			seen[e.WidgetID.String()] = true
		}
	}
	return dangling
}
