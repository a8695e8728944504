package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBreakpoint_SelectsBandByWidth(t *testing.T) {
	tests := []struct {
		name     string
		width    int
		expected Breakpoint
	}{
		{"zero width falls to the floor band", 0, BreakpointNarrow},
		{"phone width", 390, BreakpointNarrow},
		{"one below the wide threshold", 995, BreakpointNarrow},
		{"exactly the wide threshold", 996, BreakpointWide},
		{"desktop width", 1280, BreakpointWide},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveBreakpoint(tt.width).Name)
		})
	}
}

func TestResolveBreakpoint_NegativeWidthUsesFloor(t *testing.T) {
	assert.Equal(t, BreakpointNarrow, ResolveBreakpoint(-100).Name)
}

func TestSpecFor_KnownAndUnknown(t *testing.T) {
	spec, err := SpecFor(BreakpointWide)
	require.NoError(t, err)
	assert.Equal(t, 12, spec.Columns)

	_, err = SpecFor(Breakpoint("medium"))
	assert.Error(t, err)
}

func TestAllBreakpoints_CoversEveryConfiguredBand(t *testing.T) {
	names := AllBreakpoints()
	assert.Len(t, names, len(DefaultBreakpoints))
	assert.Contains(t, names, BreakpointWide)
	assert.Contains(t, names, BreakpointNarrow)
}
