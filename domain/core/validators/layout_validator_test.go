package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homedash-backend/domain/core/aggregates"
	"homedash-backend/domain/core/valueobjects"
	"homedash-backend/domain/registry"
)

func validSnapshot() aggregates.Snapshot {
	widgetID := valueobjects.NewWidgetID()
	return aggregates.Snapshot{
		UserID:        "user123",
		Mode:          aggregates.ModeGrid,
		SchemaVersion: aggregates.CurrentSchemaVersion,
		Widgets: []aggregates.WidgetSnapshot{
			{ID: widgetID, Type: registry.TypeClock},
		},
		Placements: map[valueobjects.Breakpoint][]aggregates.PlacementEntry{
			valueobjects.BreakpointWide: {
				{WidgetID: widgetID, Rect: valueobjects.Rect{X: 0, Y: 0, W: 4, H: 2}},
			},
		},
	}
}

func TestValidateSnapshot_ValidDocument(t *testing.T) {
	assert.NoError(t, NewLayoutValidator().ValidateSnapshot(validSnapshot()))
}

func TestValidateSnapshot_MissingUser(t *testing.T) {
	snap := validSnapshot()
	snap.UserID = ""

	assert.Error(t, NewLayoutValidator().ValidateSnapshot(snap))
}

func TestValidateSnapshot_UnknownMode(t *testing.T) {
	snap := validSnapshot()
	snap.Mode = aggregates.LayoutMode("spiral")

	assert.Error(t, NewLayoutValidator().ValidateSnapshot(snap))
}

func TestValidateSnapshot_DuplicateWidgetID(t *testing.T) {
	snap := validSnapshot()
	snap.Widgets = append(snap.Widgets, snap.Widgets[0])

	assert.Error(t, NewLayoutValidator().ValidateSnapshot(snap))
}

func TestValidateSnapshot_MalformedRect(t *testing.T) {
	snap := validSnapshot()
	snap.Placements[valueobjects.BreakpointWide][0].Rect.W = 0

	assert.Error(t, NewLayoutValidator().ValidateSnapshot(snap))
}

func TestValidateSnapshot_UnknownBreakpointKey(t *testing.T) {
	snap := validSnapshot()
	snap.Placements["medium"] = snap.Placements[valueobjects.BreakpointWide]

	assert.Error(t, NewLayoutValidator().ValidateSnapshot(snap))
}

func TestValidateSnapshot_DanglingReferenceIsNotFatal(t *testing.T) {
	snap := validSnapshot()
	ghost := valueobjects.NewWidgetID()
	snap.Placements[valueobjects.BreakpointWide] = append(
		snap.Placements[valueobjects.BreakpointWide],
		aggregates.PlacementEntry{WidgetID: ghost, Rect: valueobjects.Rect{X: 4, Y: 0, W: 2, H: 2}},
	)

	v := NewLayoutValidator()
	assert.NoError(t, v.ValidateSnapshot(snap))

	dangling := v.DanglingReferences(snap)
	require.Len(t, dangling, 1)
	assert.True(t, dangling[0].Equals(ghost))
}

func TestDanglingReferences_FlowEntries(t *testing.T) {
	ghost := valueobjects.NewWidgetID()
	snap := aggregates.Snapshot{
		UserID: "user123",
		Mode:   aggregates.ModeFlow,
		Flow: []aggregates.FlowEntry{
			{WidgetID: ghost, Size: valueobjects.SizeMedium, Order: 0},
		},
	}

	dangling := NewLayoutValidator().DanglingReferences(snap)

	require.Len(t, dangling, 1)
	assert.True(t, dangling[0].Equals(ghost))
}
