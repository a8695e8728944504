package events

import (
	"time"

	"homedash-backend/domain/core/valueobjects"
)

// SourceLayoutEngine is the event source attached to everything this
// service publishes
const SourceLayoutEngine = "homedash.layout"

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Widget events
// The aggregate ID of every layout event is the owning user's ID, since
// one user owns exactly one layout.

// WidgetAdded is raised when a widget is placed on the dashboard
type WidgetAdded struct {
	BaseEvent
	WidgetID   valueobjects.WidgetID `json:"widget_id"`
	WidgetType string                `json:"widget_type"`
}

// NewWidgetAdded creates a WidgetAdded event
func NewWidgetAdded(userID string, widgetID valueobjects.WidgetID, widgetType string, timestamp time.Time) WidgetAdded {
	return WidgetAdded{
		BaseEvent: BaseEvent{
			AggregateID: userID,
			EventType:   "widget.added",
			Timestamp:   timestamp,
			Version:     1,
		},
		WidgetID:   widgetID,
		WidgetType: widgetType,
	}
}

// WidgetRemoved is raised when a widget and all its placements are deleted
type WidgetRemoved struct {
	BaseEvent
	WidgetID valueobjects.WidgetID `json:"widget_id"`
}

// NewWidgetRemoved creates a WidgetRemoved event
func NewWidgetRemoved(userID string, widgetID valueobjects.WidgetID, timestamp time.Time) WidgetRemoved {
	return WidgetRemoved{
		BaseEvent: BaseEvent{
			AggregateID: userID,
			EventType:   "widget.removed",
			Timestamp:   timestamp,
			Version:     1,
		},
		WidgetID: widgetID,
	}
}

// WidgetMoved is raised when a widget's placement changes at one breakpoint
type WidgetMoved struct {
	BaseEvent
	WidgetID   valueobjects.WidgetID   `json:"widget_id"`
	Breakpoint valueobjects.Breakpoint `json:"breakpoint"`
	OldRect    valueobjects.Rect       `json:"old_rect"`
	NewRect    valueobjects.Rect       `json:"new_rect"`
}

// NewWidgetMoved creates a WidgetMoved event
func NewWidgetMoved(userID string, widgetID valueobjects.WidgetID, bp valueobjects.Breakpoint, oldRect, newRect valueobjects.Rect, timestamp time.Time) WidgetMoved {
	return WidgetMoved{
		BaseEvent: BaseEvent{
			AggregateID: userID,
			EventType:   "widget.moved",
			Timestamp:   timestamp,
			Version:     1,
		},
		WidgetID:   widgetID,
		Breakpoint: bp,
		OldRect:    oldRect,
		NewRect:    newRect,
	}
}

// WidgetReordered is raised when a flow-mode widget changes list position
type WidgetReordered struct {
	BaseEvent
	WidgetID valueobjects.WidgetID `json:"widget_id"`
	OldIndex int                   `json:"old_index"`
	NewIndex int                   `json:"new_index"`
}

// NewWidgetReordered creates a WidgetReordered event
func NewWidgetReordered(userID string, widgetID valueobjects.WidgetID, oldIndex, newIndex int, timestamp time.Time) WidgetReordered {
	return WidgetReordered{
		BaseEvent: BaseEvent{
			AggregateID: userID,
			EventType:   "widget.reordered",
			Timestamp:   timestamp,
			Version:     1,
		},
		WidgetID: widgetID,
		OldIndex: oldIndex,
		NewIndex: newIndex,
	}
}

// WidgetSettingsUpdated is raised when a widget's settings bag changes
type WidgetSettingsUpdated struct {
	BaseEvent
	WidgetID valueobjects.WidgetID `json:"widget_id"`
	Keys     []string              `json:"keys"`
}

// NewWidgetSettingsUpdated creates a WidgetSettingsUpdated event. Only the
// touched keys are recorded; settings values are opaque to the engine and
// may hold renderer-private data.
func NewWidgetSettingsUpdated(userID string, widgetID valueobjects.WidgetID, keys []string, timestamp time.Time) WidgetSettingsUpdated {
	return WidgetSettingsUpdated{
		BaseEvent: BaseEvent{
			AggregateID: userID,
			EventType:   "widget.settings_updated",
			Timestamp:   timestamp,
			Version:     1,
		},
		WidgetID: widgetID,
		Keys:     keys,
	}
}

// Layout events

// LayoutSeeded is raised when the default layout generator bootstraps a
// first-time user
type LayoutSeeded struct {
	BaseEvent
	WidgetCount int `json:"widget_count"`
}

// NewLayoutSeeded creates a LayoutSeeded event
func NewLayoutSeeded(userID string, widgetCount int, timestamp time.Time) LayoutSeeded {
	return LayoutSeeded{
		BaseEvent: BaseEvent{
			AggregateID: userID,
			EventType:   "layout.seeded",
			Timestamp:   timestamp,
			Version:     1,
		},
		WidgetCount: widgetCount,
	}
}
