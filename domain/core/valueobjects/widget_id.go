package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// WidgetID is a value object identifying one placed widget instance.
// IDs are minted once at creation time and never reused.
type WidgetID struct {
	value string
}

// NewWidgetID creates a new random WidgetID
func NewWidgetID() WidgetID {
	return WidgetID{value: uuid.New().String()}
}

// NewWidgetIDFromString creates a WidgetID from an existing string
func NewWidgetIDFromString(id string) (WidgetID, error) {
	if id == "" {
		return WidgetID{}, errors.New("widget ID cannot be empty")
	}
	if !isValidUUID(id) {
		return WidgetID{}, errors.New("widget ID must be a valid UUID")
	}
	return WidgetID{value: id}, nil
}

// String returns the string representation of the WidgetID
func (id WidgetID) String() string {
	return id.value
}

// Equals checks if two WidgetIDs are equal
func (id WidgetID) Equals(other WidgetID) bool {
	return id.value == other.value
}

// IsZero checks if the WidgetID is the zero value
func (id WidgetID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id WidgetID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *WidgetID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("WidgetID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}

// isValidUUID validates if a string is a valid UUID
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
