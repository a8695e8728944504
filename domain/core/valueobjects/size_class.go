package valueobjects

// SizeClass is the flow-mode footprint declaration. It maps to a
// column-span at render time; flow layouts carry no explicit coordinates.
type SizeClass string

const (
	SizeSmall  SizeClass = "small"
	SizeMedium SizeClass = "medium"
	SizeLarge  SizeClass = "large"
	SizeWide   SizeClass = "wide"
)

// IsValidSizeClass checks if a value is one of the known classes
func IsValidSizeClass(s SizeClass) bool {
	switch s {
	case SizeSmall, SizeMedium, SizeLarge, SizeWide:
		return true
	}
	return false
}

// ColumnSpan returns the number of columns the class occupies out of the
// given total. Wide always spans the full row.
func (s SizeClass) ColumnSpan(columns int) int {
	var span int
	switch s {
	case SizeSmall:
		span = columns / 4
	case SizeMedium:
		span = columns / 3
	case SizeLarge:
		span = columns / 2
	case SizeWide:
		span = columns
	default:
		span = columns / 3
	}
	if span < 1 {
		span = 1
	}
	return span
}
