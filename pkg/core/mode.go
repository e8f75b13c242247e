// pkg/core/mode.go
package core

import "fmt"

// Mode is the active drawing mode of a session.
type Mode int

const (
	ModeIdle Mode = iota
	ModePoint
	ModeLine
	ModePolygon
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModePoint:
		return "point"
	case ModeLine:
		return "line"
	case ModePolygon:
		return "polygon"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode converts a mode name into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "idle":
		return ModeIdle, nil
	case "point":
		return ModePoint, nil
	case "line":
		return ModeLine, nil
	case "polygon":
		return ModePolygon, nil
	default:
		return ModeIdle, fmt.Errorf("unknown mode: %s", s)
	}
}

// MinPreviewVertices is the number of effective vertices (committed plus hover)
// required before a preview shape is shown. Modes without a preview return 0.
func MinPreviewVertices(m Mode) int {
	switch m {
	case ModeLine:
		return 2
	case ModePolygon:
		return 3
	default:
		return 0
	}
}
