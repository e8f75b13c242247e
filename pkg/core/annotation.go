// pkg/core/annotation.go
package core

// Kind is the type of a committed annotation.
type Kind int

const (
	KindPoint Kind = iota
	KindLine
	KindPolygon
	KindLabel
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindLine:
		return "line"
	case KindPolygon:
		return "polygon"
	case KindLabel:
		return "label"
	default:
		return "unknown"
	}
}

// Annotation is a committed entity owned by the annotation store.
type Annotation struct {
	ID        EntityID
	Kind      Kind
	Positions []GeoPoint
	Text      string
	// Target is the shape a measurement label belongs to. Empty for free labels.
	Target EntityID
}
