package display

import (
	"fmt"
	"strings"
)

// Display identifies one of the rendering targets.
type Display string

const (
	// Horizontal is the landscape output.
	Horizontal Display = "horizontal"
	// Vertical is the portrait output.
	Vertical Display = "vertical"
)

// All lists the displays in their canonical order.
var All = []Display{Horizontal, Vertical}

// Valid reports whether d is one of the known displays.
func (d Display) Valid() bool {
	return d == Horizontal || d == Vertical
}

// Other returns the partner display. Unknown values map to Vertical so an
// untagged node pairs the same way a horizontal one does.
func (d Display) Other() Display {
	if d == Vertical {
		return Horizontal
	}
	return Vertical
}

func (d Display) String() string {
	return string(d)
}

// Parse converts a persisted tag into a Display. Empty input is allowed and
// yields the zero value, which callers treat as untagged.
func Parse(value string) (Display, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return "", nil
	case string(Horizontal):
		return Horizontal, nil
	case string(Vertical):
		return Vertical, nil
	default:
		return "", fmt.Errorf("display: unsupported value %q", value)
	}
}

// Handle is an opaque reference to an established rendering context. The zero
// value means no context is bound.
type Handle struct {
	ID      string  `json:"id,omitempty" yaml:"id,omitempty"`
	Display Display `json:"display,omitempty" yaml:"display,omitempty"`
}

// Valid reports whether the handle references a context.
func (h Handle) Valid() bool {
	return h.ID != "" && h.Display.Valid()
}
