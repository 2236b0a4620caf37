package pptxhtml

import (
	"fmt"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Color is an opaque RGB color written as "#RRGGBB".
// The empty Color is the "unresolved" sentinel: callers substitute their own default.
type Color string

// Unresolved is returned when a color reference cannot be resolved.
const Unresolved Color = ""

// Predefined colors.
const (
	ColorBlack Color = "#000000"
	ColorWhite Color = "#FFFFFF"
	ColorRed   Color = "#FF0000"
	ColorGreen Color = "#00FF00"
	ColorBlue  Color = "#0000FF"
)

// NewColor creates a Color from a hex string.
// Accepts "RRGGBB", "#RRGGBB", "RGB" and the 8-character "AARRGGBB" form (alpha dropped).
// Invalid input yields Unresolved.
func NewColor(hex string) Color {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) == 8 {
		hex = hex[2:]
	}
	if len(hex) != 3 && len(hex) != 6 {
		return Unresolved
	}
	c, err := colorful.Hex("#" + hex)
	if err != nil {
		return Unresolved
	}
	return RGB(c.RGB255())
}

// RGB builds a Color from channel values.
func RGB(r, g, b uint8) Color {
	return Color(fmt.Sprintf("#%02X%02X%02X", r, g, b))
}

// IsResolved reports whether c holds a concrete color.
func (c Color) IsResolved() bool {
	return c != Unresolved
}

// Or returns c, or def when c is unresolved.
func (c Color) Or(def Color) Color {
	if c == Unresolved {
		return def
	}
	return c
}

// Channels returns the red, green and blue components. Unresolved colors yield zeros.
func (c Color) Channels() (r, g, b uint8) {
	parsed, err := colorful.Hex(string(c))
	if err != nil {
		return 0, 0, 0
	}
	return parsed.RGB255()
}

// Hex returns the six hex digits without the leading "#", as the package format stores them.
// Unresolved colors yield "000000".
func (c Color) Hex() string {
	if len(c) != 7 {
		return "000000"
	}
	return string(c[1:])
}

// ColorRefKind identifies how a color is referenced.
type ColorRefKind string

const (
	ColorRefNone   ColorRefKind = ""
	ColorRefDirect ColorRefKind = "direct"
	ColorRefSystem ColorRefKind = "system"
	ColorRefScheme ColorRefKind = "scheme"
)

// ColorRef is an unresolved color reference: a direct RGB value, a system color
// with its last known RGB value, or a theme scheme slot. Luminance modifiers
// are fixed-point values scaled by 100000 and apply after the base color resolves.
type ColorRef struct {
	Kind   ColorRefKind `yaml:"kind,omitempty"`
	Value  Color        `yaml:"value,omitempty"`
	Name   string       `yaml:"name,omitempty"`
	LumMod *int64       `yaml:"lumMod,omitempty"`
	LumOff *int64       `yaml:"lumOff,omitempty"`
}

// Direct references an explicit RGB color.
func Direct(c Color) ColorRef {
	return ColorRef{Kind: ColorRefDirect, Value: c}
}

// System references a system color; fallback is the last RGB value the producer saw.
func System(name string, fallback Color) ColorRef {
	return ColorRef{Kind: ColorRefSystem, Name: name, Value: fallback}
}

// Scheme references a theme color slot.
func Scheme(slot string) ColorRef {
	return ColorRef{Kind: ColorRefScheme, Name: slot}
}

// WithLuminance returns a copy of r carrying the given modifier and offset.
// A nil pointer means the corresponding adjustment is absent.
func (r ColorRef) WithLuminance(mod, off *int64) ColorRef {
	r.LumMod = mod
	r.LumOff = off
	return r
}

// IsZero reports whether the reference is empty.
func (r ColorRef) IsZero() bool {
	return r.Kind == ColorRefNone
}

func (r ColorRef) String() string {
	switch r.Kind {
	case ColorRefDirect:
		return string(r.Value)
	case ColorRefSystem:
		return fmt.Sprintf("sys:%s(%s)", r.Name, r.Value)
	case ColorRefScheme:
		return "scheme:" + r.Name
	default:
		return "none"
	}
}
