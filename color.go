package pptxhtml

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// colorStrategy resolves one kind of color reference. ok is false when the
// strategy does not apply or cannot produce a color.
type colorStrategy func(ref ColorRef, theme *Theme, cmap ColorMap) (Color, bool)

// colorCascade is the resolution order for color references.
var colorCascade = []colorStrategy{
	resolveDirect,
	resolveSystem,
	resolveScheme,
}

// ResolveColor resolves a color reference against a theme and an optional
// color map. It never fails: references that cannot be resolved yield
// Unresolved and the caller applies its own default.
func ResolveColor(ref ColorRef, theme *Theme, cmap ColorMap) Color {
	for _, strategy := range colorCascade {
		base, ok := strategy(ref, theme, cmap)
		if !ok {
			continue
		}
		return ApplyLuminance(base, ref.LumMod, ref.LumOff)
	}
	return Unresolved
}

func resolveDirect(ref ColorRef, _ *Theme, _ ColorMap) (Color, bool) {
	if ref.Kind != ColorRefDirect {
		return Unresolved, false
	}
	return ref.Value, ref.Value.IsResolved()
}

// System colors are not re-derived from the host; the recorded value is used as-is.
func resolveSystem(ref ColorRef, _ *Theme, _ ColorMap) (Color, bool) {
	if ref.Kind != ColorRefSystem {
		return Unresolved, false
	}
	return ref.Value.Or(ColorWhite), true
}

func resolveScheme(ref ColorRef, theme *Theme, cmap ColorMap) (Color, bool) {
	if ref.Kind != ColorRefScheme {
		return Unresolved, false
	}
	return theme.Lookup(cmap.Translate(ref.Name))
}

// ApplyLuminance applies a luminance modifier, then a luminance offset, to each
// channel. Both are fixed-point values scaled by 100000; nil means absent.
//
//	c'  = clamp(round(c * mod / 100000))
//	c'' = clamp(round(c' + 255 * off / 100000))
func ApplyLuminance(c Color, mod, off *int64) Color {
	if !c.IsResolved() || (mod == nil && off == nil) {
		return c
	}
	r, g, b := c.Channels()
	ch := [3]float64{float64(r), float64(g), float64(b)}
	if mod != nil {
		factor := float64(*mod) / fixedPercent
		for i := range ch {
			ch[i] = clampChannel(math.Round(ch[i] * factor))
		}
	}
	if off != nil {
		offset := 255 * float64(*off) / fixedPercent
		for i := range ch {
			ch[i] = clampChannel(math.Round(ch[i] + offset))
		}
	}
	return RGB(uint8(ch[0]), uint8(ch[1]), uint8(ch[2]))
}

func clampChannel(v float64) float64 {
	return math.Max(0, math.Min(255, v))
}

// colorRefParser reads one color element kind from a color-bearing parent.
type colorRefParser func(parent *Node) (ColorRef, bool)

// colorRefParsers is the order in which a parent's color children are tried.
var colorRefParsers = []colorRefParser{
	parseSrgbClr,
	parseSchemeClr,
	parseSysClr,
	parsePrstClr,
	parseScrgbClr,
}

// ColorRefFromNode reads the color reference held by a color-bearing element
// such as a:solidFill, a:fgClr, a:bgClr or a:gs.
func ColorRefFromNode(parent *Node) (ColorRef, bool) {
	for _, parse := range colorRefParsers {
		if ref, ok := parse(parent); ok {
			return ref, true
		}
	}
	return ColorRef{}, false
}

func parseSrgbClr(parent *Node) (ColorRef, bool) {
	n := parent.Child("a:srgbClr")
	if n == nil {
		return ColorRef{}, false
	}
	c := NewColor(n.Attr("val"))
	if !c.IsResolved() {
		return ColorRef{}, false
	}
	return withLuminanceChildren(Direct(c), n), true
}

func parseSchemeClr(parent *Node) (ColorRef, bool) {
	n := parent.Child("a:schemeClr")
	slot := n.Attr("val")
	if slot == "" {
		return ColorRef{}, false
	}
	return withLuminanceChildren(Scheme(slot), n), true
}

func parseSysClr(parent *Node) (ColorRef, bool) {
	n := parent.Child("a:sysClr")
	if n == nil {
		return ColorRef{}, false
	}
	fallback := ColorWhite
	if last, ok := n.AttrOK("lastClr"); ok {
		fallback = NewColor(last).Or(ColorWhite)
	}
	return withLuminanceChildren(System(n.Attr("val"), fallback), n), true
}

// presetColors covers the a:prstClr names that appear in practice.
var presetColors = map[string]Color{
	"black":   ColorBlack,
	"white":   ColorWhite,
	"red":     ColorRed,
	"green":   "#008000",
	"lime":    ColorGreen,
	"blue":    ColorBlue,
	"yellow":  "#FFFF00",
	"cyan":    "#00FFFF",
	"magenta": "#FF00FF",
	"gray":    "#808080",
	"ltGray":  "#D3D3D3",
	"dkGray":  "#A9A9A9",
	"orange":  "#FFA500",
	"purple":  "#800080",
	"navy":    "#000080",
	"silver":  "#C0C0C0",
}

func parsePrstClr(parent *Node) (ColorRef, bool) {
	n := parent.Child("a:prstClr")
	c, ok := presetColors[n.Attr("val")]
	if !ok {
		return ColorRef{}, false
	}
	return withLuminanceChildren(Direct(c), n), true
}

// parseScrgbClr converts a linear scRGB color (percentages scaled by 100000) to sRGB.
func parseScrgbClr(parent *Node) (ColorRef, bool) {
	n := parent.Child("a:scrgbClr")
	if n == nil {
		return ColorRef{}, false
	}
	lin := colorful.LinearRgb(
		float64(n.IntAttr("r", 0))/fixedPercent,
		float64(n.IntAttr("g", 0))/fixedPercent,
		float64(n.IntAttr("b", 0))/fixedPercent,
	).Clamped()
	return withLuminanceChildren(Direct(NewColor(lin.Hex())), n), true
}

func withLuminanceChildren(ref ColorRef, n *Node) ColorRef {
	var mod, off *int64
	if v, ok := n.Child("a:lumMod").IntAttrOK("val"); ok {
		mod = &v
	}
	if v, ok := n.Child("a:lumOff").IntAttrOK("val"); ok {
		off = &v
	}
	return ref.WithLuminance(mod, off)
}

// colorOf resolves the color held by a color-bearing element in one step.
func colorOf(parent *Node, theme *Theme, cmap ColorMap) Color {
	ref, ok := ColorRefFromNode(parent)
	if !ok {
		return Unresolved
	}
	return ResolveColor(ref, theme, cmap)
}
