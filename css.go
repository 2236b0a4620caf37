package pptxhtml

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/aymerick/douceur/parser"
	"github.com/lucasb-eyer/go-colorful"
)

// inlineStyle is a parsed style attribute keyed by lower-case property.
// Later declarations win unless an earlier one is !important.
type inlineStyle map[string]string

func parseInlineStyle(s string) inlineStyle {
	out := inlineStyle{}
	if strings.TrimSpace(s) == "" {
		return out
	}
	// The parser only commits a declaration at its terminating semicolon.
	decls, err := parser.ParseDeclarations(strings.TrimRight(strings.TrimSpace(s), ";") + ";")
	if err != nil {
		return parseStyleFallback(s)
	}
	important := map[string]bool{}
	for _, d := range decls {
		prop := strings.ToLower(strings.TrimSpace(d.Property))
		if prop == "" || (important[prop] && !d.Important) {
			continue
		}
		out[prop] = strings.TrimSpace(d.Value)
		if d.Important {
			important[prop] = true
		}
	}
	return out
}

// parseStyleFallback splits declarations on top-level semicolons.
func parseStyleFallback(s string) inlineStyle {
	out := inlineStyle{}
	for _, part := range splitTopLevel(s, ';') {
		prop, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "!important"))
		out[strings.ToLower(strings.TrimSpace(prop))] = value
	}
	return out
}

func (s inlineStyle) get(prop string) (string, bool) {
	v, ok := s[prop]
	return v, ok && v != ""
}

// px reads a length property in pixels, or def when absent or unparseable.
func (s inlineStyle) px(prop string, def float64) float64 {
	v, ok := s.get(prop)
	if !ok {
		return def
	}
	if n, ok := parseLength(v); ok {
		return n
	}
	return def
}

// parseLength reads a CSS length in px. Unitless numbers are taken as px;
// pt and in are converted.
func parseLength(v string) (float64, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	scale := 1.0
	switch {
	case strings.HasSuffix(v, "px"):
		v = strings.TrimSuffix(v, "px")
	case strings.HasSuffix(v, "pt"):
		v, scale = strings.TrimSuffix(v, "pt"), float64(pixelsPerInch)/pointsPerInch
	case strings.HasSuffix(v, "in"):
		v, scale = strings.TrimSuffix(v, "in"), pixelsPerInch
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n * scale, true
}

// splitTopLevel splits s on sep outside parentheses and quotes. Empty parts are dropped.
func splitTopLevel(s string, sep rune) []string {
	var parts []string
	depth := 0
	var quote rune
	start := 0
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case r == sep && depth == 0:
			if part := strings.TrimSpace(s[start:i]); part != "" {
				parts = append(parts, part)
			}
			start = i + len(string(r))
		}
	}
	if last := strings.TrimSpace(s[start:]); last != "" {
		parts = append(parts, last)
	}
	return parts
}

var cssNamedColors = map[string]Color{
	"black":   ColorBlack,
	"white":   ColorWhite,
	"red":     ColorRed,
	"lime":    ColorGreen,
	"green":   "#008000",
	"blue":    ColorBlue,
	"yellow":  "#FFFF00",
	"cyan":    "#00FFFF",
	"aqua":    "#00FFFF",
	"magenta": "#FF00FF",
	"fuchsia": "#FF00FF",
	"gray":    "#808080",
	"grey":    "#808080",
	"silver":  "#C0C0C0",
	"maroon":  "#800000",
	"olive":   "#808000",
	"navy":    "#000080",
	"purple":  "#800080",
	"teal":    "#008080",
	"orange":  "#FFA500",
}

// parseCSSColor reads a CSS color. Fully transparent colors read as white,
// which is what they show over an empty slide.
func parseCSSColor(s string) (Color, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "":
		return Unresolved, false
	case s == "transparent":
		return ColorWhite, true
	case strings.HasPrefix(s, "#"):
		return parseHexColor(s)
	case strings.HasPrefix(s, "rgb"):
		return parseRGBFunc(s)
	}
	c, ok := cssNamedColors[s]
	return c, ok
}

func parseHexColor(s string) (Color, bool) {
	switch len(s) {
	case 5, 9: // #rgba, #rrggbbaa
		if strings.HasSuffix(s, strings.Repeat("0", (len(s)-1)/4)) {
			return ColorWhite, true
		}
		s = s[:len(s)-(len(s)-1)/4]
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return Unresolved, false
	}
	return NewColor(c.Hex()), true
}

// parseRGBFunc reads rgb()/rgba() in comma or space syntax.
func parseRGBFunc(s string) (Color, bool) {
	open := strings.IndexByte(s, '(')
	end := strings.LastIndexByte(s, ')')
	if open < 0 || end < open {
		return Unresolved, false
	}
	args := strings.Fields(strings.NewReplacer(",", " ", "/", " ").Replace(s[open+1 : end]))
	if len(args) < 3 {
		return Unresolved, false
	}
	var ch [3]float64
	for i := 0; i < 3; i++ {
		v, ok := parseChannel(args[i], 255)
		if !ok {
			return Unresolved, false
		}
		ch[i] = v
	}
	if len(args) >= 4 {
		alpha, ok := parseChannel(args[3], 1)
		if ok && alpha == 0 {
			return ColorWhite, true
		}
	}
	return RGB(uint8(ch[0]), uint8(ch[1]), uint8(ch[2])), true
}

func parseChannel(v string, max float64) (float64, bool) {
	scale := 1.0
	if strings.HasSuffix(v, "%") {
		v, scale = strings.TrimSuffix(v, "%"), max/100
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return math.Max(0, math.Min(max, math.Round(n*scale*1000)/1000)), true
}

// rgbToHex normalizes any CSS color to "#RRGGBB". Unparseable input reads as black.
func rgbToHex(s string) Color {
	if c, ok := parseCSSColor(s); ok {
		return c
	}
	return ColorBlack
}

// cssDirections maps gradient direction keywords to CSS degrees.
var cssDirections = map[string]float64{
	"to top":    0,
	"to right":  90,
	"to bottom": 180,
	"to left":   270,

	"to top right":    45,
	"to right top":    45,
	"to bottom right": 135,
	"to right bottom": 135,
	"to bottom left":  225,
	"to left bottom":  225,
	"to top left":     315,
	"to left top":     315,
}

// parseCSSAngle reads a gradient direction in CSS degrees.
func parseCSSAngle(s string) (float64, bool) {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	if d, ok := cssDirections[s]; ok {
		return d, true
	}
	units := []struct {
		suffix string
		scale  float64
	}{
		{"grad", 0.9},
		{"deg", 1},
		{"rad", 180 / math.Pi},
		{"turn", 360},
	}
	for _, u := range units {
		if v, ok := strings.CutSuffix(s, u.suffix); ok {
			n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return 0, false
			}
			return n * u.scale, true
		}
	}
	return 0, false
}

// findFunction returns the argument text of the first call to name in s.
// A call preceded by a letter or hyphen (e.g. repeating-linear-gradient when
// looking for linear-gradient) does not match.
func findFunction(s, name string) (string, bool) {
	lower := strings.ToLower(s)
	from := 0
	for {
		i := strings.Index(lower[from:], name+"(")
		if i < 0 {
			return "", false
		}
		i += from
		if i > 0 {
			if c := lower[i-1]; c == '-' || (c >= 'a' && c <= 'z') {
				from = i + len(name)
				continue
			}
		}
		depth := 0
		for j := i + len(name); j < len(s); j++ {
			switch s[j] {
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 {
					return s[i+len(name)+1 : j], true
				}
			}
		}
		return "", false
	}
}

// parseLinearGradient reads a linear-gradient() value into a package-convention
// angle and sorted stops. It fails on fewer than two color stops.
func parseLinearGradient(s string) (float64, []GradientStop, bool) {
	args, ok := findFunction(s, "linear-gradient")
	if !ok {
		return 0, nil, false
	}
	parts := splitTopLevel(args, ',')
	if len(parts) == 0 {
		return 0, nil, false
	}
	cssAngle := 180.0
	if a, ok := parseCSSAngle(parts[0]); ok {
		cssAngle = a
		parts = parts[1:]
	}

	type rawStop struct {
		color Color
		pos   float64
		set   bool
	}
	var raw []rawStop
	for _, p := range parts {
		colorText, pos, set := splitStopPosition(p)
		c, ok := parseCSSColor(colorText)
		if !ok {
			return 0, nil, false
		}
		raw = append(raw, rawStop{c, pos, set})
	}
	if len(raw) < 2 {
		return 0, nil, false
	}

	stops := make([]GradientStop, len(raw))
	for i, r := range raw {
		pos := r.pos
		if !r.set {
			pos = float64(i) * 100 / float64(len(raw)-1)
		}
		stops[i] = GradientStop{Color: r.color, Position: pos}
	}
	return normalizeDegrees(cssAngle - 90), GradientFill(0, stops).Stops, true
}

// splitStopPosition separates "color [pos%]". Only percentage positions are read.
func splitStopPosition(stop string) (string, float64, bool) {
	fields := splitTopLevel(stop, ' ')
	if len(fields) < 2 {
		return stop, 0, false
	}
	last := fields[len(fields)-1]
	if !strings.HasSuffix(last, "%") {
		return stop, 0, false
	}
	pos, err := strconv.ParseFloat(strings.TrimSuffix(last, "%"), 64)
	if err != nil {
		return stop, 0, false
	}
	return strings.Join(fields[:len(fields)-1], " "), pos, true
}

var (
	rotateRe = regexp.MustCompile(`rotate\(\s*([-+0-9.eE]+)\s*deg\s*\)`)
	scaleXRe = regexp.MustCompile(`scaleX\(\s*-1\s*\)`)
	scaleYRe = regexp.MustCompile(`scaleY\(\s*-1\s*\)`)
)

// parseTransform reads rotation in degrees and flips from a transform value.
func parseTransform(s string) (rotation float64, flipH, flipV bool) {
	if m := rotateRe.FindStringSubmatch(s); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			rotation = normalizeDegrees(v)
		}
	}
	return rotation, scaleXRe.MatchString(s), scaleYRe.MatchString(s)
}

// parseBorder reads "<width> <style> <color>" in any order.
func parseBorder(s string) (float64, Color, bool) {
	var width float64
	var color Color
	for _, f := range splitTopLevel(s, ' ') {
		if w, ok := parseLength(f); ok {
			width = w
			continue
		}
		if c, ok := parseCSSColor(f); ok {
			color = c
		}
	}
	if width <= 0 {
		return 0, Unresolved, false
	}
	return width, color.Or(ColorBlack), true
}

// parseBoxShadow reads the offsets and color of the first shadow.
func parseBoxShadow(s string) (float64, float64, Color, bool) {
	layers := splitTopLevel(s, ',')
	if len(layers) == 0 || strings.EqualFold(layers[0], "none") {
		return 0, 0, Unresolved, false
	}
	var lengths []float64
	color := ColorBlack
	for _, f := range splitTopLevel(layers[0], ' ') {
		if f == "inset" {
			return 0, 0, Unresolved, false
		}
		if n, ok := parseLength(f); ok {
			lengths = append(lengths, n)
			continue
		}
		if c, ok := parseCSSColor(f); ok {
			color = c
		}
	}
	if len(lengths) < 2 {
		return 0, 0, Unresolved, false
	}
	return lengths[0], lengths[1], color, true
}

// cssURL extracts the target of the first url() in s.
func cssURL(s string) (string, bool) {
	args, ok := findFunction(s, "url")
	if !ok {
		return "", false
	}
	return strings.Trim(strings.TrimSpace(args), `'"`), true
}

// firstFontFamily returns the first family of a font-family list, unquoted.
func firstFontFamily(s string) string {
	families := splitTopLevel(s, ',')
	if len(families) == 0 {
		return ""
	}
	return strings.Trim(families[0], `'" `)
}
