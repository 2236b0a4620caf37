package pptxhtml

import (
	"fmt"
	"path"
	"sort"
)

// FillType identifies the kind of a Fill.
type FillType string

const (
	FillNone     FillType = "none"
	FillSolid    FillType = "solid"
	FillGradient FillType = "gradient"
	FillPattern  FillType = "pattern"
	FillPicture  FillType = "picture"
)

// GradientStop is one color stop of a linear gradient. Position is a percentage (0-100).
type GradientStop struct {
	Color    Color   `yaml:"color"`
	Position float64 `yaml:"position"`
}

// Fill is a resolved background or shape fill.
//
// Only the fields of the active Type are meaningful: Color for solid fills,
// Angle and Stops for gradients (Angle in degrees, the package's convention
// where 0 runs left to right and 90 top to bottom), Foreground, Background and
// Pattern for pattern fills, Image for picture fills.
type Fill struct {
	Type       FillType       `yaml:"type"`
	Color      Color          `yaml:"color,omitempty"`
	Angle      float64        `yaml:"angle,omitempty"`
	Stops      []GradientStop `yaml:"stops,omitempty"`
	Foreground Color          `yaml:"foreground,omitempty"`
	Background Color          `yaml:"background,omitempty"`
	Pattern    PatternKind    `yaml:"pattern,omitempty"`
	Image      ImageRef       `yaml:"image,omitempty"`
}

// NoFill returns the empty fill.
func NoFill() Fill {
	return Fill{Type: FillNone}
}

// SolidFill returns a single-color fill.
func SolidFill(c Color) Fill {
	return Fill{Type: FillSolid, Color: c}
}

// GradientFill returns a linear gradient. Stops are sorted by position.
func GradientFill(angle float64, stops []GradientStop) Fill {
	sorted := make([]GradientStop, len(stops))
	copy(sorted, stops)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })
	return Fill{Type: FillGradient, Angle: angle, Stops: sorted}
}

// PatternFill returns a two-tone preset pattern.
func PatternFill(fg, bg Color, kind PatternKind) Fill {
	return Fill{Type: FillPattern, Foreground: fg, Background: bg, Pattern: kind}
}

// PictureFill returns an image fill.
func PictureFill(img ImageRef) Fill {
	return Fill{Type: FillPicture, Image: img}
}

// IsNone reports whether the fill paints nothing.
func (f Fill) IsNone() bool {
	return f.Type == "" || f.Type == FillNone
}

// OrWhite returns f, or solid white when f paints nothing.
func (f Fill) OrWhite() Fill {
	if f.IsNone() {
		return SolidFill(ColorWhite)
	}
	return f
}

// PatternKind is a canonical preset pattern. Its value is the package's preset name.
type PatternKind string

// PatternNone is the kind for presets outside the canonical set.
const PatternNone PatternKind = "none"

// defaultPatternPreset applies when a:pattFill carries no prst attribute.
const defaultPatternPreset = "pct5"

// patternStripes gives each canonical pattern kind the direction of its
// repeating two-tone gradient.
var patternStripes = map[PatternKind]string{
	"pct5":           "45deg",
	"pct10":          "45deg",
	"pct20":          "45deg",
	"pct25":          "45deg",
	"pct30":          "45deg",
	"pct40":          "45deg",
	"pct50":          "45deg",
	"pct60":          "45deg",
	"pct70":          "45deg",
	"pct80":          "45deg",
	"pct90":          "45deg",
	"horzStripe":     "0deg",
	"thinHorzStripe": "0deg",
	"vertStripe":     "90deg",
	"thinVertStripe": "90deg",
	"diagStripe":     "45deg",
	"thinDiagStripe": "45deg",
	"zigZag":         "135deg",
	"dkGrid":         "90deg",
	"ltGrid":         "90deg",
	"squareGrid":     "90deg",
	"hexGrid":        "60deg",
	"dottedGrid":     "90deg",
	"dkDiagCross":    "135deg",
	"ltDiagCross":    "135deg",
	"solidCross":     "90deg",
	"weave":          "45deg",
	"wave":           "135deg",
	PatternNone:      "0deg",
}

// PatternKindOf maps a preset identifier to its canonical kind. ok is false
// when the preset is outside the canonical set and PatternNone was substituted.
func PatternKindOf(prst string) (PatternKind, bool) {
	if prst == "" {
		prst = defaultPatternPreset
	}
	kind := PatternKind(prst)
	if kind == PatternNone {
		return PatternNone, true
	}
	if _, ok := patternStripes[kind]; ok {
		return kind, true
	}
	return PatternNone, false
}

// stripeDirection returns the CSS gradient direction for a pattern kind.
func (k PatternKind) stripeDirection() string {
	if d, ok := patternStripes[k]; ok {
		return d
	}
	return patternStripes[PatternNone]
}

// fillEnv carries what fill resolution needs besides the XML itself.
type fillEnv struct {
	theme  *Theme
	cmap   ColorMap
	rels   *Relationships
	report func(kind DiagnosticKind, subject, msg string)
}

func (e *fillEnv) diag(kind DiagnosticKind, subject, msg string) {
	if e.report != nil {
		e.report(kind, subject, msg)
	}
}

// fillStrategy resolves one fill kind from a fill-properties element
// (p:bgPr or p:spPr). ok is false when the kind is absent or structurally invalid.
type fillStrategy struct {
	name    string
	resolve func(env *fillEnv, props *Node) (Fill, bool)
}

// backgroundFillCascade is the order in which a slide background's fill kinds
// are tried. The first structurally valid kind wins.
var backgroundFillCascade = []fillStrategy{
	{"solidFill", resolveSolidFill},
	{"gradFill", resolveGradientFill},
	{"pattFill", resolvePatternFill},
	{"blipFill", resolvePictureFill},
}

// ResolveBackgroundFill determines the effective background of a slide:
// the slide's own p:bg/p:bgPr fill, then the master's p:bgRef color, then
// FillNone. Callers render FillNone as solid white.
func ResolveBackgroundFill(slide, master *Node, theme *Theme, cmap ColorMap, rels *Relationships) Fill {
	env := &fillEnv{theme: theme, cmap: cmap, rels: rels}
	return resolveBackgroundFill(env, slide, master)
}

func resolveBackgroundFill(env *fillEnv, slide, master *Node) Fill {
	bgPr := slide.Path("p:cSld", "p:bg", "p:bgPr")
	if f, ok := firstFill(env, bgPr, backgroundFillCascade); ok {
		return f
	}

	bgRef := master.Path("p:cSld", "p:bg", "p:bgRef")
	if bgRef != nil {
		if c := colorOf(bgRef, env.theme, env.cmap); c.IsResolved() {
			return SolidFill(c)
		}
		env.diag(DiagUnresolvedReference, "background", "master background reference does not resolve")
	}
	return NoFill()
}

func firstFill(env *fillEnv, props *Node, cascade []fillStrategy) (Fill, bool) {
	if props == nil {
		return Fill{}, false
	}
	for _, s := range cascade {
		if f, ok := s.resolve(env, props); ok {
			return f, true
		}
	}
	return Fill{}, false
}

func resolveSolidFill(env *fillEnv, props *Node) (Fill, bool) {
	solid := props.Child("a:solidFill")
	if solid == nil {
		return Fill{}, false
	}
	ref, ok := ColorRefFromNode(solid)
	if !ok {
		env.diag(DiagUnresolvedReference, "solidFill", "no color element")
		return Fill{}, false
	}
	c := ResolveColor(ref, env.theme, env.cmap)
	if !c.IsResolved() {
		env.diag(DiagUnresolvedReference, "solidFill", fmt.Sprintf("color %s does not resolve", ref))
		return Fill{}, false
	}
	return SolidFill(c), true
}

// defaultGradientAngle is used when a:lin is absent (5400000 = 90 degrees).
const defaultGradientAngle = 5400000

func resolveGradientFill(env *fillEnv, props *Node) (Fill, bool) {
	grad := props.Child("a:gradFill")
	if grad == nil {
		return Fill{}, false
	}
	var stops []GradientStop
	for _, gs := range grad.Path("a:gsLst").ChildrenNamed("a:gs") {
		c := colorOf(gs, env.theme, env.cmap)
		if !c.IsResolved() {
			env.diag(DiagUnresolvedReference, "gradFill", "gradient stop color does not resolve")
			continue
		}
		stops = append(stops, GradientStop{
			Color:    c,
			Position: float64(gs.IntAttr("pos", 0)) / 1000,
		})
	}
	if len(stops) < 2 {
		first := ColorWhite
		if len(stops) == 1 {
			first = stops[0].Color
		}
		env.diag(DiagUnsupportedConstruct, "gradFill", fmt.Sprintf("%d resolvable stops, using solid fill", len(stops)))
		return SolidFill(first), true
	}
	angle := grad.Child("a:lin").IntAttr("ang", defaultGradientAngle)
	return GradientFill(float64(angle)/angleUnit, stops), true
}

func resolvePatternFill(env *fillEnv, props *Node) (Fill, bool) {
	patt := props.Child("a:pattFill")
	if patt == nil {
		return Fill{}, false
	}
	fg := colorOf(patt.Child("a:fgClr"), env.theme, env.cmap)
	bg := colorOf(patt.Child("a:bgClr"), env.theme, env.cmap)
	if !fg.IsResolved() && !bg.IsResolved() {
		env.diag(DiagUnresolvedReference, "pattFill", "neither pattern color resolves")
		return Fill{}, false
	}
	if !fg.IsResolved() || !bg.IsResolved() {
		env.diag(DiagUnresolvedReference, "pattFill", "one pattern color does not resolve")
	}
	prst := patt.Attr("prst")
	kind, known := PatternKindOf(prst)
	if !known {
		env.diag(DiagUnsupportedConstruct, "pattFill", fmt.Sprintf("unknown preset %q", prst))
	}
	return PatternFill(fg.Or(ColorBlack), bg.Or(ColorWhite), kind), true
}

func resolvePictureFill(env *fillEnv, props *Node) (Fill, bool) {
	blipFill := props.Child("a:blipFill")
	if blipFill == nil {
		return Fill{}, false
	}
	id := blipFill.Child("a:blip").Attr("r:embed")
	target, ok := env.rels.ResolvePart(id)
	if !ok {
		env.diag(DiagUnresolvedReference, "blipFill", fmt.Sprintf("relationship %q does not resolve", id))
		return Fill{}, false
	}
	return PictureFill(ImageRef{URI: target, MIME: guessMimeType(path.Base(target))}), true
}

// shapeFillCascade resolves fills on shape properties. Picture fills are not
// rendered for text boxes.
var shapeFillCascade = []fillStrategy{
	{"solidFill", resolveSolidFill},
	{"gradFill", resolveGradientFill},
	{"pattFill", resolvePatternFill},
}

func resolveShapeFill(env *fillEnv, spPr *Node) Fill {
	if spPr.Child("a:noFill") != nil {
		return NoFill()
	}
	if f, ok := firstFill(env, spPr, shapeFillCascade); ok {
		return f
	}
	return NoFill()
}
