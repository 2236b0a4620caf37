package pptxhtml

// SchemeSlots lists the twelve theme color roles in clrScheme order.
var SchemeSlots = []string{
	"dk1", "lt1", "dk2", "lt2",
	"accent1", "accent2", "accent3", "accent4", "accent5", "accent6",
	"hlink", "folHlink",
}

// semanticSlots translates the semantic slots used by shapes into scheme slots.
// Any slot not listed passes through unchanged.
var semanticSlots = map[string]string{
	"bg1": "lt1",
	"bg2": "lt2",
	"tx1": "dk1",
	"tx2": "dk2",
}

// Theme is a document's color scheme and font scheme. It is loaded once per
// document and treated as read-only afterwards.
type Theme struct {
	Name      string           `yaml:"name,omitempty"`
	Colors    map[string]Color `yaml:"colors"`
	MajorFont string           `yaml:"majorFont,omitempty"`
	MinorFont string           `yaml:"minorFont,omitempty"`
}

// LoadTheme reads the color scheme of a theme part (a:theme). A nil or
// incomplete tree yields a theme with the slots that could be read.
func LoadTheme(root *Node) *Theme {
	t := &Theme{Colors: make(map[string]Color, len(SchemeSlots))}
	elems := root.Child("a:themeElements")
	scheme := elems.Child("a:clrScheme")
	t.Name = scheme.Attr("name")
	for _, slot := range SchemeSlots {
		if c := themeSlotColor(scheme.Child("a:" + slot)); c.IsResolved() {
			t.Colors[slot] = c
		}
	}
	fonts := elems.Child("a:fontScheme")
	t.MajorFont = fonts.Path("a:majorFont", "a:latin").Attr("typeface")
	t.MinorFont = fonts.Path("a:minorFont", "a:latin").Attr("typeface")
	return t
}

// themeSlotColor reads the srgbClr or sysClr child of a clrScheme slot.
func themeSlotColor(slot *Node) Color {
	if c := slot.Child("a:srgbClr"); c != nil {
		return NewColor(c.Attr("val"))
	}
	if c := slot.Child("a:sysClr"); c != nil {
		last, ok := c.AttrOK("lastClr")
		if !ok {
			return ColorWhite
		}
		return NewColor(last)
	}
	return Unresolved
}

// Lookup returns the color stored in a scheme slot.
func (t *Theme) Lookup(slot string) (Color, bool) {
	if t == nil {
		return Unresolved, false
	}
	c, ok := t.Colors[slot]
	return c, ok && c.IsResolved()
}

// DefaultTheme returns the stock Office palette. The package writer emits it.
func DefaultTheme() *Theme {
	return &Theme{
		Name: "Office",
		Colors: map[string]Color{
			"dk1":      ColorBlack,
			"lt1":      ColorWhite,
			"dk2":      "#44546A",
			"lt2":      "#E7E6E6",
			"accent1":  "#4472C4",
			"accent2":  "#ED7D31",
			"accent3":  "#A5A5A5",
			"accent4":  "#FFC000",
			"accent5":  "#5B9BD5",
			"accent6":  "#70AD47",
			"hlink":    "#0563C1",
			"folHlink": "#954F72",
		},
		MajorFont: "Calibri Light",
		MinorFont: "Calibri",
	}
}

// ColorMap is the master-scoped mapping from semantic slots to scheme slots.
type ColorMap map[string]string

// ColorMapFromMaster reads p:clrMap from a slide master. Returns nil when absent.
func ColorMapFromMaster(master *Node) ColorMap {
	return colorMapFromNode(master.Child("p:clrMap"))
}

// ColorMapOverride reads a slide-level p:clrMapOvr/a:overrideClrMapping.
// Returns nil when the slide keeps the master mapping.
func ColorMapOverride(slide *Node) ColorMap {
	return colorMapFromNode(slide.Path("p:clrMapOvr", "a:overrideClrMapping"))
}

func colorMapFromNode(n *Node) ColorMap {
	if n == nil || len(n.Attrs) == 0 {
		return nil
	}
	m := make(ColorMap, len(n.Attrs))
	for k, v := range n.Attrs {
		m[k] = v
	}
	return m
}

// Translate maps a slot through the color map. Semantic slots the map does not
// cover fall back to the fixed bg/tx table; every other slot passes through.
func (m ColorMap) Translate(slot string) string {
	if m != nil {
		if mapped, ok := m[slot]; ok && mapped != "" {
			return mapped
		}
	}
	if mapped, ok := semanticSlots[slot]; ok {
		return mapped
	}
	return slot
}
