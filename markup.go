package pptxhtml

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Class names of the markup contract shared by both directions.
const (
	classSlide        = "sli-slide"
	classTextBox      = "sli-txt-box"
	classSVGContainer = "sli-svg-container"

	attrSlideIndex = "data-slide-index"
	attrShapeID    = "data-shape-id"
	attrPattern    = "data-pattern"
)

// decl is one CSS declaration.
type decl struct {
	prop, value string
}

// declarations is an ordered inline style.
type declarations []decl

func (d *declarations) add(prop, value string) {
	*d = append(*d, decl{prop, value})
}

func (d declarations) String() string {
	parts := make([]string, len(d))
	for i, x := range d {
		parts[i] = x.prop + ": " + x.value
	}
	return strings.Join(parts, "; ")
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// RenderSlideMarkup renders a slide as a positioned container of
// width x height EMU.
func RenderSlideMarkup(s *Slide, width, height int64) (string, error) {
	var b strings.Builder
	if err := html.Render(&b, SlideNode(s, width, height)); err != nil {
		return "", err
	}
	return b.String(), nil
}

// SlideNode builds the markup tree of a slide.
func SlideNode(s *Slide, width, height int64) *html.Node {
	style := declarations{
		{"position", "relative"},
		{"width", formatPx(EMUToPixel(width))},
		{"height", formatPx(EMUToPixel(height))},
		{"overflow", "hidden"},
	}
	bg, extra := fillCSS(s.Background.OrWhite())
	style = append(style, bg...)

	div := element(atom.Div,
		attr("class", classSlide),
		attr(attrSlideIndex, strconv.Itoa(s.Index)),
	)
	div.Attr = append(div.Attr, extra...)
	div.Attr = append(div.Attr, attr("style", style.String()))

	for i, shape := range s.Shapes {
		z := i + 1
		var n *html.Node
		switch sh := shape.(type) {
		case *TextShape:
			n = textBoxNode(sh, z)
		case *PictureShape:
			n = pictureNode(sh, z)
		case *VectorShape:
			n = vectorNode(sh, z)
		}
		if n != nil {
			div.AppendChild(n)
		}
	}
	return div
}

// fillCSS returns the declarations painting a fill, plus attributes that
// carry what CSS cannot express.
func fillCSS(f Fill) (declarations, []html.Attribute) {
	var d declarations
	var attrs []html.Attribute
	switch f.Type {
	case FillSolid:
		d.add("background-color", string(f.Color.Or(ColorWhite)))
	case FillGradient:
		d.add("background", gradientCSS(f))
	case FillPattern:
		attrs = append(attrs, attr(attrPattern, string(f.Pattern)))
		d.add("background-color", string(f.Background))
		d.add("background-image", fmt.Sprintf("repeating-linear-gradient(%s, %s 0%%, %s 50%%, %s 50%%, %s 100%%)",
			f.Pattern.stripeDirection(), f.Foreground, f.Foreground, f.Background, f.Background))
	case FillPicture:
		d.add("background-image", "url('"+f.Image.URI+"')")
		d.add("background-size", "cover")
	}
	return d, attrs
}

// gradientCSS renders a gradient. The package measures angles from the
// positive x axis, CSS from the top, hence the quarter-turn offset.
func gradientCSS(f Fill) string {
	parts := []string{formatNumber(normalizeDegrees(f.Angle+90)) + "deg"}
	for _, s := range f.Stops {
		parts = append(parts, fmt.Sprintf("%s %s%%", s.Color, formatNumber(s.Position)))
	}
	return "linear-gradient(" + strings.Join(parts, ", ") + ")"
}

// frameCSS positions a shape absolutely.
func frameCSS(g Geometry) declarations {
	return declarations{
		{"position", "absolute"},
		{"left", formatPx(EMUToPixel(g.X))},
		{"top", formatPx(EMUToPixel(g.Y))},
		{"width", formatPx(EMUToPixel(g.Width))},
		{"height", formatPx(EMUToPixel(g.Height))},
	}
}

// transformCSS renders flips and rotation, or "" when there are none.
func transformCSS(g Geometry) string {
	var parts []string
	if g.FlipH {
		parts = append(parts, "scaleX(-1)")
	}
	if g.FlipV {
		parts = append(parts, "scaleY(-1)")
	}
	if g.Rotation != 0 {
		parts = append(parts, "rotate("+formatNumber(g.Rotation)+"deg)")
	}
	return strings.Join(parts, " ")
}

var anchorJustify = map[TextAnchor]string{
	AnchorTop:    "flex-start",
	AnchorMiddle: "center",
	AnchorBottom: "flex-end",
}

func cssFontFamily(family string) string {
	if strings.ContainsAny(family, " ,") {
		return `"` + family + `"`
	}
	return family
}

func textBoxNode(t *TextShape, z int) *html.Node {
	style := frameCSS(t.Geometry)
	style.add("box-sizing", "border-box")
	style.add("color", string(t.Color.Or(ColorBlack)))
	style.add("font-size", formatPx(PointToPixel(t.FontSizePt)))
	if t.FontFamily != "" {
		style.add("font-family", cssFontFamily(t.FontFamily))
	}
	align := t.Align
	if align == "" {
		align = AlignLeft
	}
	style.add("text-align", string(align))
	style.add("display", "flex")
	style.add("flex-direction", "column")
	justify, ok := anchorJustify[t.Anchor]
	if !ok {
		justify = anchorJustify[AnchorTop]
	}
	style.add("justify-content", justify)
	style.add("overflow-wrap", "break-word")
	style.add("white-space", "pre-wrap")
	if tf := transformCSS(t.Geometry); tf != "" {
		style.add("transform", tf)
	}
	bg, extra := fillCSS(t.Fill)
	style = append(style, bg...)
	style.add("z-index", strconv.Itoa(z))

	div := element(atom.Div,
		attr("class", classTextBox),
		attr("contenteditable", "true"),
		attr(attrShapeID, strconv.Itoa(t.ID)),
	)
	div.Attr = append(div.Attr, extra...)
	div.Attr = append(div.Attr, attr("style", style.String()))

	for _, g := range GroupParagraphs(t.Paragraphs) {
		if g.List {
			ul := element(atom.Ul, attr("style", "margin: 0; padding-left: 1.2em"))
			for _, p := range g.Paragraphs {
				li := element(atom.Li)
				appendRuns(li, p.Runs)
				ul.AppendChild(li)
			}
			div.AppendChild(ul)
			continue
		}
		for _, p := range g.Paragraphs {
			pn := element(atom.P, attr("style", "margin: 0"))
			appendRuns(pn, p.Runs)
			div.AppendChild(pn)
		}
	}
	return div
}

func appendRuns(parent *html.Node, runs []TextRun) {
	for _, r := range runs {
		parent.AppendChild(runNode(r))
	}
}

// runNode renders a run. Emphasis is always explicit; family, size and
// color only when the run overrides the box.
func runNode(r TextRun) *html.Node {
	var style declarations
	style.add("font-weight", ternary(r.Bold, "bold", "normal"))
	style.add("font-style", ternary(r.Italic, "italic", "normal"))
	style.add("text-decoration", ternary(r.Underline, "underline", "none"))
	if r.FontFamily != "" {
		style.add("font-family", cssFontFamily(r.FontFamily))
	}
	if r.FontSizePt > 0 {
		style.add("font-size", formatPx(PointToPixel(r.FontSizePt)))
	}
	if r.Color.Kind == ColorRefDirect && r.Color.Value.IsResolved() {
		style.add("color", string(r.Color.Value))
	}
	span := element(atom.Span, attr("style", style.String()))
	span.AppendChild(textNode(r.Text))
	return span
}

func ternary(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}

func pictureNode(p *PictureShape, z int) *html.Node {
	style := frameCSS(p.Geometry)
	style.add("object-fit", "contain")
	if p.Opacity < 1 {
		style.add("opacity", formatNumber(p.Opacity))
	}
	if p.BorderWidth > 0 {
		style.add("border", fmt.Sprintf("%s solid %s", formatPx(EMUToPixel(p.BorderWidth)), p.BorderColor.Or(ColorBlack)))
		style.add("box-sizing", "border-box")
	}
	if p.Shadow != nil {
		style.add("box-shadow", fmt.Sprintf("%s %s %s",
			formatPx(EMUToPixel(p.Shadow.OffsetX)), formatPx(EMUToPixel(p.Shadow.OffsetY)), p.Shadow.Color.Or(ColorBlack)))
	}
	if tf := transformCSS(p.Geometry); tf != "" {
		style.add("transform", tf)
	}
	style.add("z-index", strconv.Itoa(z))

	return element(atom.Img,
		attr("src", p.Image.URI),
		attr("alt", "Image"),
		attr(attrShapeID, strconv.Itoa(p.ID)),
		attr("style", style.String()),
	)
}

func vectorNode(v *VectorShape, z int) *html.Node {
	style := frameCSS(v.Geometry)
	style.add("overflow", "hidden")
	if tf := transformCSS(v.Geometry); tf != "" {
		style.add("transform", tf)
	}
	style.add("z-index", strconv.Itoa(z))

	div := element(atom.Div,
		attr("class", classSVGContainer),
		attr(attrShapeID, strconv.Itoa(v.ID)),
		attr("style", style.String()),
	)
	if svg, err := parseSVG(v.Markup); err == nil {
		div.AppendChild(svg)
	}
	return div
}

// NormalizeSVG parses SVG text and re-serializes its root svg element, which
// drops any XML prolog, doctype and comments around it.
func NormalizeSVG(src string) (string, error) {
	svg, err := parseSVG(src)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := html.Render(&b, svg); err != nil {
		return "", err
	}
	return b.String(), nil
}

func parseSVG(src string) (*html.Node, error) {
	context := &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}
	nodes, err := html.ParseFragment(strings.NewReader(src), context)
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}
	for _, n := range nodes {
		if svg := findSVG(n); svg != nil {
			if svg.Parent != nil {
				svg.Parent.RemoveChild(svg)
			}
			return svg, nil
		}
	}
	return nil, fmt.Errorf("no svg element")
}

func findSVG(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Svg {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if svg := findSVG(c); svg != nil {
			return svg
		}
	}
	return nil
}
