package pptxhtml

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"
)

// Defaults applied to markup that omits a value.
const (
	defaultBoxFontPx     = 14
	defaultTextBoxWidth  = 100
	defaultTextBoxHeight = 30
	defaultImageExtent   = 100
)

// Decomposer parses edited markup back into canonical slides.
type Decomposer struct {
	images    ImageStore
	urlPrefix string
	oracle    StyleOracle
	workers   int
	width     int64
	height    int64
}

// DecomposerOption configures a Decomposer.
type DecomposerOption func(*Decomposer)

// WithImageStore sets the store image handles are fetched from. Sources
// starting with urlPrefix are treated as handles.
func WithImageStore(s ImageStore, urlPrefix string) DecomposerOption {
	return func(d *Decomposer) {
		d.images = s
		if urlPrefix != "" {
			d.urlPrefix = urlPrefix
		}
	}
}

// WithStyleOracle sets the oracle consulted for slide backgrounds that are
// not declared inline.
func WithStyleOracle(o StyleOracle) DecomposerOption {
	return func(d *Decomposer) { d.oracle = o }
}

// WithDecomposeWorkers bounds how many slides are decomposed concurrently.
func WithDecomposeWorkers(n int) DecomposerOption {
	return func(d *Decomposer) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithSlideSize sets the slide size, in pixels, used when the first slide
// container declares none.
func WithSlideSize(widthPx, heightPx float64) DecomposerOption {
	return func(d *Decomposer) {
		if widthPx > 0 && heightPx > 0 {
			d.width, d.height = Pixel(widthPx), Pixel(heightPx)
		}
	}
}

// NewDecomposer creates a Decomposer.
func NewDecomposer(opts ...DecomposerOption) *Decomposer {
	d := &Decomposer{
		urlPrefix: DefaultImageURLPrefix,
		workers:   runtime.GOMAXPROCS(0),
		width:     DefaultSlideWidth,
		height:    DefaultSlideHeight,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ReverseResult is the outcome of a markup-to-document conversion.
type ReverseResult struct {
	Document    *CanonicalDocument
	Diagnostics []Diagnostic
}

// Decompose parses markup holding one or more slide containers.
func (d *Decomposer) Decompose(ctx context.Context, markup string) (*ReverseResult, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, &ConversionError{Kind: ErrMalformedInput, Msg: "failed to parse markup", Err: err}
	}
	slides := findSlides(root)
	if len(slides) == 0 {
		return nil, malformed("", "no slides found")
	}

	conv := NewConversion(nil)
	computed := d.computedStyles(ctx, conv, markup, slides)

	doc := NewDocument()
	doc.SlideWidth, doc.SlideHeight = d.width, d.height
	style := parseInlineStyle(attrOf(slides[0], "style"))
	if w := style.px("width", 0); w > 0 {
		doc.SlideWidth = Pixel(w)
	}
	if h := style.px("height", 0); h > 0 {
		doc.SlideHeight = Pixel(h)
	}

	doc.Slides = make([]*Slide, len(slides))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for i, n := range slides {
		var cs *ComputedStyle
		if i < len(computed) {
			cs = &computed[i]
		}
		g.Go(func() error {
			s, err := d.DecomposeSlide(gctx, conv, n, i+1, cs)
			if err != nil {
				return err
			}
			doc.Slides[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	diags := conv.Diagnostics()
	zerolog.Ctx(ctx).Debug().Int("slides", len(doc.Slides)).Int("diagnostics", len(diags)).Msg("markup decomposed")
	return &ReverseResult{Document: doc, Diagnostics: diags}, nil
}

// computedStyles asks the oracle for computed styles when some slide lacks an
// inline background. Oracle failures degrade to white backgrounds.
func (d *Decomposer) computedStyles(ctx context.Context, conv *Conversion, markup string, slides []*html.Node) []ComputedStyle {
	if d.oracle == nil {
		return nil
	}
	needed := false
	for _, n := range slides {
		if !hasInlineBackground(parseInlineStyle(attrOf(n, "style"))) {
			needed = true
			break
		}
	}
	if !needed {
		return nil
	}
	styles, err := d.oracle.ComputeStyles(ctx, markup)
	if err != nil {
		conv.Report(Diagnostic{Kind: DiagCollaboratorFailure, Subject: "style oracle", Message: err.Error()})
		return nil
	}
	return styles
}

// findSlides returns the outermost slide containers in document order.
func findSlides(n *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if hasClass(n, classSlide) {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func attrOf(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return true
		}
	}
	return false
}

func hasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, c := range strings.Fields(attrOf(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// DecomposeSlide parses one slide container. computed may be nil.
func (d *Decomposer) DecomposeSlide(ctx context.Context, conv *Conversion, n *html.Node, index int, computed *ComputedStyle) (*Slide, error) {
	sd := &slideDecomposition{Decomposer: d, conv: conv, index: index}
	slide := &Slide{Index: index}
	slide.Background = sd.background(n, computed)

	elements := collectElements(n)
	sort.SliceStable(elements, func(i, j int) bool {
		return zIndexOf(elements[i]) < zIndexOf(elements[j])
	})

	shapes := make([]Shape, len(elements))
	for i, el := range elements {
		switch {
		case hasClass(el, classTextBox):
			shapes[i] = sd.textBox(el)
		case hasClass(el, classSVGContainer):
			if v := sd.vector(el); v != nil {
				shapes[i] = v
			}
		case el.DataAtom == atom.Img:
			if p := sd.picture(el); p != nil {
				shapes[i] = p
			}
		}
	}

	if err := sd.fetchImages(ctx, &slide.Background); err != nil {
		return nil, err
	}
	for i, sh := range shapes {
		if p, ok := sh.(*PictureShape); ok && p.Image.IsZero() {
			shapes[i] = nil
		}
	}
	for _, sh := range shapes {
		if sh != nil {
			slide.Shapes = append(slide.Shapes, sh)
		}
	}
	return slide, nil
}

// collectElements gathers text boxes, vector containers and images in
// document order. Nested slides are skipped.
func collectElements(slide *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch {
			case c.Type != html.ElementNode:
			case hasClass(c, classSlide):
			case hasClass(c, classTextBox), hasClass(c, classSVGContainer):
				out = append(out, c)
			case c.DataAtom == atom.Img:
				out = append(out, c)
			default:
				walk(c)
			}
		}
	}
	walk(slide)
	return out
}

// zIndexOf reads an element's z-index; missing or non-numeric reads as 0.
func zIndexOf(n *html.Node) float64 {
	v, ok := parseInlineStyle(attrOf(n, "style")).get("z-index")
	if !ok {
		return 0
	}
	z, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return z
}

// slideDecomposition is the per-slide state of DecomposeSlide.
type slideDecomposition struct {
	*Decomposer
	conv    *Conversion
	index   int
	fetches []*ImageRef
}

func (sd *slideDecomposition) diag(kind DiagnosticKind, subject, msg string) {
	sd.conv.Report(Diagnostic{Kind: kind, Slide: sd.index, Subject: subject, Message: msg})
}

func hasInlineBackground(s inlineStyle) bool {
	for _, p := range []string{"background", "background-color", "background-image"} {
		if _, ok := s.get(p); ok {
			return true
		}
	}
	return false
}

func (sd *slideDecomposition) background(n *html.Node, computed *ComputedStyle) Fill {
	style := parseInlineStyle(attrOf(n, "style"))
	if hasInlineBackground(style) {
		return sd.fillFromStyle(n, style, "background").OrWhite()
	}
	if computed != nil {
		cs := inlineStyle{"background": computed.Background, "background-color": computed.BackgroundColor}
		if strings.HasPrefix(strings.TrimSpace(computed.Background), "none") || computed.Background == computed.BackgroundColor {
			delete(cs, "background")
		}
		return sd.fillFromStyle(n, cs, "computed background").OrWhite()
	}
	return SolidFill(ColorWhite)
}

// fillFromStyle reads a fill from background declarations.
func (sd *slideDecomposition) fillFromStyle(n *html.Node, style inlineStyle, subject string) Fill {
	bg, _ := style.get("background")
	image, _ := style.get("background-image")
	color, hasColor := style.get("background-color")
	combined := bg + " " + image

	if kind, ok := attrOrEmpty(n, attrPattern); ok || strings.Contains(strings.ToLower(combined), "repeating-linear-gradient(") {
		return sd.patternFill(kind, combined, color)
	}
	if strings.Contains(strings.ToLower(combined), "linear-gradient(") {
		angle, stops, ok := parseLinearGradient(combined)
		if !ok {
			sd.diag(DiagUnsupportedConstruct, subject, "unparseable gradient")
			return SolidFill(ColorWhite)
		}
		return GradientFill(angle, stops)
	}
	if uri, ok := cssURL(combined); ok {
		return PictureFill(ImageRef{URI: uri})
	}
	if hasColor {
		return SolidFill(rgbToHex(color))
	}
	if bg != "" {
		if c, ok := parseCSSColor(firstToken(bg)); ok {
			return SolidFill(c)
		}
	}
	return NoFill()
}

func attrOrEmpty(n *html.Node, key string) (string, bool) {
	if n == nil || !hasAttr(n, key) {
		return "", false
	}
	return attrOf(n, key), true
}

func firstToken(s string) string {
	parts := splitTopLevel(s, ' ')
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// patternFill reads a two-tone pattern: the stripe color from the repeating
// gradient, the base color from background-color. Without a preset name the
// kind is PatternNone.
func (sd *slideDecomposition) patternFill(kind, value, base string) Fill {
	var stripe []Color
	if args, ok := findFunction(value, "repeating-linear-gradient"); ok {
		for _, part := range splitTopLevel(args, ',') {
			colorText, _, _ := splitStopPosition(part)
			if c, ok := parseCSSColor(colorText); ok {
				stripe = append(stripe, c)
			}
		}
	}
	fg, bg := ColorBlack, ColorWhite
	if len(stripe) > 0 {
		fg = stripe[0]
	}
	if c, ok := parseCSSColor(base); ok {
		bg = c
	} else if len(stripe) > 0 {
		bg = stripe[len(stripe)-1]
	}
	pk, known := PatternNone, true
	if kind != "" {
		pk, known = PatternKindOf(kind)
	}
	if !known {
		sd.diag(DiagUnsupportedConstruct, "pattern", fmt.Sprintf("unknown pattern %q", kind))
	}
	return PatternFill(fg, bg, pk)
}

func geometryFromStyle(s inlineStyle, defWidth, defHeight float64) Geometry {
	rot, flipH, flipV := parseTransform(s["transform"])
	return Geometry{
		X:        Pixel(s.px("left", 0)),
		Y:        Pixel(s.px("top", 0)),
		Width:    Pixel(s.px("width", defWidth)),
		Height:   Pixel(s.px("height", defHeight)),
		Rotation: rot,
		FlipH:    flipH,
		FlipV:    flipV,
	}
}

func shapeIDOf(n *html.Node) int {
	id, err := strconv.Atoi(attrOf(n, attrShapeID))
	if err != nil {
		return 0
	}
	return id
}

// roundPt keeps font sizes stable across the px round trip.
func roundPt(pt float64) float64 {
	return math.Round(pt*100) / 100
}

var justifyAnchors = map[string]TextAnchor{
	"flex-start": AnchorTop,
	"start":      AnchorTop,
	"center":     AnchorMiddle,
	"flex-end":   AnchorBottom,
	"end":        AnchorBottom,
}

var textAligns = map[string]TextAlign{
	"left":    AlignLeft,
	"start":   AlignLeft,
	"center":  AlignCenter,
	"right":   AlignRight,
	"end":     AlignRight,
	"justify": AlignJustify,
}

func (sd *slideDecomposition) textBox(n *html.Node) *TextShape {
	style := parseInlineStyle(attrOf(n, "style"))
	t := &TextShape{
		ID:         shapeIDOf(n),
		Geometry:   geometryFromStyle(style, defaultTextBoxWidth, defaultTextBoxHeight),
		FontSizePt: roundPt(PixelToPoint(style.px("font-size", defaultBoxFontPx))),
		Color:      ColorBlack,
		Align:      AlignLeft,
		Anchor:     AnchorTop,
		Fill:       NoFill(),
	}
	if c, ok := style.get("color"); ok {
		t.Color = rgbToHex(c)
	}
	if f, ok := style.get("font-family"); ok {
		t.FontFamily = firstFontFamily(f)
	}
	if a, ok := textAligns[strings.ToLower(style["text-align"])]; ok {
		t.Align = a
	}
	if a, ok := justifyAnchors[strings.ToLower(style["justify-content"])]; ok {
		t.Anchor = a
	}
	if hasInlineBackground(style) {
		t.Fill = sd.fillFromStyle(n, style, "text box")
		if t.Fill.Type == FillPicture {
			sd.diag(DiagUnsupportedConstruct, "text box", "picture fill dropped")
			t.Fill = NoFill()
		}
	}
	ws, _ := style.get("white-space")
	t.Paragraphs = paragraphsOf(n, preservesSpace(ws))
	return t
}

// runStyle is the formatting inherited down inline markup.
type runStyle struct {
	bold, italic, underline bool
	family                  string
	sizePt                  float64
	color                   Color
}

func (rs runStyle) apply(n *html.Node) runStyle {
	switch n.DataAtom {
	case atom.B, atom.Strong:
		rs.bold = true
	case atom.I, atom.Em:
		rs.italic = true
	case atom.U:
		rs.underline = true
	}
	style := parseInlineStyle(attrOf(n, "style"))
	if w, ok := style.get("font-weight"); ok {
		rs.bold = isBoldWeight(w)
	}
	if s, ok := style.get("font-style"); ok {
		rs.italic = strings.Contains(strings.ToLower(s), "italic") || strings.Contains(strings.ToLower(s), "oblique")
	}
	if d, ok := style.get("text-decoration"); ok {
		rs.underline = strings.Contains(strings.ToLower(d), "underline")
	} else if d, ok := style.get("text-decoration-line"); ok {
		rs.underline = strings.Contains(strings.ToLower(d), "underline")
	}
	if f, ok := style.get("font-family"); ok {
		rs.family = firstFontFamily(f)
	}
	if v, ok := style.get("font-size"); ok {
		if px, ok := parseLength(v); ok && px > 0 {
			rs.sizePt = roundPt(PixelToPoint(px))
		}
	}
	if c, ok := style.get("color"); ok {
		rs.color = rgbToHex(c)
	}
	return rs
}

func isBoldWeight(w string) bool {
	w = strings.ToLower(strings.TrimSpace(w))
	if w == "bold" || w == "bolder" {
		return true
	}
	n, err := strconv.Atoi(w)
	return err == nil && n >= 600
}

func (rs runStyle) run(text string) TextRun {
	r := TextRun{
		Text:       text,
		Bold:       rs.bold,
		Italic:     rs.italic,
		Underline:  rs.underline,
		FontFamily: rs.family,
		FontSizePt: rs.sizePt,
	}
	if rs.color.IsResolved() {
		r.Color = Direct(rs.color)
	}
	return r
}

// preservesSpace reports whether a white-space value keeps spaces as typed.
func preservesSpace(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "pre", "pre-wrap", "break-spaces":
		return true
	}
	return false
}

// paragraphsOf reads the block structure of a text box: p and div blocks
// are plain paragraphs, list items are bullet paragraphs, and loose inline
// content forms a paragraph of its own. preserve keeps whitespace inside
// paragraphs as typed instead of collapsing it.
func paragraphsOf(box *html.Node, preserve bool) []Paragraph {
	var out []Paragraph
	var loose []*html.Node
	flush := func() {
		if len(loose) == 0 {
			return
		}
		if p, ok := paragraphFrom(loose, false, preserve); ok {
			out = append(out, p)
		}
		loose = nil
	}
	for c := box.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			if c.Type == html.TextNode {
				loose = append(loose, c)
			}
			continue
		}
		switch c.DataAtom {
		case atom.P, atom.Div, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			flush()
			p, _ := paragraphFrom(childNodes(c), false, preserve)
			out = append(out, p)
		case atom.Ul, atom.Ol:
			flush()
			for li := c.FirstChild; li != nil; li = li.NextSibling {
				if li.Type == html.ElementNode && li.DataAtom == atom.Li {
					p, _ := paragraphFrom(childNodes(li), true, preserve)
					out = append(out, p)
				}
			}
		case atom.Br:
			flush()
		default:
			loose = append(loose, c)
		}
	}
	flush()
	return out
}

func childNodes(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// paragraphFrom collects the runs of inline content. ok is false when the
// content holds no visible text. Without preserve, whitespace collapses
// across run boundaries and the paragraph edges are trimmed, as rendering
// does; spaces between runs survive as runs of their own.
func paragraphFrom(nodes []*html.Node, bullet, preserve bool) (Paragraph, bool) {
	p := Paragraph{Bullet: bullet}
	visible := false
	var walk func(n *html.Node, rs runStyle)
	walk = func(n *html.Node, rs runStyle) {
		switch n.Type {
		case html.TextNode:
			text := n.Data
			if !preserve {
				text = collapseSpace(text)
				if endsInSpace(p.Runs) {
					text = strings.TrimLeft(text, " ")
				}
			}
			if text == "" {
				return
			}
			if strings.TrimSpace(text) != "" {
				visible = true
			}
			p.Runs = append(p.Runs, rs.run(text))
		case html.ElementNode:
			if n.DataAtom == atom.Br {
				return
			}
			rs = rs.apply(n)
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c, rs)
			}
		}
	}
	for _, n := range nodes {
		walk(n, runStyle{})
	}
	if !preserve {
		for len(p.Runs) > 0 {
			last := &p.Runs[len(p.Runs)-1]
			last.Text = strings.TrimRight(last.Text, " ")
			if last.Text != "" {
				break
			}
			p.Runs = p.Runs[:len(p.Runs)-1]
		}
	}
	if !visible {
		p.Runs = nil
	}
	for i := range p.Runs {
		p.Runs[i].Text = norm.NFC.String(p.Runs[i].Text)
	}
	return p, visible
}

// endsInSpace reports whether the text so far is empty or ends in a space,
// in which case a following space collapses into it.
func endsInSpace(runs []TextRun) bool {
	if len(runs) == 0 {
		return true
	}
	return strings.HasSuffix(runs[len(runs)-1].Text, " ")
}

// collapseSpace folds whitespace sequences into single spaces, as rendering does.
func collapseSpace(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			if !space {
				b.WriteByte(' ')
			}
			space = true
		default:
			b.WriteRune(r)
			space = false
		}
	}
	return b.String()
}

func (sd *slideDecomposition) picture(n *html.Node) *PictureShape {
	style := parseInlineStyle(attrOf(n, "style"))
	p := &PictureShape{
		ID:       shapeIDOf(n),
		Geometry: geometryFromStyle(style, defaultImageExtent, defaultImageExtent),
		Opacity:  1,
		Image:    ImageRef{URI: attrOf(n, "src")},
	}
	if v, ok := style.get("opacity"); ok {
		if o, err := strconv.ParseFloat(v, 64); err == nil {
			p.Opacity = math.Max(0, math.Min(1, o))
		}
	}
	if v, ok := style.get("border"); ok {
		if w, c, ok := parseBorder(v); ok {
			p.BorderWidth = Pixel(w)
			p.BorderColor = c
		}
	}
	if v, ok := style.get("box-shadow"); ok {
		if x, y, c, ok := parseBoxShadow(v); ok {
			p.Shadow = &Shadow{OffsetX: Pixel(x), OffsetY: Pixel(y), Color: c}
		}
	}
	if p.Image.URI == "" {
		sd.diag(DiagUnresolvedReference, "img", "image without source dropped")
		return nil
	}
	sd.fetches = append(sd.fetches, &p.Image)
	return p
}

func (sd *slideDecomposition) vector(n *html.Node) *VectorShape {
	svg := findSVG(n)
	if svg == nil {
		sd.diag(DiagUnsupportedConstruct, "svg container", "container without svg dropped")
		return nil
	}
	var b strings.Builder
	if err := html.Render(&b, svg); err != nil {
		sd.diag(DiagUnsupportedConstruct, "svg container", err.Error())
		return nil
	}
	return &VectorShape{
		ID:       shapeIDOf(n),
		Geometry: geometryFromStyle(parseInlineStyle(attrOf(n, "style")), defaultImageExtent, defaultImageExtent),
		Markup:   b.String(),
	}
}

// fetchImages resolves every collected image source concurrently. Handles
// are fetched from the image store, data URIs pass through, anything else
// is dropped. A failed fetch empties the reference and is reported.
func (sd *slideDecomposition) fetchImages(ctx context.Context, background *Fill) error {
	refs := sd.fetches
	if background.Type == FillPicture {
		refs = append(refs, &background.Image)
	}

	var g errgroup.Group
	g.SetLimit(8)
	for _, ref := range refs {
		g.Go(func() error {
			sd.fetchImage(ctx, ref)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	if background.Type == FillPicture && background.Image.IsZero() {
		*background = SolidFill(ColorWhite)
	}
	return nil
}

func (sd *slideDecomposition) fetchImage(ctx context.Context, ref *ImageRef) {
	uri := ref.URI
	switch {
	case strings.HasPrefix(uri, "data:"):
		mime, _, err := decodeDataURI(uri)
		if err != nil {
			sd.diag(DiagUnsupportedConstruct, "image", err.Error())
			*ref = ImageRef{}
			return
		}
		ref.MIME = mime
	case strings.HasPrefix(uri, sd.urlPrefix):
		if sd.images == nil {
			sd.diag(DiagCollaboratorFailure, "image", "no image store configured for "+uri)
			*ref = ImageRef{}
			return
		}
		data, mime, err := sd.images.Fetch(ctx, strings.TrimPrefix(uri, sd.urlPrefix))
		if err != nil {
			sd.diag(DiagCollaboratorFailure, "image", fmt.Sprintf("fetch %s: %v", uri, err))
			*ref = ImageRef{}
			return
		}
		ref.Data, ref.MIME = data, mime
	default:
		sd.diag(DiagUnresolvedReference, "image", "unsupported image source "+uri)
		*ref = ImageRef{}
	}
}
