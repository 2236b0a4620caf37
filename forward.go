package pptxhtml

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"strconv"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Assembler converts a package into canonical slides and their markup.
type Assembler struct {
	images  ImageResolver
	workers int
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithImageResolver sets how image parts become references in markup.
// The default embeds them as data URIs.
func WithImageResolver(r ImageResolver) AssemblerOption {
	return func(a *Assembler) {
		if r != nil {
			a.images = r
		}
	}
}

// WithWorkers bounds how many slides are assembled concurrently.
func WithWorkers(n int) AssemblerOption {
	return func(a *Assembler) {
		if n > 0 {
			a.workers = n
		}
	}
}

// NewAssembler creates an Assembler.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		images:  InlineImages{},
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RenderedSlide pairs a canonical slide with its markup.
type RenderedSlide struct {
	Slide  *Slide
	Markup string
}

// ForwardResult is the outcome of a package-to-markup conversion.
type ForwardResult struct {
	Document    *CanonicalDocument
	Slides      []RenderedSlide
	Diagnostics []Diagnostic
}

// Markup returns the concatenated markup of all slides.
func (r *ForwardResult) Markup() string {
	var n int
	for _, s := range r.Slides {
		n += len(s.Markup)
	}
	buf := make([]byte, 0, n)
	for _, s := range r.Slides {
		buf = append(buf, s.Markup...)
	}
	return string(buf)
}

// Convert assembles every slide of pkg. Slides are assembled concurrently
// and returned in presentation order. Only a package without slides, or with
// an unreadable slide part, fails the whole conversion.
func (a *Assembler) Convert(ctx context.Context, pkg PackageReader) (*ForwardResult, error) {
	log := zerolog.Ctx(ctx)
	conv := NewConversion(pkg)
	paths, err := conv.SlidePaths()
	if err != nil {
		return nil, &ConversionError{Kind: ErrMalformedInput, Path: presentationPath, Msg: "failed to list slides", Err: err}
	}
	if len(paths) == 0 {
		return nil, malformed("", "no slides found")
	}

	doc := NewDocument()
	doc.SlideWidth, doc.SlideHeight = conv.SlideSize()
	rendered := make([]RenderedSlide, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, p := range paths {
		g.Go(func() error {
			parts, err := a.loadSlideParts(conv, p, i+1)
			if err != nil {
				return err
			}
			slide, err := a.AssembleSlide(gctx, conv, parts)
			if err != nil {
				return err
			}
			markup, err := RenderSlideMarkup(slide, doc.SlideWidth, doc.SlideHeight)
			if err != nil {
				return fmt.Errorf("render slide %d: %w", i+1, err)
			}
			rendered[i] = RenderedSlide{Slide: slide, Markup: markup}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, r := range rendered {
		doc.Slides = append(doc.Slides, r.Slide)
	}
	diags := conv.Diagnostics()
	log.Debug().Int("slides", len(doc.Slides)).Int("diagnostics", len(diags)).Msg("package assembled")
	return &ForwardResult{Document: doc, Slides: rendered, Diagnostics: diags}, nil
}

// SlideParts is the parsed input of one slide: the slide part, its master
// and theme, and the slide's relationships.
type SlideParts struct {
	Index  int
	Path   string
	Slide  *Node
	Master *Node
	Theme  *Node
	Rels   *Relationships
}

func (a *Assembler) loadSlideParts(conv *Conversion, slidePath string, index int) (SlideParts, error) {
	slide, err := conv.Entry(slidePath)
	if err != nil {
		return SlideParts{}, &ConversionError{Kind: ErrMalformedInput, Path: slidePath, Msg: "failed to read slide", Err: err}
	}
	rels, err := conv.Relationships(slidePath)
	if err != nil {
		conv.Report(Diagnostic{Kind: DiagUnresolvedReference, Slide: index, Subject: "relationships", Message: err.Error()})
		rels = &Relationships{Source: slidePath}
	}
	parts := SlideParts{Index: index, Path: slidePath, Slide: slide, Rels: rels}

	masterPath := conv.MasterPath(rels)
	if parts.Master, err = conv.Entry(masterPath); err != nil {
		conv.Report(Diagnostic{Kind: DiagUnresolvedReference, Slide: index, Subject: "master", Message: err.Error()})
	}
	themePath := conv.ThemePath(masterPath)
	if parts.Theme, err = conv.Entry(themePath); err != nil {
		conv.Report(Diagnostic{Kind: DiagUnresolvedReference, Slide: index, Subject: "theme", Message: err.Error()})
	}
	return parts, nil
}

// AssembleSlide resolves one slide into its canonical form. Elements that
// cannot be resolved are degraded or dropped and reported on conv.
func (a *Assembler) AssembleSlide(ctx context.Context, conv *Conversion, parts SlideParts) (*Slide, error) {
	if parts.Slide == nil {
		return nil, malformed(parts.Path, "slide part is empty")
	}
	theme := DefaultTheme()
	if parts.Theme != nil {
		theme = LoadTheme(parts.Theme)
	}
	cmap := ColorMapOverride(parts.Slide)
	if cmap == nil {
		cmap = ColorMapFromMaster(parts.Master)
	}

	sa := &slideAssembly{
		Assembler: a,
		conv:      conv,
		index:     parts.Index,
		env: &fillEnv{
			theme:  theme,
			cmap:   cmap,
			rels:   parts.Rels,
			report: conv.reporter(parts.Index),
		},
	}

	slide := &Slide{Index: parts.Index}
	slide.Background = sa.background(ctx, parts.Slide, parts.Master)
	tree := parts.Slide.Path("p:cSld", "p:spTree")
	if tree == nil {
		sa.env.diag(DiagUnsupportedConstruct, "spTree", "slide has no shape tree")
		return slide, nil
	}
	sa.walk(ctx, tree, nil, slide)

	zerolog.Ctx(ctx).Debug().
		Int("slide", parts.Index).
		Int("shapes", len(slide.Shapes)).
		Str("background", string(slide.Background.Type)).
		Msg("slide assembled")
	return slide, nil
}

// slideAssembly is the per-slide state of AssembleSlide.
type slideAssembly struct {
	*Assembler
	conv  *Conversion
	index int
	env   *fillEnv
}

func (sa *slideAssembly) background(ctx context.Context, slide, master *Node) Fill {
	fill := resolveBackgroundFill(sa.env, slide, master)
	if fill.Type == FillPicture {
		ref, err := sa.images.ResolveImage(ctx, sa.conv, fill.Image.URI)
		if err != nil {
			sa.env.diag(DiagCollaboratorFailure, "background", err.Error())
			return SolidFill(ColorWhite)
		}
		fill.Image = ref
	}
	return fill.OrWhite()
}

// walk appends the shapes of a shape tree in document order. Groups are
// flattened into slide coordinates.
func (sa *slideAssembly) walk(ctx context.Context, tree *Node, chain groupChain, slide *Slide) {
	for _, el := range tree.Elements() {
		var shape Shape
		switch el.Name {
		case "p:nvGrpSpPr", "p:grpSpPr", "p:extLst":
			continue
		case "p:grpSp":
			sa.walk(ctx, el, append(chain[:len(chain):len(chain)], groupTransformOf(el)), slide)
			continue
		case "p:sp":
			shape = sa.textShape(el, chain)
		case "p:pic":
			shape = sa.picture(ctx, el, chain)
		default:
			sa.env.diag(DiagUnsupportedConstruct, el.Name, "element dropped")
			continue
		}
		if shape != nil {
			slide.Shapes = append(slide.Shapes, shape)
		}
	}
}

func shapeID(el *Node, nvName string) int {
	id, err := strconv.Atoi(el.Path(nvName, "p:cNvPr").Attr("id"))
	if err != nil {
		return 0
	}
	return id
}

func (sa *slideAssembly) textShape(sp *Node, chain groupChain) Shape {
	fill := resolveShapeFill(sa.env, sp.Child("p:spPr"))
	if !HasText(sp) && fill.IsNone() {
		sa.env.diag(DiagUnsupportedConstruct, "p:sp", "shape without text or fill dropped")
		return nil
	}

	size, color, family, align, anchor := textBoxStyle(sp, sa.env.theme, sa.env.cmap)
	paragraphs := TextOf(sp)
	for i := range paragraphs {
		for j := range paragraphs[i].Runs {
			run := &paragraphs[i].Runs[j]
			if run.Color.IsZero() {
				continue
			}
			c := ResolveColor(run.Color, sa.env.theme, sa.env.cmap)
			if !c.IsResolved() {
				sa.env.diag(DiagUnresolvedReference, "run", fmt.Sprintf("color %s does not resolve", run.Color))
				run.Color = ColorRef{}
				continue
			}
			run.Color = Direct(c)
		}
	}

	return &TextShape{
		ID:         shapeID(sp, "p:nvSpPr"),
		Geometry:   chain.applyTo(GeometryOf(sp)),
		Paragraphs: paragraphs,
		FontSizePt: size,
		Color:      color,
		FontFamily: family,
		Align:      align,
		Anchor:     anchor,
		Fill:       fill,
	}
}

// svgBlipURI is the extension carrying a picture's vector original.
const svgBlipURI = "{96DAC541-7B7A-43D3-8B79-37D633B846F1}"

// svgEmbed returns the relationship id of a picture's vector original, if any.
func svgEmbed(pic *Node) string {
	blipFill := pic.Child("p:blipFill")
	for _, extLst := range []*Node{blipFill.Path("a:blip", "a:extLst"), blipFill.Child("a:extLst")} {
		for _, ext := range extLst.ChildrenNamed("a:ext") {
			if uri := ext.Attr("uri"); uri != "" && uri != svgBlipURI {
				continue
			}
			if id := ext.Child("asvg:svgBlip").Attr("r:embed"); id != "" {
				return id
			}
		}
	}
	return ""
}

// picture resolves a p:pic. A vector original takes precedence over the
// raster image it ships with.
func (sa *slideAssembly) picture(ctx context.Context, pic *Node, chain groupChain) Shape {
	id := shapeID(pic, "p:nvPicPr")
	geom := chain.applyTo(GeometryOf(pic))

	if svgID := svgEmbed(pic); svgID != "" {
		if v, ok := sa.vector(svgID, id, geom); ok {
			return v
		}
	}

	blip := pic.Path("p:blipFill", "a:blip")
	embed := blip.Attr("r:embed")
	part, ok := sa.env.rels.ResolvePart(embed)
	if !ok {
		sa.env.diag(DiagUnresolvedReference, "p:pic", fmt.Sprintf("relationship %q does not resolve", embed))
		return nil
	}
	ref, err := sa.images.ResolveImage(ctx, sa.conv, part)
	if err != nil {
		sa.env.diag(DiagCollaboratorFailure, "p:pic", err.Error())
		return nil
	}

	p := &PictureShape{
		ID:       id,
		Geometry: geom,
		Opacity:  1,
		Image:    ref,
	}
	if amt, ok := blip.Child("a:alphaModFix").IntAttrOK("amt"); ok {
		p.Opacity = math.Max(0, math.Min(1, float64(amt)/fixedPercent))
	}

	spPr := pic.Child("p:spPr")
	if ln := spPr.Child("a:ln"); ln != nil && ln.Child("a:noFill") == nil {
		if c := colorOf(ln.Child("a:solidFill"), sa.env.theme, sa.env.cmap); c.IsResolved() {
			p.BorderWidth = ln.IntAttr("w", emuPerPixel)
			p.BorderColor = c
		}
	}
	if shdw := spPr.Path("a:effectLst", "a:outerShdw"); shdw != nil {
		dist := float64(shdw.IntAttr("dist", 0))
		dir := float64(shdw.IntAttr("dir", 0)) / angleUnit * math.Pi / 180
		p.Shadow = &Shadow{
			OffsetX: int64(math.Round(dist * math.Cos(dir))),
			OffsetY: int64(math.Round(dist * math.Sin(dir))),
			Color:   colorOf(shdw, sa.env.theme, sa.env.cmap).Or(ColorBlack),
		}
	}
	return p
}

func (sa *slideAssembly) vector(relID string, id int, geom Geometry) (Shape, bool) {
	part, ok := sa.env.rels.ResolvePart(relID)
	if !ok {
		sa.env.diag(DiagUnresolvedReference, "svgBlip", fmt.Sprintf("relationship %q does not resolve", relID))
		return nil, false
	}
	data, err := sa.conv.Raw(part)
	if err != nil {
		sa.env.diag(DiagUnresolvedReference, "svgBlip", err.Error())
		return nil, false
	}
	markup, err := NormalizeSVG(string(data))
	if err != nil {
		sa.env.diag(DiagUnsupportedConstruct, "svgBlip", err.Error())
		return nil, false
	}
	return &VectorShape{ID: id, Geometry: geom, Markup: markup}, true
}
