package pptxhtml

import (
	"archive/zip"
	"fmt"
	"math"
	"strings"
)

// defaultWriterFont is written for runs whose box names no family.
const defaultWriterFont = "Arial"

func (b *packageBuild) writeSlides(zw *zip.Writer) error {
	for i, slide := range b.doc.Slides {
		if err := b.writeSlide(zw, slide, i); err != nil {
			return err
		}
		rels := xmlRelationships{Xmlns: nsRelationships, Relationships: b.slides[i].rels}
		if err := writeXMLToZip(zw, RelsPathFor(slidePartName(i)), rels); err != nil {
			return err
		}
	}
	return nil
}

func slidePartName(i int) string {
	return fmt.Sprintf("ppt/slides/slide%d.xml", i+1)
}

// shapeIDs hands out unique cNvPr ids, keeping a shape's own id when it is
// free. Id 1 belongs to the shape tree.
type shapeIDs struct {
	used map[int]bool
	next int
}

func newShapeIDs() *shapeIDs {
	return &shapeIDs{used: map[int]bool{1: true}, next: 2}
}

func (s *shapeIDs) take(want int) int {
	if want > 1 && !s.used[want] {
		s.used[want] = true
		return want
	}
	for s.used[s.next] {
		s.next++
	}
	s.used[s.next] = true
	return s.next
}

func (b *packageBuild) writeSlide(zw *zip.Writer, slide *Slide, i int) error {
	plan := b.slides[i]
	ids := newShapeIDs()

	var shapesXML strings.Builder
	for j, shape := range slide.Shapes {
		switch s := shape.(type) {
		case *TextShape:
			shapesXML.WriteString(writeTextShapeXML(s, ids.take(s.ID)))
		case *PictureShape:
			if rels, ok := plan.blips[j]; ok {
				shapesXML.WriteString(writePictureXML(s, ids.take(s.ID), rels))
			}
		case *VectorShape:
			if rels, ok := plan.blips[j]; ok {
				shapesXML.WriteString(writeVectorXML(s, ids.take(s.ID), rels))
			}
		}
	}

	bgXML := ""
	bg := slide.Background
	if bg.Type == FillPicture && plan.background == "" {
		bg = SolidFill(ColorWhite)
	}
	if !bg.IsNone() {
		bgXML = "    <p:bg>\n      <p:bgPr>\n" +
			writeFillXML(bg, plan.background) +
			"        <a:effectLst/>\n      </p:bgPr>\n    </p:bg>\n"
	}

	content := fmt.Sprintf(`%s<p:sld xmlns:a="%s" xmlns:r="%s" xmlns:p="%s">
  <p:cSld>
%s%s  </p:cSld>
  <p:clrMapOvr>
    <a:masterClrMapping/>
  </p:clrMapOvr>
</p:sld>`, xmlDecl, nsDrawingML, nsOfficeDocRels, nsPresentationML, bgXML, fmt.Sprintf(emptyShapeTree, shapesXML.String()))

	return writeRawXMLToZip(zw, slidePartName(i), content)
}

func xfrmAttrs(g Geometry) string {
	var sb strings.Builder
	if rot := int64(math.Round(g.Rotation * angleUnit)); rot != 0 {
		fmt.Fprintf(&sb, ` rot="%d"`, rot)
	}
	if g.FlipH {
		sb.WriteString(` flipH="1"`)
	}
	if g.FlipV {
		sb.WriteString(` flipV="1"`)
	}
	return sb.String()
}

func xfrmXML(g Geometry) string {
	return fmt.Sprintf(`          <a:xfrm%s>
            <a:off x="%d" y="%d"/>
            <a:ext cx="%d" cy="%d"/>
          </a:xfrm>
          <a:prstGeom prst="rect">
            <a:avLst/>
          </a:prstGeom>
`, xfrmAttrs(g), g.X, g.Y, g.Width, g.Height)
}

func srgbXML(c Color) string {
	return fmt.Sprintf(`<a:srgbClr val="%s"/>`, c.Hex())
}

// writeFillXML renders a fill's properties. blipRel is the relationship of
// a picture fill's image.
func writeFillXML(f Fill, blipRel string) string {
	switch f.Type {
	case FillSolid:
		return fmt.Sprintf("          <a:solidFill>%s</a:solidFill>\n", srgbXML(f.Color))
	case FillGradient:
		var stops strings.Builder
		for _, s := range f.Stops {
			fmt.Fprintf(&stops, "              <a:gs pos=\"%d\">%s</a:gs>\n", int64(math.Round(s.Position*1000)), srgbXML(s.Color))
		}
		return fmt.Sprintf(`          <a:gradFill rotWithShape="1">
            <a:gsLst>
%s            </a:gsLst>
            <a:lin ang="%d" scaled="0"/>
          </a:gradFill>
`, stops.String(), int64(math.Round(normalizeDegrees(f.Angle)*angleUnit)))
	case FillPattern:
		prst := string(f.Pattern)
		if f.Pattern == PatternNone || prst == "" {
			prst = defaultPatternPreset
		}
		return fmt.Sprintf(`          <a:pattFill prst="%s">
            <a:fgClr>%s</a:fgClr>
            <a:bgClr>%s</a:bgClr>
          </a:pattFill>
`, prst, srgbXML(f.Foreground.Or(ColorBlack)), srgbXML(f.Background.Or(ColorWhite)))
	case FillPicture:
		if blipRel == "" {
			return ""
		}
		return fmt.Sprintf(`          <a:blipFill dpi="0" rotWithShape="1">
            <a:blip r:embed="%s"/>
            <a:stretch>
              <a:fillRect/>
            </a:stretch>
          </a:blipFill>
`, blipRel)
	default:
		return "          <a:noFill/>\n"
	}
}

var anchorAttrs = map[TextAnchor]string{
	AnchorTop:    "t",
	AnchorMiddle: "ctr",
	AnchorBottom: "b",
}

var alignAttrs = map[TextAlign]string{
	AlignLeft:    "l",
	AlignCenter:  "ctr",
	AlignRight:   "r",
	AlignJustify: "just",
}

func writeTextShapeXML(s *TextShape, id int) string {
	fillXML := ""
	if s.Fill.Type != FillPicture {
		fillXML = writeFillXML(s.Fill, "")
	}
	anchor, ok := anchorAttrs[s.Anchor]
	if !ok {
		anchor = "t"
	}

	var paragraphsXML strings.Builder
	for _, para := range s.Paragraphs {
		paragraphsXML.WriteString(writeParagraphXML(s, para))
	}
	if len(s.Paragraphs) == 0 {
		paragraphsXML.WriteString("          <a:p/>\n")
	}

	return fmt.Sprintf(`      <p:sp>
        <p:nvSpPr>
          <p:cNvPr id="%d" name="TextBox %d"/>
          <p:cNvSpPr txBox="1"/>
          <p:nvPr/>
        </p:nvSpPr>
        <p:spPr>
%s%s        </p:spPr>
        <p:txBody>
          <a:bodyPr wrap="square" lIns="0" tIns="0" rIns="0" bIns="0" anchor="%s" rtlCol="0">
            <a:noAutofit/>
          </a:bodyPr>
          <a:lstStyle/>
%s        </p:txBody>
      </p:sp>
`, id, id, xfrmXML(s.Geometry), fillXML, anchor, paragraphsXML.String())
}

func writeParagraphXML(box *TextShape, para Paragraph) string {
	algn, ok := alignAttrs[box.Align]
	if !ok {
		algn = "l"
	}
	bullet := "\n              <a:buNone/>"
	indent := ""
	if para.Bullet {
		bullet = "\n              <a:buFont typeface=\"Arial\"/>\n              <a:buChar char=\"&#8226;\"/>"
		indent = ` marL="285750" indent="-285750"`
	}

	var runs strings.Builder
	for _, r := range para.Runs {
		runs.WriteString(writeTextRunXML(box, r))
	}
	if len(para.Runs) == 0 {
		fmt.Fprintf(&runs, "            <a:endParaRPr lang=\"en-US\" sz=\"%d\" dirty=\"0\"/>\n", fontSizeAttr(box.FontSizePt))
	}

	return fmt.Sprintf(`          <a:p>
            <a:pPr algn="%s"%s>%s
            </a:pPr>
%s          </a:p>
`, algn, indent, bullet, runs.String())
}

func fontSizeAttr(pt float64) int64 {
	if pt <= 0 {
		pt = defaultFontSizePt
	}
	return int64(math.Round(pt * 100))
}

// writeTextRunXML writes a run with its effective formatting: run values
// where present, box defaults otherwise.
func writeTextRunXML(box *TextShape, r TextRun) string {
	size := box.FontSizePt
	if r.FontSizePt > 0 {
		size = r.FontSizePt
	}
	attrs := fmt.Sprintf(` lang="en-US" sz="%d" dirty="0"`, fontSizeAttr(size))
	if r.Bold {
		attrs += ` b="1"`
	}
	if r.Italic {
		attrs += ` i="1"`
	}
	if r.Underline {
		attrs += ` u="sng"`
	}

	color := box.Color.Or(ColorBlack)
	if r.Color.Kind == ColorRefDirect && r.Color.Value.IsResolved() {
		color = r.Color.Value
	}
	family := box.FontFamily
	if r.FontFamily != "" {
		family = r.FontFamily
	}
	if family == "" {
		family = defaultWriterFont
	}

	return fmt.Sprintf(`            <a:r>
              <a:rPr%s>
                <a:solidFill>%s</a:solidFill>
                <a:latin typeface="%s"/>
              </a:rPr>
              <a:t>%s</a:t>
            </a:r>
`, attrs, srgbXML(color), xmlEscape(family), xmlEscape(r.Text))
}

func writePictureXML(s *PictureShape, id int, rels pictureRels) string {
	blipInner := ""
	if s.Opacity < 1 {
		blipInner = fmt.Sprintf("\n            <a:alphaModFix amt=\"%d\"/>\n          ", int64(math.Round(math.Max(0, s.Opacity)*fixedPercent)))
	}

	lineXML := ""
	if s.BorderWidth > 0 {
		lineXML = fmt.Sprintf("          <a:ln w=\"%d\">\n            <a:solidFill>%s</a:solidFill>\n          </a:ln>\n",
			s.BorderWidth, srgbXML(s.BorderColor.Or(ColorBlack)))
	}

	shadowXML := ""
	if s.Shadow != nil {
		dx, dy := float64(s.Shadow.OffsetX), float64(s.Shadow.OffsetY)
		dist := int64(math.Round(math.Hypot(dx, dy)))
		dir := int64(math.Round(normalizeDegrees(math.Atan2(dy, dx)*180/math.Pi) * angleUnit))
		shadowXML = fmt.Sprintf(`          <a:effectLst>
            <a:outerShdw dist="%d" dir="%d" algn="bl" rotWithShape="0">
              %s
            </a:outerShdw>
          </a:effectLst>
`, dist, dir, srgbXML(s.Shadow.Color.Or(ColorBlack)))
	}

	return fmt.Sprintf(`      <p:pic>
        <p:nvPicPr>
          <p:cNvPr id="%d" name="Picture %d" descr="Image"/>
          <p:cNvPicPr>
            <a:picLocks noChangeAspect="1"/>
          </p:cNvPicPr>
          <p:nvPr/>
        </p:nvPicPr>
        <p:blipFill>
          <a:blip r:embed="%s">%s</a:blip>
          <a:stretch>
            <a:fillRect/>
          </a:stretch>
        </p:blipFill>
        <p:spPr>
%s%s%s        </p:spPr>
      </p:pic>
`, id, id, rels.blip, blipInner, xfrmXML(s.Geometry), lineXML, shadowXML)
}

// writeVectorXML writes a vector asset as a picture whose raster blip is a
// transparent stand-in and whose svgBlip extension holds the markup.
func writeVectorXML(s *VectorShape, id int, rels pictureRels) string {
	return fmt.Sprintf(`      <p:pic>
        <p:nvPicPr>
          <p:cNvPr id="%d" name="Graphic %d"/>
          <p:cNvPicPr>
            <a:picLocks noChangeAspect="1"/>
          </p:cNvPicPr>
          <p:nvPr/>
        </p:nvPicPr>
        <p:blipFill>
          <a:blip r:embed="%s">
            <a:extLst>
              <a:ext uri="%s">
                <asvg:svgBlip xmlns:asvg="%s" r:embed="%s"/>
              </a:ext>
            </a:extLst>
          </a:blip>
          <a:stretch>
            <a:fillRect/>
          </a:stretch>
        </p:blipFill>
        <p:spPr>
%s        </p:spPr>
      </p:pic>
`, id, id, rels.blip, svgBlipURI, nsSVGBlip, rels.svg, xfrmXML(s.Geometry))
}
