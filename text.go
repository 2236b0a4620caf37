package pptxhtml

import (
	"golang.org/x/text/unicode/norm"
)

// Box-level text defaults used when the first run carries no value.
const (
	defaultFontSizePt = 12 // 16 px
)

// HasText reports whether a shape carries a text body.
func HasText(shape *Node) bool {
	return shape.Child("p:txBody").Exists()
}

// TextOf extracts the paragraphs of a shape's text body. Runs without text
// are dropped; paragraphs are kept even when empty, since an empty plain
// paragraph still ends a bullet list.
func TextOf(shape *Node) []Paragraph {
	body := shape.Child("p:txBody")
	if body == nil {
		return nil
	}
	var out []Paragraph
	for _, p := range body.ChildrenNamed("a:p") {
		para := Paragraph{Bullet: isBulletParagraph(p)}
		for _, el := range p.Elements() {
			if el.Name != "a:r" && el.Name != "a:fld" {
				continue
			}
			if run, ok := runOf(el); ok {
				para.Runs = append(para.Runs, run)
			}
		}
		out = append(out, para)
	}
	return out
}

// isBulletParagraph reports whether a paragraph carries a bullet character or bullet font.
func isBulletParagraph(p *Node) bool {
	pPr := p.Child("a:pPr")
	return pPr.Child("a:buChar").Exists() || pPr.Child("a:buFont").Exists()
}

// runOf reads text and formatting of an a:r (or a:fld) element. Flags are
// set by explicit attribute value ("1" or "true"), not by presence.
func runOf(r *Node) (TextRun, bool) {
	text := norm.NFC.String(r.Child("a:t").TextContent())
	if text == "" {
		return TextRun{}, false
	}
	rPr := r.Child("a:rPr")
	run := TextRun{
		Text:       text,
		Bold:       rPr.FlagAttr("b"),
		Italic:     rPr.FlagAttr("i"),
		Underline:  rPr.Attr("u") == "sng",
		FontFamily: rPr.Child("a:latin").Attr("typeface"),
	}
	if sz, ok := rPr.IntAttrOK("sz"); ok && sz > 0 {
		run.FontSizePt = float64(sz) / 100
	}
	if ref, ok := ColorRefFromNode(rPr.Child("a:solidFill")); ok {
		run.Color = ref
	}
	return run, true
}

// firstRunProps returns the a:rPr of the first run of the first paragraph.
func firstRunProps(shape *Node) *Node {
	return shape.Path("p:txBody", "a:p", "a:r", "a:rPr")
}

// paragraphAligns maps a:pPr@algn to text alignment.
var paragraphAligns = map[string]TextAlign{
	"l":    AlignLeft,
	"ctr":  AlignCenter,
	"r":    AlignRight,
	"just": AlignJustify,
}

// bodyAnchors maps a:bodyPr@anchor to vertical anchoring.
var bodyAnchors = map[string]TextAnchor{
	"t":   AnchorTop,
	"ctr": AnchorMiddle,
	"b":   AnchorBottom,
}

// textBoxStyle fills the box-level defaults of a text shape: font size and
// color from the first run, alignment from the first paragraph, anchoring
// from the body properties.
func textBoxStyle(shape *Node, theme *Theme, cmap ColorMap) (size float64, color Color, family string, align TextAlign, anchor TextAnchor) {
	rPr := firstRunProps(shape)
	size = defaultFontSizePt
	if sz, ok := rPr.IntAttrOK("sz"); ok && sz > 0 {
		size = float64(sz) / 100
	}
	color = colorOf(rPr.Child("a:solidFill"), theme, cmap).Or(ColorBlack)
	family = rPr.Child("a:latin").Attr("typeface")

	align = AlignLeft
	if a, ok := paragraphAligns[shape.Path("p:txBody", "a:p", "a:pPr").Attr("algn")]; ok {
		align = a
	}
	anchor = AnchorTop
	if a, ok := bodyAnchors[shape.Path("p:txBody", "a:bodyPr").Attr("anchor")]; ok {
		anchor = a
	}
	return size, color, family, align, anchor
}
