package pptxhtml

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const redBackground = `<p:bg><p:bgPr><a:solidFill><a:srgbClr val="FF0000"/></a:solidFill><a:effectLst/></p:bgPr></p:bg>`

func helloShape() string {
	return textSp(2, 914400, 914400, 1828800, 914400, "",
		`<a:p><a:r><a:rPr lang="en-US" sz="1800" b="1"/><a:t>Hello</a:t></a:r></a:p>`)
}

func convert(t *testing.T, pkg PackageReader, opts ...AssemblerOption) *ForwardResult {
	t.Helper()
	res, err := NewAssembler(opts...).Convert(context.Background(), pkg)
	require.NoError(t, err)
	return res
}

func TestConvertTextSlide(t *testing.T) {
	pkg := deckFixture{Slides: []slideFixture{{Background: redBackground, Shapes: helloShape()}}}.build(t)
	res := convert(t, pkg)

	require.Len(t, res.Slides, 1)
	slide := res.Document.Slides[0]
	assert.Equal(t, 1, slide.Index)
	assert.Equal(t, SolidFill(ColorRed), slide.Background)

	want := &TextShape{
		ID:         2,
		Geometry:   Geometry{X: Inch(1), Y: Inch(1), Width: Inch(2), Height: Inch(1)},
		Paragraphs: []Paragraph{{Runs: []TextRun{{Text: "Hello", Bold: true, FontSizePt: 18}}}},
		FontSizePt: 18,
		Color:      ColorBlack,
		Align:      AlignLeft,
		Anchor:     AnchorTop,
		Fill:       NoFill(),
	}
	require.Len(t, slide.Shapes, 1)
	if diff := cmp.Diff(want, slide.Shapes[0]); diff != "" {
		t.Errorf("text shape mismatch (-want +got):\n%s", diff)
	}

	markup := res.Slides[0].Markup
	assert.Contains(t, markup, `class="sli-slide"`)
	assert.Contains(t, markup, `data-slide-index="1"`)
	assert.Contains(t, markup, "background-color: #FF0000")
	assert.Contains(t, markup, `contenteditable="true"`)
	assert.Contains(t, markup, "left: 96px; top: 96px; width: 192px; height: 96px")
	assert.Contains(t, markup, "font-weight: bold")
	assert.Equal(t, markup, res.Markup())
	assert.Empty(t, res.Diagnostics)
}

func TestRoundTrip(t *testing.T) {
	media := map[string][]byte{"ppt/media/image1.png": testPNG()}
	tests := []struct {
		name  string
		slide slideFixture
	}{
		{"solid background with text", slideFixture{Background: redBackground, Shapes: helloShape()}},
		{
			"gradient background",
			slideFixture{Background: `<p:bg><p:bgPr><a:gradFill><a:gsLst>` +
				`<a:gs pos="0"><a:srgbClr val="FF0000"/></a:gs><a:gs pos="100000"><a:srgbClr val="0000FF"/></a:gs>` +
				`</a:gsLst><a:lin ang="5400000"/></a:gradFill></p:bgPr></p:bg>`},
		},
		{
			"pattern background",
			slideFixture{Background: `<p:bg><p:bgPr><a:pattFill prst="dkGrid"><a:fgClr><a:srgbClr val="000000"/></a:fgClr>` +
				`<a:bgClr><a:srgbClr val="FFFFFF"/></a:bgClr></a:pattFill></p:bgPr></p:bg>`},
		},
		{
			"styled text",
			slideFixture{Shapes: textSp(3, 0, 0, 952500, 476250,
				`<a:solidFill><a:schemeClr val="accent1"/></a:solidFill>`,
				`<a:p><a:pPr algn="r"/><a:r><a:rPr sz="2000" i="1" u="sng"><a:solidFill><a:srgbClr val="00FF00"/></a:solidFill><a:latin typeface="Georgia"/></a:rPr><a:t>Left </a:t></a:r>`+
					`<a:r><a:rPr sz="1400"/><a:t>right</a:t></a:r></a:p>`+
					`<a:p><a:pPr><a:buChar char="-"/></a:pPr><a:r><a:t>one</a:t></a:r></a:p>`+
					`<a:p><a:pPr><a:buChar char="-"/></a:pPr><a:r><a:t>two</a:t></a:r></a:p>`+
					`<a:p/>`+
					`<a:p><a:r><a:t>after</a:t></a:r></a:p>`)},
		},
		{
			"picture",
			slideFixture{
				Shapes: picXML(4, "rId2", 914400, 0, 914400, 914400, `<a:ln w="19050"><a:solidFill><a:srgbClr val="0000FF"/></a:solidFill></a:ln>`),
				Rels:   imageRel("rId2", "../media/image1.png"),
			},
		},
		{
			"rotated and flipped",
			slideFixture{Shapes: strings.Replace(helloShape(), `<a:xfrm>`, `<a:xfrm rot="1800000" flipH="1">`, 1)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg := deckFixture{Slides: []slideFixture{tt.slide}, Media: media}.build(t)
			fwd := convert(t, pkg)
			back, err := NewDecomposer().Decompose(context.Background(), fwd.Markup())
			require.NoError(t, err)
			if diff := cmp.Diff(fwd.Document, back.Document); diff != "" {
				t.Errorf("round trip mismatch (-forward +reverse):\n%s", diff)
			}
			assert.Empty(t, back.Diagnostics)
		})
	}
}

func TestConvertKeepsSlideOrder(t *testing.T) {
	var slides []slideFixture
	for _, title := range []string{"first", "second", "third", "fourth"} {
		slides = append(slides, slideFixture{Shapes: textSp(2, 0, 0, 100, 100, "", `<a:p><a:r><a:t>`+title+`</a:t></a:r></a:p>`)})
	}
	res := convert(t, deckFixture{Slides: slides}.build(t), WithWorkers(2))

	require.Len(t, res.Document.Slides, 4)
	for i, title := range []string{"first", "second", "third", "fourth"} {
		s := res.Document.Slides[i]
		assert.Equal(t, i+1, s.Index)
		assert.Equal(t, title, s.TextShapes()[0].Paragraphs[0].Runs[0].Text)
		assert.Contains(t, res.Slides[i].Markup, title)
	}
}

func TestConvertResolvesThemeAndMaster(t *testing.T) {
	pkg := deckFixture{
		MasterBg: `<p:bg><p:bgRef idx="1001"><a:schemeClr val="accent1"/></p:bgRef></p:bg>`,
		Slides: []slideFixture{
			{},
			{
				Background: `<p:bg><p:bgPr><a:solidFill><a:schemeClr val="bg1"/></a:solidFill></p:bgPr></p:bg>`,
				ClrMapOvr:  `<p:clrMapOvr><a:overrideClrMapping bg1="dk1" tx1="lt1" bg2="dk2" tx2="lt2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/></p:clrMapOvr>`,
			},
		},
	}.build(t)
	res := convert(t, pkg)
	assert.Equal(t, SolidFill("#4F81BD"), res.Document.Slides[0].Background)
	assert.Equal(t, SolidFill(ColorBlack), res.Document.Slides[1].Background)
	assert.Empty(t, res.Slides[0].Slide.Shapes)
}

func TestConvertWithoutThemeUsesDefaults(t *testing.T) {
	pkg := deckFixture{
		NoTheme: true,
		Slides:  []slideFixture{{Background: `<p:bg><p:bgPr><a:solidFill><a:schemeClr val="accent1"/></a:solidFill></p:bgPr></p:bg>`}},
	}.build(t)
	res := convert(t, pkg)
	assert.Equal(t, SolidFill("#4472C4"), res.Document.Slides[0].Background)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "theme", res.Diagnostics[0].Subject)
}

func TestConvertFlattensGroups(t *testing.T) {
	group := `<p:grpSp><p:nvGrpSpPr><p:cNvPr id="10" name="Group"/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
		`<p:grpSpPr><a:xfrm><a:off x="1000" y="1000"/><a:ext cx="2000" cy="2000"/><a:chOff x="0" y="0"/><a:chExt cx="1000" cy="1000"/></a:xfrm></p:grpSpPr>` +
		textSp(11, 100, 100, 200, 200, "", `<a:p><a:r><a:t>in group</a:t></a:r></a:p>`) +
		`</p:grpSp>`
	res := convert(t, deckFixture{Slides: []slideFixture{{Shapes: group}}}.build(t))

	shapes := res.Document.Slides[0].TextShapes()
	require.Len(t, shapes, 1)
	assert.Equal(t, 11, shapes[0].ID)
	assert.Equal(t, Geometry{X: 1200, Y: 1200, Width: 400, Height: 400}, shapes[0].Geometry)
}

func TestConvertDegradesUnsupportedContent(t *testing.T) {
	shapes := `<p:graphicFrame><p:nvGraphicFramePr><p:cNvPr id="5" name="Chart"/></p:nvGraphicFramePr></p:graphicFrame>` +
		`<p:sp><p:nvSpPr><p:cNvPr id="6" name="Empty"/></p:nvSpPr><p:spPr/></p:sp>` +
		picXML(7, "rId9", 0, 0, 100, 100, "") +
		textSp(8, 0, 0, 100, 100, "", `<a:p><a:r><a:rPr><a:solidFill><a:schemeClr val="accent9"/></a:solidFill></a:rPr><a:t>kept</a:t></a:r></a:p>`)
	res := convert(t, deckFixture{Slides: []slideFixture{{Shapes: shapes}}}.build(t))

	slide := res.Document.Slides[0]
	require.Len(t, slide.Shapes, 1)
	run := slide.TextShapes()[0].Paragraphs[0].Runs[0]
	assert.Equal(t, "kept", run.Text)
	assert.True(t, run.Color.IsZero())

	subjects := make([]string, len(res.Diagnostics))
	for i, d := range res.Diagnostics {
		assert.Equal(t, 1, d.Slide)
		subjects[i] = d.Subject
	}
	assert.ElementsMatch(t, []string{"p:graphicFrame", "p:sp", "p:pic", "run"}, subjects)
}

func TestConvertStoresImages(t *testing.T) {
	pkg := deckFixture{
		Slides: []slideFixture{{
			Background: `<p:bg><p:bgPr><a:blipFill><a:blip r:embed="rId3"/></a:blipFill></p:bgPr></p:bg>`,
			Shapes:     picXML(4, "rId2", 0, 0, 914400, 914400, ""),
			Rels:       imageRel("rId2", "../media/image1.png") + imageRel("rId3", "../media/image1.png"),
		}},
		Media: map[string][]byte{"ppt/media/image1.png": testPNG()},
	}.build(t)
	store := &mapStore{}
	res := convert(t, pkg, WithImageResolver(StoreImages{Store: store}))

	slide := res.Document.Slides[0]
	assert.Equal(t, "/api/slides/images/h1", slide.Background.Image.URI)
	assert.Equal(t, "/api/slides/images/h2", slide.Pictures()[0].Image.URI)
	assert.Len(t, store.images, 2)
	assert.Contains(t, res.Slides[0].Markup, `src="/api/slides/images/h2"`)
	assert.Contains(t, res.Slides[0].Markup, `url(&#39;/api/slides/images/h1&#39;)`)

	back, err := NewDecomposer(WithImageStore(store, "")).Decompose(context.Background(), res.Markup())
	require.NoError(t, err)
	pic := back.Document.Slides[0].Pictures()[0]
	assert.Equal(t, testPNG(), pic.Image.Data)
	assert.Equal(t, testPNG(), back.Document.Slides[0].Background.Image.Data)
}

func TestConvertVectorPicture(t *testing.T) {
	pic := `<p:pic><p:nvPicPr><p:cNvPr id="9" name="Icon"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr>` +
		`<p:blipFill><a:blip r:embed="rId2"><a:extLst><a:ext uri="{96DAC541-7B7A-43D3-8B79-37D633B846F1}">` +
		`<asvg:svgBlip xmlns:asvg="http://schemas.microsoft.com/office/drawing/2016/SVG/main" r:embed="rId3"/>` +
		`</a:ext></a:extLst></a:blip></p:blipFill>` +
		`<p:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="952500" cy="952500"/></a:xfrm></p:spPr></p:pic>`
	svg := `<?xml version="1.0"?><!-- icon --><svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10"><circle cx="5" cy="5" r="4"/></svg>`
	pkg := deckFixture{
		Slides: []slideFixture{{Shapes: pic, Rels: imageRel("rId2", "../media/image1.png") + imageRel("rId3", "../media/image2.svg")}},
		Media:  map[string][]byte{"ppt/media/image1.png": testPNG(), "ppt/media/image2.svg": []byte(svg)},
	}.build(t)
	res := convert(t, pkg)

	require.Len(t, res.Document.Slides[0].Shapes, 1)
	v, ok := res.Document.Slides[0].Shapes[0].(*VectorShape)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(v.Markup, "<svg"))
	assert.NotContains(t, v.Markup, "icon")
	assert.Contains(t, res.Slides[0].Markup, `class="sli-svg-container"`)

	back, err := NewDecomposer().Decompose(context.Background(), res.Markup())
	require.NoError(t, err)
	if diff := cmp.Diff(res.Document, back.Document); diff != "" {
		t.Errorf("vector round trip mismatch (-forward +reverse):\n%s", diff)
	}
}

func TestConvertRejectsBadPackages(t *testing.T) {
	_, err := ReadPackage(bytes.NewReader([]byte("not a zip")), 9)
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = NewAssembler().Convert(context.Background(), deckFixture{}.build(t))
	assert.ErrorIs(t, err, ErrMalformedInput)
}
