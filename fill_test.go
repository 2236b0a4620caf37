package pptxhtml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedDiag struct {
	kind    DiagnosticKind
	subject string
}

// testEnv returns a fill environment over the fixture theme and color map
// together with the diagnostics it collects.
func testEnv(t *testing.T, rels *Relationships) (*fillEnv, *[]recordedDiag) {
	t.Helper()
	var diags []recordedDiag
	master := mustParse(t, `<p:sldMaster `+nsDecl+`>`+fixtureClrMap+`</p:sldMaster>`)
	env := &fillEnv{
		theme: fixtureThemeNode(t),
		cmap:  ColorMapFromMaster(master),
		rels:  rels,
		report: func(kind DiagnosticKind, subject, _ string) {
			diags = append(diags, recordedDiag{kind, subject})
		},
	}
	return env, &diags
}

func slideWithBg(t *testing.T, bgPr string) *Node {
	return mustParse(t, `<p:sld `+nsDecl+`><p:cSld><p:bg><p:bgPr>`+bgPr+`</p:bgPr></p:bg><p:spTree/></p:cSld></p:sld>`)
}

func TestBackgroundSolidFill(t *testing.T) {
	env, diags := testEnv(t, nil)
	slide := slideWithBg(t, `<a:solidFill><a:schemeClr val="accent2"/></a:solidFill>`)
	assert.Equal(t, SolidFill("#C0504D"), resolveBackgroundFill(env, slide, nil))
	assert.Empty(t, *diags)

	slide = slideWithBg(t, `<a:solidFill><a:schemeClr val="bg1"><a:lumMod val="50000"/></a:schemeClr></a:solidFill>`)
	assert.Equal(t, SolidFill("#808080"), resolveBackgroundFill(env, slide, nil))
}

func TestBackgroundGradientFill(t *testing.T) {
	env, diags := testEnv(t, nil)
	slide := slideWithBg(t, `<a:gradFill><a:gsLst>`+
		`<a:gs pos="100000"><a:srgbClr val="0000FF"/></a:gs>`+
		`<a:gs pos="0"><a:srgbClr val="FF0000"/></a:gs>`+
		`<a:gs pos="50000"><a:schemeClr val="accent3"/></a:gs>`+
		`</a:gsLst><a:lin ang="2700000" scaled="0"/></a:gradFill>`)

	got := resolveBackgroundFill(env, slide, nil)
	assert.Equal(t, FillGradient, got.Type)
	assert.Equal(t, 45.0, got.Angle)
	assert.Equal(t, []GradientStop{
		{Color: ColorRed, Position: 0},
		{Color: "#9BBB59", Position: 50},
		{Color: ColorBlue, Position: 100},
	}, got.Stops)
	assert.Empty(t, *diags)

	noLin := slideWithBg(t, `<a:gradFill><a:gsLst>`+
		`<a:gs pos="0"><a:srgbClr val="FFFFFF"/></a:gs><a:gs pos="100000"><a:srgbClr val="000000"/></a:gs>`+
		`</a:gsLst></a:gradFill>`)
	assert.Equal(t, 90.0, resolveBackgroundFill(env, noLin, nil).Angle)
}

func TestGradientWithOneStopDegrades(t *testing.T) {
	env, diags := testEnv(t, nil)
	slide := slideWithBg(t, `<a:gradFill><a:gsLst>`+
		`<a:gs pos="0"><a:srgbClr val="FF0000"/></a:gs>`+
		`<a:gs pos="100000"><a:schemeClr val="accent9"/></a:gs>`+
		`</a:gsLst></a:gradFill>`)

	assert.Equal(t, SolidFill(ColorRed), resolveBackgroundFill(env, slide, nil))
	require.Len(t, *diags, 2)
	assert.Equal(t, DiagUnresolvedReference, (*diags)[0].kind)
	assert.Equal(t, DiagUnsupportedConstruct, (*diags)[1].kind)
}

func TestBackgroundPatternFill(t *testing.T) {
	tests := []struct {
		name     string
		bgPr     string
		want     Fill
		wantDiag bool
	}{
		{
			"known preset",
			`<a:pattFill prst="dkGrid"><a:fgClr><a:schemeClr val="accent1"/></a:fgClr><a:bgClr><a:schemeClr val="bg1"/></a:bgClr></a:pattFill>`,
			PatternFill("#4F81BD", ColorWhite, "dkGrid"), false,
		},
		{
			"unknown preset",
			`<a:pattFill prst="plaid"><a:fgClr><a:srgbClr val="FF0000"/></a:fgClr><a:bgClr><a:srgbClr val="0000FF"/></a:bgClr></a:pattFill>`,
			PatternFill(ColorRed, ColorBlue, PatternNone), true,
		},
		{
			"missing preset",
			`<a:pattFill><a:fgClr><a:srgbClr val="FF0000"/></a:fgClr><a:bgClr><a:srgbClr val="0000FF"/></a:bgClr></a:pattFill>`,
			PatternFill(ColorRed, ColorBlue, "pct5"), false,
		},
		{
			"one color unresolved",
			`<a:pattFill prst="ltGrid"><a:fgClr><a:schemeClr val="accent9"/></a:fgClr><a:bgClr><a:srgbClr val="00FF00"/></a:bgClr></a:pattFill>`,
			PatternFill(ColorBlack, ColorGreen, "ltGrid"), true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, diags := testEnv(t, nil)
			assert.Equal(t, tt.want, resolveBackgroundFill(env, slideWithBg(t, tt.bgPr), nil))
			assert.Equal(t, tt.wantDiag, len(*diags) > 0)
		})
	}
}

func TestPatternKindOf(t *testing.T) {
	kind, ok := PatternKindOf("")
	assert.True(t, ok)
	assert.Equal(t, PatternKind("pct5"), kind)

	kind, ok = PatternKindOf("none")
	assert.True(t, ok)
	assert.Equal(t, PatternNone, kind)

	kind, ok = PatternKindOf("smGrid")
	assert.False(t, ok)
	assert.Equal(t, PatternNone, kind)
}

func TestBackgroundFallsBackToMaster(t *testing.T) {
	env, _ := testEnv(t, nil)
	slide := mustParse(t, `<p:sld `+nsDecl+`><p:cSld><p:spTree/></p:cSld></p:sld>`)
	master := mustParse(t, `<p:sldMaster `+nsDecl+`><p:cSld><p:bg><p:bgRef idx="1001"><a:schemeClr val="bg2"/></p:bgRef></p:bg></p:cSld></p:sldMaster>`)
	assert.Equal(t, SolidFill("#EEECE1"), resolveBackgroundFill(env, slide, master))

	bare := mustParse(t, `<p:sldMaster `+nsDecl+`><p:cSld/></p:sldMaster>`)
	got := resolveBackgroundFill(env, slide, bare)
	assert.True(t, got.IsNone())
	assert.Equal(t, SolidFill(ColorWhite), got.OrWhite())
}

func TestUnresolvedSolidFallsThrough(t *testing.T) {
	env, diags := testEnv(t, nil)
	slide := slideWithBg(t, `<a:solidFill><a:schemeClr val="accent9"/></a:solidFill>`)
	assert.True(t, resolveBackgroundFill(env, slide, nil).IsNone())
	require.Len(t, *diags, 1)
	assert.Equal(t, recordedDiag{DiagUnresolvedReference, "solidFill"}, (*diags)[0])
}

func TestBackgroundPictureFill(t *testing.T) {
	rels := &Relationships{
		Source: "ppt/slides/slide1.xml",
		Items:  []Relationship{{ID: "rId2", Type: relTypeImage, Target: "../media/image1.png"}},
	}
	env, diags := testEnv(t, rels)
	slide := slideWithBg(t, `<a:blipFill><a:blip r:embed="rId2"/><a:stretch><a:fillRect/></a:stretch></a:blipFill>`)
	assert.Equal(t, PictureFill(ImageRef{URI: "ppt/media/image1.png", MIME: "image/png"}), resolveBackgroundFill(env, slide, nil))

	missing := slideWithBg(t, `<a:blipFill><a:blip r:embed="rId9"/></a:blipFill>`)
	assert.True(t, resolveBackgroundFill(env, missing, nil).IsNone())
	assert.Len(t, *diags, 1)
}

func TestShapeFill(t *testing.T) {
	env, _ := testEnv(t, nil)
	spPr := mustParse(t, `<p:spPr `+nsDecl+`><a:noFill/><a:solidFill><a:srgbClr val="FF0000"/></a:solidFill></p:spPr>`)
	assert.Equal(t, NoFill(), resolveShapeFill(env, spPr))

	spPr = mustParse(t, `<p:spPr `+nsDecl+`><a:solidFill><a:schemeClr val="tx2"/></a:solidFill></p:spPr>`)
	assert.Equal(t, SolidFill("#1F497D"), resolveShapeFill(env, spPr))

	spPr = mustParse(t, `<p:spPr `+nsDecl+`><a:blipFill><a:blip r:embed="rId2"/></a:blipFill></p:spPr>`)
	assert.Equal(t, NoFill(), resolveShapeFill(env, spPr))
	assert.Equal(t, NoFill(), resolveShapeFill(env, nil))
}
