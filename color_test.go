package pptxhtml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewColor(t *testing.T) {
	assert.Equal(t, Color("#FF0000"), NewColor("ff0000"))
	assert.Equal(t, Color("#AABBCC"), NewColor("#abc"))
	assert.Equal(t, Color("#FF0000"), NewColor("80FF0000"))
	assert.Equal(t, Unresolved, NewColor("zzz"))
	assert.Equal(t, Unresolved, NewColor(""))
	assert.Equal(t, Unresolved, NewColor("GG0000"))
	assert.Equal(t, Unresolved, NewColor("12345"))
	assert.Equal(t, Color("#0A0B0C"), RGB(10, 11, 12))

	r, g, b := Color("#0A80FF").Channels()
	assert.Equal(t, [3]uint8{10, 128, 255}, [3]uint8{r, g, b})
	r, g, b = Unresolved.Channels()
	assert.Equal(t, [3]uint8{0, 0, 0}, [3]uint8{r, g, b})
}

func TestResolveColor(t *testing.T) {
	theme := fixtureThemeNode(t)
	tests := []struct {
		name  string
		ref   ColorRef
		theme *Theme
		cmap  ColorMap
		want  Color
	}{
		{"direct", Direct("#123456"), theme, nil, "#123456"},
		{"direct without value", Direct(Unresolved), theme, nil, Unresolved},
		{"system uses recorded value", System("windowText", "#000000"), theme, nil, "#000000"},
		{"system without value", System("window", Unresolved), theme, nil, ColorWhite},
		{"scheme slot", Scheme("accent1"), theme, nil, "#4F81BD"},
		{"semantic slot without map", Scheme("bg1"), theme, nil, ColorWhite},
		{"semantic slot through map", Scheme("bg1"), theme, ColorMap{"bg1": "dk2"}, "#1F497D"},
		{"missing slot", Scheme("accent9"), theme, nil, Unresolved},
		{"no theme", Scheme("accent1"), nil, nil, Unresolved},
		{"empty reference", ColorRef{}, theme, nil, Unresolved},
		{"luminance after lookup", Scheme("accent1").WithLuminance(i64(75000), nil), theme, nil, "#3B618E"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveColor(tt.ref, tt.theme, tt.cmap))
		})
	}
}

func TestResolveColorNeverPanics(t *testing.T) {
	refs := []ColorRef{
		{}, Direct("garbage"), System("", ""), Scheme(""),
		{Kind: "unknown", Name: "x"},
		Scheme("tx1").WithLuminance(i64(-5), i64(999999)),
	}
	for _, ref := range refs {
		assert.NotPanics(t, func() {
			c := ResolveColor(ref, nil, nil)
			assert.True(t, c == Unresolved || c.IsResolved(), "got %q", c)
		})
	}
}

func TestApplyLuminance(t *testing.T) {
	assert.Equal(t, Color("#804020"), ApplyLuminance("#FF8040", i64(50000), nil))
	assert.Equal(t, Color("#333333"), ApplyLuminance(ColorBlack, nil, i64(20000)))
	assert.Equal(t, ColorWhite, ApplyLuminance(ColorWhite, i64(50000), i64(50000)), "offset clamps at 255")
	assert.Equal(t, ColorBlack, ApplyLuminance("#808080", nil, i64(-100000)), "offset clamps at 0")
	assert.Equal(t, Color("#123456"), ApplyLuminance("#123456", nil, nil))
	assert.Equal(t, Unresolved, ApplyLuminance(Unresolved, i64(50000), nil))

	for _, c := range []Color{"#000000", "#FFFFFF", "#4F81BD", "#010203"} {
		assert.Equal(t, c, ApplyLuminance(c, i64(100000), i64(0)), "identity modifiers keep %s", c)
	}
}

func TestColorRefFromNode(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		want ColorRef
		ok   bool
	}{
		{
			"srgb with modifiers",
			`<a:solidFill ` + nsDecl + `><a:srgbClr val="ff0000"><a:lumMod val="50000"/><a:lumOff val="10000"/></a:srgbClr></a:solidFill>`,
			Direct(ColorRed).WithLuminance(i64(50000), i64(10000)), true,
		},
		{
			"scheme",
			`<a:solidFill ` + nsDecl + `><a:schemeClr val="accent2"/></a:solidFill>`,
			Scheme("accent2"), true,
		},
		{
			"system without last color",
			`<a:solidFill ` + nsDecl + `><a:sysClr val="window"/></a:solidFill>`,
			System("window", ColorWhite), true,
		},
		{
			"preset",
			`<a:solidFill ` + nsDecl + `><a:prstClr val="navy"/></a:solidFill>`,
			Direct("#000080"), true,
		},
		{
			"scrgb",
			`<a:solidFill ` + nsDecl + `><a:scrgbClr r="100000" g="0" b="0"/></a:solidFill>`,
			Direct(ColorRed), true,
		},
		{
			"invalid srgb",
			`<a:solidFill ` + nsDecl + `><a:srgbClr val="xyz"/></a:solidFill>`,
			ColorRef{}, false,
		},
		{
			"no color child",
			`<a:solidFill ` + nsDecl + `/>`,
			ColorRef{}, false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ColorRefFromNode(mustParse(t, tt.xml))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadTheme(t *testing.T) {
	theme := fixtureThemeNode(t)
	assert.Equal(t, "Fixture", theme.Name)
	assert.Equal(t, "Cambria", theme.MajorFont)
	assert.Equal(t, "Calibri", theme.MinorFont)
	assert.Len(t, theme.Colors, len(SchemeSlots))
	assert.Equal(t, ColorBlack, theme.Colors["dk1"])
	assert.Equal(t, Color("#F79646"), theme.Colors["accent6"])

	partial := LoadTheme(mustParse(t, `<a:theme `+nsDecl+`><a:themeElements><a:clrScheme name="P">`+
		`<a:lt1><a:sysClr val="window"/></a:lt1></a:clrScheme></a:themeElements></a:theme>`))
	assert.Equal(t, ColorWhite, partial.Colors["lt1"])
	_, ok := partial.Lookup("dk1")
	assert.False(t, ok)

	empty := LoadTheme(nil)
	assert.Empty(t, empty.Colors)
}

func TestColorMaps(t *testing.T) {
	master := mustParse(t, `<p:sldMaster `+nsDecl+`>`+fixtureClrMap+`</p:sldMaster>`)
	cmap := ColorMapFromMaster(master)
	require.NotNil(t, cmap)
	assert.Equal(t, "lt1", cmap.Translate("bg1"))
	assert.Equal(t, "accent3", cmap.Translate("accent3"))

	slide := mustParse(t, `<p:sld `+nsDecl+`><p:clrMapOvr><a:overrideClrMapping bg1="dk1" tx1="lt1"/></p:clrMapOvr></p:sld>`)
	override := ColorMapOverride(slide)
	require.NotNil(t, override)
	assert.Equal(t, "dk1", override.Translate("bg1"))

	keep := mustParse(t, `<p:sld `+nsDecl+`><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`)
	assert.Nil(t, ColorMapOverride(keep))

	var none ColorMap
	assert.Equal(t, "dk1", none.Translate("tx1"))
	assert.Equal(t, "accent1", none.Translate("accent1"))
}
