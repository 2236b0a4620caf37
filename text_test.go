package pptxhtml

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextOf(t *testing.T) {
	sp := mustParse(t, `<p:sp `+nsDecl+`><p:txBody><a:bodyPr anchor="ctr"/>`+
		`<a:p><a:pPr algn="ctr"/><a:r><a:rPr sz="2400" b="1" i="0" u="sng"><a:solidFill><a:srgbClr val="00FF00"/></a:solidFill><a:latin typeface="Georgia"/></a:rPr><a:t>Title</a:t></a:r>`+
		`<a:r><a:rPr b="0"/><a:t></a:t></a:r><a:fld type="slidenum"><a:t>3</a:t></a:fld></a:p>`+
		`<a:p><a:pPr><a:buChar char="•"/></a:pPr><a:r><a:t>point</a:t></a:r></a:p>`+
		`<a:p/>`+
		`</p:txBody></p:sp>`)

	require.True(t, HasText(sp))
	want := []Paragraph{
		{Runs: []TextRun{
			{Text: "Title", Bold: true, Underline: true, FontFamily: "Georgia", FontSizePt: 24, Color: Direct(ColorGreen)},
			{Text: "3"},
		}},
		{Runs: []TextRun{{Text: "point"}}, Bullet: true},
		{},
	}
	if diff := cmp.Diff(want, TextOf(sp)); diff != "" {
		t.Errorf("TextOf mismatch (-want +got):\n%s", diff)
	}

	size, color, family, align, anchor := textBoxStyle(sp, fixtureThemeNode(t), nil)
	assert.Equal(t, 24.0, size)
	assert.Equal(t, ColorGreen, color)
	assert.Equal(t, "Georgia", family)
	assert.Equal(t, AlignCenter, align)
	assert.Equal(t, AnchorMiddle, anchor)
}

func TestTextBoxDefaults(t *testing.T) {
	sp := mustParse(t, `<p:sp `+nsDecl+`><p:txBody><a:bodyPr/><a:p><a:r><a:t>x</a:t></a:r></a:p></p:txBody></p:sp>`)
	size, color, family, align, anchor := textBoxStyle(sp, nil, nil)
	assert.Equal(t, 12.0, size)
	assert.Equal(t, ColorBlack, color)
	assert.Empty(t, family)
	assert.Equal(t, AlignLeft, align)
	assert.Equal(t, AnchorTop, anchor)

	bare := mustParse(t, `<p:sp `+nsDecl+`><p:spPr/></p:sp>`)
	assert.False(t, HasText(bare))
	assert.Nil(t, TextOf(bare))
}

func TestTextIsNormalized(t *testing.T) {
	sp := mustParse(t, `<p:sp `+nsDecl+`><p:txBody><a:p><a:r><a:t>Cafe`+"\u0301"+`</a:t></a:r></a:p></p:txBody></p:sp>`)
	paras := TextOf(sp)
	require.Len(t, paras, 1)
	assert.Equal(t, "Caf\u00e9", paras[0].Runs[0].Text)
}

func TestGroupParagraphs(t *testing.T) {
	b := Paragraph{Bullet: true, Runs: []TextRun{{Text: "b"}}}
	n := Paragraph{Runs: []TextRun{{Text: "n"}}}
	empty := Paragraph{}

	groups := GroupParagraphs([]Paragraph{b, b, n, b})
	require.Len(t, groups, 3)
	assert.True(t, groups[0].List)
	assert.Len(t, groups[0].Paragraphs, 2)
	assert.False(t, groups[1].List)
	assert.True(t, groups[2].List)
	assert.Len(t, groups[2].Paragraphs, 1)

	groups = GroupParagraphs([]Paragraph{b, empty, b})
	require.Len(t, groups, 3, "an empty plain paragraph closes the list")

	assert.Empty(t, GroupParagraphs(nil))
}

func TestRunFlagsAcceptTrue(t *testing.T) {
	sp := mustParse(t, `<p:sp `+nsDecl+`><p:txBody>`+
		`<a:p><a:pPr><a:buFont typeface="Arial"/></a:pPr><a:r><a:rPr b="true" i="1"/><a:t>strong</a:t></a:r><a:r><a:rPr b="false" i="yes"/><a:t>plain</a:t></a:r></a:p>`+
		`</p:txBody></p:sp>`)
	want := []Paragraph{{Bullet: true, Runs: []TextRun{
		{Text: "strong", Bold: true, Italic: true},
		{Text: "plain"},
	}}}
	if diff := cmp.Diff(want, TextOf(sp)); diff != "" {
		t.Errorf("TextOf mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, HasText(mustParse(t, `<p:sp `+nsDecl+`><p:spPr/></p:sp>`)))
}
