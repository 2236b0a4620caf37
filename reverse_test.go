package pptxhtml

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStore struct {
	images map[string][]byte
}

func (s *mapStore) Store(_ context.Context, data []byte, mime string) (string, error) {
	if s.images == nil {
		s.images = map[string][]byte{}
	}
	handle := "h" + itoa(len(s.images)+1)
	s.images[handle] = data
	return handle, nil
}

func (s *mapStore) Fetch(_ context.Context, handle string) ([]byte, string, error) {
	data, ok := s.images[handle]
	if !ok {
		return nil, "", ErrNotFound
	}
	return data, "image/png", nil
}

type fakeOracle struct {
	styles []ComputedStyle
	err    error
	calls  atomic.Int32
}

func (o *fakeOracle) ComputeStyles(context.Context, string) ([]ComputedStyle, error) {
	o.calls.Add(1)
	return o.styles, o.err
}

func decompose(t *testing.T, markup string, opts ...DecomposerOption) *ReverseResult {
	t.Helper()
	res, err := NewDecomposer(opts...).Decompose(context.Background(), markup)
	require.NoError(t, err)
	return res
}

func shapeIDList(s *Slide) []int {
	var ids []int
	for _, sh := range s.Shapes {
		ids = append(ids, sh.GetID())
	}
	return ids
}

func TestDecomposeOrdersByZIndex(t *testing.T) {
	res := decompose(t, `<div class="sli-slide" style="width: 960px; height: 720px; background-color: #fff">`+
		`<div class="sli-txt-box" data-shape-id="5" style="z-index: 5">a</div>`+
		`<div class="sli-txt-box" data-shape-id="1" style="z-index: 1">b</div>`+
		`<div><div class="sli-txt-box" data-shape-id="3" style="z-index: 3">c</div></div>`+
		`<div class="sli-txt-box" data-shape-id="9">d</div>`+
		`</div>`)

	require.Len(t, res.Document.Slides, 1)
	assert.Equal(t, []int{9, 1, 3, 5}, shapeIDList(res.Document.Slides[0]))
}

func TestDecomposeTextBox(t *testing.T) {
	res := decompose(t, `<div class="sli-slide" style="background: white">`+
		`<div class="sli-txt-box" data-shape-id="2" style="left: 96px; top: 48px; width: 192px; height: 96px; `+
		`color: rgb(0, 0, 255); font-size: 24px; font-family: 'Open Sans', sans-serif; text-align: center; `+
		`justify-content: flex-end; transform: rotate(45deg); background-color: #00ff00">`+
		`<p>One <b>two</b></p><p></p>`+
		`<ul><li><span style="font-size: 32px; color: red">x</span></li><li><i>y</i></li></ul>`+
		`tail<br>after`+
		`</div></div>`)

	slide := res.Document.Slides[0]
	require.Len(t, slide.Shapes, 1)
	want := &TextShape{
		ID:         2,
		Geometry:   Geometry{X: Inch(1), Y: Inch(0.5), Width: Inch(2), Height: Inch(1), Rotation: 45},
		FontSizePt: 18,
		Color:      ColorBlue,
		FontFamily: "Open Sans",
		Align:      AlignCenter,
		Anchor:     AnchorBottom,
		Fill:       SolidFill(ColorGreen),
		Paragraphs: []Paragraph{
			{Runs: []TextRun{{Text: "One "}, {Text: "two", Bold: true}}},
			{},
			{Bullet: true, Runs: []TextRun{{Text: "x", FontSizePt: 24, Color: Direct(ColorRed)}}},
			{Bullet: true, Runs: []TextRun{{Text: "y", Italic: true}}},
			{Runs: []TextRun{{Text: "tail"}}},
			{Runs: []TextRun{{Text: "after"}}},
		},
	}
	if diff := cmp.Diff(want, slide.Shapes[0]); diff != "" {
		t.Errorf("text box mismatch (-want +got):\n%s", diff)
	}
}

func TestDecomposeKeepsSpacesBetweenRuns(t *testing.T) {
	paragraphs := func(boxStyle, inner string) []Paragraph {
		res := decompose(t, `<div class="sli-slide"><div class="sli-txt-box" style="`+boxStyle+`">`+inner+`</div></div>`)
		return res.Document.Slides[0].Shapes[0].(*TextShape).Paragraphs
	}

	got := paragraphs("", `<p><b>Hello</b><span> </span><i>World</i></p><p>  <span>a </span> <span> b</span>  </p><p> </p>`)
	want := []Paragraph{
		{Runs: []TextRun{{Text: "Hello", Bold: true}, {Text: " "}, {Text: "World", Italic: true}}},
		{Runs: []TextRun{{Text: "a "}, {Text: "b"}}},
		{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("collapsed paragraphs mismatch (-want +got):\n%s", diff)
	}

	got = paragraphs("white-space: pre-wrap", `<p><span> indented  twice</span><span> </span></p>`)
	want = []Paragraph{{Runs: []TextRun{{Text: " indented  twice"}, {Text: " "}}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("preserved paragraphs mismatch (-want +got):\n%s", diff)
	}
}

func TestDecomposeTextBoxDefaults(t *testing.T) {
	res := decompose(t, `<div class="sli-slide"><div class="sli-txt-box">hi</div></div>`)
	box := res.Document.Slides[0].Shapes[0].(*TextShape)
	assert.Equal(t, 10.5, box.FontSizePt)
	assert.Equal(t, ColorBlack, box.Color)
	assert.Equal(t, Pixel(100), box.Geometry.Width)
	assert.Equal(t, Pixel(30), box.Geometry.Height)
	assert.True(t, box.Fill.IsNone())
}

func TestDecomposeBackgrounds(t *testing.T) {
	tests := []struct {
		name  string
		attrs string
		want  Fill
	}{
		{"solid", `style="background-color: rgb(255, 0, 0)"`, SolidFill(ColorRed)},
		{"shorthand color", `style="background: navy"`, SolidFill("#000080")},
		{
			"gradient",
			`style="background: linear-gradient(180deg, #FF0000 0%, #0000FF 100%)"`,
			GradientFill(90, []GradientStop{{ColorRed, 0}, {ColorBlue, 100}}),
		},
		{
			"pattern",
			`data-pattern="dkGrid" style="background-color: #FFFFFF; background-image: repeating-linear-gradient(90deg, #000000 0%, #000000 50%, #FFFFFF 50%, #FFFFFF 100%)"`,
			PatternFill(ColorBlack, ColorWhite, "dkGrid"),
		},
		{
			"pattern without name",
			`style="background-image: repeating-linear-gradient(45deg, red 0%, blue 100%)"`,
			PatternFill(ColorRed, ColorBlue, PatternNone),
		},
		{"missing", ``, SolidFill(ColorWhite)},
		{"transparent", `style="background-color: transparent"`, SolidFill(ColorWhite)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := decompose(t, `<div class="sli-slide" `+tt.attrs+`></div>`)
			assert.Equal(t, tt.want, res.Document.Slides[0].Background)
		})
	}
}

func TestDecomposeUnknownPatternReports(t *testing.T) {
	res := decompose(t, `<div class="sli-slide" data-pattern="plaid" style="background-color: #fff; background-image: repeating-linear-gradient(0deg, #000 0%, #fff 100%)"></div>`)
	assert.Equal(t, PatternNone, res.Document.Slides[0].Background.Pattern)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, DiagUnsupportedConstruct, res.Diagnostics[0].Kind)
	assert.Equal(t, 1, res.Diagnostics[0].Slide)
}

func TestDecomposeConsultsOracle(t *testing.T) {
	oracle := &fakeOracle{styles: []ComputedStyle{
		{Background: "rgb(0, 0, 255) none repeat scroll 0% 0% / auto padding-box border-box", BackgroundColor: "rgb(0, 0, 255)"},
		{Background: "linear-gradient(90deg, rgb(255, 0, 0) 0%, rgb(0, 0, 255) 100%)", BackgroundColor: "rgba(0, 0, 0, 0)"},
	}}
	res := decompose(t, `<div class="sli-slide"></div><div class="sli-slide"></div>`, WithStyleOracle(oracle))
	assert.EqualValues(t, 1, oracle.calls.Load())
	assert.Equal(t, SolidFill(ColorBlue), res.Document.Slides[0].Background)
	assert.Equal(t, GradientFill(0, []GradientStop{{ColorRed, 0}, {ColorBlue, 100}}), res.Document.Slides[1].Background)

	inline := &fakeOracle{}
	decompose(t, `<div class="sli-slide" style="background-color: red"></div>`, WithStyleOracle(inline))
	assert.Zero(t, inline.calls.Load())
}

func TestDecomposeOracleFailureDegrades(t *testing.T) {
	oracle := &fakeOracle{err: errors.New("browser gone")}
	res := decompose(t, `<div class="sli-slide"></div>`, WithStyleOracle(oracle))
	assert.Equal(t, SolidFill(ColorWhite), res.Document.Slides[0].Background)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, DiagCollaboratorFailure, res.Diagnostics[0].Kind)
}

func TestDecomposeImages(t *testing.T) {
	store := &mapStore{images: map[string][]byte{"abc.png": testPNG()}}
	res := decompose(t, `<div class="sli-slide" style="background-image: url('/api/slides/images/missing.png')">`+
		`<img src="/api/slides/images/abc.png" data-shape-id="4" style="left: 10px; top: 10px; width: 50px; height: 40px; opacity: 0.5; border: 2px solid #0000ff; box-shadow: 3px 4px 5px #333333; z-index: 2">`+
		`<img src="data:image/gif;base64,R0lGODlhAQABAAAAACw=" style="z-index: 1">`+
		`<img src="https://example.com/x.png" style="z-index: 3">`+
		`<img style="z-index: 4">`+
		`</div>`, WithImageStore(store, ""))

	slide := res.Document.Slides[0]
	assert.Equal(t, SolidFill(ColorWhite), slide.Background, "unfetchable background image degrades to white")
	pics := slide.Pictures()
	require.Len(t, pics, 2)

	assert.Equal(t, "image/gif", pics[0].Image.MIME)
	assert.Equal(t, Pixel(100), pics[0].Geometry.Width)

	p := pics[1]
	assert.Equal(t, 4, p.ID)
	assert.Equal(t, testPNG(), p.Image.Data)
	assert.Equal(t, "image/png", p.Image.MIME)
	assert.Equal(t, 0.5, p.Opacity)
	assert.Equal(t, Pixel(2), p.BorderWidth)
	assert.Equal(t, ColorBlue, p.BorderColor)
	assert.Equal(t, &Shadow{OffsetX: Pixel(3), OffsetY: Pixel(4), Color: "#333333"}, p.Shadow)

	kinds := map[DiagnosticKind]int{}
	for _, d := range res.Diagnostics {
		kinds[d.Kind]++
	}
	assert.Equal(t, map[DiagnosticKind]int{
		DiagCollaboratorFailure: 1,
		DiagUnresolvedReference: 2,
	}, kinds)
}

func TestDecomposeVector(t *testing.T) {
	res := decompose(t, `<div class="sli-slide"><div class="sli-svg-container" data-shape-id="7" style="left: 0; top: 0; width: 20px; height: 20px">`+
		`<svg viewBox="0 0 10 10"><rect width="10" height="10"></rect></svg></div>`+
		`<div class="sli-svg-container"></div></div>`)
	slide := res.Document.Slides[0]
	require.Len(t, slide.Shapes, 1)
	v := slide.Shapes[0].(*VectorShape)
	assert.Equal(t, 7, v.ID)
	assert.Contains(t, v.Markup, `<rect width="10" height="10">`)
	require.Len(t, res.Diagnostics, 1)
}

func TestDecomposeSlideSize(t *testing.T) {
	res := decompose(t, `<div class="sli-slide" style="width: 1280px; height: 720px"></div>`)
	assert.Equal(t, Pixel(1280), res.Document.SlideWidth)
	assert.Equal(t, Pixel(720), res.Document.SlideHeight)

	res = decompose(t, `<div class="sli-slide"></div>`, WithSlideSize(800, 600))
	assert.Equal(t, Pixel(800), res.Document.SlideWidth)
	assert.Equal(t, Pixel(600), res.Document.SlideHeight)

	res = decompose(t, `<div class="sli-slide"></div>`)
	assert.Equal(t, DefaultSlideWidth, res.Document.SlideWidth)
}

func TestDecomposeNestedSlidesAndOrder(t *testing.T) {
	res := decompose(t, `<body><section><div class="sli-slide" data-slide-index="1"><div class="sli-slide">inner</div></div></section>`+
		`<div class="other sli-slide"></div></body>`)
	require.Len(t, res.Document.Slides, 2)
	assert.Equal(t, 1, res.Document.Slides[0].Index)
	assert.Equal(t, 2, res.Document.Slides[1].Index)
	assert.Empty(t, res.Document.Slides[0].Shapes)
}

func TestDecomposeWithoutSlides(t *testing.T) {
	_, err := NewDecomposer().Decompose(context.Background(), `<p>nothing here</p>`)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedInput)
}
