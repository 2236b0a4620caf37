package pptxhtml

// Shape is the interface that all canonical shapes implement.
type Shape interface {
	GetType() ShapeType
	GetID() int
	GetGeometry() Geometry
}

// ShapeType represents the type of shape.
type ShapeType string

const (
	ShapeTypeText    ShapeType = "text"
	ShapeTypePicture ShapeType = "picture"
	ShapeTypeVector  ShapeType = "vector"
)

// Geometry is a shape's frame in EMU plus its rotation (degrees, clockwise)
// and flips. Conversion to pixels happens only when markup is rendered.
type Geometry struct {
	X        int64   `yaml:"x"`
	Y        int64   `yaml:"y"`
	Width    int64   `yaml:"width"`
	Height   int64   `yaml:"height"`
	Rotation float64 `yaml:"rotation,omitempty"`
	FlipH    bool    `yaml:"flipH,omitempty"`
	FlipV    bool    `yaml:"flipV,omitempty"`
}

// TextAlign is the horizontal alignment of a text box.
type TextAlign string

const (
	AlignLeft    TextAlign = "left"
	AlignCenter  TextAlign = "center"
	AlignRight   TextAlign = "right"
	AlignJustify TextAlign = "justify"
)

// TextAnchor is the vertical anchoring of text inside its box.
type TextAnchor string

const (
	AnchorTop    TextAnchor = "top"
	AnchorMiddle TextAnchor = "middle"
	AnchorBottom TextAnchor = "bottom"
)

// TextShape is an absolutely positioned, editable text box.
// FontSizePt, Color and FontFamily are the box defaults; runs override them
// only where they carry an explicit value.
type TextShape struct {
	ID         int         `yaml:"id"`
	Geometry   Geometry    `yaml:"geometry"`
	Paragraphs []Paragraph `yaml:"paragraphs"`
	FontSizePt float64     `yaml:"fontSizePt"`
	Color      Color       `yaml:"color"`
	FontFamily string      `yaml:"fontFamily,omitempty"`
	Align      TextAlign   `yaml:"align"`
	Anchor     TextAnchor  `yaml:"anchor"`
	Fill       Fill        `yaml:"fill"`
}

func (s *TextShape) GetType() ShapeType    { return ShapeTypeText }
func (s *TextShape) GetID() int            { return s.ID }
func (s *TextShape) GetGeometry() Geometry { return s.Geometry }

// Paragraph is an ordered list of runs. Bullet paragraphs are grouped into
// lists when rendered.
type Paragraph struct {
	Runs   []TextRun `yaml:"runs"`
	Bullet bool      `yaml:"bullet,omitempty"`
}

// TextRun is a span of text with uniform formatting. Zero-valued FontFamily,
// FontSizePt and Color inherit the text box defaults.
type TextRun struct {
	Text       string   `yaml:"text"`
	Bold       bool     `yaml:"bold,omitempty"`
	Italic     bool     `yaml:"italic,omitempty"`
	Underline  bool     `yaml:"underline,omitempty"`
	FontFamily string   `yaml:"fontFamily,omitempty"`
	FontSizePt float64  `yaml:"fontSizePt,omitempty"`
	Color      ColorRef `yaml:"color,omitempty"`
}

// ParagraphGroup is a run of consecutive paragraphs that render together:
// either one bullet list or a sequence of plain paragraphs.
type ParagraphGroup struct {
	List       bool
	Paragraphs []Paragraph
}

// GroupParagraphs groups consecutive bullet paragraphs into lists. A
// non-bullet paragraph, even an empty one, closes any open list.
func GroupParagraphs(paragraphs []Paragraph) []ParagraphGroup {
	var groups []ParagraphGroup
	for _, p := range paragraphs {
		n := len(groups)
		if n > 0 && groups[n-1].List == p.Bullet {
			groups[n-1].Paragraphs = append(groups[n-1].Paragraphs, p)
			continue
		}
		groups = append(groups, ParagraphGroup{List: p.Bullet, Paragraphs: []Paragraph{p}})
	}
	return groups
}

// ImageRef points at image content. URI is what markup carries (an image-store
// handle URL, a data URI or a package-relative target); Data and MIME are
// filled once the content has been fetched.
type ImageRef struct {
	URI  string `yaml:"uri"`
	MIME string `yaml:"mime,omitempty"`
	Data []byte `yaml:"-"`
}

// IsZero reports whether the reference points at nothing.
func (r ImageRef) IsZero() bool {
	return r.URI == "" && len(r.Data) == 0
}

// Shadow is an outer drop shadow offset in EMU.
type Shadow struct {
	OffsetX int64 `yaml:"offsetX"`
	OffsetY int64 `yaml:"offsetY"`
	Color   Color `yaml:"color"`
}

// PictureShape is a raster or referenced image.
type PictureShape struct {
	ID          int      `yaml:"id"`
	Geometry    Geometry `yaml:"geometry"`
	Opacity     float64  `yaml:"opacity"`
	BorderWidth int64    `yaml:"borderWidth,omitempty"`
	BorderColor Color    `yaml:"borderColor,omitempty"`
	Shadow      *Shadow  `yaml:"shadow,omitempty"`
	Image       ImageRef `yaml:"image"`
}

func (s *PictureShape) GetType() ShapeType    { return ShapeTypePicture }
func (s *PictureShape) GetID() int            { return s.ID }
func (s *PictureShape) GetGeometry() Geometry { return s.Geometry }

// VectorShape is an embedded vector asset carried as raw SVG markup.
type VectorShape struct {
	ID       int      `yaml:"id"`
	Geometry Geometry `yaml:"geometry"`
	Markup   string   `yaml:"markup"`
}

func (s *VectorShape) GetType() ShapeType    { return ShapeTypeVector }
func (s *VectorShape) GetID() int            { return s.ID }
func (s *VectorShape) GetGeometry() Geometry { return s.Geometry }
