// Package pptxhtml converts between OOXML presentation packages (.pptx) and
// an editable HTML rendering of their slides, in both directions.
//
// The forward direction resolves each slide's effective appearance (theme
// colors, background fills, shape geometry and text runs) into a canonical
// Slide and renders it as positioned boxes. The reverse direction parses an
// edited rendering back into canonical Slides, which PPTXWriter serializes
// into a new package.
//
// See the Version variable for the current library version.
package pptxhtml

// Default slide size: 10in x 7.5in, which renders as 960x720 px.
const (
	DefaultSlideWidth  int64 = 9144000
	DefaultSlideHeight int64 = 6858000
)

// CanonicalDocument is the format-neutral form of a presentation exchanged
// between the converters and the package adapters.
type CanonicalDocument struct {
	SlideWidth  int64    `yaml:"slideWidth"`
	SlideHeight int64    `yaml:"slideHeight"`
	Slides      []*Slide `yaml:"slides"`
}

// NewDocument creates an empty document with the default slide size.
func NewDocument() *CanonicalDocument {
	return &CanonicalDocument{
		SlideWidth:  DefaultSlideWidth,
		SlideHeight: DefaultSlideHeight,
	}
}

// GetSlideCount returns the number of slides.
func (d *CanonicalDocument) GetSlideCount() int {
	return len(d.Slides)
}

// Slide is one slide: a background and its shapes in paint order, lowest first.
type Slide struct {
	Index      int     `yaml:"index"`
	Background Fill    `yaml:"background"`
	Shapes     []Shape `yaml:"shapes"`
}

// TextShapes returns the slide's text shapes in paint order.
func (s *Slide) TextShapes() []*TextShape {
	var out []*TextShape
	for _, sh := range s.Shapes {
		if t, ok := sh.(*TextShape); ok {
			out = append(out, t)
		}
	}
	return out
}

// Pictures returns the slide's picture shapes in paint order.
func (s *Slide) Pictures() []*PictureShape {
	var out []*PictureShape
	for _, sh := range s.Shapes {
		if p, ok := sh.(*PictureShape); ok {
			out = append(out, p)
		}
	}
	return out
}
