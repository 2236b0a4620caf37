package pptxhtml

import (
	"fmt"
	"strings"
)

// Validate checks a canonical document for structural issues and returns an
// error describing all problems found, or nil if the document is valid.
// Errors wrap ErrMalformedInput.
func Validate(doc *CanonicalDocument) error {
	if doc == nil {
		return malformed("", "document is nil")
	}
	var errs []string

	if doc.SlideWidth <= 0 {
		errs = append(errs, "slide width must be positive")
	}
	if doc.SlideHeight <= 0 {
		errs = append(errs, "slide height must be positive")
	}
	if len(doc.Slides) == 0 {
		errs = append(errs, "document must have at least one slide")
	}

	for i, slide := range doc.Slides {
		prefix := fmt.Sprintf("slide %d", i+1)
		if slide == nil {
			errs = append(errs, prefix+": slide is nil")
			continue
		}
		if e := validateFill(slide.Background); e != "" {
			errs = append(errs, prefix+": background: "+e)
		}
		for _, e := range validateSlide(slide) {
			errs = append(errs, prefix+": "+e)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return malformed("", "validation failed:\n  "+strings.Join(errs, "\n  "))
}

func validateSlide(s *Slide) []string {
	var errs []string
	for j, shape := range s.Shapes {
		prefix := fmt.Sprintf("shape %d", j+1)
		if shape == nil {
			errs = append(errs, prefix+": shape is nil")
			continue
		}
		g := shape.GetGeometry()
		if g.Width < 0 {
			errs = append(errs, prefix+": width is negative")
		}
		if g.Height < 0 {
			errs = append(errs, prefix+": height is negative")
		}

		switch sh := shape.(type) {
		case *TextShape:
			if sh.Color != Unresolved && !sh.Color.IsResolved() {
				errs = append(errs, prefix+": text color is invalid")
			}
			if sh.FontSizePt < 0 {
				errs = append(errs, prefix+": font size is negative")
			}
			if e := validateFill(sh.Fill); e != "" {
				errs = append(errs, prefix+": fill: "+e)
			}
			errs = append(errs, validateParagraphs(sh.Paragraphs, prefix)...)
		case *PictureShape:
			if sh.Image.IsZero() {
				errs = append(errs, prefix+": picture has no image")
			}
			if sh.Image.MIME != "" && !isValidImageMime(sh.Image.MIME) {
				errs = append(errs, prefix+": unsupported image MIME type: "+sh.Image.MIME)
			}
			if sh.Opacity < 0 || sh.Opacity > 1 {
				errs = append(errs, prefix+": opacity out of range")
			}
		case *VectorShape:
			if strings.TrimSpace(sh.Markup) == "" {
				errs = append(errs, prefix+": vector shape has no markup")
			}
		}
	}
	return errs
}

// validateParagraphs checks run colors and sizes.
func validateParagraphs(paragraphs []Paragraph, prefix string) []string {
	var errs []string
	for i, para := range paragraphs {
		for k, r := range para.Runs {
			if r.FontSizePt < 0 {
				errs = append(errs, fmt.Sprintf("%s: paragraph %d run %d has negative font size", prefix, i+1, k+1))
			}
			if r.Color.Kind == ColorRefDirect && !r.Color.Value.IsResolved() {
				errs = append(errs, fmt.Sprintf("%s: paragraph %d run %d has invalid color", prefix, i+1, k+1))
			}
		}
	}
	return errs
}

func validateFill(f Fill) string {
	switch f.Type {
	case FillGradient:
		if len(f.Stops) < 2 {
			return "gradient needs at least two stops"
		}
	case FillSolid:
		if !f.Color.IsResolved() {
			return "solid fill color is invalid"
		}
	}
	return ""
}

// isValidImageMime checks if a MIME type is a supported image format.
func isValidImageMime(mime string) bool {
	switch mime {
	case "image/png", "image/jpeg", "image/gif", "image/bmp", "image/svg+xml",
		"image/tiff", "image/webp", "image/x-emf", "image/x-wmf":
		return true
	}
	return false
}
