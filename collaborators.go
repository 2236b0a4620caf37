package pptxhtml

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"strings"
)

// ImageStore keeps image content behind opaque handles.
type ImageStore interface {
	// Store saves data and returns a handle. mime may be empty, in which case
	// the store sniffs the content.
	Store(ctx context.Context, data []byte, mime string) (string, error)
	// Fetch returns the content and MIME type behind a handle.
	Fetch(ctx context.Context, handle string) ([]byte, string, error)
}

// PackageWriter serializes a canonical document into package bytes.
type PackageWriter interface {
	Write(ctx context.Context, doc *CanonicalDocument) (*WriteResult, error)
}

// ComputedStyle is the subset of a rendered slide container's computed style
// the reverse converter reads.
type ComputedStyle struct {
	Background      string `json:"background"`
	BackgroundColor string `json:"backgroundColor"`
}

// StyleOracle computes the effective style of each slide container in a
// markup document, in document order.
type StyleOracle interface {
	ComputeStyles(ctx context.Context, markup string) ([]ComputedStyle, error)
}

// DefaultImageURLPrefix is the path under which store handles are served.
const DefaultImageURLPrefix = "/api/slides/images/"

// ImageResolver turns an image part of the package being converted into the
// reference markup will carry.
type ImageResolver interface {
	ResolveImage(ctx context.Context, conv *Conversion, part string) (ImageRef, error)
}

// StoreImages uploads image parts to an ImageStore and references them by
// handle URL.
type StoreImages struct {
	Store     ImageStore
	URLPrefix string
}

func (s StoreImages) ResolveImage(ctx context.Context, conv *Conversion, part string) (ImageRef, error) {
	data, err := conv.Raw(part)
	if err != nil {
		return ImageRef{}, err
	}
	mime := guessMimeType(path.Base(part))
	if mime == "application/octet-stream" {
		mime = ""
	}
	handle, err := s.Store.Store(ctx, data, mime)
	if err != nil {
		return ImageRef{}, collaboratorFailure(part, "image store rejected image", err)
	}
	prefix := s.URLPrefix
	if prefix == "" {
		prefix = DefaultImageURLPrefix
	}
	return ImageRef{URI: prefix + handle, MIME: mime}, nil
}

// InlineImages embeds image parts as data URIs.
type InlineImages struct{}

func (InlineImages) ResolveImage(_ context.Context, conv *Conversion, part string) (ImageRef, error) {
	data, err := conv.Raw(part)
	if err != nil {
		return ImageRef{}, err
	}
	mime := guessMimeType(path.Base(part))
	return ImageRef{URI: dataURI(mime, data), MIME: mime}, nil
}

func dataURI(mime string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data))
}

// decodeDataURI splits a base64 data URI into MIME type and content.
func decodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URI")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("data URI has no payload")
	}
	mime, params, _ := strings.Cut(header, ";")
	if !strings.Contains(params, "base64") {
		return mime, []byte(payload), nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data URI: %w", err)
	}
	return mime, data, nil
}
