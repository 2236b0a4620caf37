package pptxhtml

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// maxImageFileSize bounds a single embedded image.
const maxImageFileSize = 50 << 20

// PPTXWriter serializes canonical documents as .pptx packages. It holds no
// per-document state and may be shared.
type PPTXWriter struct {
	images    ImageStore
	urlPrefix string
	now       func() time.Time
}

// WriterOption configures a PPTXWriter.
type WriterOption func(*PPTXWriter)

// WithWriterImageStore lets the writer fetch images that are referenced by
// handle but carry no content yet.
func WithWriterImageStore(s ImageStore, urlPrefix string) WriterOption {
	return func(w *PPTXWriter) {
		w.images = s
		if urlPrefix != "" {
			w.urlPrefix = urlPrefix
		}
	}
}

// WithClock sets the time stamped into document properties.
func WithClock(now func() time.Time) WriterOption {
	return func(w *PPTXWriter) { w.now = now }
}

// NewPPTXWriter creates a writer.
func NewPPTXWriter(opts ...WriterOption) *PPTXWriter {
	w := &PPTXWriter{urlPrefix: DefaultImageURLPrefix, now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteResult is a written package and the problems recovered while writing it.
type WriteResult struct {
	Data        []byte
	Diagnostics []Diagnostic
}

// Write returns the package bytes of doc.
func (w *PPTXWriter) Write(ctx context.Context, doc *CanonicalDocument) (*WriteResult, error) {
	var buf bytes.Buffer
	diags, err := w.WriteTo(ctx, &buf, doc)
	if err != nil {
		return nil, err
	}
	return &WriteResult{Data: buf.Bytes(), Diagnostics: diags}, nil
}

// Save writes doc to a file.
func (w *PPTXWriter) Save(ctx context.Context, path string, doc *CanonicalDocument) ([]Diagnostic, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	diags, writeErr := w.WriteTo(ctx, f, doc)
	closeErr := f.Close()

	if writeErr != nil {
		os.Remove(path)
		return nil, writeErr
	}
	return diags, closeErr
}

// WriteTo writes the package of doc to out. Images that cannot be embedded
// are left out and reported.
func (w *PPTXWriter) WriteTo(ctx context.Context, out io.Writer, doc *CanonicalDocument) ([]Diagnostic, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}
	b := &packageBuild{writer: w, doc: doc, mediaByHash: map[[sha256.Size]byte]string{}}
	if err := b.plan(ctx); err != nil {
		return nil, err
	}

	zw := zip.NewWriter(out)
	steps := []func(*zip.Writer) error{
		b.writeContentTypes,
		b.writeRootRels,
		b.writeAppProperties,
		b.writeCoreProperties,
		b.writePresentation,
		b.writePresentationRels,
		b.writePresProps,
		b.writeViewProps,
		b.writeTableStyles,
		b.writeSlideMaster,
		b.writeSlideLayout,
		b.writeTheme,
		b.writeSlides,
		b.writeMedia,
	}
	for _, step := range steps {
		if err := step(zw); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Debug().Int("slides", len(doc.Slides)).Int("media", len(b.media)).Int("diagnostics", len(b.diags)).Msg("package written")
	return b.diags, nil
}

// mediaPart is one image stored under ppt/media.
type mediaPart struct {
	name string // e.g. image1.png
	mime string
	data []byte
}

// slidePlan is the relationship layout of one slide, fixed before any XML
// is written so shape markup and the .rels part agree.
type slidePlan struct {
	rels       []xmlRelationship
	background string
	blips      map[int]pictureRels // by shape position
}

type pictureRels struct {
	blip string
	svg  string
}

// packageBuild is the state of one WriteTo call.
type packageBuild struct {
	writer      *PPTXWriter
	doc         *CanonicalDocument
	slides      []slidePlan
	media       []mediaPart
	mediaByHash map[[sha256.Size]byte]string
	diags       []Diagnostic
}

// report records a dropped image. Fetch failures are collaborator
// failures; references with no content are unresolved.
func (b *packageBuild) report(slide int, subject string, err error) {
	kind := DiagUnresolvedReference
	if errors.Is(err, ErrCollaboratorFailure) {
		kind = DiagCollaboratorFailure
	}
	b.diags = append(b.diags, Diagnostic{Kind: kind, Slide: slide, Subject: subject, Message: err.Error()})
}

func (b *packageBuild) plan(ctx context.Context) error {
	log := zerolog.Ctx(ctx)
	b.slides = make([]slidePlan, len(b.doc.Slides))
	for i, s := range b.doc.Slides {
		p := slidePlan{
			rels: []xmlRelationship{
				{ID: "rId1", Type: relTypeSlideLayout, Target: "../slideLayouts/slideLayout1.xml"},
			},
			blips: map[int]pictureRels{},
		}
		addImage := func(mime string, data []byte) string {
			id := fmt.Sprintf("rId%d", len(p.rels)+1)
			p.rels = append(p.rels, xmlRelationship{ID: id, Type: relTypeImage, Target: "../media/" + b.addMedia(mime, data)})
			return id
		}

		if s.Background.Type == FillPicture {
			mime, data, err := b.imageContent(ctx, s.Background.Image)
			if err != nil {
				log.Warn().Err(err).Int("slide", i+1).Msg("background image dropped")
				b.report(i+1, "background", err)
			} else {
				p.background = addImage(mime, data)
			}
		}

		for j, shape := range s.Shapes {
			switch sh := shape.(type) {
			case *PictureShape:
				mime, data, err := b.imageContent(ctx, sh.Image)
				if err != nil {
					log.Warn().Err(err).Int("slide", i+1).Int("shape", sh.ID).Msg("picture dropped")
					b.report(i+1, "picture", err)
					continue
				}
				p.blips[j] = pictureRels{blip: addImage(mime, data)}
			case *VectorShape:
				fallback := addImage("image/png", transparentPNG)
				p.blips[j] = pictureRels{blip: fallback, svg: addImage("image/svg+xml", []byte(sh.Markup))}
			}
		}
		b.slides[i] = p
	}
	return nil
}

// imageContent returns the bytes behind an image reference: its data, a
// decoded data URI, or content fetched from the image store.
func (b *packageBuild) imageContent(ctx context.Context, ref ImageRef) (string, []byte, error) {
	var (
		mime = ref.MIME
		data = ref.Data
	)
	switch {
	case len(data) > 0:
	case strings.HasPrefix(ref.URI, "data:"):
		m, d, err := decodeDataURI(ref.URI)
		if err != nil {
			return "", nil, err
		}
		mime, data = m, d
	case b.writer.images != nil && strings.HasPrefix(ref.URI, b.writer.urlPrefix):
		d, m, err := b.writer.images.Fetch(ctx, strings.TrimPrefix(ref.URI, b.writer.urlPrefix))
		if err != nil {
			return "", nil, collaboratorFailure(ref.URI, "failed to fetch image", err)
		}
		mime, data = m, d
	default:
		return "", nil, fmt.Errorf("image %q has no content: %w", ref.URI, ErrUnresolvedReference)
	}
	if len(data) > maxImageFileSize {
		return "", nil, fmt.Errorf("image too large: %d bytes (max %d)", len(data), maxImageFileSize)
	}
	if mime == "" {
		mime = "image/png"
	}
	return mime, data, nil
}

// addMedia stores an image once per distinct content and returns its file name.
func (b *packageBuild) addMedia(mime string, data []byte) string {
	sum := sha256.Sum256(data)
	if name, ok := b.mediaByHash[sum]; ok {
		return name
	}
	name := fmt.Sprintf("image%d.%s", len(b.media)+1, imageExtension(mime))
	b.media = append(b.media, mediaPart{name: name, mime: mime, data: data})
	b.mediaByHash[sum] = name
	return name
}

func (b *packageBuild) writeMedia(zw *zip.Writer) error {
	for _, m := range b.media {
		fw, err := zw.Create("ppt/media/" + m.name)
		if err != nil {
			return err
		}
		if _, err := fw.Write(m.data); err != nil {
			return err
		}
	}
	return nil
}

// transparentPNG is a 1x1 transparent image used as the raster stand-in for
// vector pictures.
var transparentPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}
