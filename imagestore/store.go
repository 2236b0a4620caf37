// Package imagestore keeps image content extracted from slide packages behind
// opaque handles, so rendered markup can reference images by URL.
package imagestore

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	pptxhtml "github.com/VantageDataChat/GoPPTHTML"
)

// Store is the handle-based image store used by the server and CLI.
type Store interface {
	pptxhtml.ImageStore
	Close() error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)

// maxImageSize bounds what a store accepts.
const maxImageSize = 50 << 20

var extensions = map[string]string{
	"image/png":     "png",
	"image/jpeg":    "jpg",
	"image/gif":     "gif",
	"image/bmp":     "bmp",
	"image/tiff":    "tiff",
	"image/webp":    "webp",
	"image/svg+xml": "svg",
	"image/x-emf":   "emf",
	"image/x-wmf":   "wmf",
}

// DetectMIME sniffs the image format of data. Vector formats are recognised
// by their markup; raster formats by decoding the image header.
func DetectMIME(data []byte) string {
	head := bytes.TrimSpace(data[:min(len(data), 512)])
	if bytes.HasPrefix(head, []byte("<svg")) || (bytes.HasPrefix(head, []byte("<?xml")) && bytes.Contains(head, []byte("<svg"))) {
		return "image/svg+xml"
	}
	if len(data) >= 4 && data[0] == 0x01 && data[1] == 0 && data[2] == 0 && data[3] == 0 {
		return "image/x-emf"
	}
	if len(data) >= 4 && bytes.Equal(data[:4], []byte{0xd7, 0xcd, 0xc6, 0x9a}) {
		return "image/x-wmf"
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "application/octet-stream"
	}
	return "image/" + format
}

// newHandle returns a fresh handle whose extension follows the MIME type.
func newHandle(mime string) string {
	id := uuid.NewString()
	if ext, ok := extensions[mime]; ok {
		return id + "." + ext
	}
	return id
}

// prepare validates content before it is stored and settles its MIME type.
func prepare(data []byte, mime string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty image")
	}
	if len(data) > maxImageSize {
		return "", fmt.Errorf("image too large: %d bytes (max %d)", len(data), maxImageSize)
	}
	if mime == "" || mime == "application/octet-stream" {
		mime = DetectMIME(data)
	}
	return mime, nil
}

func checkHandle(handle string) error {
	if handle == "" || strings.ContainsAny(handle, `/\`) || strings.Contains(handle, "..") {
		return fmt.Errorf("invalid image handle %q: %w", handle, pptxhtml.ErrNotFound)
	}
	return nil
}

func notFound(handle string) error {
	return fmt.Errorf("image %q: %w", handle, pptxhtml.ErrNotFound)
}

// Open returns the store for a configured backend.
func Open(ctx context.Context, backend, sqlitePath string) (Store, error) {
	switch backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return OpenSQLite(ctx, sqlitePath)
	default:
		return nil, fmt.Errorf("unknown image backend %q", backend)
	}
}
