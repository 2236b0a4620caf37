package imagestore

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	pptxhtml "github.com/VantageDataChat/GoPPTHTML"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	return img
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))
	return buf.Bytes()
}

func TestDetectMIME(t *testing.T) {
	var jpg, gf bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpg, testImage(), nil))
	require.NoError(t, gif.Encode(&gf, testImage(), nil))

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"png", testPNG(t), "image/png"},
		{"jpeg", jpg.Bytes(), "image/jpeg"},
		{"gif", gf.Bytes(), "image/gif"},
		{"svg", []byte(`<svg xmlns="http://www.w3.org/2000/svg"></svg>`), "image/svg+xml"},
		{"svg with prolog", []byte("<?xml version=\"1.0\"?>\n<svg></svg>"), "image/svg+xml"},
		{"unknown", []byte("not an image"), "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectMIME(tt.data))
		})
	}
}

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()
	data := testPNG(t)

	handle, err := s.Store(ctx, data, "")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(handle, ".png"), handle)

	got, mime, err := s.Fetch(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, data, got)

	other, err := s.Store(ctx, data, "image/png")
	require.NoError(t, err)
	assert.NotEqual(t, handle, other)

	_, _, err = s.Fetch(ctx, "missing.png")
	assert.ErrorIs(t, err, pptxhtml.ErrNotFound)

	_, _, err = s.Fetch(ctx, "../"+handle)
	assert.ErrorIs(t, err, pptxhtml.ErrNotFound)

	_, err = s.Store(ctx, nil, "image/png")
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	exerciseStore(t, s)
	assert.Equal(t, 2, s.Len())
	assert.NoError(t, s.Close())
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "images", "store.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Close())

	// Handles survive reopening the database.
	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	handle, err := s.Store(ctx, []byte("<svg></svg>"), "")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(handle, ".svg"), handle)

	n, err := s.Prune(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	_, _, err = s.Fetch(ctx, handle)
	assert.ErrorIs(t, err, pptxhtml.ErrNotFound)
}

func TestOpenBackends(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, "memory", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open(ctx, "sqlite", "")
	assert.Error(t, err)

	_, err = Open(ctx, "s3", "")
	assert.ErrorContains(t, err, "unknown image backend")
}
