package pptxhtml

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// PackageReader gives the converters access to a package's parts.
type PackageReader interface {
	ListEntries() []string
	ReadEntry(name string) (*Node, error)
	ReadRaw(name string) ([]byte, error)
}

// maxZipEntrySize is the maximum allowed size for a single file extracted from a ZIP.
// This prevents zip bomb attacks. 50 MB is generous for any legitimate PPTX part.
const maxZipEntrySize = 50 << 20 // 50 MB

// maxZipTotalSize is the cumulative limit for all extracted content from a single ZIP.
const maxZipTotalSize = 200 << 20 // 200 MB

// maxZipEntries is the maximum number of files allowed in a ZIP archive.
const maxZipEntries = 10000

// Well-known part paths.
const (
	presentationPath  = "ppt/presentation.xml"
	defaultMasterPath = "ppt/slideMasters/slideMaster1.xml"
	defaultThemePath  = "ppt/theme/theme1.xml"
)

// ZipPackage is a PackageReader over a .pptx archive. It is safe for
// concurrent use.
type ZipPackage struct {
	files map[string]*zip.File
	names []string

	mu        sync.Mutex
	extracted int64
}

// OpenPackage opens a package from a file path. The file is read fully into memory.
func OpenPackage(name string) (*ZipPackage, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() > int64(maxZipTotalSize) {
		return nil, fmt.Errorf("file size %d exceeds maximum allowed (%d bytes)", info.Size(), maxZipTotalSize)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ReadPackage(bytes.NewReader(data), int64(len(data)))
}

// ReadPackage opens a package from an io.ReaderAt.
func ReadPackage(reader io.ReaderAt, size int64) (*ZipPackage, error) {
	if size <= 0 {
		return nil, malformed("", fmt.Sprintf("invalid reader size: %d", size))
	}
	if size > int64(maxZipTotalSize) {
		return nil, malformed("", fmt.Sprintf("file size %d exceeds maximum allowed (%d bytes)", size, maxZipTotalSize))
	}

	zr, err := zip.NewReader(reader, size)
	if err != nil {
		return nil, &ConversionError{Kind: ErrMalformedInput, Msg: "failed to open zip", Err: err}
	}
	if len(zr.File) > maxZipEntries {
		return nil, malformed("", fmt.Sprintf("zip archive contains too many entries (%d > %d)", len(zr.File), maxZipEntries))
	}

	p := &ZipPackage{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		p.files[f.Name] = f
		p.names = append(p.names, f.Name)
	}
	sort.Strings(p.names)
	return p, nil
}

// ListEntries returns the names of all parts, sorted.
func (p *ZipPackage) ListEntries() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// ReadRaw returns the bytes of a part. Missing parts yield an error wrapping ErrNotFound.
func (p *ZipPackage) ReadRaw(name string) ([]byte, error) {
	f, ok := p.files[name]
	if !ok {
		return nil, fmt.Errorf("file not found in zip: %s: %w", name, ErrNotFound)
	}
	if f.UncompressedSize64 > maxZipEntrySize {
		return nil, fmt.Errorf("file %s exceeds maximum allowed size (%d bytes)", name, maxZipEntrySize)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s in zip: %w", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, int64(maxZipEntrySize)+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from zip: %w", name, err)
	}
	if int64(len(data)) > int64(maxZipEntrySize) {
		return nil, fmt.Errorf("file %s actual size exceeds maximum allowed size", name)
	}

	p.mu.Lock()
	p.extracted += int64(len(data))
	total := p.extracted
	p.mu.Unlock()
	if total > int64(maxZipTotalSize) {
		return nil, fmt.Errorf("cumulative extracted size exceeds maximum allowed (%d bytes)", maxZipTotalSize)
	}
	return data, nil
}

// ReadEntry parses a part as XML.
func (p *ZipPackage) ReadEntry(name string) (*Node, error) {
	data, err := p.ReadRaw(name)
	if err != nil {
		return nil, err
	}
	n, err := ParseXMLBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return n, nil
}

// --- Relationships ---

// Relationship is one entry of a .rels part.
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

type xmlRelsForRead struct {
	XMLName       xml.Name       `xml:"Relationships"`
	Relationships []Relationship `xml:"Relationship"`
}

// Relationships is the parsed .rels part of a source part.
type Relationships struct {
	Source string
	Items  []Relationship
}

// ParseRelationships parses a .rels part belonging to the part at source.
func ParseRelationships(data []byte, source string) (*Relationships, error) {
	var rels xmlRelsForRead
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, fmt.Errorf("failed to parse relationships of %s: %w", source, err)
	}
	return &Relationships{Source: source, Items: rels.Relationships}, nil
}

// ReadRelationships loads the relationships of a part. A missing .rels part
// is not an error: it yields an empty set.
func ReadRelationships(pkg PackageReader, source string) (*Relationships, error) {
	data, err := pkg.ReadRaw(RelsPathFor(source))
	if errors.Is(err, ErrNotFound) {
		return &Relationships{Source: source}, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseRelationships(data, source)
}

// Resolve returns the raw target of a relationship id.
func (r *Relationships) Resolve(id string) (string, bool) {
	if r == nil || id == "" {
		return "", false
	}
	for _, rel := range r.Items {
		if rel.ID == id {
			return rel.Target, rel.Target != ""
		}
	}
	return "", false
}

// ResolvePart returns the package path a relationship id points at.
// External targets are returned unchanged.
func (r *Relationships) ResolvePart(id string) (string, bool) {
	if r == nil || id == "" {
		return "", false
	}
	for _, rel := range r.Items {
		if rel.ID != id || rel.Target == "" {
			continue
		}
		if rel.TargetMode == "External" {
			return rel.Target, true
		}
		return ResolveTarget(path.Dir(r.Source), rel.Target), true
	}
	return "", false
}

// FirstOfType returns the package path of the first relationship whose type ends with suffix.
func (r *Relationships) FirstOfType(suffix string) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, rel := range r.Items {
		if strings.HasSuffix(rel.Type, suffix) {
			return r.ResolvePart(rel.ID)
		}
	}
	return "", false
}

// ResolveRelationship resolves id against rels, returning ErrNotFound when it does not resolve.
func ResolveRelationship(rels *Relationships, id string) (string, error) {
	target, ok := rels.ResolvePart(id)
	if !ok {
		return "", fmt.Errorf("relationship %q: %w", id, ErrNotFound)
	}
	return target, nil
}

// RelsPathFor returns the relationship part of a part: dir/name.ext -> dir/_rels/name.ext.rels.
func RelsPathFor(name string) string {
	dir, file := path.Split(name)
	return dir + "_rels/" + file + ".rels"
}

// ResolveTarget resolves a relationship target against the directory of its source part.
// The result never escapes the package root.
func ResolveTarget(base, rel string) string {
	if strings.HasPrefix(rel, "/") {
		return strings.TrimPrefix(path.Clean(rel), "/")
	}

	result := make([]string, 0, 8)
	if base != "" && base != "." {
		result = append(result, strings.Split(base, "/")...)
	}
	for _, part := range strings.Split(rel, "/") {
		switch part {
		case "..":
			if len(result) > 0 {
				result = result[:len(result)-1]
			}
		case ".", "":
		default:
			result = append(result, part)
		}
	}
	return strings.Join(result, "/")
}

// --- Part discovery ---

// partSource is what part discovery reads: parsed parts, relationships and
// the part list. A Conversion serves them from its memo.
type partSource interface {
	Entry(name string) (*Node, error)
	Relationships(source string) (*Relationships, error)
	ListEntries() []string
}

// packageParts reads straight from a package, without memoization.
type packageParts struct{ pkg PackageReader }

func (p packageParts) Entry(name string) (*Node, error) { return p.pkg.ReadEntry(name) }
func (p packageParts) ListEntries() []string            { return p.pkg.ListEntries() }

func (p packageParts) Relationships(source string) (*Relationships, error) {
	return ReadRelationships(p.pkg, source)
}

// SlidePaths returns slide part paths in presentation order. The order comes
// from p:sldIdLst; packages without one fall back to ppt/slides/slideN.xml
// sorted by N.
func SlidePaths(pkg PackageReader) ([]string, error) {
	return slidePaths(packageParts{pkg})
}

func slidePaths(src partSource) ([]string, error) {
	if pres, err := src.Entry(presentationPath); err == nil {
		rels, err := src.Relationships(presentationPath)
		if err != nil {
			return nil, err
		}
		var out []string
		for _, id := range pres.Path("p:sldIdLst").ChildrenNamed("p:sldId") {
			if target, ok := rels.ResolvePart(id.Attr("r:id")); ok {
				out = append(out, target)
			}
		}
		if len(out) > 0 {
			return out, nil
		}
	}

	type numbered struct {
		name string
		n    int
	}
	var found []numbered
	for _, name := range src.ListEntries() {
		if !strings.HasPrefix(name, "ppt/slides/slide") || !strings.HasSuffix(name, ".xml") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "ppt/slides/slide"), ".xml"))
		if err != nil {
			continue
		}
		found = append(found, numbered{name, n})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })
	out := make([]string, len(found))
	for i, f := range found {
		out[i] = f.name
	}
	return out, nil
}

// MasterPathFor follows slide -> layout -> master relationships, falling back
// to the first master of the package.
func MasterPathFor(pkg PackageReader, slideRels *Relationships) string {
	return masterPathFor(packageParts{pkg}, slideRels)
}

func masterPathFor(src partSource, slideRels *Relationships) string {
	if layout, ok := slideRels.FirstOfType("/slideLayout"); ok {
		if layoutRels, err := src.Relationships(layout); err == nil {
			if master, ok := layoutRels.FirstOfType("/slideMaster"); ok {
				return master
			}
		}
	}
	return defaultMasterPath
}

// ThemePathFor follows the master -> theme relationship, falling back to the first theme.
func ThemePathFor(pkg PackageReader, masterPath string) string {
	return themePathFor(packageParts{pkg}, masterPath)
}

func themePathFor(src partSource, masterPath string) string {
	if rels, err := src.Relationships(masterPath); err == nil {
		if theme, ok := rels.FirstOfType("/theme"); ok {
			return theme
		}
	}
	return defaultThemePath
}

// SlideSize reads p:sldSz from the presentation part, defaulting to 10in x 7.5in.
func SlideSize(pkg PackageReader) (int64, int64) {
	return slideSize(packageParts{pkg})
}

func slideSize(src partSource) (int64, int64) {
	pres, err := src.Entry(presentationPath)
	if err != nil {
		return DefaultSlideWidth, DefaultSlideHeight
	}
	sz := pres.Child("p:sldSz")
	cx := sz.IntAttr("cx", DefaultSlideWidth)
	cy := sz.IntAttr("cy", DefaultSlideHeight)
	if cx <= 0 || cy <= 0 {
		return DefaultSlideWidth, DefaultSlideHeight
	}
	return cx, cy
}

// guessMimeType maps a part name to its image MIME type by extension.
func guessMimeType(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".gif"):
		return "image/gif"
	case strings.HasSuffix(lower, ".bmp"):
		return "image/bmp"
	case strings.HasSuffix(lower, ".svg"):
		return "image/svg+xml"
	case strings.HasSuffix(lower, ".tiff"), strings.HasSuffix(lower, ".tif"):
		return "image/tiff"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	case strings.HasSuffix(lower, ".wmf"):
		return "image/x-wmf"
	case strings.HasSuffix(lower, ".emf"):
		return "image/x-emf"
	default:
		return "application/octet-stream"
	}
}
