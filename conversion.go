package pptxhtml

import (
	"sort"
	"sync"
)

// Conversion is the state of one conversion request: the package being read,
// a memo of parsed parts, and the diagnostics collected so far. It is safe
// for concurrent use by the per-slide workers of that request and must not
// be shared across requests.
type Conversion struct {
	pkg PackageReader

	mu    sync.Mutex
	parts map[string]*memoEntry
	rels  map[string]*relsEntry
	diags []Diagnostic
}

type memoEntry struct {
	once sync.Once
	node *Node
	err  error
}

type relsEntry struct {
	once sync.Once
	rels *Relationships
	err  error
}

// NewConversion starts a conversion over pkg. pkg may be nil for the reverse
// direction, which reads no package.
func NewConversion(pkg PackageReader) *Conversion {
	return &Conversion{
		pkg:   pkg,
		parts: make(map[string]*memoEntry),
		rels:  make(map[string]*relsEntry),
	}
}

// Entry returns a parsed part. Each part is parsed at most once per conversion.
func (c *Conversion) Entry(name string) (*Node, error) {
	c.mu.Lock()
	e, ok := c.parts[name]
	if !ok {
		e = &memoEntry{}
		c.parts[name] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		if c.pkg == nil {
			e.err = ErrNotFound
			return
		}
		e.node, e.err = c.pkg.ReadEntry(name)
	})
	return e.node, e.err
}

// Raw returns the bytes of a part. Binary parts are not memoized.
func (c *Conversion) Raw(name string) ([]byte, error) {
	if c.pkg == nil {
		return nil, ErrNotFound
	}
	return c.pkg.ReadRaw(name)
}

// Relationships returns the memoized relationships of a part.
func (c *Conversion) Relationships(source string) (*Relationships, error) {
	c.mu.Lock()
	e, ok := c.rels[source]
	if !ok {
		e = &relsEntry{}
		c.rels[source] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		if c.pkg == nil {
			e.rels = &Relationships{Source: source}
			return
		}
		e.rels, e.err = ReadRelationships(c.pkg, source)
	})
	return e.rels, e.err
}

// ListEntries returns the part names of the package.
func (c *Conversion) ListEntries() []string {
	if c.pkg == nil {
		return nil
	}
	return c.pkg.ListEntries()
}

// SlidePaths is SlidePaths over the memoized parts.
func (c *Conversion) SlidePaths() ([]string, error) {
	return slidePaths(c)
}

// SlideSize is SlideSize over the memoized parts.
func (c *Conversion) SlideSize() (int64, int64) {
	return slideSize(c)
}

// MasterPath is MasterPathFor over the memoized parts.
func (c *Conversion) MasterPath(slideRels *Relationships) string {
	return masterPathFor(c, slideRels)
}

// ThemePath is ThemePathFor over the memoized parts.
func (c *Conversion) ThemePath(masterPath string) string {
	return themePathFor(c, masterPath)
}

// Report records a diagnostic.
func (c *Conversion) Report(d Diagnostic) {
	c.mu.Lock()
	c.diags = append(c.diags, d)
	c.mu.Unlock()
}

// reporter returns a report function bound to one slide.
func (c *Conversion) reporter(slide int) func(kind DiagnosticKind, subject, msg string) {
	return func(kind DiagnosticKind, subject, msg string) {
		c.Report(Diagnostic{Kind: kind, Slide: slide, Subject: subject, Message: msg})
	}
}

// Diagnostics returns the collected diagnostics ordered by slide. Within a
// slide, the order of reporting is kept.
func (c *Conversion) Diagnostics() []Diagnostic {
	c.mu.Lock()
	out := make([]Diagnostic, len(c.diags))
	copy(out, c.diags)
	c.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Slide < out[j].Slide })
	return out
}
