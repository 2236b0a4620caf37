package pptxhtml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

// Node is one element of a parsed package part. Names keep the prefix used in
// the part ("p:sld", "a:srgbClr"); OOXML producers use the canonical prefixes,
// so lookups by prefixed name are stable.
//
// Every accessor is nil-safe: walking through a missing element yields a nil
// *Node, and reading from a nil *Node yields the zero value. "Absent" is
// therefore a single outcome callers check once, at the end of a path.
type Node struct {
	Name     string
	Attrs    map[string]string
	Children []*Node
	Text     string
}

// ParseXML parses an XML document into a Node tree and returns its root element.
func ParseXML(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	dec.Strict = false

	var root *Node
	var stack []*Node
	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: qualifiedName(t.Name)}
			if len(t.Attr) > 0 {
				n.Attrs = make(map[string]string, len(t.Attr))
				for _, a := range t.Attr {
					n.Attrs[qualifiedName(a.Name)] = a.Value
				}
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			} else if root == nil {
				root = n
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("failed to parse xml: %w", ErrMalformedInput)
	}
	return root, nil
}

// ParseXMLBytes is ParseXML over a byte slice.
func ParseXMLBytes(data []byte) (*Node, error) {
	return ParseXML(bytes.NewReader(data))
}

func qualifiedName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// Child returns the first child element with the given name, or nil.
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Path walks a chain of first-match child names.
func (n *Node) Path(names ...string) *Node {
	cur := n
	for _, name := range names {
		cur = cur.Child(name)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// ChildrenNamed returns all child elements with the given name, in document order.
func (n *Node) ChildrenNamed(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Elements returns all child elements in document order.
func (n *Node) Elements() []*Node {
	if n == nil {
		return nil
	}
	return n.Children
}

// Exists reports whether the node is present.
func (n *Node) Exists() bool {
	return n != nil
}

// Attr returns the attribute value, or "" when the node or attribute is absent.
func (n *Node) Attr(name string) string {
	v, _ := n.AttrOK(name)
	return v
}

// AttrOK returns the attribute value and whether it was present.
func (n *Node) AttrOK(name string) (string, bool) {
	if n == nil || n.Attrs == nil {
		return "", false
	}
	v, ok := n.Attrs[name]
	return v, ok
}

// IntAttr parses an integer attribute. Absent or malformed values yield def.
func (n *Node) IntAttr(name string, def int64) int64 {
	v, ok := n.AttrOK(name)
	if !ok {
		return def
	}
	i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return def
	}
	return i
}

// IntAttrOK parses an integer attribute and reports whether a valid value was present.
func (n *Node) IntAttrOK(name string) (int64, bool) {
	v, ok := n.AttrOK(name)
	if !ok {
		return 0, false
	}
	i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}

// FlagAttr reports whether a boolean attribute equals "1" or "true".
func (n *Node) FlagAttr(name string) bool {
	v := n.Attr(name)
	return v == "1" || v == "true"
}

// TextContent returns the concatenated character data of the node and its descendants.
func (n *Node) TextContent() string {
	if n == nil {
		return ""
	}
	if len(n.Children) == 0 {
		return n.Text
	}
	var b strings.Builder
	b.WriteString(n.Text)
	for _, c := range n.Children {
		b.WriteString(c.TextContent())
	}
	return b.String()
}
