// Package svg is the SVG backend for the scene-graph builder.
package svg

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"

	"github.com/lehigh-university-libraries/textlayer/pkg/scene"
)

// Namespace is the SVG XML namespace.
const Namespace = "http://www.w3.org/2000/svg"

// Element is a node of an SVG document. Attributes keep insertion order so
// output is stable.
type Element struct {
	Name     string
	Attrs    []xml.Attr
	Text     string
	Children []*Element

	kind scene.Kind
}

func newElement(name string, kind scene.Kind) *Element {
	return &Element{Name: name, kind: kind}
}

func (e *Element) Kind() scene.Kind { return e.kind }

// Attr returns the value of the named attribute or "".
func (e *Element) Attr(name string) string {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// FloatAttr parses a numeric attribute; missing or invalid values are 0.
func (e *Element) FloatAttr(name string) float64 {
	v, _ := strconv.ParseFloat(e.Attr(name), 64)
	return v
}

// SetAttr sets or replaces an attribute.
func (e *Element) SetAttr(name, value string) {
	for i := range e.Attrs {
		if e.Attrs[i].Name.Local == name {
			e.Attrs[i].Value = value
			return
		}
	}
	e.Attrs = append(e.Attrs, xml.Attr{Name: xml.Name{Local: name}, Value: value})
}

func (e *Element) setFloat(name string, v float64) {
	e.SetAttr(name, formatFloat(v))
}

// Append adds child as the last child of e.
func (e *Element) Append(child *Element) {
	e.Children = append(e.Children, child)
}

// Walk visits e and its descendants depth first. Returning false from fn
// skips the children of that element.
func (e *Element) Walk(fn func(*Element) bool) {
	if !fn(e) {
		return
	}
	for _, c := range e.Children {
		c.Walk(fn)
	}
}

// FindAll returns all descendants (and e itself) of the given kind.
func (e *Element) FindAll(kind scene.Kind) []*Element {
	var out []*Element
	e.Walk(func(el *Element) bool {
		if el.kind == kind {
			out = append(out, el)
		}
		return true
	})
	return out
}

// WriteTo encodes e as XML.
func (e *Element) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	enc := xml.NewEncoder(cw)
	err := e.encode(enc)
	if ferr := enc.Flush(); err == nil {
		err = ferr
	}
	return cw.n, err
}

// String returns the XML encoding of e. Writes to a bytes.Buffer do not
// fail; an element the encoder rejects (such as one without a name) yields
// the output written before the error. Use WriteTo to see that error.
func (e *Element) String() string {
	var buf bytes.Buffer
	_, _ = e.WriteTo(&buf)
	return buf.String()
}

func (e *Element) encode(enc *xml.Encoder) error {
	start := xml.StartElement{Name: xml.Name{Local: e.Name}, Attr: e.Attrs}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if e.Text != "" {
		if err := enc.EncodeToken(xml.CharData(e.Text)); err != nil {
			return err
		}
	}
	for _, c := range e.Children {
		if err := c.encode(enc); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
