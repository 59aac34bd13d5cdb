package ocr

import (
	"io"
	"math"
)

// DecodeFunc turns a raw OCR document into a Document.
type DecodeFunc func(r io.Reader) (*Document, error)

// Document is the parsed OCR result for one book, indexed by page position.
// It is never mutated after decoding.
type Document struct {
	Pages []Page
}

// Page returns the page at index, or false when index is out of range.
func (d *Document) Page(index int) (*Page, bool) {
	if d == nil || index < 0 || index >= len(d.Pages) {
		return nil, false
	}
	return &d.Pages[index], true
}

// Page holds one scanned page. Width and Height define the OCR pixel
// coordinate space; a page may have no lines at all.
type Page struct {
	Width  float64
	Height float64
	Lines  []Line
}

// Line is one line of recognized text in reading order.
type Line struct {
	Words []Word
}

// Word is one recognized word. HasBox is false when the source carried no
// usable bounding box; such words are ignored for geometry and rendering.
type Word struct {
	Text   string
	Box    Box
	HasBox bool
}

// Box is a rectangle in page pixel coordinates (y grows downwards).
type Box struct {
	Left   float64
	Bottom float64
	Right  float64
	Top    float64
}

// Width may be negative for an inverted box.
func (b Box) Width() float64 { return b.Right - b.Left }

// Height may be negative for an inverted box.
func (b Box) Height() float64 { return b.Bottom - b.Top }

// Finite reports whether all four coordinates are finite numbers.
func (b Box) Finite() bool {
	for _, v := range []float64{b.Left, b.Bottom, b.Right, b.Top} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// BoxedWords returns the words that carry a bounding box, in order.
func (l Line) BoxedWords() []Word {
	words := make([]Word, 0, len(l.Words))
	for _, w := range l.Words {
		if w.HasBox {
			words = append(words, w)
		}
	}
	return words
}

// Extent returns the line bounding box aggregated over its boxed words:
// min left, max right, min top, max bottom. ok is false when no word has a box.
func (l Line) Extent() (box Box, ok bool) {
	box = Box{
		Left:   math.Inf(1),
		Top:    math.Inf(1),
		Right:  math.Inf(-1),
		Bottom: math.Inf(-1),
	}
	for _, w := range l.Words {
		if !w.HasBox {
			continue
		}
		ok = true
		box.Left = math.Min(box.Left, w.Box.Left)
		box.Top = math.Min(box.Top, w.Box.Top)
		box.Right = math.Max(box.Right, w.Box.Right)
		box.Bottom = math.Max(box.Bottom, w.Box.Bottom)
	}
	if !ok {
		return Box{}, false
	}
	return box, true
}

// FontSize is the line height used as a font size proxy.
func (l Line) FontSize() float64 {
	box, ok := l.Extent()
	if !ok {
		return 0
	}
	return box.Height()
}

// Text joins the words of the line with single spaces.
func (l Line) Text() string {
	var n int
	for _, w := range l.Words {
		n += len(w.Text) + 1
	}
	buf := make([]byte, 0, n)
	for i, w := range l.Words {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, w.Text...)
	}
	return string(buf)
}
