// Package hocr reads and writes hOCR, the HTML based OCR format produced by
// Tesseract and friends, in terms of the ocr page model.
package hocr

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/textlayer/pkg/ocr"
	"golang.org/x/net/html"
)

// ErrNoPages is returned when the document contains no ocr_page element.
var ErrNoPages = errors.New("hocr: document has no ocr_page")

var lineClasses = map[string]bool{
	"ocr_line":      true,
	"ocrx_line":     true,
	"ocr_header":    true,
	"ocr_caption":   true,
	"ocr_textfloat": true,
}

// Decode parses an hOCR document. Pages take their size from the ocr_page
// bbox; words outside of a line element are dropped.
func Decode(r io.Reader) (*ocr.Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse hocr: %w", err)
	}

	var doc ocr.Document
	var walk func(n *html.Node, page *ocr.Page, line *ocr.Line)
	walk = func(n *html.Node, page *ocr.Page, line *ocr.Line) {
		if n.Type == html.ElementNode {
			classes := strings.Fields(attr(n, "class"))
			switch {
			case hasClass(classes, "ocr_page") && page == nil:
				p := ocr.Page{}
				if box, ok := ParseBBox(attr(n, "title")); ok {
					p.Width, p.Height = box.Right, box.Bottom
				}
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c, &p, nil)
				}
				doc.Pages = append(doc.Pages, p)
				return
			case page != nil && line == nil && anyClass(classes, lineClasses):
				l := ocr.Line{}
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c, page, &l)
				}
				if len(l.Words) > 0 {
					page.Lines = append(page.Lines, l)
				}
				return
			case line != nil && hasClass(classes, "ocrx_word"):
				w := ocr.Word{Text: strings.TrimSpace(textContent(n))}
				w.Box, w.HasBox = ParseBBox(attr(n, "title"))
				line.Words = append(line.Words, w)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, page, line)
		}
	}
	walk(root, nil, nil)

	if len(doc.Pages) == 0 {
		return nil, ErrNoPages
	}
	return &doc, nil
}

// ParseBBox extracts the "bbox x0 y0 x1 y1" property from an hOCR title
// attribute. hOCR boxes are (left, top, right, bottom).
func ParseBBox(title string) (ocr.Box, bool) {
	for _, prop := range strings.Split(title, ";") {
		fields := strings.Fields(prop)
		if len(fields) == 0 || fields[0] != "bbox" {
			continue
		}
		if len(fields) != 5 {
			return ocr.Box{}, false
		}
		var vals [4]float64
		for i := range vals {
			v, err := strconv.ParseFloat(fields[i+1], 64)
			if err != nil {
				return ocr.Box{}, false
			}
			vals[i] = v
		}
		box := ocr.Box{Left: vals[0], Top: vals[1], Right: vals[2], Bottom: vals[3]}
		return box, box.Finite()
	}
	return ocr.Box{}, false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(classes []string, want string) bool {
	for _, c := range classes {
		if c == want {
			return true
		}
	}
	return false
}

func anyClass(classes []string, set map[string]bool) bool {
	for _, c := range classes {
		if set[c] {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}
