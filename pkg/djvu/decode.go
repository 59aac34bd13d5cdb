package djvu

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/textlayer/pkg/ocr"
	"golang.org/x/net/html/charset"
)

// ErrNoPages is returned for a well-formed document without any OBJECT element.
var ErrNoPages = errors.New("djvu: document has no pages")

const (
	elemPage = "OBJECT"
	elemLine = "LINE"
	elemWord = "WORD"
)

// Decode parses a DjVu XML document. Each OBJECT element becomes a page, each
// LINE below it a line and each WORD below a line a word. Regions, paragraphs
// and columns in between are flattened away.
func Decode(r io.Reader) (*ocr.Document, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	dec.Entity = xml.HTMLEntity

	var (
		doc  ocr.Document
		page *ocr.Page
		line *ocr.Line
		word *ocr.Word
		text strings.Builder
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode djvu xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch strings.ToUpper(t.Name.Local) {
			case elemPage:
				if page == nil {
					page = &ocr.Page{
						Width:  attrFloat(t, "width"),
						Height: attrFloat(t, "height"),
					}
				}
			case elemLine:
				if page != nil && line == nil {
					line = &ocr.Line{}
				}
			case elemWord:
				if line != nil && word == nil {
					word = &ocr.Word{}
					word.Box, word.HasBox = ParseCoords(attr(t, "coords"))
					text.Reset()
				}
			}
		case xml.CharData:
			if word != nil {
				text.Write(t)
			}
		case xml.EndElement:
			switch strings.ToUpper(t.Name.Local) {
			case elemWord:
				if word != nil {
					word.Text = strings.TrimSpace(text.String())
					line.Words = append(line.Words, *word)
					word = nil
				}
			case elemLine:
				if line != nil {
					page.Lines = append(page.Lines, *line)
					line = nil
				}
			case elemPage:
				if page != nil {
					doc.Pages = append(doc.Pages, *page)
					page = nil
				}
			}
		}
	}

	if len(doc.Pages) == 0 {
		return nil, ErrNoPages
	}
	return &doc, nil
}

// ParseCoords parses a "left,bottom,right,top" attribute. A trailing fifth
// value (the baseline some DjVu producers emit) is ignored. ok is false when
// the value is missing, short or not made of finite numbers.
func ParseCoords(s string) (box ocr.Box, ok bool) {
	if strings.TrimSpace(s) == "" {
		return ocr.Box{}, false
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 && len(parts) != 5 {
		return ocr.Box{}, false
	}

	var vals [4]float64
	for i := range vals {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return ocr.Box{}, false
		}
		vals[i] = v
	}

	return ocr.Box{Left: vals[0], Bottom: vals[1], Right: vals[2], Top: vals[3]}, true
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if strings.EqualFold(a.Name.Local, name) {
			return a.Value
		}
	}
	return ""
}

func attrFloat(el xml.StartElement, name string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(attr(el, name)), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
