package hocr

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/lehigh-university-libraries/textlayer/pkg/ocr"
)

// EncodePage renders one OCR page as a complete hOCR document. pageNum is
// 1-based and only used for element ids. Words without a box are skipped.
func EncodePage(page ocr.Page, pageNum int) string {
	var lines []string

	for li, line := range page.Lines {
		extent, ok := line.Extent()
		if !ok {
			continue
		}

		var words []string
		for wi, word := range line.BoxedWords() {
			words = append(words, fmt.Sprintf(`<span class='ocrx_word' id='word_%d_%d_%d' title='%s'>%s</span>`,
				pageNum, li+1, wi+1,
				bboxTitle(word.Box),
				html.EscapeString(word.Text)))
		}

		lines = append(lines, fmt.Sprintf(`<span class='ocr_line' id='line_%d_%d' title='%s'>%s</span>`,
			pageNum, li+1,
			bboxTitle(extent),
			strings.Join(words, " ")))
	}

	pageBox := ocr.Box{Right: page.Width, Bottom: page.Height}
	return wrapDocument(pageNum, bboxTitle(pageBox), strings.Join(lines, "\n"))
}

func bboxTitle(b ocr.Box) string {
	return fmt.Sprintf("bbox %d %d %d %d",
		int(math.Round(b.Left)), int(math.Round(b.Top)),
		int(math.Round(b.Right)), int(math.Round(b.Bottom)))
}

func wrapDocument(pageNum int, pageTitle, content string) string {
	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd">
<html xmlns="http://www.w3.org/1999/xhtml" xml:lang="en" lang="en">
<head>
<title></title>
<meta http-equiv="Content-Type" content="text/html;charset=utf-8" />
<meta name='ocr-system' content='textlayer' />
<meta name='ocr-capabilities' content='ocr_page ocr_line ocrx_word' />
</head>
<body>
<div class='ocr_page' id='page_%d' title='%s'>
%s
</div>
</body>
</html>`, pageNum, pageTitle, content)
}
