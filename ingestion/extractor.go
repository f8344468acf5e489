package ingestion

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extractor turns a source document into ordered page units.
type Extractor interface {
	Extract(src Source) ([]TextUnit, error)
}

// ExtractorFunc adapts a plain function to the Extractor interface.
type ExtractorFunc func(src Source) ([]TextUnit, error)

func (f ExtractorFunc) Extract(src Source) ([]TextUnit, error) {
	return f(src)
}

// PDFExtractor reads PDF documents page by page.
var PDFExtractor Extractor = ExtractorFunc(ExtractPDF)

// ExtractPDF returns one unit per page in page order. Pages without text still
// produce a unit with empty content.
func ExtractPDF(src Source) (units []TextUnit, err error) {
	if src.Reader == nil || src.Size <= 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrUnreadableDocument)
	}

	// The pdf package panics on some malformed object streams.
	defer func() {
		if r := recover(); r != nil {
			units = nil
			err = fmt.Errorf("%w: %v", ErrUnreadableDocument, r)
		}
	}()

	reader, err := pdf.NewReader(src.Reader, src.Size)
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf: %v", ErrUnreadableDocument, err)
	}

	total := reader.NumPage()
	if total == 0 {
		return nil, fmt.Errorf("%w: pdf has no pages", ErrUnreadableDocument)
	}

	units = make([]TextUnit, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			units = append(units, TextUnit{Page: i})
			continue
		}

		text, textErr := page.GetPlainText(nil)
		if textErr != nil {
			return nil, fmt.Errorf("%w: extract page %d: %v", ErrUnreadableDocument, i, textErr)
		}

		units = append(units, TextUnit{Content: normalizePlainText(text), Page: i})
	}

	return units, nil
}

func normalizePlainText(content string) string {
	content = strings.ToValidUTF8(content, "")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}
