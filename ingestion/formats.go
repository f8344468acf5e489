// Package ingestion turns uploaded documents into page-tagged text units and
// splits those units into overlapping chunks ready for embedding.
package ingestion

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
)

var (
	// ErrUnreadableDocument is returned when a payload cannot be parsed as the expected format.
	ErrUnreadableDocument = errors.New("unreadable document")
	// ErrInvalidConfiguration is returned for chunker settings that cannot make progress.
	ErrInvalidConfiguration = errors.New("invalid chunker configuration")
)

// DocumentFormat enumerates supported document payload formats.
type DocumentFormat string

const (
	// FormatUnknown represents an unsupported or undetected format.
	FormatUnknown DocumentFormat = ""
	// FormatPDF represents PDF documents.
	FormatPDF DocumentFormat = "pdf"
)

// DetectFormat infers a document format from the provided file name's extension.
func DetectFormat(name string) DocumentFormat {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FormatPDF
	default:
		return FormatUnknown
	}
}

// Source is an uploaded document. It only lives for the duration of an ingest.
type Source struct {
	Name   string
	Reader io.ReaderAt
	Size   int64
}

// TextUnit is the text of one page. Page numbering starts at 1.
type TextUnit struct {
	Content string
	Page    int
}

// Chunk is a window of a TextUnit. Offset counts characters from the start of
// the unit; Sequence is the position of the chunk in the whole document.
type Chunk struct {
	Content  string
	Page     int
	Sequence int
	Offset   int
}
