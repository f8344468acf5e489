package pipeline

import (
	"errors"

	"github.com/fabfab/pdfqa/ingestion"
)

var (
	ErrUnreadableDocument   = ingestion.ErrUnreadableDocument
	ErrInvalidConfiguration = ingestion.ErrInvalidConfiguration

	ErrWrongFileType     = errors.New("wrong file type")
	ErrEmbeddingFailure  = errors.New("embedding failure")
	ErrGenerationFailure = errors.New("generation failure")
	ErrIndexFailure      = errors.New("index failure")
	ErrGatewayTimeout    = errors.New("gateway timeout")
	ErrNoCorpusLoaded    = errors.New("no corpus loaded")
	ErrEmptyQuestion     = errors.New("empty question")
)

// IsClientError reports whether err was caused by the caller's input rather
// than by an upstream or internal failure.
func IsClientError(err error) bool {
	switch {
	case errors.Is(err, ErrWrongFileType),
		errors.Is(err, ErrUnreadableDocument),
		errors.Is(err, ErrNoCorpusLoaded),
		errors.Is(err, ErrEmptyQuestion):
		return true
	default:
		return false
	}
}

// UserMessage returns the text shown to an end user for err.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrWrongFileType):
		return "Only PDF files are allowed"
	case errors.Is(err, ErrNoCorpusLoaded):
		return "Please upload a PDF first!"
	case errors.Is(err, ErrEmptyQuestion):
		return "Please provide a question"
	default:
		return err.Error()
	}
}
