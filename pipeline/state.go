package pipeline

import (
	"time"

	"github.com/fabfab/pdfqa/index"
)

// State is a snapshot of the loaded corpus. The zero value is the empty state.
type State struct {
	Ready      bool      `json:"ready"`
	Filename   string    `json:"filename,omitempty"`
	ChunkCount int       `json:"chunk_count"`
	PageCount  int       `json:"page_count"`
	Generation string    `json:"generation,omitempty"`
	LoadedAt   time.Time `json:"loaded_at,omitzero"`
}

type IngestResult struct {
	ChunkCount int
	PageCount  int
}

// Answer is the raw model output plus the chunks it was grounded on.
type Answer struct {
	Text    string
	Sources []index.Hit
}
