package ingestion

import (
	"fmt"
	"strings"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// boundaries are tried in order; a cut is placed right after the separator.
var boundaries = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(". "),
	[]rune("! "),
	[]rune("? "),
	[]rune(" "),
}

// Chunker splits page units into fixed-size overlapping windows.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker validates the window settings. overlap must be smaller than size.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfiguration, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must not be negative, got %d", ErrInvalidConfiguration, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", ErrInvalidConfiguration, overlap, size)
	}

	return &Chunker{size: size, overlap: overlap}, nil
}

// DefaultChunker returns a chunker with the 1000/200 defaults.
func DefaultChunker() *Chunker {
	c, err := NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Chunker) Size() int    { return c.size }
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits every unit in order. Blank units produce nothing. Windows from
// the same unit overlap by exactly the configured number of characters.
// Units are expected to hold valid UTF-8; invalid bytes come out as U+FFFD.
func (c *Chunker) Chunk(units []TextUnit) []Chunk {
	chunks := make([]Chunk, 0)
	for _, unit := range units {
		if strings.TrimSpace(unit.Content) == "" {
			continue
		}

		text := []rune(unit.Content)
		for _, span := range c.windows(text) {
			chunks = append(chunks, Chunk{
				Content:  string(text[span[0]:span[1]]),
				Page:     unit.Page,
				Sequence: len(chunks),
				Offset:   span[0],
			})
		}
	}
	return chunks
}

func (c *Chunker) windows(text []rune) [][2]int {
	spans := make([][2]int, 0, len(text)/(c.size-c.overlap)+1)
	start := 0
	for {
		if start+c.size >= len(text) {
			spans = append(spans, [2]int{start, len(text)})
			return spans
		}

		end := c.cut(text, start)
		spans = append(spans, [2]int{start, end})
		start = end - c.overlap
	}
}

// cut picks the end of the window that starts at start. It prefers the last
// natural boundary past the minimum length and falls back to a hard cut.
func (c *Chunker) cut(text []rune, start int) int {
	limit := start + c.size
	minEnd := start + max(c.overlap, c.size/2) + 1

	for _, sep := range boundaries {
		for end := limit; end >= minEnd; end-- {
			if end-len(sep) < start {
				break
			}
			if hasSuffix(text[:end], sep) {
				return end
			}
		}
	}
	return limit
}

func hasSuffix(text, sep []rune) bool {
	if len(text) < len(sep) {
		return false
	}
	tail := text[len(text)-len(sep):]
	for i := range sep {
		if tail[i] != sep[i] {
			return false
		}
	}
	return true
}
