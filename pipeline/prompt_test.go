package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fabfab/pdfqa/index"
	"github.com/fabfab/pdfqa/ingestion"
)

func TestBuildPrompt(t *testing.T) {
	hits := []index.Hit{
		{Chunk: ingestion.Chunk{Content: "Most relevant."}, Score: 0.9},
		{Chunk: ingestion.Chunk{Content: "Second, mentions {question}."}, Score: 0.5},
	}

	got := BuildPrompt(hits, "What is relevant?")
	want := "Use the following pieces of context to answer the question at the end. " +
		"If you don't know the answer, just say that you don't know, don't try to make up an answer.\n\n" +
		"Most relevant.\n\nSecond, mentions {question}.\n\n" +
		"Question: What is relevant?\nHelpful Answer:"
	assert.Equal(t, want, got)
}

func TestBuildPromptWithoutContext(t *testing.T) {
	got := BuildPrompt(nil, "q")
	assert.Contains(t, got, "\n\n\n\nQuestion: q\n")
}
