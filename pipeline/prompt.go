package pipeline

import (
	"strings"

	"github.com/fabfab/pdfqa/index"
)

const promptTemplate = "Use the following pieces of context to answer the question at the end. " +
	"If you don't know the answer, just say that you don't know, don't try to make up an answer.\n\n" +
	"{context}\n\n" +
	"Question: {question}\n" +
	"Helpful Answer:"

// BuildPrompt stuffs the retrieved chunks, most similar first, into the
// fixed question-answering template.
func BuildPrompt(hits []index.Hit, question string) string {
	parts := make([]string, 0, len(hits))
	for _, hit := range hits {
		parts = append(parts, hit.Chunk.Content)
	}

	return strings.NewReplacer(
		"{context}", strings.Join(parts, "\n\n"),
		"{question}", question,
	).Replace(promptTemplate)
}
