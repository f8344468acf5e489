package pipeline

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		err     error
		client  bool
		message string
	}{
		{fmt.Errorf("%w: notes.txt", ErrWrongFileType), true, "Only PDF files are allowed"},
		{ErrNoCorpusLoaded, true, "Please upload a PDF first!"},
		{ErrEmptyQuestion, true, "Please provide a question"},
		{fmt.Errorf("%w: bad xref", ErrUnreadableDocument), true, "unreadable document: bad xref"},
		{fmt.Errorf("%w: 503", ErrEmbeddingFailure), false, "embedding failure: 503"},
		{fmt.Errorf("%w: %w: deadline", ErrGenerationFailure, ErrGatewayTimeout), false, "generation failure: gateway timeout: deadline"},
		{errors.New("boom"), false, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.client, IsClientError(tt.err))
			assert.Equal(t, tt.message, UserMessage(tt.err))
		})
	}

	assert.Empty(t, UserMessage(nil))
}
