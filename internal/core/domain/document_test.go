package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestDocument_Fields tests Document structure fields
func TestDocument_Fields(t *testing.T) {
	now := time.Now()

	doc := Document{
		ID:         "doc-123",
		Name:       "contract.txt",
		Content:    "Clause one applies.",
		Chunks:     []string{"Clause one applies."},
		UploadDate: now,
		Type:       "contract",
		Metadata:   map[string]any{"client": "ACME", MetaWordCount: 3},
	}

	assert.Equal(t, "doc-123", doc.ID)
	assert.Equal(t, "contract.txt", doc.Name)
	assert.Len(t, doc.Chunks, 1)
	assert.Equal(t, "ACME", doc.Metadata["client"])
	assert.Equal(t, 3, doc.Metadata[MetaWordCount])
	assert.Equal(t, now, doc.UploadDate)
}

func TestEmbeddingRecordID(t *testing.T) {
	tests := []struct {
		docID string
		index int
		want  string
	}{
		{"doc-1", 0, "doc-1_0"},
		{"doc-1", 12, "doc-1_12"},
		{"a_b", 3, "a_b_3"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, EmbeddingRecordID(tt.docID, tt.index))
		})
	}
}

func TestDuplicateCheck_ZeroValue(t *testing.T) {
	var check DuplicateCheck
	assert.False(t, check.Exists)
	assert.Nil(t, check.Existing)
	assert.Empty(t, check.MatchedBy)
}
