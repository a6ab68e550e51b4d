package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateDocument(t *testing.T) {
	valid := func() *Document {
		return &Document{
			Id:              "doc-1",
			Collection:      "default",
			Name:            "Guide",
			Content:         "some content",
			EmbeddingStatus: StatusPending,
		}
	}

	t.Run("valid document", func(t *testing.T) {
		assert.NoError(t, ValidateDocument(valid()))
	})

	t.Run("nil document", func(t *testing.T) {
		assert.ErrorIs(t, ValidateDocument(nil), ErrInvalidDocument)
	})

	t.Run("missing id", func(t *testing.T) {
		doc := valid()
		doc.Id = ""
		assert.ErrorIs(t, ValidateDocument(doc), ErrInvalidDocument)
	})

	t.Run("missing collection", func(t *testing.T) {
		doc := valid()
		doc.Collection = ""
		err := ValidateDocument(doc)
		assert.ErrorIs(t, err, ErrInvalidDocument)
		assert.ErrorIs(t, err, ErrEmptyCollection)
	})

	t.Run("empty content", func(t *testing.T) {
		doc := valid()
		doc.Content = ""
		err := ValidateDocument(doc)
		assert.ErrorIs(t, err, ErrEmptyContent)
	})

	t.Run("unknown status", func(t *testing.T) {
		doc := valid()
		doc.EmbeddingStatus = "finished"
		assert.ErrorIs(t, ValidateDocument(doc), ErrInvalidStatus)
	})

	t.Run("zero-value status allowed", func(t *testing.T) {
		doc := valid()
		doc.EmbeddingStatus = ""
		assert.NoError(t, ValidateDocument(doc))
	})
}

func TestValidateStatus(t *testing.T) {
	for _, status := range []EmbeddingStatus{StatusPending, StatusProcessing, StatusDone, StatusError} {
		assert.NoError(t, ValidateStatus(status))
	}
	assert.ErrorIs(t, ValidateStatus("bogus"), ErrInvalidStatus)
}

func TestValidateQuery(t *testing.T) {
	assert.NoError(t, ValidateQuery("what is recall?"))
	assert.ErrorIs(t, ValidateQuery(""), ErrEmptyQuery)
	assert.ErrorIs(t, ValidateQuery("   \n\t"), ErrEmptyQuery)
}
