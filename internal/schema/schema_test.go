package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extract/internal/extract"
)

func TestValidateDocument_ExtractedOutputPasses(t *testing.T) {
	e := extract.NewExtractor(extract.WithClock(func() time.Time {
		return time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	}))

	for _, text := range []string{
		"",
		"Invoice No: 55\n| 1 | Calibration | 3 | 250 | 750 |\nTotal: $750.00",
	} {
		require.NoError(t, ValidateDocument(e.Extract(text)))
	}
}

func TestValidateDocument_RejectsBadShape(t *testing.T) {
	doc := extract.Extract("")
	doc.Currency = "DOLLARS"
	assert.Error(t, ValidateDocument(doc))

	doc = extract.Extract("")
	doc.Items = nil
	assert.Error(t, ValidateDocument(doc), "items must serialize as an array")

	doc = extract.Extract("")
	doc.Confidence = extract.Confidence{"date": 95}
	assert.Error(t, ValidateDocument(doc))
}

func TestValidateJSONAgainstSchema(t *testing.T) {
	s := map[string]any{
		"type":       "object",
		"properties": map[string]any{"n": map[string]any{"type": "integer"}},
		"required":   []string{"n"},
	}
	assert.NoError(t, ValidateJSONAgainstSchema(s, []byte(`{"n": 3}`)))
	assert.Error(t, ValidateJSONAgainstSchema(s, []byte(`{"n": "3"}`)))
	assert.Error(t, ValidateJSONAgainstSchema(s, []byte(`not json`)))
}
