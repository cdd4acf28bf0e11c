package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMatchesSentinel(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		code     string
	}{
		{"unreadable", UnreadableDocumentError("blank scan", nil), ErrUnreadableDocument, CodeUnreadableDocument},
		{"extraction", ExtractionFailedError("no regions"), ErrExtractionFailed, CodeExtractionFailed},
		{"mapping", IncompleteMappingError("line 2 missing quantity"), ErrIncompleteMapping, CodeIncompleteMapping},
		{"export", ExportError("rename", errors.New("permission denied")), ErrExport, CodeExport},
		{"unsupported", UnsupportedFormatError(".docx"), ErrUnsupportedFormat, CodeUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("document a.pdf: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.Equal(t, tt.code, ErrorCode(wrapped))
			for _, other := range []error{ErrUnreadableDocument, ErrExtractionFailed, ErrIncompleteMapping, ErrExport} {
				if other != tt.sentinel {
					assert.NotErrorIs(t, wrapped, other)
				}
			}
		})
	}
}

func TestAppErrorKeepsCause(t *testing.T) {
	err := UnreadableDocumentError("ocr timed out", context.DeadlineExceeded)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrUnreadableDocument)
	assert.Equal(t, "UNREADABLE_DOCUMENT: ocr timed out: context deadline exceeded", err.Error())
}

func TestErrorCodeForeignError(t *testing.T) {
	assert.Empty(t, ErrorCode(errors.New("boom")))
	assert.Nil(t, WrapError(nil, "ignored"))
	require.EqualError(t, WrapError(errors.New("boom"), "load"), "load: boom")
}

func TestValidator(t *testing.T) {
	v := NewValidator().
		Field("currency", "USD", CurrencyCode).
		Field("currency_lower", "usd", CurrencyCode).
		Field("currency_unknown", "ZZZ", CurrencyCode).
		Field("threshold", 1.5, UnitInterval).
		Field("workers", 0, Positive).
		Field("mode", "half_down", OneOf("half_up", "half_even")).
		Field("prefix", "SALES-ORDER-", MaxLength(10)).
		Field("name", "  ", Required)

	require.True(t, v.HasErrors())
	var fields []string
	for _, e := range v.Errors() {
		fields = append(fields, e.Field)
	}
	assert.Equal(t, []string{"currency_lower", "currency_unknown", "threshold", "workers", "mode", "prefix", "name"}, fields)
	assert.Contains(t, v.ErrorMessage(), "must be one of: half_up, half_even")
	assert.Error(t, v.Error())
}

func TestConfigValidate(t *testing.T) {
	t.Setenv("OCR_ENGINE", "azure")
	t.Setenv("AZURE_VISION_ENDPOINT", "")
	t.Setenv("REVIEW_THRESHOLD", "0.7")

	cfg := LoadConfig()
	assert.Equal(t, 0.7, cfg.Pipeline.ReviewThreshold)
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "AZURE_VISION_ENDPOINT")

	t.Setenv("OCR_ENGINE", "tesseract-cli")
	assert.NoError(t, LoadConfig().Validate())
}
