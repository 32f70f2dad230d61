package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatInvoiceNumber(t *testing.T) {
	issued := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	got, err := FormatInvoiceNumber(DefaultInvoiceNumberTemplate, "SCH", issued, 1)
	require.NoError(t, err)
	assert.Equal(t, "SCH-2026-00001", got)

	got, err = FormatInvoiceNumber(DefaultInvoiceNumberTemplate, "SCH", issued, 123456)
	require.NoError(t, err)
	assert.Equal(t, "SCH-2026-123456", got)

	got, err = FormatInvoiceNumber("{PREFIX}/{YY}{MM}{DD}/{SEQ}", "INV", issued, 42)
	require.NoError(t, err)
	assert.Equal(t, "INV/260901/42", got)
}

func TestFormatInvoiceNumberRejectsBadInput(t *testing.T) {
	issued := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	_, err := FormatInvoiceNumber("", "SCH", issued, 1)
	assert.Error(t, err)
	_, err = FormatInvoiceNumber(DefaultInvoiceNumberTemplate, "SCH", issued, 0)
	assert.Error(t, err)
	_, err = FormatInvoiceNumber("{PREFIX}-{WEEK}", "SCH", issued, 1)
	assert.Error(t, err)
}

func TestFallbackInvoiceNumber(t *testing.T) {
	assert.Equal(t, "SCH-01J9Z", FallbackInvoiceNumber("SCH", "01J9Z"))
}
