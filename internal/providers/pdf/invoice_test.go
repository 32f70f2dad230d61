package pdf

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderInvoice(t *testing.T) {
	out, err := New().RenderInvoice(context.Background(), InvoiceData{
		SellerName:    "Schoolgle Ltd",
		InvoiceNumber: "SCH-2026-00001",
		IssueDate:     "01 Sep 2026",
		DueDate:       "01 Oct 2026",
		BillToName:    "Oakfield Academy",
		Items: []InvoiceItem{
			{Description: "Professional plan (annual)", Qty: "3", UnitPrice: "£1,499", Amount: "£4,047"},
		},
		Subtotal:  "£4,047",
		VATLabel:  "VAT 20%",
		VATAmount: "£809",
		Total:     "£4,856",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderInvoiceHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().RenderInvoice(ctx, InvoiceData{})
	assert.ErrorIs(t, err, context.Canceled)
}
