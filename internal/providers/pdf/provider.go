package pdf

import "context"

// Provider renders documents to PDF bytes.
type Provider interface {
	RenderInvoice(ctx context.Context, data InvoiceData) ([]byte, error)
}

func New() Provider {
	return &marotoProvider{}
}
