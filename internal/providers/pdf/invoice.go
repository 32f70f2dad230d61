package pdf

import (
	"context"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// InvoiceData is pre-formatted; the provider does no money or date handling.
type InvoiceData struct {
	SellerName    string
	SellerAddress string
	SellerVATNo   string

	InvoiceNumber string
	IssueDate     string
	DueDate       string
	ServicePeriod string

	BillToName string
	BillToType string

	Items []InvoiceItem

	Subtotal   string
	VATLabel   string
	VATAmount  string
	Total      string
	PaymentRef string
}

type InvoiceItem struct {
	Description string
	Qty         string
	UnitPrice   string
	Amount      string
}

type marotoProvider struct{}

func (p *marotoProvider) RenderInvoice(ctx context.Context, invoice InvoiceData) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(14,
		text.NewCol(8, invoice.SellerName, props.Text{Size: 18, Style: fontstyle.Bold}),
		text.NewCol(4, "INVOICE", props.Text{Size: 18, Style: fontstyle.Bold, Align: align.Right}),
	)
	m.AddRow(16,
		col.New(6).Add(
			text.New(invoice.SellerAddress, props.Text{Size: 9}),
			text.New("VAT no. "+invoice.SellerVATNo, props.Text{Size: 9, Top: 5}),
		),
		col.New(6).Add(
			text.New("Invoice number: "+invoice.InvoiceNumber, props.Text{Size: 9, Align: align.Right}),
			text.New("Date of issue: "+invoice.IssueDate, props.Text{Size: 9, Top: 4, Align: align.Right}),
			text.New("Date due: "+invoice.DueDate, props.Text{Size: 9, Top: 8, Align: align.Right}),
		),
	)

	m.AddRow(18,
		col.New(12).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold, Top: 4}),
			text.New(invoice.BillToName, props.Text{Top: 9}),
			text.New(invoice.BillToType, props.Text{Size: 8, Top: 13}),
		),
	)

	m.AddRow(8, text.NewCol(12, "Service period: "+invoice.ServicePeriod, props.Text{Size: 9}))

	m.AddRow(8,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Unit price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(2, line.NewCol(12))

	for _, item := range invoice.Items {
		m.AddRow(8,
			text.NewCol(6, item.Description, props.Text{Size: 9}),
			text.NewCol(2, item.Qty, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.UnitPrice, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(2, line.NewCol(12))
	totals := [][2]string{
		{"Subtotal", invoice.Subtotal},
		{invoice.VATLabel, invoice.VATAmount},
	}
	for _, row := range totals {
		m.AddRow(7,
			col.New(8),
			text.NewCol(2, row[0], props.Text{Size: 9}),
			text.NewCol(2, row[1], props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Total due", props.Text{Style: fontstyle.Bold, Size: 10}),
		text.NewCol(2, invoice.Total, props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right}),
	)

	if invoice.PaymentRef != "" {
		m.AddRow(14, text.NewCol(12, "Please quote "+invoice.PaymentRef+" with your payment.", props.Text{Size: 9, Top: 6}))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}
