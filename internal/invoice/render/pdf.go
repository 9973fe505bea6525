package render

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// Document is an invoice with every value already formatted for print.
type Document struct {
	InvoiceNumber string
	Status        string
	IssueDate     string
	DueDate       string
	PaidDate      string

	BillToName  string
	BillToEmail string

	Items []Line

	Subtotal  string
	Discount  string
	Tax       string
	Total     string
	Paid      string
	AmountDue string
	Notes     string
}

type Line struct {
	Description string
	Quantity    int64
	UnitPrice   string
	Tax         string
	Amount      string
}

type Renderer struct {
	pattern string
}

func NewRenderer() *Renderer {
	return &Renderer{pattern: "Page {current} of {total}"}
}

// Render lays the invoice out on A4 pages and returns the PDF bytes.
func (r *Renderer) Render(doc Document) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: r.pattern,
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(8, "Invoice", props.Text{Size: 20, Style: fontstyle.Bold, Align: align.Left}),
		text.NewCol(4, doc.Status, props.Text{Size: 12, Style: fontstyle.Bold, Align: align.Right, Top: 3}),
	)

	m.AddRow(22,
		col.New(6).Add(
			text.New("Invoice number: "+doc.InvoiceNumber, props.Text{Top: 0}),
			text.New("Date of issue: "+doc.IssueDate, props.Text{Top: 5}),
			text.New("Date due: "+doc.DueDate, props.Text{Top: 10}),
			text.New(paidLine(doc.PaidDate), props.Text{Top: 15}),
		),
		col.New(6).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold, Align: align.Right}),
			text.New(doc.BillToName, props.Text{Top: 5, Align: align.Right}),
			text.New(doc.BillToEmail, props.Text{Top: 10, Align: align.Right}),
		),
	)

	m.AddRow(14,
		text.NewCol(12, doc.AmountDue+" due "+doc.DueDate, props.Text{Size: 14, Style: fontstyle.Bold, Top: 4}),
	)

	header := props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}
	m.AddRow(10,
		text.NewCol(5, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(1, "Qty", header),
		text.NewCol(2, "Unit price", header),
		text.NewCol(2, "Tax", header),
		text.NewCol(2, "Amount", header),
	)

	cell := props.Text{Size: 9, Align: align.Right}
	for _, item := range doc.Items {
		m.AddRow(8,
			text.NewCol(5, item.Description, props.Text{Size: 9}),
			text.NewCol(1, fmt.Sprintf("%d", item.Quantity), cell),
			text.NewCol(2, item.UnitPrice, cell),
			text.NewCol(2, item.Tax, cell),
			text.NewCol(2, item.Amount, cell),
		)
	}

	totals := []struct {
		label string
		value string
		bold  bool
	}{
		{"Subtotal", doc.Subtotal, false},
		{"Discount", doc.Discount, false},
		{"Tax", doc.Tax, false},
		{"Total", doc.Total, false},
		{"Amount paid", doc.Paid, false},
		{"Amount due", doc.AmountDue, true},
	}
	for _, row := range totals {
		style := props.Text{Size: 9}
		if row.bold {
			style.Style = fontstyle.Bold
		}
		value := style
		value.Align = align.Right
		m.AddRow(7,
			col.New(7),
			text.NewCol(3, row.label, style),
			text.NewCol(2, row.value, value),
		)
	}

	if doc.Notes != "" {
		m.AddRow(16, text.NewCol(12, doc.Notes, props.Text{Size: 9, Top: 6}))
	}

	out, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return out.GetBytes(), nil
}

func paidLine(date string) string {
	if date == "" {
		return ""
	}
	return "Date paid: " + date
}
