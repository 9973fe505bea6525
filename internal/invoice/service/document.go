package service

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	customerdomain "github.com/smallbiznis/billingcore/internal/customer/domain"
	"github.com/smallbiznis/billingcore/internal/document"
	"github.com/smallbiznis/billingcore/internal/invoice/domain"
	"github.com/smallbiznis/billingcore/internal/invoice/format"
	"github.com/smallbiznis/billingcore/internal/invoice/render"
)

func toDocument(invoice *domain.Response, customer *customerdomain.Customer) render.Document {
	money := func(amount decimal.Decimal) string {
		return format.Money(amount, invoice.Currency)
	}
	paid := decimal.RequireFromString(invoice.AmountPaid)
	balance := decimal.RequireFromString(invoice.Balance)

	return render.Document{
		InvoiceNumber: invoice.InvoiceNumber,
		Status:        string(invoice.Status),
		IssueDate:     format.Date(invoice.IssueDate),
		DueDate:       format.Date(invoice.DueDate),
		PaidDate:      format.DatePtr(invoice.PaidAt),
		BillToName:    customer.Name,
		BillToEmail:   customer.Email,
		Items: lo.Map(invoice.Items, func(item document.LineItem, _ int) render.Line {
			return render.Line{
				Description: item.Description,
				Quantity:    item.Quantity,
				UnitPrice:   money(item.UnitPrice),
				Tax:         money(item.Tax),
				Amount:      money(item.Amount),
			}
		}),
		Subtotal:  money(invoice.Subtotal),
		Discount:  money(invoice.DiscountAmount),
		Tax:       money(invoice.Tax),
		Total:     money(invoice.Total),
		Paid:      money(paid),
		AmountDue: money(balance),
		Notes:     invoice.Notes,
	}
}
