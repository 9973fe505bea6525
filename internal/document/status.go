package document

import (
	"strings"

	"github.com/smallbiznis/billingcore/internal/apperr"
)

// Kind identifies one of the three line-itemized document types.
type Kind string

const (
	KindQuotation    Kind = "quotation"
	KindSubscription Kind = "subscription"
	KindInvoice      Kind = "invoice"
)

type Status string

const (
	QuotationDraft    Status = "DRAFT"
	QuotationSent     Status = "SENT"
	QuotationAccepted Status = "ACCEPTED"
	QuotationRejected Status = "REJECTED"
	QuotationExpired  Status = "EXPIRED"

	SubscriptionDraft         Status = "Draft"
	SubscriptionQuotation     Status = "Quotation"
	SubscriptionQuotationSent Status = "Quotation Sent"
	SubscriptionConfirmed     Status = "Confirmed"
	SubscriptionActive        Status = "Active"
	SubscriptionCancelled     Status = "Cancelled"
	SubscriptionClosed        Status = "Closed"
	SubscriptionExpired       Status = "Expired"

	InvoiceDraft         Status = "DRAFT"
	InvoiceSent          Status = "SENT"
	InvoicePaid          Status = "PAID"
	InvoicePartiallyPaid Status = "PARTIALLY_PAID"
	InvoiceOverdue       Status = "OVERDUE"
	InvoiceCancelled     Status = "CANCELLED"
	InvoiceRefunded      Status = "REFUNDED"
)

var (
	ErrInvalidStatus          = apperr.Validation("invalid_status")
	ErrInvalidStateTransition = apperr.InvalidTransition("invalid_state_transition")
)

var statuses = map[Kind][]Status{
	KindQuotation: {QuotationDraft, QuotationSent, QuotationAccepted, QuotationRejected, QuotationExpired},
	KindSubscription: {
		SubscriptionDraft, SubscriptionQuotation, SubscriptionQuotationSent, SubscriptionConfirmed,
		SubscriptionActive, SubscriptionCancelled, SubscriptionClosed, SubscriptionExpired,
	},
	KindInvoice: {
		InvoiceDraft, InvoiceSent, InvoicePaid, InvoicePartiallyPaid,
		InvoiceOverdue, InvoiceCancelled, InvoiceRefunded,
	},
}

// transitions lists the status changes a caller may request. Invoice PAID and
// PARTIALLY_PAID are absent on purpose: only the payment ledger sets them.
var transitions = map[Kind]map[Status][]Status{
	KindQuotation: {
		QuotationDraft: {QuotationSent},
		QuotationSent:  {QuotationAccepted, QuotationRejected, QuotationExpired},
	},
	KindSubscription: {
		SubscriptionDraft:         {SubscriptionQuotation},
		SubscriptionQuotation:     {SubscriptionQuotationSent},
		SubscriptionQuotationSent: {SubscriptionConfirmed},
		SubscriptionConfirmed:     {SubscriptionActive},
		SubscriptionActive:        {SubscriptionCancelled, SubscriptionClosed, SubscriptionExpired},
	},
	KindInvoice: {
		InvoiceDraft:         {InvoiceSent, InvoiceCancelled},
		InvoiceSent:          {InvoiceOverdue, InvoiceCancelled},
		InvoicePartiallyPaid: {InvoiceOverdue, InvoiceRefunded},
		InvoiceOverdue:       {InvoiceCancelled},
		InvoicePaid:          {InvoiceRefunded},
	},
}

// ParseStatus resolves raw against the closed status set of kind, ignoring case and surrounding space.
func ParseStatus(kind Kind, raw string) (Status, error) {
	raw = strings.TrimSpace(raw)
	for _, status := range statuses[kind] {
		if strings.EqualFold(string(status), raw) {
			return status, nil
		}
	}
	return "", ErrInvalidStatus
}

func Statuses(kind Kind) []Status {
	out := make([]Status, len(statuses[kind]))
	copy(out, statuses[kind])
	return out
}

// CanTransition validates a requested status change. Unknown statuses are invalid_status,
// known but unreachable ones are invalid_state_transition.
func CanTransition(kind Kind, from, to Status) error {
	if !known(kind, from) || !known(kind, to) {
		return ErrInvalidStatus
	}
	for _, next := range transitions[kind][from] {
		if next == to {
			return nil
		}
	}
	return ErrInvalidStateTransition
}

// Terminal reports whether no further caller transition leaves status.
func Terminal(kind Kind, status Status) bool {
	return known(kind, status) && len(transitions[kind][status]) == 0
}

func known(kind Kind, status Status) bool {
	for _, s := range statuses[kind] {
		if s == status {
			return true
		}
	}
	return false
}

// Annotate appends "label: reason" to notes, or the bare label when no reason is given.
func Annotate(notes, label, reason string) string {
	entry := label
	if reason = strings.TrimSpace(reason); reason != "" {
		entry += ": " + reason
	}
	if notes = strings.TrimSpace(notes); notes == "" {
		return entry
	}
	return notes + " | " + entry
}
