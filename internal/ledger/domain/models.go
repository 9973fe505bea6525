package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Direction is the side of a posting line.
type Direction string

const (
	Debit  Direction = "debit"
	Credit Direction = "credit"
)

type SourceType string

const (
	SourceInvoiceIssued    SourceType = "invoice_issued"
	SourceInvoiceCancelled SourceType = "invoice_cancelled"
	SourcePayment          SourceType = "payment"
	SourceRefund           SourceType = "refund"
)

type AccountCode string

const (
	AccountReceivable AccountCode = "accounts_receivable"
	AccountCash       AccountCode = "cash"
	AccountRevenue    AccountCode = "revenue"
	AccountTaxPayable AccountCode = "tax_payable"
	AccountDiscounts  AccountCode = "discounts"
)

// ChartOfAccounts lists the accounts created for every organization on first posting.
var ChartOfAccounts = map[AccountCode]string{
	AccountReceivable: "Accounts Receivable",
	AccountCash:       "Cash",
	AccountRevenue:    "Revenue",
	AccountTaxPayable: "Tax Payable",
	AccountDiscounts:  "Discounts Given",
}

type Account struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"not null;uniqueIndex:ux_ledger_accounts_org_code,priority:1" json:"organization_id"`
	Code      AccountCode  `gorm:"type:varchar(64);not null;uniqueIndex:ux_ledger_accounts_org_code,priority:2" json:"code"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (Account) TableName() string { return "ledger_accounts" }

// Entry is the immutable header of one financial event. (org, source type, source id) is unique.
type Entry struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID `gorm:"not null;uniqueIndex:ux_ledger_entries_source,priority:1" json:"organization_id"`
	SourceType SourceType   `gorm:"type:varchar(32);not null;uniqueIndex:ux_ledger_entries_source,priority:2" json:"source_type"`
	SourceID   snowflake.ID `gorm:"not null;uniqueIndex:ux_ledger_entries_source,priority:3" json:"source_id"`
	Currency   string       `gorm:"type:varchar(3);not null" json:"currency"`
	OccurredAt time.Time    `gorm:"not null" json:"occurred_at"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`

	Lines []EntryLine `gorm:"-" json:"lines,omitempty"`
}

func (Entry) TableName() string { return "ledger_entries" }

type EntryLine struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	EntryID   snowflake.ID    `gorm:"column:ledger_entry_id;not null;index" json:"-"`
	AccountID snowflake.ID    `gorm:"not null;index" json:"account_id"`
	Account   AccountCode     `gorm:"-" json:"account"`
	Direction Direction       `gorm:"type:varchar(8);not null" json:"direction"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	CreatedAt time.Time       `gorm:"not null" json:"-"`
}

func (EntryLine) TableName() string { return "ledger_entry_lines" }
