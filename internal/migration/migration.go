package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/billingcore/internal/audit/domain"
	customerdomain "github.com/smallbiznis/billingcore/internal/customer/domain"
	discountdomain "github.com/smallbiznis/billingcore/internal/discount/domain"
	invoicedomain "github.com/smallbiznis/billingcore/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/billingcore/internal/ledger/domain"
	paymentdomain "github.com/smallbiznis/billingcore/internal/payment/domain"
	productdomain "github.com/smallbiznis/billingcore/internal/product/domain"
	quotationdomain "github.com/smallbiznis/billingcore/internal/quotation/domain"
	quotationtemplatedomain "github.com/smallbiznis/billingcore/internal/quotationtemplate/domain"
	sequencedomain "github.com/smallbiznis/billingcore/internal/sequence/domain"
	subscriptiondomain "github.com/smallbiznis/billingcore/internal/subscription/domain"
	taxdomain "github.com/smallbiznis/billingcore/internal/tax/domain"
	"gorm.io/gorm"
)

// Models lists every persisted table, in dependency order.
func Models() []any {
	return []any{
		&customerdomain.Customer{},
		&productdomain.Product{},
		&productdomain.Variant{},
		&productdomain.Plan{},
		&taxdomain.TaxRule{},
		&taxdomain.ProductTax{},
		&discountdomain.Discount{},
		&sequencedomain.Counter{},
		&auditdomain.AuditLog{},
		&quotationtemplatedomain.QuotationTemplate{},
		&quotationtemplatedomain.TemplateItem{},
		&quotationdomain.Quotation{},
		&quotationdomain.QuotationItem{},
		&subscriptiondomain.Subscription{},
		&subscriptiondomain.SubscriptionItem{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceItem{},
		&invoicedomain.InvoiceItemTax{},
		&paymentdomain.Payment{},
		&ledgerdomain.Account{},
		&ledgerdomain.Entry{},
		&ledgerdomain.EntryLine{},
	}
}

// AutoMigrate creates the schema from the gorm models. Used for sqlite and mysql,
// where the versioned postgres scripts do not apply.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}
