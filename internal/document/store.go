package document

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ItemsTable is the table holding the line items of kind.
func (k Kind) ItemsTable() string {
	switch k {
	case KindQuotation:
		return "quotation_items"
	case KindSubscription:
		return "subscription_items"
	default:
		return "invoice_items"
	}
}

// ItemStore persists line items. Updates replace the whole item set, so item ids change on every update.
type ItemStore struct{}

func NewItemStore() *ItemStore {
	return &ItemStore{}
}

// ReplaceItems deletes every item of the document and inserts lines in position order.
// Call it inside the transaction that also writes the recomputed header amounts.
func (s *ItemStore) ReplaceItems(ctx context.Context, tx *gorm.DB, kind Kind, orgID, documentID snowflake.ID, lines []LineItem) error {
	table := kind.ItemsTable()
	if err := tx.WithContext(ctx).Exec(
		`DELETE FROM `+table+` WHERE org_id = ? AND document_id = ?`,
		orgID,
		documentID,
	).Error; err != nil {
		return err
	}

	for _, line := range lines {
		if err := tx.WithContext(ctx).Exec(
			`INSERT INTO `+table+` (id, org_id, document_id, position, product_id, variant_id, description,
				quantity, unit_price, tax, amount, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			line.ID,
			orgID,
			documentID,
			line.Position,
			line.ProductID,
			line.VariantID,
			line.Description,
			line.Quantity,
			line.UnitPrice,
			line.Tax,
			line.Amount,
			line.CreatedAt,
		).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *ItemStore) ListItems(ctx context.Context, db *gorm.DB, kind Kind, orgID, documentID snowflake.ID) ([]LineItem, error) {
	var items []LineItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, document_id, position, product_id, variant_id, description, quantity, unit_price, tax, amount, created_at
		 FROM `+kind.ItemsTable()+`
		 WHERE org_id = ? AND document_id = ?
		 ORDER BY position ASC`,
		orgID,
		documentID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
