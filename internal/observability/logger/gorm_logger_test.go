package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"
)

func TestDescribeSQL(t *testing.T) {
	cases := []struct {
		sql       string
		operation string
		table     string
	}{
		{"UPDATE invoices SET amount_paid = amount_paid + 10", "UPDATE", "invoices"},
		{"  insert into payments (id) values (1)", "INSERT", "payments"},
		{`SELECT * FROM "discounts" WHERE code = ?`, "SELECT", "discounts"},
		{"WITH due AS (SELECT 1) SELECT * FROM due", "SELECT", "due"},
		{"DELETE FROM quotation_items WHERE quotation_id = ?", "DELETE", "quotation_items"},
		{"", "UNKNOWN", ""},
	}
	for _, tc := range cases {
		operation, table := describeSQL(tc.sql)
		assert.Equal(t, tc.operation, operation, tc.sql)
		assert.Equal(t, tc.table, table, tc.sql)
	}
}

func TestParamsFilterDropsBoundValues(t *testing.T) {
	l := NewGormLogger(DefaultGormLoggerConfig())
	sql, params := l.ParamsFilter(context.Background(), "SELECT * FROM customers WHERE email = ?", "someone@example.com")
	assert.Equal(t, "SELECT * FROM customers WHERE email = ?", sql)
	assert.Nil(t, params)
}

func TestLogModeReturnsCopy(t *testing.T) {
	l := NewGormLogger(DefaultGormLoggerConfig())
	silent := l.LogMode(gormlogger.Silent).(*GormLogger)
	assert.Equal(t, gormlogger.Silent, silent.level)
	assert.Equal(t, gormlogger.Warn, l.level)
}
