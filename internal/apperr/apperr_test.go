package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestKindOf(t *testing.T) {
	errInvalid := Validation("invalid_quantity")

	assert.Equal(t, KindValidation, KindOf(errInvalid))
	assert.Equal(t, KindValidation, KindOf(fmt.Errorf("price line: %w", errInvalid)))
	assert.Equal(t, KindNotFound, KindOf(gorm.ErrRecordNotFound))
	assert.Equal(t, KindStorage, KindOf(errors.New("connection reset by peer")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestSentinelIdentity(t *testing.T) {
	errA := Conflict("usage_limit_reached")
	errB := Conflict("usage_limit_reached")

	assert.ErrorIs(t, fmt.Errorf("apply: %w", errA), errA)
	assert.NotErrorIs(t, errA, errB)
	assert.Equal(t, "usage_limit_reached", CodeOf(errA))
	assert.Equal(t, "storage_error", CodeOf(errors.New("boom")))
	assert.True(t, Is(errA, KindConflict))
}
