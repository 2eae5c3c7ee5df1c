package products

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestForeignKeyViolationDetection(t *testing.T) {
	fkErr := &pgconn.PgError{Code: "23503"}
	assert.True(t, isForeignKeyViolation(fkErr))
	assert.True(t, isForeignKeyViolation(fmt.Errorf("failed to delete stale variants: %w", fkErr)))

	assert.False(t, isForeignKeyViolation(errors.New("connection reset")))
	assert.False(t, isForeignKeyViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isForeignKeyViolation(nil))
}
