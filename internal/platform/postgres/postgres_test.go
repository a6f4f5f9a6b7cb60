package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestViolationHelpers(t *testing.T) {
	unique := fmt.Errorf("insert case: %w", &pq.Error{Code: "23505", Constraint: "uq_hiring_cases_open_national_id"})
	fk := &pq.Error{Code: "23503"}

	assert.True(t, IsUniqueViolation(unique))
	assert.Equal(t, "uq_hiring_cases_open_national_id", ConstraintName(unique))
	assert.False(t, IsUniqueViolation(fk))
	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsUniqueViolation(errors.New("plain")))
	assert.Empty(t, ConstraintName(errors.New("plain")))
}

func TestEmbeddedScripts(t *testing.T) {
	assert.Contains(t, initMigrationUp, "uq_hiring_cases_open_national_id")
	assert.Contains(t, initMigrationDown, "DROP TABLE IF EXISTS hiring_cases")
}
