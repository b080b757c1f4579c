package postgresql

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestUniqueConstraint(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		constraint string
		ok         bool
	}{
		{"lib/pq", &pq.Error{Code: "23505", Constraint: "spots_code_key"}, "spots_code_key", true},
		{"pgx wrapped", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}), "users_username_key", true},
		{"other pq code", &pq.Error{Code: "23503"}, "", false},
		{"plain error", errors.New("boom"), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			constraint, ok := uniqueConstraint(tt.err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.constraint, constraint)
		})
	}
}
