package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"pg unique", &pgconn.PgError{Code: "23505"}, true},
		{"wrapped pg unique", fmt.Errorf("save order: %w", &pgconn.PgError{Code: "23505"}), true},
		{"other pg code", &pgconn.PgError{Code: "23503", Message: "duplicate key"}, false},
		{"plain text", errors.New("duplicate key value violates unique constraint"), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isUniqueViolation(tc.err))
		})
	}
}
