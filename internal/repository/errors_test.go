package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapPgError(t *testing.T) {
	plain := errors.New("boom")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"unique", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, ErrAlreadyExists},
		{"foreign key", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, ErrConflict},
		{"check", &pgconn.PgError{Code: pgerrcode.CheckViolation}, ErrInvalidArgument},
		{"too many connections", &pgconn.PgError{Code: pgerrcode.TooManyConnections}, ErrUnavailable},
		{"admin shutdown", &pgconn.PgError{Code: pgerrcode.AdminShutdown}, ErrUnavailable},
		{"passthrough", plain, plain},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := MapPgError(tc.in)
			if tc.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tc.want)
		})
	}
}

func TestMapPgError_UnknownCodePassesThrough(t *testing.T) {
	in := &pgconn.PgError{Code: pgerrcode.DivisionByZero}
	assert.Same(t, error(in), MapPgError(in))
}
