package postgres

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/domain"
)

func TestMapErr(t *testing.T) {
	assert.NoError(t, mapErr(nil))
	assert.ErrorIs(t, mapErr(pgx.ErrNoRows), domain.ErrNotFound)
	assert.ErrorIs(t, mapErr(fmt.Errorf("scan: %w", pgx.ErrNoRows)), domain.ErrNotFound)

	dup := &pgconn.PgError{
		Code:           "23505",
		Message:        `duplicate key value violates unique constraint "profiles_slug_key"`,
		ConstraintName: "profiles_slug_key",
	}
	err := mapErr(dup)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.True(t, domain.IsSlugConflict(err))
	assert.Contains(t, err.Error(), "profiles_slug_key")

	other := errors.New("connection reset")
	assert.Equal(t, other, mapErr(other))

	fk := &pgconn.PgError{Code: "23503", Message: "foreign key violation"}
	assert.NotErrorIs(t, mapErr(fk), domain.ErrConflict)
}

func TestSchemaCoversEveryTable(t *testing.T) {
	for _, table := range []string{"accounts", "profiles", "places", "pins", "memories", "media"} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table+" ")
	}
	assert.True(t, strings.Contains(schema, "profiles_slug_key ON profiles (lower(slug))"))
}
