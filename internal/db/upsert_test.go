package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsertEmptyRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "acquirers",
		Columns:      []string{"id", "name"},
		ConflictKeys: []string{"id"},
	}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsertValidation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := [][]any{{"a", "Alpha"}}

	_, err = BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "acquirers",
		ConflictKeys: []string{"id"},
	}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns")

	_, err = BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:   "acquirers",
		Columns: []string{"id", "name"},
	}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys")
}

func TestBulkUpsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_acquirers" \(LIKE "acquirers" INCLUDING DEFAULTS\)`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_acquirers"}, []string{"id", "name", "data"}).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "acquirers" .* ON CONFLICT \("id"\) DO UPDATE SET "name" = EXCLUDED."name", "data" = EXCLUDED."data"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "acquirers",
		Columns:      []string{"id", "name", "data"},
		ConflictKeys: []string{"id"},
	}, [][]any{
		{"a", "Alpha", []byte(`{}`)},
		{"b", "Beta", []byte(`{}`)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSanitizeTable(t *testing.T) {
	assert.Equal(t, `"acquirers"`, sanitizeTable("acquirers"))
	assert.Equal(t, `"public"."deals"`, sanitizeTable("public.deals"))
	assert.Equal(t, `"bad""name"`, sanitizeTable(`bad"name`))
}

func TestQuoteAndJoin(t *testing.T) {
	assert.Equal(t, `"id", "name"`, quoteAndJoin([]string{"id", "name"}))
	assert.Equal(t, `"drop table;--"`, quoteAndJoin([]string{"drop table;--"}))
}

func TestBulkUpsertConflictKeysOnly(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_links"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_links"}, []string{"a", "b"}).
		WillReturnResult(1)
	// Every column is a conflict key, so conflicts are no-ops.
	mock.ExpectExec(`INSERT INTO "links" .* ON CONFLICT \("a", "b"\) DO NOTHING`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "links",
		Columns:      []string{"a", "b"},
		ConflictKeys: []string{"a", "b"},
	}, [][]any{{"x", "y"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
