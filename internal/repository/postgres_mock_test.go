package repository

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extract/constants"
	"github.com/joseph-ayodele/invoice-extract/internal/common"
)

func newMockPostgres(t *testing.T, monitorPings bool) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(monitorPings))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqldb.Close() })
	return &DB{SQL: sqldb, Dialect: Postgres, logger: slog.Default()}, mock
}

func documentColumnNames() []string {
	cols := strings.Split(documentColumns, ",")
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}
	return cols
}

func documentRow(id uuid.UUID, hash string) *sqlmock.Rows {
	ts := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC).Format(tsLayout)
	return sqlmock.NewRows(documentColumnNames()).AddRow(
		id.String(), hash, "/in/a.md", constants.TEXT, int64(120), "EXTRACTED", "", "raw text",
		"Invoice", "118", "14-10-2026", "", "",
		"EQMS Consulting Limited", "", "", "",
		"", "", "", "", "",
		0.0, 0.0, 0.0, 41000.0, "USD", `{"total":95}`,
		ts, ts,
	)
}

func TestPostgres_GetByHash(t *testing.T) {
	db, mock := newMockPostgres(t, false)
	repo := NewDocumentRepository(db, nil)
	id := uuid.New()

	mock.ExpectQuery(`FROM documents WHERE content_hash = \$1 LIMIT 1`).
		WithArgs("abc").
		WillReturnRows(documentRow(id, "abc"))
	mock.ExpectQuery(`FROM line_items WHERE document_id = \$1 ORDER BY line_no`).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows([]string{"sl_no", "name", "quantity", "unit_price", "amount"}).
			AddRow(1, "Air Quality Monitoring", 4, 5000.0, 20000.0))

	doc, err := repo.GetByHash(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, id, doc.ID)
	assert.Equal(t, constants.DocumentStatusExtracted, doc.Status)
	assert.Equal(t, 41000.0, doc.Fields.TotalAmount)
	assert.Equal(t, 95, doc.Fields.Confidence["total"])
	require.Len(t, doc.Fields.Items, 1)
	assert.Equal(t, "Air Quality Monitoring", doc.Fields.Items[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetByHashNotFound(t *testing.T) {
	db, mock := newMockPostgres(t, false)
	repo := NewDocumentRepository(db, nil)

	mock.ExpectQuery(`FROM documents WHERE content_hash = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(documentColumnNames()))

	_, err := repo.GetByHash(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_QueryErrorIsDatabaseError(t *testing.T) {
	db, mock := newMockPostgres(t, false)
	repo := NewDocumentRepository(db, nil)

	mock.ExpectQuery(`FROM documents WHERE id = \$1`).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrDatabase)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPostgres_SaveInsertsDocumentAndItems(t *testing.T) {
	db, mock := newMockPostgres(t, false)
	repo := NewDocumentRepository(db, nil)
	fields := sampleFields()
	require.Len(t, fields.Items, 2)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM documents WHERE content_hash = \$1 LIMIT 1`).
		WithArgs("h1").
		WillReturnRows(sqlmock.NewRows(documentColumnNames()))
	mock.ExpectExec(`(?s)INSERT INTO documents.*\$30\)`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`(?s)INSERT INTO line_items.*\$7\)`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`(?s)INSERT INTO line_items.*\$7\)`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	doc, dedup, err := repo.Save(context.Background(), SaveRequest{
		ContentHash:  "h1",
		SourcePath:   "/in/a.md",
		SourceFormat: constants.TEXT,
		Fields:       fields,
	})
	require.NoError(t, err)
	assert.False(t, dedup)
	assert.Equal(t, constants.DocumentStatusExtracted, doc.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveExistingHashRollsBack(t *testing.T) {
	db, mock := newMockPostgres(t, false)
	repo := NewDocumentRepository(db, nil)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM documents WHERE content_hash = \$1 LIMIT 1`).
		WithArgs("h1").
		WillReturnRows(documentRow(id, "h1"))
	mock.ExpectQuery(`FROM line_items WHERE document_id = \$1`).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows([]string{"sl_no", "name", "quantity", "unit_price", "amount"}))
	mock.ExpectRollback()

	doc, dedup, err := repo.Save(context.Background(), SaveRequest{ContentHash: "h1", Fields: sampleFields()})
	require.NoError(t, err)
	assert.True(t, dedup)
	assert.Equal(t, id, doc.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveInsertFailure(t *testing.T) {
	db, mock := newMockPostgres(t, false)
	repo := NewDocumentRepository(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM documents WHERE content_hash = \$1`).
		WillReturnRows(sqlmock.NewRows(documentColumnNames()))
	mock.ExpectExec(`INSERT INTO documents`).
		WillReturnError(errors.New("duplicate key value violates unique constraint"))
	mock.ExpectRollback()

	_, _, err := repo.Save(context.Background(), SaveRequest{ContentHash: "h1", Fields: sampleFields()})
	assert.ErrorIs(t, err, common.ErrDatabase)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheck_PingFailure(t *testing.T) {
	db, mock := newMockPostgres(t, true)
	mock.ExpectPing().WillReturnError(errors.New("no route to host"))

	err := db.HealthCheck(context.Background(), time.Second)
	assert.ErrorIs(t, err, common.ErrDatabase)
	assert.NoError(t, mock.ExpectationsWereMet())
}
