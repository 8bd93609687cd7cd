package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotecraft/machine-quote-api/internal/models"
)

func TestQuotationCountForYear(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQuotationRepository(db)

	rows := sqlmock.NewRows([]string{"count"}).AddRow(7)
	mock.ExpectQuery("SELECT COUNT").WithArgs("QUO-2026-%").WillReturnRows(rows)

	count, err := repo.CountForYear(context.Background(), 2026)
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotationCreateVersionTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQuotationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE quotations SET is_latest_version = FALSE").
		WithArgs("q1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO quotations").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	parent := "q1"
	next := &models.Quotation{
		QuotationNumber:   "QUO-2026-001",
		UserID:            "u1",
		CustomerID:        "c1",
		Status:            models.QuotationDraft,
		Version:           2,
		ParentQuotationID: &parent,
		IsLatestVersion:   true,
		Currency:          "EUR",
	}
	err := repo.CreateVersion(context.Background(), "q1", next)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceCurrentConfiguration(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQuotationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE quotation_configurations SET is_current_version = FALSE").
		WithArgs("row1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO quotation_configurations").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	next := &models.QuotationConfiguration{
		QuotationID:       "q1",
		ConfigurationID:   "cf1",
		QuotationVersion:  2,
		IsCurrentVersion:  true,
		ChangeDescription: "Option changed",
	}
	err := repo.ReplaceCurrentConfiguration(context.Background(), "row1", next)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceCurrentConfigurationLostRace(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQuotationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE quotation_configurations SET is_current_version = FALSE").
		WithArgs("row1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	next := &models.QuotationConfiguration{
		QuotationID:      "q1",
		ConfigurationID:  "cf1",
		QuotationVersion: 2,
		IsCurrentVersion: true,
	}
	err := repo.ReplaceCurrentConfiguration(context.Background(), "row1", next)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotationDeleteRemovesConfigurationRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQuotationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM quotation_configurations").
		WithArgs("q1").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("DELETE FROM quotations").
		WithArgs("q1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), "q1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotationUpdateStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQuotationRepository(db)

	mock.ExpectExec("UPDATE quotations SET status").
		WithArgs("q1", models.QuotationSent, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "q1", models.QuotationSent)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotationFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQuotationRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "quotation_number", "title", "user_id", "customer_id", "machine_id", "status", "version", "parent_quotation_id", "is_latest_version", "version_notes", "total_price", "currency", "valid_until", "created_at", "updated_at"}).
		AddRow("q1", "QUO-2026-001", "Press line", "u1", "c1", nil, "DRAFT", 1, nil, true, "", 0.0, "EUR", nil, now, now)
	mock.ExpectQuery("SELECT .+ FROM quotations q WHERE q.id").
		WithArgs("q1").
		WillReturnRows(rows)

	quotation, err := repo.FindByID(context.Background(), "q1")
	require.NoError(t, err)
	assert.Equal(t, "QUO-2026-001", quotation.QuotationNumber)
	assert.True(t, quotation.IsLatestVersion)
	assert.NoError(t, mock.ExpectationsWereMet())
}
