package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"jobscout/internal/pipeline"
)

func testRow(title, url string) pipeline.StoreRow {
	p := pipeline.Posting{
		Title:       title,
		Company:     "Acme",
		Location:    "Pune",
		ApplyURL:    url,
		Source:      pipeline.SourceTimesJobs,
		ScrapedDate: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		Fingerprint: pipeline.Fingerprint(title, "Acme", url),
	}
	return pipeline.NewStoreRow(p)
}

func TestEnsureSchemaIsIdempotentSQL(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "postings")
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS postings").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendRowsInsertsInOrder(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "postings")
	require.NoError(t, err)

	first := testRow("First", "https://acme.example/1")
	second := testRow("Second", "https://acme.example/2")

	for _, row := range []pipeline.StoreRow{first, second} {
		mock.ExpectExec("INSERT INTO postings").
			WithArgs(
				row.Fingerprint,
				row.Title,
				row.Company,
				row.Location,
				row.ApplyURL,
				string(row.Source),
				(*time.Time)(nil),
				row.ScrapedDate,
				row.Salary,
				row.Status,
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	written, err := store.AppendRows(context.Background(), []pipeline.StoreRow{first, second})
	require.NoError(t, err)
	require.Equal(t, 2, written)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendRowsReportsPartialWrites(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "postings")
	require.NoError(t, err)

	first := testRow("First", "https://acme.example/1")
	second := testRow("Second", "https://acme.example/2")

	mock.ExpectExec("INSERT INTO postings").
		WithArgs(
			first.Fingerprint, first.Title, first.Company, first.Location,
			first.ApplyURL, string(first.Source), (*time.Time)(nil),
			first.ScrapedDate, first.Salary, first.Status,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO postings").
		WithArgs(
			second.Fingerprint, second.Title, second.Company, second.Location,
			second.ApplyURL, string(second.Source), (*time.Time)(nil),
			second.ScrapedDate, second.Salary, second.Status,
		).
		WillReturnError(errors.New("connection reset"))

	written, err := store.AppendRows(context.Background(), []pipeline.StoreRow{first, second})
	require.Error(t, err)
	require.Equal(t, 1, written)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewWithPoolRejectsBadTableName(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewWithPool(mock, "postings; DROP TABLE postings")
	require.Error(t, err)
}

func TestReadAllScansRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "postings")
	require.NoError(t, err)

	scraped := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	posted := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT fingerprint, title, company").
		WillReturnRows(pgxmock.NewRows([]string{
			"fingerprint", "title", "company", "location", "apply_url",
			"source", "posted_date", "scraped_date", "salary", "status",
		}).AddRow(
			"fp-1", "SAP Consultant", "Acme", "Pune", "https://acme.example/1",
			"timesjobs", &posted, scraped, "", "Interviewing",
		))

	rows, err := store.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "fp-1", rows[0].Fingerprint)
	require.Equal(t, "Interviewing", rows[0].Status)
	require.Equal(t, posted, rows[0].PostedDate)
	require.NoError(t, mock.ExpectationsWereMet())
}
