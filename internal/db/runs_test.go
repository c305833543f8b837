package db

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRun() *Run {
	return &Run{
		ID:               "01JABCDEF0123456789ABCDEFG",
		Tag:              "weekly",
		Title:            "leads",
		SourcePath:       "/data/leads.csv",
		TotalLeads:       3,
		MultiLead:        1,
		Returning:        1,
		ThresholdSeconds: 259200,
		CreatedAt:        1700000000,
		Customers: []RunCustomer{
			{
				ID:           "2c1f6a3e-0c7b-5a43-9d36-6d0b1f1a2b3c",
				Name:         "Alice",
				Phone:        "555-1",
				LeadCount:    2,
				Multi:        true,
				Returning:    true,
				DriftSeconds: 777600,
				Leads: []RunLead{
					{PostalCode: "12345", Delivery: "pickup", Size: "L", City: "Springfield", SubmittedAt: 1672567200},
					{PostalCode: "12345", Delivery: "pickup", Size: "L", City: "Springfield", SubmittedAt: 1673344800},
				},
			},
			{
				ID:        "9a8b7c6d-5e4f-5a3b-8c2d-1e0f9a8b7c6d",
				Name:      "Bob",
				Phone:     "555-2",
				LeadCount: 1,
				Leads: []RunLead{
					{City: "Shelbyville", SubmittedAt: 1672567200},
				},
			},
		},
	}
}

func TestSaveRun_SQLite(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveRun(ctx, sampleRun()))

	n, err := store.CountRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var customers, leads, returning int
	require.NoError(t, store.DB.QueryRow("SELECT COUNT(*) FROM scan_customers").Scan(&customers))
	require.NoError(t, store.DB.QueryRow("SELECT COUNT(*) FROM scan_leads").Scan(&leads))
	require.NoError(t, store.DB.QueryRow("SELECT COUNT(*) FROM scan_customers WHERE is_returning = 1").Scan(&returning))
	assert.Equal(t, 2, customers)
	assert.Equal(t, 3, leads)
	assert.Equal(t, 1, returning)

	var count int
	require.NoError(t, store.DB.QueryRow("SELECT customer_count FROM scan_runs").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestSaveRun_SQLite_DuplicateRollsBack(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	run := sampleRun()
	require.NoError(t, store.SaveRun(ctx, run))

	// Same customer twice in one run violates the (run_id, customer_id) key.
	dup := sampleRun()
	dup.ID = "01JABCDEF0123456789ABCDEFH"
	dup.Customers = append(dup.Customers, dup.Customers[0])
	require.Error(t, store.SaveRun(ctx, dup))

	n, err := store.CountRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "failed run must not be partially stored")

	var leads int
	require.NoError(t, store.DB.QueryRow("SELECT COUNT(*) FROM scan_leads").Scan(&leads))
	assert.Equal(t, 3, leads)
}

func TestSaveRun_RequiresID(t *testing.T) {
	store := &Store{Dialect: SQLite}
	assert.Error(t, store.SaveRun(context.Background(), &Run{}))
	assert.Error(t, store.SaveRun(context.Background(), nil))
}

func TestSaveRun_Postgres(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewStore(sqlDB, Postgres, "leadscan")
	run := sampleRun()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO leadscan.scan_runs")).
		WithArgs(run.ID, "weekly", "leads", "/data/leads.csv", 3, 2, 1, 1, int64(259200), int64(1700000000)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	alice := run.Customers[0]
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO leadscan.scan_customers")).
		WithArgs(run.ID, alice.ID, 0, "Alice", "555-1", 2, true, true, int64(777600)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	for i, l := range alice.Leads {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO leadscan.scan_leads")).
			WithArgs(sqlmock.AnyArg(), run.ID, alice.ID, i, "12345", "pickup", "L", "Springfield", l.SubmittedAt).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}

	bob := run.Customers[1]
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO leadscan.scan_customers")).
		WithArgs(run.ID, bob.ID, 1, "Bob", "555-2", 1, false, false, int64(0)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)")).
		WithArgs(sqlmock.AnyArg(), run.ID, bob.ID, 0, nil, nil, nil, "Shelbyville", int64(1672567200)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, store.SaveRun(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRun_Postgres_RollbackOnError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewStore(sqlDB, Postgres, "leadscan")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO leadscan.scan_runs")).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err = store.SaveRun(context.Background(), sampleRun())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountRuns_Postgres(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewStore(sqlDB, Postgres, "leadscan")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM leadscan.scan_runs")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := store.CountRuns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
