package service

import (
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))
	fixedNow   = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func newMockDBAndTx(t *testing.T) (*sqlx.DB, *sqlx.Tx, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, smock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(mockDB, "sqlmock")

	smock.ExpectBegin()

	tx, err := sqlxDB.Beginx()
	require.NoError(t, err)

	return sqlxDB, tx, smock
}

// expectTx makes the next BeginTxx return a sqlmock transaction that must
// end in a commit or, with commit=false, a rollback.
func expectTx(t *testing.T, db *TransactorMock, commit bool) *sqlx.Tx {
	t.Helper()

	_, tx, smock := newMockDBAndTx(t)
	if commit {
		smock.ExpectCommit()
	} else {
		smock.ExpectRollback()
	}

	db.On("BeginTxx", mock.Anything, (*sql.TxOptions)(nil)).Return(tx, nil).Once()

	t.Cleanup(func() {
		require.NoError(t, smock.ExpectationsWereMet())
	})

	return tx
}

func newBase(db Transactor, notifier Notifier) BaseService {
	base := NewBaseService(db, notifier, nil, discardLog)
	base.now = func() time.Time { return fixedNow }
	return base
}
