package persistence

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// mockDatabase wraps a sqlmock connection in our Database type. Pings
// are monitored so Ping expectations can be asserted.
func mockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	// GORM pings once while opening.
	mock.ExpectPing()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return &Database{DB: gormDB}, mock, mockDB
}

func TestDatabasePing(t *testing.T) {
	db, mock, mockDB := mockDatabase(t)
	defer mockDB.Close()

	mock.ExpectPing()

	require.NoError(t, db.Ping())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabasePingReportsFailure(t *testing.T) {
	db, mock, mockDB := mockDatabase(t)
	defer mockDB.Close()

	mock.ExpectPing().WillReturnError(assert.AnError)

	assert.Error(t, db.Ping())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseClose(t *testing.T) {
	db, mock, _ := mockDatabase(t)

	mock.ExpectClose()

	require.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
