package duckdb

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapflow/pkg/connector"
	"github.com/leapstack-labs/leapflow/pkg/value"
)

func mockedConnector(t *testing.T) (*Connector, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	c := New(nil)
	c.DB = db
	return c, mock
}

func fileSource(path string) connector.SourceSpec {
	params := &value.Object{}
	params.Set("path", value.String(path))
	return connector.SourceSpec{Type: "csv", Params: params}
}

func TestConnector_DialectName(t *testing.T) {
	assert.Equal(t, "duckdb", New(nil).DialectName())
}

func TestConnector_IngestCSVReplace(t *testing.T) {
	c, mock := mockedConnector(t)

	want := "CREATE OR REPLACE TABLE raw_events AS SELECT * FROM read_csv('data/events.csv')"
	mock.ExpectExec(regexp.QuoteMeta(want)).WillReturnResult(sqlmock.NewResult(0, 0))

	err := c.Ingest(context.Background(), "raw_events", "replace", fileSource("data/events.csv"))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnector_IngestCSVAppend(t *testing.T) {
	c, mock := mockedConnector(t)

	want := "INSERT INTO raw_events SELECT * FROM read_csv('data/events.csv')"
	mock.ExpectExec(regexp.QuoteMeta(want)).WillReturnResult(sqlmock.NewResult(0, 0))

	err := c.Ingest(context.Background(), "raw_events", "APPEND", fileSource("data/events.csv"))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnector_IngestPostgresSource(t *testing.T) {
	c, mock := mockedConnector(t)

	params := &value.Object{}
	params.Set("dsn", value.String("postgres://localhost/app"))
	source := connector.SourceSpec{Type: "postgres", Params: params}

	attach := "INSTALL postgres; LOAD postgres; ATTACH IF NOT EXISTS 'postgres://localhost/app' AS src_raw_events (TYPE postgres, READ_ONLY);"
	copySQL := "CREATE OR REPLACE TABLE raw_events AS SELECT * FROM src_raw_events.public.raw_events"
	mock.ExpectExec(regexp.QuoteMeta(attach)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(copySQL)).WillReturnResult(sqlmock.NewResult(0, 0))

	err := c.Ingest(context.Background(), "raw_events", "", source)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnector_IngestUnsupportedSourceType(t *testing.T) {
	c, _ := mockedConnector(t)

	err := c.Ingest(context.Background(), "t", "replace", connector.SourceSpec{Type: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `source type "mysql" is not supported by the duckdb connector`)
}

func TestConnector_IngestUnsupportedMode(t *testing.T) {
	c, _ := mockedConnector(t)

	err := c.Ingest(context.Background(), "t", "merge", fileSource("x.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported load mode")
}

func TestConnector_IngestNotConnected(t *testing.T) {
	err := New(nil).Ingest(context.Background(), "t", "replace", fileSource("x.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not established")
}

func TestConnector_Export(t *testing.T) {
	c, mock := mockedConnector(t)

	want := "COPY (SELECT * FROM daily) TO 'out/daily.csv' (FORMAT csv, HEADER true)"
	mock.ExpectExec(regexp.QuoteMeta(want)).WillReturnResult(sqlmock.NewResult(0, 0))

	err := c.Export(context.Background(), "SELECT * FROM daily", "out/daily.csv", "csv", nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnector_ExportNotConnected(t *testing.T) {
	err := New(nil).Export(context.Background(), "SELECT 1", "out.csv", "csv", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not established")
}
