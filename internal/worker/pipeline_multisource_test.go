package worker

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestRunMultiSource_DryRunSkipsEnqueue(t *testing.T) {
	rt, mock := newMockRuntime(t)
	p := &MultiSourcePayload{DryRun: true, Sources: []MultiSourceEntry{{SourceID: 1}}}

	err := runMultiSource(context.Background(), rt, p)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMultiSource_EnqueuesOneSourceJobPerEntry(t *testing.T) {
	rt, mock := newMockRuntime(t)
	mock.ExpectQuery(`INSERT INTO scrape_jobs`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(`INSERT INTO scrape_jobs`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))

	p := &MultiSourcePayload{Sources: []MultiSourceEntry{
		{SourceID: 10, SourceTable: "bighippo_sources", Limit: 100},
		{SourceID: 11, SourceTable: "bighippo_sources", Limit: 100},
	}}

	err := runMultiSource(context.Background(), rt, p)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
