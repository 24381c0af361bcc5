package postgres

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/siteproof/linkaudit/internal/report"
	"github.com/siteproof/linkaudit/internal/settings"
	"github.com/siteproof/linkaudit/internal/store"
)

func TestReportStoreSaveUpserts(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	tbl := report.Table{Headers: []string{"url"}, Rows: [][]string{{"u1"}}}
	payload, err := json.Marshal(tbl)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO report_tables").
		WithArgs(store.TablePrimaryLinks, payload).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = NewReportStore(mock).Save(context.Background(), store.TablePrimaryLinks, tbl)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportStoreLoadDecodesPayload(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	tbl := report.Table{Headers: []string{"url"}, Rows: [][]string{{"u1"}}}
	payload, err := json.Marshal(tbl)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT payload FROM report_tables").
		WithArgs(store.TablePrimaryLinks).
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(payload))

	got, err := NewReportStore(mock).Load(context.Background(), store.TablePrimaryLinks)
	require.NoError(t, err)
	require.Equal(t, tbl, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportStoreLoadMissingMapsToNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT payload FROM report_tables").
		WithArgs(store.TableFinalReport).
		WillReturnRows(pgxmock.NewRows([]string{"payload"}))

	_, err = NewReportStore(mock).Load(context.Background(), store.TableFinalReport)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSettingsStoreGetAndSet(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT value FROM audit_settings").
		WithArgs(settings.KeyPrimaryAuditID).
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow("a1"))
	mock.ExpectExec("INSERT INTO audit_settings").
		WithArgs(settings.KeyPrimaryReportID, "r1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s := NewSettingsStore(mock)
	v, err := s.Get(context.Background(), settings.KeyPrimaryAuditID)
	require.NoError(t, err)
	require.Equal(t, "a1", v)

	require.NoError(t, s.Set(context.Background(), settings.KeyPrimaryReportID, "r1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsStoreGetMissingMapsToErrNotSet(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT value FROM audit_settings").
		WithArgs(settings.KeyBrokenReportID).
		WillReturnRows(pgxmock.NewRows([]string{"value"}))

	_, err = NewSettingsStore(mock).Get(context.Background(), settings.KeyBrokenReportID)
	require.ErrorIs(t, err, settings.ErrNotSet)
}
