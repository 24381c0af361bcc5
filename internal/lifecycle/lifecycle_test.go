package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/siteproof/linkaudit/internal/remote"
	"github.com/siteproof/linkaudit/internal/settings"
)

// fakeRemote counts calls and records the last payloads, in lieu of the real
// client.
type fakeRemote struct {
	createReportCalls int
	createAuditCalls  int
	saveAuditCalls    int
	runAuditCalls     int

	audits        map[string]remote.Audit
	lastReportDef remote.SavedReport
	lastSaved     remote.Audit
	runErr        error
	saveErr       error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{audits: make(map[string]remote.Audit)}
}

func (f *fakeRemote) GetSavedReport(context.Context, string) (remote.SavedReport, error) {
	return remote.SavedReport{}, nil
}

func (f *fakeRemote) CreateSavedReport(_ context.Context, def remote.SavedReport) (remote.SavedReport, error) {
	f.createReportCalls++
	f.lastReportDef = def
	def.ID = "report-new"
	return def, nil
}

func (f *fakeRemote) GetAudit(_ context.Context, id string) (remote.Audit, error) {
	audit, ok := f.audits[id]
	if !ok {
		return remote.Audit{}, &remote.Error{Status: 404, Body: "no such audit"}
	}
	return audit, nil
}

func (f *fakeRemote) CreateAudit(_ context.Context, audit remote.Audit) (remote.Audit, error) {
	f.createAuditCalls++
	audit.ID = "audit-new"
	f.audits[audit.ID] = audit
	return audit, nil
}

func (f *fakeRemote) SaveAudit(_ context.Context, audit remote.Audit) error {
	f.saveAuditCalls++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.lastSaved = audit
	f.audits[audit.ID] = audit
	return nil
}

func (f *fakeRemote) RunAudit(context.Context, string) (string, error) {
	f.runAuditCalls++
	if f.runErr != nil {
		return "", f.runErr
	}
	return "run-1", nil
}

func newTestManager(api RemoteAPI, seed map[string]string) (*Manager, *settings.MemoryStore) {
	st := settings.NewMemoryStore(seed)
	return NewManager(api, st, nil, nil), st
}

func TestEnsurePrimaryReportIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	api := newFakeRemote()
	m, st := newTestManager(api, map[string]string{
		settings.KeyPrimaryAuditID: "audit-primary",
	})

	first, err := m.EnsurePrimaryReport(ctx)
	require.NoError(t, err)
	require.True(t, first.Created)
	require.Equal(t, "report-new", first.ID)

	// Creation persisted the ID; the second call must short-circuit.
	second, err := m.EnsurePrimaryReport(ctx)
	require.NoError(t, err)
	require.False(t, second.Created)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 1, api.createReportCalls)

	stored, err := st.Get(ctx, settings.KeyPrimaryReportID)
	require.NoError(t, err)
	require.Equal(t, "report-new", stored)
}

func TestEnsurePrimaryReportRequiresPrimaryAuditID(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(newFakeRemote(), nil)
	_, err := m.EnsurePrimaryReport(context.Background())
	var cfgErr *settings.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, settings.KeyPrimaryAuditID, cfgErr.Key)
}

func TestEnsureSecondaryAuditClonesPrimary(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	api := newFakeRemote()
	api.audits["audit-primary"] = remote.Audit{
		ID:         "audit-primary",
		Name:       "example.com",
		DomainID:   "dom-1",
		FolderID:   "folder-1",
		Recipients: []string{"ops@example.com"},
	}
	m, _ := newTestManager(api, map[string]string{
		settings.KeyPrimaryAuditID: "audit-primary",
	})

	res, err := m.EnsureSecondaryAudit(ctx)
	require.NoError(t, err)
	require.True(t, res.Created)

	created := api.audits[res.ID]
	require.Equal(t, "dom-1", created.DomainID)
	require.Equal(t, "folder-1", created.FolderID)
	require.Equal(t, []string{"ops@example.com"}, created.Recipients)
	require.Empty(t, created.StartingURLs)
	require.NotNil(t, created.Schedule)
	require.True(t, created.Schedule.RunOnce)

	// Second call must not create another audit.
	again, err := m.EnsureSecondaryAudit(ctx)
	require.NoError(t, err)
	require.False(t, again.Created)
	require.Equal(t, 1, api.createAuditCalls)
}

func TestEnsureSecondaryReportExcludesBotBlockingCodes(t *testing.T) {
	t.Parallel()

	api := newFakeRemote()
	m, _ := newTestManager(api, map[string]string{
		settings.KeySecondaryAuditID: "audit-secondary",
	})

	_, err := m.EnsureSecondaryReport(context.Background())
	require.NoError(t, err)

	var excluded []any
	for _, f := range api.lastReportDef.Query.Filters {
		if f.Field == remote.ColStatusCode && f.Op == "ne" {
			excluded = append(excluded, f.Value)
		}
	}
	require.ElementsMatch(t, []any{403, 429}, excluded)
}

func TestUpdateAndTriggerReplacesURLs(t *testing.T) {
	t.Parallel()

	api := newFakeRemote()
	api.audits["audit-secondary"] = remote.Audit{
		ID:           "audit-secondary",
		StartingURLs: []string{"http://a.com", "http://b.com"},
		Limit:        2,
		CreatedAt:    "2024-01-01T00:00:00Z",
	}
	m, _ := newTestManager(api, map[string]string{
		settings.KeySecondaryAuditID: "audit-secondary",
	})

	runID, err := m.UpdateAndTriggerSecondaryAudit(context.Background(), []string{"http://c.com", "http://d.com"})
	require.NoError(t, err)
	require.Equal(t, "run-1", runID)

	// Full replacement, never accumulation.
	require.Equal(t, []string{"http://c.com", "http://d.com"}, api.lastSaved.StartingURLs)
	require.Equal(t, 2, api.lastSaved.Limit)
	require.Equal(t, 1, api.saveAuditCalls)
	require.Equal(t, 1, api.runAuditCalls)
}

func TestUpdateAndTriggerSurfacesRunFailureDistinctly(t *testing.T) {
	t.Parallel()

	api := newFakeRemote()
	api.audits["audit-secondary"] = remote.Audit{ID: "audit-secondary"}
	api.runErr = errors.New("rate limited")
	m, _ := newTestManager(api, map[string]string{
		settings.KeySecondaryAuditID: "audit-secondary",
	})

	_, err := m.UpdateAndTriggerSecondaryAudit(context.Background(), []string{"http://c.com"})
	var trigErr *RunTriggerError
	require.ErrorAs(t, err, &trigErr)
	require.Equal(t, "audit-secondary", trigErr.AuditID)
	require.Equal(t, 1, api.saveAuditCalls)
}

func TestUpdateAndTriggerSaveFailureIsNotRunTriggerError(t *testing.T) {
	t.Parallel()

	api := newFakeRemote()
	api.audits["audit-secondary"] = remote.Audit{ID: "audit-secondary"}
	api.saveErr = errors.New("boom")
	m, _ := newTestManager(api, map[string]string{
		settings.KeySecondaryAuditID: "audit-secondary",
	})

	_, err := m.UpdateAndTriggerSecondaryAudit(context.Background(), []string{"http://c.com"})
	require.Error(t, err)
	var trigErr *RunTriggerError
	require.False(t, errors.As(err, &trigErr))
	require.Equal(t, 0, api.runAuditCalls)
}

func TestConfigureWebhookSubscriptions(t *testing.T) {
	t.Parallel()

	api := newFakeRemote()
	api.audits["audit-primary"] = remote.Audit{ID: "audit-primary"}
	api.audits["audit-secondary"] = remote.Audit{ID: "audit-secondary"}
	m, _ := newTestManager(api, map[string]string{
		settings.KeyPrimaryAuditID:   "audit-primary",
		settings.KeySecondaryAuditID: "audit-secondary",
		settings.KeyWebhookBaseURL:   "https://audits.example.com/v1/webhooks/audit",
	})

	require.NoError(t, m.ConfigureWebhookSubscriptions(context.Background()))
	require.Equal(t, 2, api.saveAuditCalls)
	require.Contains(t, api.audits["audit-primary"].Options.WebhookURL, "stage=primary")
	require.Contains(t, api.audits["audit-secondary"].Options.WebhookURL, "stage=secondary")
}

func TestWebhookURLPreservesExistingQuery(t *testing.T) {
	t.Parallel()

	u, err := WebhookURL("https://host/api?tenant=t1", StageParamSecondary)
	require.NoError(t, err)
	require.Contains(t, u, "tenant=t1")
	require.Contains(t, u, "stage=secondary")
}
