package leadsync

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jordanlanch/leadsync/pkg/assignment"
	"github.com/jordanlanch/leadsync/pkg/cache"
	"github.com/jordanlanch/leadsync/pkg/crm"
	"github.com/jordanlanch/leadsync/pkg/database/dbtest"
	"github.com/jordanlanch/leadsync/pkg/fieldmap"
	"github.com/jordanlanch/leadsync/pkg/leadowner"
	"github.com/jordanlanch/leadsync/pkg/leads"
	"github.com/jordanlanch/leadsync/pkg/models"
	"github.com/jordanlanch/leadsync/pkg/rules"
	"github.com/jordanlanch/leadsync/pkg/store"
	"github.com/jordanlanch/leadsync/pkg/testdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	mappingName = "Zoho to ERPNext"
	alice       = "alice@example.com"
)

type mockStatus struct {
	mock.Mock
}

func (m *mockStatus) UpdateLeadStatus(ctx context.Context, leadID, status string) error {
	args := m.Called(ctx, leadID, status)
	return args.Error(0)
}

type fixture struct {
	store     *store.Store
	status    *mockStatus
	engine    *Engine
	processor *Processor
	rules     *rules.Service
	cache     *cache.Client
}

func setup(t *testing.T, withLocker bool) *fixture {
	t.Helper()
	ctx := context.Background()

	st := store.New(dbtest.Open(t))
	require.NoError(t, st.UpsertUser(ctx, &models.User{ID: alice, FullName: "Alice Smith", Enabled: true}))

	svc := leads.NewService(st, nil,
		assignment.NewEngine(st, nil),
		leadowner.NewService(st, leadowner.ModeAssignmentAware, nil),
	)
	status := &mockStatus{}
	mapper := fieldmap.NewMapper(fieldmap.DefaultTables(), st, nil, nil)
	engine := NewEngine(st, svc, mapper, status, mappingName, nil, nil)

	f := &fixture{store: st, status: status, engine: engine, rules: rules.NewService(st, nil)}
	if withLocker {
		mr := miniredis.RunT(t)
		c, err := cache.NewClient("redis://" + mr.Addr())
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })
		f.cache = c
		f.processor = NewProcessor(st, engine, status, c, time.Minute, nil, nil)
	} else {
		f.processor = NewProcessor(st, engine, status, nil, time.Minute, nil, nil)
	}
	return f
}

func (f *fixture) acceptAllCallbacks() {
	f.status.On("UpdateLeadStatus", mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func (f *fixture) queue(t *testing.T, data string, integrationID string) *models.IntegrationLog {
	t.Helper()
	entry := &models.IntegrationLog{Data: data, IntegrationID: integrationID}
	require.NoError(t, f.store.InsertLog(context.Background(), entry))
	return entry
}

func encode(t *testing.T, payload map[string]any) string {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return string(raw)
}

type failingReceiverStore struct{}

func (failingReceiverStore) HasSyncedLead(context.Context, string) (bool, error) {
	return false, errors.New("database is locked")
}

func (failingReceiverStore) InsertLog(context.Context, *models.IntegrationLog) error {
	return errors.New("database is locked")
}

func TestReceiver_Receive(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - payload is queued as Pending", func(t *testing.T) {
		f := setup(t, false)
		r := NewReceiver(f.store, nil, nil, nil)

		resp := r.Receive(ctx, map[string]any{"id": "ext-1", "first_name": "Ada", "Lead_Sync_Status": "-None-"})
		assert.Equal(t, models.WebhookStatusSuccess, resp.Status)
		assert.Equal(t, "Lead logged and queued", resp.Message)

		logs, err := f.store.ListLogs(ctx, models.IntegrationLogFilter{})
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, models.LogStatusPending, logs[0].Status)
		assert.Equal(t, "ext-1", logs[0].IntegrationID)
		assert.JSONEq(t, `{"id":"ext-1","first_name":"Ada","Lead_Sync_Status":"-None-"}`, logs[0].Data)
	})

	t.Run("Success - empty payload is still logged", func(t *testing.T) {
		f := setup(t, false)
		r := NewReceiver(f.store, nil, nil, nil)

		resp := r.Receive(ctx, nil)
		assert.Equal(t, models.WebhookStatusSuccess, resp.Status)

		n, err := f.store.CountLogs(ctx, models.LogStatusPending)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	for _, status := range []string{crm.StatusCompleted, crm.StatusLeadCreated, crm.StatusFailed} {
		t.Run("Skipped - terminal sync status "+status, func(t *testing.T) {
			f := setup(t, false)
			r := NewReceiver(f.store, nil, nil, nil)

			resp := r.Receive(ctx, map[string]any{"id": "ext-1", SyncStatusField: status})
			assert.Equal(t, models.WebhookStatusSkipped, resp.Status)
			assert.Equal(t, "Webhook ignored. Lead already processed in CRM ("+status+").", resp.Message)

			n, err := f.store.CountLogs(ctx, "")
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}

	t.Run("Skipped - lead already synced", func(t *testing.T) {
		f := setup(t, false)
		require.NoError(t, f.store.InsertLead(ctx, &models.Lead{LeadName: "Ada", IntegrationLeadID: "ext-1", IntegrationSyncDone: true}))
		r := NewReceiver(f.store, nil, nil, nil)

		resp := r.Receive(ctx, map[string]any{"id": "ext-1"})
		assert.Equal(t, models.WebhookStatusSkipped, resp.Status)
		assert.Equal(t, "Webhook ignored. Lead already synced (CRM ID ext-1).", resp.Message)
	})

	t.Run("Success - unsynced lead is queued again", func(t *testing.T) {
		f := setup(t, false)
		require.NoError(t, f.store.InsertLead(ctx, &models.Lead{LeadName: "Ada", IntegrationLeadID: "ext-1"}))
		r := NewReceiver(f.store, nil, nil, nil)

		resp := r.Receive(ctx, map[string]any{"id": "ext-1"})
		assert.Equal(t, models.WebhookStatusSuccess, resp.Status)
	})

	t.Run("Error - storage failure", func(t *testing.T) {
		r := NewReceiver(failingReceiverStore{}, nil, nil, nil)

		resp := r.Receive(ctx, map[string]any{"id": "ext-1"})
		assert.Equal(t, models.WebhookStatusError, resp.Status)
		assert.Equal(t, "Something went wrong", resp.Message)
	})
}

func TestReceiver_InlineProcessingSyncsLead(t *testing.T) {
	ctx := context.Background()
	f := setup(t, false)
	f.acceptAllCallbacks()
	r := NewReceiver(f.store, f.processor, nil, nil)

	payload := map[string]any{"id": "ext-7", "first_name": "Grace", "last_name": "Hopper", "email": "grace@example.com"}
	resp := r.Receive(ctx, payload)
	assert.Equal(t, models.WebhookStatusSuccess, resp.Status)

	logs, err := f.store.ListLogs(ctx, models.IntegrationLogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.LogStatusSuccess, logs[0].Status)
	assert.NotEmpty(t, logs[0].Lead)

	lead, err := f.store.GetLead(ctx, logs[0].Lead)
	require.NoError(t, err)
	assert.True(t, lead.IntegrationSyncDone)
	f.status.AssertCalled(t, "UpdateLeadStatus", mock.Anything, "ext-7", crm.StatusCompleted)
	f.status.AssertCalled(t, "UpdateLeadStatus", mock.Anything, "ext-7", crm.StatusLeadCreated)

	again := r.Receive(ctx, payload)
	assert.Equal(t, models.WebhookStatusSkipped, again.Status, "a synced lead is never queued twice")
}

func TestEngine_Upsert(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - creates lead from default mapping", func(t *testing.T) {
		f := setup(t, false)
		f.acceptAllCallbacks()

		res, err := f.engine.Upsert(ctx, map[string]any{
			"id":              "921314000007778001",
			"first_name":      "Ada",
			"last_name":       "Lovelace",
			"company":         "  Analytical Engines ",
			"email":           "ada@example.com",
			"lead_source":     "Web Download",
			"lead_status":     "Contacted",
			"no_of_employees": "42",
		})
		require.NoError(t, err)
		assert.True(t, res.Created)
		assert.True(t, res.Synced)

		got, err := f.store.GetLead(ctx, res.Lead.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", got.LeadName)
		assert.Equal(t, "Analytical Engines", got.CompanyName)
		assert.Equal(t, "Website", got.Source)
		assert.Equal(t, "Replied", got.Status)
		assert.Equal(t, "11-50", got.NoOfEmployees)
		assert.Equal(t, "921314000007778001", got.IntegrationLeadID)
		assert.True(t, got.IntegrationSyncDone)
		assert.Equal(t, models.AdministratorUser, got.LeadOwner)
		f.status.AssertCalled(t, "UpdateLeadStatus", mock.Anything, "921314000007778001", crm.StatusCompleted)
	})

	t.Run("Success - second upsert updates instead of duplicating", func(t *testing.T) {
		f := setup(t, false)
		f.acceptAllCallbacks()

		first, err := f.engine.Upsert(ctx, map[string]any{"id": "ext-1", "first_name": "Ada", "company": "Old Co"})
		require.NoError(t, err)
		second, err := f.engine.Upsert(ctx, map[string]any{"id": "ext-1", "first_name": "Ada", "company": "New Co"})
		require.NoError(t, err)

		assert.False(t, second.Created)
		assert.Equal(t, first.Lead.ID, second.Lead.ID)

		n, err := f.store.CountLeads(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		got, err := f.store.GetLead(ctx, first.Lead.ID)
		require.NoError(t, err)
		assert.Equal(t, "New Co", got.CompanyName)
	})

	t.Run("Success - falls through to email when the id is unknown", func(t *testing.T) {
		f := setup(t, false)
		f.acceptAllCallbacks()
		existing := &models.Lead{LeadName: "Ada", EmailID: "ada@example.com"}
		require.NoError(t, f.store.InsertLead(ctx, existing))

		res, err := f.engine.Upsert(ctx, map[string]any{"id": "ext-9", "email": "ada@example.com", "first_name": "Ada"})
		require.NoError(t, err)
		assert.False(t, res.Created)
		assert.Equal(t, existing.ID, res.Lead.ID)

		got, err := f.store.GetLead(ctx, existing.ID)
		require.NoError(t, err)
		assert.Equal(t, "ext-9", got.IntegrationLeadID)
	})

	t.Run("Success - shared email does not steal another record's lead", func(t *testing.T) {
		f := setup(t, false)
		f.acceptAllCallbacks()

		first, err := f.engine.Upsert(ctx, map[string]any{"id": "ext-A", "email": "shared@example.com", "first_name": "Ada"})
		require.NoError(t, err)
		second, err := f.engine.Upsert(ctx, map[string]any{"id": "ext-B", "email": "shared@example.com", "first_name": "Grace"})
		require.NoError(t, err)

		assert.True(t, second.Created)
		assert.NotEqual(t, first.Lead.ID, second.Lead.ID)

		n, err := f.store.CountLeads(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		got, err := f.store.GetLead(ctx, first.Lead.ID)
		require.NoError(t, err)
		assert.Equal(t, "ext-A", got.IntegrationLeadID)
		assert.True(t, got.IntegrationSyncDone)

		synced, err := f.store.HasSyncedLead(ctx, "ext-A")
		require.NoError(t, err)
		assert.True(t, synced)
	})

	t.Run("Success - falls through to phone", func(t *testing.T) {
		f := setup(t, false)
		f.acceptAllCallbacks()
		existing := &models.Lead{LeadName: "Grace", Phone: "9818454640"}
		require.NoError(t, f.store.InsertLead(ctx, existing))

		res, err := f.engine.Upsert(ctx, map[string]any{"id": "ext-3", "email": "unknown@example.com", "phone": "9818454640"})
		require.NoError(t, err)
		assert.Equal(t, existing.ID, res.Lead.ID)
	})

	t.Run("Success - callback failure leaves lead unsynced", func(t *testing.T) {
		f := setup(t, false)
		f.status.On("UpdateLeadStatus", mock.Anything, "ext-1", crm.StatusCompleted).Return(errors.New("crm unavailable"))

		res, err := f.engine.Upsert(ctx, map[string]any{"id": "ext-1", "first_name": "Ada"})
		require.NoError(t, err)
		assert.False(t, res.Synced)

		got, err := f.store.GetLead(ctx, res.Lead.ID)
		require.NoError(t, err)
		assert.False(t, got.IntegrationSyncDone)
	})

	t.Run("Success - payload without id skips the callback", func(t *testing.T) {
		f := setup(t, false)

		res, err := f.engine.Upsert(ctx, map[string]any{"first_name": "Ada"})
		require.NoError(t, err)
		assert.True(t, res.Created)
		assert.False(t, res.Synced)
		f.status.AssertNotCalled(t, "UpdateLeadStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Success - blank names become Unknown", func(t *testing.T) {
		f := setup(t, false)
		f.acceptAllCallbacks()

		res, err := f.engine.Upsert(ctx, map[string]any{"id": "ext-2"})
		require.NoError(t, err)
		assert.Equal(t, "Unknown", res.Lead.LeadName)
	})

	t.Run("Success - stored mapping overrides the defaults", func(t *testing.T) {
		f := setup(t, false)
		f.acceptAllCallbacks()
		require.NoError(t, f.store.ReplaceFieldMappings(ctx, mappingName, []models.FieldMapping{
			{InternalField: "email_id", ExternalField: "Email_Address"},
			{InternalField: "company_name", ExternalField: "Account"},
		}))

		res, err := f.engine.Upsert(ctx, map[string]any{"id": "ext-4", "Email_Address": "x@example.com", "Account": "Acme", "company": "ignored"})
		require.NoError(t, err)
		assert.Equal(t, "x@example.com", res.Lead.EmailID)
		assert.Equal(t, "Acme", res.Lead.CompanyName)
	})

	t.Run("Success - source rule assigns and sets the owner", func(t *testing.T) {
		f := setup(t, false)
		f.acceptAllCallbacks()
		_, err := f.rules.Save(ctx, []models.CRMRuleRow{{LeadSource: "Partner", User: alice}})
		require.NoError(t, err)

		res, err := f.engine.Upsert(ctx, map[string]any{"id": "ext-5", "first_name": "Ada", "lead_source": "Partner"})
		require.NoError(t, err)

		got, err := f.store.GetLead(ctx, res.Lead.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{alice}, got.Assign)
		assert.Equal(t, alice, got.LeadOwner)
		assert.Equal(t, "Alice Smith", got.LeadOwnerName)
	})
}

func TestProcessor_ProcessLog(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - creates lead and records it on the log", func(t *testing.T) {
		f := setup(t, false)
		f.acceptAllCallbacks()
		entry := f.queue(t, `{"id":"ext-1","first_name":"Ada"}`, "ext-1")

		outcome, err := f.processor.ProcessLog(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, OutcomeSuccess, outcome)

		got, err := f.store.GetLog(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, models.LogStatusSuccess, got.Status)
		assert.Equal(t, "Lead created: "+got.Lead, got.ResponseMessage)
	})

	t.Run("Success - processing a Success entry again is a no-op", func(t *testing.T) {
		f := setup(t, false)
		f.acceptAllCallbacks()
		entry := f.queue(t, `{"id":"ext-1","first_name":"Ada"}`, "ext-1")

		_, err := f.processor.ProcessLog(ctx, entry.ID)
		require.NoError(t, err)
		outcome, err := f.processor.ProcessLog(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, OutcomeSkipped, outcome)

		n, err := f.store.CountLeads(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("Success - already synced lead is not touched", func(t *testing.T) {
		f := setup(t, false)
		require.NoError(t, f.store.InsertLead(ctx, &models.Lead{LeadName: "Ada", IntegrationLeadID: "ext-1", IntegrationSyncDone: true}))
		entry := f.queue(t, `{"id":"ext-1","first_name":"Changed"}`, "ext-1")

		outcome, err := f.processor.ProcessLog(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, OutcomeSuccess, outcome)

		got, err := f.store.GetLog(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, "Lead already exists (CRM ID ext-1)", got.ResponseMessage)
		f.status.AssertNotCalled(t, "UpdateLeadStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Error - malformed payload marks the entry Failed", func(t *testing.T) {
		f := setup(t, false)
		entry := f.queue(t, `{not json`, "")

		outcome, err := f.processor.ProcessLog(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, OutcomeFailed, outcome)

		got, err := f.store.GetLog(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, models.LogStatusFailed, got.Status)
		assert.Contains(t, got.ResponseMessage, "invalid payload")
	})

	t.Run("Error - unknown log id", func(t *testing.T) {
		f := setup(t, false)

		_, err := f.processor.ProcessLog(ctx, "missing")
		assert.Error(t, err)
	})

	t.Run("Deferred - external id locked elsewhere", func(t *testing.T) {
		f := setup(t, true)
		held, err := f.cache.Acquire(ctx, lockKey("ext-1"), time.Minute)
		require.NoError(t, err)
		require.NotNil(t, held)
		entry := f.queue(t, `{"id":"ext-1","first_name":"Ada"}`, "ext-1")

		outcome, err := f.processor.ProcessLog(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, OutcomeDeferred, outcome)

		got, err := f.store.GetLog(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, models.LogStatusPending, got.Status)

		require.NoError(t, f.cache.Release(ctx, held))
		f.acceptAllCallbacks()
		outcome, err = f.processor.ProcessLog(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, OutcomeSuccess, outcome)

		exists, err := f.cache.Exists(ctx, lockKey("ext-1"))
		require.NoError(t, err)
		assert.False(t, exists, "lock is released after processing")
	})
}

func TestProcessor_RetryPending(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - one bad entry does not stop the sweep", func(t *testing.T) {
		f := setup(t, false)
		f.acceptAllCallbacks()

		cfg := testdata.DefaultPayloadConfig(4)
		cfg.EmailChance, cfg.PhoneChance, cfg.MobileChance = 0, 0, 0
		for _, p := range testdata.GeneratePayloads(cfg) {
			f.queue(t, encode(t, p), p["id"].(string))
		}
		bad := f.queue(t, `[]`, "")

		result, err := f.processor.RetryPending(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.SweepResult{Total: 5, Succeeded: 4, Failed: 1}, result)

		pending, err := f.store.CountLogs(ctx, models.LogStatusPending)
		require.NoError(t, err)
		assert.Zero(t, pending)

		got, err := f.store.GetLog(ctx, bad.ID)
		require.NoError(t, err)
		assert.Equal(t, models.LogStatusFailed, got.Status)

		n, err := f.store.CountLeads(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	})

	t.Run("Success - a panic is recorded as a failure", func(t *testing.T) {
		f := setup(t, false)
		f.status.On("UpdateLeadStatus", mock.Anything, "boom", mock.Anything).Panic("client exploded")
		f.acceptAllCallbacks()
		exploding := f.queue(t, `{"id":"boom","first_name":"Ada"}`, "boom")
		f.queue(t, `{"id":"fine","first_name":"Grace"}`, "fine")

		result, err := f.processor.RetryPending(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Succeeded)
		assert.Equal(t, 1, result.Failed)

		got, err := f.store.GetLog(ctx, exploding.ID)
		require.NoError(t, err)
		assert.Equal(t, models.LogStatusFailed, got.Status)
		assert.Contains(t, got.ResponseMessage, "client exploded")
	})

	t.Run("Success - empty queue", func(t *testing.T) {
		f := setup(t, false)

		result, err := f.processor.RetryPending(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.SweepResult{}, result)
	})

	t.Run("Success - Failed entries are not swept", func(t *testing.T) {
		f := setup(t, false)
		entry := f.queue(t, `{"id":"ext-1"}`, "ext-1")
		_, err := f.processor.MarkFailed(ctx, entry.ID, "poisoned")
		require.NoError(t, err)

		result, err := f.processor.RetryPending(ctx)
		require.NoError(t, err)
		assert.Zero(t, result.Total)
	})
}

func TestProcessor_MarkFailedAndRetry(t *testing.T) {
	ctx := context.Background()
	f := setup(t, false)
	entry := f.queue(t, `{"id":"ext-1","first_name":"Ada"}`, "ext-1")

	failed, err := f.processor.MarkFailed(ctx, entry.ID, "operator gave up")
	require.NoError(t, err)
	assert.Equal(t, models.LogStatusFailed, failed.Status)
	assert.Equal(t, "operator gave up", failed.ResponseMessage)

	f.acceptAllCallbacks()
	retried, outcome, err := f.processor.Retry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)
	assert.Equal(t, models.LogStatusSuccess, retried.Status)

	_, err = f.processor.MarkFailed(ctx, entry.ID, "too late")
	assert.Error(t, err, "a Success entry cannot be failed")
}
