package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CRM_CLIENT_ID", "")
	t.Setenv("CRM_CLIENT_SECRET", "")
	t.Setenv("RETRY_SWEEP_SCHEDULE", "")

	cfg := Load()

	assert.Equal(t, "@every 2m", cfg.RetrySweepSchedule)
	assert.Equal(t, "Zoho to ERPNext", cfg.FieldMappingName)
	assert.Equal(t, "assignment-aware", cfg.OwnerPolicy)
	assert.Equal(t, 2*time.Minute, cfg.SyncLockTTL)
	assert.True(t, cfg.ProcessWebhookInline)
	assert.False(t, cfg.CRMConfigured(), "credentials must never have built-in defaults")
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("CRM_CLIENT_ID", "client")
	t.Setenv("CRM_CLIENT_SECRET", "secret")
	t.Setenv("CRM_HTTP_TIMEOUT", "3s")
	t.Setenv("PROCESS_WEBHOOK_INLINE", "false")
	t.Setenv("WEBHOOK_RATE_LIMIT_BURST", "7")

	cfg := Load()

	assert.True(t, cfg.CRMConfigured())
	assert.Equal(t, 3*time.Second, cfg.CRMHTTPTimeout)
	assert.False(t, cfg.ProcessWebhookInline)
	assert.Equal(t, 7, cfg.WebhookRateLimitBurst)
}

func TestGetEnvHelpers_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("LEADSYNC_TEST_INT", "abc")
	t.Setenv("LEADSYNC_TEST_BOOL", "maybe")
	t.Setenv("LEADSYNC_TEST_DURATION", "soon")

	assert.Equal(t, 5, getEnvAsInt("LEADSYNC_TEST_INT", 5))
	assert.True(t, getEnvAsBool("LEADSYNC_TEST_BOOL", true))
	assert.Equal(t, time.Minute, getEnvAsDuration("LEADSYNC_TEST_DURATION", time.Minute))
}

func TestGetEnvAsList(t *testing.T) {
	t.Setenv("LEADSYNC_TEST_LIST", " https://crm.example.com, ,https://erp.example.com ")
	assert.Equal(t, []string{"https://crm.example.com", "https://erp.example.com"}, getEnvAsList("LEADSYNC_TEST_LIST", nil))

	t.Setenv("LEADSYNC_TEST_LIST", " , ")
	assert.Equal(t, []string{"fallback"}, getEnvAsList("LEADSYNC_TEST_LIST", []string{"fallback"}))
}
