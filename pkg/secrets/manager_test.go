package secrets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
	"github.com/jordanlanch/leadsync/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSecretsAPI struct {
	secretsmanageriface.SecretsManagerAPI
	mock.Mock
}

func (m *mockSecretsAPI) GetSecretValueWithContext(ctx aws.Context, in *secretsmanager.GetSecretValueInput, _ ...request.Option) (*secretsmanager.GetSecretValueOutput, error) {
	args := m.Called(aws.StringValue(in.SecretId))
	out, _ := args.Get(0).(*secretsmanager.GetSecretValueOutput)
	return out, args.Error(1)
}

func secretValue(s string) *secretsmanager.GetSecretValueOutput {
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(s)}
}

func TestAWSSecretsManager_GetSecret(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - cached until ttl", func(t *testing.T) {
		api := &mockSecretsAPI{}
		api.On("GetSecretValueWithContext", "leadsync/crm").Return(secretValue(`{}`), nil).Twice()

		m := NewAWSSecretsManager(api, time.Minute)
		now := time.Now()
		m.now = func() time.Time { return now }

		for i := 0; i < 3; i++ {
			v, err := m.GetSecret(ctx, "leadsync/crm")
			require.NoError(t, err)
			assert.Equal(t, `{}`, v)
		}

		now = now.Add(2 * time.Minute)
		_, err := m.GetSecret(ctx, "leadsync/crm")
		require.NoError(t, err)
		api.AssertExpectations(t)
	})

	t.Run("Error - binary secret", func(t *testing.T) {
		api := &mockSecretsAPI{}
		api.On("GetSecretValueWithContext", "blob").Return(&secretsmanager.GetSecretValueOutput{SecretBinary: []byte{1}}, nil)

		_, err := NewAWSSecretsManager(api, 0).GetSecret(ctx, "blob")
		assert.ErrorContains(t, err, "no string value")
	})

	t.Run("Error - api failure", func(t *testing.T) {
		api := &mockSecretsAPI{}
		api.On("GetSecretValueWithContext", "missing").Return(nil, errors.New("ResourceNotFoundException"))

		_, err := NewAWSSecretsManager(api, 0).GetSecret(ctx, "missing")
		assert.ErrorContains(t, err, "failed to get secret missing")
	})
}

type staticManager map[string]string

func (s staticManager) GetSecret(_ context.Context, key string) (string, error) {
	v, ok := s[key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func TestApply(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - bundle overrides non-empty fields", func(t *testing.T) {
		cfg := &config.Config{SecretsBundleID: "leadsync/crm", JWTSecret: "from-env", RedisURL: "redis://env:6379"}
		m := staticManager{"leadsync/crm": `{"CRM_CLIENT_ID":"id","CRM_CLIENT_SECRET":"secret","JWT_SECRET":"from-store"}`}

		require.NoError(t, Apply(ctx, m, cfg))
		assert.Equal(t, "id", cfg.CRMClientID)
		assert.Equal(t, "secret", cfg.CRMClientSecret)
		assert.Equal(t, "from-store", cfg.JWTSecret)
		assert.Equal(t, "redis://env:6379", cfg.RedisURL)
		assert.True(t, cfg.CRMConfigured())
	})

	t.Run("Success - nil manager is a no-op", func(t *testing.T) {
		cfg := &config.Config{JWTSecret: "x"}
		require.NoError(t, Apply(ctx, nil, cfg))
		assert.Equal(t, "x", cfg.JWTSecret)
	})

	t.Run("Error - not JSON", func(t *testing.T) {
		cfg := &config.Config{SecretsBundleID: "b"}
		err := Apply(ctx, staticManager{"b": "plain"}, cfg)
		assert.ErrorContains(t, err, "not a JSON object")
	})

	t.Run("Error - bundle missing", func(t *testing.T) {
		cfg := &config.Config{SecretsBundleID: "b"}
		assert.Error(t, Apply(ctx, staticManager{}, cfg))
	})
}

func TestNewManager(t *testing.T) {
	m, err := NewManager(&config.Config{SecretsBackend: BackendEnv})
	require.NoError(t, err)
	assert.Nil(t, m)

	_, err = NewManager(&config.Config{SecretsBackend: "vault"})
	assert.ErrorContains(t, err, "unsupported secrets backend")
}
