// Package secrets fills credentials into the configuration from an
// external secret store, so none of them live in the environment file.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
	"github.com/jordanlanch/leadsync/config"
)

// Backends
const (
	BackendEnv = "env"
	BackendAWS = "aws-secrets-manager"
)

// Manager defines the interface for secrets management
type Manager interface {
	// GetSecret retrieves a secret by key
	GetSecret(ctx context.Context, key string) (string, error)
}

// Bundle is the JSON document stored under Config.SecretsBundleID. Empty
// fields leave the configured value alone.
type Bundle struct {
	CRMClientID     string `json:"CRM_CLIENT_ID"`
	CRMClientSecret string `json:"CRM_CLIENT_SECRET"`
	CRMRedirectURI  string `json:"CRM_REDIRECT_URI"`
	JWTSecret       string `json:"JWT_SECRET"`
	DatabaseURL     string `json:"DATABASE_URL"`
	RedisURL        string `json:"REDIS_URL"`
}

// NewManager returns the manager for cfg.SecretsBackend, or nil when
// secrets come straight from the environment.
func NewManager(cfg *config.Config) (Manager, error) {
	switch cfg.SecretsBackend {
	case "", BackendEnv:
		return nil, nil
	case BackendAWS, "aws":
		log.Printf("🔐 Initializing AWS Secrets Manager (region: %s)", cfg.SecretsAWSRegion)
		sess, err := session.NewSession(&aws.Config{Region: aws.String(cfg.SecretsAWSRegion)})
		if err != nil {
			return nil, fmt.Errorf("failed to create AWS session: %w", err)
		}
		return NewAWSSecretsManager(secretsmanager.New(sess), cfg.SecretsCacheTTL), nil
	default:
		return nil, fmt.Errorf("unsupported secrets backend: %s", cfg.SecretsBackend)
	}
}

// Apply reads the bundle from m and overrides the matching config fields.
// A nil manager leaves cfg untouched.
func Apply(ctx context.Context, m Manager, cfg *config.Config) error {
	if m == nil {
		return nil
	}
	raw, err := m.GetSecret(ctx, cfg.SecretsBundleID)
	if err != nil {
		return err
	}
	var b Bundle
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return fmt.Errorf("secret %s is not a JSON object: %w", cfg.SecretsBundleID, err)
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.CRMClientID, b.CRMClientID)
	set(&cfg.CRMClientSecret, b.CRMClientSecret)
	set(&cfg.CRMRedirectURI, b.CRMRedirectURI)
	set(&cfg.JWTSecret, b.JWTSecret)
	set(&cfg.DatabaseURL, b.DatabaseURL)
	set(&cfg.RedisURL, b.RedisURL)
	return nil
}

// AWSSecretsManager loads secrets from AWS Secrets Manager
type AWSSecretsManager struct {
	client secretsmanageriface.SecretsManagerAPI
	ttl    time.Duration

	mu    sync.RWMutex
	cache map[string]cachedSecret
	now   func() time.Time
}

type cachedSecret struct {
	value     string
	expiresAt time.Time
}

// NewAWSSecretsManager wraps client with a read cache of the given lifetime
func NewAWSSecretsManager(client secretsmanageriface.SecretsManagerAPI, ttl time.Duration) *AWSSecretsManager {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AWSSecretsManager{
		client: client,
		ttl:    ttl,
		cache:  make(map[string]cachedSecret),
		now:    time.Now,
	}
}

// GetSecret retrieves a secret from AWS Secrets Manager
func (m *AWSSecretsManager) GetSecret(ctx context.Context, key string) (string, error) {
	if value, ok := m.cached(key); ok {
		return value, nil
	}

	result, err := m.client.GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", key, err)
	}
	if result.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", key)
	}

	m.mu.Lock()
	m.cache[key] = cachedSecret{value: *result.SecretString, expiresAt: m.now().Add(m.ttl)}
	m.mu.Unlock()

	log.Printf("✅ Loaded secret from AWS Secrets Manager: %s", key)
	return *result.SecretString, nil
}

func (m *AWSSecretsManager) cached(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.cache[key]
	if !ok || m.now().After(c.expiresAt) {
		return "", false
	}
	return c.value, true
}
