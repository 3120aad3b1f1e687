// Package app wires the sync services from configuration. It is shared by
// the API server and the admin CLI so both run the same graph.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jordanlanch/leadsync/config"
	"github.com/jordanlanch/leadsync/pkg/assignment"
	"github.com/jordanlanch/leadsync/pkg/cache"
	"github.com/jordanlanch/leadsync/pkg/crm"
	"github.com/jordanlanch/leadsync/pkg/database"
	"github.com/jordanlanch/leadsync/pkg/fieldmap"
	"github.com/jordanlanch/leadsync/pkg/leadowner"
	"github.com/jordanlanch/leadsync/pkg/leads"
	"github.com/jordanlanch/leadsync/pkg/leadsync"
	"github.com/jordanlanch/leadsync/pkg/logger"
	"github.com/jordanlanch/leadsync/pkg/metrics"
	"github.com/jordanlanch/leadsync/pkg/phone"
	"github.com/jordanlanch/leadsync/pkg/rules"
	"github.com/jordanlanch/leadsync/pkg/store"
)

// App holds the wired services
type App struct {
	Config  *config.Config
	DB      *database.Client
	Cache   *cache.Client
	Metrics *metrics.Metrics
	Log     logger.Logger

	Store  *store.Store
	Leads  *leads.Service
	Owners *leadowner.Service
	Rules  *rules.Service
	Mapper *fieldmap.Mapper

	// Tokens and CRM are nil when the CRM credentials are not configured.
	Tokens *crm.TokenService
	CRM    *crm.Client

	Engine    *leadsync.Engine
	Processor *leadsync.Processor
	Receiver  *leadsync.Receiver
}

// Open connects to the configured database and Redis
func Open(cfg *config.Config) (*database.Client, *cache.Client, error) {
	sslCfg := &database.SSLConfig{
		Mode:         cfg.DBSSLMode,
		CertPath:     cfg.DBSSLCertPath,
		KeyPath:      cfg.DBSSLKeyPath,
		RootCertPath: cfg.DBSSLRootCertPath,
	}
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL, database.DefaultPoolConfig(), sslCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	redisClient, err := cache.NewClient(cfg.RedisURL)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return db, redisClient, nil
}

// New builds the service graph. redisClient and m may be nil.
func New(cfg *config.Config, db *database.Client, redisClient *cache.Client, m *metrics.Metrics, log logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}

	mode, err := leadowner.ParseMode(cfg.OwnerPolicy)
	if err != nil {
		return nil, err
	}

	tables := fieldmap.DefaultTables()
	if cfg.LookupTablesPath != "" {
		if tables, err = fieldmap.LoadTables(cfg.LookupTablesPath); err != nil {
			return nil, fmt.Errorf("failed to load lookup tables: %w", err)
		}
	}

	a := &App{Config: cfg, DB: db, Cache: redisClient, Metrics: m, Log: log}
	a.Store = store.New(db)
	a.Owners = leadowner.NewService(a.Store, mode, log.With("component", "leadowner")).WithMetrics(m)
	a.Leads = leads.NewService(a.Store, log.With("component", "leads"),
		assignment.NewEngine(a.Store, log.With("component", "assignment")),
		a.Owners,
	)
	a.Rules = rules.NewService(a.Store, log.With("component", "rules"))

	var phones fieldmap.PhoneNormalizer
	if cfg.NormalizePhones {
		phones = phone.NewNormalizer(cfg.PhoneDefaultRegion)
	}
	a.Mapper = fieldmap.NewMapper(tables, a.Store, phones, log.With("component", "fieldmap"))

	var tokenCache crm.TokenCache
	var locker leadsync.Locker
	if redisClient != nil {
		tokenCache = redisClient
		locker = redisClient
	}

	opts := crm.OptionsFromConfig(cfg)
	var status leadsync.StatusUpdater
	a.Tokens, err = crm.NewTokenService(opts, a.Store, tokenCache, log.With("component", "crm"))
	switch {
	case errors.Is(err, crm.ErrNotConfigured):
		log.Warn("crm credentials not configured, leads will not be acknowledged")
	case err != nil:
		return nil, err
	default:
		a.Tokens.WithMetrics(m)
		a.CRM = crm.NewClient(opts, a.Tokens, log.With("component", "crm"))
		status = a.CRM
	}

	syncLog := log.With("component", "leadsync")
	a.Engine = leadsync.NewEngine(a.Store, a.Leads, a.Mapper, status, cfg.FieldMappingName, m, syncLog)
	a.Processor = leadsync.NewProcessor(a.Store, a.Engine, status, locker, cfg.SyncLockTTL, m, syncLog)

	var inline leadsync.LogProcessor
	if cfg.ProcessWebhookInline {
		inline = a.Processor
	}
	a.Receiver = leadsync.NewReceiver(a.Store, inline, m, syncLog)
	return a, nil
}

// Migrate creates the database schema
func (a *App) Migrate(ctx context.Context) error {
	return a.DB.Migrate(ctx)
}
