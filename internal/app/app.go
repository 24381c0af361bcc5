// Package app initializes and holds the long-lived application services,
// acting as the dependency injection container for the commands.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/siteproof/linkaudit/internal/api"
	"github.com/siteproof/linkaudit/internal/config"
	"github.com/siteproof/linkaudit/internal/execlog"
	"github.com/siteproof/linkaudit/internal/execlog/sinks"
	"github.com/siteproof/linkaudit/internal/fetch"
	"github.com/siteproof/linkaudit/internal/importer"
	"github.com/siteproof/linkaudit/internal/lifecycle"
	"github.com/siteproof/linkaudit/internal/locker"
	"github.com/siteproof/linkaudit/internal/logging"
	"github.com/siteproof/linkaudit/internal/pipeline"
	"github.com/siteproof/linkaudit/internal/remote"
	"github.com/siteproof/linkaudit/internal/report"
	"github.com/siteproof/linkaudit/internal/settings"
	"github.com/siteproof/linkaudit/internal/setup"
	"github.com/siteproof/linkaudit/internal/store"
	"github.com/siteproof/linkaudit/internal/store/gcs"
	"github.com/siteproof/linkaudit/internal/store/postgres"
)

// App holds the shared, long-lived services. It is initialized once at
// startup and handed to whichever command is running.
type App struct {
	Config      config.Config
	Logger      *zap.Logger
	Settings    settings.Store
	Reports     store.ReportStore
	Client      *remote.Client
	Engine      *fetch.Engine
	Manager     *lifecycle.Manager
	Router      *pipeline.Router
	Server      *api.Server
	Provisioner *setup.Provisioner
	Importer    *importer.Importer
	ExecLog     *execlog.Log

	pool     *pgxpool.Pool
	gcsStore *gcs.Store
}

// New builds the full service graph from configuration. It fails fast: any
// backend that cannot be reached at startup aborts initialization.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger}

	if cfg.DB.DSN != "" {
		a.pool, err = postgres.Connect(ctx, cfg.DB.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
	}

	if a.Settings, err = a.buildSettingsStore(); err != nil {
		return nil, err
	}
	if err := a.seedSettings(ctx); err != nil {
		return nil, err
	}

	if a.Reports, err = a.buildReportStore(ctx); err != nil {
		return nil, err
	}

	a.ExecLog, err = a.buildExecLog(ctx)
	if err != nil {
		return nil, err
	}

	apiKey, err := settings.Required(ctx, a.Settings, settings.KeyAPIKey)
	if err != nil {
		return nil, err
	}
	a.Client, err = remote.NewClient(remote.Config{
		BaseURL:    cfg.Remote.BaseURL,
		APIKey:     apiKey,
		Timeout:    cfg.RemoteTimeout(),
		MaxRetries: cfg.Remote.MaxRetries,
		RateLimit:  cfg.Remote.RateLimit,
		RateBurst:  cfg.Remote.RateBurst,
		UserAgent:  cfg.Remote.UserAgent,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("build remote client: %w", err)
	}

	a.Engine = fetch.NewEngine(a.Client, fetch.Config{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Delay:       cfg.RetryDelay(),
		PageSize:    cfg.Retry.PageSize,
	}, logger)

	a.Manager = lifecycle.NewManager(a.Client, a.Settings, a.ExecLog, logger)

	policy, err := duplicatePolicy(cfg.Audit.DuplicatePolicy)
	if err != nil {
		return nil, err
	}
	a.Router = pipeline.NewRouter(a.Engine, a.Manager, a.Reports, a.Settings, policy, a.ExecLog, logger)

	a.Server = api.NewServer(a.Router, locker.New(cfg.LockWait()), cfg, logger)
	a.Provisioner = setup.NewProvisioner(a.Manager, a.ExecLog, logger)
	a.Importer = importer.New(a.Client, a.Reports, a.ExecLog, logger)

	logger.Info("application services initialized",
		zap.String("report_store", cfg.Storage.ReportProvider),
		zap.String("settings_store", cfg.Storage.SettingsProvider),
		zap.Strings("execlog_sinks", cfg.ExecLog.Sinks),
	)
	return a, nil
}

func (a *App) buildSettingsStore() (settings.Store, error) {
	switch a.Config.Storage.SettingsProvider {
	case config.ProviderMemory:
		return settings.NewMemoryStore(nil), nil
	case config.ProviderPostgres:
		if a.pool == nil {
			return nil, fmt.Errorf("postgres settings store requires db.dsn")
		}
		return postgres.NewSettingsStore(a.pool), nil
	default:
		return nil, fmt.Errorf("unknown settings provider %q", a.Config.Storage.SettingsProvider)
	}
}

func (a *App) buildReportStore(ctx context.Context) (store.ReportStore, error) {
	switch a.Config.Storage.ReportProvider {
	case config.ProviderMemory:
		return store.NewMemoryStore(), nil
	case config.ProviderPostgres:
		if a.pool == nil {
			return nil, fmt.Errorf("postgres report store requires db.dsn")
		}
		return postgres.NewReportStore(a.pool), nil
	case config.ProviderGCS:
		s, err := gcs.New(ctx, a.Config.Storage.GCSBucket, a.Config.Storage.GCSPrefix)
		if err != nil {
			return nil, fmt.Errorf("build gcs store: %w", err)
		}
		a.gcsStore = s
		return s, nil
	default:
		return nil, fmt.Errorf("unknown report provider %q", a.Config.Storage.ReportProvider)
	}
}

func (a *App) buildExecLog(ctx context.Context) (*execlog.Log, error) {
	var out []execlog.Sink
	for _, name := range a.Config.ExecLog.Sinks {
		switch name {
		case "log":
			out = append(out, sinks.NewZapSink(a.Logger))
		case "prometheus":
			out = append(out, sinks.NewPrometheusSink())
		case "postgres":
			if a.pool == nil {
				return nil, fmt.Errorf("postgres execlog sink requires db.dsn")
			}
			out = append(out, sinks.NewPostgresSink(a.pool))
		case "pubsub":
			s, err := sinks.NewPubSubSink(ctx, a.Config.ExecLog.PubSubProjectID, a.Config.ExecLog.PubSubTopic, a.Logger)
			if err != nil {
				return nil, fmt.Errorf("build pubsub sink: %w", err)
			}
			out = append(out, s)
		default:
			return nil, fmt.Errorf("unknown execlog sink %q", name)
		}
	}
	return execlog.New(execlog.Config{Logger: a.Logger}, out...), nil
}

// seedSettings copies operator-supplied values from configuration into the
// settings store so a fresh deployment needs no manual settings writes.
// Existing settings win: config seeding never overwrites a value that setup
// or an operator already persisted.
func (a *App) seedSettings(ctx context.Context) error {
	seeds := map[string]string{
		settings.KeyAPIKey:         a.Config.Remote.APIKey,
		settings.KeyPrimaryAuditID: a.Config.Audit.PrimaryAuditID,
		settings.KeyWebhookBaseURL: a.Config.Remote.WebhookBaseURL,
	}
	for key, value := range seeds {
		if value == "" {
			continue
		}
		existing, err := a.Settings.Get(ctx, key)
		if err == nil && existing != "" {
			continue
		}
		if err := a.Settings.Set(ctx, key, value); err != nil {
			return fmt.Errorf("seed setting %q: %w", key, err)
		}
	}
	return nil
}

func duplicatePolicy(name string) (report.DuplicatePolicy, error) {
	switch name {
	case "", "collect_all":
		return report.CollectAll, nil
	case "keep_first":
		return report.KeepFirst, nil
	case "keep_last":
		return report.KeepLast, nil
	default:
		return report.CollectAll, fmt.Errorf("unknown audit.duplicate_policy %q", name)
	}
}

// Close gracefully shuts down every service the App owns.
func (a *App) Close(ctx context.Context) {
	if a.ExecLog != nil {
		a.ExecLog.Close(ctx)
	}
	if a.gcsStore != nil {
		if err := a.gcsStore.Close(); err != nil {
			a.Logger.Warn("closing gcs store", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	_ = a.Logger.Sync()
}
