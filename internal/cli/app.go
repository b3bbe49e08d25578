package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/mlab/internal/adapters/api"
	"github.com/emiliopalmerini/mlab/internal/adapters/otel"
	"github.com/emiliopalmerini/mlab/internal/adapters/turso"
	"github.com/emiliopalmerini/mlab/internal/apikeys"
	"github.com/emiliopalmerini/mlab/internal/infrastructure/config"
	"github.com/emiliopalmerini/mlab/internal/logging"
	"github.com/emiliopalmerini/mlab/internal/migrate"
	"github.com/emiliopalmerini/mlab/internal/polling"
	"github.com/emiliopalmerini/mlab/internal/ports"
	"github.com/emiliopalmerini/mlab/internal/state"
	"github.com/emiliopalmerini/mlab/internal/workflow"
)

// AppContext holds all shared dependencies for CLI commands.
type AppContext struct {
	Config     *config.Config
	Log        *logrus.Logger
	DB         *sql.DB
	Client     ports.ExperimentClient
	Store      *state.Store
	Keys       *apikeys.Keyring
	Controller *polling.Controller
	Flow       *workflow.Service
	Metrics    ports.PollMetrics
}

// NewAppContext wires every dependency from cfg. ctx bounds the lifetime of
// polling sessions. Pending migrations are applied to the state database.
func NewAppContext(ctx context.Context, cfg *config.Config, logOut io.Writer) (*AppContext, error) {
	log, err := logging.New(cfg.Log, logOut)
	if err != nil {
		return nil, err
	}

	db, err := turso.NewDB(ctx, turso.Config{URL: cfg.Database.URL, AuthToken: cfg.Database.AuthToken})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := migrate.New(db, log).Up(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	client, err := api.NewClient(api.Config{BaseURL: cfg.API.BaseURL}, nil)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return newAppContext(ctx, cfg, log, db, client)
}

func newAppContext(ctx context.Context, cfg *config.Config, log *logrus.Logger, db *sql.DB, client ports.ExperimentClient) (*AppContext, error) {
	metrics, err := otel.New(ctx, cfg.OTEL)
	if err != nil {
		log.WithError(err).Warn("metrics disabled")
		metrics = otel.NewNoOpExporter()
	}

	store := state.NewStore(turso.NewSessionStateRepository(db), log)
	keys := apikeys.NewKeyring(turso.NewAPIKeyRepository(db))
	controller := polling.New(client, store,
		polling.WithInterval(cfg.API.PollInterval),
		polling.WithLogger(log),
		polling.WithMetrics(metrics),
	)
	flow := workflow.New(ctx, client, store, controller,
		workflow.WithKeyring(keys),
		workflow.WithLogger(log),
	)

	return &AppContext{
		Config:     cfg,
		Log:        log,
		DB:         db,
		Client:     client,
		Store:      store,
		Keys:       keys,
		Controller: controller,
		Flow:       flow,
		Metrics:    metrics,
	}, nil
}

// Close stops polling, flushes metrics and releases the database.
func (a *AppContext) Close(ctx context.Context) error {
	if a.Controller != nil {
		a.Controller.Close()
		a.Controller.Wait()
	}
	if a.Metrics != nil {
		if err := a.Metrics.Close(ctx); err != nil {
			a.Log.WithError(err).Warn("failed to flush metrics")
		}
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

// loadConfig applies the persistent flags on top of the loaded configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// withApp runs fn with a fully wired AppContext and tears it down afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *AppContext) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app, err := NewAppContext(ctx, cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close(context.WithoutCancel(ctx)) }()

	return fn(ctx, app)
}
