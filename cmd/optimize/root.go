package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/alchemorsel/nutriplan/internal/application/catalog"
	appmealplan "github.com/alchemorsel/nutriplan/internal/application/mealplan"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/config"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/container"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/solver"
	"github.com/alchemorsel/nutriplan/internal/ports/inbound"
	"github.com/alchemorsel/nutriplan/pkg/logger"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configPath  string
	catalogPath string
	logLevel    string
	timeout     time.Duration
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "nutriplan-optimize",
		Short: "Plan recipe quantities that meet nutrient targets",
		Long: `nutriplan-optimize solves meal plans against a recipe catalog.

The catalog is either the configured database or, with --catalog, a JSON or
CSV file loaded into memory for the duration of the command.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ./config.yaml when present)")
	flags.StringVar(&opts.catalogPath, "catalog", "", "recipe catalog file (.json or .csv) used instead of the database")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")
	flags.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall command deadline")

	root.AddCommand(
		newPlanCommand(opts),
		newBatchCommand(opts),
		newSuggestCommand(opts),
		newSeedCommand(opts),
		newImportCommand(opts),
		newMigrateCommand(opts),
	)
	return root
}

// session holds the services a command runs against
type session struct {
	cfg       *config.Config
	log       *zap.Logger
	mealPlans inbound.MealPlanService
	catalog   inbound.CatalogService
	close     func()
}

func (o *globalOptions) context(parent context.Context) (context.Context, context.CancelFunc) {
	if o.timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, o.timeout)
}

func (o *globalOptions) logger() (*zap.Logger, error) {
	return logger.New(logger.Config{
		Level:       o.logLevel,
		Format:      "console",
		OutputPaths: []string{"stderr"},
	})
}

// open builds a session over the catalog file when one was given, or over
// the configured database otherwise
func (o *globalOptions) open(ctx context.Context) (*session, error) {
	log, err := o.logger()
	if err != nil {
		return nil, err
	}
	if o.catalogPath != "" {
		return o.openFile(log)
	}
	return o.openDatabase(ctx, log)
}

func (o *globalOptions) openFile(log *zap.Logger) (*session, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	opts, err := container.OptimizerOptions(cfg)
	if err != nil {
		return nil, err
	}

	cmds, err := loadCatalogFile(o.catalogPath)
	if err != nil {
		return nil, err
	}
	recipes, err := memory.NewRecipeRepository()
	if err != nil {
		return nil, err
	}
	catalogSvc := catalog.NewService(recipes, nil, log)
	if _, err := catalogSvc.ImportRecipes(context.Background(), cmds); err != nil {
		return nil, fmt.Errorf("load %s: %w", o.catalogPath, err)
	}

	lp := &solver.Simplex{Tolerance: cfg.Optimizer.SolverTolerance}
	return &session{
		cfg:       cfg,
		log:       log,
		mealPlans: appmealplan.NewService(recipes, nil, lp, nil, nil, opts, log),
		catalog:   catalogSvc,
		close:     func() { _ = log.Sync() },
	}, nil
}

func (o *globalOptions) openDatabase(ctx context.Context, log *zap.Logger) (*session, error) {
	s := &session{log: log}
	app := fx.New(
		fx.NopLogger,
		fx.Supply(container.ConfigPath(o.configPath)),
		container.CoreModule,
		fx.Replace(log),
		fx.Populate(&s.cfg, &s.mealPlans, &s.catalog),
	)
	if err := app.Start(ctx); err != nil {
		return nil, err
	}
	s.close = func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Stop(stopCtx); err != nil {
			log.Warn("Failed to stop cleanly", zap.Error(err))
		}
		_ = log.Sync()
	}
	return s, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
