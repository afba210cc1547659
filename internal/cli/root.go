package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"

	"github.com/feral-file/nft-datastore/internal/adapter"
	"github.com/feral-file/nft-datastore/internal/config"
	"github.com/feral-file/nft-datastore/internal/logger"
	"github.com/feral-file/nft-datastore/internal/store"
)

// StoreOpener connects to the datastore described by the config file and env path.
// The returned close function releases the connection.
type StoreOpener func(ctx context.Context, configFile, envPath string) (store.Store, func() error, error)

// Dependencies are the collaborators shared by every command
type Dependencies struct {
	OpenStore  StoreOpener
	JSON       adapter.JSON
	FileSystem adapter.FileSystem
}

type app struct {
	deps       Dependencies
	configFile string
	envPath    string
	store      store.Store
	closeStore func() error
}

// NewRootCmd builds the nft-datastore command tree
func NewRootCmd(deps Dependencies) *cobra.Command {
	a := &app{deps: deps}

	rootCmd := &cobra.Command{
		Use:   "nft-datastore",
		Short: "Inspect and maintain the NFT event datastore",
		Long: `nft-datastore manages the datastore written by nft-crawler:
schema creation, checkpoint inspection and rewinds, stored event queries,
NFT metadata and address labels.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return a.close()
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "config file location (default searches ., cmd/nft-datastore/ and config/)")
	rootCmd.PersistentFlags().StringVar(&a.envPath, "env", "config/", "path to environment files")

	rootCmd.AddCommand(
		newInitCmd(a),
		newCheckpointCmd(a),
		newEventsCmd(a),
		newNFTCmd(a),
		newLabelsCmd(a),
	)

	return rootCmd
}

func (a *app) open(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	st, closeFn, err := a.deps.OpenStore(ctx, a.configFile, a.envPath)
	if err != nil {
		return err
	}
	a.store = st
	a.closeStore = closeFn
	return nil
}

func (a *app) close() error {
	if a.closeStore == nil {
		return nil
	}
	err := a.closeStore()
	a.closeStore = nil
	return err
}

// printJSON writes v as indented JSON to the command's output
func (a *app) printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := a.deps.JSON.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

// OpenConfiguredStore loads the admin config, initializes logging and connects to the datastore
func OpenConfiguredStore(ctx context.Context, configFile, envPath string) (store.Store, func() error, error) {
	cfg, err := config.LoadAdminConfig(configFile, envPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "nft-datastore",
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := cfg.Database.EnsureDir(); err != nil {
		return nil, nil, err
	}

	gormLogLevel := gormlogger.Error
	if cfg.Debug {
		gormLogLevel = gormlogger.Info
	}
	db, err := store.Connect(ctx, store.ConnectOptions{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		Logger:          logger.NewGormLogger(gormLogLevel, 200*time.Millisecond),
	})
	if err != nil {
		return nil, nil, err
	}

	return store.NewSQLStore(db), func() error {
		logger.Flush(2 * time.Second)
		return store.Close(db)
	}, nil
}
