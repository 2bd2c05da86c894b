package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/samirrijal/phonemap/internal/adapters/storage"
	"github.com/samirrijal/phonemap/internal/core/usecases"
	"github.com/samirrijal/phonemap/internal/pkg/config"
	"github.com/samirrijal/phonemap/internal/pkg/logging"
)

var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var driver string

	root := &cobra.Command{
		Use:   "phonemapctl",
		Short: "Inspect and edit the stored phone-location collection",
		Long: `phonemapctl reads and writes the record collection directly in the
configured storage backend. Stop the API server before editing: it does not
see changes made underneath it until restarted.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&driver, "driver", "", "Storage driver override (file, memory, valkey, postgres, s3)")

	open := func(ctx context.Context) (*usecases.RecordService, *config.Config, error) {
		cfg, err := loadConfig(driver)
		if err != nil {
			return nil, nil, err
		}
		store, err := storage.Open(ctx, cfg.Storage)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Driver, err)
		}
		records := usecases.NewRecordService(store, nil, usecases.WithStorageKey(cfg.Storage.Key))
		if err := records.Init(ctx); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("load records: %w", err)
		}
		return records, cfg, nil
	}

	root.AddCommand(listCmd(open))
	root.AddCommand(addCmd(open))
	root.AddCommand(rmCmd(open))
	root.AddCommand(exportCmd(open))
	root.AddCommand(citiesCmd())
	root.AddCommand(watchCmd(func() (*config.Config, error) { return loadConfig(driver) }))

	return root
}

// opener loads the configured collection.
type opener func(ctx context.Context) (*usecases.RecordService, *config.Config, error)

func loadConfig(driver string) (*config.Config, error) {
	if driver != "" {
		os.Setenv("PHONEMAP_STORAGE_DRIVER", driver)
	}
	cfg, err := config.Load("phonemapctl")
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logging.New(os.Stderr, cfg.Log.Level, "text"))
	return cfg, nil
}
