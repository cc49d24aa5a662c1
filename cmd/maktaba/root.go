package main

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/asaidimu/go-maktaba/config"
	"github.com/asaidimu/go-maktaba/content"
	"github.com/asaidimu/go-maktaba/core/schema"
	"github.com/asaidimu/go-maktaba/core/store"
	"github.com/asaidimu/go-maktaba/sqlite"
)

// RootOptions holds the global flags shared by every subcommand.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
}

// NewRootCommand assembles the maktaba command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "maktaba",
		Short: "Query document collections from the command line",
		Long: `Maktaba mounts document collections from content directories and
SQLite tables, then answers fluent queries over them: structured filters,
sorting, field projection, fuzzy full-text search, and neighbor windows.

Collections come from a YAML configuration file; see the query and shell
commands for the query syntax.`,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "maktaba.yaml", "configuration file path")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")

	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewShellCommand(opts))
	cmd.AddCommand(NewCollectionsCommand(opts))
	return cmd
}

// openStore loads the configuration and mounts every configured
// collection. Watching is only armed when watch is set, so one-shot
// commands skip the reload goroutines. The returned cleanup closes
// database-backed sources and flushes the logger.
func openStore(ctx context.Context, opts *RootOptions, watch bool) (*store.Store, func(), error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
		if err := config.Validate(cfg); err != nil {
			return nil, nil, err
		}
	}
	logger, err := cfg.BuildLogger()
	if err != nil {
		return nil, nil, err
	}

	storeOpts := &store.Options{Logger: logger}
	if cfg.Store.Metrics {
		storeOpts.Registry = prometheus.NewRegistry()
	}
	st, err := store.NewStore(storeOpts)
	if err != nil {
		return nil, nil, err
	}

	var closers []io.Closer
	cleanup := func() {
		for _, closer := range closers {
			_ = closer.Close()
		}
		_ = logger.Sync()
	}

	for i := range cfg.Collections {
		coll := &cfg.Collections[i]
		def := definitionFor(coll)
		loader, closer, err := loaderFor(coll, def, logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		if closer != nil {
			closers = append(closers, closer)
		}
		if _, err := st.Mount(ctx, def, loader, watch && coll.Watch); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("mounting collection %q: %w", coll.Name, err)
		}
	}
	return st, cleanup, nil
}

func definitionFor(coll *config.CollectionConfig) *schema.CollectionDefinition {
	def := &schema.CollectionDefinition{
		Name:         coll.Name,
		SearchFields: coll.SearchFields,
		SlugField:    coll.SlugField,
	}
	if coll.Description != "" {
		def.Description = &coll.Description
	}
	return def
}

func loaderFor(coll *config.CollectionConfig, def *schema.CollectionDefinition, logger *zap.Logger) (store.Loader, io.Closer, error) {
	switch coll.Source.Type {
	case config.SourceTypeDir:
		src := content.NewDirSource(coll.Source.Path, &content.DirSourceOptions{
			Extensions: coll.Source.Extensions,
			Workers:    coll.Source.Workers,
			Logger:     logger,
		})
		return src, nil, nil
	case config.SourceTypeSQLite:
		src, err := sqlite.Open(coll.Source.Path, coll.Source.Table, def, &sqlite.Options{Logger: logger})
		if err != nil {
			return nil, nil, err
		}
		return src, src, nil
	default:
		return nil, nil, fmt.Errorf("collection %q: unknown source type %q", coll.Name, coll.Source.Type)
	}
}
