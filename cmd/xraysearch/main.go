package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/kailas-cloud/xraysearch/internal/config"
	logpkg "github.com/kailas-cloud/xraysearch/internal/logger"
	"github.com/kailas-cloud/xraysearch/internal/transport/catalog"
	"github.com/kailas-cloud/xraysearch/internal/version"
)

func main() {
	app := &cli.Command{
		Name:    "xraysearch",
		Usage:   "Search and browse the X-ray imaging catalog",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "Configuration environment (local, dev, prod); defaults to $ENV",
				Value: config.GetEnv(),
			},
			&cli.StringFlag{
				Name:  "catalog-url",
				Usage: "Override catalog.base_url",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override logging.level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			searchCommand(),
			showCommand(),
			optionsCommand(),
			statsCommand(),
			versionCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// runtimeEnv is what every command needs: config and a logger.
type runtimeEnv struct {
	env    string
	cfg    config.Config
	logger *zap.Logger
}

func loadRuntime(cmd *cli.Command) (*runtimeEnv, error) {
	env := cmd.String("env")
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if u := cmd.String("catalog-url"); u != "" {
		cfg.Catalog.BaseURL = u
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	}
	level := cfg.Logging.Level
	if l := cmd.String("log-level"); l != "" {
		level = l
	}
	logger, err := logpkg.NewLogger(env, level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return &runtimeEnv{env: env, cfg: cfg, logger: logger}, nil
}

func (r *runtimeEnv) catalog() (*catalog.Client, error) {
	c, err := catalog.New(&catalog.Config{
		BaseURL: r.cfg.Catalog.BaseURL,
		Timeout: r.cfg.Catalog.RequestTimeout(),
		Logger:  r.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create catalog client: %w", err)
	}
	r.logger.Debug("Catalog client ready", zap.String("base_url", c.BaseURL()))
	return c, nil
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print build information",
		Action: func(_ context.Context, _ *cli.Command) error {
			fmt.Println(version.String())
			return nil
		},
	}
}
