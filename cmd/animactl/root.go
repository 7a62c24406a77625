package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/agenthands/anima/internal/config"
	"github.com/agenthands/anima/internal/core"
	"github.com/agenthands/anima/internal/core/profile"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	ConfigPath string
	Roster     string
	Verbose    bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "animactl",
		Short:         "Operate an Anima simulation from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "config/config.toml", "path to the TOML config")
	cmd.PersistentFlags().StringVar(&opts.Roster, "roster", "", "YAML roster registered before the command runs")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log to stderr")

	cmd.AddCommand(newTickCommand(opts))
	cmd.AddCommand(newEventCommand(opts))
	cmd.AddCommand(newFeedCommand(opts))
	cmd.AddCommand(newResetCommand(opts))
	cmd.AddCommand(newIndicesCommand(opts))

	return cmd
}

func (o *rootOptions) config() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	if o.Roster != "" {
		cfg.Profiles.Path = o.Roster
	}
	return cfg, cfg.Validate()
}

func (o *rootOptions) logger() *zap.Logger {
	if !o.Verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// open builds the Anima and registers the roster, when one is configured.
// Registration is idempotent so reruns against the same session are safe.
func (o *rootOptions) open(ctx context.Context) (*core.Anima, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	a, err := core.Open(ctx, cfg, o.logger())
	if err != nil {
		return nil, err
	}
	if cfg.Profiles.Path != "" {
		roster, err := profile.LoadRoster(cfg.Profiles.Path)
		if err == nil {
			_, err = a.SeedRoster(ctx, roster)
		}
		if err != nil {
			_ = a.Close(ctx)
			return nil, err
		}
	}
	return a, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
