package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/UkralStul/posts-service/internal/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// rootOptions - флаги, общие для всех команд.
type rootOptions struct {
	configPath string
	storage    string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "posts-service",
		Short:         "Posts backend with per-account ownership and soft deletion",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.storage, "storage", "", "storage backend (in-memory, postgres, sql or badger)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newCheckConfigCommand(opts))
	return cmd
}

// loadConfig читает файл и окружение, затем применяет флаг --storage.
func loadConfig(opts *rootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.configPath, os.Getenv)
	if err != nil {
		return config.Config{}, err
	}
	if opts.storage != "" {
		cfg.Storage.Backend = opts.storage
		if err := cfg.Validate(); err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}

func newCheckConfigCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate the configuration and print the resolved values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to render config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

// newLogger - JSON для машин, текст для людей.
func newLogger(human bool, w io.Writer) *slog.Logger {
	if human {
		return slog.New(slog.NewTextHandler(w, nil))
	}
	return slog.New(slog.NewJSONHandler(w, nil))
}
