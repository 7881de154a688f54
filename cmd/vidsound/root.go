package main

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"vidsound/internal/bootstrap"
	"vidsound/internal/infra"
)

type commandContext struct {
	envFile *string
	verbose *bool

	configOnce sync.Once
	config     *infra.Config
	configErr  error

	newServices servicesFactory
}

type servicesFactory func(ctx context.Context, cfg *infra.Config, logger infra.Logger) (*bootstrap.Services, error)

func newRootCommand() *cobra.Command {
	return newRootCommandWith(bootstrap.New)
}

func newRootCommandWith(newServices servicesFactory) *cobra.Command {
	var envFile string
	var verbose bool
	ctx := &commandContext{envFile: &envFile, verbose: &verbose, newServices: newServices}

	root := &cobra.Command{
		Use:           "vidsound",
		Short:         "Generate ambient audio for video clips",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file loaded before reading the environment")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Write service logs to stderr")

	root.AddCommand(newServeCommand(ctx))
	root.AddCommand(newUploadCommand(ctx))
	root.AddCommand(newGenerateCommand(ctx))
	root.AddCommand(newRunsCommand(ctx))
	return root
}

func (c *commandContext) ensureConfig() (*infra.Config, error) {
	c.configOnce.Do(func() {
		if c.envFile != nil && strings.TrimSpace(*c.envFile) != "" {
			_ = godotenv.Load(strings.TrimSpace(*c.envFile))
		}
		c.config, c.configErr = infra.LoadConfig()
	})
	return c.config, c.configErr
}

// logger returns the service logger for serve, and a quiet one for the
// one-shot commands unless --verbose is given.
func (c *commandContext) logger(cmd *cobra.Command, cfg *infra.Config, server bool) infra.Logger {
	if server {
		return infra.NewLogger(cfg.AppEnv)
	}
	if c.verbose != nil && *c.verbose {
		w := cmd.ErrOrStderr()
		noColor := true
		if f, ok := w.(*os.File); ok {
			noColor = !isatty.IsTerminal(f.Fd())
		}
		return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: noColor}).With().Timestamp().Logger()
	}
	return zerolog.New(io.Discard)
}

func (c *commandContext) withServices(cmd *cobra.Command, server bool, fn func(*bootstrap.Services) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	svc, err := c.newServices(cmd.Context(), cfg, c.logger(cmd, cfg, server))
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(svc)
}
