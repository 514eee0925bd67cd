package main

import (
	"log/slog"
	"os"

	"github.com/meikuraledutech/architex/client"
	"github.com/meikuraledutech/architex/config"
	"github.com/meikuraledutech/architex/logger"
	"github.com/spf13/cobra"
)

// app carries what every subcommand needs once flags and env are parsed.
type app struct {
	envFile string
	cfg     *config.Config
	log     *slog.Logger

	// flag overrides
	apiURL   string
	token    string
	store    string
	stateDir string
	logLevel string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "architex",
		Short: "Design infrastructure on a canvas and generate it",
		Long: `architex keeps canvas workspaces (components and the connections between
them) and turns them into generated repositories through the Architex backend.

Settings come from the environment, optionally seeded from a .env file.
Flags override both.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	f.StringVar(&a.apiURL, "api-url", "", "backend base URL (overrides ARCHITEX_API_URL)")
	f.StringVar(&a.token, "token", "", "backend bearer token (overrides ARCHITEX_API_TOKEN)")
	f.StringVar(&a.store, "store", "", "state backend: file, redis, sqlite or postgres (overrides ARCHITEX_STORE)")
	f.StringVar(&a.stateDir, "state-dir", "", "directory for the file backend (overrides ARCHITEX_STATE_DIR)")
	f.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	root.AddCommand(
		newServeCmd(a),
		newGenerateCmd(a),
		newWatchCmd(a),
		newProjectsCmd(a),
		newWhoamiCmd(a),
		newExportCmd(a),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("api-url") {
		cfg.API.BaseURL = a.apiURL
	}
	if flags.Changed("token") {
		cfg.API.Token = a.token
	}
	if flags.Changed("store") {
		cfg.Storage.Backend = a.store
	}
	if flags.Changed("state-dir") {
		cfg.Storage.StateDir = a.stateDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.log = logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stderr})
	return nil
}

func (a *app) client() *client.Client {
	return client.New(client.Options{
		BaseURL:   a.cfg.API.BaseURL,
		Token:     a.cfg.API.Token,
		Timeout:   a.cfg.API.Timeout,
		RateLimit: a.cfg.API.RateLimit,
		RateBurst: a.cfg.API.RateBurst,
	})
}
