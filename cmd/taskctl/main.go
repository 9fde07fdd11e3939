package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gosuda/taskboard/internal/client/api"
	"github.com/gosuda/taskboard/internal/client/config"
	"github.com/gosuda/taskboard/internal/client/credentials"
	"github.com/gosuda/taskboard/internal/client/session"
)

var Version = "dev"

// app carries the wiring shared by every subcommand.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	client  *api.Client
	session *session.Store
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{}
	root := a.rootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", api.UserMessage(err))
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "taskctl",
		Short:         "Terminal client for taskboard",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.taskctl/config.yaml)")

	root.AddCommand(
		a.loginCmd(),
		a.signupCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.orgsCmd(),
		a.projectsCmd(),
		a.tasksCmd(),
		a.boardCmd(),
		a.watchCmd(),
	)
	return root
}

func (a *app) setup(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.WarnLevel
	}
	a.log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	if cfg.Bypass {
		a.client = api.New(api.Options{
			BaseURL:     cfg.APIURL,
			Credentials: credentials.NewMemoryStore(),
			Timeout:     cfg.Timeout,
			Logger:      &a.log,
		})
		a.session = session.NewBypass(session.WithLogger(a.log))
		return nil
	}

	creds, err := credentials.Open(cfg.CredentialsPath)
	if err != nil {
		return err
	}
	a.client = api.New(api.Options{
		BaseURL:     cfg.APIURL,
		Credentials: creds,
		Timeout:     cfg.Timeout,
		Logger:      &a.log,
	})
	a.session = session.New(a.client, session.WithLogger(a.log))
	return nil
}

// requireUser restores the stored session and fails when nobody is signed in.
func (a *app) requireUser(ctx context.Context) error {
	u, err := a.session.Restore(ctx)
	if err != nil {
		return err
	}
	if u == nil {
		return errNotLoggedIn
	}
	return nil
}
