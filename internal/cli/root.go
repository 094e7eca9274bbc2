package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phonginreallife/rentdesk/apperrors"
	"github.com/phonginreallife/rentdesk/client"
	"github.com/phonginreallife/rentdesk/internal/config"
	"github.com/phonginreallife/rentdesk/internal/logger"
	"github.com/phonginreallife/rentdesk/services"
	"github.com/phonginreallife/rentdesk/store"
)

// App is the wiring shared by every command of one invocation
type App struct {
	Config    config.Config
	Logger    *zap.Logger
	KV        store.KV
	Sessions  *services.SessionStore
	Lifecycle *services.AuthLifecycle
	Client    *client.Client

	// loggedOut is set when the server rejected the session mid-command
	loggedOut bool
}

// NewApp builds the session slot, auth lifecycle and REST client from cfg
func NewApp(cfg config.Config, zl *zap.Logger) (*App, error) {
	if zl == nil {
		zl = zap.NewNop()
	}
	kv, err := openKV(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Logger: zl, KV: kv}
	app.Sessions = services.NewSessionStore(kv, cfg.Session.Namespace, zl)
	app.Lifecycle = services.NewAuthLifecycle(app.Sessions, nil, zl)
	app.Client = client.New(cfg.APIURL, app.Sessions,
		client.WithTimeout(cfg.RequestTimeout),
		client.WithLogger(zl),
		client.WithUnauthorizedHook(func(ctx context.Context, status int) {
			if res := app.Lifecycle.OnUnauthorizedResponse(ctx, status); res.ShouldLogout {
				app.loggedOut = true
			}
		}),
	)
	app.Lifecycle.SetAuthenticator(app.Client)
	return app, nil
}

func openKV(cfg config.Config) (store.KV, error) {
	switch cfg.Session.Backend {
	case config.SessionBackendRedis:
		return store.NewRedisKVFromURL(cfg.RedisURL)
	case config.SessionBackendMemory:
		return store.NewMemoryKV(), nil
	default:
		return store.NewFileKV(cfg.DataDir)
	}
}

// Close releases the session backend
func (a *App) Close() {
	if c, ok := a.KV.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			a.Logger.Warn("failed to close session backend", zap.Error(err))
		}
	}
	_ = a.Logger.Sync()
}

// requirePrincipal returns the signed-in principal or an authentication error
func (a *App) requirePrincipal(ctx context.Context) (*services.Principal, error) {
	if check := a.Lifecycle.Check(ctx); !check.Authenticated {
		return nil, apperrors.New(apperrors.KindAuthentication, "not logged in, run `rentdesk login`")
	}
	p := a.Lifecycle.Principal(ctx)
	if p == nil {
		return nil, apperrors.New(apperrors.KindAuthentication, "not logged in, run `rentdesk login`")
	}
	return p, nil
}

// remoteError adds the logout notice to errors of requests the server rejected
func (a *App) remoteError(err error) error {
	if err == nil {
		return nil
	}
	if a.loggedOut {
		return apperrors.Wrap(apperrors.KindAuthentication, "session expired, you have been logged out", err)
	}
	return err
}

type rootOptions struct {
	configPath string
	apiURL     string
	logLevel   string
}

// NewRootCmd builds the command tree. The App is created lazily before any
// subcommand runs, so `--help` works without a config.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	var app *App

	rootCmd := &cobra.Command{
		Use:           "rentdesk",
		Short:         "rentdesk property management console",
		Long:          `A console for the rentdesk property management API: sign in, switch organizations and work with units, leases and payments.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if err := config.LoadConfig(opts.configPath); err != nil {
				return err
			}
			cfg := config.App
			if opts.apiURL != "" {
				cfg.APIURL = opts.apiURL
			}
			if opts.logLevel != "" {
				cfg.LogLevel = opts.logLevel
			}
			zl, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, "rentdesk")
			if err != nil {
				return fmt.Errorf("failed to build logger: %w", err)
			}
			a, err := NewApp(cfg, zl)
			if err != nil {
				return fmt.Errorf("failed to open session backend: %w", err)
			}
			app = a
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if app != nil {
				app.Close()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("RENTDESK_CONFIG_PATH"), "config file (default: rentdesk.yaml in ./config, . or ~/.rentdesk)")
	rootCmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "API base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	get := func() *App { return app }
	rootCmd.AddCommand(
		newLoginCmd(get),
		newLogoutCmd(get),
		newWhoamiCmd(get),
		newStatusCmd(get),
		newOrgsCmd(get),
		newMenuCmd(get),
		newCanCmd(get),
		newPropertiesCmd(get),
		newTenantsCmd(get),
		newUnitsCmd(get),
		newLeasesCmd(get),
		newPaymentsCmd(get),
	)
	return rootCmd
}

// Execute runs the console and exits non-zero on failure
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+apperrors.UserMessage(err))) //nolint:errcheck
		os.Exit(1)
	}
}
