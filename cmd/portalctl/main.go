// portalctl drives the ticket portal from a terminal. The signed-in
// identity is kept in a local file between invocations, so "portalctl
// login" once is enough for later commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	portalapp "github.com/spec-kit/ticket-portal/internal/app"
	"github.com/spec-kit/ticket-portal/internal/auth"
	"github.com/spec-kit/ticket-portal/internal/config"
	"github.com/spec-kit/ticket-portal/internal/observability"
	"github.com/spec-kit/ticket-portal/internal/portalapi"
	"github.com/spec-kit/ticket-portal/internal/repository"
	"github.com/spec-kit/ticket-portal/internal/session"
	apperrors "github.com/spec-kit/ticket-portal/pkg/util/errorutil"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %s\n", errorText(err))
		}
		os.Exit(1)
	}
}

// globalOptions are accepted before the command name.
type globalOptions struct {
	configPath  string
	baseURL     string
	sessionFile string
	logLevel    string
	jsonOutput  bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var opts globalOptions
	flagSet := pflag.NewFlagSet("portalctl", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.configPath, "config", config.DefaultProfilePath(), "YAML profile with base_url, session_file, seal_key, log_level")
	flagSet.StringVar(&opts.baseURL, "base-url", "", "portal API base URL (overrides profile and PORTAL_API_BASE_URL)")
	flagSet.StringVar(&opts.sessionFile, "session-file", "", "file holding the signed-in identity")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "log level written to stderr")
	flagSet.BoolVar(&opts.jsonOutput, "json", false, "print JSON instead of text")
	flagSet.SetInterspersed(false)
	flagSet.Usage = func() { printUsage(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		return err
	}
	rest := flagSet.Args()
	if len(rest) == 0 {
		printUsage(stderr, flagSet)
		return pflag.ErrHelp
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		printUsage(stderr, flagSet)
		return fmt.Errorf("unknown command %q", rest[0])
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger, err := observability.NewCLILogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return cmd.run(ctx, &env{app: a, out: stdout, errOut: stderr, json: opts.jsonOutput}, rest[1:])
}

func loadConfig(opts globalOptions) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Logger.Level == "info" && os.Getenv("LOG_LEVEL") == "" {
		cfg.Logger.Level = "warn"
	}
	profile, err := config.LoadProfile(opts.configPath)
	if err != nil {
		return nil, err
	}
	profile.Apply(cfg)
	if opts.baseURL != "" {
		cfg.API.BaseURL = opts.baseURL
	}
	if opts.sessionFile != "" {
		cfg.Session.FilePath = opts.sessionFile
	}
	if opts.logLevel != "" {
		cfg.Logger.Level = opts.logLevel
	}
	return cfg, nil
}

// newApp builds the single-session controller of this process and restores
// the identity saved by an earlier invocation.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*portalapp.App, error) {
	client, err := portalapi.New(cfg.API, logger)
	if err != nil {
		return nil, err
	}
	sealer, err := session.NewSealer(cfg.Session.SealKey)
	if err != nil {
		return nil, err
	}
	a := portalapp.New("", portalapp.Dependencies{
		API:        client,
		Repository: repository.NewFileIdentityRepository(cfg.Session.FilePath),
		Sealer:     sealer,
		Tokens:     auth.NewTokenInspector(0),
		Logger:     logger,
	})
	if err := a.Start(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// errorText prefers the portal's own message for domain errors and the raw
// text for local ones such as flag parsing.
func errorText(err error) string {
	var de *apperrors.DomainError
	if errors.As(err, &de) {
		return apperrors.UserMessage(err)
	}
	return err.Error()
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintln(w, "usage: portalctl [global flags] <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, name := range commandOrder {
		fmt.Fprintf(w, "  %-10s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "global flags:")
	fmt.Fprint(w, flagSet.FlagUsages())
}
