package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ajitpratap0/mcp-fingerprint/pkg/compare"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/config"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/logging"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/observability"
)

// Exit codes.
const (
	exitEquivalent = 0
	exitDifferent  = 1
	exitUsage      = 2
)

var (
	// errDifferent signals a completed run whose verdict is "different".
	errDifferent = errors.New("servers differ")
	// errUnreachable signals that a fingerprinted server failed initialize.
	errUnreachable = errors.New("server unreachable")
)

// usageError marks errors caused by arguments or configuration.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usage(err error) error {
	if err == nil {
		return nil
	}
	return &usageError{err: err}
}

type flags struct {
	configPath       string
	timeout          time.Duration
	sessionMode      string
	sessionModeB     string
	json             bool
	logLevel         string
	logFormat        string
	metricsTextfile  string
	preserveKeyOrder bool
}

func bindFlags(fs *pflag.FlagSet, f *flags) {
	fs.StringVarP(&f.configPath, "config", "c", "", "path to a YAML configuration file")
	fs.DurationVar(&f.timeout, "timeout", 0, "per-call timeout (default 10s)")
	fs.StringVar(&f.sessionMode, "session-mode", "", `where the session token is read: "header" or "event-id"`)
	fs.StringVar(&f.sessionModeB, "session-mode-b", "", "session mode for server B only")
	fs.BoolVar(&f.json, "json", false, "print the report as JSON")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: text or json")
	fs.StringVar(&f.metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file after the run")
	fs.BoolVar(&f.preserveKeyOrder, "preserve-key-order", false, "keep the key order of nested objects when fingerprinting")
}

// apply overlays flags that were set explicitly on cfg.
func (f *flags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("timeout") {
		cfg.Timeout = f.timeout
	}
	if fs.Changed("session-mode") {
		cfg.SessionMode = f.sessionMode
	}
	if fs.Changed("session-mode-b") {
		cfg.Endpoints.B.SessionMode = f.sessionModeB
	}
	if fs.Changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if fs.Changed("log-format") {
		cfg.Logging.Format = f.logFormat
	}
	if fs.Changed("metrics-textfile") {
		cfg.Metrics.Textfile = f.metricsTextfile
	}
	if f.preserveKeyOrder {
		cfg.NestedKeyOrder = config.KeyOrderPreserve
	}
}

// load reads the configuration and overlays positional endpoints and flags.
func (f *flags) load(fs *pflag.FlagSet, endpoints []string, sides ...compare.Side) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, usage(err)
	}
	if len(endpoints) > 0 {
		cfg.Endpoints.A.URL = endpoints[0]
	}
	if len(endpoints) > 1 {
		cfg.Endpoints.B.URL = endpoints[1]
	}
	f.apply(fs, cfg)
	if err := cfg.ValidateSides(sides...); err != nil {
		return nil, usage(err)
	}
	return cfg, nil
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "mcpcompare [url-a] [url-b]",
		Short: "Compare the capability surface of two MCP servers",
		Long: `mcpcompare connects to two MCP servers over streamable HTTP, lists their
tools, resources, prompts and roots, and reports whether their SHA-256
fingerprints match. Endpoints may also come from the configuration file or
MCPCOMPARE_ENDPOINT_A and MCPCOMPARE_ENDPOINT_B.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd.Flags(), args, compare.SideA, compare.SideB)
			if err != nil {
				return err
			}
			return runCompare(cmd.Context(), cfg, f.json, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	bindFlags(cmd.PersistentFlags(), f)
	cmd.AddCommand(newFingerprintCommand(f, stdout, stderr))
	return cmd
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand(stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)

	var ue *usageError
	switch {
	case err == nil:
		return exitEquivalent
	case errors.Is(err, errDifferent), errors.Is(err, errUnreachable):
		return exitDifferent
	case errors.As(err, &ue):
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	default:
		// Cobra argument and flag errors land here.
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fmt.Fprintln(stderr, cmd.UsageString())
		return exitUsage
	}
}

// stack holds what a run builds from the configuration.
type stack struct {
	logger  logging.Logger
	metrics *observability.Metrics
	tracing *observability.TracingProvider
}

func newStack(cfg *config.Config, stderr io.Writer) (*stack, error) {
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return nil, usage(err)
	}
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, usage(err)
	}
	rt := &stack{logger: logging.New(stderr, format)}
	rt.logger.SetLevel(level)

	if cfg.Metrics.Enabled || cfg.Metrics.Textfile != "" {
		rt.metrics, err = observability.NewMetrics(observability.MetricsConfig{
			ServiceName:    "mcpcompare",
			ServiceVersion: version,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create metrics")
		}
	}

	tc, err := cfg.TracingOptions(version)
	if err != nil {
		return nil, usage(err)
	}
	rt.tracing, err = observability.NewTracingProvider(tc)
	if err != nil {
		return nil, usage(errors.Wrap(err, "failed to create tracing provider"))
	}
	return rt, nil
}

func (rt *stack) close(ctx context.Context, textfile string) {
	if rt.metrics != nil && textfile != "" {
		if err := rt.metrics.WriteTextfile(textfile); err != nil {
			rt.logger.Error("failed to write metrics textfile", logging.String("path", textfile), logging.ErrorField(err))
		}
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := rt.tracing.Shutdown(ctx); err != nil {
		rt.logger.Warn("tracing shutdown failed", logging.ErrorField(err))
	}
}

func (rt *stack) options() []compare.Option {
	opts := []compare.Option{
		compare.WithLogger(rt.logger),
		compare.WithTracer(rt.tracing.Tracer()),
	}
	if rt.metrics != nil {
		opts = append(opts, compare.WithMetrics(rt.metrics))
	}
	return opts
}

func runCompare(ctx context.Context, cfg *config.Config, asJSON bool, stdout, stderr io.Writer) error {
	rt, err := newStack(cfg, stderr)
	if err != nil {
		return err
	}
	defer rt.close(ctx, cfg.Metrics.Textfile)

	opts, err := cfg.CompareOptions()
	if err != nil {
		return usage(err)
	}
	opts = append(opts, rt.options()...)

	report, _, err := compare.Run(ctx, cfg.Endpoints.A.URL, cfg.Endpoints.B.URL, opts...)
	if err != nil {
		return usage(err)
	}

	if asJSON {
		err = writeJSON(stdout, report)
	} else {
		err = writeReport(stdout, cfg, report)
	}
	if err != nil {
		return err
	}
	if !report.Equivalent {
		return errDifferent
	}
	return nil
}
