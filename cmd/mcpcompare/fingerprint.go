package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/mcp-fingerprint/pkg/client"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/compare"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/config"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/descriptor"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/fingerprint"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/observability"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/transport"
)

func newFingerprintCommand(f *flags, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint <url>",
		Short: "Print the fingerprint of one MCP server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd.Flags(), args, compare.SideA)
			if err != nil {
				return err
			}
			return runFingerprint(cmd.Context(), cfg, f.json, stdout, stderr)
		},
	}
}

// fingerprintResult is the JSON output of the fingerprint command.
type fingerprintResult struct {
	Endpoint   string                   `json:"endpoint"`
	Digest     string                   `json:"digest,omitempty"`
	Error      string                   `json:"error,omitempty"`
	Descriptor *descriptor.Descriptor   `json:"descriptor,omitempty"`
	Failures   []descriptor.CallFailure `json:"failures,omitempty"`
}

func runFingerprint(ctx context.Context, cfg *config.Config, asJSON bool, stdout, stderr io.Writer) error {
	rt, err := newStack(cfg, stderr)
	if err != nil {
		return err
	}
	defer rt.close(ctx, cfg.Metrics.Textfile)

	order, err := cfg.KeyOrder()
	if err != nil {
		return usage(err)
	}

	tc := transport.DefaultConfig(cfg.Endpoints.A.URL)
	tc.Logger = rt.logger
	cfg.ConfigureTransport(compare.SideA, &tc)
	tc.Middleware = append(tc.Middleware,
		transport.LoggingMiddleware(rt.logger),
		observability.NewMiddleware(observability.MiddlewareConfig{Metrics: rt.metrics, Tracer: rt.tracing.Tracer()}),
	)
	tr, err := transport.New(tc)
	if err != nil {
		return usage(err)
	}

	c := client.New(tr, append(cfg.ClientOptions(), client.WithLogger(rt.logger))...)
	d := descriptor.Normalize(c.RetrieveDescriptor(ctx))

	result := fingerprintResult{Endpoint: d.Endpoint, Failures: d.Failures}
	if !d.Reachable() {
		result.Error = d.Error
	} else if result.Digest, err = fingerprint.Fingerprint(d, fingerprint.WithNestedKeyOrder(order)); err != nil {
		result.Error = err.Error()
	}

	if asJSON {
		if result.Error == "" {
			result.Descriptor = d
		}
		if err := writeJSON(stdout, result); err != nil {
			return err
		}
	} else if result.Error == "" {
		fmt.Fprintln(stdout, result.Digest)
	} else {
		fmt.Fprintf(stderr, "%s: %s\n", result.Endpoint, result.Error)
	}

	if result.Error != "" {
		return errUnreachable
	}
	return nil
}
