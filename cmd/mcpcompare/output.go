package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ajitpratap0/mcp-fingerprint/pkg/compare"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/config"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func digestOrNone(d string) string {
	if d == "" {
		return "(none)"
	}
	return d
}

// writeReport prints a report for a terminal.
func writeReport(w io.Writer, cfg *config.Config, r *compare.Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Server A: %s\n", cfg.Endpoints.A.URL)
	fmt.Fprintf(&b, "  digest: %s\n", digestOrNone(r.Digest1))
	fmt.Fprintf(&b, "Server B: %s\n", cfg.Endpoints.B.URL)
	fmt.Fprintf(&b, "  digest: %s\n", digestOrNone(r.Digest2))

	if r.Equivalent {
		b.WriteString("Result: equivalent\n")
	} else {
		fmt.Fprintf(&b, "Result: different (%d)\n", len(r.Differences))
		for _, d := range r.Differences {
			fmt.Fprintf(&b, "  - %s\n", d)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
