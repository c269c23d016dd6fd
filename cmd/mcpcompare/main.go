// Command mcpcompare reports whether two MCP servers expose the same
// capability surface.
//
//	mcpcompare http://localhost:8080/mcp http://localhost:9090/mcp
//
// The exit status is 0 when the servers are equivalent, 1 when they differ
// and 2 on a usage or configuration error.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
