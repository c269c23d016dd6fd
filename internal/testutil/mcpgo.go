package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// CalculatorConfig shapes the calculator server built by NewCalculatorServer.
type CalculatorConfig struct {
	Version string
	// Reverse registers tools in reverse order.
	Reverse bool
	// ExtraTools adds no-argument tools with these names.
	ExtraTools []string
	// AddDescription overrides the description of the add tool.
	AddDescription string
}

// NewCalculatorServer starts a real streamable HTTP MCP server with a small
// calculator surface and returns its endpoint URL.
func NewCalculatorServer(t testing.TB, cfg CalculatorConfig) string {
	t.Helper()
	if cfg.Version == "" {
		cfg.Version = "1.0.0"
	}
	if cfg.AddDescription == "" {
		cfg.AddDescription = "Add two numbers"
	}

	s := server.NewMCPServer("calculator", cfg.Version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithPromptCapabilities(false),
	)

	tools := []mcp.Tool{
		mcp.NewTool("add",
			mcp.WithDescription(cfg.AddDescription),
			mcp.WithNumber("a", mcp.Required(), mcp.Description("First operand")),
			mcp.WithNumber("b", mcp.Required(), mcp.Description("Second operand")),
		),
		mcp.NewTool("multiply",
			mcp.WithDescription("Multiply two numbers"),
			mcp.WithNumber("a", mcp.Required()),
			mcp.WithNumber("b", mcp.Required()),
		),
	}
	for _, name := range cfg.ExtraTools {
		tools = append(tools, mcp.NewTool(name, mcp.WithDescription(fmt.Sprintf("The %s tool", name))))
	}
	if cfg.Reverse {
		for i, j := 0, len(tools)-1; i < j; i, j = i+1, j-1 {
			tools[i], tools[j] = tools[j], tools[i]
		}
	}
	for _, tool := range tools {
		s.AddTool(tool, calculatorHandler)
	}

	s.AddResource(
		mcp.NewResource("file:///docs/readme.md", "readme",
			mcp.WithResourceDescription("Calculator documentation"),
			mcp.WithMIMEType("text/markdown"),
		),
		func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			return []mcp.ResourceContents{
				mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "text/markdown", Text: "# calculator"},
			}, nil
		},
	)

	s.AddPrompt(
		mcp.NewPrompt("explain",
			mcp.WithPromptDescription("Explain a calculation"),
			mcp.WithArgument("expression", mcp.RequiredArgument(), mcp.ArgumentDescription("Expression to explain")),
		),
		func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			return mcp.NewGetPromptResult("Explain", []mcp.PromptMessage{
				mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(req.Params.Arguments["expression"])),
			}), nil
		},
	)

	srv := server.NewTestStreamableHTTPServer(s)
	t.Cleanup(srv.Close)
	return srv.URL + "/mcp"
}

func calculatorHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("ok"), nil
}
