package compare

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/mcp-fingerprint/pkg/descriptor"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/fingerprint"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/value"
)

func schema(t *testing.T, raw string) value.Value {
	t.Helper()
	v, err := value.Decode([]byte(raw))
	require.NoError(t, err)
	return v
}

func addTool(t *testing.T, description string) descriptor.ToolSpec {
	return descriptor.ToolSpec{
		Name:        "add",
		Description: description,
		InputSchema: schema(t, `{"type":"object","properties":{"a":{"type":"number"},"b":{"type":"number"}}}`),
	}
}

func server(t *testing.T, tools ...descriptor.ToolSpec) *descriptor.Descriptor {
	return &descriptor.Descriptor{
		Endpoint:        "http://example/mcp",
		ServerInfo:      descriptor.ServerInfo{Name: "calc", Version: "1.0.0"},
		ProtocolVersion: "2025-03-26",
		Tools:           tools,
		Resources:       []descriptor.ResourceSpec{},
		Prompts:         []descriptor.PromptSpec{},
		Roots:           []descriptor.RootSpec{},
		Capabilities:    schema(t, `{"tools":{"listChanged":true}}`),
	}
}

func TestCompareIdenticalServers(t *testing.T) {
	a := server(t, addTool(t, "Add two numbers"))
	b := server(t, addTool(t, "Add two numbers"))

	r := Compare(a, b)
	assert.True(t, r.Equivalent)
	assert.Equal(t, r.Digest1, r.Digest2)
	assert.Len(t, r.Digest1, fingerprint.Size)
	assert.Empty(t, r.Differences)
	assert.NotNil(t, r.Differences)
	assert.Equal(t, "equivalent", r.Verdict())
}

func TestCompareToolCountMismatch(t *testing.T) {
	a := server(t, addTool(t, "Add two numbers"))
	b := server(t, addTool(t, "Add two numbers"), descriptor.ToolSpec{Name: "subtract", InputSchema: value.EmptyObject()})

	r := Compare(a, b)
	assert.False(t, r.Equivalent)
	assert.NotEqual(t, r.Digest1, r.Digest2)
	assert.Equal(t, []string{"Tools count: 1 vs 2"}, r.Differences)
	assert.Equal(t, "different", r.Verdict())
}

func TestCompareToolConfigurationDiffers(t *testing.T) {
	a := server(t, addTool(t, "Add two numbers"))
	b := server(t, addTool(t, "Add two numbers!"))

	r := Compare(a, b)
	assert.False(t, r.Equivalent)
	assert.Equal(t, []string{`Tool "add" configuration differs`}, r.Differences)
}

func TestCompareUnreachable(t *testing.T) {
	a := server(t, addTool(t, "Add two numbers"))
	b := descriptor.Failed("http://b/mcp", errors.New("connection refused"))

	digest, err := fingerprint.Fingerprint(descriptor.Normalize(a))
	require.NoError(t, err)

	r := Compare(a, b)
	assert.False(t, r.Equivalent)
	assert.Equal(t, digest, r.Digest1, "the reachable side keeps its digest")
	assert.Empty(t, r.Digest2)
	assert.Equal(t, []string{"Reachability: server A reachable vs server B unreachable (connection refused)"}, r.Differences)

	r = Compare(b, a)
	assert.Equal(t, []string{"Reachability: server A unreachable (connection refused) vs server B reachable"}, r.Differences)
	assert.Empty(t, r.Digest1)
	assert.Equal(t, digest, r.Digest2)

	r = Compare(b, b)
	assert.False(t, r.Equivalent, "two failures are never equivalent")
	assert.Equal(t, []string{"Reachability: both servers unreachable"}, r.Differences)
	assert.Empty(t, r.Digest1)
	assert.Empty(t, r.Digest2)

	r = Compare(a, nil)
	assert.False(t, r.Equivalent)
	assert.Contains(t, r.Differences[0], "no descriptor")
}

func TestCompareIdentityAndCapabilities(t *testing.T) {
	a := server(t, addTool(t, "x"))
	b := server(t, addTool(t, "x"))
	b.ServerInfo = descriptor.ServerInfo{Name: "calc2", Version: "2.0.0"}
	b.ProtocolVersion = "2024-11-05"
	b.Capabilities = schema(t, `{"tools":{"listChanged":false},"prompts":{}}`)

	r := Compare(a, b)
	assert.False(t, r.Equivalent)
	assert.Equal(t, []string{
		"Server name: calc vs calc2",
		"Server version: 1.0.0 vs 2.0.0",
		"Protocol version: 2025-03-26 vs 2024-11-05",
		"Capabilities differ",
		`Capability "prompts": absent vs {}`,
		`Capability "tools": {"listChanged":true} vs {"listChanged":false}`,
	}, r.Differences)
}

func TestCompareProtocolVersionAloneIsEquivalent(t *testing.T) {
	a := server(t, addTool(t, "x"))
	b := server(t, addTool(t, "x"))
	b.ProtocolVersion = "2024-11-05"
	b.Roots = []descriptor.RootSpec{{URI: "file:///x"}}

	r := Compare(a, b)
	assert.True(t, r.Equivalent)
	assert.Empty(t, r.Differences, "differences are only walked when digests differ")
}

func TestCompareOrderIndependent(t *testing.T) {
	sub := descriptor.ToolSpec{Name: "subtract", InputSchema: schema(t, `{"b":1,"a":2}`)}
	subReordered := descriptor.ToolSpec{Name: "subtract", InputSchema: schema(t, `{"a":2,"b":1}`)}

	a := server(t, addTool(t, "x"), sub)
	b := server(t, subReordered, addTool(t, "x"))

	r := Compare(a, b)
	assert.True(t, r.Equivalent)

	r = Compare(a, b, WithFingerprintOptions(fingerprint.WithNestedKeyOrder(fingerprint.PreserveKeyOrder)))
	assert.False(t, r.Equivalent)
	assert.Equal(t, []string{`Tool "subtract" configuration differs`}, r.Differences)
}

func TestCompareUnnamedEntriesUsePosition(t *testing.T) {
	a := server(t)
	b := server(t)
	a.Prompts = []descriptor.PromptSpec{{Name: "a"}, {Name: "", Description: "one"}}
	b.Prompts = []descriptor.PromptSpec{{Name: "a"}, {Name: "", Description: "two"}}

	r := Compare(a, b)
	assert.Equal(t, []string{"Prompt #1 configuration differs"}, r.Differences)
}

func TestCompareResourceAndPromptLists(t *testing.T) {
	a := server(t)
	b := server(t)
	a.Resources = []descriptor.ResourceSpec{{Name: "readme", URITemplate: "file:///readme", MimeType: "text/plain"}}
	b.Resources = []descriptor.ResourceSpec{{Name: "readme", URITemplate: "file:///readme", MimeType: "text/markdown"}}
	b.Prompts = []descriptor.PromptSpec{{Name: "greet"}}
	a.Roots = []descriptor.RootSpec{{Name: "work", URI: "file:///a"}}
	b.Roots = []descriptor.RootSpec{{Name: "work", URI: "file:///b"}}

	r := Compare(a, b)
	assert.Equal(t, []string{
		`Resource "readme" configuration differs`,
		"Prompts count: 0 vs 1",
		`Root "work" configuration differs`,
	}, r.Differences)
}

func TestCompareNormalizesMissingFields(t *testing.T) {
	a := server(t)
	a.Tools = []descriptor.ToolSpec{{Name: "add"}}
	a.Resources, a.Prompts, a.Roots = nil, nil, nil
	b := server(t)
	b.Tools = []descriptor.ToolSpec{{Name: "add", InputSchema: value.EmptyObject()}}

	r := Compare(a, b)
	assert.True(t, r.Equivalent)
	assert.False(t, a.Normalized, "inputs are not modified")
}
