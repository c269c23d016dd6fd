package fingerprint

import (
	"fmt"
	"math"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/mcp-fingerprint/pkg/descriptor"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/value"
)

func mustDecode(t *testing.T, s string) value.Value {
	t.Helper()
	v, err := value.Decode([]byte(s))
	require.NoError(t, err)
	return v
}

func calculator(t *testing.T) *descriptor.Descriptor {
	t.Helper()
	return &descriptor.Descriptor{
		ServerInfo:      descriptor.ServerInfo{Name: "calculator", Version: "1.0.0"},
		ProtocolVersion: "2025-03-26",
		Tools: []descriptor.ToolSpec{
			{Name: "subtract", Description: "Subtract b from a", InputSchema: mustDecode(t, `{"type":"object","properties":{"a":{"type":"number"},"b":{"type":"number"}},"required":["a","b"]}`)},
			{Name: "add", Description: "Add two numbers", InputSchema: mustDecode(t, `{"type":"object","properties":{"a":{"type":"number"},"b":{"type":"number"}},"required":["a","b"]}`)},
		},
		Resources: []descriptor.ResourceSpec{
			{Name: "readme", Description: "Project readme", MimeType: "text/markdown", URITemplate: "file:///README.md"},
			{Name: "config", Description: "Config", MimeType: "application/json", URITemplate: "config://{name}"},
		},
		Prompts: []descriptor.PromptSpec{
			{Name: "greet", Description: "Greeting", Arguments: mustDecode(t, `[{"name":"who","required":true}]`)},
		},
		Roots:        []descriptor.RootSpec{{Name: "home", URI: "file:///home"}},
		Capabilities: mustDecode(t, `{"tools":{"listChanged":true},"resources":{"subscribe":false}}`),
	}
}

func digest(t *testing.T, d *descriptor.Descriptor, opts ...Option) string {
	t.Helper()
	fp, err := Fingerprint(d, opts...)
	require.NoError(t, err)
	return fp
}

func TestFingerprintFormat(t *testing.T) {
	fp := digest(t, calculator(t))
	assert.Len(t, fp, Size)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), fp)
}

func TestFingerprintIsDeterministic(t *testing.T) {
	first := digest(t, calculator(t))
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, digest(t, calculator(t)))
	}
}

func TestFingerprintIgnoresListOrder(t *testing.T) {
	base := digest(t, calculator(t))

	d := calculator(t)
	d.Tools[0], d.Tools[1] = d.Tools[1], d.Tools[0]
	d.Resources[0], d.Resources[1] = d.Resources[1], d.Resources[0]
	assert.Equal(t, base, digest(t, d))
}

func TestFingerprintSensitiveToContractFields(t *testing.T) {
	base := digest(t, calculator(t))

	mutations := map[string]func(d *descriptor.Descriptor){
		"tool description": func(d *descriptor.Descriptor) { d.Tools[1].Description = "Add two numbers!" },
		"tool schema":      func(d *descriptor.Descriptor) { d.Tools[1].InputSchema = mustDecode(t, `{"type":"object"}`) },
		"resource uri":     func(d *descriptor.Descriptor) { d.Resources[1].URITemplate = "config://{id}" },
		"resource mime":    func(d *descriptor.Descriptor) { d.Resources[0].MimeType = "text/plain" },
		"prompt arguments": func(d *descriptor.Descriptor) { d.Prompts[0].Arguments = mustDecode(t, `[]`) },
		"capability flag": func(d *descriptor.Descriptor) {
			d.Capabilities = mustDecode(t, `{"tools":{"listChanged":false},"resources":{"subscribe":false}}`)
		},
		"server name":    func(d *descriptor.Descriptor) { d.ServerInfo.Name = "calc" },
		"server version": func(d *descriptor.Descriptor) { d.ServerInfo.Version = "1.0.1" },
		"extra tool": func(d *descriptor.Descriptor) {
			d.Tools = append(d.Tools, descriptor.ToolSpec{Name: "multiply"})
		},
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			d := calculator(t)
			mutate(d)
			assert.NotEqual(t, base, digest(t, d))
		})
	}
}

func TestFingerprintIgnoresConnectionState(t *testing.T) {
	base := digest(t, calculator(t))

	d := calculator(t)
	d.ProtocolVersion = "2024-11-05"
	d.Roots = []descriptor.RootSpec{{URI: "file:///elsewhere"}}
	d.Endpoint = "http://other:9000/mcp"
	d.RecordFailure("ping", fmt.Errorf("method not found"))
	assert.Equal(t, base, digest(t, d))

	d.Roots = nil
	assert.Equal(t, base, digest(t, d))
}

func TestFingerprintRejectsFailedDescriptor(t *testing.T) {
	_, err := Fingerprint(descriptor.Failed("http://x", fmt.Errorf("connection refused")))
	assert.ErrorIs(t, err, ErrDescriptorUnavailable)

	_, err = Fingerprint(nil)
	assert.ErrorIs(t, err, ErrDescriptorUnavailable)
}

func TestFingerprintAbsentAndEmptyAgree(t *testing.T) {
	a := &descriptor.Descriptor{ServerInfo: descriptor.ServerInfo{Name: "x", Version: "1"}}
	b := &descriptor.Descriptor{
		ServerInfo:   descriptor.ServerInfo{Name: "x", Version: "1"},
		Tools:        []descriptor.ToolSpec{},
		Resources:    []descriptor.ResourceSpec{},
		Prompts:      []descriptor.PromptSpec{},
		Capabilities: value.EmptyObject(),
	}
	assert.Equal(t, digest(t, a), digest(t, b))
}

func TestNestedKeyOrder(t *testing.T) {
	a := calculator(t)
	b := calculator(t)
	b.Tools[1].InputSchema = mustDecode(t, `{"required":["a","b"],"properties":{"b":{"type":"number"},"a":{"type":"number"}},"type":"object"}`)
	b.Capabilities = mustDecode(t, `{"resources":{"subscribe":false},"tools":{"listChanged":true}}`)

	assert.Equal(t, digest(t, a), digest(t, b), "sorted keys make insertion order irrelevant")
	assert.NotEqual(t,
		digest(t, a, WithNestedKeyOrder(PreserveKeyOrder)),
		digest(t, b, WithNestedKeyOrder(PreserveKeyOrder)),
		"preserved order keeps the inherited sensitivity")
}

func TestArrayOrderInsideSchemasMatters(t *testing.T) {
	a := calculator(t)
	b := calculator(t)
	b.Tools[1].InputSchema = mustDecode(t, `{"type":"object","properties":{"a":{"type":"number"},"b":{"type":"number"}},"required":["b","a"]}`)
	assert.NotEqual(t, digest(t, a), digest(t, b))
}

func TestCanonicalizeShape(t *testing.T) {
	canonical, err := Canonicalize(calculator(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"serverInfo", "tools", "resources", "prompts", "capabilities"}, canonical.Keys())

	tools, _ := canonical.Get("tools")
	require.Equal(t, 2, tools.Len())
	first := tools.Items()[0]
	name, _ := first.Get("name")
	assert.Equal(t, `"add"`, name.String())
	assert.Equal(t, []string{"name", "description", "inputSchema"}, first.Keys())

	resources, _ := canonical.Get("resources")
	assert.Equal(t, []string{"name", "description", "mimeType", "uriTemplate"}, resources.Items()[0].Keys())
}

func TestLocaleAwareOrdering(t *testing.T) {
	d := &descriptor.Descriptor{
		ServerInfo: descriptor.ServerInfo{Name: "x", Version: "1"},
		Tools: []descriptor.ToolSpec{
			{Name: "beta"}, {Name: "Alpha"}, {Name: "alpha"}, {Name: "Émile"}, {Name: "zeta"},
		},
	}

	sorted, err := SortEntries(d)
	require.NoError(t, err)

	names := make([]string, 0, len(sorted.Tools))
	for _, tool := range sorted.Tools {
		names = append(names, tool.Name)
	}
	assert.Equal(t, "Émile", names[3], "accented names collate with their base letter")
	assert.Equal(t, "zeta", names[4])
	assert.ElementsMatch(t, []string{"alpha", "Alpha"}, names[:2])

	reversed := &descriptor.Descriptor{ServerInfo: d.ServerInfo}
	for i := len(d.Tools) - 1; i >= 0; i-- {
		reversed.Tools = append(reversed.Tools, d.Tools[i])
	}
	assert.Equal(t, digest(t, d), digest(t, reversed))
}

func TestDuplicateNamesAreOrderIndependent(t *testing.T) {
	a := &descriptor.Descriptor{
		ServerInfo: descriptor.ServerInfo{Name: "x", Version: "1"},
		Tools:      []descriptor.ToolSpec{{Name: "dup", Description: "one"}, {Name: "dup", Description: "two"}},
	}
	b := &descriptor.Descriptor{
		ServerInfo: descriptor.ServerInfo{Name: "x", Version: "1"},
		Tools:      []descriptor.ToolSpec{{Name: "dup", Description: "two"}, {Name: "dup", Description: "one"}},
	}
	assert.Equal(t, digest(t, a), digest(t, b))
}

func TestEncodeNormalizesNumbers(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`[1, 1.0, 1e0, -0, 0.0, 2.50, 1e21, 12345678901234567890]`, `[1,1,1,0,0,2.5,1e+21,12345678901234567890]`},
		{`{"b":"<&>","a":1.5e-7}`, `{"b":"<&>","a":1.5e-7}`},
		{`[1000000000000000000000, 1.2345678901234567890e19, 10e-1, 0.000001, 123.456e5, -0.0e3]`,
			`[1e+21,12345678901234567890,1,0.000001,12345600,0]`},
	}
	for _, tt := range tests {
		data, err := Encode(mustDecode(t, tt.in))
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(data))
	}
}

func TestEqualNumbersHashEqual(t *testing.T) {
	pairs := [][2]string{
		{`1e21`, `1000000000000000000000`},
		{`12345678901234567890`, `1.2345678901234567890e19`},
		{`-2.5E+3`, `-2500`},
		{`0.5`, `5e-1`},
	}
	for _, p := range pairs {
		a, b := mustDecode(t, p[0]), mustDecode(t, p[1])
		require.True(t, a.Equal(b), p)
		da, err := Digest(a)
		require.NoError(t, err)
		db, err := Digest(b)
		require.NoError(t, err)
		assert.Equal(t, da, db, p)
	}

	a, b := mustDecode(t, `12345678901234567890`), mustDecode(t, `12345678901234567891`)
	assert.False(t, a.Equal(b), "integers beyond float64 precision keep every digit")
	da, _ := Digest(a)
	db, _ := Digest(b)
	assert.NotEqual(t, da, db)
}

func TestEncodeFailsOnUnrepresentableNumbers(t *testing.T) {
	d := calculator(t)
	d.Tools[0].InputSchema = value.Object(value.Member{Key: "max", Value: value.Float(math.Inf(1))})

	fp, err := Fingerprint(d)
	assert.Error(t, err)
	assert.Empty(t, fp)

	_, err = Encode(value.List(value.Number("1e999")))
	assert.Error(t, err)
}

func TestKeyOrderString(t *testing.T) {
	assert.Equal(t, "sorted", SortedKeys.String())
	assert.Equal(t, "preserve", PreserveKeyOrder.String())
}
