// Package fingerprint reduces a capability descriptor to a canonical value and
// hashes it.
//
// The canonical value contains only the fields that define a server's
// capability contract: identity, tools, resources, prompts and capabilities.
// Protocol version, roots, retrieval errors and diagnostics are excluded.
// Lists are ordered by name with locale-aware collation and, unless
// PreserveKeyOrder is requested, every nested object has its keys sorted.
package fingerprint

import (
	"bytes"
	"errors"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/ajitpratap0/mcp-fingerprint/pkg/descriptor"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/value"
)

// ErrDescriptorUnavailable is returned for a descriptor whose retrieval failed.
var ErrDescriptorUnavailable = errors.New("fingerprint: descriptor carries a retrieval error")

// KeyOrder controls how members of nested objects are ordered.
type KeyOrder int

const (
	// SortedKeys orders members of every nested object by key.
	SortedKeys KeyOrder = iota
	// PreserveKeyOrder keeps nested members in the order the server sent
	// them. Two servers that build the same schema with different key order
	// then fingerprint differently.
	PreserveKeyOrder
)

// String returns the configuration name of the key order.
func (k KeyOrder) String() string {
	if k == PreserveKeyOrder {
		return "preserve"
	}
	return "sorted"
}

type options struct {
	keyOrder KeyOrder
	tag      language.Tag
}

// Option configures canonicalization.
type Option func(*options)

// WithNestedKeyOrder selects how nested object keys are ordered.
func WithNestedKeyOrder(order KeyOrder) Option {
	return func(o *options) { o.keyOrder = order }
}

// WithCollationLocale selects the locale used to order entries by name.
// The default is the root locale.
func WithCollationLocale(tag language.Tag) Option {
	return func(o *options) { o.tag = tag }
}

func newOptions(opts []Option) options {
	o := options{keyOrder: SortedKeys, tag: language.Und}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) nested(v value.Value) value.Value {
	if o.keyOrder == SortedKeys {
		return v.SortKeys()
	}
	return v
}

func str(s string) value.Value { return value.String(s) }

func member(key string, v value.Value) value.Member {
	return value.Member{Key: key, Value: v}
}

// Canonicalize builds the canonical value of d. The descriptor is normalized
// first, so absent and empty fields canonicalize alike.
func Canonicalize(d *descriptor.Descriptor, opts ...Option) (value.Value, error) {
	if !d.Reachable() {
		return value.Value{}, ErrDescriptorUnavailable
	}
	o := newOptions(opts)
	n := descriptor.Normalize(d)

	tools, err := ordered(o, n.Tools, toolName, o.tool)
	if err != nil {
		return value.Value{}, err
	}
	resources, err := ordered(o, n.Resources, resourceName, o.resource)
	if err != nil {
		return value.Value{}, err
	}
	prompts, err := ordered(o, n.Prompts, promptName, o.prompt)
	if err != nil {
		return value.Value{}, err
	}

	return value.Object(
		member("serverInfo", value.Object(
			member("name", str(n.ServerInfo.Name)),
			member("version", str(n.ServerInfo.Version)),
		)),
		member("tools", value.List(tools.values...)),
		member("resources", value.List(resources.values...)),
		member("prompts", value.List(prompts.values...)),
		member("capabilities", o.nested(n.Capabilities)),
	), nil
}

func toolName(t descriptor.ToolSpec) string         { return t.Name }
func resourceName(r descriptor.ResourceSpec) string { return r.Name }
func promptName(p descriptor.PromptSpec) string     { return p.Name }
func rootName(r descriptor.RootSpec) string         { return r.Label() }

func (o options) tool(t descriptor.ToolSpec) value.Value {
	return value.Object(
		member("name", str(t.Name)),
		member("description", str(t.Description)),
		member("inputSchema", o.nested(t.InputSchema)),
	)
}

func (o options) resource(r descriptor.ResourceSpec) value.Value {
	return value.Object(
		member("name", str(r.Name)),
		member("description", str(r.Description)),
		member("mimeType", str(r.MimeType)),
		member("uriTemplate", str(r.URITemplate)),
	)
}

func (o options) prompt(p descriptor.PromptSpec) value.Value {
	return value.Object(
		member("name", str(p.Name)),
		member("description", str(p.Description)),
		member("arguments", o.nested(p.Arguments)),
	)
}

func (o options) root(r descriptor.RootSpec) value.Value {
	return value.Object(
		member("name", str(r.Name)),
		member("uri", str(r.URI)),
	)
}

type orderedList[T any] struct {
	items  []T
	values []value.Value
}

// ordered sorts items ascending by name using locale-aware collation. Names
// that collate equal fall back to byte order, then to the entry's encoding,
// so the result never depends on arrival order.
func ordered[T any](o options, items []T, name func(T) string, project func(T) value.Value) (orderedList[T], error) {
	type entry struct {
		item T
		name string
		v    value.Value
		key  []byte
	}

	entries := make([]entry, len(items))
	for i, item := range items {
		v := project(item)
		key, err := Encode(v)
		if err != nil {
			return orderedList[T]{}, err
		}
		entries[i] = entry{item: item, name: name(item), v: v, key: key}
	}

	// Collators keep scratch buffers and must not be shared across goroutines.
	c := collate.New(o.tag)
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if r := c.CompareString(a.name, b.name); r != 0 {
			return r < 0
		}
		if r := strings.Compare(a.name, b.name); r != 0 {
			return r < 0
		}
		return bytes.Compare(a.key, b.key) < 0
	})

	out := orderedList[T]{items: make([]T, len(entries)), values: make([]value.Value, len(entries))}
	for i, e := range entries {
		out.items[i] = e.item
		out.values[i] = e.v
	}
	return out, nil
}

// Sorted holds the fingerprinted lists of a descriptor in canonical order,
// each entry paired with its canonical value. Roots are ordered the same
// way for diagnostics.
type Sorted struct {
	Tools          []descriptor.ToolSpec
	ToolValues     []value.Value
	Resources      []descriptor.ResourceSpec
	ResourceValues []value.Value
	Prompts        []descriptor.PromptSpec
	PromptValues   []value.Value
	Roots          []descriptor.RootSpec
	RootValues     []value.Value
}

// SortEntries orders the lists of d exactly as Canonicalize does.
func SortEntries(d *descriptor.Descriptor, opts ...Option) (*Sorted, error) {
	o := newOptions(opts)
	n := descriptor.Normalize(d)
	if n == nil {
		n = descriptor.Normalize(&descriptor.Descriptor{})
	}

	tools, err := ordered(o, n.Tools, toolName, o.tool)
	if err != nil {
		return nil, err
	}
	resources, err := ordered(o, n.Resources, resourceName, o.resource)
	if err != nil {
		return nil, err
	}
	prompts, err := ordered(o, n.Prompts, promptName, o.prompt)
	if err != nil {
		return nil, err
	}
	roots, err := ordered(o, n.Roots, rootName, o.root)
	if err != nil {
		return nil, err
	}

	return &Sorted{
		Tools: tools.items, ToolValues: tools.values,
		Resources: resources.items, ResourceValues: resources.values,
		Prompts: prompts.items, PromptValues: prompts.values,
		Roots: roots.items, RootValues: roots.values,
	}, nil
}

// NestedValue applies the configured key order to a free-form value.
func NestedValue(v value.Value, opts ...Option) value.Value {
	return newOptions(opts).nested(v)
}
