// Package compare decides whether two MCP servers expose the same capability
// surface and explains where they differ.
//
// The verdict comes from the fingerprints alone. The difference list is a
// diagnostic walk over the normalized descriptors and never overrides it.
package compare

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ajitpratap0/mcp-fingerprint/pkg/descriptor"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/fingerprint"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/value"
)

// Side names one of the two compared servers.
type Side int

const (
	SideA Side = iota
	SideB
)

func (s Side) String() string {
	if s == SideB {
		return "B"
	}
	return "A"
}

// Report is the outcome of one comparison.
type Report struct {
	RunID       string   `json:"runId,omitempty"`
	Equivalent  bool     `json:"equivalent"`
	Digest1     string   `json:"digest1"`
	Digest2     string   `json:"digest2"`
	Differences []string `json:"differences"`
}

// Verdict returns "equivalent" or "different".
func (r *Report) Verdict() string {
	if r.Equivalent {
		return "equivalent"
	}
	return "different"
}

var errNoDescriptor = errors.New("no descriptor")

// Compare normalizes a and b, fingerprints them and, when the digests
// differ, lists what differs. A side that failed to initialize has no digest
// and is never equivalent to anything; the other side is still fingerprinted.
func Compare(a, b *descriptor.Descriptor, opts ...Option) *Report {
	o := newOptions(opts)
	if a == nil {
		a = descriptor.Failed("", errNoDescriptor)
	}
	if b == nil {
		b = descriptor.Failed("", errNoDescriptor)
	}
	a, b = descriptor.Normalize(a), descriptor.Normalize(b)

	r := &Report{Differences: []string{}}

	var errA, errB error
	if a.Reachable() {
		r.Digest1, errA = fingerprint.Fingerprint(a, o.fingerprint...)
	}
	if b.Reachable() {
		r.Digest2, errB = fingerprint.Fingerprint(b, o.fingerprint...)
	}

	if !a.Reachable() || !b.Reachable() {
		r.Differences = append(r.Differences, reachability(a, b))
	}
	if errA != nil {
		r.Differences = append(r.Differences, fmt.Sprintf("Fingerprint: server A: %v", errA))
	}
	if errB != nil {
		r.Differences = append(r.Differences, fmt.Sprintf("Fingerprint: server B: %v", errB))
	}
	if len(r.Differences) > 0 {
		return r
	}

	r.Equivalent = r.Digest1 == r.Digest2
	if r.Equivalent {
		return r
	}

	w := &walker{opts: o.fingerprint}
	w.identity(a, b)
	w.capabilities(a.Capabilities, b.Capabilities)
	w.entries(a, b)
	r.Differences = append(r.Differences, w.diffs...)
	return r
}

func reachability(a, b *descriptor.Descriptor) string {
	switch {
	case !a.Reachable() && !b.Reachable():
		return "Reachability: both servers unreachable"
	case !a.Reachable():
		return fmt.Sprintf("Reachability: server A unreachable (%s) vs server B reachable", a.Error)
	default:
		return fmt.Sprintf("Reachability: server A reachable vs server B unreachable (%s)", b.Error)
	}
}

// walker collects differences between two reachable, normalized descriptors.
type walker struct {
	opts  []fingerprint.Option
	diffs []string
}

func (w *walker) add(format string, args ...interface{}) {
	w.diffs = append(w.diffs, fmt.Sprintf(format, args...))
}

// encode renders v the way it is hashed, so two values compare equal here
// exactly when they hash equal.
func (w *walker) encode(v value.Value) string {
	data, err := fingerprint.Encode(fingerprint.NestedValue(v, w.opts...))
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}

func (w *walker) identity(a, b *descriptor.Descriptor) {
	if a.ServerInfo.Name != b.ServerInfo.Name {
		w.add("Server name: %s vs %s", a.ServerInfo.Name, b.ServerInfo.Name)
	}
	if a.ServerInfo.Version != b.ServerInfo.Version {
		w.add("Server version: %s vs %s", a.ServerInfo.Version, b.ServerInfo.Version)
	}
	if a.ProtocolVersion != b.ProtocolVersion {
		w.add("Protocol version: %s vs %s", a.ProtocolVersion, b.ProtocolVersion)
	}
}

func (w *walker) capabilities(a, b value.Value) {
	if w.encode(a) == w.encode(b) {
		return
	}
	w.add("Capabilities differ")
	if a.Kind() != value.KindMap || b.Kind() != value.KindMap {
		return
	}

	keys := map[string]bool{}
	for _, k := range a.Keys() {
		keys[k] = true
	}
	for _, k := range b.Keys() {
		keys[k] = true
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	for _, k := range sorted {
		av, aok := a.Get(k)
		bv, bok := b.Get(k)
		left, right := "absent", "absent"
		if aok {
			left = w.encode(av)
		}
		if bok {
			right = w.encode(bv)
		}
		if left != right {
			w.add("Capability %q: %s vs %s", k, left, right)
		}
	}
}

func (w *walker) entries(a, b *descriptor.Descriptor) {
	sa, errA := fingerprint.SortEntries(a, w.opts...)
	sb, errB := fingerprint.SortEntries(b, w.opts...)
	if errA != nil || errB != nil {
		w.add("Entries could not be ordered: %v", errors.Join(errA, errB))
		return
	}

	w.list("Tools", "Tool", sa.ToolValues, sb.ToolValues, func(i int) string { return sa.Tools[i].Name })
	w.list("Resources", "Resource", sa.ResourceValues, sb.ResourceValues, func(i int) string { return sa.Resources[i].Name })
	w.list("Prompts", "Prompt", sa.PromptValues, sb.PromptValues, func(i int) string { return sa.Prompts[i].Name })
	w.list("Roots", "Root", sa.RootValues, sb.RootValues, func(i int) string { return sa.Roots[i].Label() })
}

// list reports a count mismatch, or else every position whose entries
// differ after the canonical sort. Entries are named from side A.
func (w *walker) list(plural, singular string, a, b []value.Value, name func(int) string) {
	if len(a) != len(b) {
		w.add("%s count: %d vs %d", plural, len(a), len(b))
		return
	}
	for i := range a {
		if w.encode(a[i]) == w.encode(b[i]) {
			continue
		}
		if n := name(i); n != "" {
			w.add("%s %q configuration differs", singular, n)
		} else {
			w.add("%s #%d configuration differs", singular, i+1)
		}
	}
}
