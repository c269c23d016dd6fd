package descriptor

import (
	"github.com/ajitpratap0/mcp-fingerprint/pkg/value"
)

// Names recorded in Descriptor.Defaulted.
const (
	FieldTools             = "tools"
	FieldResources         = "resources"
	FieldPrompts           = "prompts"
	FieldRoots             = "roots"
	FieldCapabilities      = "capabilities"
	FieldToolInputSchema   = "tools.inputSchema"
	FieldPromptArguments   = "prompts.arguments"
	FieldServerInfoName    = "serverInfo.name"
	FieldServerInfoVersion = "serverInfo.version"
)

// Normalize returns a copy of d in which every absent list is an empty list,
// absent capabilities are an empty object, absent tool input schemas are an
// empty object and absent prompt arguments are an empty list. Each filled
// field is recorded once in Defaulted. Normalizing twice is a no-op.
func Normalize(d *Descriptor) *Descriptor {
	if d == nil {
		return nil
	}
	if d.Normalized {
		return d
	}

	out := *d
	out.Failures = append([]CallFailure(nil), d.Failures...)
	out.Defaulted = append([]string(nil), d.Defaulted...)

	record := func(field string) {
		for _, f := range out.Defaulted {
			if f == field {
				return
			}
		}
		out.Defaulted = append(out.Defaulted, field)
	}

	if out.Tools == nil {
		out.Tools = []ToolSpec{}
		record(FieldTools)
	} else {
		out.Tools = append([]ToolSpec(nil), d.Tools...)
		for i := range out.Tools {
			if out.Tools[i].InputSchema.IsNull() {
				out.Tools[i].InputSchema = value.EmptyObject()
				record(FieldToolInputSchema)
			}
		}
	}

	if out.Resources == nil {
		out.Resources = []ResourceSpec{}
		record(FieldResources)
	} else {
		out.Resources = append([]ResourceSpec(nil), d.Resources...)
	}

	if out.Prompts == nil {
		out.Prompts = []PromptSpec{}
		record(FieldPrompts)
	} else {
		out.Prompts = append([]PromptSpec(nil), d.Prompts...)
		for i := range out.Prompts {
			if out.Prompts[i].Arguments.IsNull() {
				out.Prompts[i].Arguments = value.EmptyList()
				record(FieldPromptArguments)
			}
		}
	}

	if out.Roots == nil {
		out.Roots = []RootSpec{}
		record(FieldRoots)
	} else {
		out.Roots = append([]RootSpec(nil), d.Roots...)
	}

	if out.Capabilities.IsNull() {
		out.Capabilities = value.EmptyObject()
		record(FieldCapabilities)
	}

	if out.Error == "" {
		if out.ServerInfo.Name == "" {
			record(FieldServerInfoName)
		}
		if out.ServerInfo.Version == "" {
			record(FieldServerInfoVersion)
		}
	}

	out.Normalized = true
	return &out
}

// WasDefaulted reports whether Normalize filled field.
func (d *Descriptor) WasDefaulted(field string) bool {
	for _, f := range d.Defaulted {
		if f == field {
			return true
		}
	}
	return false
}
