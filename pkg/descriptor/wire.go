package descriptor

import (
	"github.com/ajitpratap0/mcp-fingerprint/pkg/protocol"
)

// ToolFromWire projects a listed tool onto its declared fields.
func ToolFromWire(t protocol.Tool) ToolSpec {
	return ToolSpec{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema}
}

// ResourceFromWire projects a listed resource onto its declared fields.
// Concrete resources have no template, so their uri stands in for it.
func ResourceFromWire(r protocol.Resource) ResourceSpec {
	uri := r.URITemplate
	if uri == "" {
		uri = r.URI
	}
	return ResourceSpec{Name: r.Name, Description: r.Description, MimeType: r.MimeType, URITemplate: uri}
}

// PromptFromWire projects a listed prompt onto its declared fields.
func PromptFromWire(p protocol.Prompt) PromptSpec {
	return PromptSpec{Name: p.Name, Description: p.Description, Arguments: p.Arguments}
}

// RootFromWire converts a listed root.
func RootFromWire(r protocol.Root) RootSpec {
	return RootSpec{Name: r.Name, URI: r.URI}
}

// ApplyInitialize seeds d from a successful initialize result.
func (d *Descriptor) ApplyInitialize(result *protocol.InitializeResult) {
	d.ServerInfo = ServerInfo{Name: result.ServerInfo.Name, Version: result.ServerInfo.Version}
	d.ProtocolVersion = result.ProtocolVersion
	d.Capabilities = result.Capabilities
}
