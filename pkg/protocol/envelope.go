package protocol

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed envelope.schema.json
var envelopeSchema []byte

const envelopeSchemaURL = "https://mcp-fingerprint.local/schema/response-envelope.json"

var (
	envelopeOnce     sync.Once
	compiledEnvelope *jsonschema.Schema
	envelopeErr      error
)

func responseEnvelopeSchema() (*jsonschema.Schema, error) {
	envelopeOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(envelopeSchemaURL, bytes.NewReader(envelopeSchema)); err != nil {
			envelopeErr = fmt.Errorf("failed to load envelope schema: %w", err)
			return
		}
		compiledEnvelope, envelopeErr = compiler.Compile(envelopeSchemaURL)
		if envelopeErr != nil {
			envelopeErr = fmt.Errorf("failed to compile envelope schema: %w", envelopeErr)
		}
	})
	return compiledEnvelope, envelopeErr
}

// ValidateResponseEnvelope checks a raw response message against the JSON-RPC
// 2.0 response envelope. Result payloads are not inspected.
func ValidateResponseEnvelope(data []byte) error {
	schema, err := responseEnvelopeSchema()
	if err != nil {
		return err
	}

	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("invalid JSON-RPC message: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("response envelope: %w", err)
	}
	return nil
}
