package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// RequestSchema returns the JSON Schema of ChatRequest.
func RequestSchema() *jsonschema.Schema {
	return reflect(&ChatRequest{}, "ChatRequest", "Body of POST /api/chat.")
}

// EventSchema returns the JSON Schema of one stream frame payload.
func EventSchema() *jsonschema.Schema {
	return reflect(&WireEvent{}, "WireEvent", "One canonical event as carried by a stream frame.")
}

func reflect(v any, title, description string) *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(v)
	schema.Title = title
	schema.Description = description
	return schema
}

// SchemaDocument bundles the request and event schemas for publication.
type SchemaDocument struct {
	Request *jsonschema.Schema `json:"request"`
	Event   *jsonschema.Schema `json:"event"`
}

// MarshalSchemas renders both schemas as indented JSON.
func MarshalSchemas() ([]byte, error) {
	out, err := json.MarshalIndent(SchemaDocument{Request: RequestSchema(), Event: EventSchema()}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schemas: %w", err)
	}
	return out, nil
}
