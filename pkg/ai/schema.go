package ai

// Schema is the OpenAPI subset accepted by Gemini's responseSchema.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Nullable    bool               `json:"nullable,omitempty"`
}

func String(description string) *Schema {
	return &Schema{Type: "STRING", Description: description}
}

func Number(description string) *Schema {
	return &Schema{Type: "NUMBER", Description: description}
}

func Integer(description string) *Schema {
	return &Schema{Type: "INTEGER", Description: description}
}

func Array(items *Schema) *Schema {
	return &Schema{Type: "ARRAY", Items: items}
}

// Object builds an OBJECT schema; required lists mandatory property names.
func Object(properties map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: "OBJECT", Properties: properties, Required: required}
}

// Optional marks s as nullable and returns it.
func Optional(s *Schema) *Schema {
	s.Nullable = true
	return s
}
