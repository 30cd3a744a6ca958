package tools

// Field types accepted in an ArgSchema.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeObject  = "object"
	TypeArray   = "array"
)

// Field declares one named argument of a tool.
type Field struct {
	Name        string
	Type        string
	Required    bool
	Description string
}

// ArgSchema is the ordered argument declaration of a tool.
type ArgSchema []Field

// Lookup returns the field called name.
func (s ArgSchema) Lookup(name string) (Field, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// JSONSchema renders the schema as an object schema for model providers.
func (s ArgSchema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s))
	required := make([]string, 0)
	for _, f := range s {
		p := map[string]any{"type": f.Type}
		if f.Description != "" {
			p["description"] = f.Description
		}
		if f.Type == TypeArray {
			p["items"] = map[string]any{"type": TypeString}
		}
		props[f.Name] = p
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return map[string]any{
		"type":       TypeObject,
		"properties": props,
		"required":   required,
	}
}
