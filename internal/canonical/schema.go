package canonical

import (
	_ "embed"
	"encoding/json"
)

//go:embed schema.json
var schemaJSON []byte

var schema = mustSchema(schemaJSON)

func mustSchema(data []byte) map[string]interface{} {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		panic(err)
	}
	return m
}

// SchemaJSON returns the JSON schema every canonical record must satisfy.
func SchemaJSON() []byte {
	out := make([]byte, len(schemaJSON))
	copy(out, schemaJSON)
	return out
}
