package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// Viewport sign checks stay out of the schemas so the transport can answer
// them with E_BAD_VIEWPORT instead of a generic bad request.
var clientSchemas = map[string]*jsonschema.Schema{
	TypeHello: mustCompile("hello.schema.json"),
	TypeInput: mustCompile("input.schema.json"),
}

func mustCompile(name string) *jsonschema.Schema {
	b, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, bytes.NewReader(b)); err != nil {
		panic(err)
	}
	return c.MustCompile(name)
}

// ValidateClient checks a client frame against the schema for its type and
// returns the routed base message.
func ValidateClient(b []byte) (BaseMessage, error) {
	base, err := DecodeBase(b)
	if err != nil {
		return base, err
	}
	s, ok := clientSchemas[base.Type]
	if !ok {
		return base, fmt.Errorf("unexpected message type %q", base.Type)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return base, err
	}
	if err := s.Validate(doc); err != nil {
		return base, err
	}
	return base, nil
}
