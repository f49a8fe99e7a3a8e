package profile

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const schemaURL = "https://qpdiff.dev/schema/profile.json"

var printer = message.NewPrinter(language.English)

//go:embed profile.schema.json
var schemaJSON []byte

// SchemaError is a JSON Schema violation in a profile document.
type SchemaError struct {
	Path   string // JSON pointer to the offending value, "" for the root.
	Detail string
}

func (e *SchemaError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("error at %s: %s", e.Path, e.Detail)
	}
	return "schema validation: " + e.Detail
}

// SchemaValidator validates decoded documents against a JSON schema.
type SchemaValidator struct {
	schema *jsonschema.Schema
}

// NewSchemaValidator compiles schemaData.
func NewSchemaValidator(schemaData []byte) (*SchemaValidator, error) {
	var schema any
	if err := json.Unmarshal(schemaData, &schema); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, schema); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	jss, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	return &SchemaValidator{schema: jss}, nil
}

var defaultValidator = sync.OnceValues(func() (*SchemaValidator, error) {
	return NewSchemaValidator(schemaJSON)
})

// DefaultSchemaValidator returns the validator for the embedded profile
// schema.
func DefaultSchemaValidator() (*SchemaValidator, error) {
	return defaultValidator()
}

// Validate checks an instance produced by [jsonschema.UnmarshalJSON]. It
// returns a *SchemaError pointing at the most specific failing location.
func (v *SchemaValidator) Validate(instance any) error {
	err := v.schema.Validate(instance)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return fmt.Errorf("schema validation: %w", err)
	}

	leaf := mostSpecific(verr)
	path := ""
	if len(leaf.InstanceLocation) > 0 {
		path = "/" + strings.Join(leaf.InstanceLocation, "/")
	}
	return &SchemaError{Path: path, Detail: leaf.ErrorKind.LocalizedString(printer)}
}

// mostSpecific returns the cause with the longest instance location.
func mostSpecific(err *jsonschema.ValidationError) *jsonschema.ValidationError {
	best := err
	for _, cause := range err.Causes {
		if c := mostSpecific(cause); len(c.InstanceLocation) > len(best.InstanceLocation) {
			best = c
		}
	}
	return best
}
