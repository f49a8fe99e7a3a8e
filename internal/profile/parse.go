package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// Parse decodes a YAML or JSON profile document after validating it against
// the embedded profile schema.
func Parse(content []byte) (Document, error) {
	v, err := DefaultSchemaValidator()
	if err != nil {
		return Document{}, err
	}
	return ParseWith(v, content)
}

// ParseWith is Parse with an explicit schema validator.
func ParseWith(v *SchemaValidator, content []byte) (Document, error) {
	var raw any
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return Document{}, fmt.Errorf("invalid YAML: %w", err)
	}

	// Round trip through JSON so the validator sees JSON types.
	data, err := json.Marshal(raw)
	if err != nil {
		return Document{}, fmt.Errorf("invalid document: %w", err)
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("invalid document: %w", err)
	}
	if err := v.Validate(instance); err != nil {
		return Document{}, err
	}

	var doc Document
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return Document{}, fmt.Errorf("invalid YAML: %w", err)
	}
	return doc, nil
}

// LoadFile reads and parses the profile document at path.
func LoadFile(path string) (Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, err
		}
		return Document{}, fmt.Errorf("failed to read profile: %w", err)
	}

	doc, err := Parse(content)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// ToYAML serializes the document.
func (d Document) ToYAML() ([]byte, error) {
	return yaml.Marshal(&d)
}
