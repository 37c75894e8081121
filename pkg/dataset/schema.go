package dataset

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

// Schema returns the JSON schema datasets are validated against.
func Schema() []byte {
	return slices.Clone(schemaJSON)
}

func validateSchema(raw []byte, encoding Encoding) error {
	var document any

	var err error

	if encoding == EncodingYAML {
		err = yaml.Unmarshal(raw, &document)
	} else {
		err = json.Unmarshal(raw, &document)
	}

	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewGoLoader(document))
	if err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
	}

	slices.Sort(problems)

	return fmt.Errorf("%w: %s", ErrSchemaInvalid, strings.Join(problems, "; "))
}
