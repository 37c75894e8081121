package importmodel

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// EsmFlag is the three-valued isEsm field. The zero value is EsmUnknown, which is
// what an absent or null field decodes to.
type EsmFlag uint8

// EsmFlag values.
const (
	EsmUnknown EsmFlag = iota
	EsmTrue
	EsmFalse
)

// ErrInvalidEsmFlag is returned when isEsm is neither a boolean nor null.
var ErrInvalidEsmFlag = errors.New("isEsm must be true, false or null")

var jsonNull = []byte("null")

// EsmFlagOf converts a known boolean to an EsmFlag.
func EsmFlagOf(isEsm bool) EsmFlag {
	if isEsm {
		return EsmTrue
	}

	return EsmFalse
}

// EsmFlagFromPtr converts an optional boolean, nil meaning unknown.
func EsmFlagFromPtr(isEsm *bool) EsmFlag {
	if isEsm == nil {
		return EsmUnknown
	}

	return EsmFlagOf(*isEsm)
}

// Known reports whether the module kind was determined.
func (f EsmFlag) Known() bool {
	return f == EsmTrue || f == EsmFalse
}

func (f EsmFlag) String() string {
	switch f {
	case EsmTrue:
		return "true"
	case EsmFalse:
		return "false"
	case EsmUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("EsmFlag(%d)", uint8(f))
	}
}

// MarshalJSON writes true, false or null.
func (f EsmFlag) MarshalJSON() ([]byte, error) {
	switch f {
	case EsmTrue:
		return []byte("true"), nil
	case EsmFalse:
		return []byte("false"), nil
	default:
		return jsonNull, nil
	}
}

// UnmarshalJSON accepts true, false or null.
func (f *EsmFlag) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		*f = EsmUnknown

		return nil
	}

	var value bool

	err := json.Unmarshal(data, &value)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidEsmFlag, string(data))
	}

	*f = EsmFlagOf(value)

	return nil
}

// IsZero lets omitempty drop unknown flags when marshalling YAML.
func (f EsmFlag) IsZero() bool {
	return f == EsmUnknown
}

// MarshalYAML writes a boolean, or null for unknown.
func (f EsmFlag) MarshalYAML() (any, error) {
	switch f {
	case EsmTrue:
		return true, nil
	case EsmFalse:
		return false, nil
	default:
		return nil, nil
	}
}

// UnmarshalYAML accepts a boolean scalar or null.
func (f *EsmFlag) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		*f = EsmUnknown

		return nil
	}

	var parsed bool

	err := value.Decode(&parsed)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidEsmFlag, value.Value)
	}

	*f = EsmFlagOf(parsed)

	return nil
}
