package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Decode parses raw JSON and maps it onto out, which must be a pointer to a struct.
// Fields are matched by their `json` tag. Fields present in the document but not
// declared by the struct are rejected.
func Decode(raw []byte, out any) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return ErrNotObject
	}
	return DecodeMap(obj, out)
}

// DecodeMap maps an already parsed document onto out using the same rules as Decode.
func DecodeMap(data map[string]any, out any) error {
	if data == nil {
		return ErrNotObject
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		TagName:     "json",
		ErrorUnused: true,
	})
	if err != nil {
		return fmt.Errorf("schema decoder: %w", err)
	}
	if err := dec.Decode(data); err != nil {
		return translate(err)
	}
	return nil
}

// translate converts mapstructure's flat error list into an AggregateError.
func translate(err error) error {
	var mErr *mapstructure.Error
	if !errors.As(err, &mErr) {
		return err
	}
	errs := make([]error, 0, len(mErr.Errors))
	for _, msg := range mErr.Errors {
		// mapstructure reports unused keys as "'<path>' has invalid keys: a, b".
		if _, keys, ok := strings.Cut(msg, "has invalid keys: "); ok {
			for _, key := range strings.Split(keys, ", ") {
				errs = append(errs, &ValidationError{Field: key, Reason: "not declared by the schema", Cause: ErrUnknownField})
			}
			continue
		}
		errs = append(errs, &ValidationError{Field: "document", Reason: msg})
	}
	return &AggregateError{Errors: errs}
}
