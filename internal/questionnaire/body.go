package questionnaire

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"vendorq/pkg/domain"
)

// ParseBody decodes a submission body that is either a JSON object or a JSON
// string containing an encoded object. Empty and null bodies yield an empty
// form.
func ParseBody(raw json.RawMessage) (FormData, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return FormData{}, nil
	}
	if trimmed[0] == '"' {
		var encoded string
		if err := json.Unmarshal(trimmed, &encoded); err != nil {
			return nil, domain.ValidationError{Message: "invalid request body", Err: err}
		}
		trimmed = bytes.TrimSpace([]byte(encoded))
		if len(trimmed) == 0 {
			return FormData{}, nil
		}
	}
	return decodeObject(trimmed)
}

func decodeObject(data []byte) (FormData, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var form map[string]any
	if err := dec.Decode(&form); err != nil {
		return nil, domain.ValidationError{Message: "invalid request body", Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, domain.ValidationError{Message: "invalid request body", Err: errors.New("trailing data after JSON object")}
	}
	if form == nil {
		return FormData{}, nil
	}
	return FormData(form), nil
}
