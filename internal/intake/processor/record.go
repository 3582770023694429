package processor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"safestep/internal/intake/models"
	"safestep/pkg/email"
)

// FieldGreenID is the routing field naming the green user. It is removed from
// the contact attributes before staging.
const FieldGreenID = "greenId"

// ParseRecord decodes a record body into a flat field map. Numbers keep their
// literal text, booleans become "true"/"false" and nulls are dropped. Nested
// objects, arrays and non-object bodies are malformed.
func ParseRecord(body []byte) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: body is not an object", ErrMalformed)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after object", ErrMalformed)
	}

	fields := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case nil:
		case string:
			fields[key] = v
		case json.Number:
			fields[key] = v.String()
		case bool:
			fields[key] = strconv.FormatBool(v)
		default:
			return nil, fmt.Errorf("%w: field %q is not a scalar", ErrMalformed, key)
		}
	}
	return fields, nil
}

// contactFromFields coerces validated fields into a contact with its email in
// stored form. The green id and any unknown fields are ignored.
func contactFromFields(fields map[string]string) models.EmergencyContact {
	return models.EmergencyContact{
		FirstName:   fields[models.AttrFirstName],
		Email:       email.Normalize(fields[models.AttrEmail]),
		Phone:       fields[models.AttrPhone],
		DialingCode: fields[models.AttrDialingCode],
	}
}
