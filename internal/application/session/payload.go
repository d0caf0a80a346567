package session

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/hilthontt/sketchroom/internal/domain"
)

// maxSafeInteger is the largest integer a JSON client can send exactly.
const maxSafeInteger = 1<<53 - 1

// fields is an inbound payload decoded loosely so each field's JSON type
// can be checked and reported individually.
type fields map[string]any

func decodeFields(raw json.RawMessage) (fields, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return fields{}, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var out map[string]any
	if err := decoder.Decode(&out); err != nil {
		return nil, domain.Reject(domain.ErrInvalidInput, "Payload must be a JSON object")
	}

	return fields(out), nil
}

// roomID prefers the payload's roomId and falls back to the envelope's.
func (f fields) roomID(fallback string) (string, error) {
	v, ok := f["roomId"]
	if !ok {
		return fallback, nil
	}

	id, isString := v.(string)
	if !isString || id == "" {
		return "", domain.Reject(domain.ErrInvalidInput, "Invalid room ID")
	}
	return id, nil
}

// userID accepts positive integers only.
func (f fields) userID() (int64, error) {
	invalid := domain.Reject(domain.ErrInvalidInput, "Invalid user ID")

	n, ok := f["userId"].(json.Number)
	if !ok {
		return 0, invalid
	}

	id, err := n.Int64()
	if err != nil {
		// Accept integral values written with a fraction or exponent, e.g. 7.0.
		fl, ferr := n.Float64()
		if ferr != nil || fl != math.Trunc(fl) || fl > maxSafeInteger {
			return 0, invalid
		}
		id = int64(fl)
	}

	if id <= 0 || id > maxSafeInteger {
		return 0, invalid
	}
	return id, nil
}

func (f fields) username() (string, error) {
	name, ok := f["username"].(string)
	if !ok {
		return "", domain.Reject(domain.ErrInvalidInput, "Invalid username")
	}
	return name, nil
}

func (f fields) message() (string, error) {
	text, ok := f["message"].(string)
	if !ok {
		return "", domain.Reject(domain.ErrInvalidInput, "Message must be a string")
	}
	return text, nil
}

func (f fields) drawData() (map[string]any, error) {
	data, ok := f["drawData"].(map[string]any)
	if !ok {
		return nil, domain.Reject(domain.ErrInvalidInput, "Invalid draw data")
	}
	return data, nil
}
