package common

import (
	"encoding/json"
	"net/http"
)

// MaxBodyBytes is the default request body limit for write endpoints.
const MaxBodyBytes = 1 << 20

// ParseJSONBody parses a JSON request body with a size limit
func ParseJSONBody(r *http.Request, v interface{}, maxBytes int64) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	return decoder.Decode(v)
}
