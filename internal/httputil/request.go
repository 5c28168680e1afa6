package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// maxRequestBody caps JSON request bodies. Detection payloads embedded in a
// pending-alert decision request stay well under this.
const maxRequestBody = 1 << 20 // 1MB

// DecodeJSON decodes a JSON request body into dst, rejecting unknown fields
// and bodies over 1MB. Callers translate the returned error into a 400.
func DecodeJSON(r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("failed to decode request body: %w", err)
	}
	return nil
}
