package api

import "encoding/json"

// Detail is the gateway's wire error shape: {"detail": "<message>"}.
// The composer prefers this field when building an error envelope.
type Detail struct {
	Detail string `json:"detail"`
}

// ExtractDetail pulls the detail message out of an error response body.
// Returns the empty string when the body is not JSON or carries no
// detail field, so callers can fall back to a transport-level message.
func ExtractDetail(body []byte) string {
	var d Detail
	if err := json.Unmarshal(body, &d); err != nil {
		return ""
	}
	return d.Detail
}
