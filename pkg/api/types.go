package api

import "encoding/json"

// ModelRequest is the JSON body of POST /invoke_model.
type ModelRequest struct {
	Prompt      string  `json:"prompt"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	WebSearch   bool    `json:"web_search"`
}

// Envelope is the composer's normalized result: either the raw response
// body from a successful invocation, or a human-readable error message.
// The two are mutually exclusive; an envelope is created per submission
// and discarded on the next one.
type Envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Failed reports whether the envelope carries an error instead of data.
func (e Envelope) Failed() bool {
	return e.Error != ""
}

// DataEnvelope wraps a raw success body.
func DataEnvelope(data json.RawMessage) Envelope {
	return Envelope{Data: data}
}

// ErrorEnvelope wraps an error message with no data.
func ErrorEnvelope(message string) Envelope {
	return Envelope{Error: message}
}

// Models is the fixed catalog of model identifiers the gateway accepts.
var Models = []string{
	"gpt-4",
	"gpt-4-turbo",
	"gpt-4o",
	"gpt-4o-mini",
	"gpt-4.1",
	"gpt-4.1-mini",
	"gpt-4.1-nano",
	"gpt-4.5-preview",
	// Reasoning models.
	"o1-preview",
	"o1-mini",
	"o1",
	"o3-mini",
	"o3",
	"o3-pro",
	"o4-mini",
	"gpt-5",
	"gpt-5-mini",
	"gpt-5-nano",
}

// KnownModel reports whether name is in the model catalog.
func KnownModel(name string) bool {
	for _, m := range Models {
		if m == name {
			return true
		}
	}
	return false
}
