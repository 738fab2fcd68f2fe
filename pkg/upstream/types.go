package upstream

import "encoding/json"

// invokeRequest is the Responses API request body sent to the backend.
// Store is always sent (as false) so the backend does not retain state.
type invokeRequest struct {
	Model       string  `json:"model"`
	Input       string  `json:"input"`
	Temperature float64 `json:"temperature"`
	Tools       []tool  `json:"tools,omitempty"`
	Store       bool    `json:"store"`
}

// tool is a Responses API tool declaration.
type tool struct {
	Type string `json:"type"`
}

// errorMessage extracts a human-readable message from a backend error
// body. Backends use either {"error": {"message": ...}} (OpenAI shape)
// or a flat {"message": ...}. Returns empty when neither matches.
func errorMessage(body []byte) string {
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &nested) == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}

	var flat struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &flat) == nil && flat.Message != "" {
		return flat.Message
	}

	return ""
}
