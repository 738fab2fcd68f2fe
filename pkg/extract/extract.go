// Package extract normalizes a raw Responses API body into a flat display
// string. The extractor is pure and total: any input, including malformed
// or truncated JSON, yields the sentinel instead of panicking.
package extract

import "encoding/json"

// Sentinel is returned when no message text can be located in the body.
const Sentinel = "No text content found"

// OutputText returns the text of the first content element of the first
// output entry whose type is "message" and whose content list is non-empty.
// Every structural failure (missing body, non-object body, missing or
// non-array output field, no qualifying entry) degrades to Sentinel.
func OutputText(data []byte) string {
	if len(data) == 0 {
		return Sentinel
	}

	var body struct {
		Output json.RawMessage `json:"output"`
	}
	if err := json.Unmarshal(data, &body); err != nil || len(body.Output) == 0 {
		return Sentinel
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(body.Output, &entries); err != nil {
		return Sentinel
	}

	for _, raw := range entries {
		var entry struct {
			Type    string            `json:"type"`
			Content []json.RawMessage `json:"content"`
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		if entry.Type != "message" || len(entry.Content) == 0 {
			continue
		}

		var part struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(entry.Content[0], &part); err != nil {
			continue
		}
		return part.Text
	}

	return Sentinel
}
