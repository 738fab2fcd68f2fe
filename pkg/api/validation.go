package api

import (
	"fmt"
	"strconv"
	"strings"
)

// Temperature bounds accepted by the gateway, inclusive.
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
)

// ParseTemperature converts a form-supplied temperature string to a number.
// Non-numeric input is rejected rather than defaulted; the error names the
// offending value.
func ParseTemperature(s string) (float64, error) {
	t, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("temperature %q is not a number", s)
	}
	if !ValidTemperature(t) {
		return 0, fmt.Errorf("temperature %g is outside [%g, %g]", t, MinTemperature, MaxTemperature)
	}
	return t, nil
}

// ValidTemperature reports whether t is within the accepted range.
func ValidTemperature(t float64) bool {
	return t >= MinTemperature && t <= MaxTemperature
}

// ValidateModelRequest checks an invocation request against the model
// catalog and temperature bounds. The returned error message is suitable
// for a detail response body.
func ValidateModelRequest(req *ModelRequest) error {
	if !KnownModel(req.Model) {
		return fmt.Errorf("Model '%s' is not found in the list of models. Allowed models: [%s]",
			req.Model, strings.Join(Models, ", "))
	}
	if !ValidTemperature(req.Temperature) {
		return fmt.Errorf("temperature %g is outside [%g, %g]", req.Temperature, MinTemperature, MaxTemperature)
	}
	return nil
}
