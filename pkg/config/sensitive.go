package config

import "encoding/json"

const redacted = "[REDACTED]"

// SensitiveString holds secrets that must never be printed.
type SensitiveString string

// String returns a redacted placeholder unless the value is empty.
func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

// Value returns the raw secret.
func (s SensitiveString) Value() string {
	return string(s)
}

// MarshalJSON redacts the secret in JSON output.
func (s SensitiveString) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// MarshalYAML redacts the secret in YAML output.
func (s SensitiveString) MarshalYAML() (any, error) {
	return s.String(), nil
}
