package models

import "encoding/json"

// SourceEnvelope is the response wrapper every metric source returns.
// Data is kept raw because its shape differs between source versions.
type SourceEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}
