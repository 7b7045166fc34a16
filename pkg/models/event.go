package models

import "encoding/json"

// Update is one decoded message from the controller's realtime updates
// socket. Payload is left raw; consumers decode the fragment for the
// modelKey they care about.
type Update struct {
	Action      string          `json:"action"` // "add", "update", "remove"
	ID          string          `json:"id"`
	ModelKey    string          `json:"modelKey"`
	NewUpdateID string          `json:"newUpdateId,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}
