package models

import "encoding/json"

// Scenario is a saved editor scenario as listed by the remote API. Content
// holds the editor rows and is decoded by the scenario package.
type Scenario struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Content json.RawMessage `json:"content,omitempty"`
}
