package server

// EventPayload is the structured detail stored with analytics events.
type EventPayload struct {
	Quotes  int    `json:"quotes,omitempty"`
	Players int    `json:"players,omitempty"`
	Reason  string `json:"reason,omitempty"`
}
