package models

// IdentifyResponse is the wire shape returned to the transport layer.
type IdentifyResponse struct {
	Contact ConsolidatedContact `json:"contact"`
}

// ConsolidatedContact is the flattened view of one cluster.
//
// The misspelled primaryContatctId key is load-bearing: existing consumers
// parse it, so it is preserved verbatim.
type ConsolidatedContact struct {
	PrimaryContactID    int64    `json:"primaryContatctId"`
	Emails              []string `json:"emails"`
	PhoneNumbers        []string `json:"phoneNumbers"`
	SecondaryContactIDs []int64  `json:"secondaryContactIds"`
}
