package remote

import "encoding/json"

// Envelope is the single-frame, UTF-8 JSON wire shape exchanged between a
// Sender's push socket and a Receiver's pull socket (spec §6).
type Envelope struct {
	SenderActor    *string         `json:"sender_actor"`
	SenderEndpoint *string         `json:"sender_endpoint"`
	Receiver       string          `json:"receiver"`
	MessageType    string          `json:"message_type"`
	Message        json.RawMessage `json:"message"`

	// ProtocolVersion is checked against a Receiver's compatibility
	// constraint on the first frame seen from a given sender_endpoint
	// (SPEC_FULL §4.3); it is not part of spec.md's original envelope
	// shape and is omitted when empty so older peers still interoperate.
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

// RejectPayload is the body of a Reject (identity 9) message, sent back to
// a known sender when a remote frame cannot be dispatched (spec §6, §4.7).
type RejectPayload struct {
	MessageType string `json:"message_type"`
	Reason      string `json:"reason"`
	RejectedBy  string `json:"rejected_by"`
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func strVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
