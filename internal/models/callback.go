package models

import (
	"strings"
)

// CallbackEvent is the canonical form of a payment gateway notification.
// The callback handler normalizes the gateway's payload variants into this
// shape before handing it to the allocation engine.
type CallbackEvent struct {
	// ID is the gateway-assigned transaction id.
	ID string `json:"id"`
	// BillLinkID is the gateway's secondary bill identifier, when present.
	BillLinkID *int64 `json:"bill_link_id,omitempty"`
	// Reference carries the client temp_id when the gateway echoes it back.
	Reference   string `json:"reference,omitempty"`
	Amount      int64  `json:"amount"`
	Status      string `json:"status"`
	SenderEmail string `json:"sender_email"`
	SenderName  string `json:"sender_name,omitempty"`
}

// NormalizeStatus maps a gateway status string (any casing, surrounding
// whitespace tolerated) onto the canonical status constants. Unknown values
// come back as the empty string.
func NormalizeStatus(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case StatusSuccessful, "SUCCESS", "PAID":
		return StatusSuccessful
	case StatusPending:
		return StatusPending
	case StatusCancelled, "CANCELED", "CANCEL":
		return StatusCancelled
	case StatusFailed, "FAILURE":
		return StatusFailed
	case StatusExpired, "EXPIRE":
		return StatusExpired
	}
	return ""
}
