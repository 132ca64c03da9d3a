package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"voucher-api/internal/models"
	"voucher-api/internal/services"
	"voucher-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// flexScalar decodes a JSON string or number into its string form. The
// gateway has shipped ids and amounts both ways over time.
type flexScalar string

func (f *flexScalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexScalar(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexScalar(n.String())
	return nil
}

// callbackPayload tolerates the payload shape variants the gateway has
// shipped: ids as strings or numbers, amount likewise, field aliases for
// the payer email.
type callbackPayload struct {
	ID          flexScalar `json:"id"`
	BillLink    flexScalar `json:"bill_link_id"`
	Reference   string     `json:"reference"`
	Amount      flexScalar `json:"amount"`
	Status      string     `json:"status"`
	SenderEmail string     `json:"sender_email"`
	Email       string     `json:"email"`
	SenderName  string     `json:"sender_name"`
}

// PaymentCallbackHandler receives gateway payment notifications.
//
// The gateway retries on non-2xx responses, so this handler acknowledges
// with 200 no matter what happened internally — a retry storm would only
// widen the race window the engine is already resolving. Internal failures
// are logged, never surfaced to the gateway.
func PaymentCallbackHandler(engine *services.AllocationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		event, err := decodeCallback(c)
		if err != nil {
			logging.Errorf("Failed to decode gateway callback: %v", err)
			c.JSON(http.StatusOK, gin.H{"success": true, "message": "received"})
			return
		}

		txn, err := engine.ProcessCallback(event)
		if err != nil {
			logging.Errorf("Callback %s processing failed: %v", event.ID, err)
			c.JSON(http.StatusOK, gin.H{"success": true, "message": "received"})
			return
		}

		if txn != nil {
			logging.Infof("Callback %s resolved transaction %d to %s", event.ID, txn.ID, txn.Status)
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "processed"})
	}
}

// decodeCallback normalizes the request into the canonical event. The
// gateway posts either a JSON body or a form with the JSON under "data".
func decodeCallback(c *gin.Context) (*models.CallbackEvent, error) {
	var payload callbackPayload

	if raw := c.PostForm("data"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return nil, err
		}
	} else {
		if err := c.ShouldBindJSON(&payload); err != nil {
			return nil, err
		}
	}

	event := &models.CallbackEvent{
		ID:          string(payload.ID),
		Reference:   payload.Reference,
		Status:      payload.Status,
		SenderEmail: payload.SenderEmail,
		SenderName:  payload.SenderName,
	}
	if event.SenderEmail == "" {
		event.SenderEmail = payload.Email
	}
	if amount, err := strconv.ParseInt(string(payload.Amount), 10, 64); err == nil {
		event.Amount = amount
	}
	if billLink, err := strconv.ParseInt(string(payload.BillLink), 10, 64); err == nil {
		event.BillLinkID = &billLink
	}
	return event, nil
}
