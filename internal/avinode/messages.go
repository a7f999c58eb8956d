package avinode

import (
	"context"
	"net/http"
	"time"

	"github.com/brokerops/charterlink/internal/models"
)

type chatPayload struct {
	Text string `json:"text"`
}

// SendMessage posts an operator chat message on a request thread.
func (c *Client) SendMessage(ctx context.Context, requestID, text string) (*models.TripMessage, error) {
	var envelope rawMessageEnvelope
	err := c.do(ctx, http.MethodPost, "/tripmsgs/"+requestID+"/chat", nil, chatPayload{Text: text}, &envelope)
	if err != nil {
		return nil, err
	}
	msg := normalizeMessage(envelope)
	if msg.Text == "" {
		msg.Text = text
	}
	if msg.RequestID == "" {
		msg.RequestID = requestID
	}
	c.logger.Info("message sent", "request_id", requestID)
	return msg, nil
}

// GetMessage fetches one message by id.
func (c *Client) GetMessage(ctx context.Context, id string) (*models.TripMessage, error) {
	var envelope rawMessageEnvelope
	if err := c.do(ctx, http.MethodGet, "/tripmsgs/"+id, nil, nil, &envelope); err != nil {
		return nil, err
	}
	return normalizeMessage(envelope), nil
}

func normalizeMessage(envelope rawMessageEnvelope) *models.TripMessage {
	raw := envelope.rawMessage
	if envelope.Data != nil {
		raw = *envelope.Data
	}

	text := raw.Text
	if text == "" {
		text = raw.Message
	}

	msg := &models.TripMessage{
		ID:        string(raw.ID),
		RequestID: string(raw.RequestID),
		TripID:    string(raw.TripID),
		Sender:    raw.Sender.Name,
		Text:      text,
	}
	if raw.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, raw.CreatedAt); err == nil {
			msg.CreatedAt = t
		}
	}
	return msg
}
