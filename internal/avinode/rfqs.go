package avinode

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// FetchRFQs retrieves the RFQ set for a resolved identifier. /rfqs/{id}
// accepts either a numeric RFQ id or a marketplace trip code; when it
// 404s the trip endpoint is tried, whose embedded .rfqs[] carries the
// same data.
func (c *Client) FetchRFQs(ctx context.Context, id Resolved) ([]RawRFQ, error) {
	if id.Confidence == ConfidenceGuessed {
		c.logger.Warn("using guessed identifier for rfq fetch", "id", id.Raw, "canonical", id.Canonical)
	}

	var raw json.RawMessage
	err := c.do(ctx, http.MethodGet, "/rfqs/"+id.Raw, nil, nil, &raw)
	if err == nil {
		return DecodeRFQEnvelope(raw, c.logger)
	}
	if !isNotFound(err) {
		return nil, err
	}

	var envelope rawTripEnvelope
	if err := c.do(ctx, http.MethodGet, "/trips/"+id.Raw, nil, nil, &envelope); err != nil {
		return nil, err
	}
	trip := envelope.rawTrip
	if envelope.Data != nil {
		trip = *envelope.Data
	}
	return trip.RFQs, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
