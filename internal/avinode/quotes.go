package avinode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// GetQuote fetches one quote's detail, asking for aircraft photos and the
// price breakdown up front so no second round trip is needed.
func (c *Client) GetQuote(ctx context.Context, id string) (*RawQuote, error) {
	query := url.Values{}
	query.Set("includeTailPhoto", "true")
	query.Set("includeTypePhoto", "true")
	query.Set("includePriceBreakdown", "true")

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/quotes/"+id, query, nil, &raw); err != nil {
		return nil, err
	}
	return decodeQuoteEnvelope(raw)
}
