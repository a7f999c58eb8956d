package avinode

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// FlexID tolerates the marketplace's habit of returning the same
// identifier as a JSON string on one endpoint and a number on another.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

func (f FlexID) String() string { return string(f) }

// FlexPrice tolerates prices encoded as a bare number or as an
// {amount, currency} object, both of which the marketplace has shipped.
type FlexPrice struct {
	Amount   float64
	Currency string
}

func (p *FlexPrice) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = FlexPrice{}
		return nil
	}
	if data[0] == '{' {
		var obj struct {
			Amount   float64 `json:"amount"`
			Currency string  `json:"currency"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		p.Amount = obj.Amount
		p.Currency = obj.Currency
		return nil
	}
	amount, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	p.Amount = amount
	p.Currency = ""
	return nil
}

func (p *FlexPrice) IsZero() bool {
	return p == nil || (p.Amount == 0 && p.Currency == "")
}

type RawAirport struct {
	ICAO string `json:"icao"`
	Name string `json:"name"`
	City string `json:"city"`
}

// RawRoutePoint is the older structured departure/arrival encoding.
type RawRoutePoint struct {
	Airport *RawAirport `json:"airport"`
	Date    string      `json:"date"`
	Time    string      `json:"time"`
}

// RawSegment is the newer segments[] route encoding.
type RawSegment struct {
	StartAirport  *RawAirport `json:"startAirport"`
	EndAirport    *RawAirport `json:"endAirport"`
	DepartureDate string      `json:"departureDate"`
	DepartureTime string      `json:"departureTime"`
	PaxCount      int         `json:"paxCount"`
}

type RawCompany struct {
	ID           FlexID `json:"id"`
	Name         string `json:"name"`
	ContactCount int    `json:"contactCount"`
}

type RawAircraft struct {
	Category string  `json:"category"`
	Type     string  `json:"type"`
	Tail     string  `json:"tailNumber"`
	MaxPax   int     `json:"maxPax"`
	PhotoURL *string `json:"photoUrl"`
}

type RawPriceLine struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// RawQuote is a quote-like record as it appears in any of the four
// response locations. Fields are sparsely populated depending on where
// the record came from; the aggregator merges them by ID.
type RawQuote struct {
	ID             FlexID         `json:"id"`
	QuoteID        FlexID         `json:"quoteId"`
	Status         string         `json:"status"`
	SourcingStatus string         `json:"sourcingStatus"`
	ValidUntil     string         `json:"validUntil"`
	TotalPrice     *FlexPrice     `json:"totalPrice"`
	Currency       string         `json:"currency"`
	PriceBreakdown []RawPriceLine `json:"priceBreakdown"`
	SellerCompany  *RawCompany    `json:"sellerCompany"`
	Aircraft       *RawAircraft   `json:"aircraft"`
	Departure      *RawRoutePoint `json:"departure"`
	Arrival        *RawRoutePoint `json:"arrival"`
	Segments       []RawSegment   `json:"segments"`
	Amenities      []string       `json:"amenities"`
}

// Key returns the identifier used for merge-by-ID, preferring quoteId
// over id.
func (q *RawQuote) Key() string {
	if q.QuoteID != "" {
		return string(q.QuoteID)
	}
	return string(q.ID)
}

type RawQuoteRef struct {
	ID FlexID `json:"id"`
}

type RawLiftLinks struct {
	Quotes []RawQuoteRef `json:"quotes"`
}

// RawLift is an aircraft/operator offering on an RFQ. It may embed a
// quote, reference quotes by ID, or represent a not-yet-quoted
// placeholder.
type RawLift struct {
	ID             FlexID       `json:"id"`
	SourcingStatus string       `json:"sourcingStatus"`
	Aircraft       *RawAircraft `json:"aircraft"`
	SellerCompany  *RawCompany  `json:"sellerCompany"`
	EstimatedPrice *FlexPrice   `json:"estimatedPrice"`
	Quote          *RawQuote    `json:"quote"`
	Links          RawLiftLinks `json:"links"`
}

type RawActionLink struct {
	Href string `json:"href"`
}

type RawActions struct {
	SearchInAvinode *RawActionLink `json:"searchInAvinode"`
	ViewInAvinode   *RawActionLink `json:"viewInAvinode"`
}

// RawRFQ is one operator invitation as returned by /rfqs or embedded in a
// trip. The same logical record arrives under several field spellings.
type RawRFQ struct {
	ID            FlexID         `json:"id"`
	RFQID         FlexID         `json:"rfq_id"`
	TripID        FlexID         `json:"tripId"`
	Departure     *RawRoutePoint `json:"departure"`
	Arrival       *RawRoutePoint `json:"arrival"`
	Segments      []RawSegment   `json:"segments"`
	Quotes        []RawQuote     `json:"quotes"`
	Requests      []RawQuote     `json:"requests"`
	Responses     []RawQuote     `json:"responses"`
	Lifts         []RawLift      `json:"lifts"`
	SellerCompany *RawCompany    `json:"sellerCompany"`
	Actions       *RawActions    `json:"actions"`
	Deadline      string         `json:"deadline"`
}

// Key returns the RFQ's own identifier under either spelling.
func (r *RawRFQ) Key() string {
	if r.ID != "" {
		return string(r.ID)
	}
	return string(r.RFQID)
}

type rawTrip struct {
	ID      FlexID      `json:"id"`
	TripID  FlexID      `json:"tripId"`
	Actions *RawActions `json:"actions"`
	RFQs    []RawRFQ    `json:"rfqs"`
}

type rawTripEnvelope struct {
	Data *rawTrip `json:"data"`
	rawTrip
}

type rawMessage struct {
	ID        FlexID `json:"id"`
	TripID    FlexID `json:"tripId"`
	RequestID FlexID `json:"requestId"`
	Sender    struct {
		Name string `json:"name"`
	} `json:"sender"`
	Text      string `json:"text"`
	Message   string `json:"message"`
	CreatedAt string `json:"createdAt"`
}

type rawMessageEnvelope struct {
	Data *rawMessage `json:"data"`
	rawMessage
}
