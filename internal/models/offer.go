package models

import "time"

// OfferStatus is the derived business status of a Flight-offer.
type OfferStatus string

const (
	StatusUnanswered OfferStatus = "unanswered"
	StatusQuoted     OfferStatus = "quoted"
	StatusDeclined   OfferStatus = "declined"
	StatusExpired    OfferStatus = "expired"
)

type Airport struct {
	ICAO string `json:"icao"`
	Name string `json:"name,omitempty"`
	City string `json:"city,omitempty"`
}

// Stop is one end of a flight: an airport plus the local schedule at it.
type Stop struct {
	Airport Airport `json:"airport"`
	Date    string  `json:"date"`
	Time    string  `json:"time,omitempty"`
}

type Operator struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name,omitempty"`
	ContactCount int    `json:"contact_count,omitempty"`
}

type Aircraft struct {
	Category string  `json:"category,omitempty"`
	Type     string  `json:"type,omitempty"`
	Tail     string  `json:"tail,omitempty"`
	MaxPax   int     `json:"max_pax,omitempty"`
	PhotoURL *string `json:"photo_url,omitempty"`
}

type PriceLine struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// FlightOffer is the canonical, deduplicated union of one Quote with its
// parent RFQ/Segment/Lift context. It is the only entity exposed outside
// the reconciliation core.
type FlightOffer struct {
	QuoteID        string      `json:"quote_id"`
	RFQID          string      `json:"rfq_id,omitempty"`
	TripID         string      `json:"trip_id,omitempty"`
	LiftID         string      `json:"lift_id,omitempty"`
	Operator       Operator    `json:"operator"`
	Aircraft       Aircraft    `json:"aircraft"`
	Departure      Stop        `json:"departure"`
	Arrival        Stop        `json:"arrival"`
	Passengers     int         `json:"passengers,omitempty"`
	TotalPrice     float64     `json:"total_price"`
	Currency       string      `json:"currency,omitempty"`
	PriceFormatted string      `json:"price_formatted,omitempty"`
	PriceBreakdown []PriceLine `json:"price_breakdown,omitempty"`
	Amenities      []string    `json:"amenities,omitempty"`
	RFQStatus      OfferStatus `json:"rfq_status"`
	ValidUntil     *time.Time  `json:"valid_until,omitempty"`
	DeepLink       string      `json:"deep_link,omitempty"`
}
