package models

import "time"

// TripResult is what the caller gets back after creating a trip on the
// marketplace.
type TripResult struct {
	TripID      string `json:"trip_id"`
	CanonicalID string `json:"canonical_id"`
	DeepLink    string `json:"deep_link,omitempty"`
}

// BundleMetadata describes how a FlightOfferBundle was produced.
type BundleMetadata struct {
	TotalOffers int    `json:"total_offers"`
	RFQsSeen    int    `json:"rfqs_seen"`
	RFQsSkipped int    `json:"rfqs_skipped"`
	FetchTimeMs int64  `json:"fetch_time_ms"`
	Source      string `json:"source"` // "live" or "fallback"
	Degraded    bool   `json:"degraded"`
}

// FlightOfferBundle is the collaborator-facing result of offer
// reconciliation for one trip or RFQ.
type FlightOfferBundle struct {
	TripID    string         `json:"trip_id"`
	Offers    []FlightOffer  `json:"offers"`
	Metadata  BundleMetadata `json:"metadata"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// TripMessage is one chat message exchanged with an operator.
type TripMessage struct {
	ID        string    `json:"id"`
	RequestID string    `json:"request_id,omitempty"`
	TripID    string    `json:"trip_id,omitempty"`
	Sender    string    `json:"sender,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
