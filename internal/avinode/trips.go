package avinode

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/brokerops/charterlink/internal/models"
)

type tripSegmentPayload struct {
	StartAirport RawAirport      `json:"startAirport"`
	EndAirport   RawAirport      `json:"endAirport"`
	DateTime     segmentDateTime `json:"dateTime"`
	PaxCount     int             `json:"paxCount"`
}

type segmentDateTime struct {
	Date      string `json:"date"`
	Time      string `json:"time,omitempty"`
	Local     bool   `json:"local"`
	Departure bool   `json:"departure"`
}

type tripCriteria struct {
	AircraftCategory string `json:"aircraftCategory,omitempty"`
}

type createTripPayload struct {
	ExternalTripID string               `json:"externalTripId"`
	Sourcing       bool                 `json:"sourcing"`
	Segments       []tripSegmentPayload `json:"segments"`
	Criteria       *tripCriteria        `json:"criteria,omitempty"`
}

// CreateTrip registers a sourcing trip on the marketplace and returns the
// marketplace-assigned trip identity plus its UI deep link.
func (c *Client) CreateTrip(ctx context.Context, req models.CreateTripRequest) (*models.TripResult, error) {
	externalID := req.ExternalTripID
	if externalID == "" {
		externalID = uuid.NewString()
	}

	payload := createTripPayload{
		ExternalTripID: externalID,
		Sourcing:       true,
		Segments:       make([]tripSegmentPayload, 0, len(req.Segments)),
	}
	if req.AircraftCategory != "" {
		payload.Criteria = &tripCriteria{AircraftCategory: req.AircraftCategory}
	}
	for _, seg := range req.Segments {
		payload.Segments = append(payload.Segments, tripSegmentPayload{
			StartAirport: RawAirport{ICAO: seg.From},
			EndAirport:   RawAirport{ICAO: seg.To},
			DateTime: segmentDateTime{
				Date:      seg.Date,
				Time:      seg.TimeLocal,
				Local:     true,
				Departure: true,
			},
			PaxCount: seg.Passengers,
		})
	}

	var envelope rawTripEnvelope
	if err := c.do(ctx, http.MethodPost, "/trips", nil, payload, &envelope); err != nil {
		return nil, err
	}

	trip := envelope.rawTrip
	if envelope.Data != nil {
		trip = *envelope.Data
	}

	tripID := string(trip.TripID)
	if tripID == "" {
		tripID = string(trip.ID)
	}
	if tripID == "" {
		return nil, fmt.Errorf("create trip: %w", &MissingCriticalFieldError{Entity: "trip", Field: "tripId"})
	}

	// Deep link is cosmetic; its absence gets a logged default, not a
	// failure.
	deepLink := DeepLinkFrom(trip.Actions)
	if deepLink == "" {
		c.logger.Warn("field missing, substituting default",
			"field", "deep_link", "entity", tripID, "default", "")
	}

	res, err := Resolve(tripID)
	canonical := tripID
	if err == nil {
		canonical = res.Canonical
	}

	c.logger.Info("trip created", "trip_id", tripID, "external_trip_id", externalID)

	return &models.TripResult{
		TripID:      tripID,
		CanonicalID: canonical,
		DeepLink:    deepLink,
	}, nil
}

type cancelPayload struct {
	Reason models.CancelReason `json:"reason"`
}

// CancelTrip cancels on /rfqs first and falls back to /trips when the
// marketplace does not know the identifier under the RFQ family.
func (c *Client) CancelTrip(ctx context.Context, id Resolved, reason models.CancelReason) error {
	payload := cancelPayload{Reason: reason}

	err := c.do(ctx, http.MethodPut, "/rfqs/"+id.Raw+"/cancel", nil, payload, nil)
	if err == nil {
		c.logger.Info("trip cancelled", "id", id.Canonical, "reason", reason)
		return nil
	}
	if !isNotFound(err) {
		return err
	}

	if err := c.do(ctx, http.MethodPut, "/trips/"+id.Raw+"/cancel", nil, payload, nil); err != nil {
		return err
	}
	c.logger.Info("trip cancelled", "id", id.Canonical, "reason", reason)
	return nil
}

func DeepLinkFrom(actions *RawActions) string {
	if actions == nil {
		return ""
	}
	if actions.SearchInAvinode != nil && actions.SearchInAvinode.Href != "" {
		return actions.SearchInAvinode.Href
	}
	if actions.ViewInAvinode != nil && actions.ViewInAvinode.Href != "" {
		return actions.ViewInAvinode.Href
	}
	return ""
}
