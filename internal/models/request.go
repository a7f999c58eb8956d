package models

// SegmentRequest is one directed leg of a trip being created.
type SegmentRequest struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Date       string `json:"date"`
	TimeLocal  string `json:"time_local,omitempty"`
	Passengers int    `json:"passengers"`
}

type CreateTripRequest struct {
	Segments         []SegmentRequest `json:"segments"`
	AircraftCategory string           `json:"aircraft_category,omitempty"`
	ExternalTripID   string           `json:"external_trip_id,omitempty"`
}

func (r *CreateTripRequest) Validate() error {
	if len(r.Segments) == 0 {
		return ErrMissingSegments
	}
	for i := range r.Segments {
		s := &r.Segments[i]
		if s.From == "" || s.To == "" {
			return ErrMissingAirport
		}
		if s.Date == "" {
			return ErrMissingDate
		}
		if s.Passengers <= 0 {
			s.Passengers = 1
		}
	}
	return nil
}

// CancelReason is the normalized reason enum sent to the marketplace.
type CancelReason string

const (
	CancelByClient CancelReason = "BY_CLIENT"
	CancelChanged  CancelReason = "CHANGED"
	CancelBooked   CancelReason = "BOOKED"
	CancelOther    CancelReason = "OTHER"
)

// NormalizeCancelReason maps arbitrary caller input onto the enum,
// defaulting to OTHER.
func NormalizeCancelReason(s string) CancelReason {
	switch CancelReason(s) {
	case CancelByClient, CancelChanged, CancelBooked, CancelOther:
		return CancelReason(s)
	}
	return CancelOther
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

func (r *SendMessageRequest) Validate() error {
	if r.Text == "" {
		return ErrMissingMessageText
	}
	return nil
}

type ValidationError string

func (e ValidationError) Error() string {
	return string(e)
}

const (
	ErrMissingSegments    ValidationError = "at least one segment is required"
	ErrMissingAirport     ValidationError = "segment from and to airports are required"
	ErrMissingDate        ValidationError = "segment date is required"
	ErrMissingMessageText ValidationError = "message text is required"
)
