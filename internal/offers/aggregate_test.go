package offers

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brokerops/charterlink/internal/avinode"
	"github.com/brokerops/charterlink/internal/models"
	"github.com/brokerops/charterlink/pkg/logger"
)

type fakeFetcher struct {
	quotes map[string]*avinode.RawQuote
	failOn map[string]bool
}

func (f *fakeFetcher) GetQuote(ctx context.Context, id string) (*avinode.RawQuote, error) {
	if f.failOn[id] {
		return nil, errors.New("detail fetch blew up")
	}
	q, ok := f.quotes[id]
	if !ok {
		return nil, avinode.ErrNotFound
	}
	return q, nil
}

func newTestAggregator(fetcher QuoteFetcher) *Aggregator {
	agg := NewAggregator(fetcher, logger.NewNop())
	agg.now = func() time.Time {
		return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	}
	return agg
}

func rfqWithSegment() avinode.RawRFQ {
	return avinode.RawRFQ{
		ID: "41",
		Segments: []avinode.RawSegment{
			{
				StartAirport:  &avinode.RawAirport{ICAO: "KTEB", City: "Teterboro"},
				EndAirport:    &avinode.RawAirport{ICAO: "KPBI", City: "West Palm Beach"},
				DepartureDate: "2026-09-14",
				DepartureTime: "09:30",
				PaxCount:      4,
			},
		},
	}
}

func TestReconcileMergePrefersNonEmpty(t *testing.T) {
	rfq := rfqWithSegment()
	// Same quote ID seen twice: once with only a price, once with only a
	// status signal. The merged offer must carry both.
	rfq.Responses = []avinode.RawQuote{
		{ID: "q1", TotalPrice: &avinode.FlexPrice{Amount: 45000, Currency: "USD"}},
	}
	rfq.Lifts = []avinode.RawLift{
		{
			ID:            "l1",
			SellerCompany: &avinode.RawCompany{ID: "op9", Name: "Apex Jets"},
			Quote:         &avinode.RawQuote{ID: "q1", SourcingStatus: "Accepted"},
		},
	}

	agg := newTestAggregator(nil)
	result := agg.Reconcile(context.Background(), "B22E7Z", []avinode.RawRFQ{rfq})

	require.Len(t, result.Offers, 1)
	offer := result.Offers[0]
	assert.Equal(t, "q1", offer.QuoteID)
	assert.Equal(t, 45000.0, offer.TotalPrice)
	assert.Equal(t, "USD", offer.Currency)
	assert.Equal(t, models.StatusQuoted, offer.RFQStatus)
	assert.Equal(t, "Apex Jets", offer.Operator.Name)
}

func TestReconcileIsIdempotent(t *testing.T) {
	rfq := rfqWithSegment()
	rfq.Quotes = []avinode.RawQuote{
		{ID: "q1", SourcingStatus: "Accepted", TotalPrice: &avinode.FlexPrice{Amount: 38000, Currency: "USD"}},
		{ID: "q2", SourcingStatus: "Declined"},
	}
	rfq.Responses = []avinode.RawQuote{
		{ID: "q1", SellerCompany: &avinode.RawCompany{Name: "Apex Jets"}},
	}

	agg := newTestAggregator(nil)
	first := agg.Reconcile(context.Background(), "B22E7Z", []avinode.RawRFQ{rfq})
	second := agg.Reconcile(context.Background(), "B22E7Z", []avinode.RawRFQ{rfq})

	byID := func(offers []models.FlightOffer) []models.FlightOffer {
		out := append([]models.FlightOffer(nil), offers...)
		sort.Slice(out, func(i, j int) bool { return out[i].QuoteID < out[j].QuoteID })
		return out
	}
	assert.Equal(t, byID(first.Offers), byID(second.Offers))
}

func TestReconcileSkipsRFQMissingCriticalField(t *testing.T) {
	broken := avinode.RawRFQ{
		ID: "77",
		Segments: []avinode.RawSegment{
			{EndAirport: &avinode.RawAirport{ICAO: "KPBI"}, DepartureDate: "2026-09-14"},
		},
		Quotes: []avinode.RawQuote{{ID: "bad1", SourcingStatus: "Accepted"}},
	}
	healthy := rfqWithSegment()
	healthy.Quotes = []avinode.RawQuote{{ID: "q1", SourcingStatus: "Accepted"}}

	agg := newTestAggregator(nil)
	result := agg.Reconcile(context.Background(), "B22E7Z", []avinode.RawRFQ{broken, healthy})

	assert.Equal(t, 2, result.RFQsSeen)
	assert.Equal(t, 1, result.RFQsSkipped)
	require.Len(t, result.Offers, 1)
	assert.Equal(t, "q1", result.Offers[0].QuoteID)
}

func TestReconcileConcurrentDetailFetchToleratesFailure(t *testing.T) {
	rfq := rfqWithSegment()
	rfq.Lifts = []avinode.RawLift{
		{
			ID: "l1",
			Links: avinode.RawLiftLinks{Quotes: []avinode.RawQuoteRef{
				{ID: "q1"}, {ID: "q2"},
			}},
		},
	}

	fetcher := &fakeFetcher{
		quotes: map[string]*avinode.RawQuote{
			"q1": {ID: "q1", SourcingStatus: "Accepted", TotalPrice: &avinode.FlexPrice{Amount: 52000, Currency: "EUR"}},
		},
		failOn: map[string]bool{"q2": true},
	}

	agg := newTestAggregator(fetcher)
	result := agg.Reconcile(context.Background(), "B22E7Z", []avinode.RawRFQ{rfq})

	// The failed detail fetch contributes nothing; it must not sink the
	// whole aggregation.
	require.Len(t, result.Offers, 1)
	assert.Equal(t, "q1", result.Offers[0].QuoteID)
	assert.Equal(t, 52000.0, result.Offers[0].TotalPrice)
	assert.Equal(t, 0, result.RFQsSkipped)
}

func TestReconcileUnansweredLiftPlaceholder(t *testing.T) {
	// Trip B22E7Z: one RFQ, one lift with no quote links and no sourcing
	// status. One unanswered offer, priced at zero, airports from the
	// RFQ-level segment.
	rfq := rfqWithSegment()
	rfq.Lifts = []avinode.RawLift{
		{ID: "l1", Aircraft: &avinode.RawAircraft{Category: "Midsize", Type: "Citation XLS"}},
	}

	agg := newTestAggregator(nil)
	result := agg.Reconcile(context.Background(), "B22E7Z", []avinode.RawRFQ{rfq})

	require.Len(t, result.Offers, 1)
	offer := result.Offers[0]
	assert.Equal(t, models.StatusUnanswered, offer.RFQStatus)
	assert.Equal(t, 0.0, offer.TotalPrice)
	assert.Equal(t, "KTEB", offer.Departure.Airport.ICAO)
	assert.Equal(t, "KPBI", offer.Arrival.Airport.ICAO)
	assert.Equal(t, "2026-09-14", offer.Departure.Date)
	assert.Equal(t, "Citation XLS", offer.Aircraft.Type)
	assert.Equal(t, "l1", offer.LiftID)
}

func TestReconcileUnansweredLiftUsesEstimatedPrice(t *testing.T) {
	rfq := rfqWithSegment()
	rfq.Lifts = []avinode.RawLift{
		{ID: "l1", EstimatedPrice: &avinode.FlexPrice{Amount: 41500, Currency: "USD"}},
	}

	agg := newTestAggregator(nil)
	result := agg.Reconcile(context.Background(), "B22E7Z", []avinode.RawRFQ{rfq})

	require.Len(t, result.Offers, 1)
	assert.Equal(t, models.StatusUnanswered, result.Offers[0].RFQStatus)
	assert.Equal(t, 41500.0, result.Offers[0].TotalPrice)
}

func TestReconcileKeepsRecordsWithoutIDs(t *testing.T) {
	rfq := rfqWithSegment()
	rfq.Quotes = []avinode.RawQuote{
		{SourcingStatus: "Accepted", TotalPrice: &avinode.FlexPrice{Amount: 30000, Currency: "USD"}},
		{SourcingStatus: "Declined"},
	}

	agg := newTestAggregator(nil)
	result := agg.Reconcile(context.Background(), "B22E7Z", []avinode.RawRFQ{rfq})

	// ID-less records are keyed by ordinal position, not dropped.
	require.Len(t, result.Offers, 2)
	assert.Equal(t, "#0", result.Offers[0].QuoteID)
	assert.Equal(t, "#1", result.Offers[1].QuoteID)
}

func TestReconcileQuoteRouteOverridesRFQRoute(t *testing.T) {
	rfq := rfqWithSegment()
	rfq.Quotes = []avinode.RawQuote{
		{
			ID: "q1",
			Departure: &avinode.RawRoutePoint{
				Airport: &avinode.RawAirport{ICAO: "KHPN"},
				Date:    "2026-09-15",
			},
			Arrival: &avinode.RawRoutePoint{
				Airport: &avinode.RawAirport{ICAO: "KOPF"},
			},
		},
	}

	agg := newTestAggregator(nil)
	result := agg.Reconcile(context.Background(), "B22E7Z", []avinode.RawRFQ{rfq})

	require.Len(t, result.Offers, 1)
	assert.Equal(t, "KHPN", result.Offers[0].Departure.Airport.ICAO)
	assert.Equal(t, "KOPF", result.Offers[0].Arrival.Airport.ICAO)
	assert.Equal(t, "2026-09-15", result.Offers[0].Departure.Date)
}
