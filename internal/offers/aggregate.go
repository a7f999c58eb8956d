package offers

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/brokerops/charterlink/internal/avinode"
	"github.com/brokerops/charterlink/internal/models"
	"github.com/brokerops/charterlink/pkg/logger"
	"github.com/brokerops/charterlink/pkg/pricing"
)

// QuoteFetcher fetches one quote's detail; satisfied by *avinode.Client.
type QuoteFetcher interface {
	GetQuote(ctx context.Context, id string) (*avinode.RawQuote, error)
}

// Aggregator merges quote-like records scattered across a raw RFQ
// response into canonical Flight-offers.
type Aggregator struct {
	fetcher QuoteFetcher
	logger  *logger.Logger
	now     func() time.Time
}

func NewAggregator(fetcher QuoteFetcher, log *logger.Logger) *Aggregator {
	return &Aggregator{
		fetcher: fetcher,
		logger:  log,
		now:     time.Now,
	}
}

// Result is the outcome of reconciling one batch of RFQs.
type Result struct {
	Offers      []models.FlightOffer
	RFQsSeen    int
	RFQsSkipped int
}

// Reconcile normalizes every RFQ in the batch. An RFQ whose records all
// fail the critical-field check is skipped with a log; its siblings are
// unaffected. Output ordering carries no meaning; callers key on
// quote_id.
func (a *Aggregator) Reconcile(ctx context.Context, tripID string, rfqs []avinode.RawRFQ) Result {
	result := Result{
		Offers:   make([]models.FlightOffer, 0),
		RFQsSeen: len(rfqs),
	}

	for i := range rfqs {
		offers, err := a.reconcileRFQ(ctx, tripID, &rfqs[i])
		if err != nil {
			a.logger.Warn("skipping rfq",
				"rfq_id", rfqs[i].Key(),
				"error", err.Error(),
			)
			result.RFQsSkipped++
			continue
		}
		result.Offers = append(result.Offers, offers...)
	}

	return result
}

type candidate struct {
	key   string
	quote avinode.RawQuote
	lift  *avinode.RawLift
}

func (a *Aggregator) reconcileRFQ(ctx context.Context, tripID string, rfq *avinode.RawRFQ) ([]models.FlightOffer, error) {
	rfqRoute := routeFromRFQ(rfq)
	candidates := a.collectCandidates(ctx, rfq)
	if len(candidates) == 0 {
		return nil, nil
	}

	offers := make([]models.FlightOffer, 0, len(candidates))
	var firstErr error
	for _, cand := range candidates {
		offer, err := a.buildOffer(tripID, rfq, cand, rfqRoute)
		if err != nil {
			a.logger.Warn("rejecting quote record",
				"quote_id", cand.key,
				"rfq_id", rfq.Key(),
				"error", err.Error(),
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		offers = append(offers, offer)
	}

	// Only when every record failed does the RFQ itself count as skipped.
	if len(offers) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return offers, nil
}

// collectCandidates gathers quote-like records from all four response
// locations into one collection keyed by quote ID. Records without any
// ID are kept under their ordinal position so data is never silently
// dropped. Duplicate IDs are merged field-by-field, preferring whichever
// side already holds a value.
func (a *Aggregator) collectCandidates(ctx context.Context, rfq *avinode.RawRFQ) []*candidate {
	byKey := make(map[string]*candidate)
	var keys []string
	ordinal := 0

	add := func(q avinode.RawQuote, lift *avinode.RawLift) {
		key := q.Key()
		if key == "" {
			key = fmt.Sprintf("#%d", ordinal)
		}
		ordinal++

		if existing, ok := byKey[key]; ok {
			existing.quote = mergeQuotes(existing.quote, q)
			if existing.lift == nil {
				existing.lift = lift
			}
			return
		}
		byKey[key] = &candidate{key: key, quote: q, lift: lift}
		keys = append(keys, key)
	}

	for _, q := range rfq.Quotes {
		add(q, nil)
	}
	for _, q := range rfq.Requests {
		add(q, nil)
	}
	for _, q := range rfq.Responses {
		add(q, nil)
	}

	type quoteRef struct {
		id   string
		lift *avinode.RawLift
	}
	var refs []quoteRef

	for i := range rfq.Lifts {
		lift := &rfq.Lifts[i]
		attached := false

		if lift.Quote != nil {
			add(*lift.Quote, lift)
			attached = true
		}
		for _, ref := range lift.Links.Quotes {
			id := string(ref.ID)
			if id == "" {
				continue
			}
			attached = true
			if existing, ok := byKey[id]; ok {
				if existing.lift == nil {
					existing.lift = lift
				}
				continue
			}
			refs = append(refs, quoteRef{id: id, lift: lift})
		}

		// A lift with no quote at all is still an offer, just an
		// unanswered one.
		if !attached {
			add(avinode.RawQuote{}, lift)
		}
	}

	// Fan out the detail fetches concurrently; an individual failure
	// contributes nothing instead of failing the aggregation.
	if len(refs) > 0 && a.fetcher != nil {
		type fetchResult struct {
			id    string
			lift  *avinode.RawLift
			quote *avinode.RawQuote
		}

		resultCh := make(chan fetchResult, len(refs))
		var wg sync.WaitGroup

		for _, ref := range refs {
			wg.Add(1)
			go func(ref quoteRef) {
				defer wg.Done()

				quote, err := a.fetcher.GetQuote(ctx, ref.id)
				if err != nil {
					a.logger.Warn("quote detail fetch failed",
						"quote_id", ref.id,
						"error", err.Error(),
					)
					resultCh <- fetchResult{id: ref.id, lift: ref.lift}
					return
				}
				resultCh <- fetchResult{id: ref.id, lift: ref.lift, quote: quote}
			}(ref)
		}

		go func() {
			wg.Wait()
			close(resultCh)
		}()

		fetched := make([]fetchResult, 0, len(refs))
		for fr := range resultCh {
			if fr.quote != nil {
				fetched = append(fetched, fr)
			}
		}
		// Completion order is nondeterministic; sort before merging so
		// repeated aggregations of the same response are identical.
		sort.Slice(fetched, func(i, j int) bool { return fetched[i].id < fetched[j].id })
		for _, fr := range fetched {
			add(*fr.quote, fr.lift)
		}
	}

	out := make([]*candidate, 0, len(keys))
	for _, key := range keys {
		out = append(out, byKey[key])
	}
	return out
}

// mergeQuotes combines two partial records for the same quote ID. A field
// already populated on dst is never overwritten by an empty value from
// src; the merge is commutative over non-conflicting fields, which keeps
// it safe under fetch reordering.
func mergeQuotes(dst, src avinode.RawQuote) avinode.RawQuote {
	if dst.ID == "" {
		dst.ID = src.ID
	}
	if dst.QuoteID == "" {
		dst.QuoteID = src.QuoteID
	}
	if dst.Status == "" {
		dst.Status = src.Status
	}
	if dst.SourcingStatus == "" {
		dst.SourcingStatus = src.SourcingStatus
	}
	if dst.ValidUntil == "" {
		dst.ValidUntil = src.ValidUntil
	}
	if dst.TotalPrice.IsZero() && !src.TotalPrice.IsZero() {
		dst.TotalPrice = src.TotalPrice
	}
	if dst.Currency == "" {
		dst.Currency = src.Currency
	}
	if len(dst.PriceBreakdown) == 0 {
		dst.PriceBreakdown = src.PriceBreakdown
	}
	if dst.SellerCompany == nil {
		dst.SellerCompany = src.SellerCompany
	}
	if dst.Aircraft == nil {
		dst.Aircraft = src.Aircraft
	}
	if dst.Departure == nil {
		dst.Departure = src.Departure
	}
	if dst.Arrival == nil {
		dst.Arrival = src.Arrival
	}
	if len(dst.Segments) == 0 {
		dst.Segments = src.Segments
	}
	if len(dst.Amenities) == 0 {
		dst.Amenities = src.Amenities
	}
	return dst
}

// route is the resolved leg used to build one offer.
type route struct {
	dep  models.Airport
	arr  models.Airport
	date string
	time string
	pax  int
}

func (r *route) complete() bool {
	return r != nil && r.dep.ICAO != "" && r.arr.ICAO != "" && r.date != ""
}

func routeFromQuote(q *avinode.RawQuote) *route {
	if r := routeFromPoints(q.Departure, q.Arrival); r != nil {
		return r
	}
	return routeFromSegments(q.Segments)
}

func routeFromRFQ(rfq *avinode.RawRFQ) *route {
	if r := routeFromPoints(rfq.Departure, rfq.Arrival); r != nil {
		return r
	}
	return routeFromSegments(rfq.Segments)
}

// routeFromPoints handles the structured departure/arrival encoding.
func routeFromPoints(dep, arr *avinode.RawRoutePoint) *route {
	if dep == nil && arr == nil {
		return nil
	}
	r := &route{}
	if dep != nil {
		if dep.Airport != nil {
			r.dep = airportFrom(dep.Airport)
		}
		r.date = dep.Date
		r.time = dep.Time
	}
	if arr != nil && arr.Airport != nil {
		r.arr = airportFrom(arr.Airport)
	}
	return r
}

// routeFromSegments handles the segments[] encoding; the first segment
// carries the offer's departure leg.
func routeFromSegments(segs []avinode.RawSegment) *route {
	if len(segs) == 0 {
		return nil
	}
	seg := segs[0]
	r := &route{
		date: seg.DepartureDate,
		time: seg.DepartureTime,
		pax:  seg.PaxCount,
	}
	if seg.StartAirport != nil {
		r.dep = airportFrom(seg.StartAirport)
	}
	if seg.EndAirport != nil {
		r.arr = airportFrom(seg.EndAirport)
	}
	return r
}

func airportFrom(a *avinode.RawAirport) models.Airport {
	return models.Airport{ICAO: a.ICAO, Name: a.Name, City: a.City}
}

// resolveRoute prefers the quote's own embedded route, falling back to
// the parent RFQ's. A partially resolved route is still returned so the
// critical-field check can name the exact missing field.
func resolveRoute(q *avinode.RawQuote, rfqRoute *route) *route {
	quoteRoute := routeFromQuote(q)
	if quoteRoute.complete() {
		return quoteRoute
	}
	if rfqRoute.complete() {
		return rfqRoute
	}
	if quoteRoute != nil {
		return quoteRoute
	}
	return rfqRoute
}

func (a *Aggregator) buildOffer(tripID string, rfq *avinode.RawRFQ, cand *candidate, rfqRoute *route) (models.FlightOffer, error) {
	entity := "quote " + cand.key
	resolver := NewFieldResolver(a.logger, entity)

	r := resolveRoute(&cand.quote, rfqRoute)
	if r == nil {
		return models.FlightOffer{}, &avinode.MissingCriticalFieldError{Entity: entity, Field: "route"}
	}

	depICAO, err := resolver.Critical("departure_airport_icao", r.dep.ICAO)
	if err != nil {
		return models.FlightOffer{}, err
	}
	arrICAO, err := resolver.Critical("arrival_airport_icao", r.arr.ICAO)
	if err != nil {
		return models.FlightOffer{}, err
	}
	depDate, err := resolver.Critical("departure_date", r.date)
	if err != nil {
		return models.FlightOffer{}, err
	}

	quote := &cand.quote
	lift := cand.lift

	sourcingStatus := quote.SourcingStatus
	if sourcingStatus == "" && lift != nil {
		sourcingStatus = lift.SourcingStatus
	}
	validUntil := parseWhen(quote.ValidUntil)
	status := DeriveStatus(sourcingStatus, quote.Status, validUntil, a.now())

	total, currency := priceOf(quote, lift)

	company := quote.SellerCompany
	if company == nil && lift != nil {
		company = lift.SellerCompany
	}
	if company == nil {
		company = rfq.SellerCompany
	}

	aircraft := quote.Aircraft
	if aircraft == nil && lift != nil {
		aircraft = lift.Aircraft
	}

	offer := models.FlightOffer{
		QuoteID:    cand.key,
		RFQID:      rfq.Key(),
		TripID:     tripID,
		Departure:  models.Stop{Airport: models.Airport{ICAO: depICAO, Name: r.dep.Name, City: r.dep.City}, Date: depDate, Time: r.time},
		Arrival:    models.Stop{Airport: models.Airport{ICAO: arrICAO, Name: r.arr.Name, City: r.arr.City}},
		Passengers: r.pax,
		TotalPrice: total,
		Currency:   currency,
		Amenities:  quote.Amenities,
		RFQStatus:  status,
		ValidUntil: validUntil,
		DeepLink:   resolver.StringOr("deep_link", avinode.DeepLinkFrom(rfq.Actions), ""),
	}
	if rfq.TripID != "" {
		offer.TripID = string(rfq.TripID)
	}
	if lift != nil {
		offer.LiftID = string(lift.ID)
	}
	if total > 0 {
		offer.PriceFormatted = pricing.Format(total, currency)
	}
	for _, line := range quote.PriceBreakdown {
		offer.PriceBreakdown = append(offer.PriceBreakdown, models.PriceLine{
			Description: line.Description,
			Amount:      line.Amount,
		})
	}
	if company != nil {
		offer.Operator = models.Operator{
			ID:           string(company.ID),
			Name:         company.Name,
			ContactCount: resolver.IntOr("operator_contact_count", company.ContactCount, 0),
		}
	}
	if aircraft != nil {
		offer.Aircraft = models.Aircraft{
			Category: aircraft.Category,
			Type:     aircraft.Type,
			Tail:     aircraft.Tail,
			MaxPax:   aircraft.MaxPax,
			PhotoURL: aircraft.PhotoURL,
		}
	}

	return offer, nil
}

// priceOf takes the quote's own price when present, else the lift's
// estimate, else zero for an unanswered record.
func priceOf(quote *avinode.RawQuote, lift *avinode.RawLift) (float64, string) {
	if !quote.TotalPrice.IsZero() {
		currency := quote.TotalPrice.Currency
		if currency == "" {
			currency = quote.Currency
		}
		return quote.TotalPrice.Amount, currency
	}
	if lift != nil && !lift.EstimatedPrice.IsZero() {
		return lift.EstimatedPrice.Amount, lift.EstimatedPrice.Currency
	}
	return 0, quote.Currency
}

func parseWhen(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
