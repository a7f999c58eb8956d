package broker

import (
	"context"
	"errors"
	"time"

	"github.com/brokerops/charterlink/internal/avinode"
	"github.com/brokerops/charterlink/internal/breaker"
	"github.com/brokerops/charterlink/internal/cache"
	"github.com/brokerops/charterlink/internal/models"
	"github.com/brokerops/charterlink/internal/offers"
	"github.com/brokerops/charterlink/pkg/logger"
)

// Gateway is the marketplace surface the broker consumes; satisfied by
// *avinode.Client.
type Gateway interface {
	CreateTrip(ctx context.Context, req models.CreateTripRequest) (*models.TripResult, error)
	FetchRFQs(ctx context.Context, id avinode.Resolved) ([]avinode.RawRFQ, error)
	GetQuote(ctx context.Context, id string) (*avinode.RawQuote, error)
	CancelTrip(ctx context.Context, id avinode.Resolved, reason models.CancelReason) error
	SendMessage(ctx context.Context, requestID, text string) (*models.TripMessage, error)
	GetMessage(ctx context.Context, id string) (*models.TripMessage, error)
}

// FallbackProvider supplies degraded-but-usable offer data when the
// marketplace circuit is open. Returning false declines to provide data,
// in which case the rejection propagates to the caller.
type FallbackProvider func(ctx context.Context, tripID string) (*models.FlightOfferBundle, bool)

// CacheFallback serves the last successfully reconciled bundle from the
// cache, or an empty degraded bundle when nothing is cached yet.
func CacheFallback(c cache.Cache) FallbackProvider {
	return func(ctx context.Context, tripID string) (*models.FlightOfferBundle, bool) {
		if bundle, ok := c.GetBundle(ctx, tripID); ok {
			bundle.Metadata.Source = "fallback"
			bundle.Metadata.Degraded = true
			return bundle, true
		}
		return &models.FlightOfferBundle{
			TripID: tripID,
			Offers: make([]models.FlightOffer, 0),
			Metadata: models.BundleMetadata{
				Source:   "fallback",
				Degraded: true,
			},
			FetchedAt: time.Now(),
		}, true
	}
}

// CallOption adjusts a single broker call.
type CallOption func(*callSettings)

type callSettings struct {
	bypassBreaker bool
}

// BypassCircuitBreaker opts one call out of circuit protection, for
// administrative or diagnostic operations where fast-fail is undesirable.
func BypassCircuitBreaker() CallOption {
	return func(s *callSettings) { s.bypassBreaker = true }
}

// Service implements the collaborator-facing interface of the
// reconciliation core.
type Service struct {
	gateway    Gateway
	aggregator *offers.Aggregator
	breakers   *breaker.Registry
	cache      cache.Cache
	fallback   FallbackProvider
	logger     *logger.Logger
}

func NewService(gateway Gateway, agg *offers.Aggregator, registry *breaker.Registry, c cache.Cache, fallback FallbackProvider, log *logger.Logger) *Service {
	if c == nil {
		c = cache.NewNoOpCache()
	}
	return &Service{
		gateway:    gateway,
		aggregator: agg,
		breakers:   registry,
		cache:      c,
		fallback:   fallback,
		logger:     log,
	}
}

// countsAsBreakerFailure decides which gateway errors feed the circuit
// breaker. Not-found and malformed input mean the dependency answered;
// they never trip the circuit.
func countsAsBreakerFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, avinode.ErrAuthFailure) ||
		errors.Is(err, avinode.ErrRateLimited) ||
		errors.Is(err, avinode.ErrUnreachable) {
		return true
	}
	var apiErr *avinode.APIError
	return errors.As(err, &apiErr)
}

// execute wraps op in the marketplace breaker unless bypassed.
func (s *Service) execute(op func() error, opts []CallOption) error {
	var settings callSettings
	for _, opt := range opts {
		opt(&settings)
	}
	if settings.bypassBreaker {
		return op()
	}
	return s.breakers.Get(avinode.ServiceName).Execute(op, countsAsBreakerFailure)
}

// CreateTrip registers a sourcing trip on the marketplace.
func (s *Service) CreateTrip(ctx context.Context, req models.CreateTripRequest, opts ...CallOption) (*models.TripResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var result *models.TripResult
	err := s.execute(func() error {
		var opErr error
		result, opErr = s.gateway.CreateTrip(ctx, req)
		return opErr
	}, opts)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetFlightOffers reconciles all offers for a trip or RFQ identifier into
// one canonical bundle. While the circuit is open the fallback provider
// is consulted instead of propagating the rejection.
func (s *Service) GetFlightOffers(ctx context.Context, id string, opts ...CallOption) (*models.FlightOfferBundle, error) {
	start := time.Now()

	resolved, err := avinode.Resolve(id)
	if err != nil {
		return nil, err
	}

	var rfqs []avinode.RawRFQ
	err = s.execute(func() error {
		var opErr error
		rfqs, opErr = s.gateway.FetchRFQs(ctx, resolved)
		return opErr
	}, opts)

	var openErr *breaker.OpenError
	if errors.As(err, &openErr) {
		if s.fallback != nil {
			if bundle, ok := s.fallback(ctx, resolved.Raw); ok {
				s.logger.Warn("serving fallback offers, circuit open",
					"trip_id", resolved.Raw,
					"offers", len(bundle.Offers),
				)
				return bundle, nil
			}
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	result := s.aggregator.Reconcile(ctx, resolved.Raw, rfqs)

	bundle := &models.FlightOfferBundle{
		TripID: resolved.Raw,
		Offers: result.Offers,
		Metadata: models.BundleMetadata{
			TotalOffers: len(result.Offers),
			RFQsSeen:    result.RFQsSeen,
			RFQsSkipped: result.RFQsSkipped,
			FetchTimeMs: time.Since(start).Milliseconds(),
			Source:      "live",
		},
		FetchedAt: time.Now(),
	}

	if err := s.cache.SetBundle(ctx, resolved.Raw, bundle); err != nil {
		s.logger.Warn("offer bundle cache write failed", "trip_id", resolved.Raw, "error", err.Error())
	}

	return bundle, nil
}

// CancelTrip cancels a trip or RFQ with a normalized reason.
func (s *Service) CancelTrip(ctx context.Context, id, reason string, opts ...CallOption) error {
	resolved, err := avinode.Resolve(id)
	if err != nil {
		return err
	}
	return s.execute(func() error {
		return s.gateway.CancelTrip(ctx, resolved, models.NormalizeCancelReason(reason))
	}, opts)
}

// SendMessage posts an operator chat message on a request thread.
func (s *Service) SendMessage(ctx context.Context, requestID, text string, opts ...CallOption) (*models.TripMessage, error) {
	req := models.SendMessageRequest{Text: text}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var msg *models.TripMessage
	err := s.execute(func() error {
		var opErr error
		msg, opErr = s.gateway.SendMessage(ctx, requestID, text)
		return opErr
	}, opts)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// GetMessage fetches one message by id. Diagnostic reads bypass the
// breaker by default so support tooling still works during an outage.
func (s *Service) GetMessage(ctx context.Context, id string, opts ...CallOption) (*models.TripMessage, error) {
	if len(opts) == 0 {
		opts = []CallOption{BypassCircuitBreaker()}
	}

	var msg *models.TripMessage
	err := s.execute(func() error {
		var opErr error
		msg, opErr = s.gateway.GetMessage(ctx, id)
		return opErr
	}, opts)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// CircuitMetrics snapshots every tracked external service.
func (s *Service) CircuitMetrics() map[string]breaker.Metrics {
	return s.breakers.Metrics()
}

// IsHealthy reports whether no tracked circuit is open.
func (s *Service) IsHealthy() bool {
	return s.breakers.Healthy()
}
