package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/brokerops/charterlink/internal/avinode"
	"github.com/brokerops/charterlink/internal/breaker"
	"github.com/brokerops/charterlink/internal/broker"
	"github.com/brokerops/charterlink/internal/models"
)

// BrokerService is the slice of the broker the HTTP layer needs.
type BrokerService interface {
	CreateTrip(ctx context.Context, req models.CreateTripRequest, opts ...broker.CallOption) (*models.TripResult, error)
	GetFlightOffers(ctx context.Context, id string, opts ...broker.CallOption) (*models.FlightOfferBundle, error)
	CancelTrip(ctx context.Context, id, reason string, opts ...broker.CallOption) error
	SendMessage(ctx context.Context, requestID, text string, opts ...broker.CallOption) (*models.TripMessage, error)
	GetMessage(ctx context.Context, id string, opts ...broker.CallOption) (*models.TripMessage, error)
	CircuitMetrics() map[string]breaker.Metrics
	IsHealthy() bool
}

type BrokerHandler struct {
	service BrokerService
}

func NewBrokerHandler(service BrokerService) *BrokerHandler {
	return &BrokerHandler{service: service}
}

func (h *BrokerHandler) Register(g *echo.Group) {
	g.POST("/trips", h.CreateTrip)
	g.GET("/trips/:id/offers", h.GetFlightOffers)
	g.PUT("/trips/:id/cancel", h.CancelTrip)
	g.POST("/trips/:id/messages", h.SendMessage)
	g.GET("/messages/:id", h.GetMessage)
}

func (h *BrokerHandler) CreateTrip(c echo.Context) error {
	var req models.CreateTripRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to parse request body: " + err.Error(),
			Code:    http.StatusBadRequest,
		})
	}
	if err := req.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
	}

	result, err := h.service.CreateTrip(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *BrokerHandler) GetFlightOffers(c echo.Context) error {
	bundle, err := h.service.GetFlightOffers(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, bundle)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *BrokerHandler) CancelTrip(c echo.Context) error {
	var req cancelRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to parse request body: " + err.Error(),
			Code:    http.StatusBadRequest,
		})
	}

	if err := h.service.CancelTrip(c.Request().Context(), c.Param("id"), req.Reason); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *BrokerHandler) SendMessage(c echo.Context) error {
	var req models.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to parse request body: " + err.Error(),
			Code:    http.StatusBadRequest,
		})
	}
	if err := req.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
	}

	msg, err := h.service.SendMessage(c.Request().Context(), c.Param("id"), req.Text)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, msg)
}

func (h *BrokerHandler) GetMessage(c echo.Context) error {
	msg, err := h.service.GetMessage(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, msg)
}

func (h *BrokerHandler) Health(c echo.Context) error {
	status := "ok"
	if !h.service.IsHealthy() {
		status = "degraded"
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": status,
	})
}

func (h *BrokerHandler) CircuitMetrics(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.CircuitMetrics())
}

// writeError maps the gateway error taxonomy onto HTTP. An open circuit
// is reported distinctly from missing data and invalid input so callers
// can tell "marketplace down" apart from "nothing there".
func writeError(c echo.Context, err error) error {
	var malformed *avinode.MalformedIdentifierError
	if errors.As(err, &malformed) {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "malformed_identifier",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
	}

	var validation models.ValidationError
	if errors.As(err, &validation) {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
	}

	if errors.Is(err, avinode.ErrNotFound) {
		return c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
			Code:    http.StatusNotFound,
		})
	}

	var openErr *breaker.OpenError
	if errors.As(err, &openErr) {
		return c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error:   "marketplace_unavailable",
			Message: err.Error(),
			Code:    http.StatusServiceUnavailable,
		})
	}

	if errors.Is(err, avinode.ErrRateLimited) {
		return c.JSON(http.StatusTooManyRequests, models.ErrorResponse{
			Error:   "rate_limited",
			Message: err.Error(),
			Code:    http.StatusTooManyRequests,
		})
	}

	var apiErr *avinode.APIError
	if errors.Is(err, avinode.ErrAuthFailure) || errors.Is(err, avinode.ErrUnreachable) || errors.As(err, &apiErr) {
		return c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Error:   "marketplace_error",
			Message: err.Error(),
			Code:    http.StatusBadGateway,
		})
	}

	return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "internal_error",
		Message: err.Error(),
		Code:    http.StatusInternalServerError,
	})
}
