package offers

import (
	"strings"
	"time"

	"github.com/brokerops/charterlink/internal/models"
)

// Sourcing-status vocabulary currently shipped by the marketplace.
const (
	sourcingAccepted   = "accepted"
	sourcingDeclined   = "declined"
	sourcingUnanswered = "unanswered"
)

// DeriveStatus maps the marketplace's status signals onto one business
// status. The lift-level sourcing status is the primary signal; the
// direct quote status is an older encoding still seen on some responses.
// Either is accepted without the caller knowing which shape arrived.
func DeriveStatus(sourcingStatus, quoteStatus string, validUntil *time.Time, now time.Time) models.OfferStatus {
	switch strings.ToLower(strings.TrimSpace(sourcingStatus)) {
	case sourcingAccepted:
		return quotedOrExpired(validUntil, now)
	case sourcingDeclined:
		return models.StatusDeclined
	case sourcingUnanswered:
		return models.StatusUnanswered
	}

	switch strings.ToLower(strings.TrimSpace(quoteStatus)) {
	case "quoted":
		return quotedOrExpired(validUntil, now)
	case "declined":
		return models.StatusDeclined
	}

	return models.StatusUnanswered
}

func quotedOrExpired(validUntil *time.Time, now time.Time) models.OfferStatus {
	if validUntil != nil && validUntil.Before(now) {
		return models.StatusExpired
	}
	return models.StatusQuoted
}
