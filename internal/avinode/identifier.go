package avinode

import (
	"regexp"
	"strings"
)

// Known identifier prefixes used by the application's own bookkeeping.
// Marketplace-assigned trip codes carry no separator at all.
const (
	TripPrefix = "atrip-"
	RFQPrefix  = "arfq-"
)

type IDKind string

const (
	KindTrip IDKind = "trip"
	KindRFQ  IDKind = "rfq"
)

// Confidence records whether an identifier was resolved from a recognized
// form or guessed from an unrecognized one. Guessed identifiers are never
// treated as authoritative by callers.
type Confidence string

const (
	ConfidenceExact   Confidence = "exact"
	ConfidenceGuessed Confidence = "guessed"
)

// Resolved is the outcome of identifier disambiguation: which endpoint
// family applies (Kind), the identifier the endpoint expects (Raw), and
// the canonical prefixed form for bookkeeping (Canonical).
type Resolved struct {
	Kind       IDKind
	Raw        string
	Canonical  string
	Confidence Confidence
}

var (
	tripCodeRe = regexp.MustCompile(`^[A-Z0-9]+$`)
	numericRe  = regexp.MustCompile(`^[0-9]+$`)
	digitRunRe = regexp.MustCompile(`[0-9]+`)
	hasDigitRe = regexp.MustCompile(`[0-9]`)
)

// Resolve disambiguates an opaque identifier string. Prefixed and
// well-formed unprefixed identifiers resolve exactly; anything else is at
// best a low-confidence guess.
func Resolve(id string) (Resolved, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Resolved{}, &MalformedIdentifierError{ID: id}
	}

	if rest, ok := strings.CutPrefix(id, TripPrefix); ok {
		return resolvePrefixed(KindTrip, TripPrefix, id, rest)
	}
	if rest, ok := strings.CutPrefix(id, RFQPrefix); ok {
		return resolvePrefixed(KindRFQ, RFQPrefix, id, rest)
	}

	// Purely numeric identifiers are trips; synthesize the prefixed form
	// for downstream bookkeeping.
	if numericRe.MatchString(id) {
		return Resolved{
			Kind:       KindTrip,
			Raw:        id,
			Canonical:  TripPrefix + id,
			Confidence: ConfidenceExact,
		}, nil
	}

	// Marketplace trip codes: uppercase alphanumeric, no separator.
	if tripCodeRe.MatchString(id) {
		return Resolved{
			Kind:       KindTrip,
			Raw:        id,
			Canonical:  TripPrefix + id,
			Confidence: ConfidenceExact,
		}, nil
	}

	// Last resort: pull the first digit run out of the string and flag the
	// result as guessed rather than coercing it silently.
	if run := digitRunRe.FindString(id); run != "" {
		return Resolved{
			Kind:       KindTrip,
			Raw:        run,
			Canonical:  TripPrefix + run,
			Confidence: ConfidenceGuessed,
		}, nil
	}

	return Resolved{}, &MalformedIdentifierError{ID: id}
}

func resolvePrefixed(kind IDKind, prefix, full, rest string) (Resolved, error) {
	if rest == "" || !hasDigitRe.MatchString(rest) {
		return Resolved{}, &MalformedIdentifierError{ID: full}
	}
	return Resolved{
		Kind:       kind,
		Raw:        rest,
		Canonical:  prefix + rest,
		Confidence: ConfidenceExact,
	}, nil
}
