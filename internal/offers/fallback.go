package offers

import (
	"strconv"

	"github.com/brokerops/charterlink/internal/avinode"
	"github.com/brokerops/charterlink/pkg/logger"
)

// FieldResolver applies the two-tier field fallback policy for one
// entity. Critical fields abort the enclosing record's reconciliation;
// non-critical fields get a logged default.
type FieldResolver struct {
	logger    *logger.Logger
	entity    string
	fallbacks []string
}

func NewFieldResolver(log *logger.Logger, entity string) *FieldResolver {
	return &FieldResolver{logger: log, entity: entity}
}

// Critical returns the value, or a MissingCriticalFieldError when it is
// absent. Never substituted.
func (r *FieldResolver) Critical(field, value string) (string, error) {
	if value == "" {
		return "", &avinode.MissingCriticalFieldError{Entity: r.entity, Field: field}
	}
	return value, nil
}

// StringOr substitutes def for an absent non-critical field and logs the
// substitution naming the field, the entity, and the value used.
func (r *FieldResolver) StringOr(field, value, def string) string {
	if value != "" {
		return value
	}
	r.record(field, def)
	return def
}

func (r *FieldResolver) IntOr(field string, value, def int) int {
	if value != 0 {
		return value
	}
	r.record(field, strconv.Itoa(def))
	return def
}

func (r *FieldResolver) record(field, substituted string) {
	r.fallbacks = append(r.fallbacks, field)
	r.logger.Warn("field missing, substituting default",
		"field", field,
		"entity", r.entity,
		"default", substituted,
	)
}

// FallbacksUsed lists the non-critical fields that were defaulted.
func (r *FieldResolver) FallbacksUsed() []string {
	return r.fallbacks
}
