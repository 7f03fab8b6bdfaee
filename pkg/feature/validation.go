package feature

import (
	"github.com/skylarkml/skylark/pkg/skyerrors"
)

// Validation holds the constraints a computed feature value must satisfy
// before it is persisted. The zero rule set with NotNull true is the
// default for definitions constructed without an explicit rule.
//
// Unique is declared metadata only: enforcing uniqueness requires a scan of
// the offline store and is left to downstream data-quality tooling.
type Validation struct {
	MinValue      *float64      `json:"min_value,omitempty"`
	MaxValue      *float64      `json:"max_value,omitempty"`
	AllowedValues []interface{} `json:"allowed_values,omitempty"`
	NotNull       bool          `json:"not_null"`
	Unique        bool          `json:"unique"`
}

// DefaultValidation returns the rule applied when a definition declares
// none: the value must not be null.
func DefaultValidation() *Validation {
	return &Validation{NotNull: true}
}

// Bounded is a convenience constructor for a not-null numeric range rule.
// Either bound may be nil for a half-open range.
func Bounded(min, max *float64) *Validation {
	return &Validation{MinValue: min, MaxValue: max, NotNull: true}
}

// OneOf is a convenience constructor for a not-null membership rule.
func OneOf(allowed ...interface{}) *Validation {
	return &Validation{AllowedValues: allowed, NotNull: true}
}

// Check validates a computed value against the rule set. The returned error
// carries the feature name and offending value so the caller can surface
// exactly which feature failed.
func (v *Validation) Check(featureName string, value interface{}) error {
	if value == nil {
		if v.NotNull {
			return skyerrors.Newf(skyerrors.ErrorTypeValidation, "feature %q must not be null", featureName).
				WithDetail("feature", featureName)
		}
		return nil
	}

	if v.MinValue != nil || v.MaxValue != nil {
		num, ok := asFloat(value)
		if !ok {
			return skyerrors.Newf(skyerrors.ErrorTypeValidation,
				"feature %q has bounds but a non-numeric value", featureName).
				WithDetail("feature", featureName).
				WithDetail("value", value)
		}
		if v.MinValue != nil && num < *v.MinValue {
			return skyerrors.Newf(skyerrors.ErrorTypeValidation,
				"feature %q value %v below minimum %v", featureName, value, *v.MinValue).
				WithDetail("feature", featureName).
				WithDetail("value", value)
		}
		if v.MaxValue != nil && num > *v.MaxValue {
			return skyerrors.Newf(skyerrors.ErrorTypeValidation,
				"feature %q value %v above maximum %v", featureName, value, *v.MaxValue).
				WithDetail("feature", featureName).
				WithDetail("value", value)
		}
	}

	if len(v.AllowedValues) > 0 && !contains(v.AllowedValues, value) {
		return skyerrors.Newf(skyerrors.ErrorTypeValidation,
			"feature %q value %v not in allowed set", featureName, value).
			WithDetail("feature", featureName).
			WithDetail("value", value)
	}

	return nil
}

func contains(allowed []interface{}, value interface{}) bool {
	vNum, vIsNum := asFloat(value)
	for _, a := range allowed {
		if a == value {
			return true
		}
		// Numeric membership compares by value so 5 matches 5.0.
		if vIsNum {
			if aNum, ok := asFloat(a); ok && aNum == vNum {
				return true
			}
		}
	}
	return false
}

// asFloat coerces the numeric types a raw JSON or Go record can carry.
func asFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}
