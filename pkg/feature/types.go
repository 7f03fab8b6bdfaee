// Package feature defines the declarative feature model for Skylark:
// metadata, validation rules, named transformations, feature definitions,
// and entity-scoped feature groups.
//
// A Definition computes one value from a raw record (transformation first,
// validation second). A Group computes all of its definitions in declaration
// order and aborts on the first failure, so no partially-computed value map
// ever reaches a store.
package feature

import (
	"github.com/skylarkml/skylark/pkg/skyerrors"
)

// Type is the declared value type of a feature.
type Type string

const (
	TypeNumerical   Type = "numerical"
	TypeCategorical Type = "categorical"
	TypeBoolean     Type = "boolean"
	TypeTimestamp   Type = "timestamp"
	TypeText        Type = "text"
	TypeEmbedding   Type = "embedding"
)

// ParseType converts a string into a Type, rejecting unknown names.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeNumerical, TypeCategorical, TypeBoolean, TypeTimestamp, TypeText, TypeEmbedding:
		return Type(s), nil
	default:
		return "", skyerrors.Newf(skyerrors.ErrorTypeData, "unknown feature type: %q", s)
	}
}

// Status is the lifecycle state of a feature.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusActive     Status = "active"
	StatusDeprecated Status = "deprecated"
	// StatusArchived is terminal; it is only reachable from StatusDeprecated.
	StatusArchived Status = "archived"
)
