package builder

import (
	"errors"
	"fmt"
)

// ErrNotRegistered is returned by Cache.GetOrCreate for an entity type that
// has no registered constructor.
var ErrNotRegistered = errors.New("entity type not registered")

// ResolveError reports that no recognized entity type could be derived from
// an expression tree.
type ResolveError struct {
	// Code identifies the error category.
	Code ResolveErrorCode

	// Expression is the printed form of the tree that failed to resolve.
	Expression string
}

// ResolveErrorCode categorizes resolution errors.
type ResolveErrorCode string

const (
	// ErrCodeNoEntityType indicates the call chain was exhausted without
	// reaching a sequence of a recognized entity type.
	ErrCodeNoEntityType ResolveErrorCode = "NO_ENTITY_TYPE"
)

// Error implements the error interface.
func (e *ResolveError) Error() string {
	return fmt.Sprintf("%s: no entity type found in %s", e.Code, e.Expression)
}

// IsNoEntityTypeFound returns true if err is a resolution failure.
// Uses errors.As to handle wrapped errors.
func IsNoEntityTypeFound(err error) bool {
	var re *ResolveError
	if errors.As(err, &re) {
		return re.Code == ErrCodeNoEntityType
	}
	return false
}
