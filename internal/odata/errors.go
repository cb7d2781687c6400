package odata

import (
	"errors"
	"fmt"
)

// Error codes for link parsing.
const (
	ErrCodeInvalidLink      = "INVALID_LINK"
	ErrCodeLinkMissingKey   = "LINK_MISSING_KEY"
	ErrCodeUnknownEntitySet = "UNKNOWN_ENTITY_SET"
	ErrCodeInvalidKey       = "INVALID_KEY"
)

// LinkError reports why a link could not be resolved to an entity key.
type LinkError struct {
	Code    string
	Link    string
	Message string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Link, e.Message)
}

// IsLinkMissingKey reports whether err is a link without a key segment.
func IsLinkMissingKey(err error) bool {
	return hasCode(err, ErrCodeLinkMissingKey)
}

// IsUnknownEntitySet reports whether err names an entity set the model
// does not declare.
func IsUnknownEntitySet(err error) bool {
	return hasCode(err, ErrCodeUnknownEntitySet)
}

func hasCode(err error, code string) bool {
	var le *LinkError
	return errors.As(err, &le) && le.Code == code
}
