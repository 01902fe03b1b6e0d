package fhir

import (
	"errors"
	"strings"
)

// ErrMalformedReference is returned for strings that are not exactly "Type/id".
var ErrMalformedReference = errors.New("malformed reference")

// Reference is a parsed "Type/id" string.
type Reference struct {
	Type string
	ID   string
}

// String formats the reference back to its wire form.
func (r Reference) String() string {
	return NewReference(r.Type, r.ID)
}

// NewReference formats a reference string. No normalization is applied.
func NewReference(resourceType, id string) string {
	return resourceType + "/" + id
}

// ParseReference splits a reference on its single "/".
//
// "Patient/123" -> {Patient 123}. Anything with zero or several slashes, an empty
// half or surrounding whitespace is malformed. Absolute URLs and "urn:uuid:"
// references are not resolvable here and are reported as malformed too.
func ParseReference(s string) (Reference, error) {
	if s == "" || strings.TrimSpace(s) != s {
		return Reference{}, ErrMalformedReference
	}
	if strings.Count(s, "/") != 1 {
		return Reference{}, ErrMalformedReference
	}

	resourceType, id, _ := strings.Cut(s, "/")
	if resourceType == "" || id == "" {
		return Reference{}, ErrMalformedReference
	}
	return Reference{Type: resourceType, ID: id}, nil
}

// ReferenceID returns the id part of s when it references resourceType.
func ReferenceID(s, resourceType string) (string, bool) {
	ref, err := ParseReference(s)
	if err != nil || ref.Type != resourceType {
		return "", false
	}
	return ref.ID, true
}
