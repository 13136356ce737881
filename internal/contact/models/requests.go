package models

import "strings"

// IdentifyRequest is the inbound observation. At least one identifier must be
// present after normalization; the service enforces this.
type IdentifyRequest struct {
	Email       *string `json:"email"`
	PhoneNumber *string `json:"phoneNumber"`
}

// Normalize trims whitespace and collapses empty strings to nil so the rest
// of the pipeline only ever sees "present" or "absent".
func (r *IdentifyRequest) Normalize() {
	r.Email = normalizeField(r.Email)
	r.PhoneNumber = normalizeField(r.PhoneNumber)
}

// HasIdentifier reports whether the request carries at least one identifier.
func (r *IdentifyRequest) HasIdentifier() bool {
	return r.Email != nil || r.PhoneNumber != nil
}

func normalizeField(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
