package service

import (
	"contactlink/internal/contact/models"
	dErrors "contactlink/pkg/domain-errors"
)

// buildResponse flattens an authoritative cluster into the wire shape.
// cluster must be in (created_at, id) order and contain exactly one primary;
// a cluster without one is a data-integrity bug surfaced as an internal
// error, never silently repaired.
func buildResponse(cluster []*models.Contact) (*models.IdentifyResponse, error) {
	var primary *models.Contact
	for _, c := range cluster {
		if c.IsPrimary() {
			primary = c
			break
		}
	}
	if primary == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "cluster has no primary contact")
	}

	// The primary's values lead each list even though members are already in
	// cluster order; callers assert exact positional output.
	emails := make([]string, 0, len(cluster))
	phones := make([]string, 0, len(cluster))
	emails = appendUnique(emails, primary.Email)
	phones = appendUnique(phones, primary.PhoneNumber)

	secondaryIDs := make([]int64, 0, len(cluster))
	for _, c := range cluster {
		emails = appendUnique(emails, c.Email)
		phones = appendUnique(phones, c.PhoneNumber)
		if !c.IsPrimary() {
			secondaryIDs = append(secondaryIDs, c.ID)
		}
	}

	return &models.IdentifyResponse{
		Contact: models.ConsolidatedContact{
			PrimaryContactID:    primary.ID,
			Emails:              emails,
			PhoneNumbers:        phones,
			SecondaryContactIDs: secondaryIDs,
		},
	}, nil
}

// appendUnique appends a non-nil value not already present, preserving order.
func appendUnique(values []string, value *string) []string {
	if value == nil {
		return values
	}
	for _, existing := range values {
		if existing == *value {
			return values
		}
	}
	return append(values, *value)
}
