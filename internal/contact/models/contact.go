package models

import "time"

// LinkPrecedence marks a contact's role within its cluster.
type LinkPrecedence string

const (
	// LinkPrecedencePrimary is the single oldest member of a cluster.
	LinkPrecedencePrimary LinkPrecedence = "primary"
	// LinkPrecedenceSecondary is every other member; LinkedID points directly
	// at the cluster's primary, never at another secondary.
	LinkPrecedenceSecondary LinkPrecedence = "secondary"
)

// Contact is a single observation of a person's identifiers. Contacts that
// share an email or phone at creation time are linked into one cluster.
//
// Invariants the stores and service uphold:
//   - at least one of Email / PhoneNumber is non-nil
//   - exactly one member per cluster has LinkPrecedencePrimary and nil LinkedID
//   - every secondary's LinkedID references that primary's ID
//   - DeletedAt non-nil excludes the row from all resolution reads
type Contact struct {
	ID             int64
	Email          *string
	PhoneNumber    *string
	LinkedID       *int64
	LinkPrecedence LinkPrecedence
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

// NewPrimary builds an unsaved primary contact. The store assigns ID on create.
func NewPrimary(email, phoneNumber *string, now time.Time) *Contact {
	return &Contact{
		Email:          email,
		PhoneNumber:    phoneNumber,
		LinkPrecedence: LinkPrecedencePrimary,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NewSecondary builds an unsaved secondary contact linked to primaryID.
func NewSecondary(email, phoneNumber *string, primaryID int64, now time.Time) *Contact {
	return &Contact{
		Email:          email,
		PhoneNumber:    phoneNumber,
		LinkedID:       &primaryID,
		LinkPrecedence: LinkPrecedenceSecondary,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsPrimary reports whether the contact heads its cluster.
func (c *Contact) IsPrimary() bool {
	return c.LinkPrecedence == LinkPrecedencePrimary
}

// PrimaryID resolves the id of the cluster's primary as seen from this
// contact: its own id when primary, otherwise the linked id.
func (c *Contact) PrimaryID() int64 {
	if c.LinkedID != nil {
		return *c.LinkedID
	}
	return c.ID
}

// OlderThan implements the ordering rule used everywhere "oldest" is needed:
// CreatedAt ascending, ID as the final tie-break. Applying the same rule when
// picking a cluster's primary and when picking a merge survivor keeps merges
// deterministic and idempotent under retry.
func (c *Contact) OlderThan(other *Contact) bool {
	if !c.CreatedAt.Equal(other.CreatedAt) {
		return c.CreatedAt.Before(other.CreatedAt)
	}
	return c.ID < other.ID
}

// Oldest returns the contact that wins the (CreatedAt, ID) ordering, or nil
// for an empty slice.
func Oldest(contacts []*Contact) *Contact {
	var oldest *Contact
	for _, c := range contacts {
		if oldest == nil || c.OlderThan(oldest) {
			oldest = c
		}
	}
	return oldest
}
