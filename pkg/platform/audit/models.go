// Package audit captures the mutations the resolution core applies so merges
// stay reconstructible after the fact. Events are transport-agnostic; stores
// and sinks fan out.
package audit

import (
	"context"
	"time"
)

// Action names an auditable mutation.
type Action string

const (
	// EventContactCreated records a new primary or secondary row.
	EventContactCreated Action = "contact_created"
	// EventClusterMerged records one primary demoted under a survivor,
	// dependents included.
	EventClusterMerged Action = "cluster_merged"
)

// Event is emitted from the cluster writer inside its transaction.
type Event struct {
	Action    Action
	Timestamp time.Time
	// ContactID is the row the action touched: the created contact, or the
	// demoted primary for a merge.
	ContactID int64
	// PrimaryID is the cluster primary after the action.
	PrimaryID int64
	// RequestID correlates the event with the HTTP request that caused it.
	RequestID string
}

// Store persists audit events. Implementations called inside a cluster-write
// transaction must join it (via the transaction carried in ctx) so an aborted
// merge leaves no audit trace.
type Store interface {
	Append(ctx context.Context, event Event) error
}
