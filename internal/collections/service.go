// Package collections provides the group/tag membership primitives the
// post-import aggregator attaches imported entities with.
package collections

import "context"

// Spec describes a collection to create on demand.
type Spec struct {
	Title       string
	Description string
}

// AddResult reports the outcome of one attach call. Counts are reported
// by the membership primitive and passed through verbatim.
type AddResult struct {
	Attempted int
	Added     int
	NotAdded  int
}

// Service is the collection-membership contract consumed by the
// aggregator: create a collection, attach members idempotently, and look
// up display titles.
type Service interface {
	Create(ctx context.Context, spec Spec) (int64, error)
	AddMembers(ctx context.Context, collectionID int64, entityIDs []int64) (AddResult, error)
	Title(ctx context.Context, collectionID int64) (string, error)
}
