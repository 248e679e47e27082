package importer

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/importctl/internal/collections"
)

// Addition summarizes one collection attachment outcome.
type Addition struct {
	CollectionID int64  `json:"collection_id"`
	Name         string `json:"name"`
	New          bool   `json:"new"`
	Added        int    `json:"added"`
	NotAdded     int    `json:"not_added"`

	// Err records a per-collection attachment failure. A failed attach
	// never unwinds the import itself.
	Err string `json:"error,omitempty"`
}

// Aggregator attaches imported entity ids to groups or tags and reports
// per-collection counts.
type Aggregator struct {
	svc collections.Service
}

// NewAggregator creates an Aggregator over a collection service.
func NewAggregator(svc collections.Service) *Aggregator {
	return &Aggregator{svc: svc}
}

// AttachToCollections adds all entity ids to each requested collection,
// creating newSpec first if given. Records come back in processing order:
// the newly created collection, then the explicit ids in their original
// order. Nothing requested returns (nil, nil), distinct from a requested
// attach where every member was rejected.
func (a *Aggregator) AttachToCollections(ctx context.Context, entityIDs []int64, collectionIDs []int64, newSpec *collections.Spec) ([]Addition, error) {
	if newSpec == nil && len(collectionIDs) == 0 {
		return nil, nil
	}

	log := zap.L().With(zap.String("component", "importer.aggregator"))
	var additions []Addition

	working := collectionIDs
	newID := int64(0)
	if newSpec != nil {
		id, err := a.svc.Create(ctx, *newSpec)
		if err != nil {
			log.Error("create collection failed", zap.String("title", newSpec.Title), zap.Error(err))
			additions = append(additions, Addition{Name: newSpec.Title, New: true, Err: err.Error()})
		} else {
			newID = id
			working = append([]int64{id}, collectionIDs...)
		}
	}

	for _, collectionID := range working {
		addition := Addition{CollectionID: collectionID, New: collectionID == newID && newSpec != nil}

		if addition.New {
			addition.Name = newSpec.Title
		} else {
			name, err := a.svc.Title(ctx, collectionID)
			if err != nil {
				log.Warn("collection title lookup failed", zap.Int64("collection_id", collectionID), zap.Error(err))
			}
			addition.Name = name
		}

		result, err := a.svc.AddMembers(ctx, collectionID, entityIDs)
		if err != nil {
			log.Error("attach failed", zap.Int64("collection_id", collectionID), zap.Error(err))
			addition.Err = err.Error()
			additions = append(additions, addition)
			continue
		}

		addition.Added = result.Added
		addition.NotAdded = result.NotAdded
		additions = append(additions, addition)
	}

	return additions, nil
}
