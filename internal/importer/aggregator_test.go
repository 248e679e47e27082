package importer

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/importctl/internal/collections"
)

// fakeCollections is an in-memory collections.Service.
type fakeCollections struct {
	nextID  int64
	titles  map[int64]string
	members map[int64]map[int64]bool

	createErr error
	addErr    map[int64]error
}

func newFakeCollections() *fakeCollections {
	return &fakeCollections{
		titles:  make(map[int64]string),
		members: make(map[int64]map[int64]bool),
		addErr:  make(map[int64]error),
	}
}

func (f *fakeCollections) Create(_ context.Context, spec collections.Spec) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.nextID++
	f.titles[f.nextID] = spec.Title
	f.members[f.nextID] = make(map[int64]bool)
	return f.nextID, nil
}

func (f *fakeCollections) AddMembers(_ context.Context, collectionID int64, entityIDs []int64) (collections.AddResult, error) {
	if err := f.addErr[collectionID]; err != nil {
		return collections.AddResult{}, err
	}
	set := f.members[collectionID]
	if set == nil {
		set = make(map[int64]bool)
		f.members[collectionID] = set
	}
	result := collections.AddResult{Attempted: len(entityIDs)}
	for _, id := range entityIDs {
		if set[id] {
			result.NotAdded++
			continue
		}
		set[id] = true
		result.Added++
	}
	return result, nil
}

func (f *fakeCollections) Title(_ context.Context, collectionID int64) (string, error) {
	title, ok := f.titles[collectionID]
	if !ok {
		return "", fmt.Errorf("collection %d not found", collectionID)
	}
	return title, nil
}

func ids(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i + 1)
	}
	return out
}

func TestAggregator_NewCollection(t *testing.T) {
	t.Parallel()

	svc := newFakeCollections()
	agg := NewAggregator(svc)

	additions, err := agg.AttachToCollections(context.Background(), ids(10), nil,
		&collections.Spec{Title: "Spring Donors"})
	require.NoError(t, err)
	require.Len(t, additions, 1)

	assert.Equal(t, "Spring Donors", additions[0].Name)
	assert.True(t, additions[0].New)
	assert.Equal(t, 10, additions[0].Added)
	assert.Equal(t, 0, additions[0].NotAdded)
	assert.Empty(t, additions[0].Err)
}

func TestAggregator_RepeatAttachIsIdempotent(t *testing.T) {
	t.Parallel()

	svc := newFakeCollections()
	id, err := svc.Create(context.Background(), collections.Spec{Title: "Existing"})
	require.NoError(t, err)

	agg := NewAggregator(svc)

	first, err := agg.AttachToCollections(context.Background(), ids(10), []int64{id}, nil)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 10, first[0].Added)
	assert.False(t, first[0].New)
	assert.Equal(t, "Existing", first[0].Name)

	second, err := agg.AttachToCollections(context.Background(), ids(10), []int64{id}, nil)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 0, second[0].Added)
	assert.Equal(t, 10, second[0].NotAdded)
}

func TestAggregator_NothingRequested(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(newFakeCollections())

	additions, err := agg.AttachToCollections(context.Background(), ids(5), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, additions)
}

func TestAggregator_RequestedButNoEntities(t *testing.T) {
	t.Parallel()

	svc := newFakeCollections()
	id, err := svc.Create(context.Background(), collections.Spec{Title: "Empty Run"})
	require.NoError(t, err)

	agg := NewAggregator(svc)

	// A requested attach with no imported entities still produces a
	// record, distinct from the nothing-requested nil.
	additions, err := agg.AttachToCollections(context.Background(), nil, []int64{id}, nil)
	require.NoError(t, err)
	require.Len(t, additions, 1)
	assert.Equal(t, 0, additions[0].Added)
	assert.Equal(t, 0, additions[0].NotAdded)
}

func TestAggregator_CreateFailureRecorded(t *testing.T) {
	t.Parallel()

	svc := newFakeCollections()
	existing, err := svc.Create(context.Background(), collections.Spec{Title: "Existing"})
	require.NoError(t, err)
	svc.createErr = fmt.Errorf("title already taken")

	agg := NewAggregator(svc)

	additions, err := agg.AttachToCollections(context.Background(), ids(3), []int64{existing},
		&collections.Spec{Title: "Duplicate"})
	require.NoError(t, err)
	require.Len(t, additions, 2)

	// The failed create is recorded, and the explicit collection still
	// gets its members.
	assert.Equal(t, "Duplicate", additions[0].Name)
	assert.True(t, additions[0].New)
	assert.Contains(t, additions[0].Err, "title already taken")
	assert.Zero(t, additions[0].Added)

	assert.Equal(t, existing, additions[1].CollectionID)
	assert.Equal(t, 3, additions[1].Added)
	assert.Empty(t, additions[1].Err)
}

func TestAggregator_AttachFailureDoesNotStopOthers(t *testing.T) {
	t.Parallel()

	svc := newFakeCollections()
	bad, err := svc.Create(context.Background(), collections.Spec{Title: "Bad"})
	require.NoError(t, err)
	good, err := svc.Create(context.Background(), collections.Spec{Title: "Good"})
	require.NoError(t, err)
	svc.addErr[bad] = fmt.Errorf("membership table locked")

	agg := NewAggregator(svc)

	additions, err := agg.AttachToCollections(context.Background(), ids(4), []int64{bad, good}, nil)
	require.NoError(t, err)
	require.Len(t, additions, 2)

	assert.Contains(t, additions[0].Err, "membership table locked")
	assert.Equal(t, 4, additions[1].Added)
	assert.Empty(t, additions[1].Err)
}

func TestAggregator_NewCollectionFirst(t *testing.T) {
	t.Parallel()

	svc := newFakeCollections()
	a, err := svc.Create(context.Background(), collections.Spec{Title: "A"})
	require.NoError(t, err)
	b, err := svc.Create(context.Background(), collections.Spec{Title: "B"})
	require.NoError(t, err)

	agg := NewAggregator(svc)

	additions, err := agg.AttachToCollections(context.Background(), ids(2), []int64{a, b},
		&collections.Spec{Title: "Fresh"})
	require.NoError(t, err)
	require.Len(t, additions, 3)

	assert.Equal(t, "Fresh", additions[0].Name)
	assert.True(t, additions[0].New)
	assert.Equal(t, a, additions[1].CollectionID)
	assert.Equal(t, b, additions[2].CollectionID)
	assert.False(t, additions[1].New)
	assert.False(t, additions[2].New)
}
