package signal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *DuplicateIndex {
	t.Helper()
	idx, err := OpenDuplicateIndex(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestDuplicateIndexFirstSubmissionIsClean(t *testing.T) {
	t.Parallel()

	idx := newTestIndex(t)
	got, err := idx.FindSimilar(context.Background(), "sub-1", "hash-a")
	require.NoError(t, err)
	assert.False(t, got.IsDuplicate)
	assert.Empty(t, got.SimilarSubmissions)
	assert.NotNil(t, got.SimilarSubmissions)
	assert.Zero(t, got.SimilarityScore)
}

func TestDuplicateIndexMatchesPriorHash(t *testing.T) {
	t.Parallel()

	idx := newTestIndex(t)
	ctx := context.Background()

	_, err := idx.FindSimilar(ctx, "sub-1", "hash-a")
	require.NoError(t, err)

	got, err := idx.FindSimilar(ctx, "sub-2", "hash-a")
	require.NoError(t, err)
	assert.True(t, got.IsDuplicate)
	assert.Equal(t, []string{"sub-1"}, got.SimilarSubmissions)
	assert.Equal(t, 1.0, got.SimilarityScore)
}

func TestDuplicateIndexDistinctHashesDoNotMatch(t *testing.T) {
	t.Parallel()

	idx := newTestIndex(t)
	ctx := context.Background()

	_, err := idx.FindSimilar(ctx, "sub-1", "hash-a")
	require.NoError(t, err)

	got, err := idx.FindSimilar(ctx, "sub-2", "hash-b")
	require.NoError(t, err)
	assert.False(t, got.IsDuplicate)
}

func TestDuplicateIndexReanalysisDoesNotMatchItself(t *testing.T) {
	t.Parallel()

	idx := newTestIndex(t)
	ctx := context.Background()

	_, err := idx.FindSimilar(ctx, "sub-1", "hash-a")
	require.NoError(t, err)

	got, err := idx.FindSimilar(ctx, "sub-1", "hash-a")
	require.NoError(t, err)
	assert.False(t, got.IsDuplicate)
}

func TestDuplicateIndexEmptyHashNotRecorded(t *testing.T) {
	t.Parallel()

	idx := newTestIndex(t)
	ctx := context.Background()

	got, err := idx.FindSimilar(ctx, "sub-1", "")
	require.NoError(t, err)
	assert.False(t, got.IsDuplicate)

	// An unrecorded empty hash must not make later submissions match.
	got, err = idx.FindSimilar(ctx, "sub-2", "")
	require.NoError(t, err)
	assert.False(t, got.IsDuplicate)
}

func TestDuplicateStubNeverFlags(t *testing.T) {
	t.Parallel()

	stub := NewDuplicateStub(nil)
	got, err := stub.FindSimilar(context.Background(), "sub-1", "hash-a")
	require.NoError(t, err)
	assert.False(t, got.IsDuplicate)
	assert.NotNil(t, got.SimilarSubmissions)
	assert.Empty(t, got.SimilarSubmissions)
	assert.Zero(t, got.SimilarityScore)
}
