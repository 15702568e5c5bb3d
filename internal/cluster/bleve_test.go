package cluster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lifterrors "github.com/nabeel-codes/indexlift/internal/errors"
	"github.com/nabeel-codes/indexlift/internal/schema"
)

var (
	_ Client    = (*EmbeddedCluster)(nil)
	_ Inspector = (*EmbeddedCluster)(nil)
)

func newTestCluster(t *testing.T) *EmbeddedCluster {
	t.Helper()
	c, err := NewEmbedded("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCreateIndex(t *testing.T) {
	ctx := context.Background()
	c := newTestCluster(t)

	err := c.CreateIndex(ctx, "users1", DefaultSettings(), schema.Default())
	require.NoError(t, err)

	exists, err := c.IndexExists(ctx, "users1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCreateIndex_AlreadyExists(t *testing.T) {
	ctx := context.Background()
	c := newTestCluster(t)

	require.NoError(t, c.CreateIndex(ctx, "users1", DefaultSettings(), schema.Default()))

	err := c.CreateIndex(ctx, "users1", DefaultSettings(), schema.Default())
	require.Error(t, err)
	assert.Equal(t, lifterrors.ErrCodeIndexExists, lifterrors.GetCode(err))
}

func TestIndexExists_AliasCountsAsExisting(t *testing.T) {
	ctx := context.Background()
	c := newTestCluster(t)

	require.NoError(t, c.CreateIndex(ctx, "users1", DefaultSettings(), schema.Default()))
	require.NoError(t, c.MutateAliases(ctx, []AliasChange{
		{Op: AliasAdd, Alias: "users", Index: "users1"},
	}))

	exists, err := c.IndexExists(ctx, "users")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = c.IndexExists(ctx, "ghosts")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDeleteIndex_DropsAliasBindings(t *testing.T) {
	ctx := context.Background()
	c := newTestCluster(t)

	require.NoError(t, c.CreateIndex(ctx, "users1", DefaultSettings(), schema.Default()))
	require.NoError(t, c.MutateAliases(ctx, []AliasChange{
		{Op: AliasAdd, Alias: "users", Index: "users1"},
	}))

	require.NoError(t, c.DeleteIndex(ctx, "users1"))

	targets, err := c.AliasTargets(ctx, "users")
	require.NoError(t, err)
	assert.Empty(t, targets)

	exists, err := c.IndexExists(ctx, "users")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDeleteIndex_Missing(t *testing.T) {
	c := newTestCluster(t)

	err := c.DeleteIndex(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, lifterrors.ErrCodeAliasNotFound, lifterrors.GetCode(err))
}

func TestMutateAliases_AtomicSwap(t *testing.T) {
	ctx := context.Background()
	c := newTestCluster(t)

	require.NoError(t, c.CreateIndex(ctx, "users1", DefaultSettings(), schema.Default()))
	require.NoError(t, c.CreateIndex(ctx, "users_175", DefaultSettings(), schema.Default()))
	require.NoError(t, c.MutateAliases(ctx, []AliasChange{
		{Op: AliasAdd, Alias: "users", Index: "users1"},
	}))

	// Add new and remove old in one step
	require.NoError(t, c.MutateAliases(ctx, []AliasChange{
		{Op: AliasAdd, Alias: "users", Index: "users_175"},
		{Op: AliasRemove, Alias: "users", Index: "users1"},
	}))

	targets, err := c.AliasTargets(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"users_175"}, targets)
}

func TestMutateAliases_InvalidChangeAppliesNothing(t *testing.T) {
	ctx := context.Background()
	c := newTestCluster(t)

	require.NoError(t, c.CreateIndex(ctx, "users1", DefaultSettings(), schema.Default()))

	err := c.MutateAliases(ctx, []AliasChange{
		{Op: AliasAdd, Alias: "users", Index: "users1"},
		{Op: AliasAdd, Alias: "users", Index: "missing"},
	})
	require.Error(t, err)

	targets, err := c.AliasTargets(ctx, "users")
	require.NoError(t, err)
	assert.Empty(t, targets, "failed mutation must not apply partially")
}

func TestMutateAliases_AliasCollidesWithIndex(t *testing.T) {
	ctx := context.Background()
	c := newTestCluster(t)

	require.NoError(t, c.CreateIndex(ctx, "users1", DefaultSettings(), schema.Default()))
	require.NoError(t, c.CreateIndex(ctx, "users", DefaultSettings(), schema.Default()))

	err := c.MutateAliases(ctx, []AliasChange{
		{Op: AliasAdd, Alias: "users", Index: "users1"},
	})
	require.Error(t, err)
	assert.Equal(t, lifterrors.ErrCodeIndexExists, lifterrors.GetCode(err))
}

func TestBulkWrite(t *testing.T) {
	ctx := context.Background()
	c := newTestCluster(t)

	require.NoError(t, c.CreateIndex(ctx, "users1", DefaultSettings(), schema.Default()))

	res, err := c.BulkWrite(ctx, []BulkAction{
		{Index: "users1", Type: "user", ID: "u1", Fields: map[string]any{"email": "a@example.com"}},
		{Index: "users1", Type: "user", ID: "u2", Fields: map[string]any{"email": "b@example.com"}},
		{Index: "users1", Type: "tag", ID: "t1", Fields: map[string]any{"tag": "golang"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Accepted)
	assert.Equal(t, 0, res.ItemFailures)

	count, err := c.DocCount("users1")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	users, err := c.CountByType(ctx, "users1", "user")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), users)

	found, err := c.HasDocument(ctx, "users1", "u1")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestBulkWrite_CreatesMissingTarget(t *testing.T) {
	ctx := context.Background()
	c := newTestCluster(t)

	res, err := c.BulkWrite(ctx, []BulkAction{
		{Index: "users_fresh", Type: "user", ID: "u1", Fields: map[string]any{"email": "a@example.com"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Accepted)

	exists, err := c.IndexExists(ctx, "users_fresh")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestBulkWrite_Empty(t *testing.T) {
	c := newTestCluster(t)

	res, err := c.BulkWrite(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, BulkResult{}, res)
}

func TestOptimize(t *testing.T) {
	ctx := context.Background()
	c := newTestCluster(t)

	require.NoError(t, c.CreateIndex(ctx, "users1", DefaultSettings(), schema.Default()))
	require.NoError(t, c.MutateAliases(ctx, []AliasChange{
		{Op: AliasAdd, Alias: "users", Index: "users1"},
	}))

	res, err := c.Optimize(ctx, "users")
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, 5, res.TotalShards)
	assert.Equal(t, 5, res.SuccessfulShards)

	_, err = c.Optimize(ctx, "missing")
	require.Error(t, err)
	assert.Equal(t, lifterrors.ErrCodeAliasNotFound, lifterrors.GetCode(err))
}

func TestClusterInfo(t *testing.T) {
	ctx := context.Background()
	c := newTestCluster(t)

	require.NoError(t, c.CreateIndex(ctx, "users1", DefaultSettings(), schema.Default()))
	require.NoError(t, c.MutateAliases(ctx, []AliasChange{
		{Op: AliasAdd, Alias: "users", Index: "users1"},
	}))
	_, err := c.BulkWrite(ctx, []BulkAction{
		{Index: "users1", Type: "user", ID: "u1", Fields: map[string]any{"email": "a@example.com"}},
	})
	require.NoError(t, err)

	info, err := c.ClusterInfo(ctx)
	require.NoError(t, err)
	require.Len(t, info.Indexes, 1)
	assert.Equal(t, "users1", info.Indexes[0].Name)
	assert.Equal(t, uint64(1), info.Indexes[0].Docs)
	assert.Equal(t, []string{"users"}, info.Indexes[0].Aliases)
}

func TestPersistence_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	c, err := NewEmbedded(dir, nil)
	require.NoError(t, err)

	require.NoError(t, c.CreateIndex(ctx, "users1", DefaultSettings(), schema.Default()))
	require.NoError(t, c.MutateAliases(ctx, []AliasChange{
		{Op: AliasAdd, Alias: "users", Index: "users1"},
	}))
	_, err = c.BulkWrite(ctx, []BulkAction{
		{Index: "users1", Type: "user", ID: "u1", Fields: map[string]any{"email": "a@example.com"}},
	})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	reopened, err := NewEmbedded(dir, nil)
	require.NoError(t, err)
	defer reopened.Close()

	targets, err := reopened.AliasTargets(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"users1"}, targets)

	count, err := reopened.DocCount("users1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestContextCancellation(t *testing.T) {
	c := newTestCluster(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.IndexExists(ctx, "users")
	require.Error(t, err)
	assert.Equal(t, lifterrors.ErrCodeClusterTimeout, lifterrors.GetCode(err))
}
