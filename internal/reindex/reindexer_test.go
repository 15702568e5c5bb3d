package reindex

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nabeel-codes/indexlift/internal/alias"
	"github.com/nabeel-codes/indexlift/internal/cluster"
	lifterrors "github.com/nabeel-codes/indexlift/internal/errors"
	"github.com/nabeel-codes/indexlift/internal/schema"
	"github.com/nabeel-codes/indexlift/internal/source"
)

type fixture struct {
	cluster  *cluster.EmbeddedCluster
	resolver *alias.Resolver
	store    *source.SQLiteStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	c, err := cluster.NewEmbedded("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	r, err := alias.NewResolver(c, nil)
	require.NoError(t, err)

	s, err := source.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return &fixture{cluster: c, resolver: r, store: s}
}

func (f *fixture) bindAlias(t *testing.T, aliasName, index string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.cluster.CreateIndex(ctx, index, cluster.DefaultSettings(), schema.Default()))
	require.NoError(t, f.cluster.MutateAliases(ctx, []cluster.AliasChange{
		{Op: cluster.AliasAdd, Alias: aliasName, Index: index},
	}))
}

func (f *fixture) seed(t *testing.T, collection string, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		rec := source.Record{
			ID:   fmt.Sprintf("rec-%04d", i),
			Type: "user",
			Fields: map[string]any{
				"email": fmt.Sprintf("user%d@example.com", i),
			},
		}
		require.NoError(t, f.store.Put(ctx, collection, rec))
	}
}

func newTestReindexer(f *fixture, src source.PageSource, opts Options) *Reindexer {
	r := NewReindexer(f.cluster, f.resolver, src, nil, opts)
	r.nowFn = func() time.Time { return time.UnixMilli(1700000000000) }
	return r
}

func TestRebuild_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.bindAlias(t, "users", "users1")
	f.seed(t, "users", 250)

	r := newTestReindexer(f, f.store, Options{FlushThreshold: 100, PageSize: 50})

	outcome, err := r.Rebuild(ctx, "users")
	require.NoError(t, err)

	assert.Equal(t, StateDone, outcome.State)
	assert.Equal(t, "users1", outcome.OldIndex)
	assert.Equal(t, "users1_1700000000000", outcome.NewIndex)
	assert.Equal(t, 250, outcome.Records)
	assert.Equal(t, 3, outcome.BulkCalls, "250 records at threshold 100 is 100+100+50")
	assert.False(t, outcome.Cancelled)

	// Alias now serves the successor
	targets, err := f.cluster.AliasTargets(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"users1_1700000000000"}, targets)

	// Superseded index is gone
	exists, err := f.cluster.IndexExists(ctx, "users1")
	require.NoError(t, err)
	assert.False(t, exists)

	count, err := f.cluster.DocCount("users1_1700000000000")
	require.NoError(t, err)
	assert.Equal(t, uint64(250), count)
}

func TestRebuild_ExactThresholdMultiple(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.bindAlias(t, "users", "users1")
	f.seed(t, "users", 200)

	r := newTestReindexer(f, f.store, Options{FlushThreshold: 100, PageSize: 50})

	outcome, err := r.Rebuild(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, 200, outcome.Records)
	assert.Equal(t, 2, outcome.BulkCalls)
}

func TestRebuild_EmptySourceLeavesAliasUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.bindAlias(t, "users", "users1")

	r := newTestReindexer(f, f.store, Options{})

	outcome, err := r.Rebuild(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, StateDone, outcome.State)
	assert.Equal(t, 0, outcome.Records)
	assert.Equal(t, 0, outcome.BulkCalls)

	targets, err := f.cluster.AliasTargets(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"users1"}, targets)
}

func TestRebuild_NilSource(t *testing.T) {
	f := newFixture(t)

	r := NewReindexer(f.cluster, f.resolver, nil, nil, Options{})

	_, err := r.Rebuild(context.Background(), "users")
	require.Error(t, err)
	assert.Equal(t, lifterrors.ErrCodeNilSource, lifterrors.GetCode(err))
}

func TestRebuild_UnknownAlias(t *testing.T) {
	f := newFixture(t)

	r := newTestReindexer(f, f.store, Options{})

	_, err := r.Rebuild(context.Background(), "ghosts")
	require.Error(t, err)
	assert.Equal(t, lifterrors.ErrCodeAliasNotFound, lifterrors.GetCode(err))
}

func TestRebuild_AmbiguousAliasAbortsBeforeWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.bindAlias(t, "users", "users1")
	require.NoError(t, f.cluster.CreateIndex(ctx, "users2", cluster.DefaultSettings(), schema.Default()))
	require.NoError(t, f.cluster.MutateAliases(ctx, []cluster.AliasChange{
		{Op: cluster.AliasAdd, Alias: "users", Index: "users2"},
	}))
	f.seed(t, "users", 10)

	r := newTestReindexer(f, f.store, Options{})

	outcome, err := r.Rebuild(ctx, "users")
	require.Error(t, err)
	assert.Equal(t, lifterrors.ErrCodeAliasAmbiguous, lifterrors.GetCode(err))
	assert.Equal(t, StateValidate, outcome.State)
	assert.Equal(t, 0, outcome.Records)
}

// failingSource serves one good page then fails.
type failingSource struct {
	pages int
}

func (s *failingSource) ReadPage(ctx context.Context, collection, afterID string, limit int) ([]source.Record, error) {
	if s.pages > 0 {
		return nil, lifterrors.New(lifterrors.ErrCodeSourceRead, "backend went away", nil)
	}
	s.pages++
	return []source.Record{
		{ID: "rec-0001", Type: "user", Fields: map[string]any{"email": "a@example.com"}},
	}, nil
}

func TestRebuild_SourceFailureNeverSwaps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.bindAlias(t, "users", "users1")

	r := newTestReindexer(f, &failingSource{}, Options{})

	outcome, err := r.Rebuild(ctx, "users")
	require.Error(t, err)
	assert.Equal(t, lifterrors.ErrCodeSourceRead, lifterrors.GetCode(err))
	assert.Equal(t, StatePaginate, outcome.State)

	targets, err := f.cluster.AliasTargets(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"users1"}, targets, "failed rebuild must leave the alias on the old index")
}

// stalledSource returns the same page forever.
type stalledSource struct{}

func (s *stalledSource) ReadPage(ctx context.Context, collection, afterID string, limit int) ([]source.Record, error) {
	return []source.Record{
		{ID: "rec-0001", Type: "user", Fields: map[string]any{"email": "a@example.com"}},
	}, nil
}

func TestRebuild_StalledCursor(t *testing.T) {
	f := newFixture(t)

	f.bindAlias(t, "users", "users1")

	r := newTestReindexer(f, &stalledSource{}, Options{})

	_, err := r.Rebuild(context.Background(), "users")
	require.Error(t, err)
	assert.Equal(t, lifterrors.ErrCodeCursorStalled, lifterrors.GetCode(err))
}

// blockingSource signals when reading starts, then blocks until
// released or the context ends.
type blockingSource struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingSource() *blockingSource {
	return &blockingSource{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (s *blockingSource) ReadPage(ctx context.Context, collection, afterID string, limit int) ([]source.Record, error) {
	s.once.Do(func() { close(s.started) })
	select {
	case <-s.release:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestRebuild_CancellationLeavesAliasUntouched(t *testing.T) {
	f := newFixture(t)

	f.bindAlias(t, "users", "users1")

	src := newBlockingSource()
	r := newTestReindexer(f, src, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-src.started
		cancel()
	}()

	outcome, err := r.Rebuild(ctx, "users")
	require.Error(t, err)
	assert.True(t, outcome.Cancelled)
	assert.Equal(t, lifterrors.ErrCodeOperationCancelled, lifterrors.GetCode(err))

	targets, err := f.cluster.AliasTargets(context.Background(), "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"users1"}, targets)
}

func TestRebuild_ConcurrentRebuildRejected(t *testing.T) {
	f := newFixture(t)

	f.bindAlias(t, "users", "users1")

	src := newBlockingSource()
	r := newTestReindexer(f, src, Options{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = r.Rebuild(context.Background(), "users")
	}()

	<-src.started

	_, err := r.Rebuild(context.Background(), "users")
	require.Error(t, err)
	assert.Equal(t, lifterrors.ErrCodeRebuildInProgress, lifterrors.GetCode(err))

	close(src.release)
	<-done
}

func TestRebuild_FileLockConflict(t *testing.T) {
	f := newFixture(t)
	lockDir := t.TempDir()

	f.bindAlias(t, "users", "users1")
	f.seed(t, "users", 5)

	held := newFileLock(lockDir, "users")
	require.NoError(t, held.tryAcquire())
	defer held.release()

	r := newTestReindexer(f, f.store, Options{LockDir: lockDir})

	_, err := r.Rebuild(context.Background(), "users")
	require.Error(t, err)
	assert.Equal(t, lifterrors.ErrCodeRebuildInProgress, lifterrors.GetCode(err))
}

func TestBatch(t *testing.T) {
	b := NewBatch("users_new", 3)

	for i := 0; i < 2; i++ {
		b.Add(source.Record{ID: fmt.Sprintf("r%d", i), Type: "user"})
	}
	assert.False(t, b.Full())
	assert.Equal(t, 2, b.Len())

	b.Add(source.Record{ID: "r2", Type: "user"})
	assert.True(t, b.Full())

	actions := b.Drain()
	require.Len(t, actions, 3)
	assert.Equal(t, "users_new", actions[0].Index)
	assert.Equal(t, 0, b.Len())
}

// flakySource fails one designated call, then serves cleanly forever.
type flakySource struct {
	inner      source.PageSource
	calls      int
	failOnCall int
	failed     bool
}

func (s *flakySource) ReadPage(ctx context.Context, collection, afterID string, limit int) ([]source.Record, error) {
	s.calls++
	if !s.failed && s.calls == s.failOnCall {
		s.failed = true
		return nil, lifterrors.New(lifterrors.ErrCodeSourceRead, "transient read failure", nil)
	}
	return s.inner.ReadPage(ctx, collection, afterID, limit)
}

func TestRebuild_RerunAfterFailureRoundTrips(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.bindAlias(t, "users", "users1")
	for i := 0; i < 120; i++ {
		recType := "user"
		if i%2 == 1 {
			recType = "tag"
		}
		require.NoError(t, f.store.Put(ctx, "users", source.Record{
			ID:   fmt.Sprintf("rec-%04d", i),
			Type: recType,
			Fields: map[string]any{
				"email": fmt.Sprintf("user%d@example.com", i),
			},
		}))
	}

	src := &flakySource{inner: f.store, failOnCall: 2}
	r := newTestReindexer(f, src, Options{FlushThreshold: 30, PageSize: 50})

	// First attempt dies mid-pagination after some flushes landed
	outcome, err := r.Rebuild(ctx, "users")
	require.Error(t, err)
	assert.Equal(t, lifterrors.ErrCodeSourceRead, lifterrors.GetCode(err))
	assert.Greater(t, outcome.BulkCalls, 0, "some flushes should land before the failure")

	targets, err := f.cluster.AliasTargets(ctx, "users")
	require.NoError(t, err)
	require.Equal(t, []string{"users1"}, targets)

	// Re-running from scratch must be equivalent to an uninterrupted
	// run: every write is an upsert keyed by record id, so replaying
	// the records already indexed by the failed attempt is harmless.
	outcome, err = r.Rebuild(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, StateDone, outcome.State)
	assert.Equal(t, 120, outcome.Records)

	targets, err = f.cluster.AliasTargets(ctx, "users")
	require.NoError(t, err)
	require.Equal(t, []string{outcome.NewIndex}, targets)

	count, err := f.cluster.DocCount(outcome.NewIndex)
	require.NoError(t, err)
	assert.Equal(t, uint64(120), count)

	// Every record survives under its original type
	users, err := f.cluster.CountByType(ctx, outcome.NewIndex, "user")
	require.NoError(t, err)
	assert.Equal(t, uint64(60), users)

	tags, err := f.cluster.CountByType(ctx, outcome.NewIndex, "tag")
	require.NoError(t, err)
	assert.Equal(t, uint64(60), tags)

	// And under its original id
	for _, id := range []string{"rec-0000", "rec-0001", "rec-0077", "rec-0119"} {
		found, err := f.cluster.HasDocument(ctx, outcome.NewIndex, id)
		require.NoError(t, err)
		assert.True(t, found, "record %s must be present after the rebuild", id)
	}
}

// rejectingCluster mimics an engine that accepts bulk requests at the
// transport level but rejects every document in them.
type rejectingCluster struct {
	*cluster.EmbeddedCluster
}

func (c *rejectingCluster) BulkWrite(ctx context.Context, actions []cluster.BulkAction) (cluster.BulkResult, error) {
	if len(actions) == 0 {
		return cluster.BulkResult{}, nil
	}
	// The engine still auto-creates the target on first write
	_ = c.EmbeddedCluster.CreateIndex(ctx, actions[0].Index, cluster.DefaultSettings(), schema.Default())
	return cluster.BulkResult{ItemFailures: len(actions)}, nil
}

func TestRebuild_AllDocumentsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.bindAlias(t, "users", "users1")
	f.seed(t, "users", 10)

	rc := &rejectingCluster{f.cluster}
	resolver, err := alias.NewResolver(rc, nil)
	require.NoError(t, err)

	r := NewReindexer(rc, resolver, f.store, nil, Options{FlushThreshold: 5})
	r.nowFn = func() time.Time { return time.UnixMilli(1700000000000) }

	outcome, err := r.Rebuild(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, StateDone, outcome.State)
	assert.Equal(t, 0, outcome.Records)
	assert.Equal(t, 2, outcome.BulkCalls)

	// Alias untouched, and the empty successor does not linger
	targets, err := f.cluster.AliasTargets(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"users1"}, targets)

	exists, err := f.cluster.IndexExists(ctx, "users1_1700000000000")
	require.NoError(t, err)
	assert.False(t, exists, "rejected-everything rebuild must not leave an empty successor")
}
