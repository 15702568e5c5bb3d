// Package reindex rebuilds an aliased index from its persistence
// source without a read outage. Records stream into a fresh index; the
// alias flips to it in one atomic step only after every record landed.
package reindex

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nabeel-codes/indexlift/internal/alias"
	"github.com/nabeel-codes/indexlift/internal/cluster"
	lifterrors "github.com/nabeel-codes/indexlift/internal/errors"
	"github.com/nabeel-codes/indexlift/internal/source"
)

// State is the phase a rebuild reached.
type State string

const (
	// StateValidate covers input and alias-resolution checks.
	StateValidate State = "validate"
	// StatePaginate covers source reads and bulk flushes.
	StatePaginate State = "paginate"
	// StateSwap covers the atomic alias flip.
	StateSwap State = "swap"
	// StateCleanup covers removal of the superseded index.
	StateCleanup State = "cleanup"
	// StateDone means the rebuild completed.
	StateDone State = "done"
)

// Outcome reports what a rebuild did. On failure it carries the phase
// the rebuild reached when it stopped.
type Outcome struct {
	Alias     string
	OldIndex  string
	NewIndex  string
	Records   int
	BulkCalls int
	State     State
	Cancelled bool
	Elapsed   time.Duration
}

// Options tunes rebuild behavior.
type Options struct {
	// FlushThreshold is the pending-action count that triggers a bulk
	// flush. Defaults to 100.
	FlushThreshold int
	// PageSize is the records-per-page read from the source.
	// Defaults to 50.
	PageSize int
	// LockDir, when set, adds cross-process locking via lock files.
	LockDir string
}

// Reindexer rebuilds aliased indexes from a persistence source.
type Reindexer struct {
	client    cluster.Client
	resolver  *alias.Resolver
	src       source.PageSource
	logger    *slog.Logger
	threshold int
	pageSize  int
	lockDir   string
	locks     *aliasLocks

	// nowFn stamps successor index names. Overridable in tests.
	nowFn func() time.Time
}

// NewReindexer creates a reindexer. src may be nil; Rebuild rejects it
// so callers get a structured error instead of a panic.
func NewReindexer(client cluster.Client, resolver *alias.Resolver, src source.PageSource, logger *slog.Logger, opts Options) *Reindexer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.FlushThreshold <= 0 {
		opts.FlushThreshold = 100
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}

	return &Reindexer{
		client:    client,
		resolver:  resolver,
		src:       src,
		logger:    logger,
		threshold: opts.FlushThreshold,
		pageSize:  opts.PageSize,
		lockDir:   opts.LockDir,
		locks:     newAliasLocks(),
		nowFn:     time.Now,
	}
}

// Rebuild streams every record of the alias's collection into a fresh
// index, atomically swaps the alias to it, and deletes the superseded
// index. The alias keeps serving the old index until the swap; a
// failure at any earlier point leaves the old binding untouched.
func (r *Reindexer) Rebuild(ctx context.Context, aliasName string) (*Outcome, error) {
	started := r.nowFn()
	outcome := &Outcome{Alias: aliasName, State: StateValidate}

	if r.src == nil {
		return outcome, lifterrors.New(lifterrors.ErrCodeNilSource,
			"rebuild requires a persistence source", nil)
	}

	if !r.locks.tryAcquire(aliasName) {
		return outcome, lifterrors.ConflictError(
			fmt.Sprintf("a rebuild of %s is already in progress", aliasName))
	}
	defer r.locks.release(aliasName)

	if r.lockDir != "" {
		fl := newFileLock(r.lockDir, aliasName)
		if err := fl.tryAcquire(); err != nil {
			return outcome, err
		}
		defer func() {
			if err := fl.release(); err != nil {
				r.logger.Warn("failed to release rebuild lock file",
					slog.String("alias", aliasName),
					slog.String("error", err.Error()))
			}
		}()
	}

	// Resolve against live bindings, not a stale cache entry.
	r.resolver.Invalidate(aliasName)
	oldIndex, err := r.resolver.Resolve(ctx, aliasName)
	if err != nil {
		return outcome, err
	}
	outcome.OldIndex = oldIndex

	newIndex := oldIndex + "_" + strconv.FormatInt(r.nowFn().UnixMilli(), 10)
	outcome.NewIndex = newIndex

	r.logger.Info("rebuild started",
		slog.String("alias", aliasName),
		slog.String("old_index", oldIndex),
		slog.String("new_index", newIndex))

	outcome.State = StatePaginate
	if err := r.paginate(ctx, aliasName, newIndex, outcome); err != nil {
		if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			outcome.Cancelled = true
			outcome.Elapsed = r.nowFn().Sub(started)
			r.logger.Warn("rebuild cancelled, alias unchanged",
				slog.String("alias", aliasName),
				slog.Int("records", outcome.Records))
			return outcome, lifterrors.Wrap(lifterrors.ErrCodeOperationCancelled, err)
		}
		outcome.Elapsed = r.nowFn().Sub(started)
		return outcome, err
	}

	// Nothing landed in the successor: keep the alias on the old index
	// rather than swap to an empty or never-created index.
	if outcome.Records == 0 {
		outcome.State = StateDone
		outcome.Elapsed = r.nowFn().Sub(started)
		if outcome.BulkCalls > 0 {
			// Every flushed document was rejected. The first flush
			// auto-created the successor; drop it so retries start clean.
			if err := r.client.DeleteIndex(ctx, newIndex); err != nil {
				r.logger.Debug("failed to remove empty successor index",
					slog.String("index", newIndex),
					slog.String("error", err.Error()))
			}
			r.logger.Warn("rebuild indexed no documents, alias unchanged",
				slog.String("alias", aliasName),
				slog.Int("bulk_calls", outcome.BulkCalls))
		} else {
			r.logger.Info("rebuild found no records, alias unchanged",
				slog.String("alias", aliasName))
		}
		return outcome, nil
	}

	outcome.State = StateSwap
	if err := r.client.MutateAliases(ctx, []cluster.AliasChange{
		{Op: cluster.AliasAdd, Alias: aliasName, Index: newIndex},
		{Op: cluster.AliasRemove, Alias: aliasName, Index: oldIndex},
	}); err != nil {
		outcome.Elapsed = r.nowFn().Sub(started)
		return outcome, err
	}
	r.resolver.Invalidate(aliasName)

	outcome.State = StateCleanup
	if err := r.client.DeleteIndex(ctx, oldIndex); err != nil {
		// The swap already succeeded; a leftover index is log-worthy
		// but not a rebuild failure.
		r.logger.Warn("failed to delete superseded index",
			slog.String("index", oldIndex),
			slog.String("error", err.Error()))
	}

	// Sanity-check the successor when the engine can answer: a count
	// drifting from what was indexed points at rejected upserts.
	if insp, ok := r.client.(cluster.Inspector); ok {
		if docs, err := insp.DocCount(newIndex); err == nil && docs != uint64(outcome.Records) {
			r.logger.Warn("successor document count differs from records indexed",
				slog.String("index", newIndex),
				slog.Uint64("docs", docs),
				slog.Int("records", outcome.Records))
		}
	}

	outcome.State = StateDone
	outcome.Elapsed = r.nowFn().Sub(started)
	r.logger.Info("rebuild finished",
		slog.String("alias", aliasName),
		slog.String("index", newIndex),
		slog.Int("records", outcome.Records),
		slog.Int("bulk_calls", outcome.BulkCalls),
		slog.Duration("elapsed", outcome.Elapsed))
	return outcome, nil
}

// paginate streams source pages into bulk flushes against newIndex.
// The producer reads pages and fills the batch; a single flusher
// writes drained batches in order so the last partial flush always
// lands after the full ones.
func (r *Reindexer) paginate(ctx context.Context, collection, newIndex string, outcome *Outcome) error {
	flushCh := make(chan []cluster.BulkAction, 1)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(flushCh)

		batch := NewBatch(newIndex, r.threshold)
		cursor := ""
		for {
			page, err := r.src.ReadPage(ctx, collection, cursor, r.pageSize)
			if err != nil {
				return err
			}
			if len(page) == 0 {
				break
			}

			last := page[len(page)-1].ID
			if last <= cursor {
				return lifterrors.New(lifterrors.ErrCodeCursorStalled,
					fmt.Sprintf("source cursor for %s stalled at %q", collection, cursor), nil)
			}

			for _, rec := range page {
				batch.Add(rec)
				if batch.Full() {
					select {
					case flushCh <- batch.Drain():
					case <-ctx.Done():
						return ctx.Err()
					}
				}
			}
			cursor = last
		}

		if batch.Len() > 0 {
			select {
			case flushCh <- batch.Drain():
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	g.Go(func() error {
		for actions := range flushCh {
			res, err := r.client.BulkWrite(ctx, actions)
			if err != nil {
				return err
			}
			if res.ItemFailures > 0 {
				// Per-document rejections do not abort the rebuild;
				// they are reported so operators can reconcile.
				partial := lifterrors.New(lifterrors.ErrCodePartialBatch,
					fmt.Sprintf("bulk flush rejected %d of %d documents",
						res.ItemFailures, len(actions)), nil)
				r.logger.Warn("partial bulk flush",
					slog.String("index", newIndex),
					slog.String("error", partial.Error()))
			}

			outcome.Records += res.Accepted
			outcome.BulkCalls++
			r.logger.Debug("bulk flush",
				slog.String("index", newIndex),
				slog.Int("actions", len(actions)),
				slog.Int("total_records", outcome.Records))
		}
		return nil
	})

	return g.Wait()
}
