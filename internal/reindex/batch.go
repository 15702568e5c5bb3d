package reindex

import (
	"github.com/nabeel-codes/indexlift/internal/cluster"
	"github.com/nabeel-codes/indexlift/internal/source"
)

// Batch accumulates bulk actions destined for one target index until
// the flush threshold is reached.
type Batch struct {
	target    string
	threshold int
	actions   []cluster.BulkAction
}

// NewBatch creates a batch for the given target index.
func NewBatch(target string, threshold int) *Batch {
	return &Batch{
		target:    target,
		threshold: threshold,
		actions:   make([]cluster.BulkAction, 0, threshold),
	}
}

// Add appends a record to the batch as an index action.
func (b *Batch) Add(rec source.Record) {
	b.actions = append(b.actions, cluster.BulkAction{
		Index:  b.target,
		Type:   rec.Type,
		ID:     rec.ID,
		Fields: rec.Fields,
	})
}

// Full reports whether the batch has reached the flush threshold.
func (b *Batch) Full() bool {
	return len(b.actions) >= b.threshold
}

// Len returns the number of pending actions.
func (b *Batch) Len() int {
	return len(b.actions)
}

// Drain returns the pending actions and resets the batch.
func (b *Batch) Drain() []cluster.BulkAction {
	out := b.actions
	b.actions = make([]cluster.BulkAction, 0, b.threshold)
	return out
}
