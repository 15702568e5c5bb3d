// Package cluster defines the search-cluster contract consumed by the
// alias, indices, and reindex packages, plus an embedded implementation
// backed by bleve.
package cluster

import (
	"context"

	"github.com/nabeel-codes/indexlift/internal/schema"
)

// IndexSettings carries the physical settings applied at index creation.
type IndexSettings struct {
	Shards             int    `json:"shards"`
	Replicas           int    `json:"replicas"`
	AutoExpandReplicas string `json:"auto_expand_replicas"`
}

// DefaultSettings returns the settings applied to indexes created
// without explicit overrides.
func DefaultSettings() IndexSettings {
	return IndexSettings{
		Shards:             5,
		Replicas:           0,
		AutoExpandReplicas: "0-all",
	}
}

// AliasOp is the kind of change in an alias mutation.
type AliasOp string

const (
	// AliasAdd binds an alias to a concrete index.
	AliasAdd AliasOp = "add"
	// AliasRemove unbinds an alias from a concrete index.
	AliasRemove AliasOp = "remove"
)

// AliasChange is one step of an alias mutation. Changes submitted
// together to MutateAliases are applied atomically.
type AliasChange struct {
	Op    AliasOp
	Alias string
	Index string
}

// BulkAction is a single document write destined for a concrete index.
type BulkAction struct {
	// Index is the concrete index the document is written to.
	Index string
	// Type is the record type, stored alongside the document fields.
	Type string
	// ID is the document identifier.
	ID string
	// Fields holds the document body.
	Fields map[string]any
}

// BulkResult reports the outcome of a bulk write.
type BulkResult struct {
	// Accepted is the number of actions written successfully.
	Accepted int
	// ItemFailures is the number of actions rejected per-document.
	ItemFailures int
}

// OptimizeResult reports shard-level outcome of an index optimization.
type OptimizeResult struct {
	TotalShards      int
	SuccessfulShards int
	FailedShards     int
}

// Succeeded reports whether the optimization completed on every shard.
func (r OptimizeResult) Succeeded() bool {
	return r.FailedShards == 0
}

// IndexInfo describes one index in ClusterInfo output.
type IndexInfo struct {
	Name    string   `json:"name"`
	Docs    uint64   `json:"docs"`
	Aliases []string `json:"aliases,omitempty"`
}

// Info is a snapshot of cluster metadata.
type Info struct {
	Name    string      `json:"name"`
	Indexes []IndexInfo `json:"indexes"`
}

// Client is the operation surface indexlift requires from a search
// cluster. The embedded bleve cluster implements it; a remote cluster
// adapter can replace it without touching the callers.
type Client interface {
	// IndexExists reports whether name resolves to a concrete index or
	// to an alias with at least one target.
	IndexExists(ctx context.Context, name string) (bool, error)

	// CreateIndex creates a concrete index with the given settings and
	// field mapping. Creating an existing index is an error.
	CreateIndex(ctx context.Context, name string, settings IndexSettings, mapping schema.Mapping) error

	// DeleteIndex removes a concrete index and any alias bindings
	// pointing at it.
	DeleteIndex(ctx context.Context, name string) error

	// AliasTargets returns the concrete indexes bound to alias, sorted.
	AliasTargets(ctx context.Context, alias string) ([]string, error)

	// MutateAliases applies the given changes as one atomic step. If
	// any change is invalid none are applied.
	MutateAliases(ctx context.Context, changes []AliasChange) error

	// BulkWrite indexes the given actions, grouped by target index.
	BulkWrite(ctx context.Context, actions []BulkAction) (BulkResult, error)

	// Optimize compacts the index (or every target of an alias) and
	// reports per-shard outcome.
	Optimize(ctx context.Context, name string) (OptimizeResult, error)

	// ClusterInfo returns cluster metadata for diagnostics.
	ClusterInfo(ctx context.Context) (Info, error)

	// Close releases cluster resources.
	Close() error
}

// Inspector is the optional verification surface a cluster may offer
// beyond Client. Rebuilds use it to cross-check the successor index;
// remote adapters without cheap document lookups can skip it.
type Inspector interface {
	// DocCount returns the number of documents in a concrete index.
	DocCount(name string) (uint64, error)

	// HasDocument reports whether the concrete index holds the
	// document with the given id.
	HasDocument(ctx context.Context, name, id string) (bool, error)

	// CountByType counts documents of one record type in an index.
	CountByType(ctx context.Context, name, recordType string) (uint64, error)
}
