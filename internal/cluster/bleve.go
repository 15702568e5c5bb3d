package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"

	lifterrors "github.com/nabeel-codes/indexlift/internal/errors"
	"github.com/nabeel-codes/indexlift/internal/schema"
)

const (
	// typeField is the stored field carrying the record type.
	typeField = "_type"
	// stateFile persists alias bindings and index settings under the
	// data directory.
	stateFile = "aliases.json"
)

// clusterState is the on-disk shape of alias bindings and settings.
type clusterState struct {
	Aliases  map[string][]string      `json:"aliases"`
	Settings map[string]IndexSettings `json:"settings"`
}

// EmbeddedCluster is a bleve-backed Client. With a data directory it
// persists indexes and alias bindings across restarts; with an empty
// directory everything lives in memory.
type EmbeddedCluster struct {
	mu      sync.RWMutex
	rootDir string
	indexes map[string]bleve.Index
	aliases map[string][]string
	setting map[string]IndexSettings
	logger  *slog.Logger
}

// NewEmbedded opens an embedded cluster rooted at dataDir. An empty
// dataDir yields an in-memory cluster.
func NewEmbedded(dataDir string, logger *slog.Logger) (*EmbeddedCluster, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &EmbeddedCluster{
		rootDir: dataDir,
		indexes: make(map[string]bleve.Index),
		aliases: make(map[string][]string),
		setting: make(map[string]IndexSettings),
		logger:  logger,
	}

	if dataDir == "" {
		return c, nil
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, lifterrors.ConnectivityError("failed to create data directory", err)
	}
	if err := c.loadState(); err != nil {
		return nil, err
	}
	if err := c.openExisting(); err != nil {
		return nil, err
	}

	return c, nil
}

// openExisting reopens index directories found under the data root.
func (c *EmbeddedCluster) openExisting() error {
	entries, err := os.ReadDir(c.rootDir)
	if err != nil {
		return lifterrors.ConnectivityError("failed to scan data directory", err)
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		idx, err := bleve.Open(filepath.Join(c.rootDir, name))
		if err != nil {
			return lifterrors.ConnectivityError(
				fmt.Sprintf("failed to open index %s", name), err)
		}
		c.indexes[name] = idx
	}

	return nil
}

// loadState reads alias bindings and settings from the state file.
func (c *EmbeddedCluster) loadState() error {
	data, err := os.ReadFile(filepath.Join(c.rootDir, stateFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return lifterrors.ConnectivityError("failed to read cluster state", err)
	}

	var st clusterState
	if err := json.Unmarshal(data, &st); err != nil {
		return lifterrors.InternalError("corrupt cluster state file", err)
	}
	if st.Aliases != nil {
		c.aliases = st.Aliases
	}
	if st.Settings != nil {
		c.setting = st.Settings
	}
	return nil
}

// persistState writes alias bindings and settings atomically via a
// temp file rename. Caller must hold the write lock.
func (c *EmbeddedCluster) persistState() error {
	if c.rootDir == "" {
		return nil
	}

	st := clusterState{Aliases: c.aliases, Settings: c.setting}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return lifterrors.InternalError("failed to encode cluster state", err)
	}

	path := filepath.Join(c.rootDir, stateFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return lifterrors.ConnectivityError("failed to write cluster state", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return lifterrors.ConnectivityError("failed to replace cluster state", err)
	}
	return nil
}

// IndexExists reports whether name is a concrete index or an alias
// with at least one target.
func (c *EmbeddedCluster) IndexExists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, lifterrors.Wrap(lifterrors.ErrCodeClusterTimeout, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.indexes[name]; ok {
		return true, nil
	}
	return len(c.aliases[name]) > 0, nil
}

// CreateIndex creates a concrete index with the given mapping.
func (c *EmbeddedCluster) CreateIndex(ctx context.Context, name string, settings IndexSettings, m schema.Mapping) error {
	if err := ctx.Err(); err != nil {
		return lifterrors.Wrap(lifterrors.ErrCodeClusterTimeout, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.indexes[name]; ok {
		return lifterrors.New(lifterrors.ErrCodeIndexExists,
			fmt.Sprintf("index %s already exists", name), nil)
	}
	if len(c.aliases[name]) > 0 {
		return lifterrors.New(lifterrors.ErrCodeIndexExists,
			fmt.Sprintf("an alias named %s already exists", name), nil)
	}

	idx, err := c.newIndex(name, m)
	if err != nil {
		return err
	}

	c.indexes[name] = idx
	c.setting[name] = settings
	if err := c.persistState(); err != nil {
		return err
	}

	c.logger.Info("index created",
		slog.String("index", name),
		slog.Int("shards", settings.Shards),
		slog.Int("replicas", settings.Replicas))
	return nil
}

// newIndex builds the bleve index for name. Caller holds the lock.
func (c *EmbeddedCluster) newIndex(name string, m schema.Mapping) (bleve.Index, error) {
	im := buildIndexMapping(m)

	if c.rootDir == "" {
		idx, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, lifterrors.ConnectivityError(
				fmt.Sprintf("failed to create index %s", name), err)
		}
		return idx, nil
	}

	idx, err := bleve.New(filepath.Join(c.rootDir, name), im)
	if err != nil {
		return nil, lifterrors.ConnectivityError(
			fmt.Sprintf("failed to create index %s", name), err)
	}
	return idx, nil
}

// buildIndexMapping translates a schema mapping into a bleve mapping.
// Keyword fields use the keyword analyzer so values are never split.
func buildIndexMapping(m schema.Mapping) mapping.IndexMapping {
	doc := bleve.NewDocumentMapping()
	for _, f := range m.Fields {
		switch f.Type {
		case schema.FieldKeyword:
			tf := bleve.NewTextFieldMapping()
			tf.Analyzer = keyword.Name
			doc.AddFieldMappingsAt(f.Name, tf)
		case schema.FieldGeoPoint:
			doc.AddFieldMappingsAt(f.Name, bleve.NewGeoPointFieldMapping())
		}
	}

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	im.TypeField = typeField
	return im
}

// DeleteIndex removes a concrete index together with any alias
// bindings pointing at it.
func (c *EmbeddedCluster) DeleteIndex(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return lifterrors.Wrap(lifterrors.ErrCodeClusterTimeout, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.indexes[name]
	if !ok {
		return lifterrors.NotFoundError(fmt.Sprintf("index %s does not exist", name))
	}

	if err := idx.Close(); err != nil {
		c.logger.Warn("failed to close index before delete",
			slog.String("index", name), slog.String("error", err.Error()))
	}
	delete(c.indexes, name)
	delete(c.setting, name)

	for alias, targets := range c.aliases {
		c.aliases[alias] = removeString(targets, name)
		if len(c.aliases[alias]) == 0 {
			delete(c.aliases, alias)
		}
	}

	if c.rootDir != "" {
		if err := os.RemoveAll(filepath.Join(c.rootDir, name)); err != nil {
			return lifterrors.ConnectivityError(
				fmt.Sprintf("failed to remove index data for %s", name), err)
		}
	}

	if err := c.persistState(); err != nil {
		return err
	}

	c.logger.Info("index deleted", slog.String("index", name))
	return nil
}

// AliasTargets returns the concrete indexes bound to alias, sorted.
func (c *EmbeddedCluster) AliasTargets(ctx context.Context, alias string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, lifterrors.Wrap(lifterrors.ErrCodeClusterTimeout, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	targets := append([]string(nil), c.aliases[alias]...)
	sort.Strings(targets)
	return targets, nil
}

// MutateAliases applies all changes atomically. Changes are validated
// against a copy of the bindings; the copy replaces the live map only
// when every change applies cleanly.
func (c *EmbeddedCluster) MutateAliases(ctx context.Context, changes []AliasChange) error {
	if err := ctx.Err(); err != nil {
		return lifterrors.Wrap(lifterrors.ErrCodeClusterTimeout, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	next := make(map[string][]string, len(c.aliases))
	for a, ts := range c.aliases {
		next[a] = append([]string(nil), ts...)
	}

	for _, ch := range changes {
		switch ch.Op {
		case AliasAdd:
			if _, ok := c.indexes[ch.Index]; !ok {
				return lifterrors.NotFoundError(fmt.Sprintf(
					"cannot alias %s to missing index %s", ch.Alias, ch.Index))
			}
			if _, ok := c.indexes[ch.Alias]; ok {
				return lifterrors.New(lifterrors.ErrCodeIndexExists, fmt.Sprintf(
					"alias %s collides with an existing index", ch.Alias), nil)
			}
			if !containsString(next[ch.Alias], ch.Index) {
				next[ch.Alias] = append(next[ch.Alias], ch.Index)
			}
		case AliasRemove:
			next[ch.Alias] = removeString(next[ch.Alias], ch.Index)
			if len(next[ch.Alias]) == 0 {
				delete(next, ch.Alias)
			}
		default:
			return lifterrors.InternalError(
				fmt.Sprintf("unknown alias operation %q", ch.Op), nil)
		}
	}

	c.aliases = next
	if err := c.persistState(); err != nil {
		return err
	}

	for _, ch := range changes {
		c.logger.Info("alias mutated",
			slog.String("op", string(ch.Op)),
			slog.String("alias", ch.Alias),
			slog.String("index", ch.Index))
	}
	return nil
}

// BulkWrite indexes actions grouped per target index. A target that
// does not exist yet is created with the default mapping. Per-document
// failures are counted, not fatal.
func (c *EmbeddedCluster) BulkWrite(ctx context.Context, actions []BulkAction) (BulkResult, error) {
	if err := ctx.Err(); err != nil {
		return BulkResult{}, lifterrors.Wrap(lifterrors.ErrCodeClusterTimeout, err)
	}
	if len(actions) == 0 {
		return BulkResult{}, nil
	}

	byIndex := make(map[string][]BulkAction)
	for _, a := range actions {
		byIndex[a.Index] = append(byIndex[a.Index], a)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var result BulkResult
	for name, group := range byIndex {
		idx, ok := c.indexes[name]
		if !ok {
			created, err := c.newIndex(name, schema.Default())
			if err != nil {
				return result, err
			}
			c.indexes[name] = created
			c.setting[name] = DefaultSettings()
			if err := c.persistState(); err != nil {
				return result, err
			}
			idx = created
		}

		batch := idx.NewBatch()
		batched := 0
		for _, a := range group {
			doc := make(map[string]any, len(a.Fields)+1)
			for k, v := range a.Fields {
				doc[k] = v
			}
			doc[typeField] = a.Type

			if err := batch.Index(a.ID, doc); err != nil {
				result.ItemFailures++
				c.logger.Warn("document rejected",
					slog.String("index", name),
					slog.String("id", a.ID),
					slog.String("error", err.Error()))
				continue
			}
			batched++
		}

		if err := idx.Batch(batch); err != nil {
			return result, lifterrors.ConnectivityError(
				fmt.Sprintf("bulk write to %s failed", name), err)
		}
		result.Accepted += batched
	}

	return result, nil
}

// Optimize compacts the named index, or every target when name is an
// alias. The embedded engine compacts on its own, so this reports
// shard health for each reachable target.
func (c *EmbeddedCluster) Optimize(ctx context.Context, name string) (OptimizeResult, error) {
	if err := ctx.Err(); err != nil {
		return OptimizeResult{}, lifterrors.Wrap(lifterrors.ErrCodeClusterTimeout, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	targets := []string{name}
	if _, ok := c.indexes[name]; !ok {
		if len(c.aliases[name]) == 0 {
			return OptimizeResult{}, lifterrors.NotFoundError(
				fmt.Sprintf("no index or alias named %s", name))
		}
		targets = c.aliases[name]
	}

	var result OptimizeResult
	for _, t := range targets {
		settings, ok := c.setting[t]
		if !ok {
			settings = DefaultSettings()
		}
		result.TotalShards += settings.Shards
		if _, ok := c.indexes[t]; ok {
			result.SuccessfulShards += settings.Shards
		} else {
			result.FailedShards += settings.Shards
		}
	}

	return result, nil
}

// ClusterInfo returns a metadata snapshot of every index.
func (c *EmbeddedCluster) ClusterInfo(ctx context.Context) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, lifterrors.Wrap(lifterrors.ErrCodeClusterTimeout, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	aliasesByIndex := make(map[string][]string)
	for alias, targets := range c.aliases {
		for _, t := range targets {
			aliasesByIndex[t] = append(aliasesByIndex[t], alias)
		}
	}

	info := Info{Name: "indexlift-embedded"}
	names := make([]string, 0, len(c.indexes))
	for name := range c.indexes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		docs, err := c.indexes[name].DocCount()
		if err != nil {
			return Info{}, lifterrors.ConnectivityError(
				fmt.Sprintf("failed to count documents in %s", name), err)
		}
		aliases := aliasesByIndex[name]
		sort.Strings(aliases)
		info.Indexes = append(info.Indexes, IndexInfo{
			Name:    name,
			Docs:    docs,
			Aliases: aliases,
		})
	}

	return info, nil
}

// Close closes every open index.
func (c *EmbeddedCluster) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for name, idx := range c.indexes {
		if err := idx.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close index %s: %w", name, err)
		}
	}
	c.indexes = make(map[string]bleve.Index)
	return firstErr
}

// DocCount returns the number of documents in a concrete index.
func (c *EmbeddedCluster) DocCount(name string) (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	idx, ok := c.indexes[name]
	if !ok {
		return 0, lifterrors.NotFoundError(fmt.Sprintf("index %s does not exist", name))
	}
	return idx.DocCount()
}

// HasDocument reports whether the concrete index holds the document.
func (c *EmbeddedCluster) HasDocument(ctx context.Context, name, id string) (bool, error) {
	c.mu.RLock()
	idx, ok := c.indexes[name]
	c.mu.RUnlock()
	if !ok {
		return false, lifterrors.NotFoundError(fmt.Sprintf("index %s does not exist", name))
	}

	req := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{id}))
	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return false, lifterrors.ConnectivityError("document lookup failed", err)
	}
	return res.Total > 0, nil
}

// CountByType counts documents of the given record type in an index.
func (c *EmbeddedCluster) CountByType(ctx context.Context, name, recordType string) (uint64, error) {
	c.mu.RLock()
	idx, ok := c.indexes[name]
	c.mu.RUnlock()
	if !ok {
		return 0, lifterrors.NotFoundError(fmt.Sprintf("index %s does not exist", name))
	}

	q := bleve.NewTermQuery(recordType)
	q.SetField(typeField)
	req := bleve.NewSearchRequest(q)
	req.Size = 0

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return 0, lifterrors.ConnectivityError("type count failed", err)
	}
	return res.Total, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
