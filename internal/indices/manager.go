// Package indices manages the lifecycle of aliased indexes: creation
// with the alias convention, deletion through alias resolution,
// existence probes, and optimization.
package indices

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nabeel-codes/indexlift/internal/alias"
	"github.com/nabeel-codes/indexlift/internal/cluster"
	lifterrors "github.com/nabeel-codes/indexlift/internal/errors"
	"github.com/nabeel-codes/indexlift/internal/schema"
)

// Manager performs index lifecycle operations against a cluster.
type Manager struct {
	client   cluster.Client
	resolver *alias.Resolver
	logger   *slog.Logger
}

// NewManager creates a manager over the given client and resolver.
func NewManager(client cluster.Client, resolver *alias.Resolver, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		client:   client,
		resolver: resolver,
		logger:   logger,
	}
}

// validateAliasName rejects blank names and names with embedded
// whitespace before they reach the cluster.
func validateAliasName(name string) error {
	if strings.TrimSpace(name) == "" {
		return lifterrors.ValidationError("index alias must not be blank")
	}
	if strings.ContainsAny(name, " \t\n\r") {
		return lifterrors.New(lifterrors.ErrCodeNameWhitespace,
			fmt.Sprintf("index alias %q must not contain whitespace", name), nil)
	}
	return nil
}

// CreateIndex provisions a concrete index named "<alias>1" and binds
// the alias to it. Returns the concrete index name.
func (m *Manager) CreateIndex(ctx context.Context, aliasName string) (string, error) {
	if err := validateAliasName(aliasName); err != nil {
		return "", err
	}

	exists, err := m.client.IndexExists(ctx, aliasName)
	if err != nil {
		return "", err
	}
	if exists {
		return "", lifterrors.New(lifterrors.ErrCodeIndexExists,
			fmt.Sprintf("index %s already exists", aliasName), nil)
	}

	// First generation carries the "1" suffix; rebuilds produce
	// timestamped successors.
	indexName := aliasName + "1"

	if err := m.client.CreateIndex(ctx, indexName, cluster.DefaultSettings(), schema.Default()); err != nil {
		return "", err
	}

	if err := m.client.MutateAliases(ctx, []cluster.AliasChange{
		{Op: cluster.AliasAdd, Alias: aliasName, Index: indexName},
	}); err != nil {
		// Roll back the orphan index so a retry starts clean.
		if delErr := m.client.DeleteIndex(ctx, indexName); delErr != nil {
			m.logger.Error("failed to roll back orphan index",
				slog.String("index", indexName),
				slog.String("error", delErr.Error()))
		}
		return "", err
	}

	m.resolver.Invalidate(aliasName)
	m.logger.Info("index provisioned",
		slog.String("alias", aliasName),
		slog.String("index", indexName))
	return indexName, nil
}

// DeleteIndex resolves the alias and removes its concrete index. Alias
// bindings to the index are dropped by the cluster.
func (m *Manager) DeleteIndex(ctx context.Context, aliasName string) error {
	if err := validateAliasName(aliasName); err != nil {
		return err
	}

	indexName, err := m.resolver.Resolve(ctx, aliasName)
	if err != nil {
		return err
	}

	if err := m.client.DeleteIndex(ctx, indexName); err != nil {
		return err
	}

	m.resolver.Invalidate(aliasName)
	m.logger.Info("index removed",
		slog.String("alias", aliasName),
		slog.String("index", indexName))
	return nil
}

// ExistsIndex reports whether the alias resolves to a live index.
// Probe failures are logged and reported as absent so callers never
// act on an index they cannot reach.
func (m *Manager) ExistsIndex(ctx context.Context, aliasName string) bool {
	if strings.TrimSpace(aliasName) == "" {
		return false
	}

	exists, err := m.client.IndexExists(ctx, aliasName)
	if err != nil {
		m.logger.Warn("existence probe failed, reporting absent",
			slog.String("alias", aliasName),
			slog.String("error", err.Error()))
		return false
	}
	return exists
}

// Optimize resolves the alias and compacts its concrete index. The
// operation succeeds only when no shard reports a failure.
func (m *Manager) Optimize(ctx context.Context, aliasName string) (cluster.OptimizeResult, error) {
	indexName, err := m.resolver.Resolve(ctx, aliasName)
	if err != nil {
		return cluster.OptimizeResult{}, err
	}

	result, err := m.client.Optimize(ctx, indexName)
	if err != nil {
		return cluster.OptimizeResult{}, err
	}

	m.logger.Info("index optimized",
		slog.String("alias", aliasName),
		slog.String("index", indexName),
		slog.Int("failed_shards", result.FailedShards))
	return result, nil
}
