// Package alias resolves alias names to the single concrete index they
// point at. Results are cached so hot callers skip the cluster round
// trip; mutation paths invalidate the cache explicitly.
package alias

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nabeel-codes/indexlift/internal/cluster"
	lifterrors "github.com/nabeel-codes/indexlift/internal/errors"
)

// defaultCacheSize bounds the alias cache. Deployments rarely carry
// more than a few hundred aliases.
const defaultCacheSize = 1024

// Resolver maps alias names to concrete index names.
type Resolver struct {
	client cluster.Client
	cache  *lru.Cache[string, string]
	logger *slog.Logger
}

// NewResolver creates a resolver over the given cluster client.
func NewResolver(client cluster.Client, logger *slog.Logger) (*Resolver, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cache, err := lru.New[string, string](defaultCacheSize)
	if err != nil {
		return nil, lifterrors.InternalError("failed to create alias cache", err)
	}

	return &Resolver{
		client: client,
		cache:  cache,
		logger: logger,
	}, nil
}

// Resolve returns the concrete index bound to alias.
//
// A blank alias is a validation error. An alias with no targets is not
// found. An alias bound to more than one index is ambiguous; callers
// must not guess which target is live.
func (r *Resolver) Resolve(ctx context.Context, alias string) (string, error) {
	if strings.TrimSpace(alias) == "" {
		return "", lifterrors.ValidationError("alias name must not be blank")
	}

	if index, ok := r.cache.Get(alias); ok {
		return index, nil
	}

	targets, err := r.client.AliasTargets(ctx, alias)
	if err != nil {
		return "", err
	}

	switch len(targets) {
	case 0:
		return "", lifterrors.NotFoundError(
			fmt.Sprintf("alias %s does not resolve to any index", alias))
	case 1:
		r.cache.Add(alias, targets[0])
		return targets[0], nil
	default:
		r.logger.Warn("alias bound to multiple indexes",
			slog.String("alias", alias),
			slog.Int("targets", len(targets)))
		return "", lifterrors.AmbiguousError(
			fmt.Sprintf("alias %s resolves to %d indexes", alias, len(targets)))
	}
}

// Invalidate drops the cached binding for alias. Call after any alias
// mutation so the next Resolve sees the live bindings.
func (r *Resolver) Invalidate(alias string) {
	r.cache.Remove(alias)
}
