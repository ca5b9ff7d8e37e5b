// Package structure resolves where in the downstream hierarchy a client's
// tasks belong: the attendant/client folder and the current monthly list.
package structure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nordja/taskbridge/pkg/cache"
	"github.com/nordja/taskbridge/pkg/clickup"
	"github.com/nordja/taskbridge/pkg/matching"
	"github.com/nordja/taskbridge/pkg/models"
)

// ErrNotFound is returned when no mapping row covers the (client, attendant)
// pair. It is user-actionable: the operator must create the folder downstream
// and add the mapping row. The resolver never auto-creates folders.
var ErrNotFound = errors.New("structure not found")

// inactivePrefix marks folders shared by deactivated clients; their monthly
// lists carry the client name to avoid collisions.
const inactivePrefix = "Clientes Inativos / "

// listSchemaPropagation is how long to wait after creating a list before
// using it, so the custom-field schema settles downstream.
const listSchemaPropagation = 2 * time.Second

// MappingStore is the persistent mapping-table access the resolver needs.
// Implemented by database.MappingRepository.
type MappingStore interface {
	CanonicalClientKey(ctx context.Context, normalized string) (string, bool, error)
	CanonicalAttendantKey(ctx context.Context, normalized string) (string, bool, error)
	FindFolder(ctx context.Context, clientKey, attendantKey string) (*models.FolderInfo, error)
	FindAttendantForClient(ctx context.Context, clientKey string) (string, bool, error)
	FindCachedList(ctx context.Context, folderID, yearMonth, listName string) (string, bool, error)
	UpsertCachedList(ctx context.Context, folderID, listID, listName, yearMonth string) error
	DeactivateCachedList(ctx context.Context, listID string) error
}

// ListAPI is the slice of the downstream client the resolver uses.
type ListAPI interface {
	ListExists(ctx context.Context, listID string) (bool, error)
	GetFolderLists(ctx context.Context, folderID string) ([]clickup.List, error)
	CreateList(ctx context.Context, folderID string, req clickup.CreateListRequest) (*clickup.List, error)
}

// Resolver maps (client, attendant) pairs to folders and folders to monthly
// lists, memoizing through the in-memory cache and the list_cache table.
type Resolver struct {
	store  MappingStore
	api    ListAPI
	cache  *cache.StructureCache
	logger *slog.Logger

	now   func() time.Time
	sleep func(time.Duration)
}

// NewResolver creates a resolver over the mapping store and downstream API.
func NewResolver(store MappingStore, api ListAPI, structCache *cache.StructureCache) *Resolver {
	return &Resolver{
		store:  store,
		api:    api,
		cache:  structCache,
		logger: slog.Default().With("component", "structure-resolver"),
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// ResolveFolder returns the folder mapped to a (client, attendant) pair.
// Names are canonicalized through the alias tables, with local normalization
// as the fallback when the database is unreachable.
func (r *Resolver) ResolveFolder(ctx context.Context, clientName, attendantName string) (models.FolderInfo, error) {
	clientKey := r.canonicalClient(ctx, clientName)
	attendantKey := r.canonicalAttendant(ctx, attendantName)

	key := cache.FolderKey(attendantKey, clientKey)
	if info, ok := r.cache.GetFolder(key); ok {
		return info, nil
	}

	info, err := r.store.FindFolder(ctx, clientKey, attendantKey)
	if err != nil {
		return models.FolderInfo{}, fmt.Errorf("folder resolution: %w", err)
	}
	if info == nil {
		return models.FolderInfo{}, fmt.Errorf(
			"%w: no mapping for client %q and attendant %q — create the folder downstream and add the mapping",
			ErrNotFound, clientKey, attendantKey)
	}

	r.cache.PutFolder(key, *info)
	r.logger.Info("Folder resolved", "client", clientKey, "attendant", attendantKey, "folder_path", info.FolderPath)
	return *info, nil
}

// FindAttendantForClient returns the attendant canonically associated with a
// client, for webhooks that arrive without a responsible attendant.
func (r *Resolver) FindAttendantForClient(ctx context.Context, clientName string) (string, error) {
	clientKey := r.canonicalClient(ctx, clientName)
	attendant, found, err := r.store.FindAttendantForClient(ctx, clientKey)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("%w: no attendant mapped for client %q", ErrNotFound, clientKey)
	}
	return attendant, nil
}

func (r *Resolver) canonicalClient(ctx context.Context, name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if key, found, err := r.store.CanonicalClientKey(ctx, normalized); err == nil && found {
		return key
	} else if err != nil {
		r.logger.Warn("Client alias lookup failed, using local normalization", "error", err)
	}
	return matching.Normalize(name)
}

func (r *Resolver) canonicalAttendant(ctx context.Context, name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if key, found, err := r.store.CanonicalAttendantKey(ctx, normalized); err == nil && found {
		return key
	} else if err != nil {
		r.logger.Warn("Attendant alias lookup failed, using local normalization", "error", err)
	}
	return matching.Normalize(name)
}
