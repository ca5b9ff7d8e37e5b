package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nordja/taskbridge/pkg/models"
)

// MappingRepository serves the attendant/client mapping tables and the
// list_cache table with single-statement queries.
type MappingRepository struct {
	db *sql.DB
}

// NewMappingRepository creates a repository over the shared connection pool.
func NewMappingRepository(client *Client) *MappingRepository {
	return &MappingRepository{db: client.DB()}
}

// CanonicalClientKey resolves a normalized client name to its canonical key,
// matching either the key itself or any alias. Returns found=false on miss.
func (r *MappingRepository) CanonicalClientKey(ctx context.Context, normalized string) (string, bool, error) {
	var key string
	err := r.db.QueryRowContext(ctx,
		`SELECT client_key FROM client_mappings
		  WHERE client_key = $1 OR $1 = ANY(client_aliases)
		  LIMIT 1`, normalized).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("client key lookup: %w", err)
	}
	return key, true, nil
}

// CanonicalAttendantKey resolves a normalized attendant name to its canonical
// key, matching either the key itself or any alias.
func (r *MappingRepository) CanonicalAttendantKey(ctx context.Context, normalized string) (string, bool, error) {
	var key string
	err := r.db.QueryRowContext(ctx,
		`SELECT attendant_key FROM attendant_mappings
		  WHERE attendant_key = $1 OR $1 = ANY(attendant_aliases)
		  LIMIT 1`, normalized).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("attendant key lookup: %w", err)
	}
	return key, true, nil
}

// FindFolder returns the folder mapped to (clientKey, attendantKey), joining
// on the "Attendant / Client" folder path convention.
func (r *MappingRepository) FindFolder(ctx context.Context, clientKey, attendantKey string) (*models.FolderInfo, error) {
	var (
		folderID   sql.NullString
		folderPath sql.NullString
		spaceID    sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT cm.folder_id, cm.folder_path, cm.space_id
		   FROM client_mappings cm
		   JOIN attendant_mappings am
		     ON cm.folder_path LIKE am.attendant_full_name || ' /%'
		  WHERE cm.client_key = $1
		    AND am.attendant_key = $2
		    AND cm.is_active
		  LIMIT 1`, clientKey, attendantKey).Scan(&folderID, &folderPath, &spaceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("folder lookup: %w", err)
	}
	return &models.FolderInfo{
		FolderID:   folderID.String,
		FolderPath: folderPath.String,
		SpaceID:    spaceID.String,
	}, nil
}

// FindAttendantForClient returns the attendant key canonically associated
// with a client, extracted from the folder-path convention. Used when the
// webhook arrives without a responsible attendant.
func (r *MappingRepository) FindAttendantForClient(ctx context.Context, clientKey string) (string, bool, error) {
	var key string
	err := r.db.QueryRowContext(ctx,
		`SELECT am.attendant_key
		   FROM client_mappings cm
		   JOIN attendant_mappings am
		     ON cm.folder_path LIKE am.attendant_full_name || ' /%'
		  WHERE cm.client_key = $1
		    AND cm.is_active
		  LIMIT 1`, clientKey).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("attendant-for-client lookup: %w", err)
	}
	return key, true, nil
}

// FindCachedList returns the persisted list id for (folderID, yearMonth,
// listName). The list name is part of the key: shared folders (inactive
// clients) hold one monthly list per client.
func (r *MappingRepository) FindCachedList(ctx context.Context, folderID, yearMonth, listName string) (string, bool, error) {
	var listID string
	err := r.db.QueryRowContext(ctx,
		`SELECT list_id FROM list_cache
		  WHERE folder_id = $1 AND year_month = $2 AND list_name = $3 AND is_active
		  ORDER BY last_verified DESC
		  LIMIT 1`, folderID, yearMonth, listName).Scan(&listID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("list cache lookup: %w", err)
	}
	return listID, true, nil
}

// UpsertCachedList records a verified list id, refreshing last_verified and
// reactivating the row if it had been invalidated.
func (r *MappingRepository) UpsertCachedList(ctx context.Context, folderID, listID, listName, yearMonth string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO list_cache (folder_id, list_id, list_name, year_month, last_verified)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (list_id) DO UPDATE SET
		   last_verified = NOW(),
		   is_active = TRUE`, folderID, listID, listName, yearMonth)
	if err != nil {
		return fmt.Errorf("list cache upsert: %w", err)
	}
	return nil
}

// DeactivateCachedList marks a list id inactive after the downstream API
// reported it gone.
func (r *MappingRepository) DeactivateCachedList(ctx context.Context, listID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE list_cache SET is_active = FALSE WHERE list_id = $1`, listID)
	if err != nil {
		return fmt.Errorf("list cache deactivate: %w", err)
	}
	return nil
}
