// Package cache provides the in-memory TTL cache over structure lookups.
package cache

import (
	"sync"
	"time"

	"github.com/nordja/taskbridge/pkg/models"
)

// DefaultTTL is how long folder and list resolutions stay valid in memory.
const DefaultTTL = time.Hour

type folderEntry struct {
	info     models.FolderInfo
	storedAt time.Time
}

type listEntry struct {
	listID   string
	storedAt time.Time
}

// StructureCache memoizes folder and monthly-list resolutions. Folder entries
// are keyed "attendant|client", list entries "folderID|yearMonth". Expired
// entries are cleaned up lazily on Get — no background goroutine. The cache
// never fabricates values; it only stores results produced by the resolver.
type StructureCache struct {
	mu      sync.RWMutex
	folders map[string]*folderEntry
	lists   map[string]*listEntry
	ttl     time.Duration
}

// New creates a StructureCache with the given TTL.
func New(ttl time.Duration) *StructureCache {
	return &StructureCache{
		folders: make(map[string]*folderEntry),
		lists:   make(map[string]*listEntry),
		ttl:     ttl,
	}
}

// FolderKey builds the cache key for a folder resolution.
func FolderKey(attendantKey, clientKey string) string {
	return attendantKey + "|" + clientKey
}

// ListKey builds the cache key for a monthly-list resolution.
func ListKey(folderID, yearMonth string) string {
	return folderID + "|" + yearMonth
}

// GetFolder returns a cached folder resolution if present and not expired.
func (c *StructureCache) GetFolder(key string) (models.FolderInfo, bool) {
	c.mu.RLock()
	entry, ok := c.folders[key]
	c.mu.RUnlock()

	if !ok {
		return models.FolderInfo{}, false
	}
	if time.Since(entry.storedAt) > c.ttl {
		// Re-check under write lock: a concurrent Put may have refreshed it.
		c.mu.Lock()
		if current, ok := c.folders[key]; ok && time.Since(current.storedAt) > c.ttl {
			delete(c.folders, key)
		}
		c.mu.Unlock()
		return models.FolderInfo{}, false
	}
	return entry.info, true
}

// PutFolder stores a folder resolution with the current timestamp.
func (c *StructureCache) PutFolder(key string, info models.FolderInfo) {
	c.mu.Lock()
	c.folders[key] = &folderEntry{info: info, storedAt: time.Now()}
	c.mu.Unlock()
}

// GetList returns a cached list id if present and not expired.
func (c *StructureCache) GetList(key string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.lists[key]
	c.mu.RUnlock()

	if !ok {
		return "", false
	}
	if time.Since(entry.storedAt) > c.ttl {
		c.mu.Lock()
		if current, ok := c.lists[key]; ok && time.Since(current.storedAt) > c.ttl {
			delete(c.lists, key)
		}
		c.mu.Unlock()
		return "", false
	}
	return entry.listID, true
}

// PutList stores a list resolution with the current timestamp.
func (c *StructureCache) PutList(key, listID string) {
	c.mu.Lock()
	c.lists[key] = &listEntry{listID: listID, storedAt: time.Now()}
	c.mu.Unlock()
}

// InvalidateList drops a list entry, used when the downstream API reports the
// list no longer exists.
func (c *StructureCache) InvalidateList(key string) {
	c.mu.Lock()
	delete(c.lists, key)
	c.mu.Unlock()
}
