package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nordja/taskbridge/pkg/models"
)

func TestStructureCache_FolderSetAndGet(t *testing.T) {
	c := New(time.Minute)
	info := models.FolderInfo{FolderID: "90131700000", FolderPath: "Anne Souza / Cliente X"}

	c.PutFolder(FolderKey("anne souza", "cliente x"), info)

	got, ok := c.GetFolder(FolderKey("anne souza", "cliente x"))
	assert.True(t, ok)
	assert.Equal(t, info, got)
}

func TestStructureCache_FolderMiss(t *testing.T) {
	c := New(time.Minute)

	_, ok := c.GetFolder(FolderKey("anne souza", "unknown"))
	assert.False(t, ok)
}

func TestStructureCache_TTLExpiry(t *testing.T) {
	c := New(50 * time.Millisecond)
	c.PutFolder("k", models.FolderInfo{FolderID: "1"})
	c.PutList("l", "900")

	_, ok := c.GetFolder("k")
	assert.True(t, ok)
	_, ok = c.GetList("l")
	assert.True(t, ok)

	time.Sleep(60 * time.Millisecond)

	_, ok = c.GetFolder("k")
	assert.False(t, ok)
	_, ok = c.GetList("l")
	assert.False(t, ok)
}

func TestStructureCache_ListInvalidate(t *testing.T) {
	c := New(time.Minute)
	key := ListKey("folder-1", "2025-10")

	c.PutList(key, "list-123")
	c.InvalidateList(key)

	_, ok := c.GetList(key)
	assert.False(t, ok)
}

func TestStructureCache_ConcurrentAccess(t *testing.T) {
	c := New(time.Minute)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.PutFolder("shared", models.FolderInfo{FolderID: "1"})
			c.GetFolder("shared")
		}()
		go func() {
			defer wg.Done()
			c.PutList("shared", "900")
			c.GetList("shared")
		}()
	}
	wg.Wait()

	_, ok := c.GetFolder("shared")
	assert.True(t, ok)
}
