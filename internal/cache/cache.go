package cache

import (
	"maps"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Zuo-Peng/cconvo/internal/catalog"
)

// CurrentVersion must be bumped whenever Entry or the metadata extraction
// changes so that stale entries are dropped on the next load.
const CurrentVersion = 2

// Entry is the metadata remembered for one log file. It is only valid while
// Mtime equals the file's current modification time in milliseconds.
type Entry struct {
	Mtime            int64              `json:"mtime"`
	Slug             string             `json:"slug,omitempty"`
	StartTime        time.Time          `json:"startTime"`
	EndTime          time.Time          `json:"endTime"`
	MessageCount     int                `json:"messageCount"`
	TotalTokens      catalog.TokenUsage `json:"totalTokens"`
	FirstUserMessage string             `json:"firstUserMessage,omitempty"`
}

type Snapshot struct {
	Version int              `json:"version"`
	Entries map[string]Entry `json:"entries"`
}

// Store persists snapshots. Read returns an error wrapping fs.ErrNotExist
// when nothing has been written yet.
type Store interface {
	Read() (*Snapshot, error)
	Write(*Snapshot) error
}

type Option func(*Cache)

func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithVersion overrides CurrentVersion.
func WithVersion(v int) Option {
	return func(c *Cache) { c.version = v }
}

// Cache maps absolute file paths to their last extracted metadata. It is
// loaded once, mutated by scan workers, and saved once.
type Cache struct {
	store   Store
	version int
	logger  *zap.Logger

	mu      sync.RWMutex
	loaded  bool
	dirty   bool
	entries map[string]Entry
}

func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		store:   store,
		version: CurrentVersion,
		logger:  zap.NewNop(),
		entries: make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load reads the persisted snapshot. A missing or unreadable snapshot yields
// an empty cache; a snapshot from another version is discarded. Calling Load
// again is a no-op.
func (c *Cache) Load() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return
	}
	c.loaded = true

	snap, err := c.store.Read()
	switch {
	case err != nil:
		c.logger.Debug("cache unavailable, starting empty", zap.Error(err))
		return
	case snap.Version != c.version:
		c.logger.Debug("cache version mismatch, discarding entries",
			zap.Int("found", snap.Version), zap.Int("want", c.version))
		c.dirty = true
		return
	}

	// entries set before Load win over what is on disk
	disk := make(map[string]Entry, len(snap.Entries)+len(c.entries))
	maps.Copy(disk, snap.Entries)
	maps.Copy(disk, c.entries)
	c.entries = disk
}

// Save writes the cache back if it changed since it was loaded. Failures are
// logged and dropped.
func (c *Cache) Save() {
	c.mu.Lock()
	if !c.dirty {
		c.mu.Unlock()
		return
	}
	snap := &Snapshot{Version: c.version, Entries: maps.Clone(c.entries)}
	c.dirty = false
	c.mu.Unlock()

	if err := c.store.Write(snap); err != nil {
		c.logger.Warn("failed to persist metadata cache", zap.Error(err))
		c.mu.Lock()
		c.dirty = true
		c.mu.Unlock()
	}
}

func (c *Cache) Get(path string, mtime int64) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[path]
	if !ok || e.Mtime != mtime {
		return Entry{}, false
	}
	return e, true
}

func (c *Cache) Set(path string, e Entry) {
	c.mu.Lock()
	c.entries[path] = e
	c.dirty = true
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
