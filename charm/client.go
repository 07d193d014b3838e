// ABOUTME: Charm KV backed cache.Storage with optional cloud sync
// ABOUTME: Lets the contacts caches and session keys follow the user across devices

package charm

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/charmbracelet/charm/client"
	"github.com/charmbracelet/charm/kv"
	"github.com/charmbracelet/log"
	"github.com/dgraph-io/badger/v3"

	"github.com/lokesh75way/confirmed-add-in/cache"
)

// store is the subset of charm's kv.KV the client needs. Tests swap in a
// plain BadgerDB.
type store interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Keys() ([][]byte, error)
	Sync() error
	Reset() error
}

// Client is a cache.Storage over Charm KV.
type Client struct {
	kv     store
	config *Config
	logger *log.Logger
	local  bool
	mu     sync.RWMutex
}

// Open opens the Charm KV database for AppName. A nil cfg loads the saved
// config.
func Open(cfg *Config, logger *log.Logger) (*Client, error) {
	if cfg == nil {
		var err error
		if cfg, err = LoadConfig(); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	if logger == nil {
		logger = log.Default()
	}

	// charm reads the server from the environment when opening the store.
	_ = os.Setenv("CHARM_HOST", cfg.Host)

	db, err := kv.OpenWithDefaults(AppName)
	if err != nil {
		return nil, fmt.Errorf("failed to open charm kv: %w", err)
	}

	c := &Client{kv: db, config: cfg, logger: logger.With("component", "charm")}

	// Pull remote changes before the first read.
	if cfg.AutoSync {
		if err := db.Sync(); err != nil {
			c.logger.Warn("initial sync failed, using local data", "err", err)
		}
	}
	return c, nil
}

// Config returns the client's config.
func (c *Client) Config() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

// ID returns the charm user ID for this device.
func (c *Client) ID() (string, error) {
	if c.local {
		return "local", nil
	}
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", fmt.Errorf("failed to create charm client: %w", err)
	}
	return cc.ID()
}

// Sync performs a manual sync with the charm server.
func (c *Client) Sync() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Sync()
}

// GetItem implements cache.Storage.
func (c *Client) GetItem(key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, err := c.kv.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return string(v), true, nil
}

// SetItem implements cache.Storage and syncs when auto-sync is on.
func (c *Client) SetItem(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.kv.Set([]byte(key), []byte(value)); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	c.syncLocked()
	return nil
}

// RemoveItem implements cache.Storage. Removing a missing key is not an error.
func (c *Client) RemoveItem(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.kv.Delete([]byte(key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	c.syncLocked()
	return nil
}

// syncLocked pushes changes while the write lock is held.
func (c *Client) syncLocked() {
	if !c.config.AutoSync {
		return
	}
	if err := c.kv.Sync(); err != nil {
		c.logger.Warn("sync after write failed", "err", err)
	}
}

// Keys implements cache.KeyLister, sorted.
func (c *Client) Keys() ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	raw, err := c.kv.Keys()
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(raw))
	for i, k := range raw {
		keys[i] = string(k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Reset wipes all data from the KV store.
func (c *Client) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Reset()
}

var (
	_ cache.Storage   = (*Client)(nil)
	_ cache.KeyLister = (*Client)(nil)
)
