// Package localcache is the durable process-local key/value mirror of agents,
// conversations, app configuration and the logged in user. Each key is stored
// as one JSON document on an afero filesystem.
package localcache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// Well-known keys
const (
	KeyAgents        = "agents"
	KeyConversations = "conversations"
	KeyAppConfig     = "appConfig"
	KeyUser          = "user"

	KeyCurrentConversation = "currentConversation"
)

const fileExt = ".json"

// Config configures a Cache.
type Config struct {
	Fs     afero.Fs
	Dir    string
	Logger *slog.Logger
}

// Cache is a synchronous JSON blob store. Writes replace the whole entry.
type Cache struct {
	fs     afero.Fs
	dir    string
	logger *slog.Logger
	mu     sync.Mutex
}

// New creates a cache rooted at cfg.Dir, creating the directory if needed.
func New(cfg Config) (*Cache, error) {
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if err := cfg.Fs.MkdirAll(cfg.Dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{
		fs:     cfg.Fs,
		dir:    cfg.Dir,
		logger: cfg.Logger.With("component", "localcache"),
	}, nil
}

// Get decodes the entry for key into v. It returns false when the entry is
// missing or cannot be decoded; corrupt entries are logged and removed.
func (c *Cache) Get(key string, v any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	path, err := c.path(key)
	if err != nil {
		return false, err
	}

	data, err := afero.ReadFile(c.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read cache entry %q: %w", key, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		c.logger.Warn("discarding corrupt cache entry", "key", key, "error", err)
		if rmErr := c.fs.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			c.logger.Warn("failed to remove corrupt cache entry", "key", key, "error", rmErr)
		}
		return false, nil
	}
	return true, nil
}

// Set encodes v and replaces the entry for key.
func (c *Cache) Set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry %q: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	path, err := c.path(key)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := afero.WriteFile(c.fs, tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write cache entry %q: %w", key, err)
	}
	if err := c.fs.Rename(tmp, path); err != nil {
		_ = c.fs.Remove(tmp)
		return fmt.Errorf("failed to commit cache entry %q: %w", key, err)
	}
	c.logger.Debug("cache entry written", "key", key, "bytes", len(data))
	return nil
}

// Delete removes the entry for key. Deleting a missing key is not an error.
func (c *Cache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	path, err := c.path(key)
	if err != nil {
		return err
	}
	if err := c.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache entry %q: %w", key, err)
	}
	return nil
}

// Keys lists the stored keys in sorted order.
func (c *Cache) Keys() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := afero.ReadDir(c.fs, c.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache directory: %w", err)
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, fileExt))
	}
	sort.Strings(keys)
	return keys, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string {
	return c.dir
}

func (c *Cache) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid cache key %q", key)
	}
	return filepath.Join(c.dir, key+fileExt), nil
}
