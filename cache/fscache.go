// Package cache persists the last-known user profile so the UI can
// render a signed-in shell before the first session probe resolves.
package cache

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/codeprac/authkit"
)

// FSCache stores profiles as a JSON file on the filesystem, one entry per
// backend URL. It implements authkit.ProfileCache for the URL it was
// created with; writes persist immediately.
type FSCache struct {
	mu       sync.RWMutex
	path     string
	key      string
	profiles map[string]*entry
}

var _ authkit.ProfileCache = (*FSCache)(nil)

type entry struct {
	User    *authkit.User `json:"user"`
	SavedAt time.Time     `json:"saved_at"`
}

// cacheFile is the JSON structure stored on disk
type cacheFile struct {
	Servers map[string]*entry `json:"servers"`
}

// New creates an FS-backed profile cache bound to serverURL.
// If path is empty, defaults to ~/.config/<appName>/profile.json.
func New(path, appName, serverURL string) (*FSCache, error) {
	key, err := normalizeURL(serverURL)
	if err != nil {
		return nil, err
	}

	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("could not determine config directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
		if appName == "" {
			appName = "codeprac"
		}
		path = filepath.Join(configDir, appName, "profile.json")
	}

	c := &FSCache{
		path:     path,
		key:      key,
		profiles: make(map[string]*entry),
	}

	if err := c.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return c, nil
}

// normalizeURL normalizes a server URL for use as a key
func normalizeURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	return fmt.Sprintf("%s://%s", u.Scheme, u.Host), nil
}

// load reads the cache file from disk
func (c *FSCache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return err
	}

	var file cacheFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse profile cache: %w", err)
	}

	c.profiles = file.Servers
	if c.profiles == nil {
		c.profiles = make(map[string]*entry)
	}
	return nil
}

// Load returns the cached profile for this cache's server, or nil
func (c *FSCache) Load() (*authkit.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.profiles[c.key]
	if !ok || e == nil {
		return nil, nil
	}
	return e.User, nil
}

// Store replaces the cached profile and persists to disk
func (c *FSCache) Store(u *authkit.User) error {
	if u == nil {
		return c.Clear()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.profiles[c.key] = &entry{User: u, SavedAt: time.Now()}
	return c.saveLocked()
}

// Clear removes the cached profile and persists to disk
func (c *FSCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.profiles[c.key]; !ok {
		return nil
	}
	delete(c.profiles, c.key)
	return c.saveLocked()
}

// saveLocked writes the cache file with restricted permissions.
// Caller must hold c.mu.
func (c *FSCache) saveLocked() error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	file := cacheFile{Servers: c.profiles}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize profile cache: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write profile cache: %w", err)
	}
	return nil
}

// Path returns the path to the cache file
func (c *FSCache) Path() string {
	return c.path
}
