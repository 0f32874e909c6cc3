package runner

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"

	"github.com/robert-at-pretension-io/dbgcov/internal/region"
)

// The frontend never opens included files, so a unit's regions depend only
// on its own content and the options below.
const (
	cacheIndexVersion = 1
	defaultCacheDir   = ".dbgcov_cache"
)

// extractorVersion ties cached regions to the build that produced them
var extractorVersion = func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			return setting.Value
		}
	}
	return info.Main.Version
}()

type cacheEntry struct {
	ContentHash string `json:"content_hash"`
	OptionsKey  string `json:"options_key"`
	RegionsPath string `json:"regions_path"`
}

type cacheIndex struct {
	Version int                   `json:"version"`
	Entries map[string]cacheEntry `json:"entries"`
}

// cachedUnit is what a unit produced, diagnostics included, so a cache hit
// reads the same as a fresh run
type cachedUnit struct {
	Records  []region.Record `json:"records"`
	Diag     string          `json:"diag"`
	Dropped  int             `json:"dropped"`
	Inverted int             `json:"inverted"`
}

type regionCache struct {
	dir        string
	optionsKey string
	mu         sync.Mutex
	index      cacheIndex
}

func newRegionCache(dir, optionsKey string) *regionCache {
	return &regionCache{
		dir:        dir,
		optionsKey: optionsKey,
		index: cacheIndex{
			Version: cacheIndexVersion,
			Entries: make(map[string]cacheEntry),
		},
	}
}

func (c *regionCache) indexPath() string {
	return filepath.Join(c.dir, "index.json")
}

func (c *regionCache) regionsPathForFile(filePath string) string {
	h := sha256.Sum256([]byte(filePath))
	return filepath.Join(c.dir, "regions", hex.EncodeToString(h[:])+".json")
}

func (c *regionCache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("cache mkdir: %w", err)
	}
	data, err := os.ReadFile(c.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read cache index: %w", err)
	}
	var idx cacheIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return fmt.Errorf("parse cache index: %w", err)
	}
	if idx.Version != cacheIndexVersion {
		// Reset on version mismatch
		return nil
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]cacheEntry)
	}
	c.index = idx
	return nil
}

func (c *regionCache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return writeJSONAtomic(c.indexPath(), c.index)
}

func (c *regionCache) Get(filePath, contentHash string) (cachedUnit, bool, error) {
	c.mu.Lock()
	entry, ok := c.index.Entries[filePath]
	c.mu.Unlock()
	if !ok || entry.ContentHash != contentHash || entry.OptionsKey != c.optionsKey {
		return cachedUnit{}, false, nil
	}

	data, err := os.ReadFile(entry.RegionsPath)
	if err != nil {
		return cachedUnit{}, false, fmt.Errorf("read cached regions: %w", err)
	}
	var unit cachedUnit
	if err := json.Unmarshal(data, &unit); err != nil {
		return cachedUnit{}, false, fmt.Errorf("parse cached regions: %w", err)
	}
	return unit, true, nil
}

func (c *regionCache) Put(filePath, contentHash string, unit cachedUnit) error {
	regionsPath := c.regionsPathForFile(filePath)
	if err := writeJSONAtomic(regionsPath, unit); err != nil {
		return err
	}

	c.mu.Lock()
	c.index.Entries[filePath] = cacheEntry{
		ContentHash: contentHash,
		OptionsKey:  c.optionsKey,
		RegionsPath: regionsPath,
	}
	c.mu.Unlock()
	return nil
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cache json: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.json")
	if err != nil {
		return fmt.Errorf("temp cache file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// cacheOptionsKey covers every option that changes a unit's regions
func (r *Runner) cacheOptionsKey(workingDir string) string {
	return fmt.Sprintf("strict=%t markers=%t wd=%s version=%s",
		r.Config.Frontend.Strict, r.Config.LineMarkersHonored(), workingDir, extractorVersion)
}

func (r *Runner) cacheDir(workingDir string) string {
	dir := r.Config.Analysis.Cache.Dir
	if dir == "" {
		dir = defaultCacheDir
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(workingDir, dir)
	}
	return dir
}
