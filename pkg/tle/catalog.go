package tle

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// celestrakURL is the GP data endpoint; the group name is appended
	celestrakURL = "https://celestrak.org/NORAD/elements/gp.php?FORMAT=tle&GROUP="

	// defaultMaxCacheAge is how old a cached group file may be before
	// it is re-downloaded
	defaultMaxCacheAge = 7 * 24 * time.Hour
)

// Group identifies a Celestrak element-set group.
type Group string

// Celestrak groups commonly used for visual tracking.
const (
	GroupStations Group = "stations"
	GroupActive   Group = "active"
)

// Loader fetches element-set groups from Celestrak, caching each group
// in a local file. Remote fetches are rate limited so bulk loads don't
// trip the service's abuse protection.
type Loader struct {
	cacheDir   string
	maxAge     time.Duration
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewLoader creates a Loader that caches group files under cacheDir.
func NewLoader(cacheDir string) *Loader {
	return &Loader{
		cacheDir: cacheDir,
		maxAge:   defaultMaxCacheAge,
		baseURL:  celestrakURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		// Celestrak asks clients to keep request rates modest; one
		// request per 2 seconds is plenty for a handful of groups.
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
}

// LoadGroup returns the entries of a Celestrak group, downloading the
// group file if the local cache is missing or older than the max age.
func (l *Loader) LoadGroup(ctx context.Context, group Group) ([]Entry, error) {
	path := filepath.Join(l.cacheDir, string(group)+".tle")

	if stale, err := l.cacheStale(path); err != nil {
		return nil, err
	} else if stale {
		log.Printf("Downloading %s element sets from Celestrak...", group)
		if err := l.download(ctx, group, path); err != nil {
			return nil, err
		}
	} else {
		log.Printf("Element set cache for %s is up to date - no download required", group)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening cached element sets: %w", err)
	}
	defer f.Close()

	entries, err := Parse(f)
	if err != nil {
		return nil, err
	}
	log.Printf("Loaded %d element set(s) from group %s", len(entries), group)
	return entries, nil
}

// Catalog maps satellite names to their most recently loaded element sets.
type Catalog map[string]Entry

// LoadCatalog loads and merges multiple groups into one name-keyed catalog.
// Later groups win on name collisions.
func (l *Loader) LoadCatalog(ctx context.Context, groups ...Group) (Catalog, error) {
	catalog := make(Catalog)
	for _, g := range groups {
		entries, err := l.LoadGroup(ctx, g)
		if err != nil {
			return nil, fmt.Errorf("loading group %s: %w", g, err)
		}
		for _, e := range entries {
			catalog[e.Name] = e
		}
	}
	return catalog, nil
}

// Find looks up a satellite by name. The lookup is exact first, then
// falls back to a case-insensitive match so "iss (zarya)" works.
func (c Catalog) Find(name string) (Entry, bool) {
	if e, ok := c[name]; ok {
		return e, true
	}
	for k, e := range c {
		if strings.EqualFold(k, name) {
			return e, true
		}
	}
	return Entry{}, false
}

// Names returns all satellite names in the catalog, for error messages.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for k := range c {
		names = append(names, k)
	}
	return names
}

// cacheStale reports whether the cache file at path is missing or too old.
func (l *Loader) cacheStale(path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking element set cache: %w", err)
	}
	return time.Since(info.ModTime()) >= l.maxAge, nil
}

// download fetches a group file and writes it to the cache path.
func (l *Loader) download(ctx context.Context, group Group, path string) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+string(group), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching element sets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code %d fetching group %s", resp.StatusCode, group)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	if err := os.WriteFile(path, body, 0644); err != nil {
		return fmt.Errorf("writing element set cache: %w", err)
	}
	return nil
}
