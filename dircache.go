package main

import "errors"

// errListingAborted trips after too many distinct directories fail to list.
// It is the one error that terminates a run: a server where three different
// directories come back empty or missing is misconfigured or unreachable,
// and continuing would only churn.
var errListingAborted = errors.New("too many unlistable directories, aborting")

const listFailLimit = 3

// DirectoryCache holds per-session remote directory listings so a batch of
// single-file gets issues one LIST per directory instead of one per file.
type DirectoryCache struct {
	conn    Connection
	entries map[string]map[string]RemoteEntry
	failed  map[string]bool // distinct directories that failed to list
}

func NewDirectoryCache(conn Connection) *DirectoryCache {
	return &DirectoryCache{
		conn:    conn,
		entries: make(map[string]map[string]RemoteEntry),
		failed:  make(map[string]bool),
	}
}

// ResetAll drops every cached listing. Called on each successful directory
// change; the whole cache goes, not just the directory being left.
func (c *DirectoryCache) ResetAll() {
	c.entries = make(map[string]map[string]RemoteEntry)
}

func (c *DirectoryCache) Set(dir, name string, entry RemoteEntry) {
	if _, ok := c.entries[dir]; !ok {
		c.entries[dir] = make(map[string]RemoteEntry)
	}
	c.entries[dir][name] = entry
}

func (c *DirectoryCache) Get(dir, name string) (RemoteEntry, bool) {
	entry, ok := c.entries[dir][name]
	if !ok {
		logger.Debugw("no directory entry", "dir", dir, "file", name)
	}
	return entry, ok
}

// IsWarm reports whether dir has already been listed this session.
func (c *DirectoryCache) IsWarm(dir string) bool {
	_, ok := c.entries[dir]
	return ok
}

// Warm lists dir exactly once and caches each entry. An empty or failed
// listing counts dir against the breaker; the third distinct failed
// directory aborts the run with errListingAborted. A failure below the limit
// is not fatal: the caller proceeds without cached entries.
func (c *DirectoryCache) Warm(dir string) error {
	entries, err := c.conn.List(dir)
	if err != nil || len(entries) == 0 {
		c.failed[dir] = true
		if len(c.failed) >= listFailLimit {
			logger.Errorw("directory is empty or does not exist",
				"dir", dir, "distinct_failures", len(c.failed), "err", err)
			return errListingAborted
		}
		logger.Warnw("directory is empty or does not exist", "dir", dir, "err", err)
		return nil
	}
	logger.Infow("caching directory listing", "dir", dir, "entries", len(entries))
	for _, e := range entries {
		c.Set(dir, e.Name, e)
	}
	return nil
}
