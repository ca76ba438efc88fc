package main

import (
	"os"
	"path"
	"strings"
)

// TransferEngine drives get/mget against one connection, deciding from the
// directory cache and the ledger what to skip. It is strictly sequential:
// every call blocks until the round trip completes.
type TransferEngine struct {
	conn     Connection
	cache    *DirectoryCache
	registry *ProcessedRegistry
	mode     TransferMode
	reRecord bool // re-record skipped files into a fresh ledger
}

func NewTransferEngine(conn Connection, cache *DirectoryCache, registry *ProcessedRegistry) *TransferEngine {
	return &TransferEngine{
		conn:     conn,
		cache:    cache,
		registry: registry,
		mode:     ModeASCII,
	}
}

func (e *TransferEngine) SetMode(mode TransferMode) {
	e.mode = mode
}

// SetReRecord makes skipped files re-append to the ledger, so a fresh ledger
// built during a forced-reset run still lists everything present remotely.
func (e *TransferEngine) SetReRecord(on bool) {
	e.reRecord = on
}

// Get retrieves a single file into the working directory unless the ledger
// shows its listing line unchanged since the last fetch. localName, if
// non-empty, renames the local copy. A failed transfer is logged and the
// partial file removed; the only error returned is the listing circuit
// breaker, which aborts the whole run.
func (e *TransferEngine) Get(name, localName string) error {
	dir, err := e.conn.CurrentDir()
	if err != nil {
		logger.Warnw("pwd failed", "err", err)
		return nil
	}
	if !e.cache.IsWarm(dir) {
		if err := e.cache.Warm(dir); err != nil {
			return err
		}
	}

	entry, known := e.cache.Get(dir, name)
	prior, processed := e.registry.Lookup(dir, name, DirGet, AttrRawEntry)
	if known && processed && prior == entry.Line {
		if e.reRecord {
			e.registry.Record(dir, name, DirGet, "", entry.Line, "")
		}
		logger.Infow("already fetched", "file", name)
		return nil
	}

	dest := name
	if localName != "" {
		dest = localName
	}
	logger.Infow("retrieving", "file", name, "mode", e.mode)
	if err := e.conn.Retrieve(name, dest, e.mode); err != nil {
		// A single failed file never stops the batch; just make sure no
		// partial download is left behind and the ledger stays untouched.
		if rmErr := os.Remove(dest); rmErr != nil && !os.IsNotExist(rmErr) {
			logger.Warnw("cannot remove partial file", "file", dest, "err", rmErr)
		}
		logger.Warnw("get failed", "file", name, "err", err)
		return nil
	}
	if known {
		if err := e.registry.Record(dir, name, DirGet, "", entry.Line, ""); err != nil {
			logger.Warnw("not recorded; file will be fetched again next run",
				"file", name, "err", err)
		}
	} else {
		logger.Infow("no listing entry, not recording", "file", name)
	}
	return nil
}

// Mget fetches every file in a directory matching a glob pattern, descending
// into subdirectories when recursive is set. The pattern may carry a
// directory prefix ("pub/data/*.txt"), in which case the engine changes into
// it first. The iteration listing is always taken fresh, not from the cache:
// recursion needs the live child set.
func (e *TransferEngine) Mget(pattern string, recursive bool, localName string) error {
	logger.Debugw("mget", "pattern", pattern, "recursive", recursive)

	head, tail := path.Split(pattern)
	head = strings.TrimSuffix(head, "/")
	if head != "" {
		if err := e.conn.ChangeDir(head); err != nil {
			logger.Warnw("cannot change directory", "dir", head, "err", err)
			return nil
		}
		e.cache.ResetAll()
	}
	dir, err := e.conn.CurrentDir()
	if err != nil {
		logger.Warnw("pwd failed", "err", err)
		return nil
	}
	entries, err := e.conn.List(dir)
	if err != nil || len(entries) == 0 {
		logger.Warnw("directory is empty or does not exist", "dir", dir, "err", err)
		return nil
	}

	for _, entry := range entries {
		if entry.IsDir {
			if !recursive {
				continue
			}
			if err := e.Mget(path.Join(dir, entry.Name)+"/"+tail, recursive, localName); err != nil {
				return err
			}
			// Come back so the rest of this directory's entries resolve
			// against the right working directory.
			if err := e.conn.ChangeDir(dir); err != nil {
				logger.Warnw("cannot return to directory", "dir", dir, "err", err)
				return nil
			}
			e.cache.ResetAll()
			continue
		}
		if fileMatch(tail, entry.Name, true) {
			if err := e.Get(entry.Name, localName); err != nil {
				return err
			}
		}
	}
	return nil
}

// fileMatch reports whether a shell glob matches a file name. foldCase, the
// default for remote matching, ignores case on both sides.
func fileMatch(pattern, name string, foldCase bool) bool {
	if foldCase {
		pattern = strings.ToLower(pattern)
		name = strings.ToLower(name)
	}
	ok, err := path.Match(pattern, name)
	if err != nil {
		logger.Warnw("bad file pattern", "pattern", pattern, "err", err)
		return false
	}
	return ok
}
