package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Transfer directions recorded in the ledger.
const (
	DirGet = "get"
	DirPut = "put"
)

// Ledger record attributes.
const (
	AttrModDate  = "moddate"
	AttrRawEntry = "direntry"
	AttrChecksum = "md5sum"
)

// ProcessedRegistry is the durable ledger of previously transferred files.
// The backing file is append-only, one pipe-delimited record per line:
//
//	directory|filename|direction|moddate|direntry|md5sum
//
// The in-memory map is a cache rebuilt from the file on load. Field values
// containing a literal '|' corrupt the record; known limitation of the
// format.
type ProcessedRegistry struct {
	path    string
	records map[string]map[string]string // dir|name|direction -> attr -> value
}

func NewProcessedRegistry(path string) *ProcessedRegistry {
	return &ProcessedRegistry{
		path:    path,
		records: make(map[string]map[string]string),
	}
}

func recordKey(dir, name, direction string) string {
	return dir + "|" + name + "|" + direction
}

// Load reads the ledger into memory. Missing files and malformed lines are
// tolerated: anything unreadable is treated as not yet processed, so a
// corrupt ledger can never block a legitimate transfer.
func (r *ProcessedRegistry) Load() {
	fh, err := os.Open(r.path)
	if err != nil {
		logger.Warnw("couldn't open ledger", "path", r.path, "err", err)
		return
	}
	defer fh.Close()

	logger.Infow("loading previously-processed files", "path", r.path)
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "|")
		if len(fields) != 6 {
			logger.Debugw("skipping malformed ledger line", "fields", len(fields))
			continue
		}
		r.set(fields[0], fields[1], fields[2], AttrModDate, fields[3])
		r.set(fields[0], fields[1], fields[2], AttrRawEntry, fields[4])
		r.set(fields[0], fields[1], fields[2], AttrChecksum, fields[5])
	}
	if err := scanner.Err(); err != nil {
		logger.Warnw("error reading ledger", "path", r.path, "err", err)
	}
}

func (r *ProcessedRegistry) set(dir, name, direction, attr, value string) {
	key := recordKey(dir, name, direction)
	if _, ok := r.records[key]; !ok {
		r.records[key] = make(map[string]string)
	}
	r.records[key][attr] = value
}

// Lookup returns the stored attribute for (directory, filename, direction),
// or false if the file has not been processed.
func (r *ProcessedRegistry) Lookup(dir, name, direction, attr string) (string, bool) {
	value, ok := r.records[recordKey(dir, name, direction)][attr]
	return value, ok
}

// Record appends one line to the ledger, then mirrors it in memory. If the
// append fails the transfer result stands, but the entry is not cached
// either: the file will be fetched again next run rather than silently
// counted as done.
func (r *ProcessedRegistry) Record(dir, name, direction, moddate, rawEntry, checksum string) error {
	fh, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		logger.Warnw("cannot open ledger", "path", r.path, "err", err)
		return err
	}
	_, err = fmt.Fprintf(fh, "%s|%s|%s|%s|%s|%s\n", dir, name, direction, moddate, rawEntry, checksum)
	if cerr := fh.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		logger.Warnw("ledger append failed", "path", r.path, "file", name, "err", err)
		return err
	}
	r.set(dir, name, direction, AttrModDate, moddate)
	r.set(dir, name, direction, AttrRawEntry, rawEntry)
	r.set(dir, name, direction, AttrChecksum, checksum)
	return nil
}

// Reset deletes the backing ledger and clears memory, forcing a full resync.
func (r *ProcessedRegistry) Reset() {
	r.DeleteFile()
	r.records = make(map[string]map[string]string)
}

// DeleteFile removes the backing ledger but keeps the in-memory view. Used
// by fresh-ledger runs: unchanged files still skip the transfer and get
// re-recorded into the new file.
func (r *ProcessedRegistry) DeleteFile() {
	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		logger.Warnw("unable to delete existing ledger", "path", r.path, "err", err)
	}
}
