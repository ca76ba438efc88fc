package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ArchiveManager deduplicates and archives local files once they have been
// processed. Its ledger has the same append-only pipe-delimited shape as the
// transfer ledger but keys on (directory, filename) and compares content md5
// plus modification date instead of a listing line:
//
//	directory|filename|moddate|md5sum
type ArchiveManager struct {
	ledgerPath string
	archiveDir string
	dateFormat string // strftime-style, from config
	timestamp  bool
	records    map[string]map[string]string // dir|name -> attr -> value
	pending    map[string][]string          // category -> files awaiting archive
}

func NewArchiveManager(cfg *Config) *ArchiveManager {
	dateFormat := cfg.Archive.DateFormat
	if dateFormat == "" {
		dateFormat = "%Y%m%d%H%M"
	}
	return &ArchiveManager{
		ledgerPath: cfg.Archive.DatFile,
		archiveDir: cfg.Archive.Dir,
		dateFormat: dateFormat,
		timestamp:  cfg.Archive.Timestamp,
		records:    make(map[string]map[string]string),
		pending:    make(map[string][]string),
	}
}

// Load reads the archive ledger, fail-open like the transfer ledger: a
// missing file or malformed line means the affected files are treated as
// never processed.
func (a *ArchiveManager) Load() {
	fh, err := os.Open(a.ledgerPath)
	if err != nil {
		logger.Warnw("couldn't open archive ledger", "path", a.ledgerPath, "err", err)
		return
	}
	defer fh.Close()

	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "|")
		if len(fields) != 4 {
			logger.Debugw("skipping malformed archive ledger line", "fields", len(fields))
			continue
		}
		a.set(fields[0], fields[1], AttrModDate, fields[2])
		a.set(fields[0], fields[1], AttrChecksum, fields[3])
	}
	if err := scanner.Err(); err != nil {
		logger.Warnw("error reading archive ledger", "path", a.ledgerPath, "err", err)
	}
}

func (a *ArchiveManager) set(dir, name, attr, value string) {
	key := dir + "|" + name
	if _, ok := a.records[key]; !ok {
		a.records[key] = make(map[string]string)
	}
	a.records[key][attr] = value
}

// AlreadyProcessed reports whether the ledger holds this exact version of
// the file: both the content checksum and the modification date must match.
func (a *ArchiveManager) AlreadyProcessed(dir, name, md5sum, moddate string) bool {
	rec, ok := a.records[dir+"|"+name]
	if !ok {
		return false
	}
	return rec[AttrChecksum] == md5sum && rec[AttrModDate] == moddate
}

// record appends the file's details to the ledger and mirrors them in
// memory.
func (a *ArchiveManager) record(dir, name, moddate, md5sum string) error {
	fh, err := os.OpenFile(a.ledgerPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		logger.Warnw("cannot open archive ledger", "path", a.ledgerPath, "err", err)
		return err
	}
	_, err = fmt.Fprintf(fh, "%s|%s|%s|%s\n", dir, name, moddate, md5sum)
	if cerr := fh.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	a.set(dir, name, AttrModDate, moddate)
	a.set(dir, name, AttrChecksum, md5sum)
	return nil
}

// ExpandFileSpec globs spec against originDir and appends the matches to the
// category's pending list, skipping zero-byte files and files already
// listed.
func (a *ArchiveManager) ExpandFileSpec(originDir, spec, category string) {
	matches, err := filepath.Glob(filepath.Join(originDir, spec))
	if err != nil {
		logger.Warnw("bad file spec", "spec", spec, "err", err)
		return
	}
	logger.Infow("files to be processed", "category", category, "spec", spec, "count", len(matches))
	for _, file := range matches {
		if fileSize(file) == 0 {
			continue
		}
		if a.isPending(category, file) {
			continue
		}
		a.pending[category] = append(a.pending[category], file)
	}
}

func (a *ArchiveManager) isPending(category, file string) bool {
	for _, f := range a.pending[category] {
		if f == file {
			return true
		}
	}
	return false
}

// ArchiveFile moves a file into the archive directory. With timestamping on,
// the file's modification time (formatted per the configured pattern) is
// inserted before the extension so successive versions of the same logical
// file do not collide.
func (a *ArchiveManager) ArchiveFile(filename string) error {
	if a.archiveDir == "" {
		return fmt.Errorf("no archive directory configured")
	}
	if err := os.MkdirAll(a.archiveDir, 0755); err != nil {
		return fmt.Errorf("cannot create %s: %w", a.archiveDir, err)
	}

	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filepath.Base(filename), ext)
	ext = strings.TrimPrefix(ext, ".")

	archiveName := base
	if a.timestamp {
		stamp, err := modDate(filename, a.dateFormat)
		if err != nil {
			return err
		}
		archiveName += "." + stamp
	}
	if ext != "" {
		archiveName += "." + ext
	}

	dest := filepath.Join(a.archiveDir, archiveName)
	logger.Debugw("archiving", "file", filename, "dest", dest)
	if err := moveFile(filename, dest); err != nil {
		logger.Warnw("error moving file", "file", filename, "dest", dest, "err", err)
		return err
	}
	return nil
}

// Process works through a category's pending list: unseen or changed files
// are recorded and archived, exact duplicates are skipped in place. Per-file
// errors are collected and reported together; the pass never aborts early.
func (a *ArchiveManager) Process(category string) error {
	var errs *multierror.Error
	for _, file := range a.pending[category] {
		dir, name, md5sum, moddate, err := fileStat(file)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if a.AlreadyProcessed(dir, name, md5sum, moddate) {
			logger.Infow("already processed", "file", file)
			continue
		}
		if err := a.record(dir, name, moddate, md5sum); err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if err := a.ArchiveFile(file); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	a.pending[category] = nil
	return errs.ErrorOrNil()
}
