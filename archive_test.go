package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestArchive(t *testing.T, timestamp bool, dateFormat string) (*ArchiveManager, string) {
	t.Helper()
	base := t.TempDir()
	cfg := &Config{}
	cfg.Archive.Dir = filepath.Join(base, "archive")
	cfg.Archive.DatFile = filepath.Join(base, "archive.dat")
	cfg.Archive.DateFormat = dateFormat
	cfg.Archive.Timestamp = timestamp
	return NewArchiveManager(cfg), base
}

func writeOrigin(t *testing.T, dir, name, content string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestArchiveFileTimestamped(t *testing.T) {
	mgr, base := newTestArchive(t, true, "%Y%m%d")
	origin := filepath.Join(base, "origin")
	os.MkdirAll(origin, 0755)
	mtime := time.Date(2024, 1, 2, 10, 30, 0, 0, time.Local)
	file := writeOrigin(t, origin, "foo.txt", "payload", mtime)

	if err := mgr.ArchiveFile(file); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(base, "archive", "foo.20240102.txt")
	if _, err := os.Stat(want); err != nil {
		t.Errorf("archived file missing: %v", err)
	}
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Error("origin file still present after archive")
	}
}

func TestArchiveFilePlainName(t *testing.T) {
	mgr, base := newTestArchive(t, false, "%Y%m%d")
	origin := filepath.Join(base, "origin")
	os.MkdirAll(origin, 0755)
	file := writeOrigin(t, origin, "foo.txt", "payload", time.Now())

	if err := mgr.ArchiveFile(file); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(base, "archive", "foo.txt")); err != nil {
		t.Errorf("archived file missing: %v", err)
	}
}

func TestArchiveFileNoExtension(t *testing.T) {
	mgr, base := newTestArchive(t, true, "%Y%m%d")
	origin := filepath.Join(base, "origin")
	os.MkdirAll(origin, 0755)
	mtime := time.Date(2024, 1, 2, 0, 0, 0, 0, time.Local)
	file := writeOrigin(t, origin, "README", "payload", mtime)

	if err := mgr.ArchiveFile(file); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(base, "archive", "README.20240102")); err != nil {
		t.Errorf("archived file missing: %v", err)
	}
}

func TestExpandFileSpecSkipsEmptyAndDuplicates(t *testing.T) {
	mgr, base := newTestArchive(t, false, "")
	origin := filepath.Join(base, "origin")
	os.MkdirAll(origin, 0755)
	writeOrigin(t, origin, "a.dat", "data", time.Now())
	writeOrigin(t, origin, "empty.dat", "", time.Now())
	writeOrigin(t, origin, "other.txt", "data", time.Now())

	mgr.ExpandFileSpec(origin, "*.dat", "obs")
	mgr.ExpandFileSpec(origin, "*.dat", "obs")

	if got := len(mgr.pending["obs"]); got != 1 {
		t.Errorf("pending = %v, want just a.dat", mgr.pending["obs"])
	}
}

func TestProcessArchivesAndDeduplicates(t *testing.T) {
	mgr, base := newTestArchive(t, false, "")
	origin := filepath.Join(base, "origin")
	os.MkdirAll(origin, 0755)
	mtime := time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local)
	file := writeOrigin(t, origin, "obs.csv", "1,2,3\n", mtime)

	mgr.ExpandFileSpec(origin, "*.csv", "obs")
	if err := mgr.Process("obs"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Fatal("file not archived on first pass")
	}

	// The same logical file shows up again, bit-identical and with the same
	// mtime: the ledger must veto a second archive.
	writeOrigin(t, origin, "obs.csv", "1,2,3\n", mtime)
	mgr.ExpandFileSpec(origin, "*.csv", "obs")
	if err := mgr.Process("obs"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(file); err != nil {
		t.Error("duplicate was archived instead of skipped")
	}
}

func TestProcessReArchivesChangedContent(t *testing.T) {
	mgr, base := newTestArchive(t, false, "")
	origin := filepath.Join(base, "origin")
	os.MkdirAll(origin, 0755)
	mtime := time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local)
	file := writeOrigin(t, origin, "obs.csv", "1,2,3\n", mtime)

	mgr.ExpandFileSpec(origin, "*.csv", "obs")
	if err := mgr.Process("obs"); err != nil {
		t.Fatal(err)
	}

	writeOrigin(t, origin, "obs.csv", "4,5,6\n", mtime)
	mgr.ExpandFileSpec(origin, "*.csv", "obs")
	if err := mgr.Process("obs"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Error("changed content was not re-archived")
	}
}

func TestArchiveLedgerSurvivesReload(t *testing.T) {
	mgr, base := newTestArchive(t, false, "")
	origin := filepath.Join(base, "origin")
	os.MkdirAll(origin, 0755)
	mtime := time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local)
	writeOrigin(t, origin, "obs.csv", "1,2,3\n", mtime)

	mgr.ExpandFileSpec(origin, "*.csv", "obs")
	if err := mgr.Process("obs"); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{}
	cfg.Archive.Dir = mgr.archiveDir
	cfg.Archive.DatFile = mgr.ledgerPath
	reloaded := NewArchiveManager(cfg)
	reloaded.Load()

	_, _, md5sum, moddate, err := fileStat(filepath.Join(mgr.archiveDir, "obs.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if !reloaded.AlreadyProcessed(origin, "obs.csv", md5sum, moddate) {
		t.Error("reloaded ledger lost the processed record")
	}
}
