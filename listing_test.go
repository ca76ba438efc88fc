package main

import (
	"testing"
	"time"
)

func TestEntryName(t *testing.T) {
	cases := []struct {
		line     string
		wantName string
		wantType byte
	}{
		{"d---------   1 owner    group               0 Apr 28 23:24 sub1", "sub1", 'd'},
		{"----------   1 owner    group          432213 Apr 28 23:24 F432213.pgp", "F432213.pgp", 'f'},
		{"drwxr-xr-x   2 ftp      ftp          4096 Mar 15 06:00 incoming", "incoming", 'd'},
		{"2024-03-15  06:00AM       <DIR>          incoming", "incoming", 'd'},
		{"2024-03-15  06:00AM               432213 F432213.pgp", "F432213.pgp", 'f'},
		{"", "", 'f'},
	}
	for _, c := range cases {
		name, entryType := entryName(c.line)
		if name != c.wantName || entryType != c.wantType {
			t.Errorf("entryName(%q) = %q, %c; want %q, %c",
				c.line, name, entryType, c.wantName, c.wantType)
		}
	}
}

func TestFingerprintReflectsChanges(t *testing.T) {
	mtime := time.Date(2024, 3, 15, 6, 0, 0, 0, time.UTC)
	base := fingerprint("-rw-r--r--", 100, mtime, "a.txt")

	if got := fingerprint("-rw-r--r--", 100, mtime, "a.txt"); got != base {
		t.Error("identical inputs produced different fingerprints")
	}
	if got := fingerprint("-rw-r--r--", 200, mtime, "a.txt"); got == base {
		t.Error("size change not reflected")
	}
	if got := fingerprint("-rw-r--r--", 100, mtime.Add(time.Second), "a.txt"); got == base {
		t.Error("mtime change not reflected")
	}
	if got := fingerprint("-rwxr--r--", 100, mtime, "a.txt"); got == base {
		t.Error("permission change not reflected")
	}
}
