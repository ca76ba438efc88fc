package main

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// fingerprint builds the change-detection line for a remote entry. The
// protocol libraries return parsed entries rather than raw LIST text, so the
// line is synthesized from the fields that matter: any change to permissions,
// size or mtime produces a different line and forces a re-fetch.
func fingerprint(perm string, size int64, mtime time.Time, name string) string {
	return fmt.Sprintf("%s %12d %s %s", perm, size, mtime.UTC().Format(time.RFC3339), name)
}

var dosListingRE = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// entryName extracts the file name and type marker ('f' or 'd') from an
// ls -l style listing line, e.g.:
//
//	d---------   1 owner    group               0 Apr 28 23:24 sub1
//
// returns ("sub1", 'd'). DOS-style lines (leading date, <DIR> marker) are
// classified too. Names containing spaces are truncated to the last token;
// known limitation of the listing format.
func entryName(line string) (string, byte) {
	entryType := byte('f')
	switch {
	case strings.HasPrefix(line, "d"):
		entryType = 'd'
	case strings.HasPrefix(line, "-"):
		entryType = 'f'
	case dosListingRE.MatchString(line):
		if strings.Contains(line, "<DIR>") {
			entryType = 'd'
		}
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", entryType
	}
	return fields[len(fields)-1], entryType
}
