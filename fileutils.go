package main

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ledgerDateFormat is the moddate format stored in the archive ledger.
const ledgerDateFormat = "2006-01-02 15:04:05"

// strftimeTokens maps the strftime-style tokens accepted in config files to
// time.Format layout fragments. Unknown tokens pass through untouched.
var strftimeTokens = strings.NewReplacer(
	"%Y", "2006",
	"%y", "06",
	"%m", "01",
	"%d", "02",
	"%H", "15",
	"%M", "04",
	"%S", "05",
	"%j", "002",
)

func strftimeLayout(format string) string {
	return strftimeTokens.Replace(format)
}

// fileStat returns the directory, base name, content md5 and modification
// date of a local file. The whole file is read to hash it, so this can be
// slow for large files.
func fileStat(filename string) (dir, name, md5sum, moddate string, err error) {
	fi, err := os.Stat(filename)
	if err != nil {
		return "", "", "", "", fmt.Errorf("stat %s: %w", filename, err)
	}
	dir, name = filepath.Split(filename)
	dir = filepath.Clean(dir)
	moddate = fi.ModTime().Format(ledgerDateFormat)

	f, err := os.Open(filename)
	if err != nil {
		return "", "", "", "", fmt.Errorf("open %s: %w", filename, err)
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", "", "", "", fmt.Errorf("checksum %s: %w", filename, err)
	}
	md5sum = hex.EncodeToString(h.Sum(nil))
	return dir, name, md5sum, moddate, nil
}

// modDate returns the file's modification time formatted per a
// strftime-style pattern.
func modDate(filename, format string) (string, error) {
	fi, err := os.Stat(filename)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", filename, err)
	}
	return fi.ModTime().Format(strftimeLayout(format)), nil
}

// fileSize returns the size of a local file in bytes, 0 if it cannot be
// statted.
func fileSize(filename string) int64 {
	fi, err := os.Stat(filename)
	if err != nil {
		return 0
	}
	return fi.Size()
}

// moveFile renames origin to destination, falling back to copy-and-remove
// when they sit on different filesystems.
func moveFile(origin, destination string) error {
	if err := os.Rename(origin, destination); err == nil {
		return nil
	}
	in, err := os.Open(origin)
	if err != nil {
		return err
	}
	out, err := os.Create(destination)
	if err != nil {
		in.Close()
		return err
	}
	_, err = io.Copy(out, in)
	in.Close()
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(destination)
		return fmt.Errorf("move %s to %s: %w", origin, destination, err)
	}
	return os.Remove(origin)
}
