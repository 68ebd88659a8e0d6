// Package jsonl provides the line-oriented append/scan primitives shared by
// the log store: each record is one self-describing JSON object per line,
// UTF-8, newline-terminated, and appends are fsynced down to the containing
// directory entry so the on-disk log stays human-diffable and durable.
package jsonl

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// maxLine caps the buffer a single scanned line may grow to; descriptions up
// to 10k+ code points plus JSON overhead fit comfortably under this.
const maxLine = 64 * 1024 * 1024

// OpenAppend opens path for appending, creating it (and its parent
// directory) if absent.
func OpenAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating directory for %s: %v", io.ErrUnexpectedEOF, path, err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening %s for append: %w", path, err)
	}
	return f, nil
}

// AppendLine appends one line (without its own trailing newline) to f and
// fsyncs both the file and its containing directory entry, so a crash right
// after this call never leaves a reader observing a partially-flushed
// record.
func AppendLine(f *os.File, line []byte) error {
	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, '\n')
	if _, err := f.Write(buf); err != nil {
		return fmt.Errorf("appending line: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("fsyncing %s: %w", f.Name(), err)
	}
	if err := syncDir(filepath.Dir(f.Name())); err != nil {
		return fmt.Errorf("fsyncing directory for %s: %w", f.Name(), err)
	}
	return nil
}

// syncDir fsyncs a directory entry so the appended file's new length is
// durable across a crash, not just the file's own data. Best-effort on
// platforms (or filesystems) where directory fsync is not supported.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return nil //nolint:nilerr // best-effort; absence of the dir handle is not fatal here
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		if !os.IsPermission(err) {
			return nil //nolint:nilerr // many filesystems (e.g. tmpfs, overlay) reject directory fsync
		}
	}
	return nil
}

// ScanResult reports what Scan found, including whether a trailing partial
// line was discovered and truncated.
type ScanResult struct {
	Lines          int
	TruncatedBytes int
}

// Scan streams each complete line in path to fn in file order. A partial
// final line (no trailing newline, e.g. from a torn write) is not passed to
// fn and is reported via ScanResult.TruncatedBytes so the caller can decide
// whether to physically truncate the file.
func Scan(path string, fn func(line []byte) error) (ScanResult, error) {
	var res ScanResult

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return res, nil
		}
		return res, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 1<<20)
	for {
		line, readErr := r.ReadBytes('\n')
		if len(line) > 0 {
			if readErr == nil || readErr == io.EOF && bytes.HasSuffix(line, []byte("\n")) {
				trimmed := bytes.TrimSuffix(line, []byte("\n"))
				if len(trimmed) > maxLine {
					return res, fmt.Errorf("line %d in %s exceeds max size %d", res.Lines+1, path, maxLine)
				}
				if len(bytes.TrimSpace(trimmed)) > 0 {
					if err := fn(trimmed); err != nil {
						return res, fmt.Errorf("line %d in %s: %w", res.Lines+1, path, err)
					}
					res.Lines++
				}
			} else if readErr == io.EOF {
				// Partial trailing line with no terminator: a torn write.
				res.TruncatedBytes = len(line)
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return res, fmt.Errorf("scanning %s: %w", path, readErr)
		}
	}
	return res, nil
}

// TruncatePartial removes the last res.TruncatedBytes bytes from path,
// discarding a torn trailing write discovered by Scan.
func TruncatePartial(path string, res ScanResult) error {
	if res.TruncatedBytes == 0 {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	newSize := info.Size() - int64(res.TruncatedBytes)
	if newSize < 0 {
		newSize = 0
	}
	if err := os.Truncate(path, newSize); err != nil {
		return fmt.Errorf("truncating %s: %w", path, err)
	}
	return nil
}

// RotateCompacted atomically replaces path's contents with lines, via
// write-to-temp, fsync, rename — all in path's own directory so the rename
// is a same-filesystem, atomic operation.
func RotateCompacted(path string, lines [][]byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		if _, err := w.Write(line); err != nil {
			return fmt.Errorf("writing compacted line: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsyncing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", tmpName, path, err)
	}
	success = true
	return syncDir(dir)
}
