// Package outputwriter implements append-only output files with an
// embedded progress marker, so a crashed writer can be resumed without
// duplicating or dropping rows.
package outputwriter

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultStaleLockAge is how old a lock file's mtime must be before it is
// reclaimed as abandoned.
const DefaultStaleLockAge = 5 * time.Minute

// Writer manages one append-only output file and its trailing marker line.
type Writer struct {
	path         string
	staleLockAge time.Duration
}

// New creates a Writer for the file at path.
func New(path string) *Writer {
	return &Writer{path: path, staleLockAge: DefaultStaleLockAge}
}

// WithStaleLockAge overrides the default stale-lock reclaim threshold.
func (w *Writer) WithStaleLockAge(d time.Duration) *Writer {
	w.staleLockAge = d
	return w
}

// AppendPage appends lines followed by a new marker "{page},{cumulativeRows}"
// in one flushed write, unless the current marker already covers page (in
// which case AppendPage is a no-op, making retried or duplicate calls safe).
func (w *Writer) AppendPage(page int, cumulativeRows int64, lines []string) error {
	unlock, err := w.lock()
	if err != nil {
		return err
	}
	defer unlock()

	markerPage, _, present, err := w.readFooterLocked()
	if err != nil {
		return err
	}
	if present && markerPage >= page {
		return nil
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("opening output file %s: %w", w.path, err)
	}
	defer f.Close()

	if present {
		if err := truncateLastLine(f); err != nil {
			return fmt.Errorf("removing prior marker from %s: %w", w.path, err)
		}
	}

	if _, err := f.Seek(0, os.SEEK_END); err != nil {
		return fmt.Errorf("seeking to end of %s: %w", w.path, err)
	}

	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(strings.TrimRight(line, "\r\n"))
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("%d,%d\n", page, cumulativeRows))

	if _, err := f.WriteString(sb.String()); err != nil {
		return fmt.Errorf("appending page %d to %s: %w", page, w.path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("flushing page %d to %s: %w", page, w.path, err)
	}
	return nil
}

// RemoveFooter truncates the file to exclude its final (marker) line. An
// already-marker-less file is left unchanged.
func (w *Writer) RemoveFooter() error {
	unlock, err := w.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if _, _, present, err := w.readFooterLocked(); err != nil {
		return err
	} else if !present {
		return nil
	}

	f, err := os.OpenFile(w.path, os.O_RDWR, 0o644)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening output file %s: %w", w.path, err)
	}
	defer f.Close()

	if err := truncateLastLine(f); err != nil {
		return fmt.Errorf("removing footer from %s: %w", w.path, err)
	}
	return f.Sync()
}

// readFooterLocked reads the current marker while already holding the lock.
// Unlike ReadFooter, it reports whether a marker was actually present, so
// AppendPage can tell "fresh file, nothing written yet" (present=false) from
// "marker recorded page 0" (present=true, page=0) — both read as page 0 from
// ReadFooter's public zero-value convenience return.
func (w *Writer) readFooterLocked() (page int, rows int64, present bool, err error) {
	return readMarker(w.path)
}

// ReadFooter reads path's final non-empty line (scanning the file from the
// start) and parses it as "{page},{rows}". It returns (0, 0) if the file is missing, empty, or its
// final line is not a well-formed marker.
func ReadFooter(path string) (int, int64, error) {
	page, rows, _, err := readMarker(path)
	return page, rows, err
}

// readMarker is ReadFooter's implementation, additionally reporting whether
// a well-formed marker line was actually found.
func readMarker(path string) (page int, rows int64, present bool, err error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	last, err := lastLine(f)
	if err != nil {
		return 0, 0, false, fmt.Errorf("reading last line of %s: %w", path, err)
	}
	if last == "" {
		return 0, 0, false, nil
	}

	parts := strings.SplitN(last, ",", 2)
	if len(parts) != 2 {
		return 0, 0, false, nil
	}
	p, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false, nil
	}
	r, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, false, nil
	}
	return p, r, true, nil
}

// lastLine returns the final non-empty line of f without loading the whole
// file into memory twice; for the marker-sized lines this format produces,
// a straightforward scan is sufficient.
func lastLine(f *os.File) (string, error) {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var last string
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			last = line
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return last, nil
}

// truncateLastLine removes the final non-empty line from f, leaving the
// file positioned at the new end.
func truncateLastLine(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return nil
	}

	if _, err := f.Seek(0, os.SEEK_SET); err != nil {
		return err
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var offset int64
	var lastLineStart int64
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			offset += 1
			continue
		}
		lastLineStart = offset
		offset += int64(len(line)) + 1
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if err := f.Truncate(lastLineStart); err != nil {
		return err
	}
	_, err = f.Seek(0, os.SEEK_END)
	return err
}
